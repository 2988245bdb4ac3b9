package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/garyjia/billing-engine/internal/application/service"
	"github.com/garyjia/billing-engine/internal/domain/entity"
	"github.com/garyjia/billing-engine/internal/export"
	"github.com/garyjia/billing-engine/pkg/utils"
)

const dateLayout = "2006-01-02"

// Handlers contains all HTTP request handlers
type Handlers struct {
	seriesService   service.SeriesService
	orderingService service.OrderingService
	exporter        *export.ReconciliationExporter
	logger          Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	seriesService service.SeriesService,
	orderingService service.OrderingService,
	exporter *export.ReconciliationExporter,
	logger Logger,
) *Handlers {
	return &Handlers{
		seriesService:   seriesService,
		orderingService: orderingService,
		exporter:        exporter,
		logger:          logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// PricedPeriodRequest is one priced period of a series request
type PricedPeriodRequest struct {
	MonthlyPrice string `json:"monthly_price" binding:"required"`
	StartDate    string `json:"start_date" binding:"required"`
	EndDate      string `json:"end_date" binding:"required"`
	Description  string `json:"description"`
}

// SeriesRequest is the request body for creating or replacing a series
type SeriesRequest struct {
	Payer     string                `json:"payer" binding:"required"`
	StartDate string                `json:"start_date" binding:"required"`
	EndDate   string                `json:"end_date" binding:"required"`
	Interval  string                `json:"interval" binding:"required"`
	Periods   []PricedPeriodRequest `json:"periods" binding:"required"`
}

// FeedbackRequest is the request body for external invoice status feedback
type FeedbackRequest struct {
	Status string `json:"status" binding:"required"`
}

// InvoiceLineResponse represents an invoice line in API responses
type InvoiceLineResponse struct {
	PeriodFrom               string  `json:"period_from"`
	PeriodTo                 string  `json:"period_to"`
	Description              string  `json:"description"`
	Quantity                 string  `json:"quantity"`
	UnitPrice                string  `json:"unit_price"`
	Amount                   string  `json:"amount"`
	SettlementPreviousAmount *string `json:"settlement_previous_amount,omitempty"`
	SettlementNewAmount      *string `json:"settlement_new_amount,omitempty"`
	CorrectsInvoiceRef       string  `json:"corrects_invoice_ref,omitempty"`
}

// InvoiceResponse represents an invoice in API responses
type InvoiceResponse struct {
	Reference       string                `json:"reference"`
	OrderDate       string                `json:"order_date"`
	Status          string                `json:"status"`
	TotalAmount     string                `json:"total_amount"`
	IsSettlement    bool                  `json:"is_settlement"`
	CreditReference string                `json:"credit_reference,omitempty"`
	Lines           []InvoiceLineResponse `json:"lines"`
}

// SeriesResponse represents an invoice series in API responses
type SeriesResponse struct {
	Reference string            `json:"reference"`
	Payer     string            `json:"payer"`
	StartDate string            `json:"start_date"`
	EndDate   string            `json:"end_date"`
	Status    string            `json:"status"`
	Interval  string            `json:"interval"`
	Invoices  []InvoiceResponse `json:"invoices"`
}

// AmountResponse represents the ad-hoc total amount result
type AmountResponse struct {
	TotalAmount string `json:"total_amount"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   "1.0.0",
		},
	})
}

// CreateSeries handles POST /api/v1/series
func (h *Handlers) CreateSeries(c *gin.Context) {
	req, ok := h.bindSeriesRequest(c)
	if !ok {
		return
	}

	series, err := h.seriesService.CreateSeries(c.Request.Context(), req)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, Response{Success: true, Data: toSeriesResponse(series)})
}

// ReplaceSeries handles POST /api/v1/series/:reference/replace
func (h *Handlers) ReplaceSeries(c *gin.Context) {
	req, ok := h.bindSeriesRequest(c)
	if !ok {
		return
	}

	series, err := h.seriesService.ReplaceSeries(c.Request.Context(), c.Param("reference"), req)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, Response{Success: true, Data: toSeriesResponse(series)})
}

// CancelSeries handles POST /api/v1/series/:reference/cancel
func (h *Handlers) CancelSeries(c *gin.Context) {
	series, err := h.seriesService.CancelSeries(c.Request.Context(), c.Param("reference"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, Response{Success: true, Data: toSeriesResponse(series)})
}

// GetSeries handles GET /api/v1/series/:reference
func (h *Handlers) GetSeries(c *gin.Context) {
	series, err := h.seriesService.GetSeries(c.Request.Context(), c.Param("reference"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: toSeriesResponse(series)})
}

// ListSeries handles GET /api/v1/series?payer=...
func (h *Handlers) ListSeries(c *gin.Context) {
	payer := c.Query("payer")
	if err := utils.ValidatePayer(payer); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
		return
	}

	list, err := h.seriesService.ListSeries(c.Request.Context(), payer)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	responses := make([]SeriesResponse, 0, len(list))
	for _, series := range list {
		responses = append(responses, toSeriesResponse(series))
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: responses})
}

// TotalAmount handles POST /api/v1/amount
func (h *Handlers) TotalAmount(c *gin.Context) {
	req, ok := h.bindSeriesRequest(c)
	if !ok {
		return
	}

	total, err := h.seriesService.TotalAmount(c.Request.Context(), req)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: AmountResponse{TotalAmount: total.StringFixed(2)}})
}

// InvoiceFeedback handles POST /api/v1/invoices/:reference/feedback
func (h *Handlers) InvoiceFeedback(c *gin.Context) {
	var req FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	err := h.orderingService.HandleStatusFeedback(c.Request.Context(),
		c.Param("reference"), entity.InvoiceStatus(req.Status))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true})
}

// ReconciliationExport handles GET /api/v1/reconciliation
func (h *Handlers) ReconciliationExport(c *gin.Context) {
	data, err := h.exporter.Export(c.Request.Context())
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="reconciliation.xlsx"`)
	c.Data(http.StatusOK,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

// bindSeriesRequest parses and validates the series request body
func (h *Handlers) bindSeriesRequest(c *gin.Context) (service.SeriesRequest, bool) {
	var body SeriesRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return service.SeriesRequest{}, false
	}

	if err := utils.ValidatePayer(body.Payer); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
		return service.SeriesRequest{}, false
	}

	req := service.SeriesRequest{
		Payer:    body.Payer,
		Interval: entity.Interval(body.Interval),
	}

	var err error
	if req.StartDate, err = parseDate(body.StartDate); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid start_date"})
		return service.SeriesRequest{}, false
	}
	if req.EndDate, err = parseDate(body.EndDate); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid end_date"})
		return service.SeriesRequest{}, false
	}

	for _, p := range body.Periods {
		period := entity.PricedPeriod{Description: p.Description}
		if period.MonthlyPrice, err = decimal.NewFromString(p.MonthlyPrice); err != nil {
			c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid monthly_price"})
			return service.SeriesRequest{}, false
		}
		if period.StartDate, err = parseDate(p.StartDate); err != nil {
			c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid period start_date"})
			return service.SeriesRequest{}, false
		}
		if period.EndDate, err = parseDate(p.EndDate); err != nil {
			c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid period end_date"})
			return service.SeriesRequest{}, false
		}
		req.Periods = append(req.Periods, period)
	}
	return req, true
}

// writeServiceError maps service errors to HTTP status codes
func (h *Handlers) writeServiceError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrSeriesNotFound), errors.Is(err, service.ErrInvoiceNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrInvalidRequest), errors.Is(err, service.ErrUnknownStatus):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrSeriesNotActive):
		status = http.StatusConflict
	default:
		h.logger.Error("Request failed", "error", err)
	}
	c.JSON(status, Response{Success: false, Error: err.Error()})
}

func parseDate(value string) (time.Time, error) {
	return time.ParseInLocation(dateLayout, value, time.UTC)
}

func toSeriesResponse(series *entity.InvoiceSeries) SeriesResponse {
	resp := SeriesResponse{
		Reference: series.Reference,
		Payer:     series.Payer,
		StartDate: series.StartDate.Format(dateLayout),
		EndDate:   series.EndDate.Format(dateLayout),
		Status:    string(series.Status),
		Interval:  string(series.Interval),
		Invoices:  make([]InvoiceResponse, 0, len(series.Invoices)),
	}
	for _, invoice := range series.Invoices {
		resp.Invoices = append(resp.Invoices, toInvoiceResponse(invoice))
	}
	return resp
}

func toInvoiceResponse(invoice *entity.Invoice) InvoiceResponse {
	resp := InvoiceResponse{
		Reference:       invoice.Reference,
		OrderDate:       invoice.OrderDate.Format(dateLayout),
		Status:          string(invoice.Status),
		TotalAmount:     invoice.TotalAmount().StringFixed(2),
		IsSettlement:    invoice.IsSettlement(),
		CreditReference: invoice.CreditReference,
		Lines:           make([]InvoiceLineResponse, 0, len(invoice.Lines)),
	}
	for _, line := range invoice.Lines {
		resp.Lines = append(resp.Lines, toLineResponse(line))
	}
	return resp
}

func toLineResponse(line entity.InvoiceLine) InvoiceLineResponse {
	resp := InvoiceLineResponse{
		PeriodFrom:         line.PeriodFrom.Format(dateLayout),
		PeriodTo:           line.PeriodTo.Format(dateLayout),
		Description:        line.Description,
		Quantity:           line.Quantity.String(),
		UnitPrice:          line.UnitPrice.StringFixed(2),
		Amount:             line.Amount.StringFixed(2),
		CorrectsInvoiceRef: line.CorrectsInvoiceRef,
	}
	if line.SettlementPreviousAmount != nil {
		v := line.SettlementPreviousAmount.StringFixed(2)
		resp.SettlementPreviousAmount = &v
	}
	if line.SettlementNewAmount != nil {
		v := line.SettlementNewAmount.StringFixed(2)
		resp.SettlementNewAmount = &v
	}
	return resp
}
