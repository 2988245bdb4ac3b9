package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/garyjia/billing-engine/internal/application/port"
	"github.com/garyjia/billing-engine/internal/billing"
	"github.com/garyjia/billing-engine/internal/domain/entity"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

var (
	// ErrSeriesNotFound is returned when no series exists for a reference
	ErrSeriesNotFound = errors.New("invoice series not found")

	// ErrSeriesNotActive is returned when replacing a series that is already
	// cancelled, replaced or done
	ErrSeriesNotActive = errors.New("invoice series is not active")

	// ErrInvalidRequest is returned when a series request fails validation
	ErrInvalidRequest = errors.New("invalid series request")
)

// SeriesRequest is the input for creating or replacing a series
type SeriesRequest struct {
	Payer     string
	StartDate time.Time
	EndDate   time.Time
	Interval  entity.Interval
	Periods   []entity.PricedPeriod
}

// SeriesService manages invoice series
type SeriesService interface {
	CreateSeries(ctx context.Context, req SeriesRequest) (*entity.InvoiceSeries, error)
	ReplaceSeries(ctx context.Context, originalRef string, req SeriesRequest) (*entity.InvoiceSeries, error)
	CancelSeries(ctx context.Context, reference string) (*entity.InvoiceSeries, error)
	GetSeries(ctx context.Context, reference string) (*entity.InvoiceSeries, error)
	ListSeries(ctx context.Context, payer string) ([]*entity.InvoiceSeries, error)
	TotalAmount(ctx context.Context, req SeriesRequest) (decimal.Decimal, error)
}

type seriesServiceImpl struct {
	seriesRepo  port.SeriesRepository
	invoiceRepo port.InvoiceRepository
	txManager   port.TransactionManager
	builder     *billing.SeriesBuilder
	settler     *billing.SettlementEngine
	logger      Logger
}

// NewSeriesService creates a new SeriesService
func NewSeriesService(
	seriesRepo port.SeriesRepository,
	invoiceRepo port.InvoiceRepository,
	txManager port.TransactionManager,
	builder *billing.SeriesBuilder,
	settler *billing.SettlementEngine,
	logger Logger,
) SeriesService {
	return &seriesServiceImpl{
		seriesRepo:  seriesRepo,
		invoiceRepo: invoiceRepo,
		txManager:   txManager,
		builder:     builder,
		settler:     settler,
		logger:      logger,
	}
}

// CreateSeries builds and persists a new invoice series
func (s *seriesServiceImpl) CreateSeries(ctx context.Context, req SeriesRequest) (*entity.InvoiceSeries, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	s.warnOnOtherActiveSeries(ctx, req.Payer)

	invoices, err := s.builder.Build(req.StartDate, req.EndDate, req.Interval, req.Periods)
	if err != nil {
		return nil, fmt.Errorf("failed to build series: %w", err)
	}
	s.warnOnEmptyInvoices(req.Payer, invoices)

	series := &entity.InvoiceSeries{
		Reference: uuid.New().String(),
		Payer:     req.Payer,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Status:    entity.SeriesStatusCreated,
		Interval:  req.Interval,
		Invoices:  invoices,
	}

	err = s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		return s.seriesRepo.Create(ctx, series)
	})
	if err != nil {
		s.logger.Error("Failed to persist series", "error", err, "payer", req.Payer)
		return nil, fmt.Errorf("failed to create series: %w", err)
	}

	s.logger.Info("Created invoice series",
		"reference", series.Reference, "payer", series.Payer, "invoices", len(invoices))
	return series, nil
}

// ReplaceSeries replaces an active series with a revised one. Invoices of the
// old series that were already ordered stay; the replacement carries a
// settlement invoice correcting them and plans new invoices only for the
// windows they do not cover.
func (s *seriesServiceImpl) ReplaceSeries(ctx context.Context, originalRef string, req SeriesRequest) (*entity.InvoiceSeries, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	original, err := s.seriesRepo.GetByReference(ctx, originalRef)
	if err != nil {
		return nil, fmt.Errorf("failed to load series %s: %w", originalRef, err)
	}
	if original == nil {
		return nil, ErrSeriesNotFound
	}
	if !original.IsActive() {
		return nil, fmt.Errorf("series %s has status %s: %w", originalRef, original.Status, ErrSeriesNotActive)
	}

	ordered := original.OrderedInvoices()
	settlement, err := s.settler.Settle(req.Periods, ordered)
	if err != nil {
		return nil, fmt.Errorf("failed to compute settlement: %w", err)
	}

	remaining, err := s.remainingWindows(req, ordered)
	if err != nil {
		return nil, err
	}
	invoices, err := s.builder.BuildForWindows(remaining, req.Periods)
	if err != nil {
		return nil, fmt.Errorf("failed to build replacement series: %w", err)
	}
	s.warnOnEmptyInvoices(req.Payer, invoices)
	if settlement != nil {
		invoices = append(invoices, settlement)
	}

	series := &entity.InvoiceSeries{
		Reference: uuid.New().String(),
		Payer:     req.Payer,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Status:    entity.SeriesStatusCreated,
		Interval:  req.Interval,
		Invoices:  invoices,
	}

	err = s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.seriesRepo.Create(ctx, series); err != nil {
			return err
		}
		if err := s.seriesRepo.UpdateStatus(ctx, original.ID, entity.SeriesStatusReplaced); err != nil {
			return err
		}
		for _, planned := range original.PlannedInvoices() {
			if err := s.invoiceRepo.UpdateStatus(ctx, planned.ID, entity.InvoiceStatusCancelled); err != nil {
				return err
			}
			planned.Status = entity.InvoiceStatusCancelled
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to replace series", "error", err, "original", originalRef)
		return nil, fmt.Errorf("failed to replace series %s: %w", originalRef, err)
	}

	s.logger.Info("Replaced invoice series",
		"original", originalRef, "replacement", series.Reference,
		"settlement", settlement != nil, "invoices", len(invoices))
	return series, nil
}

// CancelSeries stops further billing on a series. It replaces the series with
// a zero-priced period over its whole range, so every ordered invoice is
// credited back through settlement and the remaining windows bill nothing.
func (s *seriesServiceImpl) CancelSeries(ctx context.Context, reference string) (*entity.InvoiceSeries, error) {
	series, err := s.seriesRepo.GetByReference(ctx, reference)
	if err != nil {
		return nil, fmt.Errorf("failed to load series %s: %w", reference, err)
	}
	if series == nil {
		return nil, ErrSeriesNotFound
	}

	return s.ReplaceSeries(ctx, reference, SeriesRequest{
		Payer:     series.Payer,
		StartDate: series.StartDate,
		EndDate:   series.EndDate,
		Interval:  series.Interval,
		Periods: []entity.PricedPeriod{{
			MonthlyPrice: decimal.Zero,
			StartDate:    series.StartDate,
			EndDate:      series.EndDate,
			Description:  "Cancellation",
		}},
	})
}

// GetSeries retrieves a series with its invoices
func (s *seriesServiceImpl) GetSeries(ctx context.Context, reference string) (*entity.InvoiceSeries, error) {
	series, err := s.seriesRepo.GetByReference(ctx, reference)
	if err != nil {
		return nil, fmt.Errorf("failed to load series %s: %w", reference, err)
	}
	if series == nil {
		return nil, ErrSeriesNotFound
	}
	return series, nil
}

// ListSeries retrieves all series for a payer
func (s *seriesServiceImpl) ListSeries(ctx context.Context, payer string) ([]*entity.InvoiceSeries, error) {
	list, err := s.seriesRepo.GetByPayer(ctx, payer)
	if err != nil {
		return nil, fmt.Errorf("failed to list series for payer: %w", err)
	}
	return list, nil
}

// TotalAmount computes what a series request would bill in total, without
// persisting anything
func (s *seriesServiceImpl) TotalAmount(_ context.Context, req SeriesRequest) (decimal.Decimal, error) {
	if err := validateRequest(req); err != nil {
		return decimal.Zero, err
	}
	invoices, err := s.builder.Build(req.StartDate, req.EndDate, req.Interval, req.Periods)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to build series: %w", err)
	}
	total := decimal.Zero
	for _, inv := range invoices {
		total = total.Add(inv.TotalAmount())
	}
	return total, nil
}

// remainingWindows decomposes the revised span and removes every window slice
// already billed by an ordered invoice of the old series.
func (s *seriesServiceImpl) remainingWindows(req SeriesRequest, ordered []*entity.Invoice) ([]billing.DateRange, error) {
	var windows []billing.DateRange
	if req.Interval == entity.IntervalSingle {
		windows = []billing.DateRange{{From: req.StartDate, To: req.EndDate}}
	} else {
		var err error
		windows, err = billing.Decompose(req.StartDate, req.EndDate, req.Interval)
		if err != nil {
			return nil, fmt.Errorf("failed to decompose replacement span: %w", err)
		}
	}

	var claimed []billing.DateRange
	for _, inv := range ordered {
		if len(inv.Lines) == 0 {
			continue
		}
		claimed = append(claimed, billing.DateRange{From: inv.PeriodFrom(), To: inv.PeriodTo()})
	}
	return billing.SubtractAll(windows, claimed), nil
}

func (s *seriesServiceImpl) warnOnOtherActiveSeries(ctx context.Context, payer string) {
	existing, err := s.seriesRepo.GetByPayer(ctx, payer)
	if err != nil {
		s.logger.Warn("Could not check for existing series", "error", err)
		return
	}
	for _, sr := range existing {
		if sr.IsActive() {
			s.logger.Warn("Payer already has an active series",
				"payer", payer, "existing_reference", sr.Reference)
			return
		}
	}
}

func (s *seriesServiceImpl) warnOnEmptyInvoices(payer string, invoices []*entity.Invoice) {
	for _, inv := range invoices {
		if len(inv.Lines) == 0 {
			s.logger.Warn("Invoice window has no price coverage",
				"payer", payer, "invoice_reference", inv.Reference, "order_date", inv.OrderDate)
		}
	}
}

func validateRequest(req SeriesRequest) error {
	if req.Payer == "" {
		return fmt.Errorf("payer is required: %w", ErrInvalidRequest)
	}
	if !req.Interval.Valid() {
		return fmt.Errorf("unknown interval %q: %w", req.Interval, ErrInvalidRequest)
	}
	if req.StartDate.IsZero() || req.EndDate.IsZero() || req.StartDate.After(req.EndDate) {
		return fmt.Errorf("start date must not be after end date: %w", ErrInvalidRequest)
	}
	if len(req.Periods) == 0 {
		return fmt.Errorf("at least one priced period is required: %w", ErrInvalidRequest)
	}
	for _, p := range req.Periods {
		if p.StartDate.After(p.EndDate) {
			return fmt.Errorf("priced period start after end: %w", ErrInvalidRequest)
		}
		if p.MonthlyPrice.IsNegative() {
			return fmt.Errorf("monthly price must not be negative: %w", ErrInvalidRequest)
		}
	}
	return nil
}
