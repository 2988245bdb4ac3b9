package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/garyjia/billing-engine/internal/application/port"
	"github.com/garyjia/billing-engine/internal/domain/entity"
)

var (
	// ErrInvoiceNotFound is returned when no invoice exists for a reference
	ErrInvoiceNotFound = errors.New("invoice not found")

	// ErrUnknownStatus is returned when external feedback carries a status the
	// engine does not track
	ErrUnknownStatus = errors.New("unknown invoice status")
)

// OrderingService sends due invoices to the external invoicing system and
// applies its payment feedback
type OrderingService interface {
	ProcessDueInvoices(ctx context.Context, asOf time.Time) (int, error)
	OrderInvoice(ctx context.Context, invoice *entity.Invoice) error
	HandleStatusFeedback(ctx context.Context, invoiceRef string, status entity.InvoiceStatus) error
}

type orderingServiceImpl struct {
	seriesRepo  port.SeriesRepository
	invoiceRepo port.InvoiceRepository
	producer    port.OrderProducer
	txManager   port.TransactionManager
	batchSize   int
	logger      Logger
}

// NewOrderingService creates a new OrderingService
func NewOrderingService(
	seriesRepo port.SeriesRepository,
	invoiceRepo port.InvoiceRepository,
	producer port.OrderProducer,
	txManager port.TransactionManager,
	batchSize int,
	logger Logger,
) OrderingService {
	return &orderingServiceImpl{
		seriesRepo:  seriesRepo,
		invoiceRepo: invoiceRepo,
		producer:    producer,
		txManager:   txManager,
		batchSize:   batchSize,
		logger:      logger,
	}
}

// ProcessDueInvoices orders every planned invoice whose order date has been
// reached. A failing invoice is logged and skipped so the rest of the batch
// still goes out; it is retried on the next run.
func (s *orderingServiceImpl) ProcessDueInvoices(ctx context.Context, asOf time.Time) (int, error) {
	due, err := s.invoiceRepo.GetDue(ctx, asOf, s.batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to load due invoices: %w", err)
	}

	ordered := 0
	for _, invoice := range due {
		if err := s.OrderInvoice(ctx, invoice); err != nil {
			s.logger.Error("Failed to order invoice",
				"error", err, "invoice_reference", invoice.Reference)
			continue
		}
		ordered++
	}
	if ordered > 0 {
		s.logger.Info("Ordered due invoices", "count", ordered, "as_of", asOf)
	}
	return ordered, nil
}

// OrderInvoice marks the invoice as ordered, moves its series into ordering,
// and publishes the order message, all in one transaction
func (s *orderingServiceImpl) OrderInvoice(ctx context.Context, invoice *entity.Invoice) error {
	series, err := s.seriesRepo.GetByID(ctx, invoice.SeriesID)
	if err != nil {
		return fmt.Errorf("failed to load series %d: %w", invoice.SeriesID, err)
	}
	if series == nil {
		return fmt.Errorf("series %d: %w", invoice.SeriesID, ErrSeriesNotFound)
	}

	err = s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.invoiceRepo.UpdateStatus(ctx, invoice.ID, entity.InvoiceStatusOrdered); err != nil {
			return err
		}
		if series.Status == entity.SeriesStatusCreated {
			if err := s.seriesRepo.UpdateStatus(ctx, series.ID, entity.SeriesStatusOrdering); err != nil {
				return err
			}
		}
		// A failed publish rolls the status change back; the invoice stays
		// CREATED and the next sweep picks it up again.
		return s.producer.PublishOrder(ctx, series, invoice)
	})
	if err != nil {
		return fmt.Errorf("failed to order invoice %s: %w", invoice.Reference, err)
	}
	invoice.Status = entity.InvoiceStatusOrdered

	s.logger.Info("Ordered invoice",
		"invoice_reference", invoice.Reference, "series_reference", series.Reference,
		"amount", invoice.TotalAmount().StringFixed(2))
	return nil
}

// HandleStatusFeedback applies payment feedback from the external invoicing
// system to an ordered invoice. When the last invoice of a series settles, the
// series is marked done.
func (s *orderingServiceImpl) HandleStatusFeedback(ctx context.Context, invoiceRef string, status entity.InvoiceStatus) error {
	switch status {
	case entity.InvoiceStatusInExternalSystem, entity.InvoiceStatusPaid,
		entity.InvoiceStatusPartiallyPaid, entity.InvoiceStatusMissingPayment,
		entity.InvoiceStatusFailed:
	default:
		return fmt.Errorf("status %q: %w", status, ErrUnknownStatus)
	}

	invoice, err := s.invoiceRepo.GetByReference(ctx, invoiceRef)
	if err != nil {
		return fmt.Errorf("failed to load invoice %s: %w", invoiceRef, err)
	}
	if invoice == nil {
		return fmt.Errorf("invoice %s: %w", invoiceRef, ErrInvoiceNotFound)
	}

	if err := s.invoiceRepo.UpdateStatus(ctx, invoice.ID, status); err != nil {
		return fmt.Errorf("failed to update invoice %s: %w", invoiceRef, err)
	}
	invoice.Status = status
	s.logger.Info("Applied invoice status feedback",
		"invoice_reference", invoiceRef, "status", status)

	return s.finishSeriesIfDone(ctx, invoice.SeriesID)
}

// finishSeriesIfDone marks an ordering series done once no planned invoices
// remain and every ordered invoice has reached a terminal payment state.
func (s *orderingServiceImpl) finishSeriesIfDone(ctx context.Context, seriesID int64) error {
	series, err := s.seriesRepo.GetByID(ctx, seriesID)
	if err != nil {
		return fmt.Errorf("failed to load series %d: %w", seriesID, err)
	}
	if series == nil || series.Status != entity.SeriesStatusOrdering {
		return nil
	}
	if len(series.PlannedInvoices()) > 0 {
		return nil
	}
	for _, inv := range series.Invoices {
		switch inv.Status {
		case entity.InvoiceStatusPaid, entity.InvoiceStatusCancelled, entity.InvoiceStatusFailed:
		default:
			return nil
		}
	}

	if err := s.seriesRepo.UpdateStatus(ctx, seriesID, entity.SeriesStatusDone); err != nil {
		return fmt.Errorf("failed to finish series %d: %w", seriesID, err)
	}
	s.logger.Info("Series completed", "series_reference", series.Reference)
	return nil
}
