package port

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/garyjia/billing-engine/internal/domain/entity"
)

// SeriesRepository defines persistence operations for InvoiceSeries
type SeriesRepository interface {
	// Create persists a series together with its invoices and lines
	Create(ctx context.Context, series *entity.InvoiceSeries) error

	// GetByID retrieves a series with its invoices by ID
	GetByID(ctx context.Context, id int64) (*entity.InvoiceSeries, error)

	// GetByReference retrieves a series with its invoices by its reference
	GetByReference(ctx context.Context, reference string) (*entity.InvoiceSeries, error)

	// GetByPayer retrieves all series for a payer, newest first
	GetByPayer(ctx context.Context, payer string) ([]*entity.InvoiceSeries, error)

	// UpdateStatus updates the series status
	UpdateStatus(ctx context.Context, id int64, status entity.SeriesStatus) error
}

// ReconciliationRow is one ordered invoice with its payer and billed total
type ReconciliationRow struct {
	Payer            string               `json:"payer"`
	SeriesReference  string               `json:"series_reference"`
	InvoiceReference string               `json:"invoice_reference"`
	OrderDate        time.Time            `json:"order_date"`
	Status           entity.InvoiceStatus `json:"status"`
	Total            decimal.Decimal      `json:"total"`
}

// InvoiceRepository defines persistence operations for Invoice
type InvoiceRepository interface {
	// GetByReference retrieves an invoice with its lines by its reference
	GetByReference(ctx context.Context, reference string) (*entity.Invoice, error)

	// GetDue retrieves planned invoices whose order date has been reached
	GetDue(ctx context.Context, asOf time.Time, limit int) ([]*entity.Invoice, error)

	// GetOrdered retrieves every invoice sent for ordering, for reconciliation
	GetOrdered(ctx context.Context) ([]ReconciliationRow, error)

	// UpdateStatus updates the invoice status
	UpdateStatus(ctx context.Context, id int64, status entity.InvoiceStatus) error
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
