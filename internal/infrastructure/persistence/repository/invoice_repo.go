package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/garyjia/billing-engine/internal/application/port"
	"github.com/garyjia/billing-engine/internal/domain/entity"
)

// InvoiceRepository implements port.InvoiceRepository
type InvoiceRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewInvoiceRepository creates a new invoice repository
func NewInvoiceRepository(db *sql.DB, logger *zap.Logger) port.InvoiceRepository {
	return &InvoiceRepository{
		db:     db,
		logger: logger,
	}
}

const invoiceColumns = `
	i.id, i.series_id, s.reference, i.reference, i.order_date, i.status,
	i.credit_reference, i.created_at
`

// GetByReference retrieves an invoice with its lines by its reference
func (r *InvoiceRepository) GetByReference(ctx context.Context, reference string) (*entity.Invoice, error) {
	query := `
		SELECT ` + invoiceColumns + `
		FROM invoices i
		JOIN invoice_series s ON s.id = i.series_id
		WHERE i.reference = ?
	`

	var invoice entity.Invoice
	err := getExecutor(ctx, r.db).QueryRowContext(ctx, query, reference).Scan(
		&invoice.ID,
		&invoice.SeriesID,
		&invoice.SeriesReference,
		&invoice.Reference,
		&invoice.OrderDate,
		&invoice.Status,
		&invoice.CreditReference,
		&invoice.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get invoice", zap.String("reference", reference), zap.Error(err))
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}

	invoice.Lines, err = loadLines(ctx, r.db, invoice.ID)
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

// GetDue retrieves planned invoices whose order date has been reached
func (r *InvoiceRepository) GetDue(ctx context.Context, asOf time.Time, limit int) ([]*entity.Invoice, error) {
	query := `
		SELECT ` + invoiceColumns + `
		FROM invoices i
		JOIN invoice_series s ON s.id = i.series_id
		WHERE i.status = ? AND i.order_date <= ?
		ORDER BY i.order_date, i.id
		LIMIT ?
	`

	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, entity.InvoiceStatusCreated, asOf, limit)
	if err != nil {
		r.logger.Error("Failed to get due invoices", zap.Error(err))
		return nil, fmt.Errorf("failed to get due invoices: %w", err)
	}
	defer rows.Close()

	invoices, err := scanInvoices(rows)
	if err != nil {
		return nil, err
	}
	for _, invoice := range invoices {
		invoice.Lines, err = loadLines(ctx, r.db, invoice.ID)
		if err != nil {
			return nil, err
		}
	}
	return invoices, nil
}

// GetOrdered retrieves every invoice sent for ordering, for reconciliation
func (r *InvoiceRepository) GetOrdered(ctx context.Context) ([]port.ReconciliationRow, error) {
	query := `
		SELECT ` + invoiceColumns + `, s.payer
		FROM invoices i
		JOIN invoice_series s ON s.id = i.series_id
		WHERE i.status IN (?, ?, ?, ?, ?)
		ORDER BY i.order_date, i.id
	`

	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query,
		entity.InvoiceStatusOrdered,
		entity.InvoiceStatusPaid,
		entity.InvoiceStatusPartiallyPaid,
		entity.InvoiceStatusInExternalSystem,
		entity.InvoiceStatusMissingPayment,
	)
	if err != nil {
		r.logger.Error("Failed to get ordered invoices", zap.Error(err))
		return nil, fmt.Errorf("failed to get ordered invoices: %w", err)
	}
	defer rows.Close()

	var result []port.ReconciliationRow
	var ids []int64
	for rows.Next() {
		var invoice entity.Invoice
		var payer string
		err := rows.Scan(
			&invoice.ID,
			&invoice.SeriesID,
			&invoice.SeriesReference,
			&invoice.Reference,
			&invoice.OrderDate,
			&invoice.Status,
			&invoice.CreditReference,
			&invoice.CreatedAt,
			&payer,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		result = append(result, port.ReconciliationRow{
			Payer:            payer,
			SeriesReference:  invoice.SeriesReference,
			InvoiceReference: invoice.Reference,
			OrderDate:        invoice.OrderDate,
			Status:           invoice.Status,
		})
		ids = append(ids, invoice.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Decimal amounts live as text; totals are summed here rather than in SQL.
	for idx, id := range ids {
		lines, err := loadLines(ctx, r.db, id)
		if err != nil {
			return nil, err
		}
		total := decimal.Zero
		for _, line := range lines {
			total = total.Add(line.Amount)
		}
		result[idx].Total = total
	}
	return result, nil
}

// UpdateStatus updates the invoice status
func (r *InvoiceRepository) UpdateStatus(ctx context.Context, id int64, status entity.InvoiceStatus) error {
	query := `UPDATE invoices SET status = ? WHERE id = ?`

	_, err := getExecutor(ctx, r.db).ExecContext(ctx, query, status, id)
	if err != nil {
		r.logger.Error("Failed to update invoice status", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to update invoice status: %w", err)
	}
	return nil
}

// loadInvoices loads all invoices of a series with their lines, latest order
// date first
func loadInvoices(ctx context.Context, db *sql.DB, seriesID int64, seriesRef string) ([]*entity.Invoice, error) {
	query := `
		SELECT i.id, i.series_id, i.reference, i.order_date, i.status,
			i.credit_reference, i.created_at
		FROM invoices i
		WHERE i.series_id = ?
		ORDER BY i.order_date, i.id
	`

	rows, err := getExecutor(ctx, db).QueryContext(ctx, query, seriesID)
	if err != nil {
		return nil, fmt.Errorf("failed to load invoices: %w", err)
	}
	defer rows.Close()

	var invoices []*entity.Invoice
	for rows.Next() {
		var invoice entity.Invoice
		err := rows.Scan(
			&invoice.ID,
			&invoice.SeriesID,
			&invoice.Reference,
			&invoice.OrderDate,
			&invoice.Status,
			&invoice.CreditReference,
			&invoice.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		invoice.SeriesReference = seriesRef
		invoices = append(invoices, &invoice)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, invoice := range invoices {
		invoice.Lines, err = loadLines(ctx, db, invoice.ID)
		if err != nil {
			return nil, err
		}
	}
	return invoices, nil
}

func scanInvoices(rows *sql.Rows) ([]*entity.Invoice, error) {
	var invoices []*entity.Invoice
	for rows.Next() {
		var invoice entity.Invoice
		err := rows.Scan(
			&invoice.ID,
			&invoice.SeriesID,
			&invoice.SeriesReference,
			&invoice.Reference,
			&invoice.OrderDate,
			&invoice.Status,
			&invoice.CreditReference,
			&invoice.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		invoices = append(invoices, &invoice)
	}
	return invoices, rows.Err()
}

// loadLines loads the lines of one invoice
func loadLines(ctx context.Context, db *sql.DB, invoiceID int64) ([]entity.InvoiceLine, error) {
	query := `
		SELECT id, period_from, period_to, description, quantity, unit_price,
			amount, settlement_previous_amount, settlement_new_amount,
			corrects_invoice_ref
		FROM invoice_lines
		WHERE invoice_id = ?
		ORDER BY period_from DESC, id
	`

	rows, err := getExecutor(ctx, db).QueryContext(ctx, query, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load invoice lines: %w", err)
	}
	defer rows.Close()

	var lines []entity.InvoiceLine
	for rows.Next() {
		var line entity.InvoiceLine
		var quantity, unitPrice, amount string
		var settlementPrevious, settlementNew sql.NullString

		err := rows.Scan(
			&line.ID,
			&line.PeriodFrom,
			&line.PeriodTo,
			&line.Description,
			&quantity,
			&unitPrice,
			&amount,
			&settlementPrevious,
			&settlementNew,
			&line.CorrectsInvoiceRef,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invoice line: %w", err)
		}

		if line.Quantity, err = decimal.NewFromString(quantity); err != nil {
			return nil, fmt.Errorf("invalid quantity %q: %w", quantity, err)
		}
		if line.UnitPrice, err = decimal.NewFromString(unitPrice); err != nil {
			return nil, fmt.Errorf("invalid unit price %q: %w", unitPrice, err)
		}
		if line.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("invalid amount %q: %w", amount, err)
		}
		if line.SettlementPreviousAmount, err = nullDecimal(settlementPrevious); err != nil {
			return nil, err
		}
		if line.SettlementNewAmount, err = nullDecimal(settlementNew); err != nil {
			return nil, err
		}

		lines = append(lines, line)
	}
	return lines, rows.Err()
}

func nullDecimal(ns sql.NullString) (*decimal.Decimal, error) {
	if !ns.Valid {
		return nil, nil
	}
	d, err := decimal.NewFromString(ns.String)
	if err != nil {
		return nil, fmt.Errorf("invalid settlement amount %q: %w", ns.String, err)
	}
	return &d, nil
}

func nullDecimalString(d *decimal.Decimal) interface{} {
	if d == nil {
		return nil
	}
	return d.String()
}

// Verify interface compliance
var _ port.InvoiceRepository = (*InvoiceRepository)(nil)
