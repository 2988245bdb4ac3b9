package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/billing-engine/internal/application/port"
	"github.com/garyjia/billing-engine/internal/domain/entity"
)

// SeriesRepository implements port.SeriesRepository
type SeriesRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSeriesRepository creates a new series repository
func NewSeriesRepository(db *sql.DB, logger *zap.Logger) port.SeriesRepository {
	return &SeriesRepository{
		db:     db,
		logger: logger,
	}
}

// Create persists a series together with its invoices and lines
func (r *SeriesRepository) Create(ctx context.Context, series *entity.InvoiceSeries) error {
	query := `
		INSERT INTO invoice_series (
			reference, payer, start_date, end_date, status, billing_interval
		) VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		series.Reference,
		series.Payer,
		series.StartDate,
		series.EndDate,
		series.Status,
		series.Interval,
	)
	if err != nil {
		r.logger.Error("Failed to create series", zap.Error(err))
		return fmt.Errorf("failed to create series: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	series.ID = id

	for _, invoice := range series.Invoices {
		invoice.SeriesID = id
		invoice.SeriesReference = series.Reference
		if err := r.createInvoice(ctx, invoice); err != nil {
			return err
		}
	}
	return nil
}

func (r *SeriesRepository) createInvoice(ctx context.Context, invoice *entity.Invoice) error {
	query := `
		INSERT INTO invoices (
			series_id, reference, order_date, status, credit_reference
		) VALUES (?, ?, ?, ?, ?)
	`

	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		invoice.SeriesID,
		invoice.Reference,
		invoice.OrderDate,
		invoice.Status,
		invoice.CreditReference,
	)
	if err != nil {
		r.logger.Error("Failed to create invoice", zap.String("reference", invoice.Reference), zap.Error(err))
		return fmt.Errorf("failed to create invoice %s: %w", invoice.Reference, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	invoice.ID = id

	lineQuery := `
		INSERT INTO invoice_lines (
			invoice_id, period_from, period_to, description, quantity,
			unit_price, amount, settlement_previous_amount,
			settlement_new_amount, corrects_invoice_ref
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	for i := range invoice.Lines {
		line := &invoice.Lines[i]
		result, err := getExecutor(ctx, r.db).ExecContext(ctx, lineQuery,
			id,
			line.PeriodFrom,
			line.PeriodTo,
			line.Description,
			line.Quantity.String(),
			line.UnitPrice.String(),
			line.Amount.String(),
			nullDecimalString(line.SettlementPreviousAmount),
			nullDecimalString(line.SettlementNewAmount),
			line.CorrectsInvoiceRef,
		)
		if err != nil {
			r.logger.Error("Failed to create invoice line", zap.Int64("invoice_id", id), zap.Error(err))
			return fmt.Errorf("failed to create invoice line: %w", err)
		}
		lineID, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert id: %w", err)
		}
		line.ID = lineID
	}
	return nil
}

// GetByID retrieves a series with its invoices by ID
func (r *SeriesRepository) GetByID(ctx context.Context, id int64) (*entity.InvoiceSeries, error) {
	return r.getOne(ctx, "id = ?", id)
}

// GetByReference retrieves a series with its invoices by its reference
func (r *SeriesRepository) GetByReference(ctx context.Context, reference string) (*entity.InvoiceSeries, error) {
	return r.getOne(ctx, "reference = ?", reference)
}

func (r *SeriesRepository) getOne(ctx context.Context, where string, arg interface{}) (*entity.InvoiceSeries, error) {
	query := `
		SELECT id, reference, payer, start_date, end_date, status,
			billing_interval, created_at
		FROM invoice_series
		WHERE ` + where

	var series entity.InvoiceSeries
	err := getExecutor(ctx, r.db).QueryRowContext(ctx, query, arg).Scan(
		&series.ID,
		&series.Reference,
		&series.Payer,
		&series.StartDate,
		&series.EndDate,
		&series.Status,
		&series.Interval,
		&series.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get series", zap.Error(err))
		return nil, fmt.Errorf("failed to get series: %w", err)
	}

	series.Invoices, err = loadInvoices(ctx, r.db, series.ID, series.Reference)
	if err != nil {
		return nil, err
	}
	return &series, nil
}

// GetByPayer retrieves all series for a payer, newest first
func (r *SeriesRepository) GetByPayer(ctx context.Context, payer string) ([]*entity.InvoiceSeries, error) {
	query := `
		SELECT id, reference, payer, start_date, end_date, status,
			billing_interval, created_at
		FROM invoice_series
		WHERE payer = ?
		ORDER BY created_at DESC, id DESC
	`

	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, payer)
	if err != nil {
		r.logger.Error("Failed to list series by payer", zap.Error(err))
		return nil, fmt.Errorf("failed to list series: %w", err)
	}
	defer rows.Close()

	var list []*entity.InvoiceSeries
	for rows.Next() {
		var series entity.InvoiceSeries
		err := rows.Scan(
			&series.ID,
			&series.Reference,
			&series.Payer,
			&series.StartDate,
			&series.EndDate,
			&series.Status,
			&series.Interval,
			&series.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan series: %w", err)
		}
		list = append(list, &series)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, series := range list {
		series.Invoices, err = loadInvoices(ctx, r.db, series.ID, series.Reference)
		if err != nil {
			return nil, err
		}
	}
	return list, nil
}

// UpdateStatus updates the series status
func (r *SeriesRepository) UpdateStatus(ctx context.Context, id int64, status entity.SeriesStatus) error {
	query := `UPDATE invoice_series SET status = ? WHERE id = ?`

	_, err := getExecutor(ctx, r.db).ExecContext(ctx, query, status, id)
	if err != nil {
		r.logger.Error("Failed to update series status", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to update series status: %w", err)
	}
	return nil
}

// Verify interface compliance
var _ port.SeriesRepository = (*SeriesRepository)(nil)
