package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/billing-engine/internal/application/port"
	"github.com/garyjia/billing-engine/internal/billing"
	"github.com/garyjia/billing-engine/internal/domain/entity"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

type mockSeriesRepo struct {
	createFunc         func(ctx context.Context, series *entity.InvoiceSeries) error
	getByIDFunc        func(ctx context.Context, id int64) (*entity.InvoiceSeries, error)
	getByReferenceFunc func(ctx context.Context, reference string) (*entity.InvoiceSeries, error)
	getByPayerFunc     func(ctx context.Context, payer string) ([]*entity.InvoiceSeries, error)
	updateStatusFunc   func(ctx context.Context, id int64, status entity.SeriesStatus) error
}

func (m *mockSeriesRepo) Create(ctx context.Context, series *entity.InvoiceSeries) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, series)
	}
	series.ID = 1
	return nil
}

func (m *mockSeriesRepo) GetByID(ctx context.Context, id int64) (*entity.InvoiceSeries, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockSeriesRepo) GetByReference(ctx context.Context, reference string) (*entity.InvoiceSeries, error) {
	if m.getByReferenceFunc != nil {
		return m.getByReferenceFunc(ctx, reference)
	}
	return nil, nil
}

func (m *mockSeriesRepo) GetByPayer(ctx context.Context, payer string) ([]*entity.InvoiceSeries, error) {
	if m.getByPayerFunc != nil {
		return m.getByPayerFunc(ctx, payer)
	}
	return nil, nil
}

func (m *mockSeriesRepo) UpdateStatus(ctx context.Context, id int64, status entity.SeriesStatus) error {
	if m.updateStatusFunc != nil {
		return m.updateStatusFunc(ctx, id, status)
	}
	return nil
}

type mockInvoiceRepo struct {
	getByReferenceFunc func(ctx context.Context, reference string) (*entity.Invoice, error)
	getDueFunc         func(ctx context.Context, asOf time.Time, limit int) ([]*entity.Invoice, error)
	getOrderedFunc     func(ctx context.Context) ([]port.ReconciliationRow, error)
	updateStatusFunc   func(ctx context.Context, id int64, status entity.InvoiceStatus) error
}

func (m *mockInvoiceRepo) GetByReference(ctx context.Context, reference string) (*entity.Invoice, error) {
	if m.getByReferenceFunc != nil {
		return m.getByReferenceFunc(ctx, reference)
	}
	return nil, nil
}

func (m *mockInvoiceRepo) GetDue(ctx context.Context, asOf time.Time, limit int) ([]*entity.Invoice, error) {
	if m.getDueFunc != nil {
		return m.getDueFunc(ctx, asOf, limit)
	}
	return nil, nil
}

func (m *mockInvoiceRepo) GetOrdered(ctx context.Context) ([]port.ReconciliationRow, error) {
	if m.getOrderedFunc != nil {
		return m.getOrderedFunc(ctx)
	}
	return nil, nil
}

func (m *mockInvoiceRepo) UpdateStatus(ctx context.Context, id int64, status entity.InvoiceStatus) error {
	if m.updateStatusFunc != nil {
		return m.updateStatusFunc(ctx, id, status)
	}
	return nil
}

type passthroughTxManager struct{}

func (passthroughTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func validRequest() SeriesRequest {
	return SeriesRequest{
		Payer:     "12345678903",
		StartDate: date(2024, 1, 1),
		EndDate:   date(2024, 12, 31),
		Interval:  entity.IntervalQuarterly,
		Periods: []entity.PricedPeriod{{
			MonthlyPrice: decimal.NewFromInt(1000),
			StartDate:    date(2024, 1, 1),
			EndDate:      date(2024, 12, 31),
			Description:  "Service fee",
		}},
	}
}

func newTestSeriesService(seriesRepo *mockSeriesRepo, invoiceRepo *mockInvoiceRepo, today time.Time) SeriesService {
	clock := billing.FixedClock(today)
	return NewSeriesService(
		seriesRepo,
		invoiceRepo,
		passthroughTxManager{},
		billing.NewSeriesBuilder(clock),
		billing.NewSettlementEngine(clock),
		nopLogger{},
	)
}

func TestCreateSeries(t *testing.T) {
	var persisted *entity.InvoiceSeries
	seriesRepo := &mockSeriesRepo{
		createFunc: func(_ context.Context, series *entity.InvoiceSeries) error {
			series.ID = 42
			persisted = series
			return nil
		},
	}
	svc := newTestSeriesService(seriesRepo, &mockInvoiceRepo{}, date(2024, 1, 1))

	series, err := svc.CreateSeries(context.Background(), validRequest())
	require.NoError(t, err)

	assert.Equal(t, int64(42), series.ID)
	assert.NotEmpty(t, series.Reference)
	assert.Equal(t, entity.SeriesStatusCreated, series.Status)
	require.Len(t, series.Invoices, 4)
	assert.Equal(t, "12000.00", totalOf(series).StringFixed(2))
	assert.Same(t, series, persisted)
}

func TestCreateSeries_Validation(t *testing.T) {
	svc := newTestSeriesService(&mockSeriesRepo{}, &mockInvoiceRepo{}, date(2024, 1, 1))

	tests := []struct {
		name   string
		mutate func(*SeriesRequest)
	}{
		{"missing payer", func(r *SeriesRequest) { r.Payer = "" }},
		{"bad interval", func(r *SeriesRequest) { r.Interval = "WEEKLY" }},
		{"inverted span", func(r *SeriesRequest) { r.StartDate, r.EndDate = r.EndDate, r.StartDate }},
		{"no periods", func(r *SeriesRequest) { r.Periods = nil }},
		{"negative price", func(r *SeriesRequest) { r.Periods[0].MonthlyPrice = decimal.NewFromInt(-1) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)
			_, err := svc.CreateSeries(context.Background(), req)
			assert.ErrorIs(t, err, ErrInvalidRequest)
		})
	}
}

func TestReplaceSeries_NotFound(t *testing.T) {
	svc := newTestSeriesService(&mockSeriesRepo{}, &mockInvoiceRepo{}, date(2024, 1, 1))

	_, err := svc.ReplaceSeries(context.Background(), "missing", validRequest())
	assert.ErrorIs(t, err, ErrSeriesNotFound)
}

func TestReplaceSeries_NotActive(t *testing.T) {
	seriesRepo := &mockSeriesRepo{
		getByReferenceFunc: func(_ context.Context, _ string) (*entity.InvoiceSeries, error) {
			return &entity.InvoiceSeries{ID: 1, Status: entity.SeriesStatusReplaced}, nil
		},
	}
	svc := newTestSeriesService(seriesRepo, &mockInvoiceRepo{}, date(2024, 1, 1))

	_, err := svc.ReplaceSeries(context.Background(), "old", validRequest())
	assert.ErrorIs(t, err, ErrSeriesNotActive)
}

func TestReplaceSeries_SettlesOrderedAndCancelsPlanned(t *testing.T) {
	today := date(2024, 4, 10)

	q1Quantity := billing.MonthEquivalent(date(2024, 1, 1), date(2024, 3, 31))
	old := &entity.InvoiceSeries{
		ID:        7,
		Reference: "old-series",
		Payer:     "12345678903",
		StartDate: date(2024, 1, 1),
		EndDate:   date(2024, 12, 31),
		Status:    entity.SeriesStatusOrdering,
		Interval:  entity.IntervalQuarterly,
		Invoices: []*entity.Invoice{
			{
				ID:        1,
				Reference: "inv-q1",
				Status:    entity.InvoiceStatusOrdered,
				Lines: []entity.InvoiceLine{{
					PeriodFrom: date(2024, 1, 1),
					PeriodTo:   date(2024, 3, 31),
					Quantity:   q1Quantity,
					UnitPrice:  decimal.NewFromInt(1000),
					Amount:     decimal.NewFromInt(1000).Mul(q1Quantity).Round(2),
				}},
			},
			{ID: 2, Reference: "inv-q2", Status: entity.InvoiceStatusCreated},
		},
	}

	var statusUpdates []entity.SeriesStatus
	seriesRepo := &mockSeriesRepo{
		getByReferenceFunc: func(_ context.Context, ref string) (*entity.InvoiceSeries, error) {
			require.Equal(t, "old-series", ref)
			return old, nil
		},
		updateStatusFunc: func(_ context.Context, id int64, status entity.SeriesStatus) error {
			require.Equal(t, int64(7), id)
			statusUpdates = append(statusUpdates, status)
			return nil
		},
	}
	var cancelled []int64
	invoiceRepo := &mockInvoiceRepo{
		updateStatusFunc: func(_ context.Context, id int64, status entity.InvoiceStatus) error {
			require.Equal(t, entity.InvoiceStatusCancelled, status)
			cancelled = append(cancelled, id)
			return nil
		},
	}
	svc := newTestSeriesService(seriesRepo, invoiceRepo, today)

	req := validRequest()
	req.Periods[0].MonthlyPrice = decimal.NewFromInt(1500)

	replacement, err := svc.ReplaceSeries(context.Background(), "old-series", req)
	require.NoError(t, err)

	assert.Equal(t, []entity.SeriesStatus{entity.SeriesStatusReplaced}, statusUpdates)
	assert.Equal(t, []int64{2}, cancelled)

	// Q2-Q4 are rebuilt at the new price; Q1 is corrected by a settlement
	// invoice instead of being billed again.
	require.Len(t, replacement.Invoices, 4)

	settlement := replacement.Invoices[len(replacement.Invoices)-1]
	assert.True(t, settlement.IsSettlement())
	require.Len(t, settlement.Lines, 1)
	assert.Equal(t, "inv-q1", settlement.Lines[0].CorrectsInvoiceRef)
	assert.Equal(t, "3000.00", settlement.Lines[0].SettlementPreviousAmount.StringFixed(2))
	assert.Equal(t, "4500.00", settlement.Lines[0].SettlementNewAmount.StringFixed(2))
	assert.Equal(t, "1500.00", settlement.Lines[0].Amount.StringFixed(2))

	for _, inv := range replacement.Invoices[:3] {
		assert.False(t, inv.IsSettlement())
		assert.False(t, inv.PeriodFrom().Before(date(2024, 4, 1)))
	}
}

func TestReplaceSeries_NoOrderedInvoicesNoSettlement(t *testing.T) {
	old := &entity.InvoiceSeries{
		ID:        3,
		Reference: "old-series",
		Status:    entity.SeriesStatusCreated,
		Invoices: []*entity.Invoice{
			{ID: 1, Reference: "inv-1", Status: entity.InvoiceStatusCreated},
		},
	}
	seriesRepo := &mockSeriesRepo{
		getByReferenceFunc: func(_ context.Context, _ string) (*entity.InvoiceSeries, error) {
			return old, nil
		},
	}
	svc := newTestSeriesService(seriesRepo, &mockInvoiceRepo{}, date(2024, 1, 1))

	replacement, err := svc.ReplaceSeries(context.Background(), "old-series", validRequest())
	require.NoError(t, err)

	require.Len(t, replacement.Invoices, 4)
	for _, inv := range replacement.Invoices {
		assert.False(t, inv.IsSettlement())
	}
}

func TestCancelSeries_CreditsOrderedAndStopsBilling(t *testing.T) {
	today := date(2024, 4, 10)

	q1Quantity := billing.MonthEquivalent(date(2024, 1, 1), date(2024, 3, 31))
	old := &entity.InvoiceSeries{
		ID:        7,
		Reference: "old-series",
		Payer:     "12345678903",
		StartDate: date(2024, 1, 1),
		EndDate:   date(2024, 12, 31),
		Status:    entity.SeriesStatusOrdering,
		Interval:  entity.IntervalQuarterly,
		Invoices: []*entity.Invoice{
			{
				ID:        1,
				Reference: "inv-q1",
				Status:    entity.InvoiceStatusOrdered,
				Lines: []entity.InvoiceLine{{
					PeriodFrom: date(2024, 1, 1),
					PeriodTo:   date(2024, 3, 31),
					Quantity:   q1Quantity,
					UnitPrice:  decimal.NewFromInt(1000),
					Amount:     decimal.NewFromInt(1000).Mul(q1Quantity).Round(2),
				}},
			},
			{ID: 2, Reference: "inv-q2", Status: entity.InvoiceStatusCreated},
		},
	}

	var statusUpdates []entity.SeriesStatus
	seriesRepo := &mockSeriesRepo{
		getByReferenceFunc: func(_ context.Context, ref string) (*entity.InvoiceSeries, error) {
			require.Equal(t, "old-series", ref)
			return old, nil
		},
		updateStatusFunc: func(_ context.Context, id int64, status entity.SeriesStatus) error {
			require.Equal(t, int64(7), id)
			statusUpdates = append(statusUpdates, status)
			return nil
		},
	}
	var cancelled []int64
	invoiceRepo := &mockInvoiceRepo{
		updateStatusFunc: func(_ context.Context, id int64, status entity.InvoiceStatus) error {
			require.Equal(t, entity.InvoiceStatusCancelled, status)
			cancelled = append(cancelled, id)
			return nil
		},
	}
	svc := newTestSeriesService(seriesRepo, invoiceRepo, today)

	replacement, err := svc.CancelSeries(context.Background(), "old-series")
	require.NoError(t, err)

	assert.Equal(t, []entity.SeriesStatus{entity.SeriesStatusReplaced}, statusUpdates)
	assert.Equal(t, []int64{2}, cancelled)

	// The ordered Q1 invoice is credited back in full; the rebuilt windows
	// carry a zero price and bill nothing.
	settlement := replacement.Invoices[len(replacement.Invoices)-1]
	require.True(t, settlement.IsSettlement())
	require.Len(t, settlement.Lines, 1)
	assert.Equal(t, "inv-q1", settlement.Lines[0].CorrectsInvoiceRef)
	assert.Equal(t, "3000.00", settlement.Lines[0].SettlementPreviousAmount.StringFixed(2))
	assert.Equal(t, "0.00", settlement.Lines[0].SettlementNewAmount.StringFixed(2))
	assert.Equal(t, "-3000.00", settlement.Lines[0].Amount.StringFixed(2))

	for _, inv := range replacement.Invoices[:len(replacement.Invoices)-1] {
		assert.False(t, inv.IsSettlement())
		assert.Equal(t, "0.00", inv.TotalAmount().StringFixed(2))
	}
}

func TestCancelSeries_NotFound(t *testing.T) {
	svc := newTestSeriesService(&mockSeriesRepo{}, &mockInvoiceRepo{}, date(2024, 1, 1))

	_, err := svc.CancelSeries(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrSeriesNotFound)
}

func TestTotalAmount(t *testing.T) {
	svc := newTestSeriesService(&mockSeriesRepo{}, &mockInvoiceRepo{}, date(2024, 1, 1))

	total, err := svc.TotalAmount(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, "12000.00", total.StringFixed(2))
}

func totalOf(series *entity.InvoiceSeries) decimal.Decimal {
	total := decimal.Zero
	for _, inv := range series.Invoices {
		total = total.Add(inv.TotalAmount())
	}
	return total
}
