package entity

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func TestInvoicePeriodSpan(t *testing.T) {
	invoice := &Invoice{
		Lines: []InvoiceLine{
			{PeriodFrom: day(2024, 3, 1), PeriodTo: day(2024, 3, 31)},
			{PeriodFrom: day(2024, 1, 1), PeriodTo: day(2024, 1, 31)},
			{PeriodFrom: day(2024, 2, 1), PeriodTo: day(2024, 2, 29)},
		},
	}

	assert.Equal(t, day(2024, 1, 1), invoice.PeriodFrom())
	assert.Equal(t, day(2024, 3, 31), invoice.PeriodTo())
}

func TestInvoicePeriodSpan_NoLines(t *testing.T) {
	invoice := &Invoice{}
	assert.True(t, invoice.PeriodFrom().IsZero())
	assert.True(t, invoice.PeriodTo().IsZero())
}

func TestInvoiceTotalAmount(t *testing.T) {
	invoice := &Invoice{
		Lines: []InvoiceLine{
			{Amount: decimal.RequireFromString("1000.50")},
			{Amount: decimal.RequireFromString("-200.25")},
		},
	}
	assert.Equal(t, "800.25", invoice.TotalAmount().StringFixed(2))
}

func TestInvoiceIsSettlement(t *testing.T) {
	newAmount := decimal.NewFromInt(100)
	assert.False(t, (&Invoice{Lines: []InvoiceLine{{}}}).IsSettlement())
	assert.True(t, (&Invoice{Lines: []InvoiceLine{{SettlementNewAmount: &newAmount}}}).IsSettlement())
}

func TestInvoiceIsOrdered(t *testing.T) {
	tests := []struct {
		status  InvoiceStatus
		ordered bool
	}{
		{InvoiceStatusCreated, false},
		{InvoiceStatusCancelled, false},
		{InvoiceStatusOrdered, true},
		{InvoiceStatusPaid, true},
		{InvoiceStatusPartiallyPaid, true},
		{InvoiceStatusInExternalSystem, true},
		{InvoiceStatusMissingPayment, true},
		{InvoiceStatusFailed, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.ordered, (&Invoice{Status: tt.status}).IsOrdered(), string(tt.status))
	}
}

func TestSeriesInvoiceFiltering(t *testing.T) {
	series := &InvoiceSeries{
		Invoices: []*Invoice{
			{Reference: "a", Status: InvoiceStatusCreated},
			{Reference: "b", Status: InvoiceStatusOrdered},
			{Reference: "c", Status: InvoiceStatusCancelled},
			{Reference: "d", Status: InvoiceStatusPaid},
		},
	}

	planned := series.PlannedInvoices()
	assert.Len(t, planned, 1)
	assert.Equal(t, "a", planned[0].Reference)

	ordered := series.OrderedInvoices()
	assert.Len(t, ordered, 2)
}

func TestSeriesIsActive(t *testing.T) {
	assert.True(t, (&InvoiceSeries{Status: SeriesStatusCreated}).IsActive())
	assert.True(t, (&InvoiceSeries{Status: SeriesStatusOrdering}).IsActive())
	assert.False(t, (&InvoiceSeries{Status: SeriesStatusReplaced}).IsActive())
	assert.False(t, (&InvoiceSeries{Status: SeriesStatusCancelled}).IsActive())
	assert.False(t, (&InvoiceSeries{Status: SeriesStatusDone}).IsActive())
}
