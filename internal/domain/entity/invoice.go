package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceLine is one line of an invoice, covering the clipped intersection of
// a priced period with a billing window. Settlement lines additionally carry
// the previously billed and recomputed amounts plus a reference to the
// invoice they correct.
type InvoiceLine struct {
	ID          int64           `json:"id"`
	PeriodFrom  time.Time       `json:"period_from"`
	PeriodTo    time.Time       `json:"period_to"` // inclusive
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"` // month equivalent, 2 decimals
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Amount      decimal.Decimal `json:"amount"`

	// Settlement metadata. Both are set when the line adjusts an earlier
	// invoice; PreviousAmount is what was billed before, NewAmount the
	// recomputed total the adjustment settles to. A later settlement compares
	// against NewAmount, never against the pre-settlement original.
	SettlementPreviousAmount *decimal.Decimal `json:"settlement_previous_amount,omitempty"`
	SettlementNewAmount      *decimal.Decimal `json:"settlement_new_amount,omitempty"`
	CorrectsInvoiceRef       string           `json:"corrects_invoice_ref,omitempty"`
}

// IsSettlementLine reports whether the line is an adjustment of an earlier
// invoice.
func (l InvoiceLine) IsSettlementLine() bool {
	return l.SettlementNewAmount != nil
}

// Invoice is one invoice of a series, tied to one billing window.
type Invoice struct {
	ID              int64         `json:"id"`
	SeriesID        int64         `json:"series_id"`
	SeriesReference string        `json:"series_reference,omitempty"`
	Reference       string        `json:"reference"`
	OrderDate       time.Time     `json:"order_date"`
	Status          InvoiceStatus `json:"status"`
	Lines           []InvoiceLine `json:"lines"`

	// CreditReference points at the first non-settlement invoice of a
	// correction chain when this invoice is a settlement invoice.
	CreditReference string    `json:"credit_reference,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// PeriodFrom returns the earliest line period start, or the zero time for an
// invoice without lines.
func (f *Invoice) PeriodFrom() time.Time {
	var min time.Time
	for _, l := range f.Lines {
		if min.IsZero() || l.PeriodFrom.Before(min) {
			min = l.PeriodFrom
		}
	}
	return min
}

// PeriodTo returns the latest line period end, or the zero time for an
// invoice without lines.
func (f *Invoice) PeriodTo() time.Time {
	var max time.Time
	for _, l := range f.Lines {
		if l.PeriodTo.After(max) {
			max = l.PeriodTo
		}
	}
	return max
}

// TotalAmount sums the line amounts.
func (f *Invoice) TotalAmount() decimal.Decimal {
	total := decimal.Zero
	for _, l := range f.Lines {
		total = total.Add(l.Amount)
	}
	return total
}

// IsSettlement reports whether the invoice adjusts earlier invoices rather
// than billing a window of its own.
func (f *Invoice) IsSettlement() bool {
	for _, l := range f.Lines {
		if l.IsSettlementLine() {
			return true
		}
	}
	return false
}

// IsOrdered reports whether the invoice was sent for ordering, in any of the
// post-order states reported back by the external invoicing system.
func (f *Invoice) IsOrdered() bool {
	switch f.Status {
	case InvoiceStatusOrdered, InvoiceStatusPaid, InvoiceStatusPartiallyPaid,
		InvoiceStatusInExternalSystem, InvoiceStatusMissingPayment:
		return true
	}
	return false
}
