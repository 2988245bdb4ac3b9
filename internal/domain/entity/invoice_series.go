package entity

import "time"

// InvoiceSeries is the full billing schedule for one case and payer over a
// date span. The clipped periods of its invoices are contiguous and
// non-overlapping, exactly covering [StartDate, EndDate].
type InvoiceSeries struct {
	ID        int64        `json:"id"`
	Reference string       `json:"reference"`
	Payer     string       `json:"payer"`
	StartDate time.Time    `json:"start_date"`
	EndDate   time.Time    `json:"end_date"`
	Status    SeriesStatus `json:"status"`
	Interval  Interval     `json:"interval"`
	Invoices  []*Invoice   `json:"invoices"`
	CreatedAt time.Time    `json:"created_at"`
}

// IsActive reports whether the series can still be ordered from or replaced.
func (s *InvoiceSeries) IsActive() bool {
	switch s.Status {
	case SeriesStatusCreated, SeriesStatusOrdering:
		return true
	}
	return false
}

// PlannedInvoices returns the invoices not yet sent for ordering.
func (s *InvoiceSeries) PlannedInvoices() []*Invoice {
	var planned []*Invoice
	for _, f := range s.Invoices {
		if f.Status == InvoiceStatusCreated {
			planned = append(planned, f)
		}
	}
	return planned
}

// OrderedInvoices returns the invoices already sent for ordering. These stand
// even when the series is replaced; corrections happen through settlement
// invoices in the replacing series.
func (s *InvoiceSeries) OrderedInvoices() []*Invoice {
	var ordered []*Invoice
	for _, f := range s.Invoices {
		if f.IsOrdered() {
			ordered = append(ordered, f)
		}
	}
	return ordered
}
