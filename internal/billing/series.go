package billing

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/billing-engine/internal/domain/entity"
)

// BacklogPolicy controls how billing windows that lie fully in the past are
// turned into invoices.
type BacklogPolicy string

const (
	// PolicyMergeBacklog folds all past windows into the first invoice whose
	// window reaches today, so backlog is billed as one invoice.
	PolicyMergeBacklog BacklogPolicy = "MERGE_BACKLOG"

	// PolicyDeferred keeps one invoice per window and lets past windows be
	// ordered on their own schedule.
	PolicyDeferred BacklogPolicy = "DEFERRED"
)

// Valid reports whether the policy is one of the known values.
func (p BacklogPolicy) Valid() bool {
	return p == PolicyMergeBacklog || p == PolicyDeferred
}

// The external invoicing system wants quarterly orders placed on the 19th of
// the month before the quarter starts.
const orderDayOfMonth = 19

// SeriesBuilder turns a date span plus priced periods into the planned
// invoices of a series.
type SeriesBuilder struct {
	Policy BacklogPolicy
	Clock  Clock
}

// NewSeriesBuilder builds with the default merge-backlog policy.
func NewSeriesBuilder(clock Clock) *SeriesBuilder {
	return &SeriesBuilder{Policy: PolicyMergeBacklog, Clock: clock}
}

// Build decomposes [start, end] for the interval and generates one invoice per
// resulting window, subject to the backlog policy. A single-interval series
// gets exactly one invoice covering the whole span.
func (b *SeriesBuilder) Build(start, end time.Time, interval entity.Interval, periods []entity.PricedPeriod) ([]*entity.Invoice, error) {
	if len(periods) == 0 {
		return nil, ErrNoPricedPeriods
	}
	if interval == entity.IntervalSingle {
		return b.BuildForWindows([]DateRange{{From: start, To: end}}, periods)
	}
	windows, err := Decompose(start, end, interval)
	if err != nil {
		return nil, err
	}
	return b.BuildForWindows(windows, periods)
}

// BuildForWindows generates invoices for an explicit window list. Windows must
// be in chronological order. Under the merge-backlog policy, lines of windows
// that end before today accumulate onto the next invoice that is flushed; a
// trailing backlog with no future window becomes one final invoice.
func (b *SeriesBuilder) BuildForWindows(windows []DateRange, periods []entity.PricedPeriod) ([]*entity.Invoice, error) {
	today := DateOnly(b.Clock())

	var invoices []*entity.Invoice
	var pending []entity.InvoiceLine
	var pendingStart time.Time

	for _, w := range windows {
		lines, err := ResolveLines(w, periods)
		if err != nil {
			return nil, err
		}
		if len(pending) == 0 {
			pendingStart = w.From
		}
		pending = append(pending, lines...)

		if b.Policy == PolicyDeferred || !w.To.Before(today) {
			invoices = append(invoices, b.newInvoice(pendingStart, pending, today))
			pending = nil
		}
	}
	if len(pending) > 0 {
		invoices = append(invoices, b.newInvoice(pendingStart, pending, today))
	}
	return invoices, nil
}

func (b *SeriesBuilder) newInvoice(windowStart time.Time, lines []entity.InvoiceLine, today time.Time) *entity.Invoice {
	sort.SliceStable(lines, func(i, j int) bool {
		return lines[i].PeriodFrom.After(lines[j].PeriodFrom)
	})
	return &entity.Invoice{
		Reference: uuid.New().String(),
		OrderDate: OrderDate(windowStart, today),
		Status:    entity.InvoiceStatusCreated,
		Lines:     lines,
	}
}

// OrderDate returns the date an invoice for a window starting at windowStart
// should be sent for ordering. Windows already begun are ordered immediately;
// future windows are ordered on the 19th of the month before their quarter
// starts, but never before today.
func OrderDate(windowStart, today time.Time) time.Time {
	if !windowStart.After(today) {
		return today
	}
	quarterStartMonth := time.Month(((int(windowStart.Month())-1)/3)*3 + 1)
	orderDate := Date(windowStart.Year(), quarterStartMonth-1, orderDayOfMonth)
	if orderDate.Before(today) {
		return today
	}
	return orderDate
}
