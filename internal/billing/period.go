package billing

import (
	"time"

	"github.com/garyjia/billing-engine/internal/domain/entity"
)

// DateRange is a closed range of dates; both ends are inclusive.
type DateRange struct {
	From time.Time
	To   time.Time
}

// Overlaps reports whether two closed ranges share at least one day.
func (r DateRange) Overlaps(other DateRange) bool {
	return !r.From.After(other.To) && !r.To.Before(other.From)
}

// Encloses reports whether the range fully contains the other.
func (r DateRange) Encloses(other DateRange) bool {
	return !r.From.After(other.From) && !r.To.Before(other.To)
}

// Decompose splits [start, end] into contiguous billing windows. Interior
// windows align to calendar month or quarter boundaries; the first window
// starts at start and the last ends at end. An empty slice is returned when
// start is after end.
func Decompose(start, end time.Time, interval entity.Interval) ([]DateRange, error) {
	if interval != entity.IntervalMonthly && interval != entity.IntervalQuarterly {
		return nil, ErrInvalidInterval
	}

	var windows []DateRange
	for cur := start; !cur.After(end); {
		windowEnd := windowEndFor(cur, interval)
		if windowEnd.After(end) {
			windowEnd = end
		}
		windows = append(windows, DateRange{From: cur, To: windowEnd})
		cur = windowEnd.AddDate(0, 0, 1)
	}
	return windows, nil
}

// Difference returns the parts of a not covered by b: zero, one or two
// sub-ranges.
func Difference(a, b DateRange) []DateRange {
	if !a.Overlaps(b) {
		return []DateRange{a}
	}
	var parts []DateRange
	if a.From.Before(b.From) {
		parts = append(parts, DateRange{From: a.From, To: b.From.AddDate(0, 0, -1)})
	}
	if a.To.After(b.To) {
		parts = append(parts, DateRange{From: b.To.AddDate(0, 0, 1), To: a.To})
	}
	return parts
}

// SubtractAll removes every claimed range from the given windows, keeping
// window order.
func SubtractAll(windows, claimed []DateRange) []DateRange {
	remaining := windows
	for _, c := range claimed {
		var next []DateRange
		for _, w := range remaining {
			next = append(next, Difference(w, c)...)
		}
		remaining = next
	}
	return remaining
}

func windowEndFor(start time.Time, interval entity.Interval) time.Time {
	if interval == entity.IntervalMonthly {
		return lastDayOfMonth(start)
	}
	// Quarters are Jan-Mar, Apr-Jun, Jul-Sep, Oct-Dec.
	quarterEndMonth := time.Month(((int(start.Month())-1)/3)*3 + 3)
	return lastDayOfMonth(Date(start.Year(), quarterEndMonth, 1))
}

func lastDayOfMonth(t time.Time) time.Time {
	return Date(t.Year(), t.Month()+1, 1).AddDate(0, 0, -1)
}

func daysInMonth(t time.Time) int {
	return lastDayOfMonth(t).Day()
}

func maxDate(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func minDate(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
