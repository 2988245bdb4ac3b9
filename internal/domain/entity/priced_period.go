package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// PricedPeriod is a date range with a monthly unit price. Several priced
// periods may overlap in time; each represents a separately billed component
// and yields its own invoice line.
type PricedPeriod struct {
	MonthlyPrice decimal.Decimal `json:"monthly_price"`
	StartDate    time.Time       `json:"start_date"`
	EndDate      time.Time       `json:"end_date"` // inclusive
	Description  string          `json:"description"`
}

// Overlaps reports whether the period touches the closed range [from, to].
func (p PricedPeriod) Overlaps(from, to time.Time) bool {
	return !p.StartDate.After(to) && !p.EndDate.Before(from)
}
