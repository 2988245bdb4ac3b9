package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

// MonthEquivalent computes the month-equivalent quantity for the closed
// period [from, to] against a monthly unit.
//
// Within a single calendar month the quantity is inclusive days divided by
// the month length, rounded half up to two decimals. Across month boundaries
// it is the sum of three independently rounded components: the remaining
// fraction of from's month, the whole months strictly between, and the
// elapsed fraction of to's month. Each component is rounded before summing;
// billed amounts depend on this exact rounding order, so it must not be
// collapsed into a single final rounding.
func MonthEquivalent(from, to time.Time) decimal.Decimal {
	if from.Year() == to.Year() && from.Month() == to.Month() {
		days := decimal.NewFromInt(int64(to.Day() - from.Day() + 1))
		return days.DivRound(decimal.NewFromInt(int64(daysInMonth(from))), 2)
	}

	firstMonthDays := decimal.NewFromInt(int64(daysInMonth(from)))
	first := firstMonthDays.
		Sub(decimal.NewFromInt(int64(from.Day()))).
		Add(decimal.NewFromInt(1)).
		DivRound(firstMonthDays, 2)

	middle := decimal.NewFromInt(wholeMonthsBetween(from, to))

	last := decimal.NewFromInt(int64(to.Day())).
		DivRound(decimal.NewFromInt(int64(daysInMonth(to))), 2)

	return first.Add(middle).Add(last)
}

// AmountForPeriod computes the prorated amount for [from, to] at the given
// monthly unit price, rounded half up to two decimals.
func AmountForPeriod(monthlyPrice decimal.Decimal, from, to time.Time) decimal.Decimal {
	return monthlyPrice.Mul(MonthEquivalent(from, to)).Round(2)
}

// wholeMonthsBetween counts the calendar months strictly between from's month
// and to's month.
func wholeMonthsBetween(from, to time.Time) int64 {
	months := (int64(to.Year())-int64(from.Year()))*12 + int64(to.Month()) - int64(from.Month()) - 1
	if months < 0 {
		return 0
	}
	return months
}
