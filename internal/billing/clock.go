package billing

import "time"

// Clock supplies the current date. The engine never reads the system clock
// directly so that computations stay deterministic and testable.
type Clock func() time.Time

// SystemClock reads the wall clock.
func SystemClock() time.Time {
	return time.Now()
}

// FixedClock returns a clock pinned to the given date.
func FixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

// Date builds a date at UTC midnight, the canonical form used for all period
// arithmetic in this package.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DateOnly truncates a timestamp to its date at UTC midnight.
func DateOnly(t time.Time) time.Time {
	return Date(t.Year(), t.Month(), t.Day())
}
