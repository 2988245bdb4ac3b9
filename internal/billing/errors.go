package billing

import "errors"

var (
	// ErrInvalidInterval is returned when a single-invoice interval is passed
	// where calendar decomposition is required. A single series has exactly
	// one implicit window equal to its own span.
	ErrInvalidInterval = errors.New("interval cannot be decomposed into billing windows")

	// ErrPeriodInverted is returned when clipping a priced period against a
	// billing window yields a start after its end. This indicates a defect in
	// the caller's overlap handling, not bad user input.
	ErrPeriodInverted = errors.New("clipped period start is after its end")

	// ErrNoPricedPeriods is returned when a series is built without any
	// priced periods.
	ErrNoPricedPeriods = errors.New("at least one priced period is required")

	// ErrMissingPreviousAmount is returned when a settlement cannot recover
	// the previously billed amount from stored line data. It is never
	// silently treated as zero.
	ErrMissingPreviousAmount = errors.New("previous settlement amount missing on invoice line")
)
