package domain

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"
)

// Calendar dates in filters are interpreted in UTC, the same zone every stored
// timestamp uses.

// StartOfDay returns the first instant of d (00:00:00.000000000 UTC).
func StartOfDay(d civil.Date) time.Time {
	return d.In(time.UTC)
}

// EndOfDay returns the last representable instant of d (23:59:59.999999999 UTC).
func EndOfDay(d civil.Date) time.Time {
	return d.AddDays(1).In(time.UTC).Add(-time.Nanosecond)
}

// ValidateDateRange checks a date-range filter before it is used.
// Call it only when at least one side is set: a partial range is never
// accepted, and start must not be after end.
func ValidateDateRange(start, end *civil.Date) error {
	if start == nil {
		return fmt.Errorf("%w: startDate is required when endDate is set", ErrInvalidFilter)
	}
	if end == nil {
		return fmt.Errorf("%w: endDate is required when startDate is set", ErrInvalidFilter)
	}
	if start.After(*end) {
		return fmt.Errorf("%w: endDate %s is before startDate %s", ErrInvalidFilter, end, start)
	}
	return nil
}

// NewModifiedRange expands a validated date pair into inclusive timestamp bounds.
func NewModifiedRange(start, end civil.Date) (from, to time.Time) {
	return StartOfDay(start), EndOfDay(end)
}
