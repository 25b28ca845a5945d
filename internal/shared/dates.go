package shared

import (
	"fmt"
	"time"
)

// DateRange is an inclusive calendar-day range. Zero bounds mean open ends.
type DateRange struct {
	From time.Time
	To   time.Time
}

// Validate rejects ranges whose start falls after their end.
func (r DateRange) Validate() error {
	if !r.From.IsZero() && !r.To.IsZero() && r.From.After(r.To) {
		return fmt.Errorf("%w: start date cannot be after end date", ErrValidation)
	}
	return nil
}

// FromStart returns the inclusive lower timestamp bound (midnight UTC).
func (r DateRange) FromStart() time.Time {
	if r.From.IsZero() {
		return time.Time{}
	}
	y, m, d := r.From.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ToEnd returns the inclusive upper timestamp bound (end of day UTC).
func (r DateRange) ToEnd() time.Time {
	if r.To.IsZero() {
		return time.Time{}
	}
	y, m, d := r.To.Date()
	return time.Date(y, m, d, 23, 59, 59, 999999999, time.UTC)
}

// ParseDate parses a YYYY-MM-DD value. Empty input yields a zero time.
func ParseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date %q, expected YYYY-MM-DD", ErrValidation, value)
	}
	return t, nil
}
