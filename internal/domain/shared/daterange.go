package shared

import (
	"fmt"
	"time"
)

// DateRange is an inclusive calendar date interval. Time-of-day components
// are ignored; both endpoints belong to the range.
type DateRange struct {
	From time.Time
	To   time.Time
}

// NewDateRange builds a validated DateRange.
func NewDateRange(from, to time.Time) (DateRange, error) {
	r := DateRange{From: from, To: to}
	if err := r.Validate(); err != nil {
		return DateRange{}, err
	}
	return r, nil
}

// Validate checks the range invariants: both endpoints set, From not after To.
func (r DateRange) Validate() error {
	if r.From.IsZero() || r.To.IsZero() {
		return fmt.Errorf("%w: date range endpoints must be set", ErrInvalidInput)
	}
	if dateOnly(r.From).After(dateOnly(r.To)) {
		return fmt.Errorf("%w: date range start %s is after end %s",
			ErrInvalidInput, r.From.Format("2006-01-02"), r.To.Format("2006-01-02"))
	}
	return nil
}

// Contains reports whether the given date falls inside the range, inclusive.
func (r DateRange) Contains(t time.Time) bool {
	d := dateOnly(t)
	return !d.Before(dateOnly(r.From)) && !d.After(dateOnly(r.To))
}

// Days returns the number of calendar days covered by the range (at least 1
// for a valid range).
func (r DateRange) Days() int {
	return int(dateOnly(r.To).Sub(dateOnly(r.From)).Hours()/24) + 1
}

// CurrentMonth returns the range covering the calling month, first day
// through last day.
func CurrentMonth(now time.Time) DateRange {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	last := first.AddDate(0, 1, -1)
	return DateRange{From: first, To: last}
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
