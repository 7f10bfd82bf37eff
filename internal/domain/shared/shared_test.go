package shared

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestDateRange_Validate(t *testing.T) {
	_, err := NewDateRange(day(2026, 8, 1), day(2026, 8, 31))
	assert.NoError(t, err)

	// Single-day ranges are valid.
	_, err = NewDateRange(day(2026, 8, 1), day(2026, 8, 1))
	assert.NoError(t, err)

	_, err = NewDateRange(day(2026, 8, 31), day(2026, 8, 1))
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = NewDateRange(time.Time{}, day(2026, 8, 1))
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestDateRange_ContainsIsInclusiveAndDateOnly(t *testing.T) {
	r := DateRange{From: day(2026, 8, 1), To: day(2026, 8, 31)}

	assert.True(t, r.Contains(day(2026, 8, 1)))
	assert.True(t, r.Contains(day(2026, 8, 31)))
	assert.False(t, r.Contains(day(2026, 7, 31)))
	assert.False(t, r.Contains(day(2026, 9, 1)))

	// Time-of-day on the boundary day does not push a date out of the range.
	assert.True(t, r.Contains(time.Date(2026, 8, 31, 23, 59, 0, 0, time.UTC)))
}

func TestDateRange_Days(t *testing.T) {
	assert.Equal(t, 1, DateRange{From: day(2026, 8, 1), To: day(2026, 8, 1)}.Days())
	assert.Equal(t, 31, DateRange{From: day(2026, 8, 1), To: day(2026, 8, 31)}.Days())
}

func TestCurrentMonth(t *testing.T) {
	r := CurrentMonth(day(2026, 2, 14))
	assert.Equal(t, day(2026, 2, 1), r.From)
	assert.Equal(t, day(2026, 2, 28), r.To)

	// Leap year February.
	r = CurrentMonth(day(2028, 2, 14))
	assert.Equal(t, day(2028, 2, 29), r.To)
}

func TestDomainError_IsAndUnwrap(t *testing.T) {
	underlying := errors.New("connection refused")
	err := WrapError("sponte", "ListClasses", ErrUnavailable, "request failed", underlying)

	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, err, underlying)
	assert.NotErrorIs(t, err, ErrAuthentication)
	assert.Contains(t, err.Error(), "sponte.ListClasses")
	assert.Contains(t, err.Error(), "connection refused")

	var domainErr *DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "sponte", domainErr.Domain)
}

func TestDomainError_WithoutUnderlying(t *testing.T) {
	err := NewDomainError("query", "ListLessons", ErrInvalidInput, "start after end")

	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, "query.ListLessons: start after end", err.Error())
}
