package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	t.Run("Valid date", func(t *testing.T) {
		date, err := ParseDate("2024-01-15")
		assert.NoError(t, err)
		assert.Equal(t, 2024, date.Year)
		assert.Equal(t, 1, date.Month)
		assert.Equal(t, 15, date.Day)
		assert.Equal(t, "2024-01-15", date.String())
	})

	t.Run("Invalid format", func(t *testing.T) {
		_, err := ParseDate("2024/01/15")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invalid date format")
	})

	t.Run("Invalid month", func(t *testing.T) {
		_, err := ParseDate("2024-13-15")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "month must be between 1 and 12")
	})

	t.Run("Invalid day", func(t *testing.T) {
		_, err := ParseDate("2023-02-29")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "day must be between 1 and 28")
	})

	t.Run("Leap day", func(t *testing.T) {
		_, err := ParseDate("2024-02-29")
		assert.NoError(t, err)
	})
}

func TestDaysInMonth(t *testing.T) {
	tests := []struct {
		year     int
		month    int
		expected int
	}{
		{2024, 1, 31},
		{2024, 2, 29},
		{2023, 2, 28},
		{2024, 4, 30},
		{2024, 11, 30},
		{2024, 12, 31},
		{2000, 2, 29},
		{1900, 2, 28},
	}

	for _, tt := range tests {
		t.Run("", func(t *testing.T) {
			assert.Equal(t, tt.expected, DaysInMonth(tt.year, tt.month))
		})
	}
}

func TestValidateDateRange(t *testing.T) {
	t.Run("Same day trip", func(t *testing.T) {
		start, end, err := ValidateDateRange("2026-07-01", "2026-07-01")
		require.NoError(t, err)
		assert.Equal(t, start, end)
	})

	t.Run("Across month end", func(t *testing.T) {
		start, end, err := ValidateDateRange("2026-07-30", "2026-08-02")
		require.NoError(t, err)
		assert.Equal(t, Date{Year: 2026, Month: 7, Day: 30}, start)
		assert.Equal(t, Date{Year: 2026, Month: 8, Day: 2}, end)
	})

	t.Run("End before start", func(t *testing.T) {
		_, _, err := ValidateDateRange("2026-07-10", "2026-07-09")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "end date must be >= start date")
	})

	t.Run("Bad start", func(t *testing.T) {
		_, _, err := ValidateDateRange("tomorrow", "2026-07-09")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invalid start date")
	})
}

func TestAgeOn(t *testing.T) {
	dob := Date{Year: 2000, Month: 6, Day: 15}
	assert.Equal(t, 25, AgeOn(dob, Date{Year: 2026, Month: 6, Day: 14}))
	assert.Equal(t, 26, AgeOn(dob, Date{Year: 2026, Month: 6, Day: 15}))
	assert.Equal(t, 0, DateOf(time.Date(2026, 6, 15, 23, 0, 0, 0, time.UTC)).Compare(Date{Year: 2026, Month: 6, Day: 15}))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "héllo", Truncate("héllo wörld", 5))
	assert.Equal(t, "short", Truncate("short", 100))
	assert.Equal(t, "", Truncate("x", 0))

	long := strings.Repeat("ä", 150)
	assert.Equal(t, 100, RuneLen(Truncate(long, 100)))
}
