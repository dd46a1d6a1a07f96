package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestMonthBoundsLeapYearFebruary(t *testing.T) {
	start, end := MonthBounds(date(2024, time.February, 10))
	require.Equal(t, date(2024, time.February, 1), start)
	require.Equal(t, date(2024, time.February, 29), end)
}

func TestMonthBoundsNonLeapYearFebruary(t *testing.T) {
	_, end := MonthBounds(date(2023, time.February, 10))
	require.Equal(t, date(2023, time.February, 28), end)
}

func TestMonthBoundsDecemberYearWrap(t *testing.T) {
	start, end := MonthBounds(date(2024, time.December, 15))
	require.Equal(t, date(2024, time.December, 1), start)
	require.Equal(t, date(2024, time.December, 31), end)
}

func TestDaysBetweenInclusive(t *testing.T) {
	require.Equal(t, 1, DaysBetween(date(2024, 1, 1), date(2024, 1, 1)))
	require.Equal(t, 31, DaysBetween(date(2024, 1, 1), date(2024, 1, 31)))
	require.Equal(t, 0, DaysBetween(date(2024, 1, 31), date(2024, 1, 1)))
}

func TestMidMonth(t *testing.T) {
	require.Equal(t, date(2025, 1, 16), MidMonth(date(2025, 1, 1)))
}

func TestOverlaps(t *testing.T) {
	require.True(t, Overlaps(date(2024, 1, 1), date(2024, 1, 31), date(2024, 1, 15), date(2024, 2, 15)))
	require.False(t, Overlaps(date(2024, 1, 1), date(2024, 1, 31), date(2024, 2, 1), date(2024, 2, 28)))
}

func TestMonthGapIgnoresDayOfMonth(t *testing.T) {
	require.Equal(t, 6, MonthGap(date(2023, 6, 30), date(2023, 12, 1)))
	require.Equal(t, 1, MonthGap(date(2024, 1, 31), date(2024, 2, 1)))
	require.Equal(t, 12, MonthGap(date(2023, 1, 15), date(2024, 1, 1)))
	require.Equal(t, 0, MonthGap(date(2024, 3, 1), date(2024, 3, 31)))
}

func TestWithinDays(t *testing.T) {
	require.True(t, WithinDays(date(2024, 1, 20), date(2024, 2, 1), 15))
	require.False(t, WithinDays(date(2024, 1, 10), date(2024, 2, 1), 15))
	require.True(t, WithinDays(date(2024, 2, 1), date(2024, 1, 20), 15))
}
