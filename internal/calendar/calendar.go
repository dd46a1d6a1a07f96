// Package calendar provides the civil-date month arithmetic the accrual
// engine uses to bound a target month (spec.md SS4.1).
package calendar

import "time"

// ToCivilDate truncates a time to midnight UTC, discarding any
// time-of-day component. All dates handled by the accrual engine are
// civil dates (spec.md SS3).
func ToCivilDate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// MonthStart returns the first civil day of d's month.
func MonthStart(d time.Time) time.Time {
	d = d.UTC()
	return time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// MonthEnd returns the last civil day of d's month (28-31), honoring leap
// years.
func MonthEnd(d time.Time) time.Time {
	start := MonthStart(d)
	return start.AddDate(0, 1, 0).AddDate(0, 0, -1)
}

// MonthBounds returns (MonthStart(d), MonthEnd(d)).
func MonthBounds(d time.Time) (time.Time, time.Time) {
	return MonthStart(d), MonthEnd(d)
}

// DaysBetween returns the inclusive day count between a and b (b >= a).
// Returns 0 if a > b.
func DaysBetween(a, b time.Time) int {
	a, b = ToCivilDate(a), ToCivilDate(b)
	if a.After(b) {
		return 0
	}
	return int(b.Sub(a).Hours()/24) + 1
}

// Overlaps reports whether [aStart, aEnd] intersects [bStart, bEnd].
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !aStart.After(bEnd) && !bStart.After(aEnd)
}

// Max returns the later of two times.
func Max(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

// Min returns the earlier of two times.
func Min(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}

// MidMonth returns the 15th day after month_start, used to break ties in
// postponement-transition arbitration (spec.md SS4.5 step 2).
func MidMonth(monthStart time.Time) time.Time {
	return monthStart.AddDate(0, 0, 15)
}

// MonthGap returns the signed calendar-month distance from earlier to
// later, counting only year/month components and ignoring day-of-month —
// e.g. Jan 31 to Feb 1 is a gap of 1, not 0. The invoice-based-override
// check (spec.md SS4.7.2) compares this against a 6-month threshold,
// rather than a day-aware month count, to match how the source system
// computed "months since the last service period ended".
func MonthGap(earlier, later time.Time) int {
	return (later.Year()-earlier.Year())*12 + int(later.Month()) - int(earlier.Month())
}

// WithinDays reports whether a and b are within n days of each other in
// either direction.
func WithinDays(a, b time.Time, n int) bool {
	diff := DaysBetween(Min(a, b), Max(a, b)) - 1
	return diff <= n
}
