// Package allocator computes how many of a period's sessions fall within a
// date sub-range, honoring weekly cadence and the period's overall session
// cap (spec.md SS4.3).
package allocator

import (
	"math"
	"time"

	"github.com/fourgeeks/accrual-engine/internal/calendar"
	"github.com/fourgeeks/accrual-engine/internal/domain/contract"
	"github.com/fourgeeks/accrual-engine/internal/domain/period"
)

// SessionsInRange returns the number of sessions of p that fall within
// [rangeStart, rangeEnd] (which is assumed to be a subset of
// [p.StartDate, p.EndDate]), following the three-step derivation in
// spec.md SS4.3:
//
//  1. provisional = round(weeks_in_range * sessions_per_week)
//  2. period_cap  = min(round(total_weeks * sessions_per_week), total_sessions)
//  3. final       = round(period_cap * days_in_range / total_days)
//
// Step 3 supersedes step 1: the final count is always re-derived
// proportionally from the period-wide cap, so rounding residue from
// earlier months is picked up correctly in later ones. If rangeStart is
// after rangeEnd, the result is 0.
func SessionsInRange(p *period.Period, spec contract.ServiceSpec, rangeStart, rangeEnd time.Time) int {
	if rangeStart.After(rangeEnd) {
		return 0
	}

	totalDays := calendar.DaysBetween(p.StartDate, p.EndDate)
	if totalDays <= 0 {
		return 0
	}
	totalWeeks := float64(totalDays) / 7.0
	periodCap := roundToInt(totalWeeks * float64(spec.SessionsPerWeek))
	if spec.TotalSessions > 0 && periodCap > spec.TotalSessions {
		periodCap = spec.TotalSessions
	}
	if periodCap <= 0 {
		return 0
	}

	rangeDays := calendar.DaysBetween(rangeStart, rangeEnd)
	if rangeDays <= 0 {
		return 0
	}

	final := roundToInt(float64(periodCap) * float64(rangeDays) / float64(totalDays))
	if final < 0 {
		final = 0
	}
	return final
}

// TotalSessions returns the period-wide session cap: min(round(total_weeks
// * sessions_per_week), total_sessions) (spec.md SS4.3 "period-wide cap").
func TotalSessions(p *period.Period, spec contract.ServiceSpec) int {
	totalDays := calendar.DaysBetween(p.StartDate, p.EndDate)
	if totalDays <= 0 {
		return 0
	}
	totalWeeks := float64(totalDays) / 7.0
	cap := roundToInt(totalWeeks * float64(spec.SessionsPerWeek))
	if spec.TotalSessions > 0 && cap > spec.TotalSessions {
		cap = spec.TotalSessions
	}
	if cap < 0 {
		cap = 0
	}
	return cap
}

// roundToInt rounds f to the nearest integer, breaking an exact .5 tie
// towards the nearest even integer (banker's rounding) rather than away
// from zero. This matches Python's round() builtin, which is what
// original_source/src/api/services/models/service_period.py uses for
// every session-count derivation this function replaces; math.Round
// breaks ties away from zero instead and would disagree with the
// original at an exact tie (e.g. 14.5 rounds to 14, not 15).
func roundToInt(f float64) int {
	floor := math.Floor(f)
	diff := f - floor
	switch {
	case diff < 0.5:
		return int(floor)
	case diff > 0.5:
		return int(floor) + 1
	default:
		if int64(floor)%2 == 0 {
			return int(floor)
		}
		return int(floor) + 1
	}
}
