// Package arbiter selects, for a given month, the one Period a contract's
// accrual decisions hinge on when the contract carries several (spec.md
// SS4.5). Most of its complexity exists to resolve the overlap created by a
// postponement: the postponed period and the period that takes over from it
// both nominally "belong" to the transition month.
package arbiter

import (
	"sort"
	"time"

	"github.com/fourgeeks/accrual-engine/internal/calendar"
	"github.com/fourgeeks/accrual-engine/internal/domain/period"
	"github.com/fourgeeks/accrual-engine/internal/types"
)

// SelectAuthoritativePeriod returns the period deemed authoritative for
// monthStart..monthEnd among periods, or nil if none applies.
func SelectAuthoritativePeriod(periods []*period.Period, monthStart, monthEnd time.Time) *period.Period {
	overlapping := overlappingPeriods(periods, monthStart, monthEnd)
	if len(overlapping) == 0 {
		return nil
	}
	if len(overlapping) == 1 {
		return overlapping[0]
	}

	if p := resolvePostponementTransition(periods, overlapping, monthStart, monthEnd); p != nil {
		return p
	}
	return fallback(overlapping)
}

func overlappingPeriods(periods []*period.Period, monthStart, monthEnd time.Time) []*period.Period {
	var out []*period.Period
	for _, p := range periods {
		if p.Overlaps(monthStart, monthEnd) {
			out = append(out, p)
		}
	}
	return out
}

func containsPeriod(set []*period.Period, p *period.Period) bool {
	for _, c := range set {
		if c.ID == p.ID {
			return true
		}
	}
	return false
}

// resolvePostponementTransition implements spec.md SS4.5 step 2: gather all
// POSTPONED periods with a status_change_date set, sorted ascending by that
// date, and resolve the first one whose rule yields a decision.
func resolvePostponementTransition(all, overlapping []*period.Period, monthStart, monthEnd time.Time) *period.Period {
	var postponed []*period.Period
	for _, p := range all {
		if p.Status == types.PeriodStatusPostponed && p.StatusChangeDate != nil {
			postponed = append(postponed, p)
		}
	}
	sort.SliceStable(postponed, func(i, j int) bool {
		return postponed[i].StatusChangeDate.Before(*postponed[j].StatusChangeDate)
	})

	for _, pp := range postponed {
		cd := *pp.StatusChangeDate

		if monthEnd.Before(cd) {
			if containsPeriod(overlapping, pp) {
				return pp
			}
			continue
		}

		if !monthStart.After(cd) && !cd.After(monthEnd) {
			cp := continuingPeriod(all, pp, cd, monthStart, monthEnd)
			if cp == nil {
				continue
			}
			if periodsOverlapInTime(pp, cp) {
				mid := calendar.MidMonth(monthStart)
				if cd.After(mid) {
					if containsPeriod(overlapping, pp) {
						return pp
					}
					continue
				}
				return cp
			}
			return cp
		}

		if monthStart.After(cd) {
			cp := continuingPeriod(all, pp, cd, monthStart, monthEnd)
			if cp != nil {
				return cp
			}
			continue
		}
	}
	return nil
}

func periodsOverlapInTime(a, b *period.Period) bool {
	return a.Overlaps(b.StartDate, b.EndDate)
}

// continuingPeriod implements spec.md SS4.5 step 3.
func continuingPeriod(all []*period.Period, pp *period.Period, changeDate, monthStart, monthEnd time.Time) *period.Period {
	var candidates []*period.Period
	for _, p := range all {
		if p.ID == pp.ID {
			continue
		}
		switch p.Status {
		case types.PeriodStatusActive, types.PeriodStatusEnded, types.PeriodStatusDropped:
			candidates = append(candidates, p)
		}
	}

	var containing []*period.Period
	for _, p := range candidates {
		if p.Overlaps(monthStart, monthEnd) && p.Contains(changeDate) {
			containing = append(containing, p)
		}
	}
	if len(containing) > 0 {
		sort.SliceStable(containing, func(i, j int) bool {
			iActive := containing[i].Status == types.PeriodStatusActive
			jActive := containing[j].Status == types.PeriodStatusActive
			if iActive != jActive {
				return iActive
			}
			return containing[i].StartDate.After(containing[j].StartDate)
		})
		return containing[0]
	}

	var future []*period.Period
	for _, p := range candidates {
		if p.StartDate.After(changeDate) && p.Overlaps(monthStart, monthEnd) {
			future = append(future, p)
		}
	}
	if len(future) == 0 {
		return nil
	}
	sort.SliceStable(future, func(i, j int) bool {
		return future[i].StartDate.Before(future[j].StartDate)
	})
	return future[0]
}

// fallback implements spec.md SS4.5 step 4.
func fallback(overlapping []*period.Period) *period.Period {
	var active []*period.Period
	for _, p := range overlapping {
		if p.Status == types.PeriodStatusActive {
			active = append(active, p)
		}
	}
	pool := active
	if len(pool) == 0 {
		pool = overlapping
	}

	best := pool[0]
	for _, p := range pool[1:] {
		if p.StartDate.After(best.StartDate) {
			best = p
		}
	}
	return best
}
