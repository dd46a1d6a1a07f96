package types

// PeriodStatus is the lifecycle status of a service Period.
//
// The source system carries two overlapping status enumerations with
// different casings across older and newer modules; this is the canonical
// uppercase set (spec.md SS3, SS4.2).
type PeriodStatus string

const (
	PeriodStatusActive    PeriodStatus = "ACTIVE"
	PeriodStatusPostponed PeriodStatus = "POSTPONED"
	PeriodStatusDropped   PeriodStatus = "DROPPED"
	PeriodStatusEnded     PeriodStatus = "ENDED"
)

func (s PeriodStatus) Valid() bool {
	switch s {
	case PeriodStatusActive, PeriodStatusPostponed, PeriodStatusDropped, PeriodStatusEnded:
		return true
	}
	return false
}

// IsTerminal reports whether a period has stopped delivering service.
func (s PeriodStatus) IsTerminal() bool {
	return s == PeriodStatusEnded || s == PeriodStatusDropped
}
