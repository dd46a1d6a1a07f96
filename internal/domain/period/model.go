// Package period holds the service Period entity (spec.md SS3).
package period

import (
	"time"

	"github.com/fourgeeks/accrual-engine/internal/types"
)

// Period is a contiguous service-delivery enrollment belonging to a
// Contract. A contract may have multiple, possibly overlapping, periods;
// a postponement creates a second period that takes over on the
// postponement date.
type Period struct {
	ID               string
	ContractID       string
	ExternalID       string
	Name             string
	StartDate        time.Time
	EndDate          time.Time
	Status           types.PeriodStatus
	StatusChangeDate *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Overlaps reports whether the period's [StartDate, EndDate] intersects
// [start, end].
func (p *Period) Overlaps(start, end time.Time) bool {
	return !p.StartDate.After(end) && !start.After(p.EndDate)
}

// Contains reports whether d falls within [StartDate, EndDate].
func (p *Period) Contains(d time.Time) bool {
	return !d.Before(p.StartDate) && !d.After(p.EndDate)
}

// SetStatus updates Status and, if it actually changed, StatusChangeDate to
// changeDate (spec.md SS3: "setting status to a new value must update
// status_change_date to the date of the change").
func (p *Period) SetStatus(status types.PeriodStatus, changeDate time.Time) {
	if p.Status == status {
		return
	}
	p.Status = status
	cd := changeDate
	p.StatusChangeDate = &cd
}
