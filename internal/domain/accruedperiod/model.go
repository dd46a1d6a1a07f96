// Package accruedperiod holds the immutable AccruedPeriod fact (spec.md
// SS3). Rows are never updated after creation.
package accruedperiod

import (
	"time"

	"github.com/fourgeeks/accrual-engine/internal/types"
	"github.com/shopspring/decimal"
)

// AccruedPeriod is an immutable accrual fact: the amount of a contract's
// value recognized as revenue in one target month, against one period (or
// null, for a full-remainder accrual).
type AccruedPeriod struct {
	ID                string
	ContractAccrualID string
	// ServicePeriodID is nil for a full-remainder accrual.
	ServicePeriodID  *string
	AccrualDate      time.Time
	AccruedAmount    decimal.Decimal
	AccrualPortion   decimal.Decimal
	Status           types.PeriodStatus
	SessionsInPeriod int
	TotalContractAmount decimal.Decimal
	StatusChangeDate    *time.Time

	CreatedAt time.Time
}

// IsFullRemainder reports whether this row recognizes the entire
// remaining amount against no specific period.
func (a *AccruedPeriod) IsFullRemainder() bool {
	return a.ServicePeriodID == nil
}
