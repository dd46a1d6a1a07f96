package accruedperiod

import (
	"context"
	"time"
)

// Repository persists immutable AccruedPeriod rows. Create must enforce
// the uniqueness spec.md SS3/SS6 describe: at most one row per
// (contract_accrual_id, service_period_id, accrual_date), and at most one
// full-remainder row (service_period_id IS NULL) per
// (contract_accrual_id, accrual_date).
type Repository interface {
	Create(ctx context.Context, ap *AccruedPeriod) error

	// ExistsForPeriod reports whether an AccruedPeriod already exists for
	// (contractAccrualID, periodID, accrualDate) — the pre-write existence
	// check backing the aggregate mutator's "accrue portion" precondition
	// (spec.md SS4.4 primitive 2).
	ExistsForPeriod(ctx context.Context, contractAccrualID, periodID string, accrualDate time.Time) (bool, error)

	// ExistsFullRemainder reports whether a full-remainder row already
	// exists for (contractAccrualID, accrualDate) — duplicate protection
	// for "accrue full remainder" (spec.md SS4.4 primitive 3).
	ExistsFullRemainder(ctx context.Context, contractAccrualID string, accrualDate time.Time) (bool, error)

	ListByAccrual(ctx context.Context, contractAccrualID string) ([]*AccruedPeriod, error)
}
