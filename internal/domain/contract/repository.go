package contract

import (
	"context"
	"time"

	"github.com/fourgeeks/accrual-engine/internal/types"
)

// CandidateFilter selects contracts that may need processing for a target
// month (spec.md SS4.7 "candidate filter"). Repositories are free to push
// as much of this down to SQL as convenient; the batch driver re-applies
// the parts that need the contract's periods/accrual loaded.
type CandidateFilter struct {
	TargetMonthEnd time.Time
	types.QueryFilter
}

// Repository persists and queries Contract aggregates.
type Repository interface {
	Get(ctx context.Context, id string) (*Contract, error)
	Update(ctx context.Context, c *Contract) error
	ListCandidates(ctx context.Context, filter CandidateFilter) ([]*Contract, error)
}
