// Package contract holds the Contract aggregate root (spec.md SS3).
package contract

import (
	"time"

	"github.com/fourgeeks/accrual-engine/internal/types"
	"github.com/shopspring/decimal"
)

// ServiceSpec is the slice of the contract's service catalog entry the
// accrual engine needs: the total number of sessions the service delivers
// and the cadence at which they're delivered. Both are shared by every
// Period belonging to the contract (spec.md SS4.3).
type ServiceSpec struct {
	TotalSessions   int
	SessionsPerWeek int
}

// Contract is the educational service contract aggregate root.
type Contract struct {
	ID             string
	ClientRef      string
	ServiceRef     string
	ContractDate   time.Time
	ContractAmount decimal.Decimal
	Currency       string
	Status         types.ContractStatus
	Service        ServiceSpec

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsZeroAmount reports whether the contract's total amount is zero within
// the monetary epsilon.
func (c *Contract) IsZeroAmount() bool {
	return types.AmountIsZero(c.ContractAmount)
}

// IsNegativeAmount reports whether the contract's total amount is strictly
// negative.
func (c *Contract) IsNegativeAmount() bool {
	return c.ContractAmount.IsNegative() && !types.AmountIsZero(c.ContractAmount)
}
