// Package accrual holds the ContractAccrual aggregate: the per-contract
// cumulative accrual state (spec.md SS3).
package accrual

import (
	"github.com/fourgeeks/accrual-engine/internal/types"
	"github.com/shopspring/decimal"
)

// ContractAccrual tracks a contract's cumulative accrual totals and its
// ACTIVE/PAUSED/COMPLETED lifecycle. There is at most one per contract
// (unique on ContractID), created lazily on first processing and never
// destroyed.
type ContractAccrual struct {
	ID         string
	ContractID string

	TotalAmountToAccrue     decimal.Decimal
	TotalAmountAccrued      decimal.Decimal
	RemainingAmountToAccrue decimal.Decimal

	TotalSessionsToAccrue    int
	TotalSessionsAccrued     int
	SessionsRemainingToAccrue int

	AccrualStatus types.AccrualStatus

	Version int
}

// New creates the lazily-initialized aggregate for a contract (spec.md
// SS4.4 "Ensure aggregate").
func New(contractID string, totalAmount decimal.Decimal, totalSessions int) *ContractAccrual {
	return &ContractAccrual{
		ContractID:                contractID,
		TotalAmountToAccrue:       totalAmount,
		TotalAmountAccrued:        decimal.Zero,
		RemainingAmountToAccrue:   totalAmount,
		TotalSessionsToAccrue:     totalSessions,
		TotalSessionsAccrued:      0,
		SessionsRemainingToAccrue: totalSessions,
		AccrualStatus:             types.AccrualStatusActive,
	}
}

// IsCompleted reports whether the aggregate has finished accruing.
func (a *ContractAccrual) IsCompleted() bool {
	return a.AccrualStatus == types.AccrualStatusCompleted
}

// RemainingIsZero reports whether RemainingAmountToAccrue is zero within
// the monetary epsilon.
func (a *ContractAccrual) RemainingIsZero() bool {
	return types.AmountIsZero(a.RemainingAmountToAccrue)
}

// RemainingIsNegative reports whether RemainingAmountToAccrue is strictly
// negative (beyond the epsilon).
func (a *ContractAccrual) RemainingIsNegative() bool {
	return a.RemainingAmountToAccrue.IsNegative() && !a.RemainingIsZero()
}

// ApplyDelta records an accrual of amount/sessions against the aggregate,
// clamping RemainingAmountToAccrue and SessionsRemainingToAccrue at zero and
// transitioning to COMPLETED in the same step if remaining would go
// negative (spec.md SS3 invariant, SS4.4 primitive 2).
//
// The true overshoot is preserved in TotalAmountAccrued so that
// TotalAmountAccrued stays exactly equal to the sum of AccruedPeriod
// amounts (spec.md SS9 "clamping vs exact arithmetic").
func (a *ContractAccrual) ApplyDelta(amount decimal.Decimal, sessions int) {
	a.TotalAmountAccrued = a.TotalAmountAccrued.Add(amount)
	a.TotalSessionsAccrued += sessions

	a.RemainingAmountToAccrue = a.RemainingAmountToAccrue.Sub(amount)
	a.SessionsRemainingToAccrue -= sessions
	if a.SessionsRemainingToAccrue < 0 {
		a.SessionsRemainingToAccrue = 0
	}

	if types.AmountLessThanOrEqualZero(a.RemainingAmountToAccrue) {
		a.RemainingAmountToAccrue = decimal.Zero
		a.SessionsRemainingToAccrue = 0
		a.AccrualStatus = types.AccrualStatusCompleted
	}
}

// CompleteFully sets the aggregate to full completion: accrued equals
// total, remaining is zero (spec.md SS4.4 primitive 3, "accrue full
// remainder").
func (a *ContractAccrual) CompleteFully(amount decimal.Decimal) {
	a.TotalAmountAccrued = a.TotalAmountAccrued.Add(amount)
	a.RemainingAmountToAccrue = decimal.Zero
	a.SessionsRemainingToAccrue = 0
	a.AccrualStatus = types.AccrualStatusCompleted
}

// Pause transitions an ACTIVE aggregate to PAUSED. No-op otherwise.
func (a *ContractAccrual) Pause() {
	if a.AccrualStatus == types.AccrualStatusActive {
		a.AccrualStatus = types.AccrualStatusPaused
	}
}
