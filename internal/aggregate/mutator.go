// Package aggregate implements the three accrual aggregate primitives the
// core drives: ensuring an aggregate exists, accruing a monthly portion,
// and accruing the full remainder (spec.md SS4.4). Every primitive commits
// its writes in a single transaction, including the contract-status
// cascade on completion.
package aggregate

import (
	"context"
	"time"

	"github.com/fourgeeks/accrual-engine/internal/calendar"
	"github.com/fourgeeks/accrual-engine/internal/domain/accrual"
	"github.com/fourgeeks/accrual-engine/internal/domain/accruedperiod"
	"github.com/fourgeeks/accrual-engine/internal/domain/contract"
	"github.com/fourgeeks/accrual-engine/internal/domain/period"
	"github.com/fourgeeks/accrual-engine/internal/ierr"
	"github.com/fourgeeks/accrual-engine/internal/logger"
	"github.com/fourgeeks/accrual-engine/internal/types"
	"github.com/shopspring/decimal"
)

// Transactor runs fn within a single database transaction, as the
// teacher's postgres.DB.WithTx does.
type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Mutator owns the ContractAccrual aggregate's three write primitives.
type Mutator struct {
	accruals       accrual.Repository
	accruedPeriods accruedperiod.Repository
	contracts      contract.Repository
	tx             Transactor
	log            *logger.Logger
}

// NewMutator builds a Mutator over the given repositories and transactor.
func NewMutator(accruals accrual.Repository, accruedPeriods accruedperiod.Repository, contracts contract.Repository, tx Transactor, log *logger.Logger) *Mutator {
	return &Mutator{accruals: accruals, accruedPeriods: accruedPeriods, contracts: contracts, tx: tx, log: log}
}

// EnsureAggregate fetches the contract's ContractAccrual, creating it
// lazily on first processing (spec.md SS4.4 primitive 1).
func (m *Mutator) EnsureAggregate(ctx context.Context, c *contract.Contract) (*accrual.ContractAccrual, error) {
	agg, err := m.accruals.GetByContract(ctx, c.ID)
	if err == nil {
		return agg, nil
	}
	if !ierr.IsNotFound(err) {
		return nil, err
	}

	agg = accrual.New(c.ID, c.ContractAmount, c.Service.TotalSessions)
	agg.ID = types.GenerateIDWithPrefix(types.IDPrefixAccrual)

	var created *accrual.ContractAccrual
	err = m.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := m.accruals.Create(ctx, agg); err != nil {
			return err
		}
		created = agg
		return nil
	})
	if err != nil {
		if ierr.Is(err, ierr.ErrAlreadyExists) {
			return m.accruals.GetByContract(ctx, c.ID)
		}
		return nil, err
	}
	return created, nil
}

// AccruePortion writes one AccruedPeriod against a live period, for the
// fraction of the remaining amount the allocator attributes to this month,
// and advances the aggregate accordingly (spec.md SS4.4 primitive 2).
//
// sessionsInOverlap is the allocator's raw session count for the
// target-month overlap, before clamping to what remains.
//
// Any contract-status change the caller already applied to c (e.g. a
// CLOSED or CANCELED contract accruing through its service periods) is
// preserved: the sign-based cascade below only fires when c is still
// ACTIVE at call time.
func (m *Mutator) AccruePortion(ctx context.Context, c *contract.Contract, agg *accrual.ContractAccrual, portion decimal.Decimal, targetMonth time.Time, p *period.Period, sessionsInOverlap int) (*accruedperiod.AccruedPeriod, error) {
	if agg.RemainingIsZero() {
		return nil, ierr.NewError("accrue portion called with nothing remaining").
			WithContractID(c.ID).
			Mark(ierr.ErrInvariantViolation)
	}

	accrualDate := calendar.MonthStart(targetMonth)
	exists, err := m.accruedPeriods.ExistsForPeriod(ctx, agg.ID, p.ID, accrualDate)
	if err != nil {
		return nil, err
	}
	if exists {
		if m.log != nil {
			m.log.WithContext(ctx).Debugw("accrued period already exists, skipping", "contract_id", c.ID, "period_id", p.ID)
		}
		return nil, nil
	}

	portion = types.ClampPortion(portion)
	amount := types.RoundAmount(agg.RemainingAmountToAccrue.Mul(portion))

	sessionsWritten := sessionsInOverlap
	if sessionsWritten > agg.SessionsRemainingToAccrue {
		sessionsWritten = agg.SessionsRemainingToAccrue
	}
	if sessionsWritten < 0 {
		sessionsWritten = 0
	}

	row := &accruedperiod.AccruedPeriod{
		ID:                  types.GenerateIDWithPrefix(types.IDPrefixAccruedPeriod),
		ContractAccrualID:   agg.ID,
		ServicePeriodID:     &p.ID,
		AccrualDate:         accrualDate,
		AccruedAmount:       amount,
		AccrualPortion:      portion,
		Status:              p.Status,
		SessionsInPeriod:    sessionsWritten,
		TotalContractAmount: c.ContractAmount,
		StatusChangeDate:    p.StatusChangeDate,
	}

	err = m.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := m.accruedPeriods.Create(ctx, row); err != nil {
			return err
		}
		agg.ApplyDelta(amount, sessionsWritten)
		if err := m.accruals.Update(ctx, agg); err != nil {
			return err
		}
		if agg.IsCompleted() {
			return m.cascadeContractStatus(ctx, c)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}

// AccrueFullRemainder writes a full-remainder AccruedPeriod (no specific
// period) and completes the aggregate in one step (spec.md SS4.4
// primitive 3).
func (m *Mutator) AccrueFullRemainder(ctx context.Context, c *contract.Contract, agg *accrual.ContractAccrual, targetMonth time.Time) (*accruedperiod.AccruedPeriod, error) {
	accrualDate := calendar.MonthStart(targetMonth)

	exists, err := m.accruedPeriods.ExistsFullRemainder(ctx, agg.ID, accrualDate)
	if err != nil {
		return nil, err
	}
	if exists {
		if m.log != nil {
			m.log.WithContext(ctx).Debugw("full-remainder accrued period already exists, skipping", "contract_id", c.ID)
		}
		return nil, nil
	}

	remaining := agg.RemainingAmountToAccrue
	row := &accruedperiod.AccruedPeriod{
		ID:                  types.GenerateIDWithPrefix(types.IDPrefixAccruedPeriod),
		ContractAccrualID:   agg.ID,
		ServicePeriodID:     nil,
		AccrualDate:         accrualDate,
		AccruedAmount:       remaining,
		AccrualPortion:      decimal.NewFromInt(1),
		Status:              types.PeriodStatusEnded,
		SessionsInPeriod:    agg.SessionsRemainingToAccrue,
		TotalContractAmount: c.ContractAmount,
	}

	err = m.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := m.accruedPeriods.Create(ctx, row); err != nil {
			return err
		}
		agg.CompleteFully(remaining)
		if err := m.accruals.Update(ctx, agg); err != nil {
			return err
		}
		return m.cascadeContractStatus(ctx, c)
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}

// ZeroAmountResignation writes the audit-trail AccruedPeriod described by
// spec.md SS4.7.7 for a zero-amount contract resigning with no prior
// accrual history.
func (m *Mutator) ZeroAmountResignation(ctx context.Context, c *contract.Contract, agg *accrual.ContractAccrual, accrualDate time.Time) (*accruedperiod.AccruedPeriod, error) {
	row := &accruedperiod.AccruedPeriod{
		ID:                  types.GenerateIDWithPrefix(types.IDPrefixAccruedPeriod),
		ContractAccrualID:   agg.ID,
		ServicePeriodID:     nil,
		AccrualDate:         calendar.ToCivilDate(accrualDate),
		AccruedAmount:       decimal.Zero,
		AccrualPortion:      decimal.NewFromInt(1),
		Status:              types.PeriodStatusEnded,
		TotalContractAmount: c.ContractAmount,
	}

	err := m.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := m.accruedPeriods.Create(ctx, row); err != nil {
			return err
		}
		agg.CompleteFully(decimal.Zero)
		if err := m.accruals.Update(ctx, agg); err != nil {
			return err
		}
		return m.cascadeContractStatus(ctx, c)
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}

// PauseAggregate transitions agg from ACTIVE to PAUSED and persists it,
// writing no AccruedPeriod row (spec.md SS4.7.3: a postponed period whose
// status_change_date falls outside the target month pauses the aggregate
// rather than accruing against it).
func (m *Mutator) PauseAggregate(ctx context.Context, agg *accrual.ContractAccrual) error {
	if agg.AccrualStatus != types.AccrualStatusActive {
		return nil
	}
	return m.tx.WithTx(ctx, func(ctx context.Context) error {
		agg.Pause()
		return m.accruals.Update(ctx, agg)
	})
}

// CompleteWithoutAccrual cascades an aggregate that is already fully
// accrued (RemainingAmountToAccrue == 0) straight to COMPLETED and cascades
// the contract status by sign, without writing an AccruedPeriod row. This
// is the auto-complete path for an ACTIVE contract that still has service
// periods but nothing left to accrue (spec.md SS4.7.1 step 3) — distinct
// from ZeroAmountResignation, which is reserved for a contract resigning
// with no service period history at all.
func (m *Mutator) CompleteWithoutAccrual(ctx context.Context, c *contract.Contract, agg *accrual.ContractAccrual) error {
	return m.tx.WithTx(ctx, func(ctx context.Context) error {
		agg.AccrualStatus = types.AccrualStatusCompleted
		if err := m.accruals.Update(ctx, agg); err != nil {
			return err
		}
		return m.cascadeContractStatus(ctx, c)
	})
}

// cascadeContractStatus applies spec.md SS4.4's completion cascade: it only
// acts while c is still ACTIVE, so any explicit status the caller already
// set (CANCELED for a dropped period, CLOSED for an ended one) is left
// untouched.
func (m *Mutator) cascadeContractStatus(ctx context.Context, c *contract.Contract) error {
	if c.Status != types.ContractStatusActive {
		return m.contracts.Update(ctx, c)
	}
	if c.IsNegativeAmount() || c.IsZeroAmount() {
		c.Status = types.ContractStatusCanceled
	} else {
		c.Status = types.ContractStatusClosed
	}
	return m.contracts.Update(ctx, c)
}
