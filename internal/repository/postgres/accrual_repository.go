package postgres

import (
	"context"
	"database/sql"

	"github.com/fourgeeks/accrual-engine/internal/domain/accrual"
	"github.com/fourgeeks/accrual-engine/internal/ierr"
	"github.com/fourgeeks/accrual-engine/internal/postgres"
	"github.com/fourgeeks/accrual-engine/internal/types"
	"github.com/shopspring/decimal"
)

type accrualRow struct {
	ID                        string          `db:"id"`
	ContractID                string          `db:"contract_id"`
	TotalAmountToAccrue       decimal.Decimal `db:"total_amount_to_accrue"`
	TotalAmountAccrued        decimal.Decimal `db:"total_amount_accrued"`
	RemainingAmountToAccrue   decimal.Decimal `db:"remaining_amount_to_accrue"`
	TotalSessionsToAccrue     int             `db:"total_sessions_to_accrue"`
	TotalSessionsAccrued      int             `db:"total_sessions_accrued"`
	SessionsRemainingToAccrue int             `db:"sessions_remaining_to_accrue"`
	AccrualStatus             string          `db:"accrual_status"`
	Version                   int             `db:"version"`
}

func (r accrualRow) toDomain() *accrual.ContractAccrual {
	return &accrual.ContractAccrual{
		ID:                        r.ID,
		ContractID:                r.ContractID,
		TotalAmountToAccrue:       r.TotalAmountToAccrue,
		TotalAmountAccrued:        r.TotalAmountAccrued,
		RemainingAmountToAccrue:   r.RemainingAmountToAccrue,
		TotalSessionsToAccrue:     r.TotalSessionsToAccrue,
		TotalSessionsAccrued:      r.TotalSessionsAccrued,
		SessionsRemainingToAccrue: r.SessionsRemainingToAccrue,
		AccrualStatus:             types.AccrualStatus(r.AccrualStatus),
		Version:                   r.Version,
	}
}

// AccrualRepository implements accrual.Repository against postgres. The
// unique index on contract_id (SPEC_FULL.md migrations) is what makes
// GetByContract/Create race-safe under concurrent first-processing.
type AccrualRepository struct {
	db *postgres.DB
}

// NewAccrualRepository builds an AccrualRepository.
func NewAccrualRepository(db *postgres.DB) *AccrualRepository {
	return &AccrualRepository{db: db}
}

var _ accrual.Repository = (*AccrualRepository)(nil)

// GetByContract loads the aggregate for contractID, or ierr.ErrNotFound.
func (r *AccrualRepository) GetByContract(ctx context.Context, contractID string) (*accrual.ContractAccrual, error) {
	var row accrualRow
	err := r.db.GetQuerier(ctx).GetContext(ctx, &row, `
		SELECT id, contract_id, total_amount_to_accrue, total_amount_accrued,
		       remaining_amount_to_accrue, total_sessions_to_accrue,
		       total_sessions_accrued, sessions_remaining_to_accrue,
		       accrual_status, version
		FROM contract_accruals WHERE contract_id = $1`, contractID)
	if err == sql.ErrNoRows {
		return nil, ierr.NotFound("contract accrual", contractID, err)
	}
	if err != nil {
		return nil, ierr.WithError(err).WithMessage("failed to get contract accrual").Mark(ierr.ErrSystem)
	}
	return row.toDomain(), nil
}

// Create inserts a newly-initialized aggregate (spec.md SS4.4 "Ensure
// aggregate"). A unique_violation on contract_id is surfaced as
// ErrAlreadyExists so the mutator can re-fetch instead of double-creating.
func (r *AccrualRepository) Create(ctx context.Context, a *accrual.ContractAccrual) error {
	_, err := r.db.GetQuerier(ctx).ExecContext(ctx, `
		INSERT INTO contract_accruals (
			id, contract_id, total_amount_to_accrue, total_amount_accrued,
			remaining_amount_to_accrue, total_sessions_to_accrue,
			total_sessions_accrued, sessions_remaining_to_accrue,
			accrual_status, version
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 1)`,
		a.ID, a.ContractID, a.TotalAmountToAccrue, a.TotalAmountAccrued,
		a.RemainingAmountToAccrue, a.TotalSessionsToAccrue, a.TotalSessionsAccrued,
		a.SessionsRemainingToAccrue, string(a.AccrualStatus))
	if err != nil {
		if isUniqueViolation(err) {
			return ierr.WithError(err).WithMessage("contract accrual already exists").Mark(ierr.ErrAlreadyExists)
		}
		return ierr.WithError(err).WithMessage("failed to create contract accrual").Mark(ierr.ErrSystem)
	}
	a.Version = 1
	return nil
}

// Update persists the aggregate's new totals/status, incrementing Version
// and failing with ErrInvariantViolation on a version mismatch (optimistic
// concurrency — two concurrent runs over the same contract must not both
// win a write, spec.md SS5).
func (r *AccrualRepository) Update(ctx context.Context, a *accrual.ContractAccrual) error {
	res, err := r.db.GetQuerier(ctx).ExecContext(ctx, `
		UPDATE contract_accruals
		SET total_amount_accrued = $3, remaining_amount_to_accrue = $4,
		    total_sessions_accrued = $5, sessions_remaining_to_accrue = $6,
		    accrual_status = $7, version = version + 1
		WHERE id = $1 AND version = $2`,
		a.ID, a.Version, a.TotalAmountAccrued, a.RemainingAmountToAccrue,
		a.TotalSessionsAccrued, a.SessionsRemainingToAccrue, string(a.AccrualStatus))
	if err != nil {
		return ierr.WithError(err).WithMessage("failed to update contract accrual").Mark(ierr.ErrSystem)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return ierr.WithError(err).WithMessage("failed to read update result").Mark(ierr.ErrSystem)
	}
	if n == 0 {
		return ierr.NewError("contract accrual version conflict").
			WithHint("the aggregate was modified concurrently; reload and retry").
			Mark(ierr.ErrInvariantViolation)
	}
	a.Version++
	return nil
}
