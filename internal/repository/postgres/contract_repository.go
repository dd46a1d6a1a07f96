// Package postgres implements the domain repository interfaces against
// postgres, adapted from the teacher's sqlx-based non-ent repositories
// (internal/postgres/transaction.go's Querier pattern) rather than its
// ent-generated client.
package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/fourgeeks/accrual-engine/internal/domain/contract"
	"github.com/fourgeeks/accrual-engine/internal/ierr"
	"github.com/fourgeeks/accrual-engine/internal/postgres"
	"github.com/fourgeeks/accrual-engine/internal/types"
	"github.com/shopspring/decimal"
)

type contractRow struct {
	ID              string          `db:"id"`
	ClientRef       string          `db:"client_ref"`
	ServiceRef      string          `db:"service_ref"`
	ContractDate    time.Time       `db:"contract_date"`
	ContractAmount  decimal.Decimal `db:"contract_amount"`
	Currency        string          `db:"currency"`
	Status          string          `db:"status"`
	TotalSessions   int             `db:"total_sessions"`
	SessionsPerWeek int             `db:"sessions_per_week"`
	CreatedAt       time.Time       `db:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at"`
}

func (r contractRow) toDomain() *contract.Contract {
	return &contract.Contract{
		ID:             r.ID,
		ClientRef:      r.ClientRef,
		ServiceRef:     r.ServiceRef,
		ContractDate:   r.ContractDate,
		ContractAmount: r.ContractAmount,
		Currency:       r.Currency,
		Status:         types.ContractStatus(r.Status),
		Service: contract.ServiceSpec{
			TotalSessions:   r.TotalSessions,
			SessionsPerWeek: r.SessionsPerWeek,
		},
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// ContractRepository implements contract.Repository against postgres.
type ContractRepository struct {
	db *postgres.DB
}

// NewContractRepository builds a ContractRepository.
func NewContractRepository(db *postgres.DB) *ContractRepository {
	return &ContractRepository{db: db}
}

var _ contract.Repository = (*ContractRepository)(nil)

// Get loads a contract by id.
func (r *ContractRepository) Get(ctx context.Context, id string) (*contract.Contract, error) {
	var row contractRow
	err := r.db.GetQuerier(ctx).GetContext(ctx, &row, `
		SELECT id, client_ref, service_ref, contract_date, contract_amount,
		       currency, status, total_sessions, sessions_per_week,
		       created_at, updated_at
		FROM contracts WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, ierr.NotFound("contract", id, err)
	}
	if err != nil {
		return nil, ierr.WithError(err).WithMessage("failed to get contract").Mark(ierr.ErrSystem)
	}
	return row.toDomain(), nil
}

// Update persists a contract's mutable fields (status, amount).
func (r *ContractRepository) Update(ctx context.Context, c *contract.Contract) error {
	_, err := r.db.GetQuerier(ctx).ExecContext(ctx, `
		UPDATE contracts
		SET status = $2, contract_amount = $3, updated_at = now()
		WHERE id = $1`, c.ID, string(c.Status), c.ContractAmount)
	if err != nil {
		return ierr.WithError(err).WithMessage("failed to update contract").Mark(ierr.ErrSystem)
	}
	return nil
}

// ListCandidates selects contracts dated on or before filter.TargetMonthEnd,
// pushing down the one exclusion rule (spec.md SS4.7) that doesn't need the
// aggregate/periods loaded; the batch driver re-applies the rest in
// Driver.keepCandidate.
func (r *ContractRepository) ListCandidates(ctx context.Context, filter contract.CandidateFilter) ([]*contract.Contract, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = types.DefaultQueryFilter().Limit
	}

	var rows []contractRow
	err := r.db.GetQuerier(ctx).SelectContext(ctx, &rows, `
		SELECT id, client_ref, service_ref, contract_date, contract_amount,
		       currency, status, total_sessions, sessions_per_week,
		       created_at, updated_at
		FROM contracts
		WHERE contract_date <= $1
		ORDER BY id
		LIMIT $2 OFFSET $3`, filter.TargetMonthEnd, limit, filter.Offset)
	if err != nil {
		return nil, ierr.WithError(err).WithMessage("failed to list candidate contracts").Mark(ierr.ErrSystem)
	}

	out := make([]*contract.Contract, len(rows))
	for i, row := range rows {
		out[i] = row.toDomain()
	}
	return out, nil
}
