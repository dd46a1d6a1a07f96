package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/fourgeeks/accrual-engine/internal/domain/period"
	"github.com/fourgeeks/accrual-engine/internal/ierr"
	"github.com/fourgeeks/accrual-engine/internal/postgres"
	"github.com/fourgeeks/accrual-engine/internal/types"
)

type periodRow struct {
	ID               string     `db:"id"`
	ContractID       string     `db:"contract_id"`
	ExternalID       string     `db:"external_id"`
	Name             string     `db:"name"`
	StartDate        time.Time  `db:"start_date"`
	EndDate          time.Time  `db:"end_date"`
	Status           string     `db:"status"`
	StatusChangeDate *time.Time `db:"status_change_date"`
	CreatedAt        time.Time  `db:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at"`
}

func (r periodRow) toDomain() *period.Period {
	return &period.Period{
		ID:               r.ID,
		ContractID:       r.ContractID,
		ExternalID:       r.ExternalID,
		Name:             r.Name,
		StartDate:        r.StartDate,
		EndDate:          r.EndDate,
		Status:           types.PeriodStatus(r.Status),
		StatusChangeDate: r.StatusChangeDate,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
}

// PeriodRepository implements period.Repository against postgres.
type PeriodRepository struct {
	db *postgres.DB
}

// NewPeriodRepository builds a PeriodRepository.
func NewPeriodRepository(db *postgres.DB) *PeriodRepository {
	return &PeriodRepository{db: db}
}

var _ period.Repository = (*PeriodRepository)(nil)

// Get loads a period by id.
func (r *PeriodRepository) Get(ctx context.Context, id string) (*period.Period, error) {
	var row periodRow
	err := r.db.GetQuerier(ctx).GetContext(ctx, &row, `
		SELECT id, contract_id, external_id, name, start_date, end_date,
		       status, status_change_date, created_at, updated_at
		FROM periods WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, ierr.NotFound("period", id, err)
	}
	if err != nil {
		return nil, ierr.WithError(err).WithMessage("failed to get period").Mark(ierr.ErrSystem)
	}
	return row.toDomain(), nil
}

// ListByContract returns every period belonging to contractID, oldest first.
func (r *PeriodRepository) ListByContract(ctx context.Context, contractID string) ([]*period.Period, error) {
	var rows []periodRow
	err := r.db.GetQuerier(ctx).SelectContext(ctx, &rows, `
		SELECT id, contract_id, external_id, name, start_date, end_date,
		       status, status_change_date, created_at, updated_at
		FROM periods WHERE contract_id = $1
		ORDER BY start_date ASC`, contractID)
	if err != nil {
		return nil, ierr.WithError(err).WithMessage("failed to list periods").Mark(ierr.ErrSystem)
	}

	out := make([]*period.Period, len(rows))
	for i, row := range rows {
		out[i] = row.toDomain()
	}
	return out, nil
}

// Update persists a period's status/status_change_date transition.
func (r *PeriodRepository) Update(ctx context.Context, p *period.Period) error {
	_, err := r.db.GetQuerier(ctx).ExecContext(ctx, `
		UPDATE periods
		SET status = $2, status_change_date = $3, updated_at = now()
		WHERE id = $1`, p.ID, string(p.Status), p.StatusChangeDate)
	if err != nil {
		return ierr.WithError(err).WithMessage("failed to update period").Mark(ierr.ErrSystem)
	}
	return nil
}
