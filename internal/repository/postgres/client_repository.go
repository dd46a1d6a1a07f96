package postgres

import (
	"context"
	"database/sql"

	"github.com/fourgeeks/accrual-engine/internal/domain/client"
	"github.com/fourgeeks/accrual-engine/internal/ierr"
	"github.com/fourgeeks/accrual-engine/internal/postgres"
)

type clientRow struct {
	ID          string    `db:"id"`
	Email       string    `db:"email"`
	ExternalIDs stringMap `db:"external_ids"`
}

func (r clientRow) toDomain() *client.Client {
	return &client.Client{
		ID:          r.ID,
		Email:       r.Email,
		ExternalIDs: map[string]string(r.ExternalIDs),
	}
}

// ClientRepository implements client.Repository against postgres.
type ClientRepository struct {
	db *postgres.DB
}

// NewClientRepository builds a ClientRepository.
func NewClientRepository(db *postgres.DB) *ClientRepository {
	return &ClientRepository{db: db}
}

var _ client.Repository = (*ClientRepository)(nil)

// Get loads a client by id.
func (r *ClientRepository) Get(ctx context.Context, id string) (*client.Client, error) {
	var row clientRow
	err := r.db.GetQuerier(ctx).GetContext(ctx, &row, `
		SELECT id, email, external_ids FROM clients WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, ierr.NotFound("client", id, err)
	}
	if err != nil {
		return nil, ierr.WithError(err).WithMessage("failed to get client").Mark(ierr.ErrSystem)
	}
	return row.toDomain(), nil
}
