package period

import "context"

// Repository persists and queries Periods.
type Repository interface {
	Get(ctx context.Context, id string) (*Period, error)
	ListByContract(ctx context.Context, contractID string) ([]*Period, error)
	Update(ctx context.Context, p *Period) error
}
