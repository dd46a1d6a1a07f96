package invoice

import "context"

// Repository provides read-only access to a contract's invoices (spec.md
// SS6). The core never writes through this interface.
type Repository interface {
	ListByContract(ctx context.Context, contractID string) ([]*Invoice, error)
}
