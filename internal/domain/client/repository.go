package client

import "context"

// Repository resolves Contract client references into Client records.
type Repository interface {
	Get(ctx context.Context, id string) (*Client, error)
}
