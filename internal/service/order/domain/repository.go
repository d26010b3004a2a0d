package domain

import "context"

// OrderRepository is the persistence port for the order aggregate.
// Creation is append-only; afterwards only the status may change.
type OrderRepository interface {
	Create(ctx context.Context, order *Order) error
	FindByID(ctx context.Context, id string) (*Order, error)

	// FindByUser and FindAll return orders newest-first.
	FindByUser(ctx context.Context, userID string) ([]*Order, error)
	FindAll(ctx context.Context) ([]*Order, error)

	UpdateStatus(ctx context.Context, id string, status Status) error
	Delete(ctx context.Context, id string) error
}
