package port

import (
	"context"
)

// Availability is the inventory snapshot a reservation is keyed on. Name
// and Price become the order's line-item snapshots when the reservation
// commits.
type Availability struct {
	ProductID string
	Name      string
	Price     float64
	Stock     int
	Version   int64
}

// InventoryGateway is the coordinator's outbound port to the inventory
// store.
//
// TryReserve performs the conditional decrement keyed on expectedVersion
// and returns the advanced version on success, domain.ErrVersionConflict
// when the record moved underneath the caller,
// *domain.InsufficientStockError when stock is short, and
// domain.ErrProductNotFound for unknown ids. Any other error is a
// dependency failure.
//
// Release credits a previously reserved quantity back. Each call must
// correspond 1:1 to a prior successful TryReserve; the coordinator's
// reservation log enforces that, not the store.
type InventoryGateway interface {
	GetAvailability(ctx context.Context, productID string) (Availability, error)
	TryReserve(ctx context.Context, productID string, quantity int, expectedVersion int64) (int64, error)
	Release(ctx context.Context, productID string, quantity int) error
}
