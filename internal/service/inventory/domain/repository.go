package domain

import "context"

// ProductRepository is the persistence port for the inventory aggregate.
// ReserveStock and CreditStock are the only stock mutations; plain Update
// touches catalog fields and deliberately cannot change Stock or Version.
type ProductRepository interface {
	Create(ctx context.Context, product *Product) error
	FindByID(ctx context.Context, id string) (*Product, error)
	FindAll(ctx context.Context) ([]*Product, error)
	Update(ctx context.Context, product *Product) error
	Delete(ctx context.Context, id string) error

	// ReserveStock atomically decrements stock by quantity iff the row's
	// version equals expectedVersion and stock >= quantity. It returns the
	// advanced version on success, ErrVersionConflict when the version
	// moved, *InsufficientStockError when stock is short, and
	// ErrProductNotFound when the id is unknown.
	ReserveStock(ctx context.Context, id string, quantity int, expectedVersion int64) (int64, error)

	// CreditStock unconditionally adds quantity back and advances the
	// version. It is the compensating half of ReserveStock.
	CreditStock(ctx context.Context, id string, quantity int) (int64, error)
}
