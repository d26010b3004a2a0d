package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrProductNotFound is returned when the referenced product id does
	// not exist.
	ErrProductNotFound = errors.New("product not found")

	// ErrVersionConflict is returned when a conditional stock write loses
	// the race against a concurrent mutation. Callers re-read and retry.
	ErrVersionConflict = errors.New("stock version conflict")
)

// InsufficientStockError rejects a decrement that would take stock below
// zero. Available reports what the store held at the observed version so
// the caller can surface an actionable failure.
type InsufficientStockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}
