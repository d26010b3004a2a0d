package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrOrderNotFound is returned when the referenced order id does not
	// exist.
	ErrOrderNotFound = errors.New("order not found")

	// ErrProductNotFound is surfaced when the inventory side does not know
	// the referenced product id.
	ErrProductNotFound = errors.New("product not found")

	// ErrVersionConflict signals that a conditional reservation lost the
	// race against a concurrent checkout. The coordinator retries it.
	ErrVersionConflict = errors.New("reservation version conflict")
)

// ValidationError rejects a malformed checkout request before any remote
// call is made.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// InvalidStatusError rejects a status value outside the enumerated set.
type InvalidStatusError struct {
	Value string
}

func (e *InvalidStatusError) Error() string {
	return fmt.Sprintf("invalid order status %q", e.Value)
}

// InsufficientStockError aborts the whole placement attempt; it is never
// retried. Available carries what the store reported so clients can adjust
// and resubmit.
type InsufficientStockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

// FailureKind classifies a checkout failure for clients.
type FailureKind string

const (
	FailureValidation        FailureKind = "validation"
	FailureNotFound          FailureKind = "not_found"
	FailureInsufficientStock FailureKind = "insufficient_stock"
	FailureConflict          FailureKind = "concurrency_conflict"
	FailureDependency        FailureKind = "dependency"
)

// CheckoutError is the structured failure returned by order placement. It
// names the offending product and, for stock shortfalls, the quantity that
// was actually available.
type CheckoutError struct {
	Kind      FailureKind
	ProductID string
	Requested int
	Available int
	Err       error
}

func (e *CheckoutError) Error() string {
	if e.ProductID != "" {
		return fmt.Sprintf("checkout failed (%s) on product %s: %v", e.Kind, e.ProductID, e.Err)
	}
	return fmt.Sprintf("checkout failed (%s): %v", e.Kind, e.Err)
}

func (e *CheckoutError) Unwrap() error { return e.Err }
