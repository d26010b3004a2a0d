package saga

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/trace"

	"storefront/internal/pkg/logger"
	"storefront/internal/service/order/domain"
	"storefront/internal/service/order/port"
)

// State tracks one placement attempt through the saga.
type State string

const (
	StateValidating  State = "VALIDATING"
	StateReserving   State = "RESERVING"
	StateAllReserved State = "ALL_RESERVED"
	StateCommitting  State = "COMMITTING"
	StateCompleted   State = "COMPLETED"
	StateRollingBack State = "ROLLING_BACK"
	StateFailed      State = "FAILED"
)

// PlacementRequest is the validated input for one placement attempt.
type PlacementRequest struct {
	OrderID         string
	UserID          string
	UserName        string
	UserEmail       string
	Items           []domain.CartItem
	ShippingAddress domain.Address
	PaymentMethod   domain.PaymentMethod
}

// Reservation is a coordinator-local record of one committed stock
// decrement. It lives only for the duration of the attempt and carries the
// price/name snapshot taken from the availability read that keyed the
// conditional write.
type Reservation struct {
	ProductID   string
	ProductName string
	Quantity    int
	UnitPrice   float64

	mu       sync.Mutex
	released bool
}

// markReleased flips the released flag once. The second caller gets false,
// which is how a double rollback is deduped without asking the store.
func (r *Reservation) markReleased() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released {
		return false
	}
	r.released = true
	return true
}

// PlacementContext carries one attempt's state through the handler chain.
// All of it is local to the attempt's task; nothing here is shared across
// requests.
type PlacementContext struct {
	Ctx     context.Context
	Request *PlacementRequest
	Tracer  trace.Tracer

	Inventory port.InventoryGateway

	// Order is populated by the commit step on success.
	Order *domain.Order

	state         State
	reservations  []*Reservation
	compensations []func(ctx context.Context)
	compLock      sync.Mutex
}

func (c *PlacementContext) setState(s State) { c.state = s }

// CurrentState reports where the attempt is (or ended up).
func (c *PlacementContext) CurrentState() State { return c.state }

// Reservations returns the commit log in reservation order.
func (c *PlacementContext) Reservations() []*Reservation { return c.reservations }

// AddReservation appends to the commit log and registers the matching
// compensation. Compensations are prepended so rollback runs LIFO.
func (c *PlacementContext) AddReservation(res *Reservation, comp func(ctx context.Context)) {
	c.compLock.Lock()
	defer c.compLock.Unlock()
	c.reservations = append(c.reservations, res)
	c.compensations = append([]func(context.Context){comp}, c.compensations...)
}

// TriggerCompensation runs every registered compensation, newest first.
// Compensations are best-effort by contract: they log their own failures
// and never propagate them.
func (c *PlacementContext) TriggerCompensation(ctx context.Context) {
	c.compLock.Lock()
	comps := c.compensations
	c.compensations = nil
	c.compLock.Unlock()

	logger.Ctx(ctx).Info().
		Str("order_id", c.Request.OrderID).
		Int("compensations", len(comps)).
		Msg("executing saga compensations")
	for _, comp := range comps {
		comp(ctx)
	}
}

// Handler is one step of the placement chain.
type Handler interface {
	SetNext(handler Handler) Handler
	Handle(pc *PlacementContext) error
}

// NextHandler provides the chain plumbing embedded by every step.
type NextHandler struct {
	next Handler
}

func (h *NextHandler) SetNext(handler Handler) Handler {
	h.next = handler
	return handler
}

func (h *NextHandler) executeNext(pc *PlacementContext) error {
	if h.next != nil {
		return h.next.Handle(pc)
	}
	return nil
}
