package saga

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"storefront/internal/pkg/logger"
	"storefront/internal/service/order/domain"
	"storefront/internal/service/order/port"
)

// Coordinator orchestrates one order placement: validate, reserve each
// line item against the inventory store, commit the order, and roll every
// held reservation back if anything fails in between. It holds no state
// across requests; each attempt's log lives on its PlacementContext.
type Coordinator struct {
	inventory port.InventoryGateway
	orders    domain.OrderRepository
	tracer    trace.Tracer

	maxAttempts    int
	backoffBase    time.Duration
	releaseRetries int

	// sleepFn is injectable so tests can run the retry loop without
	// wall-clock delays.
	sleepFn func(ctx context.Context, d time.Duration) error

	bg sync.WaitGroup
}

// Option tweaks coordinator behavior.
type Option func(*Coordinator)

func WithRetryPolicy(maxAttempts int, backoffBase time.Duration) Option {
	return func(c *Coordinator) {
		if maxAttempts > 0 {
			c.maxAttempts = maxAttempts
		}
		if backoffBase > 0 {
			c.backoffBase = backoffBase
		}
	}
}

func WithReleaseRetries(n int) Option {
	return func(c *Coordinator) { c.releaseRetries = n }
}

func NewCoordinator(inventory port.InventoryGateway, orders domain.OrderRepository, tracer trace.Tracer, opts ...Option) *Coordinator {
	c := &Coordinator{
		inventory:      inventory,
		orders:         orders,
		tracer:         tracer,
		maxAttempts:    3,
		backoffBase:    25 * time.Millisecond,
		releaseRetries: 3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PlaceOrder runs the full saga for one checkout request. On success it
// returns the persisted order; on failure it returns a
// *domain.CheckoutError after all held reservations have been released
// (or handed to the background retrier).
func (c *Coordinator) PlaceOrder(ctx context.Context, req *PlacementRequest) (*domain.Order, error) {
	ctx, span := c.tracer.Start(ctx, "saga.PlaceOrder")
	defer span.End()
	span.SetAttributes(
		attribute.String("order.id", req.OrderID),
		attribute.String("user.id", req.UserID),
		attribute.Int("cart.items", len(req.Items)),
	)

	pc := &PlacementContext{
		Ctx:       ctx,
		Request:   req,
		Tracer:    c.tracer,
		Inventory: c.inventory,
		state:     StateValidating,
	}

	if err := domain.ValidateCart(req.Items); err != nil {
		pc.setState(StateFailed)
		checkoutFailures.WithLabelValues(string(domain.FailureValidation)).Inc()
		return nil, &domain.CheckoutError{Kind: domain.FailureValidation, Err: err}
	}

	chain := c.buildChain()
	if err := chain.Handle(pc); err != nil {
		pc.setState(StateRollingBack)
		span.RecordError(err)
		span.SetStatus(codes.Error, "placement failed, compensating")
		pc.TriggerCompensation(ctx)
		pc.setState(StateFailed)

		checkoutErr := asCheckoutError(err)
		checkoutFailures.WithLabelValues(string(checkoutErr.Kind)).Inc()
		logger.Ctx(ctx).Warn().
			Err(err).
			Str("order_id", req.OrderID).
			Str("failure_kind", string(checkoutErr.Kind)).
			Msg("order placement failed, reservations rolled back")
		return nil, checkoutErr
	}

	pc.setState(StateCompleted)
	ordersPlaced.Inc()
	logger.Ctx(ctx).Info().
		Str("order_id", pc.Order.ID).
		Float64("total", pc.Order.TotalAmount).
		Int("items", len(pc.Order.Items)).
		Msg("order placed")
	return pc.Order, nil
}

func (c *Coordinator) buildChain() Handler {
	reserve := &ReservationHandler{coordinator: c}
	reserve.SetNext(&CommitHandler{coordinator: c})
	return reserve
}

// release is the compensating half of one reservation. The first attempt
// runs inline so the common case restores stock before checkout returns;
// a failure is logged and handed to a bounded background retrier instead
// of failing the rollback of unrelated items. Each reservation releases
// at most once, enforced by the log entry itself.
func (c *Coordinator) release(ctx context.Context, orderID string, res *Reservation) {
	if !res.markReleased() {
		return
	}
	err := c.inventory.Release(ctx, res.ProductID, res.Quantity)
	if err == nil {
		return
	}
	releaseFailures.Inc()
	logger.Ctx(ctx).Warn().
		Err(err).
		Str("order_id", orderID).
		Str("product_id", res.ProductID).
		Int("quantity", res.Quantity).
		Msg("stock release failed, retrying in background")

	// Keep the trace linkage but detach from the request's deadline: the
	// caller has already been answered.
	spanContext := trace.SpanContextFromContext(ctx)
	bgCtx := trace.ContextWithRemoteSpanContext(context.Background(), spanContext)

	c.bg.Add(1)
	go func() {
		defer c.bg.Done()
		for attempt := 1; attempt <= c.releaseRetries; attempt++ {
			if err := c.sleep(bgCtx, c.backoff(attempt)); err != nil {
				return
			}
			if err := c.inventory.Release(bgCtx, res.ProductID, res.Quantity); err == nil {
				logger.Ctx(bgCtx).Info().
					Str("order_id", orderID).
					Str("product_id", res.ProductID).
					Msg("background stock release succeeded")
				return
			}
		}
		// Inventory now under-reports availability for this product until
		// reconciled. Safe direction, but loud on purpose.
		logger.Ctx(bgCtx).Error().
			Str("order_id", orderID).
			Str("product_id", res.ProductID).
			Int("quantity", res.Quantity).
			Msg("stock release exhausted retries; manual reconciliation required")
	}()
}

// WaitForReleases blocks until in-flight background release retries
// finish. Used by shutdown and tests.
func (c *Coordinator) WaitForReleases() {
	c.bg.Wait()
}

func asCheckoutError(err error) *domain.CheckoutError {
	if ce, ok := err.(*domain.CheckoutError); ok {
		return ce
	}
	return &domain.CheckoutError{Kind: domain.FailureDependency, Err: err}
}
