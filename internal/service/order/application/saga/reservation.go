package saga

import (
	"context"
	"math/rand"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"storefront/internal/pkg/logger"
	"storefront/internal/service/order/domain"
)

// ReservationHandler drives the per-item reservation step. Items are
// processed in submitted order; the deterministic sequence bounds rollback
// and keeps concurrent multi-item orders from starving each other under
// the optimistic-retry scheme.
type ReservationHandler struct {
	NextHandler
	coordinator *Coordinator
}

func (h *ReservationHandler) Handle(pc *PlacementContext) error {
	ctx, span := pc.Tracer.Start(pc.Ctx, "saga.ReserveItems")
	defer span.End()

	pc.setState(StateReserving)
	span.SetAttributes(attribute.Int("cart.items", len(pc.Request.Items)))

	for _, item := range pc.Request.Items {
		res, err := h.reserveItem(ctx, pc, item)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "reservation failed")
			return err
		}

		// Register the compensating release the moment the decrement
		// commits, so rollback can never miss a held reservation.
		pc.AddReservation(res, func(compCtx context.Context) {
			compCtx, compSpan := pc.Tracer.Start(compCtx, "saga.compensation.ReleaseStock")
			defer compSpan.End()
			compSpan.SetAttributes(
				attribute.String("product.id", res.ProductID),
				attribute.Int("release.quantity", res.Quantity),
			)
			h.coordinator.release(compCtx, pc.Request.OrderID, res)
		})
	}

	pc.setState(StateAllReserved)
	span.AddEvent("all items reserved")
	return h.executeNext(pc)
}

// reserveItem runs the availability-read / conditional-write loop for one
// line item. Conflicts and timeouts are retried inside the budget with
// jittered backoff; shortfalls and unknown products abort immediately.
func (h *ReservationHandler) reserveItem(ctx context.Context, pc *PlacementContext, item domain.CartItem) (*Reservation, error) {
	c := h.coordinator
	var lastErr error

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			reservationRetries.Inc()
			if err := c.sleep(ctx, c.backoff(attempt-1)); err != nil {
				lastErr = err
				break
			}
		}

		avail, err := pc.Inventory.GetAvailability(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, domain.ErrProductNotFound) {
				return nil, &domain.CheckoutError{
					Kind:      domain.FailureNotFound,
					ProductID: item.ProductID,
					Requested: item.Quantity,
					Err:       err,
				}
			}
			// Availability reads are idempotent-safe, so a dependency
			// failure here just consumes a retry slot.
			lastErr = err
			continue
		}

		if avail.Stock < item.Quantity {
			return nil, &domain.CheckoutError{
				Kind:      domain.FailureInsufficientStock,
				ProductID: item.ProductID,
				Requested: item.Quantity,
				Available: avail.Stock,
				Err: &domain.InsufficientStockError{
					ProductID: item.ProductID,
					Requested: item.Quantity,
					Available: avail.Stock,
				},
			}
		}

		_, err = pc.Inventory.TryReserve(ctx, item.ProductID, item.Quantity, avail.Version)
		if err == nil {
			return &Reservation{
				ProductID:   item.ProductID,
				ProductName: avail.Name,
				Quantity:    item.Quantity,
				UnitPrice:   avail.Price,
			}, nil
		}

		var stockErr *domain.InsufficientStockError
		switch {
		case errors.As(err, &stockErr):
			// The store observed the shortfall atomically; trust its count
			// over our stale read.
			return nil, &domain.CheckoutError{
				Kind:      domain.FailureInsufficientStock,
				ProductID: item.ProductID,
				Requested: item.Quantity,
				Available: stockErr.Available,
				Err:       err,
			}
		case errors.Is(err, domain.ErrProductNotFound):
			return nil, &domain.CheckoutError{
				Kind:      domain.FailureNotFound,
				ProductID: item.ProductID,
				Requested: item.Quantity,
				Err:       err,
			}
		default:
			// Version conflict or remote failure: both take the retry
			// path. A timed-out TryReserve may or may not have landed;
			// the re-read resolves it because a landed write advances the
			// version we key the next attempt on.
			lastErr = err
			logger.Ctx(ctx).Debug().
				Err(err).
				Str("order_id", pc.Request.OrderID).
				Str("product_id", item.ProductID).
				Int("attempt", attempt).
				Msg("reservation attempt rejected, retrying")
		}
	}

	kind := domain.FailureDependency
	if errors.Is(lastErr, domain.ErrVersionConflict) {
		kind = domain.FailureConflict
	}
	return nil, &domain.CheckoutError{
		Kind:      kind,
		ProductID: item.ProductID,
		Requested: item.Quantity,
		Err:       errors.Wrapf(lastErr, "reservation budget exhausted after %d attempts", h.coordinator.maxAttempts),
	}
}

// backoff returns the jittered delay before retry n (1-based).
func (c *Coordinator) backoff(n int) time.Duration {
	base := c.backoffBase << (n - 1)
	jitter := time.Duration(rand.Int63n(int64(base)/2 + 1))
	return base + jitter
}

// sleep waits for d or until ctx is done, whichever comes first.
func (c *Coordinator) sleep(ctx context.Context, d time.Duration) error {
	if c.sleepFn != nil {
		return c.sleepFn(ctx, d)
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
