package port

import (
	"context"

	"storefront/internal/service/order/domain"
)

// EventProducer is the outbound port for order lifecycle events. Both
// operations are fire-and-forget from the caller's perspective: event
// publication never fails a request that already committed.
type EventProducer interface {
	OrderPlaced(ctx context.Context, event *domain.OrderPlacedEvent) error
	OrderStatusChanged(ctx context.Context, event *domain.OrderStatusChangedEvent) error
}
