package saga

import (
	"go.opentelemetry.io/otel/codes"

	"storefront/internal/service/order/domain"
)

// CommitHandler persists the order once every reservation is held. A
// failure here takes the same rollback branch as a failed reservation: a
// held reservation must never outlive a missing order.
type CommitHandler struct {
	NextHandler
	coordinator *Coordinator
}

func (h *CommitHandler) Handle(pc *PlacementContext) error {
	ctx, span := pc.Tracer.Start(pc.Ctx, "saga.CommitOrder")
	defer span.End()

	pc.setState(StateCommitting)

	items := make([]domain.OrderItem, 0, len(pc.Reservations()))
	for _, res := range pc.Reservations() {
		items = append(items, domain.OrderItem{
			ProductID:   res.ProductID,
			ProductName: res.ProductName,
			Quantity:    res.Quantity,
			Price:       res.UnitPrice,
		})
	}

	req := pc.Request
	order := domain.NewOrder(req.OrderID, req.UserID, req.UserName, req.UserEmail,
		items, req.ShippingAddress, req.PaymentMethod)

	if err := h.coordinator.orders.Create(ctx, order); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "order persistence failed")
		return &domain.CheckoutError{Kind: domain.FailureDependency, Err: err}
	}

	span.AddEvent("order persisted with pending status")
	pc.Order = order
	return h.executeNext(pc)
}
