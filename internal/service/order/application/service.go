package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"storefront/internal/pkg/logger"
	"storefront/internal/service/order/application/saga"
	"storefront/internal/service/order/domain"
	"storefront/internal/service/order/port"
)

// OrderApplicationService orchestrates the order use cases: checkout via
// the placement saga, the status manager, and the plain query/delete
// surface.
type OrderApplicationService struct {
	orders      domain.OrderRepository
	coordinator *saga.Coordinator
	events      port.EventProducer // nil when no broker is configured
	tracer      trace.Tracer
}

func NewOrderApplicationService(orders domain.OrderRepository, coordinator *saga.Coordinator, events port.EventProducer, tracer trace.Tracer) *OrderApplicationService {
	return &OrderApplicationService{
		orders:      orders,
		coordinator: coordinator,
		events:      events,
		tracer:      tracer,
	}
}

// Checkout validates the request and drives the placement saga. The
// returned order is already persisted with every reservation held.
func (s *OrderApplicationService) Checkout(ctx context.Context, req *CheckoutRequest) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "app.Checkout")
	defer span.End()

	if req.UserID == "" {
		return nil, &domain.CheckoutError{
			Kind: domain.FailureValidation,
			Err:  &domain.ValidationError{Field: "userId", Reason: "required"},
		}
	}
	payment, err := domain.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		return nil, &domain.CheckoutError{Kind: domain.FailureValidation, Err: err}
	}

	placement := &saga.PlacementRequest{
		OrderID:         uuid.New().String(),
		UserID:          req.UserID,
		UserName:        req.UserName,
		UserEmail:       req.UserEmail,
		Items:           req.Items,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   payment,
	}
	span.SetAttributes(attribute.String("order.id", placement.OrderID))

	order, err := s.coordinator.PlaceOrder(ctx, placement)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "checkout failed")
		return nil, err
	}

	s.publishPlaced(ctx, order)
	return order, nil
}

// UpdateStatus is the order status manager: it validates the supplied
// value against the enumerated set and applies it to an existing order.
func (s *OrderApplicationService) UpdateStatus(ctx context.Context, orderID, rawStatus string) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "app.UpdateOrderStatus")
	defer span.End()
	span.SetAttributes(
		attribute.String("order.id", orderID),
		attribute.String("order.status", rawStatus),
	)

	status, err := domain.ParseStatus(rawStatus)
	if err != nil {
		return nil, err
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := s.orders.UpdateStatus(ctx, orderID, status); err != nil {
		span.RecordError(err)
		return nil, err
	}
	order.Status = status
	order.UpdatedAt = time.Now()

	s.publishStatusChanged(ctx, orderID, status)
	return order, nil
}

func (s *OrderApplicationService) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "app.GetOrder")
	defer span.End()
	return s.orders.FindByID(ctx, id)
}

func (s *OrderApplicationService) ListOrders(ctx context.Context) ([]*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "app.ListOrders")
	defer span.End()
	return s.orders.FindAll(ctx)
}

func (s *OrderApplicationService) ListUserOrders(ctx context.Context, userID string) ([]*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "app.ListUserOrders")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))
	return s.orders.FindByUser(ctx, userID)
}

func (s *OrderApplicationService) DeleteOrder(ctx context.Context, id string) error {
	ctx, span := s.tracer.Start(ctx, "app.DeleteOrder")
	defer span.End()
	return s.orders.Delete(ctx, id)
}

// Event publication is fire-and-forget: the order already committed, so a
// broker hiccup is logged and never propagated to the caller.
func (s *OrderApplicationService) publishPlaced(ctx context.Context, order *domain.Order) {
	if s.events == nil {
		return
	}
	event := &domain.OrderPlacedEvent{
		OrderID:     order.ID,
		UserID:      order.UserID,
		Items:       order.Items,
		TotalAmount: order.TotalAmount,
		PlacedAt:    order.CreatedAt,
	}
	if err := s.events.OrderPlaced(ctx, event); err != nil {
		logger.Ctx(ctx).Error().Err(err).Str("order_id", order.ID).Msg("failed to publish order placed event")
	}
}

func (s *OrderApplicationService) publishStatusChanged(ctx context.Context, orderID string, status domain.Status) {
	if s.events == nil {
		return
	}
	event := &domain.OrderStatusChangedEvent{
		OrderID:   orderID,
		Status:    status,
		ChangedAt: time.Now(),
	}
	if err := s.events.OrderStatusChanged(ctx, event); err != nil {
		logger.Ctx(ctx).Error().Err(err).Str("order_id", orderID).Msg("failed to publish status changed event")
	}
}
