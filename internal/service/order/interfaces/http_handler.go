package interfaces

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"storefront/internal/service/order/application"
	"storefront/internal/service/order/domain"
)

// OrderHandler exposes checkout, order queries, and status updates.
type OrderHandler struct {
	service *application.OrderApplicationService
}

func NewOrderHandler(service *application.OrderApplicationService) *OrderHandler {
	return &OrderHandler{service: service}
}

// RegisterRoutes registers all routes on the ServeMux.
func (h *OrderHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("POST /api/orders", h.createOrder)
	mux.HandleFunc("GET /api/orders", h.listOrders)
	mux.HandleFunc("GET /api/orders/{id}", h.getOrder)
	mux.HandleFunc("DELETE /api/orders/{id}", h.deleteOrder)
	mux.HandleFunc("PUT /api/orders/{id}/status", h.updateStatus)
	mux.HandleFunc("GET /api/orders/user/{userId}", h.listUserOrders)
}

type orderView struct {
	ID              string             `json:"id"`
	UserID          string             `json:"userId"`
	UserName        string             `json:"userName,omitempty"`
	UserEmail       string             `json:"userEmail,omitempty"`
	Items           []domain.OrderItem `json:"items"`
	TotalAmount     float64            `json:"totalAmount"`
	ShippingAddress domain.Address     `json:"shippingAddress"`
	PaymentMethod   string             `json:"paymentMethod"`
	Status          string             `json:"status"`
	CreatedAt       string             `json:"createdAt"`
}

func toOrderView(o *domain.Order) orderView {
	return orderView{
		ID:              o.ID,
		UserID:          o.UserID,
		UserName:        o.UserName,
		UserEmail:       o.UserEmail,
		Items:           o.Items,
		TotalAmount:     o.TotalAmount,
		ShippingAddress: o.ShippingAddress,
		PaymentMethod:   string(o.PaymentMethod),
		Status:          string(o.Status),
		CreatedAt:       o.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}

func (h *OrderHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	ctx := extract(r)
	var req application.CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, envelope{Success: false, Message: "invalid request body"})
		return
	}
	order, err := h.service.Checkout(ctx, &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, envelope{Success: true, Data: toOrderView(order)})
}

func (h *OrderHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := extract(r)
	orders, err := h.service.ListOrders(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Count: len(orders), Data: toOrderViews(orders)})
}

func (h *OrderHandler) listUserOrders(w http.ResponseWriter, r *http.Request) {
	ctx := extract(r)
	orders, err := h.service.ListUserOrders(ctx, r.PathValue("userId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Count: len(orders), Data: toOrderViews(orders)})
}

func (h *OrderHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := extract(r)
	order, err := h.service.GetOrder(ctx, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: toOrderView(order)})
}

func (h *OrderHandler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	ctx := extract(r)
	if err := h.service.DeleteOrder(ctx, r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "Order deleted successfully"})
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *OrderHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := extract(r)
	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, envelope{Success: false, Message: "invalid request body"})
		return
	}
	order, err := h.service.UpdateStatus(ctx, r.PathValue("id"), req.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: toOrderView(order)})
}

func toOrderViews(orders []*domain.Order) []orderView {
	views := make([]orderView, 0, len(orders))
	for _, o := range orders {
		views = append(views, toOrderView(o))
	}
	return views
}

// envelope mirrors the response shape the storefront frontend expects.
// checkoutFailure rides along on failed placements so clients can tell
// which item failed and how much stock remained.
type envelope struct {
	Success bool             `json:"success"`
	Count   int              `json:"count,omitempty"`
	Data    interface{}      `json:"data,omitempty"`
	Message string           `json:"message,omitempty"`
	Error   *checkoutFailure `json:"error,omitempty"`
}

type checkoutFailure struct {
	Kind      string `json:"kind"`
	ProductID string `json:"productId,omitempty"`
	Requested int    `json:"requested,omitempty"`
	Available *int   `json:"available,omitempty"`
}

func writeError(w http.ResponseWriter, err error) {
	var (
		checkoutErr *domain.CheckoutError
		statusErr   *domain.InvalidStatusError
	)
	switch {
	case errors.As(err, &checkoutErr):
		writeCheckoutError(w, checkoutErr)
	case errors.As(err, &statusErr):
		writeJSON(w, http.StatusBadRequest, envelope{Success: false, Message: statusErr.Error()})
	case errors.Is(err, domain.ErrOrderNotFound):
		writeJSON(w, http.StatusNotFound, envelope{Success: false, Message: "Order not found"})
	default:
		writeJSON(w, http.StatusInternalServerError, envelope{Success: false, Message: err.Error()})
	}
}

func writeCheckoutError(w http.ResponseWriter, checkoutErr *domain.CheckoutError) {
	failure := &checkoutFailure{
		Kind:      string(checkoutErr.Kind),
		ProductID: checkoutErr.ProductID,
		Requested: checkoutErr.Requested,
	}
	status := http.StatusInternalServerError
	switch checkoutErr.Kind {
	case domain.FailureValidation:
		status = http.StatusBadRequest
	case domain.FailureNotFound:
		status = http.StatusNotFound
	case domain.FailureInsufficientStock:
		status = http.StatusConflict
		available := checkoutErr.Available
		failure.Available = &available
	case domain.FailureConflict:
		status = http.StatusConflict
	case domain.FailureDependency:
		status = http.StatusBadGateway
	}
	writeJSON(w, status, envelope{Success: false, Message: checkoutErr.Error(), Error: failure})
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func extract(r *http.Request) context.Context {
	propagator := otel.GetTextMapPropagator()
	return propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
}
