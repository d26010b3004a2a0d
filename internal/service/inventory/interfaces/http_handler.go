package interfaces

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"storefront/internal/service/inventory/application"
	"storefront/internal/service/inventory/domain"
)

// InventoryHandler exposes the catalog CRUD surface plus the conditional
// reservation API consumed by the order service.
type InventoryHandler struct {
	service *application.InventoryApplicationService
}

func NewInventoryHandler(service *application.InventoryApplicationService) *InventoryHandler {
	return &InventoryHandler{service: service}
}

// RegisterRoutes registers all routes on the ServeMux.
func (h *InventoryHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("GET /api/products", h.listProducts)
	mux.HandleFunc("POST /api/products", h.createProduct)
	mux.HandleFunc("GET /api/products/{id}", h.getProduct)
	mux.HandleFunc("PUT /api/products/{id}", h.updateProduct)
	mux.HandleFunc("DELETE /api/products/{id}", h.deleteProduct)
	mux.HandleFunc("GET /api/products/{id}/availability", h.getAvailability)
	mux.HandleFunc("POST /api/products/{id}/reserve", h.reserveStock)
	mux.HandleFunc("POST /api/products/{id}/release", h.releaseStock)
}

type productPayload struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Stock       int     `json:"stock"`
}

type reserveRequest struct {
	Quantity        int   `json:"quantity"`
	ExpectedVersion int64 `json:"expectedVersion"`
}

type releaseRequest struct {
	Quantity int `json:"quantity"`
}

type productView struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Price       float64 `json:"price"`
	Stock       int     `json:"stock"`
	Version     int64   `json:"version"`
	CreatedAt   string  `json:"createdAt"`
}

func toProductView(p *domain.Product) productView {
	return productView{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Stock:       p.Stock,
		Version:     p.Version,
		CreatedAt:   p.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}

func (h *InventoryHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx := extract(r)
	products, err := h.service.ListProducts(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	views := make([]productView, 0, len(products))
	for _, p := range products {
		views = append(views, toProductView(p))
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Count: len(views), Data: views})
}

func (h *InventoryHandler) createProduct(w http.ResponseWriter, r *http.Request) {
	ctx := extract(r)
	var payload productPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, envelope{Success: false, Message: "invalid request body"})
		return
	}
	if payload.Name == "" || payload.Price < 0 || payload.Stock < 0 {
		writeJSON(w, http.StatusBadRequest, envelope{Success: false, Message: "name is required and price/stock must be non-negative"})
		return
	}
	product, err := h.service.CreateProduct(ctx, application.CreateProductInput{
		Name:        payload.Name,
		Description: payload.Description,
		Price:       payload.Price,
		Stock:       payload.Stock,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, envelope{Success: true, Data: toProductView(product)})
}

func (h *InventoryHandler) getProduct(w http.ResponseWriter, r *http.Request) {
	ctx := extract(r)
	product, err := h.service.GetProduct(ctx, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: toProductView(product)})
}

func (h *InventoryHandler) updateProduct(w http.ResponseWriter, r *http.Request) {
	ctx := extract(r)
	var payload productPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, envelope{Success: false, Message: "invalid request body"})
		return
	}
	product, err := h.service.UpdateProduct(ctx, r.PathValue("id"), application.CreateProductInput{
		Name:        payload.Name,
		Description: payload.Description,
		Price:       payload.Price,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: toProductView(product)})
}

func (h *InventoryHandler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	ctx := extract(r)
	if err := h.service.DeleteProduct(ctx, r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "product deleted successfully"})
}

func (h *InventoryHandler) getAvailability(w http.ResponseWriter, r *http.Request) {
	ctx := extract(r)
	availability, err := h.service.GetAvailability(ctx, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: availability})
}

func (h *InventoryHandler) reserveStock(w http.ResponseWriter, r *http.Request) {
	ctx := extract(r)
	var payload reserveRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, envelope{Success: false, Message: "invalid request body"})
		return
	}
	if payload.Quantity <= 0 {
		writeJSON(w, http.StatusBadRequest, envelope{Success: false, Message: "quantity must be positive"})
		return
	}
	newVersion, err := h.service.Reserve(ctx, r.PathValue("id"), payload.Quantity, payload.ExpectedVersion)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: map[string]int64{"version": newVersion}})
}

func (h *InventoryHandler) releaseStock(w http.ResponseWriter, r *http.Request) {
	ctx := extract(r)
	var payload releaseRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, envelope{Success: false, Message: "invalid request body"})
		return
	}
	if payload.Quantity <= 0 {
		writeJSON(w, http.StatusBadRequest, envelope{Success: false, Message: "quantity must be positive"})
		return
	}
	newVersion, err := h.service.Release(ctx, r.PathValue("id"), payload.Quantity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: map[string]int64{"version": newVersion}})
}

// envelope mirrors the response shape the storefront frontend expects.
type envelope struct {
	Success   bool        `json:"success"`
	Count     int         `json:"count,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Message   string      `json:"message,omitempty"`
	Available *int        `json:"available,omitempty"`
}

func writeError(w http.ResponseWriter, err error) {
	var stockErr *domain.InsufficientStockError
	switch {
	case errors.Is(err, domain.ErrProductNotFound):
		writeJSON(w, http.StatusNotFound, envelope{Success: false, Message: "Product not found"})
	case errors.As(err, &stockErr):
		available := stockErr.Available
		writeJSON(w, http.StatusUnprocessableEntity, envelope{
			Success:   false,
			Message:   stockErr.Error(),
			Available: &available,
		})
	case errors.Is(err, domain.ErrVersionConflict):
		writeJSON(w, http.StatusConflict, envelope{Success: false, Message: "stock version conflict"})
	default:
		writeJSON(w, http.StatusInternalServerError, envelope{Success: false, Message: err.Error()})
	}
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
