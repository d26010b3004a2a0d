package interfaces

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"storefront/internal/service/inventory/application"
	"storefront/internal/service/inventory/infrastructure"
)

func newTestMux(t *testing.T) *http.ServeMux {
	t.Helper()
	repo := infrastructure.NewMemoryProductRepository()
	service := application.NewInventoryApplicationService(repo, nil, otel.Tracer("inventory-http-test"))
	mux := http.NewServeMux()
	NewInventoryHandler(service).RegisterRoutes(mux)
	return mux
}

type responseBody struct {
	Success   bool            `json:"success"`
	Count     int             `json:"count"`
	Data      json.RawMessage `json:"data"`
	Message   string          `json:"message"`
	Available *int            `json:"available"`
}

func doRequest(t *testing.T, mux *http.ServeMux, method, path string, payload interface{}) (*httptest.ResponseRecorder, responseBody) {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}
	req := httptest.NewRequest(method, path, &body)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	var parsed responseBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &parsed))
	return rec, parsed
}

func createProduct(t *testing.T, mux *http.ServeMux, name string, price float64, stock int) string {
	t.Helper()
	rec, body := doRequest(t, mux, http.MethodPost, "/api/products", map[string]interface{}{
		"name":  name,
		"price": price,
		"stock": stock,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var product struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &product))
	require.NotEmpty(t, product.ID)
	return product.ID
}

func TestProductCRUD(t *testing.T) {
	mux := newTestMux(t)
	id := createProduct(t, mux, "Keyboard", 49.99, 10)

	rec, body := doRequest(t, mux, http.MethodGet, "/api/products/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var product struct {
		Name    string  `json:"name"`
		Price   float64 `json:"price"`
		Stock   int     `json:"stock"`
		Version int64   `json:"version"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &product))
	assert.Equal(t, "Keyboard", product.Name)
	assert.Equal(t, 10, product.Stock)
	assert.Equal(t, int64(0), product.Version)

	rec, body = doRequest(t, mux, http.MethodGet, "/api/products", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, body.Count)

	rec, _ = doRequest(t, mux, http.MethodPut, "/api/products/"+id, map[string]interface{}{
		"name":  "Mechanical Keyboard",
		"price": 89.99,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = doRequest(t, mux, http.MethodDelete, "/api/products/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = doRequest(t, mux, http.MethodGet, "/api/products/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateProduct_RejectsInvalidPayload(t *testing.T) {
	mux := newTestMux(t)

	rec, _ := doRequest(t, mux, http.MethodPost, "/api/products", map[string]interface{}{
		"price": 10.0,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = doRequest(t, mux, http.MethodPost, "/api/products", map[string]interface{}{
		"name":  "Broken",
		"price": -1.0,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReserveAndRelease_Flow(t *testing.T) {
	mux := newTestMux(t)
	id := createProduct(t, mux, "Console", 499, 5)

	rec, body := doRequest(t, mux, http.MethodGet, "/api/products/"+id+"/availability", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var avail struct {
		Stock   int   `json:"stock"`
		Version int64 `json:"version"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &avail))
	assert.Equal(t, 5, avail.Stock)

	rec, body = doRequest(t, mux, http.MethodPost, "/api/products/"+id+"/reserve", map[string]interface{}{
		"quantity":        3,
		"expectedVersion": avail.Version,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var versioned struct {
		Version int64 `json:"version"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &versioned))
	assert.Equal(t, avail.Version+1, versioned.Version)

	// Stale version is rejected with 409 and no stock change.
	rec, _ = doRequest(t, mux, http.MethodPost, "/api/products/"+id+"/reserve", map[string]interface{}{
		"quantity":        1,
		"expectedVersion": avail.Version,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Requesting more than remains reports the observed availability.
	rec, body = doRequest(t, mux, http.MethodPost, "/api/products/"+id+"/reserve", map[string]interface{}{
		"quantity":        4,
		"expectedVersion": versioned.Version,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.NotNil(t, body.Available)
	assert.Equal(t, 2, *body.Available)

	rec, _ = doRequest(t, mux, http.MethodPost, "/api/products/"+id+"/release", map[string]interface{}{
		"quantity": 3,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body = doRequest(t, mux, http.MethodGet, "/api/products/"+id+"/availability", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(body.Data, &avail))
	assert.Equal(t, 5, avail.Stock)
}

func TestReserve_RejectsNonPositiveQuantity(t *testing.T) {
	mux := newTestMux(t)
	id := createProduct(t, mux, "Lamp", 30, 2)

	rec, _ := doRequest(t, mux, http.MethodPost, "/api/products/"+id+"/reserve", map[string]interface{}{
		"quantity":        0,
		"expectedVersion": 0,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReserve_UnknownProduct(t *testing.T) {
	mux := newTestMux(t)

	rec, _ := doRequest(t, mux, http.MethodPost, "/api/products/ghost/reserve", map[string]interface{}{
		"quantity":        1,
		"expectedVersion": 0,
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
