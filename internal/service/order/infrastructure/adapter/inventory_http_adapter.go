package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"storefront/internal/pkg/httpclient"
	"storefront/internal/service/order/domain"
	"storefront/internal/service/order/port"
)

// InventoryHTTPAdapter implements port.InventoryGateway against the
// inventory service's REST API. Every call carries a bounded timeout so a
// hung inventory node cannot stall the placement task.
type InventoryHTTPAdapter struct {
	client         *httpclient.Client
	baseURL        string
	requestTimeout time.Duration
}

func NewInventoryHTTPAdapter(client *httpclient.Client, baseURL string, requestTimeout time.Duration) *InventoryHTTPAdapter {
	if requestTimeout <= 0 {
		requestTimeout = 2 * time.Second
	}
	return &InventoryHTTPAdapter{
		client:         client,
		baseURL:        baseURL,
		requestTimeout: requestTimeout,
	}
}

// inventoryEnvelope mirrors the inventory service's response shape.
type inventoryEnvelope struct {
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data"`
	Message   string          `json:"message"`
	Available *int            `json:"available"`
}

type availabilityPayload struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Stock     int     `json:"stock"`
	Version   int64   `json:"version"`
}

type versionPayload struct {
	Version int64 `json:"version"`
}

func (a *InventoryHTTPAdapter) GetAvailability(ctx context.Context, productID string) (port.Availability, error) {
	ctx, cancel := context.WithTimeout(ctx, a.requestTimeout)
	defer cancel()

	url := fmt.Sprintf("%s/api/products/%s/availability", a.baseURL, productID)
	resp, err := a.client.DoJSON(ctx, http.MethodGet, url, nil)
	if err != nil {
		return port.Availability{}, errors.Wrap(err, "inventory gateway: availability call")
	}
	defer resp.Body.Close()

	env, err := decodeEnvelope(resp)
	if err != nil {
		return port.Availability{}, err
	}
	switch resp.StatusCode {
	case http.StatusOK:
		var payload availabilityPayload
		if err := json.Unmarshal(env.Data, &payload); err != nil {
			return port.Availability{}, errors.Wrap(err, "inventory gateway: decode availability")
		}
		return port.Availability{
			ProductID: payload.ProductID,
			Name:      payload.Name,
			Price:     payload.Price,
			Stock:     payload.Stock,
			Version:   payload.Version,
		}, nil
	case http.StatusNotFound:
		return port.Availability{}, domain.ErrProductNotFound
	default:
		return port.Availability{}, errors.Errorf("inventory gateway: availability returned %d: %s", resp.StatusCode, env.Message)
	}
}

func (a *InventoryHTTPAdapter) TryReserve(ctx context.Context, productID string, quantity int, expectedVersion int64) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, a.requestTimeout)
	defer cancel()

	url := fmt.Sprintf("%s/api/products/%s/reserve", a.baseURL, productID)
	body := map[string]interface{}{
		"quantity":        quantity,
		"expectedVersion": expectedVersion,
	}
	resp, err := a.client.DoJSON(ctx, http.MethodPost, url, body)
	if err != nil {
		return 0, errors.Wrap(err, "inventory gateway: reserve call")
	}
	defer resp.Body.Close()

	env, err := decodeEnvelope(resp)
	if err != nil {
		return 0, err
	}
	switch resp.StatusCode {
	case http.StatusOK:
		var payload versionPayload
		if err := json.Unmarshal(env.Data, &payload); err != nil {
			return 0, errors.Wrap(err, "inventory gateway: decode reserve response")
		}
		return payload.Version, nil
	case http.StatusNotFound:
		return 0, domain.ErrProductNotFound
	case http.StatusConflict:
		return 0, domain.ErrVersionConflict
	case http.StatusUnprocessableEntity:
		available := 0
		if env.Available != nil {
			available = *env.Available
		}
		return 0, &domain.InsufficientStockError{
			ProductID: productID,
			Requested: quantity,
			Available: available,
		}
	default:
		return 0, errors.Errorf("inventory gateway: reserve returned %d: %s", resp.StatusCode, env.Message)
	}
}

func (a *InventoryHTTPAdapter) Release(ctx context.Context, productID string, quantity int) error {
	ctx, cancel := context.WithTimeout(ctx, a.requestTimeout)
	defer cancel()

	url := fmt.Sprintf("%s/api/products/%s/release", a.baseURL, productID)
	resp, err := a.client.DoJSON(ctx, http.MethodPost, url, map[string]interface{}{"quantity": quantity})
	if err != nil {
		return errors.Wrap(err, "inventory gateway: release call")
	}
	defer resp.Body.Close()

	env, err := decodeEnvelope(resp)
	if err != nil {
		return err
	}
	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
		return domain.ErrProductNotFound
	default:
		return errors.Errorf("inventory gateway: release returned %d: %s", resp.StatusCode, env.Message)
	}
}

func decodeEnvelope(resp *http.Response) (*inventoryEnvelope, error) {
	var env inventoryEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, errors.Wrap(err, "inventory gateway: decode response envelope")
	}
	return &env, nil
}

var _ port.InventoryGateway = (*InventoryHTTPAdapter)(nil)
