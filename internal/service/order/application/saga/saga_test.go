package saga

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"storefront/internal/service/order/domain"
	"storefront/internal/service/order/infrastructure"
	"storefront/internal/service/order/port"
)

type fakeProduct struct {
	name    string
	price   float64
	stock   int
	version int64
}

// fakeInventory implements port.InventoryGateway with the same versioned
// check-and-set semantics as the real store, plus hooks to inject
// conflicts and failures.
type fakeInventory struct {
	mu       sync.Mutex
	products map[string]*fakeProduct

	reserveCalls int
	releaseCalls int

	// beforeReserve runs with the lock held before each TryReserve, so a
	// test can mutate state between the availability read and the write.
	beforeReserve func(inv *fakeInventory, productID string)
	reserveErr    func(productID string, call int) error
	releaseErr    func(productID string, call int) error
}

func newFakeInventory() *fakeInventory {
	return &fakeInventory{products: make(map[string]*fakeProduct)}
}

func (f *fakeInventory) add(id, name string, price float64, stock int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.products[id] = &fakeProduct{name: name, price: price, stock: stock}
}

func (f *fakeInventory) stockOf(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.products[id].stock
}

func (f *fakeInventory) GetAvailability(ctx context.Context, productID string) (port.Availability, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[productID]
	if !ok {
		return port.Availability{}, domain.ErrProductNotFound
	}
	return port.Availability{
		ProductID: productID,
		Name:      p.name,
		Price:     p.price,
		Stock:     p.stock,
		Version:   p.version,
	}, nil
}

func (f *fakeInventory) TryReserve(ctx context.Context, productID string, quantity int, expectedVersion int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reserveCalls++
	if f.reserveErr != nil {
		if err := f.reserveErr(productID, f.reserveCalls); err != nil {
			return 0, err
		}
	}
	if f.beforeReserve != nil {
		f.beforeReserve(f, productID)
	}
	p, ok := f.products[productID]
	if !ok {
		return 0, domain.ErrProductNotFound
	}
	if p.version != expectedVersion {
		return 0, domain.ErrVersionConflict
	}
	if p.stock < quantity {
		return 0, &domain.InsufficientStockError{
			ProductID: productID,
			Requested: quantity,
			Available: p.stock,
		}
	}
	p.stock -= quantity
	p.version++
	return p.version, nil
}

func (f *fakeInventory) Release(ctx context.Context, productID string, quantity int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.releaseCalls++
	if f.releaseErr != nil {
		if err := f.releaseErr(productID, f.releaseCalls); err != nil {
			return err
		}
	}
	p, ok := f.products[productID]
	if !ok {
		return domain.ErrProductNotFound
	}
	p.stock += quantity
	p.version++
	return nil
}

// failingOrderRepo fails Create, simulating a dead order store at commit.
type failingOrderRepo struct {
	domain.OrderRepository
}

func (r *failingOrderRepo) Create(ctx context.Context, order *domain.Order) error {
	return errors.New("order store unavailable")
}

func newTestCoordinator(inv port.InventoryGateway, repo domain.OrderRepository, opts ...Option) *Coordinator {
	c := NewCoordinator(inv, repo, otel.Tracer("saga-test"), opts...)
	c.sleepFn = func(ctx context.Context, d time.Duration) error { return nil }
	return c
}

func placementRequest(items ...domain.CartItem) *PlacementRequest {
	return &PlacementRequest{
		OrderID:   "order-1",
		UserID:    "user-1",
		UserName:  "Ada",
		UserEmail: "ada@example.com",
		Items:     items,
		ShippingAddress: domain.Address{
			Street: "1 Main St", City: "Springfield", PostalCode: "12345", Country: "US",
		},
		PaymentMethod: domain.PaymentCreditCard,
	}
}

func TestPlaceOrder_Success(t *testing.T) {
	inv := newFakeInventory()
	inv.add("p1", "Keyboard", 49.99, 10)
	inv.add("p2", "Mouse", 19.99, 4)
	repo := infrastructure.NewMemoryOrderRepository()
	c := newTestCoordinator(inv, repo)

	order, err := c.PlaceOrder(context.Background(), placementRequest(
		domain.CartItem{ProductID: "p1", Quantity: 2},
		domain.CartItem{ProductID: "p2", Quantity: 1},
	))
	require.NoError(t, err)
	require.NotNil(t, order)

	assert.Equal(t, domain.StatusPending, order.Status)
	assert.InDelta(t, 2*49.99+19.99, order.TotalAmount, 1e-9)
	require.Len(t, order.Items, 2)
	assert.Equal(t, "Keyboard", order.Items[0].ProductName)
	assert.Equal(t, 49.99, order.Items[0].Price)

	assert.Equal(t, 8, inv.stockOf("p1"))
	assert.Equal(t, 3, inv.stockOf("p2"))

	persisted, err := repo.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.TotalAmount, persisted.TotalAmount)
}

func TestPlaceOrder_ValidationFailures(t *testing.T) {
	inv := newFakeInventory()
	c := newTestCoordinator(inv, infrastructure.NewMemoryOrderRepository())

	_, err := c.PlaceOrder(context.Background(), placementRequest())
	var checkoutErr *domain.CheckoutError
	require.ErrorAs(t, err, &checkoutErr)
	assert.Equal(t, domain.FailureValidation, checkoutErr.Kind)

	_, err = c.PlaceOrder(context.Background(), placementRequest(
		domain.CartItem{ProductID: "p1", Quantity: 0},
	))
	require.ErrorAs(t, err, &checkoutErr)
	assert.Equal(t, domain.FailureValidation, checkoutErr.Kind)

	// Validation failures must be rejected before any remote call.
	assert.Equal(t, 0, inv.reserveCalls)
}

func TestPlaceOrder_InsufficientStock_RollsBackPriorReservations(t *testing.T) {
	inv := newFakeInventory()
	inv.add("pA", "Lamp", 30, 2)
	inv.add("pB", "Desk", 120, 1)
	repo := infrastructure.NewMemoryOrderRepository()
	c := newTestCoordinator(inv, repo)

	_, err := c.PlaceOrder(context.Background(), placementRequest(
		domain.CartItem{ProductID: "pA", Quantity: 2},
		domain.CartItem{ProductID: "pB", Quantity: 3},
	))
	var checkoutErr *domain.CheckoutError
	require.ErrorAs(t, err, &checkoutErr)
	assert.Equal(t, domain.FailureInsufficientStock, checkoutErr.Kind)
	assert.Equal(t, "pB", checkoutErr.ProductID)
	assert.Equal(t, 3, checkoutErr.Requested)
	assert.Equal(t, 1, checkoutErr.Available)

	// Item A's committed reservation was rolled back and no order exists.
	assert.Equal(t, 2, inv.stockOf("pA"))
	assert.Equal(t, 1, inv.stockOf("pB"))
	orders, err := repo.FindAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestPlaceOrder_UnknownProduct(t *testing.T) {
	inv := newFakeInventory()
	inv.add("pA", "Lamp", 30, 5)
	c := newTestCoordinator(inv, infrastructure.NewMemoryOrderRepository())

	_, err := c.PlaceOrder(context.Background(), placementRequest(
		domain.CartItem{ProductID: "pA", Quantity: 1},
		domain.CartItem{ProductID: "ghost", Quantity: 1},
	))
	var checkoutErr *domain.CheckoutError
	require.ErrorAs(t, err, &checkoutErr)
	assert.Equal(t, domain.FailureNotFound, checkoutErr.Kind)
	assert.Equal(t, "ghost", checkoutErr.ProductID)
	assert.Equal(t, 5, inv.stockOf("pA"))
}

func TestPlaceOrder_ConflictRetriedThenSucceeds(t *testing.T) {
	inv := newFakeInventory()
	inv.add("hot", "Console", 500, 10)

	// Bump the version once between the availability read and the write,
	// simulating a competing checkout winning the first round.
	conflicted := false
	inv.beforeReserve = func(f *fakeInventory, productID string) {
		if !conflicted {
			conflicted = true
			f.products[productID].version++
		}
	}

	c := newTestCoordinator(inv, infrastructure.NewMemoryOrderRepository())
	order, err := c.PlaceOrder(context.Background(), placementRequest(
		domain.CartItem{ProductID: "hot", Quantity: 1},
	))
	require.NoError(t, err)
	assert.Equal(t, 9, inv.stockOf("hot"))
	assert.Equal(t, 2, inv.reserveCalls)
	assert.InDelta(t, 500, order.TotalAmount, 1e-9)
}

func TestPlaceOrder_ConflictBudgetExhausted(t *testing.T) {
	inv := newFakeInventory()
	inv.add("hot", "Console", 500, 10)
	inv.reserveErr = func(productID string, call int) error {
		return domain.ErrVersionConflict
	}

	c := newTestCoordinator(inv, infrastructure.NewMemoryOrderRepository(),
		WithRetryPolicy(3, time.Millisecond))
	_, err := c.PlaceOrder(context.Background(), placementRequest(
		domain.CartItem{ProductID: "hot", Quantity: 1},
	))
	var checkoutErr *domain.CheckoutError
	require.ErrorAs(t, err, &checkoutErr)
	assert.Equal(t, domain.FailureConflict, checkoutErr.Kind)
	assert.Equal(t, 3, inv.reserveCalls)
	assert.Equal(t, 10, inv.stockOf("hot"))
}

func TestPlaceOrder_TimeoutTreatedAsRetryable(t *testing.T) {
	inv := newFakeInventory()
	inv.add("p1", "Keyboard", 49.99, 5)
	inv.reserveErr = func(productID string, call int) error {
		if call == 1 {
			return context.DeadlineExceeded
		}
		return nil
	}

	c := newTestCoordinator(inv, infrastructure.NewMemoryOrderRepository())
	_, err := c.PlaceOrder(context.Background(), placementRequest(
		domain.CartItem{ProductID: "p1", Quantity: 1},
	))
	require.NoError(t, err)
	assert.Equal(t, 4, inv.stockOf("p1"))
}

func TestPlaceOrder_PersistFailureRollsBackAllReservations(t *testing.T) {
	inv := newFakeInventory()
	inv.add("p1", "Keyboard", 49.99, 5)
	inv.add("p2", "Mouse", 19.99, 5)
	repo := &failingOrderRepo{infrastructure.NewMemoryOrderRepository()}
	c := newTestCoordinator(inv, repo)

	_, err := c.PlaceOrder(context.Background(), placementRequest(
		domain.CartItem{ProductID: "p1", Quantity: 2},
		domain.CartItem{ProductID: "p2", Quantity: 2},
	))
	var checkoutErr *domain.CheckoutError
	require.ErrorAs(t, err, &checkoutErr)
	assert.Equal(t, domain.FailureDependency, checkoutErr.Kind)

	// A reservation must never outlive a missing order.
	assert.Equal(t, 5, inv.stockOf("p1"))
	assert.Equal(t, 5, inv.stockOf("p2"))
}

func TestPlaceOrder_ReleaseFailureRetriedInBackground(t *testing.T) {
	inv := newFakeInventory()
	inv.add("pA", "Lamp", 30, 2)
	inv.add("pB", "Desk", 120, 0)
	inv.releaseErr = func(productID string, call int) error {
		if call == 1 {
			return errors.New("inventory briefly unreachable")
		}
		return nil
	}

	c := newTestCoordinator(inv, infrastructure.NewMemoryOrderRepository())
	_, err := c.PlaceOrder(context.Background(), placementRequest(
		domain.CartItem{ProductID: "pA", Quantity: 2},
		domain.CartItem{ProductID: "pB", Quantity: 1},
	))
	require.Error(t, err)

	c.WaitForReleases()
	assert.Equal(t, 2, inv.stockOf("pA"))
	assert.Equal(t, 2, inv.releaseCalls)
}

func TestRelease_DedupedByReservationLog(t *testing.T) {
	inv := newFakeInventory()
	inv.add("pA", "Lamp", 30, 5)
	c := newTestCoordinator(inv, infrastructure.NewMemoryOrderRepository())

	res := &Reservation{ProductID: "pA", Quantity: 2}
	_, err := inv.TryReserve(context.Background(), "pA", 2, 0)
	require.NoError(t, err)

	c.release(context.Background(), "order-1", res)
	c.release(context.Background(), "order-1", res)
	c.WaitForReleases()

	// Two releases for one reservation must not double-credit.
	assert.Equal(t, 5, inv.stockOf("pA"))
	assert.Equal(t, 1, inv.releaseCalls)
}

func TestPlaceOrder_ConcurrentSameProduct_NoOversell(t *testing.T) {
	inv := newFakeInventory()
	inv.add("hot", "Console", 500, 5)
	repo := infrastructure.NewMemoryOrderRepository()

	const workers = 10
	results := make(chan error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c := newTestCoordinator(inv, repo, WithRetryPolicy(5, time.Millisecond))
			req := placementRequest(domain.CartItem{ProductID: "hot", Quantity: 1})
			req.OrderID = uuidLike(i)
			_, err := c.PlaceOrder(context.Background(), req)
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	successes := 0
	for err := range results {
		if err == nil {
			successes++
			continue
		}
		var checkoutErr *domain.CheckoutError
		require.ErrorAs(t, err, &checkoutErr)
		assert.Contains(t, []domain.FailureKind{
			domain.FailureInsufficientStock,
			domain.FailureConflict,
		}, checkoutErr.Kind)
	}

	assert.LessOrEqual(t, successes, 5)
	assert.Equal(t, 5-successes, inv.stockOf("hot"))

	orders, err := repo.FindAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, orders, successes)
}

func TestPlaceOrder_TwoCompetingCheckouts_ExactlyOneWins(t *testing.T) {
	inv := newFakeInventory()
	inv.add("hot", "Console", 500, 5)
	repo := infrastructure.NewMemoryOrderRepository()

	quantities := []int{3, 4}
	results := make([]error, len(quantities))
	var wg sync.WaitGroup
	for i, qty := range quantities {
		wg.Add(1)
		go func(i, qty int) {
			defer wg.Done()
			c := newTestCoordinator(inv, repo, WithRetryPolicy(5, time.Millisecond))
			req := placementRequest(domain.CartItem{ProductID: "hot", Quantity: qty})
			req.OrderID = uuidLike(i)
			_, results[i] = c.PlaceOrder(context.Background(), req)
		}(i, qty)
	}
	wg.Wait()

	var winnerQty int
	var failures int
	for i, err := range results {
		if err == nil {
			winnerQty += quantities[i]
			continue
		}
		failures++
		var checkoutErr *domain.CheckoutError
		require.ErrorAs(t, err, &checkoutErr)
		assert.Equal(t, domain.FailureInsufficientStock, checkoutErr.Kind)
		assert.Equal(t, 5-winnerQtyOf(results, quantities), checkoutErr.Available)
	}

	// Stock 5 cannot satisfy 3+4: exactly one side wins.
	assert.Equal(t, 1, failures)
	assert.Equal(t, 5-winnerQty, inv.stockOf("hot"))
}

func winnerQtyOf(results []error, quantities []int) int {
	for i, err := range results {
		if err == nil {
			return quantities[i]
		}
	}
	return 0
}

func uuidLike(i int) string {
	return "order-" + string(rune('a'+i))
}
