package infrastructure

import (
	"context"
	"sort"
	"sync"
	"time"

	"storefront/internal/service/inventory/domain"
)

// MemoryProductRepository keeps products in process memory with the same
// conditional-write semantics as the MySQL repository. It backs local runs
// without a database and serves as the reference model in tests.
type MemoryProductRepository struct {
	mu       sync.Mutex
	products map[string]*domain.Product
}

func NewMemoryProductRepository() *MemoryProductRepository {
	return &MemoryProductRepository{products: make(map[string]*domain.Product)}
}

func (r *MemoryProductRepository) Create(ctx context.Context, product *domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *product
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	cp.UpdatedAt = cp.CreatedAt
	r.products[cp.ID] = &cp
	return nil
}

func (r *MemoryProductRepository) FindByID(ctx context.Context, id string) (*domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *MemoryProductRepository) FindAll(ctx context.Context) ([]*domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.Product, 0, len(r.products))
	for _, p := range r.products {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryProductRepository) Update(ctx context.Context, product *domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[product.ID]
	if !ok {
		return domain.ErrProductNotFound
	}
	p.Name = product.Name
	p.Description = product.Description
	p.Price = product.Price
	p.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryProductRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.products[id]; !ok {
		return domain.ErrProductNotFound
	}
	delete(r.products, id)
	return nil
}

func (r *MemoryProductRepository) ReserveStock(ctx context.Context, id string, quantity int, expectedVersion int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return 0, domain.ErrProductNotFound
	}
	if p.Version != expectedVersion {
		return 0, domain.ErrVersionConflict
	}
	if p.Stock < quantity {
		return 0, &domain.InsufficientStockError{
			ProductID: id,
			Requested: quantity,
			Available: p.Stock,
		}
	}
	p.Stock -= quantity
	p.Version++
	p.UpdatedAt = time.Now()
	return p.Version, nil
}

func (r *MemoryProductRepository) CreditStock(ctx context.Context, id string, quantity int) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return 0, domain.ErrProductNotFound
	}
	p.Stock += quantity
	p.Version++
	p.UpdatedAt = time.Now()
	return p.Version, nil
}

var _ domain.ProductRepository = (*MemoryProductRepository)(nil)
