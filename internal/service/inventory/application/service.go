package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"storefront/internal/pkg/logger"
	"storefront/internal/service/inventory/domain"
)

// ProductCache is the optional read cache in front of the repository.
type ProductCache interface {
	Get(ctx context.Context, id string) (*domain.Product, bool)
	Set(ctx context.Context, p *domain.Product)
	Invalidate(ctx context.Context, id string)
}

// InventoryApplicationService fronts the product repository with caching
// and tracing. All stock mutation goes through Reserve/Release so the
// conditional primitive is the only write path.
type InventoryApplicationService struct {
	repo   domain.ProductRepository
	cache  ProductCache
	tracer trace.Tracer
}

func NewInventoryApplicationService(repo domain.ProductRepository, cache ProductCache, tracer trace.Tracer) *InventoryApplicationService {
	return &InventoryApplicationService{repo: repo, cache: cache, tracer: tracer}
}

// CreateProductInput carries catalog fields for creation and update.
type CreateProductInput struct {
	Name        string
	Description string
	Price       float64
	Stock       int
}

func (s *InventoryApplicationService) CreateProduct(ctx context.Context, in CreateProductInput) (*domain.Product, error) {
	ctx, span := s.tracer.Start(ctx, "inventory.CreateProduct")
	defer span.End()

	now := time.Now()
	product := &domain.Product{
		ID:          uuid.New().String(),
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		Stock:       in.Stock,
		Version:     0,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, product); err != nil {
		span.RecordError(err)
		return nil, err
	}
	return product, nil
}

func (s *InventoryApplicationService) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	ctx, span := s.tracer.Start(ctx, "inventory.GetProduct")
	defer span.End()

	if s.cache != nil {
		if p, ok := s.cache.Get(ctx, id); ok {
			span.AddEvent("cache hit")
			return p, nil
		}
	}
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Set(ctx, p)
	}
	return p, nil
}

func (s *InventoryApplicationService) ListProducts(ctx context.Context) ([]*domain.Product, error) {
	ctx, span := s.tracer.Start(ctx, "inventory.ListProducts")
	defer span.End()
	return s.repo.FindAll(ctx)
}

func (s *InventoryApplicationService) UpdateProduct(ctx context.Context, id string, in CreateProductInput) (*domain.Product, error) {
	ctx, span := s.tracer.Start(ctx, "inventory.UpdateProduct")
	defer span.End()

	product := &domain.Product{
		ID:          id,
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
	}
	if err := s.repo.Update(ctx, product); err != nil {
		span.RecordError(err)
		return nil, err
	}
	s.invalidate(ctx, id)
	return s.repo.FindByID(ctx, id)
}

func (s *InventoryApplicationService) DeleteProduct(ctx context.Context, id string) error {
	ctx, span := s.tracer.Start(ctx, "inventory.DeleteProduct")
	defer span.End()

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	return nil
}

// GetAvailability reads the reservation snapshot straight from the
// repository: reservation callers must never see a cached version.
func (s *InventoryApplicationService) GetAvailability(ctx context.Context, id string) (domain.Availability, error) {
	ctx, span := s.tracer.Start(ctx, "inventory.GetAvailability")
	defer span.End()

	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return domain.Availability{}, err
	}
	return p.Availability(), nil
}

// Reserve performs the conditional decrement described by the repository
// contract and invalidates the cache on success.
func (s *InventoryApplicationService) Reserve(ctx context.Context, id string, quantity int, expectedVersion int64) (int64, error) {
	ctx, span := s.tracer.Start(ctx, "inventory.Reserve")
	defer span.End()
	span.SetAttributes(
		attribute.String("product.id", id),
		attribute.Int("reserve.quantity", quantity),
		attribute.Int64("reserve.expected_version", expectedVersion),
	)

	newVersion, err := s.repo.ReserveStock(ctx, id, quantity, expectedVersion)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "stock reservation rejected")
		return 0, err
	}
	s.invalidate(ctx, id)
	logger.Ctx(ctx).Info().
		Str("product_id", id).
		Int("quantity", quantity).
		Int64("version", newVersion).
		Msg("stock reserved")
	return newVersion, nil
}

// Release credits quantity back. It is deliberately unconditional: a lost
// concurrent update here can only under-report availability, which is the
// safe direction for a compensation.
func (s *InventoryApplicationService) Release(ctx context.Context, id string, quantity int) (int64, error) {
	ctx, span := s.tracer.Start(ctx, "inventory.Release")
	defer span.End()
	span.SetAttributes(
		attribute.String("product.id", id),
		attribute.Int("release.quantity", quantity),
	)

	newVersion, err := s.repo.CreditStock(ctx, id, quantity)
	if err != nil {
		span.RecordError(err)
		return 0, err
	}
	s.invalidate(ctx, id)
	logger.Ctx(ctx).Info().
		Str("product_id", id).
		Int("quantity", quantity).
		Msg("stock released")
	return newVersion, nil
}

func (s *InventoryApplicationService) invalidate(ctx context.Context, id string) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, id)
	}
}
