package infrastructure

import (
	"context"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"storefront/internal/service/inventory/domain"
)

// GormProductRepository is the MySQL-backed ProductRepository. The stock
// primitives are single conditional UPDATE statements, so the
// check-and-set never exposes a read-then-write window.
type GormProductRepository struct {
	db *gorm.DB
}

// OpenMySQL dials MySQL from a DSN, forcing parseTime so timestamp columns
// scan into time.Time.
func OpenMySQL(dsn string, maxOpen, maxIdle int, connMaxLifetime time.Duration) (*gorm.DB, error) {
	parsed, err := mysqldriver.ParseDSN(dsn)
	if err != nil {
		return nil, errors.Wrap(err, "inventory: parse mysql dsn")
	}
	parsed.ParseTime = true

	db, err := gorm.Open(mysql.Open(parsed.FormatDSN()), &gorm.Config{})
	if err != nil {
		return nil, errors.Wrap(err, "inventory: open mysql")
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxIdle)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	return db, nil
}

func NewGormProductRepository(db *gorm.DB) (*GormProductRepository, error) {
	if err := db.AutoMigrate(&ProductModel{}); err != nil {
		return nil, errors.Wrap(err, "inventory: migrate products table")
	}
	return &GormProductRepository{db: db}, nil
}

func (r *GormProductRepository) Create(ctx context.Context, product *domain.Product) error {
	return r.db.WithContext(ctx).Create(toProductModel(product)).Error
}

func (r *GormProductRepository) FindByID(ctx context.Context, id string) (*domain.Product, error) {
	var model ProductModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrProductNotFound
		}
		return nil, err
	}
	return toDomainProduct(&model), nil
}

func (r *GormProductRepository) FindAll(ctx context.Context) ([]*domain.Product, error) {
	var models []ProductModel
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, err
	}
	products := make([]*domain.Product, 0, len(models))
	for i := range models {
		products = append(products, toDomainProduct(&models[i]))
	}
	return products, nil
}

// Update writes catalog fields only. Stock and version stay under the
// conditional primitives.
func (r *GormProductRepository) Update(ctx context.Context, product *domain.Product) error {
	res := r.db.WithContext(ctx).Model(&ProductModel{}).
		Where("id = ?", product.ID).
		Updates(map[string]interface{}{
			"name":        product.Name,
			"description": product.Description,
			"price":       product.Price,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

func (r *GormProductRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&ProductModel{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

func (r *GormProductRepository) ReserveStock(ctx context.Context, id string, quantity int, expectedVersion int64) (int64, error) {
	res := r.db.WithContext(ctx).Model(&ProductModel{}).
		Where("id = ? AND version = ? AND stock >= ?", id, expectedVersion, quantity).
		Updates(map[string]interface{}{
			"stock":   gorm.Expr("stock - ?", quantity),
			"version": gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return 0, errors.Wrap(res.Error, "inventory: conditional stock decrement")
	}
	if res.RowsAffected == 0 {
		// The CAS was rejected. One diagnostic read tells the caller which
		// precondition failed; the write itself stays a single statement.
		current, err := r.FindByID(ctx, id)
		if err != nil {
			return 0, err
		}
		if current.Version == expectedVersion && current.Stock < quantity {
			return 0, &domain.InsufficientStockError{
				ProductID: id,
				Requested: quantity,
				Available: current.Stock,
			}
		}
		return 0, domain.ErrVersionConflict
	}
	return expectedVersion + 1, nil
}

func (r *GormProductRepository) CreditStock(ctx context.Context, id string, quantity int) (int64, error) {
	res := r.db.WithContext(ctx).Model(&ProductModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"stock":   gorm.Expr("stock + ?", quantity),
			"version": gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return 0, errors.Wrap(res.Error, "inventory: stock credit")
	}
	if res.RowsAffected == 0 {
		return 0, domain.ErrProductNotFound
	}
	current, err := r.FindByID(ctx, id)
	if err != nil {
		return 0, err
	}
	return current.Version, nil
}

var _ domain.ProductRepository = (*GormProductRepository)(nil)
