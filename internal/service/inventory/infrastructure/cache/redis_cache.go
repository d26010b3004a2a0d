package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"storefront/internal/pkg/logger"
	"storefront/internal/service/inventory/domain"
)

const productKeyPrefix = "product:"

// RedisProductCache is a read-through cache for catalog reads. Stock
// mutations invalidate aggressively rather than updating in place, so a
// stale entry can only survive for one TTL window after a miss.
type RedisProductCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisProductCache(rdb *redis.Client, ttl time.Duration) *RedisProductCache {
	return &RedisProductCache{rdb: rdb, ttl: ttl}
}

func (c *RedisProductCache) Get(ctx context.Context, id string) (*domain.Product, bool) {
	raw, err := c.rdb.Get(ctx, productKeyPrefix+id).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.Ctx(ctx).Warn().Err(err).Str("product_id", id).Msg("product cache read failed")
		}
		return nil, false
	}
	var p domain.Product
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, false
	}
	return &p, true
}

func (c *RedisProductCache) Set(ctx context.Context, p *domain.Product) {
	raw, err := json.Marshal(p)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, productKeyPrefix+p.ID, raw, c.ttl).Err(); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("product_id", p.ID).Msg("product cache write failed")
	}
}

func (c *RedisProductCache) Invalidate(ctx context.Context, id string) {
	if err := c.rdb.Del(ctx, productKeyPrefix+id).Err(); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("product_id", id).Msg("product cache invalidation failed")
	}
}
