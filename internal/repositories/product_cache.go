package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"tradehub/internal/models"
)

const (
	productKeyPrefix   = "product:"
	featuredProductKey = "products:featured"
)

// CachedProductRepository serves product reads from redis and falls back to the
// wrapped repository whenever redis misses or fails. Writes go through and invalidate.
type CachedProductRepository struct {
	ProductRepository
	redis *redis.Client
	ttl   time.Duration
}

func NewCachedProductRepository(inner ProductRepository, client *redis.Client, ttl time.Duration) *CachedProductRepository {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedProductRepository{ProductRepository: inner, redis: client, ttl: ttl}
}

func (c *CachedProductRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	key := productKeyPrefix + id
	var product models.Product
	if c.load(ctx, key, &product) {
		return &product, nil
	}

	found, err := c.ProductRepository.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, found)
	return found, nil
}

// GetAll caches only the unfiltered featured listing shown on the home page.
func (c *CachedProductRepository) GetAll(ctx context.Context, filter models.ProductFilter) ([]models.Product, error) {
	featuredOnly := filter.Featured != nil && *filter.Featured && filter.CategoryID == "" && filter.Verified == nil
	if !featuredOnly {
		return c.ProductRepository.GetAll(ctx, filter)
	}

	var products []models.Product
	if c.load(ctx, featuredProductKey, &products) {
		return products, nil
	}
	products, err := c.ProductRepository.GetAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	c.store(ctx, featuredProductKey, products)
	return products, nil
}

func (c *CachedProductRepository) Create(ctx context.Context, product *models.Product) error {
	if err := c.ProductRepository.Create(ctx, product); err != nil {
		return err
	}
	c.invalidate(ctx, product.ID)
	return nil
}

func (c *CachedProductRepository) Update(ctx context.Context, product *models.Product) error {
	if err := c.ProductRepository.Update(ctx, product); err != nil {
		return err
	}
	c.invalidate(ctx, product.ID)
	return nil
}

func (c *CachedProductRepository) Delete(ctx context.Context, id string) error {
	if err := c.ProductRepository.Delete(ctx, id); err != nil {
		return err
	}
	c.invalidate(ctx, id)
	return nil
}

func (c *CachedProductRepository) IncrementOrderCount(ctx context.Context, id string, by int) error {
	if err := c.ProductRepository.IncrementOrderCount(ctx, id, by); err != nil {
		return err
	}
	c.invalidate(ctx, id)
	return nil
}

func (c *CachedProductRepository) load(ctx context.Context, key string, dst interface{}) bool {
	data, err := c.redis.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		if err := json.Unmarshal(data, dst); err != nil {
			zap.L().Warn("discarding undecodable cache entry", zap.String("key", key), zap.Error(err))
			return false
		}
		return true
	case errors.Is(err, redis.Nil):
		return false
	default:
		zap.L().Warn("redis read failed, continuing with store", zap.String("key", key), zap.Error(err))
		return false
	}
}

func (c *CachedProductRepository) store(ctx context.Context, key string, value interface{}) {
	data, err := json.Marshal(value)
	if err != nil {
		zap.L().Warn("failed to encode cache entry", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
		zap.L().Warn("failed to write cache entry", zap.String("key", key), zap.Error(err))
	}
}

func (c *CachedProductRepository) invalidate(ctx context.Context, id string) {
	if err := c.redis.Del(ctx, productKeyPrefix+id, featuredProductKey).Err(); err != nil {
		zap.L().Warn("failed to invalidate product cache", zap.String("product_id", id), zap.Error(err))
	}
}
