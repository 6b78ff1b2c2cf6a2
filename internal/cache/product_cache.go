package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"shopsphere/internal/models"
	"shopsphere/internal/repository"
)

const (
	allProductsKey   = "products:all"
	listKeyPrefix    = "products:list:"
	notFoundMarker   = "notfound"
	notFoundLifetime = 1 * time.Minute
)

// CachedProductRepository is a read-through redis cache in front of a
// ProductRepository. Redis failures are logged and the call falls through to
// the wrapped repository.
type CachedProductRepository struct {
	realRepo repository.ProductRepository
	redis    *redis.Client
	ttl      time.Duration
	logger   *slog.Logger
}

var _ repository.ProductRepository = (*CachedProductRepository)(nil)

func NewCachedProductRepository(realRepo repository.ProductRepository, redis *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedProductRepository {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedProductRepository{
		realRepo: realRepo,
		redis:    redis,
		ttl:      ttl,
		logger:   logger.With("component", "product_cache"),
	}
}

func productKey(id int) string     { return fmt.Sprintf("product:%d", id) }
func slugKey(slug string) string   { return "product:slug:" + slug }
func listKey(filter []byte) string { return listKeyPrefix + string(filter) }

// lookup reports whether key was answered from redis. A cached not-found
// marker is returned as repository.ErrNotFound.
func (c *CachedProductRepository) lookup(ctx context.Context, key string, dst any) (bool, error) {
	data, err := c.redis.Get(ctx, key).Bytes()

	switch {
	case err == nil:
		if string(data) == notFoundMarker {
			return true, repository.ErrNotFound
		}
		if err := json.Unmarshal(data, dst); err != nil {
			c.logger.Warn("failed to unmarshal cached value, continuing with DB", "key", key, "error", err)
			return false, nil
		}
		return true, nil

	case errors.Is(err, redis.Nil):

	default:
		c.logger.Warn("redis error, continuing with DB", "key", key, "error", err)
	}

	return false, nil
}

func (c *CachedProductRepository) store(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		c.logger.Warn("failed to marshal value for cache", "key", key, "error", err)
		return
	}

	if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("failed to cache value", "key", key, "error", err)
	}
}

func (c *CachedProductRepository) storeNotFound(ctx context.Context, key string) {
	if err := c.redis.Set(ctx, key, notFoundMarker, notFoundLifetime).Err(); err != nil {
		c.logger.Warn("failed to cache notfound", "key", key, "error", err)
	}
}

func (c *CachedProductRepository) getOne(ctx context.Context, key string, load func() (*models.Product, error)) (*models.Product, error) {
	var product models.Product
	if hit, err := c.lookup(ctx, key, &product); hit {
		if err != nil {
			return nil, err
		}
		return &product, nil
	}

	p, err := load()
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.storeNotFound(ctx, key)
		}
		return nil, err
	}

	c.store(ctx, key, p)
	return p, nil
}

func (c *CachedProductRepository) GetByID(ctx context.Context, id int) (*models.Product, error) {
	return c.getOne(ctx, productKey(id), func() (*models.Product, error) {
		return c.realRepo.GetByID(ctx, id)
	})
}

func (c *CachedProductRepository) GetBySlug(ctx context.Context, slug string) (*models.Product, error) {
	return c.getOne(ctx, slugKey(slug), func() (*models.Product, error) {
		return c.realRepo.GetBySlug(ctx, slug)
	})
}

func (c *CachedProductRepository) getMany(ctx context.Context, key string, load func() ([]models.Product, error)) ([]models.Product, error) {
	var products []models.Product
	if hit, _ := c.lookup(ctx, key, &products); hit {
		return products, nil
	}

	products, err := load()
	if err != nil {
		return nil, err
	}

	c.store(ctx, key, products)
	return products, nil
}

func (c *CachedProductRepository) GetAll(ctx context.Context) ([]models.Product, error) {
	return c.getMany(ctx, allProductsKey, func() ([]models.Product, error) {
		return c.realRepo.GetAll(ctx)
	})
}

func (c *CachedProductRepository) List(ctx context.Context, filter repository.ProductFilter) ([]models.Product, error) {
	raw, err := json.Marshal(filter)
	if err != nil {
		return c.realRepo.List(ctx, filter)
	}

	return c.getMany(ctx, listKey(raw), func() ([]models.Product, error) {
		return c.realRepo.List(ctx, filter)
	})
}

func (c *CachedProductRepository) Create(ctx context.Context, product *models.Product) error {
	if err := c.realRepo.Create(ctx, product); err != nil {
		return err
	}

	c.invalidateLists(ctx)
	c.del(ctx, productKey(product.ID), slugKey(product.Slug))
	return nil
}

func (c *CachedProductRepository) Update(ctx context.Context, product *models.Product) error {
	old, err := c.realRepo.GetByID(ctx, product.ID)
	if err != nil {
		c.del(ctx, productKey(product.ID))
		return err
	}

	if err := c.realRepo.Update(ctx, product); err != nil {
		return err
	}

	c.del(ctx, productKey(product.ID), slugKey(old.Slug), slugKey(product.Slug))
	c.invalidateLists(ctx)
	return nil
}

func (c *CachedProductRepository) Delete(ctx context.Context, id int) error {
	product, err := c.realRepo.GetByID(ctx, id)
	if err != nil {
		c.del(ctx, productKey(id))
		return err
	}

	if err := c.realRepo.Delete(ctx, id); err != nil {
		return err
	}

	c.del(ctx, productKey(id), slugKey(product.Slug))
	c.invalidateLists(ctx)
	return nil
}

func (c *CachedProductRepository) UpdateStock(ctx context.Context, id int, change int) (int, error) {
	stock, err := c.realRepo.UpdateStock(ctx, id, change)
	if err != nil {
		return stock, err
	}

	c.InvalidateProducts(ctx, id)
	return stock, nil
}

func (c *CachedProductRepository) ListImages(ctx context.Context, productID int) ([]models.ProductImage, error) {
	return c.realRepo.ListImages(ctx, productID)
}

func (c *CachedProductRepository) AddImage(ctx context.Context, image *models.ProductImage) error {
	if err := c.realRepo.AddImage(ctx, image); err != nil {
		return err
	}

	c.InvalidateProducts(ctx, image.ProductID)
	return nil
}

func (c *CachedProductRepository) ListSpecifications(ctx context.Context, productID int) ([]models.ProductSpecification, error) {
	return c.realRepo.ListSpecifications(ctx, productID)
}

func (c *CachedProductRepository) AddSpecification(ctx context.Context, spec *models.ProductSpecification) error {
	if err := c.realRepo.AddSpecification(ctx, spec); err != nil {
		return err
	}

	c.InvalidateProducts(ctx, spec.ProductID)
	return nil
}

// InvalidateProducts drops the cached entries of the given products and every
// cached listing. It is called after writes that bypass the cache, such as
// stock changes committed inside an order transaction.
func (c *CachedProductRepository) InvalidateProducts(ctx context.Context, ids ...int) {
	keys := make([]string, 0, 2*len(ids))
	for _, id := range ids {
		keys = append(keys, productKey(id))
		if p, err := c.realRepo.GetByID(ctx, id); err == nil {
			keys = append(keys, slugKey(p.Slug))
		}
	}

	c.del(ctx, keys...)
	c.invalidateLists(ctx)
}

func (c *CachedProductRepository) del(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	if err := c.redis.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn("failed to delete product cache", "keys", keys, "error", err)
	}
}

func (c *CachedProductRepository) invalidateLists(ctx context.Context) {
	keys := []string{allProductsKey}

	iter := c.redis.Scan(ctx, 0, listKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.logger.Warn("failed to scan product list cache", "error", err)
	}

	c.del(ctx, keys...)
}
