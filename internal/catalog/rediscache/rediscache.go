// Package rediscache caches product lookups in Redis.
package rediscache

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xenking/till-checkout/internal/domain/product"
)

// KeyPrefix prefixes every cache key.
const KeyPrefix = "till:product:"

var _ product.Catalog = (*ProductCatalog)(nil)

// ProductCatalog is a read-through cache in front of another catalog. Only
// found products are cached. Redis failures are logged and the backing
// catalog is used instead.
type ProductCatalog struct {
	client redis.UniversalClient
	next   product.Catalog
	ttl    time.Duration
}

// NewProductCatalog wraps next with a cache entry lifetime of ttl.
func NewProductCatalog(client redis.UniversalClient, next product.Catalog, ttl time.Duration) *ProductCatalog {
	return &ProductCatalog{client: client, next: next, ttl: ttl}
}

// FindBySKU implements product.Catalog.
func (c *ProductCatalog) FindBySKU(ctx context.Context, sku string) (product.Product, error) {
	if sku == "" {
		return product.Product{}, errors.Wrap(product.ErrInvalidArgument, "empty sku")
	}
	lg := zctx.From(ctx)
	key := KeyPrefix + sku

	price, err := c.client.Get(ctx, key).Int64()
	switch {
	case err == nil:
		if p, err := product.New(sku, price); err == nil {
			return p, nil
		}
		lg.Warn("Dropping invalid cache entry", zap.String("key", key), zap.Int64("price", price))
	case errors.Is(err, redis.Nil):
	default:
		lg.Warn("Product cache read failed", zap.String("sku", sku), zap.Error(err))
	}

	p, err := c.next.FindBySKU(ctx, sku)
	if err != nil {
		return product.Product{}, err
	}

	if err := c.client.Set(ctx, key, p.UnitPrice(), c.ttl).Err(); err != nil {
		lg.Warn("Product cache write failed", zap.String("sku", sku), zap.Error(err))
	}
	return p, nil
}

// Invalidate removes the cached entries for skus.
func (c *ProductCatalog) Invalidate(ctx context.Context, skus ...string) error {
	return Invalidate(ctx, c.client, skus...)
}

// Invalidate removes the cached entries for skus from client. Writers that
// change prices call it so readers do not serve stale prices until the TTL.
func Invalidate(ctx context.Context, client redis.UniversalClient, skus ...string) error {
	if len(skus) == 0 {
		return nil
	}
	keys := make([]string, len(skus))
	for i, sku := range skus {
		keys[i] = KeyPrefix + sku
	}
	if err := client.Del(ctx, keys...).Err(); err != nil {
		return errors.Wrapf(err, "invalidate %d products", len(skus))
	}
	return nil
}
