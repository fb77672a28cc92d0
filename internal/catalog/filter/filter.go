// Package filter rejects unknown SKUs before they reach a slow catalog.
package filter

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/till-checkout/internal/domain/product"
)

// Source is a catalog that can enumerate its products.
type Source interface {
	product.Catalog
	product.Lister
}

var _ product.Catalog = (*ProductCatalog)(nil)

// Option configures a ProductCatalog.
type Option func(*ProductCatalog)

// WithMaxAge makes filter misses fall through to the backing catalog once the
// filter is older than d, so products added since the last refresh are found.
// Zero trusts the filter regardless of age.
func WithMaxAge(d time.Duration) Option {
	return func(c *ProductCatalog) {
		c.maxAge = d
	}
}

// ProductCatalog answers "not found" for SKUs that are definitely absent from
// the backing catalog and delegates everything else. Refresh rebuilds the
// filter and may run concurrently with FindBySKU.
type ProductCatalog struct {
	next   product.Catalog
	src    product.Lister
	fpRate float64
	maxAge time.Duration
	now    func() time.Time

	known     atomic.Pointer[bloom.BloomFilter]
	refreshed atomic.Int64 // unix nanoseconds
}

// NewProductCatalog builds the filter from every SKU listed by src.
// fpRate is the target false positive rate.
func NewProductCatalog(ctx context.Context, src Source, fpRate float64, opts ...Option) (*ProductCatalog, error) {
	c := &ProductCatalog{next: src, src: src, fpRate: fpRate, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	if err := c.Refresh(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// Refresh rebuilds the filter from the backing catalog and swaps it in.
func (c *ProductCatalog) Refresh(ctx context.Context) error {
	started := c.now()
	products, err := c.src.List(ctx)
	if err != nil {
		return errors.Wrap(err, "list products")
	}

	n := uint(len(products))
	if n == 0 {
		n = 1
	}
	known := bloom.NewWithEstimates(n, c.fpRate)
	for _, p := range products {
		known.AddString(p.SKU())
	}
	c.known.Store(known)
	c.refreshed.Store(started.UnixNano())
	return nil
}

// Run refreshes the filter every interval until ctx is done. Failed refreshes
// keep the previous filter.
func (c *ProductCatalog) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	lg := zctx.From(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.Refresh(ctx); err != nil {
				if ctx.Err() != nil {
					return
				}
				lg.Warn("SKU filter refresh failed", zap.Error(err))
			}
		}
	}
}

func (c *ProductCatalog) stale() bool {
	if c.maxAge <= 0 {
		return false
	}
	return c.now().Sub(time.Unix(0, c.refreshed.Load())) > c.maxAge
}

// FindBySKU implements product.Catalog.
func (c *ProductCatalog) FindBySKU(ctx context.Context, sku string) (product.Product, error) {
	if sku == "" {
		return product.Product{}, errors.Wrap(product.ErrInvalidArgument, "empty sku")
	}
	if !c.known.Load().TestString(sku) && !c.stale() {
		return product.Product{}, &product.NotFoundError{SKU: sku}
	}
	return c.next.FindBySKU(ctx, sku)
}
