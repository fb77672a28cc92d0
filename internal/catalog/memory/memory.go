// Package memory provides map-backed product and discount rule catalogs.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/go-faster/errors"

	"github.com/xenking/till-checkout/internal/domain/discount"
	"github.com/xenking/till-checkout/internal/domain/product"
)

var (
	_ product.Catalog  = (*ProductCatalog)(nil)
	_ product.Lister   = (*ProductCatalog)(nil)
	_ discount.Catalog = (*RuleCatalog)(nil)
)

// ProductCatalog is an in-memory product.Catalog.
type ProductCatalog struct {
	mu    sync.RWMutex
	bySKU map[string]product.Product
}

// NewProductCatalog returns a catalog holding products. Later duplicates
// replace earlier ones.
func NewProductCatalog(products ...product.Product) *ProductCatalog {
	c := &ProductCatalog{bySKU: make(map[string]product.Product, len(products))}
	for _, p := range products {
		c.bySKU[p.SKU()] = p
	}
	return c
}

// Put adds or replaces a product.
func (c *ProductCatalog) Put(p product.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.bySKU[p.SKU()] = p
}

// FindBySKU implements product.Catalog.
func (c *ProductCatalog) FindBySKU(_ context.Context, sku string) (product.Product, error) {
	if sku == "" {
		return product.Product{}, errors.Wrap(product.ErrInvalidArgument, "empty sku")
	}

	c.mu.RLock()
	p, ok := c.bySKU[sku]
	c.mu.RUnlock()

	if !ok {
		return product.Product{}, &product.NotFoundError{SKU: sku}
	}
	return p, nil
}

// List returns all products ordered by SKU.
func (c *ProductCatalog) List(_ context.Context) ([]product.Product, error) {
	c.mu.RLock()
	out := make([]product.Product, 0, len(c.bySKU))
	for _, p := range c.bySKU {
		out = append(out, p)
	}
	c.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].SKU() < out[j].SKU() })
	return out, nil
}

// RuleCatalog is an in-memory discount.Catalog.
type RuleCatalog struct {
	mu    sync.RWMutex
	bySKU map[string]discount.Rule
}

// NewRuleCatalog returns an empty rule catalog.
func NewRuleCatalog() *RuleCatalog {
	return &RuleCatalog{bySKU: make(map[string]discount.Rule)}
}

// Put sets the rule for sku, replacing any previous one.
func (c *RuleCatalog) Put(sku string, rule discount.Rule) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.bySKU[sku] = rule
}

// RuleForSKU implements discount.Catalog.
func (c *RuleCatalog) RuleForSKU(_ context.Context, sku string) (discount.Rule, bool, error) {
	if sku == "" {
		return nil, false, errors.Wrap(product.ErrInvalidArgument, "empty sku")
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	r, ok := c.bySKU[sku]
	return r, ok, nil
}
