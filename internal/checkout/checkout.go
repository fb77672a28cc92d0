// Package checkout implements a supermarket till: it accumulates scanned
// products and prices them with per-product bulk discount rules.
package checkout

import (
	"context"
	"sync"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/till-checkout/internal/domain/discount"
	"github.com/xenking/till-checkout/internal/domain/product"
)

// ErrInvalidArgument is returned for nil collaborators and empty items.
var ErrInvalidArgument = product.ErrInvalidArgument

// Option configures a Checkout.
type Option func(*Checkout)

// WithTill makes the Checkout record scans into t. A nil till is replaced
// with an empty one.
func WithTill(t Till) Option {
	return func(c *Checkout) {
		if t != nil {
			c.till = t
		}
	}
}

// Checkout owns a single till. It is safe for concurrent use, but every
// checkout session must use its own Checkout.
type Checkout struct {
	products product.Catalog
	rules    discount.Catalog

	mu   sync.Mutex
	till Till
}

// New creates a Checkout with an empty till.
func New(products product.Catalog, rules discount.Catalog, opts ...Option) (*Checkout, error) {
	if products == nil {
		return nil, errors.Wrap(ErrInvalidArgument, "nil product catalog")
	}
	if rules == nil {
		return nil, errors.Wrap(ErrInvalidArgument, "nil discount rule catalog")
	}

	c := &Checkout{
		products: products,
		rules:    rules,
		till:     make(Till),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Scan adds one unit of the product identified by item to the till.
//
// Catalog errors, including *product.NotFoundError, are returned unchanged
// and leave the till untouched.
func (c *Checkout) Scan(ctx context.Context, item string) error {
	if item == "" {
		return errors.Wrap(ErrInvalidArgument, "empty item")
	}

	p, err := c.products.FindBySKU(ctx, item)
	if err != nil {
		return err
	}

	c.mu.Lock()
	qty := c.till.add(p)
	c.mu.Unlock()

	zctx.From(ctx).Debug("Scanned",
		zap.String("sku", p.SKU()),
		zap.Int("quantity", qty),
	)
	return nil
}

// Quantity returns how many times sku has been scanned.
func (c *Checkout) Quantity(sku string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.till[sku].Quantity
}

// TotalPrice prices every line on the till with its discount rule, if any,
// and returns the sum in minor currency units. It does not modify the till.
func (c *Checkout) TotalPrice(ctx context.Context) (int64, error) {
	c.mu.Lock()
	lines := make([]Line, 0, len(c.till))
	for _, l := range c.till {
		lines = append(lines, l)
	}
	c.mu.Unlock()

	var total int64
	for _, l := range lines {
		rule, ok, err := c.rules.RuleForSKU(ctx, l.Product.SKU())
		if err != nil {
			return 0, err
		}
		if !ok {
			rule = nil
		}
		total += LineTotal(rule, l.Quantity, l.Product.UnitPrice())
	}

	zctx.From(ctx).Debug("Priced till",
		zap.Int("lines", len(lines)),
		zap.Int64("total", total),
	)
	return total, nil
}

// LineTotal prices quantity units at unitPrice under rule. A nil rule, or a
// rule with a non-positive threshold, charges full price. Below the threshold
// the rule is not consulted; from the threshold on, complete bundles are
// priced by the rule and the undiscountable remainder at full price.
func LineTotal(rule discount.Rule, quantity int, unitPrice int64) int64 {
	full := unitPrice * int64(quantity)
	if rule == nil {
		return full
	}

	threshold := rule.QuantityToDiscount()
	switch {
	case threshold <= 0, quantity < threshold:
		return full
	case quantity == threshold:
		return rule.CalculateDiscount(quantity, unitPrice)
	default:
		return rule.CalculateDiscount(quantity, unitPrice) + unitPrice*int64(quantity%threshold)
	}
}
