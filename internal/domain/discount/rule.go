// Package discount defines per-product bulk discount rules.
package discount

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrInvalidRule is returned when a rule definition cannot produce a Rule.
var ErrInvalidRule = errors.New("invalid discount rule")

// Rule prices complete bundles of a product.
//
// QuantityToDiscount is the bundle size. CalculateDiscount returns the price
// of the scannedQuantity / QuantityToDiscount complete bundles; the remainder
// is priced by the caller at the full unit price.
type Rule interface {
	QuantityToDiscount() int
	CalculateDiscount(scannedQuantity int, unitPrice int64) int64
}

// Catalog resolves the discount rule for a SKU. A missing rule is reported
// with ok == false and a nil error.
type Catalog interface {
	RuleForSKU(ctx context.Context, sku string) (rule Rule, ok bool, err error)
}
