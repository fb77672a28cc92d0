package product

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
)

var (
	// ErrInvalidArgument is returned when a SKU or price does not satisfy the
	// product invariants.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotFound is matched by NotFoundError.
	ErrNotFound = errors.New("product not found")
)

// NotFoundError indicates that the catalog has no product with the SKU.
type NotFoundError struct {
	SKU string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("the product with stock keeping unit '%s' could not be found in the product repository", e.SKU)
}

// Is reports whether target is ErrNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// Product is an item that can be scanned at the till. Two products are the
// same product when their SKUs are equal.
type Product struct {
	sku       string
	unitPrice int64
}

// New validates and returns a Product. The unit price is expressed in minor
// currency units and must be strictly positive.
func New(sku string, unitPrice int64) (Product, error) {
	if sku == "" {
		return Product{}, errors.Wrap(ErrInvalidArgument, "empty sku")
	}
	if unitPrice <= 0 {
		return Product{}, errors.Wrapf(ErrInvalidArgument, "unit price %d for %q must be 1 or greater", unitPrice, sku)
	}
	return Product{sku: sku, unitPrice: unitPrice}, nil
}

// SKU returns the stock keeping unit identifying the product.
func (p Product) SKU() string { return p.sku }

// UnitPrice returns the price of a single unit in minor currency units.
func (p Product) UnitPrice() int64 { return p.unitPrice }

// Catalog resolves SKUs to products.
//
// FindBySKU returns an error matching ErrInvalidArgument for an empty SKU and
// a *NotFoundError for an unknown one.
type Catalog interface {
	FindBySKU(ctx context.Context, sku string) (Product, error)
}

// Lister enumerates every product of a catalog.
type Lister interface {
	List(ctx context.Context) ([]Product, error)
}
