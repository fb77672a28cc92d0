package checkout

import "github.com/xenking/till-checkout/internal/domain/product"

// Line is one distinct product on the till and how many times it was scanned.
type Line struct {
	Product  product.Product
	Quantity int
}

// Till records scanned products keyed by SKU, so separately constructed but
// equal products share a line.
type Till map[string]Line

// add increments the quantity of p, inserting it with quantity 1 when it has
// not been scanned before.
func (t Till) add(p product.Product) int {
	l := t[p.SKU()]
	l.Product = p
	l.Quantity++
	t[p.SKU()] = l
	return l.Quantity
}
