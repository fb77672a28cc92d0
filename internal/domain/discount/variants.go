package discount

var (
	_ Rule = FixedPrice{}
	_ Rule = PercentOffUnit{}
	_ Rule = PercentOffBundle{}
)

// FixedPrice sells Quantity units for Price, e.g. "3 for 130".
type FixedPrice struct {
	Quantity int
	Price    int64
}

func (r FixedPrice) QuantityToDiscount() int { return r.Quantity }

func (r FixedPrice) CalculateDiscount(scannedQuantity int, _ int64) int64 {
	return bundles(scannedQuantity, r.Quantity) * r.Price
}

// PercentOffUnit takes Percent of one unit's price off every bundle of
// Quantity units. A 50p product with Quantity 3 and Percent 40 costs 130 per
// bundle.
type PercentOffUnit struct {
	Quantity int
	Percent  int64
}

func (r PercentOffUnit) QuantityToDiscount() int { return r.Quantity }

func (r PercentOffUnit) CalculateDiscount(scannedQuantity int, unitPrice int64) int64 {
	bundle := unitPrice*int64(r.Quantity) - unitPrice*r.Percent/100
	return bundles(scannedQuantity, r.Quantity) * bundle
}

// PercentOffBundle takes Percent off the full price of every bundle of
// Quantity units.
type PercentOffBundle struct {
	Quantity int
	Percent  int64
}

func (r PercentOffBundle) QuantityToDiscount() int { return r.Quantity }

func (r PercentOffBundle) CalculateDiscount(scannedQuantity int, unitPrice int64) int64 {
	bundle := unitPrice * int64(r.Quantity) * (100 - r.Percent) / 100
	return bundles(scannedQuantity, r.Quantity) * bundle
}

func bundles(scannedQuantity, quantity int) int64 {
	if quantity <= 0 {
		return 0
	}
	return int64(scannedQuantity / quantity)
}
