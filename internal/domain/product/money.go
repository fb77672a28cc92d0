package product

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// MinorUnitExponent is the number of fractional digits of the currency.
const MinorUnitExponent = 2

// MinorUnits converts a major-unit amount such as 1.30 into minor units (130).
// Amounts with more fractional digits than the currency allows are rejected.
func MinorUnits(amount decimal.Decimal) (int64, error) {
	shifted := amount.Shift(MinorUnitExponent)
	if !shifted.IsInteger() {
		return 0, errors.Errorf("amount %s has more than %d decimal places", amount, MinorUnitExponent)
	}
	return shifted.IntPart(), nil
}

// Major converts minor units back to a major-unit decimal.
func Major(minor int64) decimal.Decimal {
	return decimal.New(minor, -MinorUnitExponent)
}
