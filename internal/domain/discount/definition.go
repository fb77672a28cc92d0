package discount

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/till-checkout/internal/domain/product"
)

// Kind enumerates the supported rule shapes.
type Kind string

const (
	// KindFixedPrice sells a bundle for a fixed price.
	KindFixedPrice Kind = "fixed_price"
	// KindPercentOffUnit takes a percentage of one unit off each bundle.
	KindPercentOffUnit Kind = "percent_off_unit"
	// KindPercentOffBundle takes a percentage off each bundle.
	KindPercentOffBundle Kind = "percent_off_bundle"
)

// Definition is the stored form of a rule. Value is the bundle price in minor
// units for KindFixedPrice and a whole percentage otherwise.
type Definition struct {
	Kind     Kind
	Quantity int
	Value    int64
}

// ParseDefinition builds a Definition from a declared value: a major-unit
// price for KindFixedPrice, a whole percentage otherwise.
func ParseDefinition(kind Kind, quantity int, value decimal.Decimal) (Definition, error) {
	def := Definition{Kind: kind, Quantity: quantity}
	switch kind {
	case KindFixedPrice:
		minor, err := product.MinorUnits(value)
		if err != nil {
			return Definition{}, errors.Wrap(err, "bundle price")
		}
		def.Value = minor
	case KindPercentOffUnit, KindPercentOffBundle:
		if !value.IsInteger() {
			return Definition{}, errors.Wrapf(ErrInvalidRule, "percentage %s is not a whole number", value)
		}
		def.Value = value.IntPart()
	default:
		return Definition{}, errors.Wrapf(ErrInvalidRule, "unsupported kind %q", kind)
	}
	return def, nil
}

// Rule validates the definition and returns the matching Rule.
func (d Definition) Rule() (Rule, error) {
	if d.Quantity <= 0 {
		return nil, errors.Wrapf(ErrInvalidRule, "quantity %d must be positive", d.Quantity)
	}

	switch d.Kind {
	case KindFixedPrice:
		if d.Value <= 0 {
			return nil, errors.Wrapf(ErrInvalidRule, "bundle price %d must be positive", d.Value)
		}
		return FixedPrice{Quantity: d.Quantity, Price: d.Value}, nil
	case KindPercentOffUnit, KindPercentOffBundle:
		if d.Value < 0 || d.Value > 100 {
			return nil, errors.Wrapf(ErrInvalidRule, "percentage %d out of range", d.Value)
		}
		if d.Kind == KindPercentOffUnit {
			return PercentOffUnit{Quantity: d.Quantity, Percent: d.Value}, nil
		}
		return PercentOffBundle{Quantity: d.Quantity, Percent: d.Value}, nil
	default:
		return nil, errors.Wrapf(ErrInvalidRule, "unsupported kind %q", d.Kind)
	}
}
