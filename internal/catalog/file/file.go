// Package file loads product and discount rule catalogs from JSON files.
//
// The format is
//
//	{
//	  "products": [{"sku": "A", "price": "0.50"}],
//	  "rules": [{"sku": "A", "kind": "fixed_price", "quantity": 3, "value": "1.30"}]
//	}
//
// Prices and fixed bundle prices are major currency units; percentage rule
// values are whole percentages. Files ending in .gz are gunzipped.
package file

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"

	"github.com/xenking/till-checkout/internal/catalog/memory"
	"github.com/xenking/till-checkout/internal/domain/discount"
	"github.com/xenking/till-checkout/internal/domain/product"
)

// Rule is a discount rule definition bound to a SKU.
type Rule struct {
	SKU        string
	Definition discount.Definition
}

// Catalog is the validated content of a catalog file.
type Catalog struct {
	Products []product.Product
	Rules    []Rule
}

// Load reads and validates the catalog at path.
func Load(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open catalog")
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = bufio.NewReader(f)
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(r)
		if err != nil {
			return nil, errors.Wrapf(err, "gunzip %s", path)
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}

	c, err := Parse(r)
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	return c, nil
}

// Parse decodes and validates a catalog document.
func Parse(r io.Reader) (*Catalog, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "read")
	}

	var (
		c       Catalog
		pending []rawRule
	)
	d := jx.DecodeBytes(data)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "products":
			return d.Arr(func(d *jx.Decoder) error {
				p, err := decodeProduct(d)
				if err != nil {
					return errors.Wrapf(err, "product #%d", len(c.Products))
				}
				c.Products = append(c.Products, p)
				return nil
			})
		case "rules":
			return d.Arr(func(d *jx.Decoder) error {
				rr, err := decodeRule(d)
				if err != nil {
					return errors.Wrapf(err, "rule #%d", len(pending))
				}
				pending = append(pending, rr)
				return nil
			})
		default:
			return d.Skip()
		}
	}); err != nil {
		return nil, errors.Wrap(err, "decode")
	}

	known := make(map[string]struct{}, len(c.Products))
	for _, p := range c.Products {
		if _, dup := known[p.SKU()]; dup {
			return nil, errors.Errorf("duplicate product %q", p.SKU())
		}
		known[p.SKU()] = struct{}{}
	}

	seen := make(map[string]struct{}, len(pending))
	for _, rr := range pending {
		if _, ok := known[rr.sku]; !ok {
			return nil, errors.Errorf("rule for unknown product %q", rr.sku)
		}
		if _, dup := seen[rr.sku]; dup {
			return nil, errors.Errorf("duplicate rule for %q", rr.sku)
		}
		seen[rr.sku] = struct{}{}

		def, err := discount.ParseDefinition(rr.kind, rr.quantity, rr.value)
		if err != nil {
			return nil, errors.Wrapf(err, "rule for %q", rr.sku)
		}
		if _, err := def.Rule(); err != nil {
			return nil, errors.Wrapf(err, "rule for %q", rr.sku)
		}
		c.Rules = append(c.Rules, Rule{SKU: rr.sku, Definition: def})
	}

	return &c, nil
}

// Memory builds in-memory catalogs from c.
func (c *Catalog) Memory() (*memory.ProductCatalog, *memory.RuleCatalog, error) {
	products := memory.NewProductCatalog(c.Products...)
	rules := memory.NewRuleCatalog()
	for _, r := range c.Rules {
		rule, err := r.Definition.Rule()
		if err != nil {
			return nil, nil, errors.Wrapf(err, "rule for %q", r.SKU)
		}
		rules.Put(r.SKU, rule)
	}
	return products, rules, nil
}

type rawRule struct {
	sku      string
	kind     discount.Kind
	quantity int
	value    decimal.Decimal
}

func decodeProduct(d *jx.Decoder) (product.Product, error) {
	var (
		sku   string
		price decimal.Decimal
	)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "sku":
			sku, err = d.Str()
		case "price":
			price, err = decodeDecimal(d)
		default:
			err = d.Skip()
		}
		return err
	}); err != nil {
		return product.Product{}, err
	}

	minor, err := product.MinorUnits(price)
	if err != nil {
		return product.Product{}, errors.Wrapf(err, "price of %q", sku)
	}
	return product.New(sku, minor)
}

func decodeRule(d *jx.Decoder) (rawRule, error) {
	var rr rawRule
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "sku":
			rr.sku, err = d.Str()
		case "kind":
			var s string
			s, err = d.Str()
			rr.kind = discount.Kind(s)
		case "quantity":
			rr.quantity, err = d.Int()
		case "value":
			rr.value, err = decodeDecimal(d)
		default:
			err = d.Skip()
		}
		return err
	})
	if err == nil && rr.sku == "" {
		err = errors.Wrap(product.ErrInvalidArgument, "empty sku")
	}
	return rr, err
}

// decodeDecimal accepts both "1.30" and 1.30.
func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Decimal{}, err
		}
		return decimal.NewFromString(s)
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return decimal.Decimal{}, err
		}
		return decimal.NewFromString(string(n))
	default:
		return decimal.Decimal{}, errors.Errorf("unexpected %s, want decimal", d.Next())
	}
}
