package checkout

import (
	"context"
	"fmt"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/till-checkout/internal/domain/discount"
	"github.com/xenking/till-checkout/internal/domain/product"
)

// --- Mock implementations ---

type mockProductCatalog struct {
	bySKU map[string]product.Product
	err   error
	calls int
}

func (m *mockProductCatalog) FindBySKU(_ context.Context, sku string) (product.Product, error) {
	m.calls++
	if m.err != nil {
		return product.Product{}, m.err
	}
	p, ok := m.bySKU[sku]
	if !ok {
		return product.Product{}, &product.NotFoundError{SKU: sku}
	}
	return p, nil
}

type mockRuleCatalog struct {
	bySKU map[string]discount.Rule
	err   error
}

func (m *mockRuleCatalog) RuleForSKU(_ context.Context, sku string) (discount.Rule, bool, error) {
	if m.err != nil {
		return nil, false, m.err
	}
	r, ok := m.bySKU[sku]
	return r, ok, nil
}

// stubRule returns a canned discounted subtotal and records its calls.
type stubRule struct {
	quantity int
	price    int64
	calls    []int
}

func (s *stubRule) QuantityToDiscount() int { return s.quantity }

func (s *stubRule) CalculateDiscount(scannedQuantity int, _ int64) int64 {
	s.calls = append(s.calls, scannedQuantity)
	return s.price
}

// --- Helpers ---

func newProduct(t *testing.T, sku string, unitPrice int64) product.Product {
	t.Helper()
	p, err := product.New(sku, unitPrice)
	require.NoError(t, err)
	return p
}

func newProductCatalog(products ...product.Product) *mockProductCatalog {
	bySKU := make(map[string]product.Product, len(products))
	for _, p := range products {
		bySKU[p.SKU()] = p
	}
	return &mockProductCatalog{bySKU: bySKU}
}

func noRules() *mockRuleCatalog {
	return &mockRuleCatalog{}
}

func newCheckout(t *testing.T, products product.Catalog, rules discount.Catalog, opts ...Option) *Checkout {
	t.Helper()
	c, err := New(products, rules, opts...)
	require.NoError(t, err)
	return c
}

// --- Tests ---

func TestNew_NilCollaborators(t *testing.T) {
	_, err := New(nil, noRules())
	require.ErrorIs(t, err, ErrInvalidArgument)

	_, err = New(newProductCatalog(), nil)
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestNew_NilTillIsReplaced(t *testing.T) {
	a := newProduct(t, "a", 50)
	c := newCheckout(t, newProductCatalog(a), noRules(), WithTill(nil))

	require.NoError(t, c.Scan(context.Background(), "a"))
	assert.Equal(t, 1, c.Quantity("a"))
}

func TestScan_EmptyItem(t *testing.T) {
	products := newProductCatalog()
	till := Till{}
	c := newCheckout(t, products, noRules(), WithTill(till))

	err := c.Scan(context.Background(), "")
	require.ErrorIs(t, err, ErrInvalidArgument)
	assert.Zero(t, products.calls, "catalog must not be consulted")
	assert.Empty(t, till)
}

func TestScan_ProductNotFound(t *testing.T) {
	till := Till{}
	c := newCheckout(t, newProductCatalog(), noRules(), WithTill(till))

	err := c.Scan(context.Background(), "a")

	var nfErr *product.NotFoundError
	require.ErrorAs(t, err, &nfErr)
	assert.Equal(t, "a", nfErr.SKU)
	assert.EqualError(t, err, "the product with stock keeping unit 'a' could not be found in the product repository")
	assert.Empty(t, till)
}

func TestScan_CatalogErrorPropagatesUnchanged(t *testing.T) {
	catalogErr := errors.New("catalog unavailable")
	till := Till{}
	c := newCheckout(t, &mockProductCatalog{err: catalogErr}, noRules(), WithTill(till))

	err := c.Scan(context.Background(), "a")
	assert.Same(t, catalogErr, err)
	assert.Empty(t, till)
}

func TestScan_FirstScanAddsQuantityOne(t *testing.T) {
	a := newProduct(t, "a", 50)
	till := Till{}
	c := newCheckout(t, newProductCatalog(a), noRules(), WithTill(till))

	require.NoError(t, c.Scan(context.Background(), "a"))

	assert.Equal(t, Till{"a": {Product: a, Quantity: 1}}, till)
}

func TestScan_RepeatedScanIncrements(t *testing.T) {
	a := newProduct(t, "a", 50)
	till := Till{"a": {Product: a, Quantity: 1}}
	c := newCheckout(t, newProductCatalog(a), noRules(), WithTill(till))

	require.NoError(t, c.Scan(context.Background(), "a"))

	assert.Equal(t, 2, till["a"].Quantity)
	assert.Len(t, till, 1)
}

func TestScan_NTimes(t *testing.T) {
	a := newProduct(t, "a", 50)
	c := newCheckout(t, newProductCatalog(a), noRules())

	for range 7 {
		require.NoError(t, c.Scan(context.Background(), "a"))
	}
	assert.Equal(t, 7, c.Quantity("a"))
	assert.Zero(t, c.Quantity("b"))
}

func TestTotalPrice_Empty(t *testing.T) {
	c := newCheckout(t, newProductCatalog(), noRules())

	total, err := c.TotalPrice(context.Background())
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestTotalPrice_SingleItem(t *testing.T) {
	tests := []struct {
		sku       string
		unitPrice int64
	}{
		{sku: "a", unitPrice: 50},
		{sku: "b", unitPrice: 30},
		{sku: "c", unitPrice: 20},
		{sku: "d", unitPrice: 15},
	}

	for _, tt := range tests {
		t.Run(tt.sku, func(t *testing.T) {
			p := newProduct(t, tt.sku, tt.unitPrice)
			till := Till{tt.sku: {Product: p, Quantity: 1}}
			c := newCheckout(t, newProductCatalog(p), noRules(), WithTill(till))

			total, err := c.TotalPrice(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.unitPrice, total)
		})
	}
}

func TestTotalPrice_NoDiscountScannedMultipleTimes(t *testing.T) {
	tests := []struct {
		sku       string
		scanned   int
		unitPrice int64
	}{
		{sku: "c", scanned: 3, unitPrice: 20},
		{sku: "d", scanned: 5, unitPrice: 15},
	}

	for _, tt := range tests {
		t.Run(tt.sku, func(t *testing.T) {
			p := newProduct(t, tt.sku, tt.unitPrice)
			till := Till{tt.sku: {Product: p, Quantity: tt.scanned}}
			c := newCheckout(t, newProductCatalog(p), noRules(), WithTill(till))

			total, err := c.TotalPrice(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.unitPrice*int64(tt.scanned), total)
		})
	}
}

func TestTotalPrice_ExactlyThreshold(t *testing.T) {
	tests := []struct {
		sku       string
		threshold int
		unitPrice int64
		percent   int64
	}{
		{sku: "a", threshold: 3, unitPrice: 50, percent: 40},
		{sku: "b", threshold: 2, unitPrice: 30, percent: 50},
	}

	for _, tt := range tests {
		t.Run(tt.sku, func(t *testing.T) {
			p := newProduct(t, tt.sku, tt.unitPrice)
			till := Till{tt.sku: {Product: p, Quantity: tt.threshold}}
			want := tt.unitPrice*int64(tt.threshold) - tt.unitPrice*tt.percent/100
			rule := &stubRule{quantity: tt.threshold, price: want}
			rules := &mockRuleCatalog{bySKU: map[string]discount.Rule{tt.sku: rule}}
			c := newCheckout(t, newProductCatalog(p), rules, WithTill(till))

			total, err := c.TotalPrice(context.Background())
			require.NoError(t, err)
			assert.Equal(t, want, total)
			assert.Equal(t, []int{tt.threshold}, rule.calls)
		})
	}
}

func TestTotalPrice_DiscountWithRemainder(t *testing.T) {
	tests := []struct {
		sku       string
		scanned   int
		threshold int
		unitPrice int64
		percent   int64
	}{
		{sku: "a", scanned: 8, threshold: 3, unitPrice: 50, percent: 40},
		{sku: "b", scanned: 7, threshold: 2, unitPrice: 30, percent: 50},
	}

	for _, tt := range tests {
		t.Run(tt.sku, func(t *testing.T) {
			p := newProduct(t, tt.sku, tt.unitPrice)
			till := Till{tt.sku: {Product: p, Quantity: tt.scanned}}

			offer := tt.unitPrice*int64(tt.threshold) - tt.unitPrice*tt.percent/100
			discounted := offer * int64(tt.scanned/tt.threshold)
			remainder := int64(tt.scanned%tt.threshold) * tt.unitPrice

			rule := &stubRule{quantity: tt.threshold, price: discounted}
			rules := &mockRuleCatalog{bySKU: map[string]discount.Rule{tt.sku: rule}}
			c := newCheckout(t, newProductCatalog(p), rules, WithTill(till))

			total, err := c.TotalPrice(context.Background())
			require.NoError(t, err)
			assert.Equal(t, discounted+remainder, total)
			assert.Equal(t, []int{tt.scanned}, rule.calls)
		})
	}
}

func TestTotalPrice_SpecExamples(t *testing.T) {
	a := newProduct(t, "a", 50)

	t.Run("three at threshold", func(t *testing.T) {
		rule := &stubRule{quantity: 3, price: 130}
		till := Till{"a": {Product: a, Quantity: 3}}
		c := newCheckout(t, newProductCatalog(a), &mockRuleCatalog{bySKU: map[string]discount.Rule{"a": rule}}, WithTill(till))

		total, err := c.TotalPrice(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(130), total)
	})

	t.Run("eight with remainder", func(t *testing.T) {
		rule := &stubRule{quantity: 3, price: 130}
		till := Till{"a": {Product: a, Quantity: 8}}
		c := newCheckout(t, newProductCatalog(a), &mockRuleCatalog{bySKU: map[string]discount.Rule{"a": rule}}, WithTill(till))

		total, err := c.TotalPrice(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(230), total)
	})
}

func TestTotalPrice_BelowThresholdSkipsRule(t *testing.T) {
	a := newProduct(t, "a", 50)
	rule := &stubRule{quantity: 3, price: 130}
	till := Till{"a": {Product: a, Quantity: 2}}
	c := newCheckout(t, newProductCatalog(a), &mockRuleCatalog{bySKU: map[string]discount.Rule{"a": rule}}, WithTill(till))

	total, err := c.TotalPrice(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(100), total)
	assert.Empty(t, rule.calls)
}

func TestTotalPrice_MultipleProductsScannedOnceEach(t *testing.T) {
	a := newProduct(t, "A", 50)
	b := newProduct(t, "b", 30)
	c := newCheckout(t, newProductCatalog(a, b), noRules())

	ctx := context.Background()
	require.NoError(t, c.Scan(ctx, "A"))
	require.NoError(t, c.Scan(ctx, "b"))

	total, err := c.TotalPrice(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(80), total)
}

func TestTotalPrice_ScanOrderDoesNotMatter(t *testing.T) {
	a := newProduct(t, "A", 50)
	b := newProduct(t, "B", 30)
	cc := newProduct(t, "C", 20)
	rules := &mockRuleCatalog{bySKU: map[string]discount.Rule{
		"A": discount.FixedPrice{Quantity: 3, Price: 130},
		"B": discount.FixedPrice{Quantity: 2, Price: 45},
	}}

	orders := [][]string{
		{"A", "B", "A", "C", "A", "B"},
		{"B", "B", "C", "A", "A", "A"},
		{"C", "A", "B", "A", "B", "A"},
	}
	for i, order := range orders {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			c := newCheckout(t, newProductCatalog(a, b, cc), rules)
			for _, sku := range order {
				require.NoError(t, c.Scan(context.Background(), sku))
			}

			total, err := c.TotalPrice(context.Background())
			require.NoError(t, err)
			assert.Equal(t, int64(130+45+20), total)
		})
	}
}

func TestTotalPrice_Idempotent(t *testing.T) {
	a := newProduct(t, "A", 50)
	rules := &mockRuleCatalog{bySKU: map[string]discount.Rule{
		"A": discount.PercentOffUnit{Quantity: 3, Percent: 40},
	}}
	c := newCheckout(t, newProductCatalog(a), rules)

	ctx := context.Background()
	for range 4 {
		require.NoError(t, c.Scan(ctx, "A"))
	}

	first, err := c.TotalPrice(ctx)
	require.NoError(t, err)
	second, err := c.TotalPrice(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(180), first)
	assert.Equal(t, first, second)
	assert.Equal(t, 4, c.Quantity("A"))
}

func TestTotalPrice_RuleCatalogError(t *testing.T) {
	a := newProduct(t, "A", 50)
	ruleErr := errors.New("rules unavailable")
	till := Till{"A": {Product: a, Quantity: 2}}
	c := newCheckout(t, newProductCatalog(a), &mockRuleCatalog{err: ruleErr}, WithTill(till))

	_, err := c.TotalPrice(context.Background())
	assert.Same(t, ruleErr, err)
	assert.Equal(t, 2, till["A"].Quantity)
}

func TestLineTotal(t *testing.T) {
	tests := []struct {
		name     string
		rule     discount.Rule
		quantity int
		price    int64
		want     int64
	}{
		{name: "no rule", rule: nil, quantity: 3, price: 20, want: 60},
		{name: "zero quantity", rule: nil, quantity: 0, price: 20, want: 0},
		{name: "below threshold", rule: discount.FixedPrice{Quantity: 3, Price: 130}, quantity: 2, price: 50, want: 100},
		{name: "at threshold", rule: discount.FixedPrice{Quantity: 3, Price: 130}, quantity: 3, price: 50, want: 130},
		{name: "exact multiple", rule: discount.FixedPrice{Quantity: 3, Price: 130}, quantity: 6, price: 50, want: 260},
		{name: "with remainder", rule: discount.FixedPrice{Quantity: 3, Price: 130}, quantity: 8, price: 50, want: 360},
		{name: "non-positive threshold", rule: &stubRule{quantity: 0, price: 1}, quantity: 4, price: 10, want: 40},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LineTotal(tt.rule, tt.quantity, tt.price))
		})
	}
}
