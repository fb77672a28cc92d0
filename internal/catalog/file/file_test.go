package file

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/pgzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/till-checkout/internal/checkout"
	"github.com/xenking/till-checkout/internal/domain/discount"
)

func TestLoad(t *testing.T) {
	c, err := Load(filepath.Join("testdata", "catalog.json"))
	require.NoError(t, err)

	require.Len(t, c.Products, 4)
	assert.Equal(t, "A", c.Products[0].SKU())
	assert.Equal(t, int64(50), c.Products[0].UnitPrice())
	assert.Equal(t, int64(30), c.Products[1].UnitPrice())

	assert.Equal(t, []Rule{
		{SKU: "A", Definition: discount.Definition{Kind: discount.KindFixedPrice, Quantity: 3, Value: 130}},
		{SKU: "B", Definition: discount.Definition{Kind: discount.KindPercentOffUnit, Quantity: 2, Value: 50}},
	}, c.Rules)
}

func TestLoad_Gzip(t *testing.T) {
	raw, err := os.ReadFile(filepath.Join("testdata", "catalog.json"))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "catalog.json.gz")
	f, err := os.Create(path)
	require.NoError(t, err)
	gz := pgzip.NewWriter(f)
	_, err = gz.Write(raw)
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())

	c, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, c.Products, 4)
	assert.Len(t, c.Rules, 2)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{
			name:    "malformed json",
			doc:     `{"products": [`,
			wantErr: "decode",
		},
		{
			name:    "zero price",
			doc:     `{"products": [{"sku": "A", "price": "0"}]}`,
			wantErr: "invalid argument",
		},
		{
			name:    "empty sku",
			doc:     `{"products": [{"sku": "", "price": "1"}]}`,
			wantErr: "empty sku",
		},
		{
			name:    "sub-penny price",
			doc:     `{"products": [{"sku": "A", "price": "0.505"}]}`,
			wantErr: "decimal places",
		},
		{
			name:    "duplicate product",
			doc:     `{"products": [{"sku": "A", "price": "1"}, {"sku": "A", "price": "2"}]}`,
			wantErr: `duplicate product "A"`,
		},
		{
			name:    "rule for unknown product",
			doc:     `{"products": [{"sku": "A", "price": "1"}], "rules": [{"sku": "B", "kind": "fixed_price", "quantity": 2, "value": "1.50"}]}`,
			wantErr: `unknown product "B"`,
		},
		{
			name:    "duplicate rule",
			doc:     `{"products": [{"sku": "A", "price": "1"}], "rules": [{"sku": "A", "kind": "fixed_price", "quantity": 2, "value": "1.50"}, {"sku": "A", "kind": "fixed_price", "quantity": 3, "value": "2"}]}`,
			wantErr: `duplicate rule for "A"`,
		},
		{
			name:    "invalid rule",
			doc:     `{"products": [{"sku": "A", "price": "1"}], "rules": [{"sku": "A", "kind": "percent_off_bundle", "quantity": 0, "value": 10}]}`,
			wantErr: "invalid discount rule",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCatalog_Memory(t *testing.T) {
	c, err := Load(filepath.Join("testdata", "catalog.json"))
	require.NoError(t, err)

	products, rules, err := c.Memory()
	require.NoError(t, err)

	co, err := checkout.New(products, rules)
	require.NoError(t, err)

	ctx := context.Background()
	for _, sku := range []string{"B", "A", "C", "A", "D", "B", "A"} {
		require.NoError(t, co.Scan(ctx, sku))
	}

	total, err := co.TotalPrice(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(130+45+20+15), total)
}
