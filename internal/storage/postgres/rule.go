package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/till-checkout/internal/domain/discount"
	"github.com/xenking/till-checkout/internal/domain/product"
)

const (
	getRuleBySKUSQL = `SELECT kind, quantity, value FROM discount_rules WHERE sku = $1`

	upsertRuleSQL = `INSERT INTO discount_rules (sku, kind, quantity, value) VALUES ($1, $2, $3, $4)
		ON CONFLICT (sku) DO UPDATE SET kind = EXCLUDED.kind, quantity = EXCLUDED.quantity,
		value = EXCLUDED.value, updated_at = now()`
)

var _ discount.Catalog = (*RuleRepository)(nil)

// RuleRepository implements discount.Catalog backed by PostgreSQL.
type RuleRepository struct {
	pool *pgxpool.Pool
}

// NewRuleRepository returns a RuleRepository that uses the given pool.
func NewRuleRepository(pool *pgxpool.Pool) *RuleRepository {
	return &RuleRepository{pool: pool}
}

// RuleForSKU returns the discount rule for sku. A missing row means the
// product has no discount.
func (r *RuleRepository) RuleForSKU(ctx context.Context, sku string) (discount.Rule, bool, error) {
	if sku == "" {
		return nil, false, errors.Wrap(product.ErrInvalidArgument, "empty sku")
	}

	rows, err := r.pool.Query(ctx, getRuleBySKUSQL, sku)
	if err != nil {
		return nil, false, errors.Wrapf(err, "get rule %q", sku)
	}

	def, err := pgx.CollectExactlyOneRow(rows, scanDefinition)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, errors.Wrapf(err, "get rule %q", sku)
	}

	rule, err := def.Rule()
	if err != nil {
		return nil, false, errors.Wrapf(err, "rule for %q", sku)
	}
	return rule, true, nil
}

// Upsert stores the rule definition for sku.
func (r *RuleRepository) Upsert(ctx context.Context, sku string, def discount.Definition) error {
	value := decimal.NewFromInt(def.Value)
	if def.Kind == discount.KindFixedPrice {
		value = product.Major(def.Value)
	}

	if _, err := r.pool.Exec(ctx, upsertRuleSQL, sku, string(def.Kind), def.Quantity, value); err != nil {
		return errors.Wrapf(err, "upsert rule %q", sku)
	}
	return nil
}

func scanDefinition(row pgx.CollectableRow) (discount.Definition, error) {
	var (
		kind     string
		quantity int32
		value    decimal.Decimal
	)
	if err := row.Scan(&kind, &quantity, &value); err != nil {
		return discount.Definition{}, err
	}
	return discount.ParseDefinition(discount.Kind(kind), int(quantity), value)
}
