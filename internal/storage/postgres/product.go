package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/till-checkout/internal/domain/product"
)

const (
	listProductsSQL = `SELECT sku, price FROM products ORDER BY sku`

	getProductBySKUSQL = `SELECT sku, price FROM products WHERE sku = $1`

	upsertProductSQL = `INSERT INTO products (sku, price) VALUES ($1, $2)
		ON CONFLICT (sku) DO UPDATE SET price = EXCLUDED.price, updated_at = now()`
)

var (
	_ product.Catalog = (*ProductRepository)(nil)
	_ product.Lister  = (*ProductRepository)(nil)
)

// ProductRepository implements product.Catalog backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// FindBySKU returns the product with the given SKU, or a
// *product.NotFoundError when there is none.
func (r *ProductRepository) FindBySKU(ctx context.Context, sku string) (product.Product, error) {
	if sku == "" {
		return product.Product{}, errors.Wrap(product.ErrInvalidArgument, "empty sku")
	}

	rows, err := r.pool.Query(ctx, getProductBySKUSQL, sku)
	if err != nil {
		return product.Product{}, errors.Wrapf(err, "get product %q", sku)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return product.Product{}, &product.NotFoundError{SKU: sku}
		}
		return product.Product{}, errors.Wrapf(err, "get product %q", sku)
	}
	return p, nil
}

// List returns all products ordered by SKU.
func (r *ProductRepository) List(ctx context.Context) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	return products, nil
}

// Upsert inserts p or updates its price.
func (r *ProductRepository) Upsert(ctx context.Context, p product.Product) error {
	if _, err := r.pool.Exec(ctx, upsertProductSQL, p.SKU(), product.Major(p.UnitPrice())); err != nil {
		return errors.Wrapf(err, "upsert product %q", p.SKU())
	}
	return nil
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var (
		sku   string
		price decimal.Decimal
	)
	if err := row.Scan(&sku, &price); err != nil {
		return product.Product{}, err
	}

	minor, err := product.MinorUnits(price)
	if err != nil {
		return product.Product{}, errors.Wrapf(err, "price of %q", sku)
	}
	return product.New(sku, minor)
}
