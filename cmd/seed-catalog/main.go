// Command seed-catalog loads a catalog file into PostgreSQL.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/till-checkout/internal/catalog/file"
	"github.com/xenking/till-checkout/internal/catalog/rediscache"
	"github.com/xenking/till-checkout/internal/storage/postgres"
)

// Upserts are independent rows; keep well under the pool size.
const seedConcurrency = 4

func main() {
	var (
		databaseURL string
		catalogFile string
		redisAddr   string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&catalogFile, "catalog-file", "catalog.example.json", "path to catalog JSON file")
	flag.StringVar(&redisAddr, "redis-addr", "", "Redis product cache to invalidate after seeding (or TILL_REDIS_ADDR env)")
	flag.Parse()

	lg, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = lg.Sync() }()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		lg.Fatal("database URL is required: set --database-url or DATABASE_URL")
	}

	if redisAddr == "" {
		redisAddr = os.Getenv("TILL_REDIS_ADDR")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, lg, databaseURL, catalogFile, redisAddr); err != nil {
		lg.Fatal("Seed failed", zap.Error(err))
	}

	lg.Info("Seed completed successfully")
}

func run(ctx context.Context, lg *zap.Logger, databaseURL, catalogFile, redisAddr string) error {
	lg.Info("Reading catalog file", zap.String("path", catalogFile))

	c, err := file.Load(catalogFile)
	if err != nil {
		return errors.Wrap(err, "load catalog")
	}

	lg.Info("Connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	lg.Info("Running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Rules reference products, so products go first.
	if err := seedProducts(ctx, lg, pool, c); err != nil {
		return errors.Wrap(err, "seed products")
	}
	if err := seedRules(ctx, lg, pool, c); err != nil {
		return errors.Wrap(err, "seed rules")
	}

	if redisAddr != "" {
		if err := invalidateCache(ctx, lg, redisAddr, c); err != nil {
			return errors.Wrap(err, "invalidate product cache")
		}
	}
	return nil
}

func invalidateCache(ctx context.Context, lg *zap.Logger, addr string, c *file.Catalog) error {
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer func() { _ = client.Close() }()

	skus := make([]string, len(c.Products))
	for i, p := range c.Products {
		skus[i] = p.SKU()
	}
	lg.Info("Invalidating cached products", zap.String("addr", addr), zap.Int("count", len(skus)))
	return rediscache.Invalidate(ctx, client, skus...)
}

func seedProducts(ctx context.Context, lg *zap.Logger, pool *pgxpool.Pool, c *file.Catalog) error {
	repo := postgres.NewProductRepository(pool)
	lg.Info("Upserting products", zap.Int("count", len(c.Products)))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(seedConcurrency)
	for _, p := range c.Products {
		g.Go(func() error {
			if err := repo.Upsert(ctx, p); err != nil {
				return errors.Wrapf(err, "upsert product %s", p.SKU())
			}
			lg.Debug("Upserted product", zap.String("sku", p.SKU()), zap.Int64("price", p.UnitPrice()))
			return nil
		})
	}
	return g.Wait()
}

func seedRules(ctx context.Context, lg *zap.Logger, pool *pgxpool.Pool, c *file.Catalog) error {
	repo := postgres.NewRuleRepository(pool)
	lg.Info("Upserting discount rules", zap.Int("count", len(c.Rules)))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(seedConcurrency)
	for _, r := range c.Rules {
		g.Go(func() error {
			if err := repo.Upsert(ctx, r.SKU, r.Definition); err != nil {
				return errors.Wrapf(err, "upsert rule for %s", r.SKU)
			}
			lg.Debug("Upserted rule", zap.String("sku", r.SKU), zap.String("kind", string(r.Definition.Kind)))
			return nil
		})
	}
	return g.Wait()
}
