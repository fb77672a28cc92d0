package app

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/till-checkout/internal/catalog/file"
	"github.com/xenking/till-checkout/internal/catalog/filter"
	"github.com/xenking/till-checkout/internal/catalog/rediscache"
	"github.com/xenking/till-checkout/internal/domain/discount"
	"github.com/xenking/till-checkout/internal/domain/product"
	"github.com/xenking/till-checkout/internal/storage/postgres"
	"github.com/xenking/till-checkout/pkg/health"
)

// Catalogs are the lookups a checkout is built on.
type Catalogs struct {
	Products product.Catalog
	Rules    discount.Catalog
	// Filter is the unknown-SKU filter in front of Products, nil when disabled.
	Filter *filter.ProductCatalog

	closers []func()
}

// Close releases database and cache connections.
func (c *Catalogs) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}

// Telemetry carries the providers used to instrument catalog clients.
type Telemetry struct {
	Tracer trace.TracerProvider
	Meter  metric.MeterProvider
}

type listedCatalog struct {
	product.Catalog
	product.Lister
}

// OpenCatalogs builds the product lookup chain: Postgres or a catalog file,
// optionally cached in Redis, optionally behind the unknown-SKU filter.
// Readiness checks for external dependencies are registered on hs.
func OpenCatalogs(ctx context.Context, lg *zap.Logger, cfg *Config, hs *health.Health, tel Telemetry) (_ *Catalogs, rerr error) {
	c := &Catalogs{}
	defer func() {
		if rerr != nil {
			c.Close()
		}
	}()

	var source filter.Source
	switch {
	case cfg.DatabaseURL != "":
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, errors.Wrap(err, "create db pool")
		}
		c.closers = append(c.closers, pool.Close)

		if err := postgres.RunMigrations(ctx, pool); err != nil {
			return nil, errors.Wrap(err, "run migrations")
		}
		hs.AddReadinessCheck("postgres", 5*time.Second, func(ctx context.Context) error {
			return pool.Ping(ctx)
		})

		repo := postgres.NewProductRepository(pool)
		source = repo
		c.Rules = postgres.NewRuleRepository(pool)
		lg.Info("Using PostgreSQL catalog")
	default:
		f, err := file.Load(cfg.CatalogFile)
		if err != nil {
			return nil, errors.Wrap(err, "load catalog file")
		}
		products, rules, err := f.Memory()
		if err != nil {
			return nil, errors.Wrap(err, "build catalog")
		}
		source = products
		c.Rules = rules
		lg.Info("Using catalog file",
			zap.String("path", cfg.CatalogFile),
			zap.Int("products", len(f.Products)),
			zap.Int("rules", len(f.Rules)),
		)
	}
	c.Products = source

	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		c.closers = append(c.closers, func() { _ = client.Close() })
		if err := redisotel.InstrumentTracing(client, redisotel.WithTracerProvider(tel.Tracer)); err != nil {
			lg.Error("Instrument redis tracing", zap.Error(err))
		}
		if err := redisotel.InstrumentMetrics(client, redisotel.WithMeterProvider(tel.Meter)); err != nil {
			lg.Error("Instrument redis metrics", zap.Error(err))
		}
		hs.AddReadinessCheck("redis", time.Second, func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})

		c.Products = rediscache.NewProductCatalog(client, c.Products, cfg.Redis.TTL)
		lg.Info("Caching products in Redis", zap.String("addr", cfg.Redis.Addr), zap.Duration("ttl", cfg.Redis.TTL))
	}

	if cfg.Filter.Enabled {
		filtered, err := filter.NewProductCatalog(ctx,
			listedCatalog{Catalog: c.Products, Lister: source},
			cfg.Filter.FalsePositiveRate,
			filter.WithMaxAge(cfg.Filter.RefreshInterval),
		)
		if err != nil {
			return nil, errors.Wrap(err, "build sku filter")
		}
		c.Products = filtered
		c.Filter = filtered
	}

	return c, nil
}
