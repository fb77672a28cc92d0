package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Config holds the till server configuration, loadable from environment
// variables (TILL_ prefix), flags, or YAML config files.
type Config struct {
	Addr        string `default:"0.0.0.0:8080" usage:"Till server listen address"`
	DatabaseURL string `usage:"PostgreSQL catalog connection URL (TILL_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	CatalogFile string `usage:"JSON catalog file (.json or .json.gz), used when no database is configured" flag:"catalog-file"`
	Redis       RedisConfig
	Filter      FilterConfig
	Graceful    GracefulConfig
}

// RedisConfig controls the product lookup cache.
type RedisConfig struct {
	Addr string        `default:"" usage:"Redis address for the product cache; empty disables caching" flag:"redis-addr"`
	TTL  time.Duration `default:"5m" usage:"Product cache entry lifetime" flag:"redis-ttl"`
}

// FilterConfig controls the unknown-SKU bloom filter.
type FilterConfig struct {
	Enabled           bool          `default:"true" usage:"Reject unknown SKUs before querying the catalog" flag:"filter-enabled"`
	FalsePositiveRate float64       `default:"0.001" usage:"Target bloom filter false positive rate" flag:"filter-fp-rate"`
	RefreshInterval   time.Duration `default:"30s" usage:"How often the filter is rebuilt from the catalog; misses older than this reach the catalog" flag:"filter-refresh-interval"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, flags and YAML
// config files, and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	return loadConfig(false)
}

func loadConfig(skipFlags bool) (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "TILL",
		SkipFlags: skipFlags,
		Files:     []string{"config.yaml", "/etc/till/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" && c.CatalogFile == "" {
		return errors.New("catalog source is required: set TILL_DATABASE_URL or TILL_CATALOG_FILE")
	}
	if c.Filter.Enabled && (c.Filter.FalsePositiveRate <= 0 || c.Filter.FalsePositiveRate >= 1) {
		return errors.Errorf("filter false positive rate %v must be in (0, 1)", c.Filter.FalsePositiveRate)
	}
	if c.Filter.Enabled && c.Filter.RefreshInterval <= 0 {
		return errors.Errorf("filter refresh interval %v must be positive", c.Filter.RefreshInterval)
	}
	return nil
}

// applyPlatformDefaults maps platform-provided DATABASE_URL and PORT onto the
// TILL_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
