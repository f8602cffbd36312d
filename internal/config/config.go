// Package config loads application configuration from file and environment
// and initializes the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/venue-grouper/internal/cost"
	"github.com/sells-group/venue-grouper/internal/store"
)

// Config holds the full application configuration.
type Config struct {
	Places  PlacesConfig  `yaml:"places" mapstructure:"places"`
	Session SessionConfig `yaml:"session" mapstructure:"session"`
	Cache   CacheConfig   `yaml:"cache" mapstructure:"cache"`
	Campus  CampusConfig  `yaml:"campus" mapstructure:"campus"`
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Pricing cost.Rates    `yaml:"pricing" mapstructure:"pricing"`
	Batch   BatchConfig   `yaml:"batch" mapstructure:"batch"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// PlacesConfig holds place-search API credentials and endpoint settings.
type PlacesConfig struct {
	APIKey          string `yaml:"api_key" mapstructure:"api_key"`
	BaseURL         string `yaml:"base_url" mapstructure:"base_url"`
	BaseDelayMillis int    `yaml:"base_delay_millis" mapstructure:"base_delay_millis"`
	DelayIncrMillis int    `yaml:"delay_incr_millis" mapstructure:"delay_incr_millis"`
}

// SessionConfig configures grouping session behavior.
type SessionConfig struct {
	Mode             string  `yaml:"mode" mapstructure:"mode"`
	BudgetUSD        float64 `yaml:"budget_usd" mapstructure:"budget_usd"`
	MaxPaidLocations int     `yaml:"max_paid_locations" mapstructure:"max_paid_locations"`
	Tier             string  `yaml:"tier" mapstructure:"tier"`
}

// CacheConfig configures the result cache tiers.
type CacheConfig struct {
	MaxEntries      int `yaml:"max_entries" mapstructure:"max_entries"`
	TTLMinutes      int `yaml:"ttl_minutes" mapstructure:"ttl_minutes"`
	PersistTTLHours int `yaml:"persist_ttl_hours" mapstructure:"persist_ttl_hours"`
	CoarsenDecimals int `yaml:"coarsen_decimals" mapstructure:"coarsen_decimals"`
}

// CampusConfig configures the organization campus catalog.
type CampusConfig struct {
	CatalogPath   string `yaml:"catalog_path" mapstructure:"catalog_path"`
	ShapefilePath string `yaml:"shapefile_path" mapstructure:"shapefile_path"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string            `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string            `yaml:"database_url" mapstructure:"database_url"`
	Pool        *store.PoolConfig `yaml:"pool" mapstructure:"pool"`
}

// BatchConfig configures multi-session batch processing.
type BatchConfig struct {
	MaxConcurrentSessions int `yaml:"max_concurrent_sessions" mapstructure:"max_concurrent_sessions"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("VENUEGROUPER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("places.base_url", "https://places.googleapis.com/v1")
	v.SetDefault("places.base_delay_millis", 200)
	v.SetDefault("places.delay_incr_millis", 50)
	v.SetDefault("session.mode", "balanced")
	v.SetDefault("session.budget_usd", 0.25)
	v.SetDefault("session.max_paid_locations", 5)
	v.SetDefault("session.tier", "minimal")
	v.SetDefault("cache.max_entries", 1000)
	v.SetDefault("cache.ttl_minutes", 30)
	v.SetDefault("cache.persist_ttl_hours", 4)
	v.SetDefault("cache.coarsen_decimals", 2)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "venue-grouper.db")
	v.SetDefault("batch.max_concurrent_sessions", 4)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("pricing.minimal", 0.004)
	v.SetDefault("pricing.standard", 0.006)
	v.SetDefault("pricing.enhanced", 0.010)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the invariants that must hold before any session starts.
// A missing API key or a negative budget aborts before a single call.
func (c *Config) Validate() error {
	if c.Places.APIKey == "" {
		return eris.New("config: places.api_key is required")
	}
	if c.Session.BudgetUSD < 0 {
		return eris.New("config: session.budget_usd must not be negative")
	}
	if c.Cache.CoarsenDecimals < 0 {
		return eris.New("config: cache.coarsen_decimals must not be negative")
	}
	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		return eris.Errorf("config: unknown store driver %q", c.Store.Driver)
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
