package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
	Provider ProviderConfig `yaml:"provider" mapstructure:"provider"`
	Search   SearchConfig   `yaml:"search" mapstructure:"search"`
	Ingest   IngestConfig   `yaml:"ingest" mapstructure:"ingest"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// ProviderConfig configures the places search provider.
type ProviderConfig struct {
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	APIKey      string `yaml:"api_key" mapstructure:"api_key"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// SearchConfig holds the defaults applied to search requests that omit a
// field.
type SearchConfig struct {
	Coordinates string `yaml:"coordinates" mapstructure:"coordinates"`
	ZoomLevel   int    `yaml:"zoom_level" mapstructure:"zoom_level"`
	Lang        string `yaml:"lang" mapstructure:"lang"`
	Region      string `yaml:"region" mapstructure:"region"`
	ReviewsSort string `yaml:"reviews_sort" mapstructure:"reviews_sort"`
}

// IngestConfig configures persistence of search results.
type IngestConfig struct {
	FailurePolicy string `yaml:"failure_policy" mapstructure:"failure_policy"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("PLACES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.max_conns", 0)
	v.SetDefault("store.min_conns", 0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("provider.base_url", "https://cloud.gmapsextractor.com/api/v2")
	v.SetDefault("provider.api_key", "")
	v.SetDefault("provider.timeout_secs", 60)
	v.SetDefault("search.coordinates", "40.6970194,-74.3093048")
	v.SetDefault("search.zoom_level", 11)
	v.SetDefault("search.lang", "en")
	v.SetDefault("search.region", "us")
	v.SetDefault("search.reviews_sort", "newest")
	v.SetDefault("ingest.failure_policy", "rollback_query")

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

// Validate checks the configuration for the given command mode ("serve",
// "search" or "migrate") and reports every problem at once.
func (c *Config) Validate(mode string) error {
	var missing []string

	switch c.Store.Driver {
	case "postgres":
		if c.Store.DatabaseURL == "" {
			missing = append(missing, "store.database_url is required for the postgres driver")
		}
	case "sqlite":
		if c.Store.DatabaseURL == "" {
			missing = append(missing, "store.database_url is required (sqlite file path)")
		}
	default:
		missing = append(missing, fmt.Sprintf("store.driver %q is not supported (postgres, sqlite)", c.Store.Driver))
	}
	if c.Store.MinConns < 0 || c.Store.MaxConns < 0 {
		missing = append(missing, "store.max_conns and store.min_conns must be >= 0")
	}
	if c.Store.MaxConns > 0 && c.Store.MinConns > c.Store.MaxConns {
		missing = append(missing, "store.min_conns must be <= store.max_conns")
	}

	switch c.Ingest.FailurePolicy {
	case "", "rollback_query", "skip_place":
	default:
		missing = append(missing, fmt.Sprintf("ingest.failure_policy %q is not supported (rollback_query, skip_place)", c.Ingest.FailurePolicy))
	}

	if c.Search.ZoomLevel < 0 || c.Search.ZoomLevel > 21 {
		missing = append(missing, "search.zoom_level must be between 0 and 21")
	}

	if c.Provider.TimeoutSecs <= 0 {
		missing = append(missing, "provider.timeout_secs must be > 0")
	}

	switch mode {
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			missing = append(missing, "server.port must be > 0 and <= 65535")
		}
	case "search":
		if c.Provider.APIKey == "" {
			missing = append(missing, "provider.api_key is required")
		}
	case "migrate":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(missing) > 0 {
		return eris.Errorf("config: validation failed: %s", strings.Join(missing, "; "))
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
