// Package config loads and validates harvester configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all configuration knobs loaded via Viper. Values come
// from defaults, an optional config file, ERDDAP_* environment variables,
// and CLI flags bound over them.
type Config struct {
	Harvest HarvestConfig `mapstructure:"harvest"`
	DAS     DASConfig     `mapstructure:"das"`
	Check   CheckConfig   `mapstructure:"check"`
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// HarvestConfig governs catalog traversal and output generation.
type HarvestConfig struct {
	MaxDepth        int           `mapstructure:"max_depth"`
	CatalogWorkers  int           `mapstructure:"catalog_workers"`
	MetadataWorkers int           `mapstructure:"metadata_workers"`
	Delay           time.Duration `mapstructure:"delay"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	UserAgent       string        `mapstructure:"user_agent"`
	ReloadMinutes   int           `mapstructure:"reload_minutes"`
	KeepEmpty       bool          `mapstructure:"keep_empty"`
}

// DASConfig controls DAS metadata fetch retry behavior.
type DASConfig struct {
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
}

// CheckConfig controls the availability checker.
type CheckConfig struct {
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
	Workers    int           `mapstructure:"workers"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// MetricsConfig toggles the prometheus progress sink.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Load builds a Config from defaults, an optional file, and environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ERDDAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("harvest.max_depth", 5)
	v.SetDefault("harvest.catalog_workers", 5)
	v.SetDefault("harvest.metadata_workers", 10)
	v.SetDefault("harvest.delay", "500ms")
	v.SetDefault("harvest.request_timeout", "30s")
	v.SetDefault("harvest.user_agent", "erddap-harvester/1.0")
	v.SetDefault("harvest.reload_minutes", 10080)
	v.SetDefault("harvest.keep_empty", false)
	v.SetDefault("das.timeout", "30s")
	v.SetDefault("das.max_retries", 3)
	v.SetDefault("check.timeout", "10s")
	v.SetDefault("check.max_retries", 3)
	v.SetDefault("check.workers", 8)
	v.SetDefault("logging.development", true)
	v.SetDefault("metrics.enabled", false)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Harvest.MaxDepth < 0 {
		return fmt.Errorf("harvest.max_depth must be >= 0")
	}
	if c.Harvest.CatalogWorkers <= 0 {
		return fmt.Errorf("harvest.catalog_workers must be > 0")
	}
	if c.Harvest.MetadataWorkers <= 0 {
		return fmt.Errorf("harvest.metadata_workers must be > 0")
	}
	if c.Harvest.RequestTimeout <= 0 {
		return fmt.Errorf("harvest.request_timeout must be > 0")
	}
	if c.Harvest.ReloadMinutes <= 0 {
		return fmt.Errorf("harvest.reload_minutes must be > 0")
	}
	if c.DAS.Timeout <= 0 {
		return fmt.Errorf("das.timeout must be > 0")
	}
	if c.DAS.MaxRetries < 0 {
		return fmt.Errorf("das.max_retries must be >= 0")
	}
	if c.Check.Timeout <= 0 {
		return fmt.Errorf("check.timeout must be > 0")
	}
	if c.Check.Workers <= 0 {
		return fmt.Errorf("check.workers must be > 0")
	}
	return nil
}
