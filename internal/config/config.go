// Package config loads run configuration from config.yaml and CDS_-prefixed
// environment variables, and owns logger setup.
package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Feed      FeedConfig      `yaml:"feed" mapstructure:"feed"`
	Transport TransportConfig `yaml:"transport" mapstructure:"transport"`
	Query     QueryConfig     `yaml:"query" mapstructure:"query"`
	Secondary SecondaryConfig `yaml:"secondary" mapstructure:"secondary"`
	Snapshot  SnapshotConfig  `yaml:"snapshot" mapstructure:"snapshot"`
	Aliases   AliasConfig     `yaml:"aliases" mapstructure:"aliases"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// FeedConfig names the disclosure feed endpoints.
type FeedConfig struct {
	// Hosts in priority order: primary first, mirrors after. All share the
	// same path and query contract.
	Hosts     []string `yaml:"hosts" mapstructure:"hosts"`
	Path      string   `yaml:"path" mapstructure:"path"`
	DateParam string   `yaml:"date_param" mapstructure:"date_param"`
	// CoverageStart is the earliest date the feed publishes anything
	// (public dissemination go-live). ISO date.
	CoverageStart string `yaml:"coverage_start" mapstructure:"coverage_start"`
}

// CoverageStartDate parses the coverage boundary; zero when unset.
func (f FeedConfig) CoverageStartDate() (time.Time, error) {
	if f.CoverageStart == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", f.CoverageStart)
	if err != nil {
		return time.Time{}, eris.Wrapf(err, "config: bad coverage_start %q", f.CoverageStart)
	}
	return t, nil
}

// TransportConfig tunes the fetch ladder.
type TransportConfig struct {
	UserAgent          string   `yaml:"user_agent" mapstructure:"user_agent"`
	ConnectTimeoutSecs int      `yaml:"connect_timeout_secs" mapstructure:"connect_timeout_secs"`
	ReadTimeoutSecs    int      `yaml:"read_timeout_secs" mapstructure:"read_timeout_secs"`
	MaxAttempts        int      `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffSecs int      `yaml:"initial_backoff_secs" mapstructure:"initial_backoff_secs"`
	MaxBackoffSecs     int      `yaml:"max_backoff_secs" mapstructure:"max_backoff_secs"`
	RatePerSec         float64  `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	RateBurst          int      `yaml:"rate_burst" mapstructure:"rate_burst"`
	DoHEndpoints       []string `yaml:"doh_endpoints" mapstructure:"doh_endpoints"`
	// ProxyPrefix enables the passthrough-proxy rung when non-empty, e.g.
	// "https://r.jina.ai/".
	ProxyPrefix string `yaml:"proxy_prefix" mapstructure:"proxy_prefix"`
}

// QueryConfig describes the reference being backfilled.
type QueryConfig struct {
	Entity              string  `yaml:"entity" mapstructure:"entity"`
	Currency            string  `yaml:"currency" mapstructure:"currency"`
	TenorYears          float64 `yaml:"tenor_years" mapstructure:"tenor_years"`
	TenorToleranceYears float64 `yaml:"tenor_tolerance_years" mapstructure:"tenor_tolerance_years"`
	Aggregation         string  `yaml:"aggregation" mapstructure:"aggregation"`
}

// SecondaryConfig configures the optional historical fallback source.
type SecondaryConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	PageURL string `yaml:"page_url" mapstructure:"page_url"`
}

// SnapshotConfig configures raw per-day payload capture.
type SnapshotConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// AliasConfig points at an optional YAML alias table extending the builtin.
type AliasConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("CDS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("feed.hosts", []string{"regreporting.theice.com"})
	v.SetDefault("feed.path", "/trade-reporting/api/v1/public-data/sbs-transaction-csv")
	v.SetDefault("feed.date_param", "tradeDate")
	v.SetDefault("feed.coverage_start", "2022-02-14")
	v.SetDefault("transport.user_agent", "cds-backfill/1.0")
	v.SetDefault("transport.connect_timeout_secs", 10)
	v.SetDefault("transport.read_timeout_secs", 90)
	v.SetDefault("transport.max_attempts", 5)
	v.SetDefault("transport.initial_backoff_secs", 2)
	v.SetDefault("transport.max_backoff_secs", 60)
	v.SetDefault("transport.rate_per_sec", 2.0)
	v.SetDefault("transport.rate_burst", 2)
	v.SetDefault("query.entity", "United States of America")
	v.SetDefault("query.currency", "USD")
	v.SetDefault("query.tenor_years", 5)
	v.SetDefault("query.tenor_tolerance_years", 1.0)
	v.SetDefault("query.aggregation", "weighted_mean")
	v.SetDefault("secondary.enabled", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects caller input that would only fail mid-run.
func (c *Config) Validate() error {
	if len(c.Feed.Hosts) == 0 {
		return eris.New("config: feed.hosts must name at least one host")
	}
	if c.Query.TenorYears <= 0 {
		return eris.Errorf("config: tenor_years must be positive, got %v", c.Query.TenorYears)
	}
	if c.Query.TenorToleranceYears < 0 {
		return eris.Errorf("config: tenor_tolerance_years must not be negative, got %v", c.Query.TenorToleranceYears)
	}
	if strings.TrimSpace(c.Query.Entity) == "" {
		return eris.New("config: query.entity is required")
	}
	if _, err := c.Feed.CoverageStartDate(); err != nil {
		return err
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
