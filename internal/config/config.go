// Package config loads the forecasting model configuration from YAML.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"demand-forecast/internal/features"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

// History backends.
const (
	BackendClickHouse = "clickhouse"
	BackendPostgres   = "postgres"
	BackendMemory     = "memory"
)

// Config is the full model configuration.
type Config struct {
	Paths    PathsConfig    `yaml:"paths"`
	Data     DataConfig     `yaml:"data"`
	Features FeaturesConfig `yaml:"features"`
	Forecast ForecastConfig `yaml:"forecast"`
	History  HistoryConfig  `yaml:"history"`
	Cache    CacheConfig    `yaml:"cache"`
	Server   ServerConfig   `yaml:"server"`
	Tracing  TracingConfig  `yaml:"tracing"`
}

// PathsConfig locates artifacts and the offline snapshot.
type PathsConfig struct {
	TunedArtifact string `yaml:"tuned_artifact"`
	BaseArtifact  string `yaml:"base_artifact"`
	SnapshotDB    string `yaml:"snapshot_db"`
}

// DataConfig names the tabular columns.
type DataConfig struct {
	// TargetColumn prefixes lag and rolling column names in trained bundles.
	TargetColumn string `yaml:"target_column"`
}

// FeaturesConfig describes the feature families used for training frames.
type FeaturesConfig struct {
	Lags           []int    `yaml:"lags"`
	RollingWindows []int    `yaml:"rolling_windows"`
	Contextual     []string `yaml:"contextual"`
}

// ForecastConfig holds serving-side forecast settings.
type ForecastConfig struct {
	AllowedHorizons []int   `yaml:"allowed_horizons"`
	DefaultHorizon  int     `yaml:"default_horizon"`
	SmoothingAlpha  float64 `yaml:"smoothing_alpha"`
	HoldoutDays     int     `yaml:"holdout_days"`
}

// HistoryConfig selects the warehouse backend.
type HistoryConfig struct {
	Backend string `yaml:"backend"`
	DSN     string `yaml:"dsn"`
	// LookbackDays limits warehouse reads to recent history. 0 reads everything.
	LookbackDays int `yaml:"lookback_days"`
}

// CacheConfig configures the forecast result cache.
type CacheConfig struct {
	Size          int           `yaml:"size"`
	TTL           time.Duration `yaml:"ttl"`
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `yaml:"addr"`
	// RateLimit is requests per second across all clients. 0 disables limiting.
	RateLimit float64 `yaml:"rate_limit"`
	Burst     int     `yaml:"burst"`
}

// TracingConfig configures OTLP trace export.
type TracingConfig struct {
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"sampling_rate"`
	Environment  string  `yaml:"environment"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Paths: PathsConfig{
			TunedArtifact: "artifacts/model_tuned.json",
			BaseArtifact:  "artifacts/model.json",
			SnapshotDB:    "data/processed/snapshot.db",
		},
		Data: DataConfig{
			TargetColumn: "total_quantity",
		},
		Features: FeaturesConfig{
			Lags:           []int{1, 7, 14, 28},
			RollingWindows: []int{7, 14, 28},
			Contextual:     []string{"event_count", "active_users", "price"},
		},
		Forecast: ForecastConfig{
			AllowedHorizons: []int{7, 14, 30},
			DefaultHorizon:  14,
			SmoothingAlpha:  0.3,
			HoldoutDays:     14,
		},
		History: HistoryConfig{
			Backend: BackendClickHouse,
			DSN:     "clickhouse://localhost:9000/forecast",
		},
		Cache: CacheConfig{
			Size: 1024,
			TTL:  10 * time.Minute,
		},
		Server: ServerConfig{
			Addr:      ":8080",
			RateLimit: 50,
			Burst:     100,
		},
		Tracing: TracingConfig{
			SamplingRate: 0.1,
			Environment:  "development",
		},
	}
}

// Load reads path over Default and validates the result.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode reads YAML from r over Default and validates the result.
// Unknown keys are rejected.
func Decode(r io.Reader) (*Config, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if len(bytes.TrimSpace(b)) > 0 {
		dec := yaml.NewDecoder(bytes.NewReader(b))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil {
			return nil, fmt.Errorf("decode config: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the forecaster cannot run with.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(strings.TrimSpace(c.Data.TargetColumn) != "", "data.target_column is empty")

	for _, k := range c.Features.Lags {
		check(k >= 1, "features.lags: %d is not positive", k)
	}
	for _, w := range c.Features.RollingWindows {
		check(w >= 1, "features.rolling_windows: %d is not positive", w)
	}

	check(len(c.Forecast.AllowedHorizons) > 0, "forecast.allowed_horizons is empty")
	for _, h := range c.Forecast.AllowedHorizons {
		check(h >= 1, "forecast.allowed_horizons: %d is not positive", h)
	}
	check(c.HorizonAllowed(c.Forecast.DefaultHorizon), "forecast.default_horizon %d is not allowed", c.Forecast.DefaultHorizon)
	check(c.Forecast.SmoothingAlpha > 0 && c.Forecast.SmoothingAlpha <= 1, "forecast.smoothing_alpha %v outside (0, 1]", c.Forecast.SmoothingAlpha)
	check(c.Forecast.HoldoutDays >= 1, "forecast.holdout_days %d is not positive", c.Forecast.HoldoutDays)

	switch c.History.Backend {
	case BackendClickHouse, BackendPostgres:
		check(c.History.DSN != "", "history.dsn is required for backend %s", c.History.Backend)
	case BackendMemory:
	default:
		check(false, "history.backend %q is not one of clickhouse, postgres, memory", c.History.Backend)
	}
	check(c.History.LookbackDays >= 0, "history.lookback_days %d is negative", c.History.LookbackDays)

	check(c.Cache.Size >= 0, "cache.size %d is negative", c.Cache.Size)
	check(c.Cache.TTL >= 0, "cache.ttl %v is negative", c.Cache.TTL)
	check(c.Server.RateLimit >= 0, "server.rate_limit %v is negative", c.Server.RateLimit)
	check(c.Server.RateLimit == 0 || c.Server.Burst >= 1, "server.burst must be positive when rate limiting")
	check(c.Tracing.SamplingRate >= 0 && c.Tracing.SamplingRate <= 1, "tracing.sampling_rate %v outside [0, 1]", c.Tracing.SamplingRate)

	if _, err := c.TrainingSpec(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// HorizonAllowed reports whether h is one of the allowed horizons.
func (c *Config) HorizonAllowed(h int) bool {
	for _, a := range c.Forecast.AllowedHorizons {
		if a == h {
			return true
		}
	}
	return false
}

// FeatureConfig returns the feature families for training frames.
func (c *Config) FeatureConfig() features.Config {
	return features.Config{
		Lags:              c.Features.Lags,
		RollingWindows:    c.Features.RollingWindows,
		ContextualColumns: c.Features.Contextual,
	}
}

// TrainingSpec builds the feature spec training frames are exported with.
func (c *Config) TrainingSpec() (*features.Spec, error) {
	return features.FromConfig(c.FeatureConfig())
}

// ParseOptions returns the column parsing options for loaded bundles.
func (c *Config) ParseOptions() features.ParseOptions {
	var extra []string
	known := make(map[string]bool, len(features.DefaultContextual))
	for _, name := range features.DefaultContextual {
		known[name] = true
	}
	for _, name := range c.Features.Contextual {
		if !known[name] {
			extra = append(extra, name)
		}
	}
	return features.ParseOptions{TargetColumn: c.Data.TargetColumn, ExtraContextual: extra}
}
