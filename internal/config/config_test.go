package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"demand-forecast/internal/features"
)

func TestDefault_IsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestDecode_OverridesDefaults(t *testing.T) {
	in := `
paths:
  base_artifact: /models/base.json
forecast:
  allowed_horizons: [7, 14, 30, 60]
  default_horizon: 14
history:
  backend: postgres
  dsn: postgres://u:p@db/forecast
cache:
  ttl: 90s
features:
  contextual: [event_count, promo_flag]
`
	cfg, err := Decode(strings.NewReader(in))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if cfg.Paths.BaseArtifact != "/models/base.json" {
		t.Errorf("unexpected base artifact %q", cfg.Paths.BaseArtifact)
	}
	if cfg.Paths.TunedArtifact != Default().Paths.TunedArtifact {
		t.Errorf("unset key should keep default, got %q", cfg.Paths.TunedArtifact)
	}
	if !cfg.HorizonAllowed(60) || cfg.HorizonAllowed(8) {
		t.Errorf("unexpected horizons %v", cfg.Forecast.AllowedHorizons)
	}
	if cfg.Cache.TTL != 90*time.Second {
		t.Errorf("expected ttl 90s, got %v", cfg.Cache.TTL)
	}

	opts := cfg.ParseOptions()
	if len(opts.ExtraContextual) != 1 || opts.ExtraContextual[0] != "promo_flag" {
		t.Errorf("expected promo_flag as extra contextual, got %v", opts.ExtraContextual)
	}
	if _, err := features.ParseColumns([]string{"promo_flag", "total_quantity_lag_7"}, opts); err != nil {
		t.Errorf("ParseColumns with config options failed: %v", err)
	}
}

func TestDecode_Empty(t *testing.T) {
	cfg, err := Decode(strings.NewReader("  \n"))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if cfg.Forecast.DefaultHorizon != 14 {
		t.Errorf("expected defaults, got %+v", cfg.Forecast)
	}
}

func TestDecode_UnknownKey(t *testing.T) {
	if _, err := Decode(strings.NewReader("forecast:\n  horizon: 7\n")); err == nil {
		t.Error("expected error for unknown key")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"zero lag", func(c *Config) { c.Features.Lags = []int{0} }},
		{"negative window", func(c *Config) { c.Features.RollingWindows = []int{-7} }},
		{"no horizons", func(c *Config) { c.Forecast.AllowedHorizons = nil }},
		{"default horizon not allowed", func(c *Config) { c.Forecast.DefaultHorizon = 9 }},
		{"alpha zero", func(c *Config) { c.Forecast.SmoothingAlpha = 0 }},
		{"alpha above one", func(c *Config) { c.Forecast.SmoothingAlpha = 1.5 }},
		{"unknown backend", func(c *Config) { c.History.Backend = "bigquery" }},
		{"missing dsn", func(c *Config) { c.History.DSN = "" }},
		{"negative cache size", func(c *Config) { c.Cache.Size = -1 }},
		{"burst without rate", func(c *Config) { c.Server.Burst = 0 }},
		{"sampling rate", func(c *Config) { c.Tracing.SamplingRate = 2 }},
		{"duplicate feature", func(c *Config) { c.Features.Lags = []int{7, 7} }},
		{"empty target", func(c *Config) { c.Data.TargetColumn = " " }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestValidate_MemoryBackendNeedsNoDSN(t *testing.T) {
	cfg := Default()
	cfg.History.Backend = BackendMemory
	cfg.History.DSN = ""
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config, got %v", err)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.yaml")
	if err := os.WriteFile(path, []byte("server:\n  addr: \":9090\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Addr != ":9090" {
		t.Errorf("expected :9090, got %q", cfg.Server.Addr)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected os.ErrNotExist, got %v", err)
	}
}

func TestLoad_ExampleConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "configs", "model.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.History.LookbackDays != 365 {
		t.Errorf("lookback = %d, want 365", cfg.History.LookbackDays)
	}
	if cfg.Cache.TTL != 10*time.Minute {
		t.Errorf("ttl = %v, want 10m", cfg.Cache.TTL)
	}
}
