// Package main runs the forecast API:
// - Resolution (startup): tuned bundle, base bundle, or fallback from history
// - Reload (scheduled): re-resolves the artifact so new history is picked up
// - HTTP: /forecast, /products, /model, /health, /metrics, /status
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"demand-forecast/internal/api"
	"demand-forecast/internal/app"
	"demand-forecast/internal/config"
	"demand-forecast/internal/tracing"
)

// Server holds the long-running components.
type Server struct {
	service        *app.Service
	httpServer     *http.Server
	reloadInterval time.Duration
	logger         *log.Logger
}

func main() {
	// Load .env file if exists
	loadEnvFile()

	// Parse flags (env vars as defaults)
	configPath := flag.String("config", os.Getenv("FORECAST_CONFIG"), "Path to YAML model config (defaults when empty)")
	addr := flag.String("addr", os.Getenv("FORECAST_ADDR"), "HTTP listen address (overrides config)")
	backend := flag.String("history-backend", os.Getenv("HISTORY_BACKEND"), "History backend: clickhouse, postgres, memory (overrides config)")
	dsn := flag.String("history-dsn", os.Getenv("HISTORY_DSN"), "Warehouse connection string (overrides config)")
	useMemory := flag.Bool("use-memory", envBool("USE_MEMORY"), "Use in-memory history store instead of a warehouse")
	migrate := flag.Bool("migrate", envBool("MIGRATE"), "Apply embedded schema migrations on startup")
	redisAddr := flag.String("redis-addr", os.Getenv("REDIS_ADDR"), "Redis address for the shared forecast cache (overrides config)")
	otlpEndpoint := flag.String("otlp-endpoint", os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"), "OTLP/gRPC collector endpoint (overrides config)")
	reloadInterval := flag.Duration("reload-interval", 0, "Artifact reload interval (0 disables)")
	accessLog := flag.Bool("access-log", false, "Write combined-format access logs to stdout")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	applyOverrides(cfg, *addr, *backend, *dsn, *redisAddr, *otlpEndpoint, *useMemory)
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("Invalid config: %v", err)
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())

	tcfg := tracing.DefaultConfig("demand-forecast")
	tcfg.CollectorEndpoint = cfg.Tracing.Endpoint
	tcfg.SamplingRate = cfg.Tracing.SamplingRate
	tcfg.Environment = cfg.Tracing.Environment
	tp, err := tracing.Init(ctx, tcfg)
	if err != nil {
		logger.Fatalf("Failed to init tracing: %v", err)
	}

	service, err := app.Open(ctx, cfg, app.Options{
		Migrate: *migrate,
		Logger:  log.New(os.Stdout, "[forecast] ", log.LstdFlags|log.Lshortfile),
	})
	if err != nil {
		logger.Fatalf("Failed to open stores: %v", err)
	}
	defer service.Close()

	apiOpts := api.Options{
		Forecaster:      service.Engine,
		Reloader:        service.Resolver,
		Artifacts:       service.Resolver,
		AllowedHorizons: cfg.Forecast.AllowedHorizons,
		DefaultHorizon:  cfg.Forecast.DefaultHorizon,
		RateLimit:       cfg.Server.RateLimit,
		Burst:           cfg.Server.Burst,
		Logger:          log.New(os.Stdout, "[api] ", log.LstdFlags|log.Lshortfile),
	}
	if *accessLog {
		apiOpts.AccessLog = os.Stdout
	}

	server := &Server{
		service: service,
		httpServer: &http.Server{
			Addr:              cfg.Server.Addr,
			Handler:           api.New(apiOpts).Handler(),
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		reloadInterval: *reloadInterval,
		logger:         logger,
	}

	// Channel to signal completion
	done := make(chan error, 1)

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	err = server.Run(ctx)
	done <- err
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := tracing.Shutdown(shutdownCtx, tp); err != nil {
		logger.Printf("Tracing shutdown: %v", err)
	}
	shutdownCancel()

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("Server error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// Run warms the artifact, serves HTTP, and reloads on schedule until ctx ends.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Println("Starting forecast server...")

	// A failed warm-up is not fatal: requests retry resolution and /status reports it.
	if a, err := s.service.Resolver.Resolve(ctx); err != nil {
		s.logger.Printf("Artifact warm-up failed: %v", err)
	} else {
		s.logger.Printf("Serving %s artifact %s", a.Tier, a.Fingerprint)
	}

	errCh := make(chan error, 2)

	go func() {
		s.logger.Printf("Starting HTTP server on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	if s.reloadInterval > 0 {
		go s.runReloadScheduler(ctx)
	}

	var runErr error
	select {
	case <-ctx.Done():
		runErr = ctx.Err()
	case runErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Printf("HTTP shutdown: %v", err)
	}
	return runErr
}

// runReloadScheduler re-resolves the artifact on every tick.
func (s *Server) runReloadScheduler(ctx context.Context) {
	s.logger.Printf("Starting reload scheduler (interval: %v)...", s.reloadInterval)

	ticker := time.NewTicker(s.reloadInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a, err := s.service.Resolver.Reload(ctx)
			if err != nil {
				s.logger.Printf("Scheduled reload failed, keeping current artifact: %v", err)
				continue
			}
			s.logger.Printf("Reloaded %s artifact %s", a.Tier, a.Fingerprint)
		}
	}
}

// loadConfig reads path, or returns defaults when path is empty.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// applyOverrides lets flags and env vars win over the config file.
func applyOverrides(cfg *config.Config, addr, backend, dsn, redisAddr, otlpEndpoint string, useMemory bool) {
	if addr != "" {
		cfg.Server.Addr = addr
	}
	if backend != "" {
		cfg.History.Backend = backend
	}
	if dsn != "" {
		cfg.History.DSN = dsn
	}
	if useMemory {
		cfg.History.Backend = config.BackendMemory
	}
	if redisAddr != "" {
		cfg.Cache.RedisAddr = redisAddr
	}
	if otlpEndpoint != "" {
		cfg.Tracing.Endpoint = otlpEndpoint
	}
}

// envBool reads a boolean env var; unset or malformed reads as false.
func envBool(key string) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	return err == nil && v
}

// loadEnvFile loads environment variables from .env file.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)

		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, strings.TrimSpace(value))
		}
	}
}
