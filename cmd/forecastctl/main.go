// Package main is the operator CLI for the forecast engine.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"demand-forecast/internal/app"
	"demand-forecast/internal/config"
)

var (
	// Global flags
	configFile     string
	historyBackend string
	historyDSN     string
	useMemory      bool
	migrate        bool
	verbose        bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "forecastctl",
		Short: "Operator CLI for the demand forecast engine",
		Long: `Runs forecasts, evaluates the active artifact, and moves demand history
between order exports, the warehouse, and the offline snapshot.`,
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", os.Getenv("FORECAST_CONFIG"), "YAML model config (defaults when empty)")
	rootCmd.PersistentFlags().StringVar(&historyBackend, "history-backend", os.Getenv("HISTORY_BACKEND"), "History backend: clickhouse, postgres, memory")
	rootCmd.PersistentFlags().StringVar(&historyDSN, "history-dsn", os.Getenv("HISTORY_DSN"), "Warehouse connection string")
	rootCmd.PersistentFlags().BoolVar(&useMemory, "use-memory", false, "Use an empty in-memory history store")
	rootCmd.PersistentFlags().BoolVar(&migrate, "migrate", false, "Apply embedded schema migrations before use")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Verbose logging")

	// Subcommands
	rootCmd.AddCommand(forecastCmd())
	rootCmd.AddCommand(productsCmd())
	rootCmd.AddCommand(modelCmd())
	rootCmd.AddCommand(evaluateCmd())
	rootCmd.AddCommand(freezeCmd())
	rootCmd.AddCommand(ingestCmd())
	rootCmd.AddCommand(snapshotCmd())
	rootCmd.AddCommand(featuresCmd())
	rootCmd.AddCommand(verifyCmd())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the config file and applies the global flag overrides.
func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if configFile != "" {
		var err error
		cfg, err = config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}
	if historyBackend != "" {
		cfg.History.Backend = historyBackend
	}
	if historyDSN != "" {
		cfg.History.DSN = historyDSN
	}
	if useMemory {
		cfg.History.Backend = config.BackendMemory
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openService loads config and wires the full stack.
func openService(ctx context.Context) (*app.Service, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	svc, err := app.Open(ctx, cfg, app.Options{Migrate: migrate, Logger: newLogger("forecast")})
	if err != nil {
		return nil, fmt.Errorf("failed to open stores: %w", err)
	}
	return svc, nil
}

// newLogger writes to stderr with --verbose and discards otherwise.
func newLogger(component string) *log.Logger {
	if !verbose {
		return log.New(io.Discard, "", 0)
	}
	return log.New(os.Stderr, "["+component+"] ", log.LstdFlags)
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// createOutput opens path for writing, or stdout when path is empty or "-".
func createOutput(path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopCloser{os.Stdout}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	return f, nil
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// readFile opens path and decodes it with read.
func readFile[T any](path string, read func(io.Reader) (T, error)) (T, error) {
	var zero T
	f, err := os.Open(path)
	if err != nil {
		return zero, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	v, err := read(f)
	if err != nil {
		return zero, fmt.Errorf("read %s: %w", path, err)
	}
	return v, nil
}
