package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"demand-forecast/internal/artifact"
	"demand-forecast/internal/config"
	"demand-forecast/internal/domain"
	"demand-forecast/internal/features"
	"demand-forecast/internal/ingest"
	"demand-forecast/internal/storage/sqlite"
	"demand-forecast/internal/verification"
)

// ingestCmd aggregates an order export into the warehouse.
func ingestCmd() *cobra.Command {
	var ordersPath, eventsPath, usersPath, pricesPath string

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Aggregate an orders CSV into daily demand and load it",
		Long: `Explodes each order's comma-separated product list, counts demand per
(day, product), joins optional event, user and price exports, and inserts the
result into the configured history store in one batch.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			orders, err := readFile(ordersPath, ingest.ReadOrdersCSV)
			if err != nil {
				return err
			}

			var c ingest.Context
			if eventsPath != "" {
				if c.Events, err = readFile(eventsPath, ingest.ReadEventsCSV); err != nil {
					return err
				}
			}
			if usersPath != "" {
				if c.Users, err = readFile(usersPath, ingest.ReadUsersCSV); err != nil {
					return err
				}
			}
			if pricesPath != "" {
				if c.Prices, err = readFile(pricesPath, ingest.ReadPricesCSV); err != nil {
					return err
				}
			}

			svc, err := openService(ctx)
			if err != nil {
				return err
			}
			defer svc.Close()

			runner := ingest.NewRunner(ingest.RunnerOptions{
				Store:     svc.Store,
				StoreName: svc.StoreName,
				Logger:    newLogger("ingest"),
			})
			n, err := runner.Run(ctx, orders, c)
			if err != nil {
				return err
			}
			fmt.Printf("Ingested %d demand records from %d orders into %s\n", n, len(orders), svc.StoreName)
			return nil
		},
	}

	cmd.Flags().StringVar(&ordersPath, "orders", "", "Orders CSV (order_id, order_date, product_ids)")
	cmd.Flags().StringVar(&eventsPath, "events", "", "Product events CSV (product_id, timestamp)")
	cmd.Flags().StringVar(&usersPath, "users", "", "User signups CSV (user_id, created_at)")
	cmd.Flags().StringVar(&pricesPath, "prices", "", "Product catalog CSV (product_id, price)")
	cmd.MarkFlagRequired("orders")
	return cmd
}

// snapshotCmd copies warehouse history into the offline sqlite snapshot.
func snapshotCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Copy warehouse history into the offline snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			svc, err := openService(ctx)
			if err != nil {
				return err
			}
			defer svc.Close()

			records, err := svc.Store.Query(ctx, domain.HistoryQuery{})
			if err != nil {
				return fmt.Errorf("query %s: %w", svc.StoreName, err)
			}
			if len(records) == 0 {
				return fmt.Errorf("no history in %s, snapshot left unchanged", svc.StoreName)
			}

			if out == "" {
				out = svc.Config.Paths.SnapshotDB
			}
			if err := writeSnapshot(ctx, out, records); err != nil {
				return err
			}
			fmt.Printf("Wrote %d records to %s\n", len(records), out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "Snapshot path (config snapshot_db when empty)")
	return cmd
}

func writeSnapshot(ctx context.Context, path string, records []*domain.DemandRecord) error {
	store, err := sqlite.Open(ctx, path)
	if err != nil {
		return fmt.Errorf("open snapshot: %w", err)
	}
	defer store.Close()

	if err := store.Replace(ctx, records); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

// featuresCmd exports the training frame for the configured feature families.
func featuresCmd() *cobra.Command {
	var (
		out         string
		artifactCol bool
	)

	cmd := &cobra.Command{
		Use:   "features",
		Short: "Export the training feature frame as CSV",
		Long: `Builds one row per (product, day) with the lags, rolling windows and
contextual columns from the model config, computed by the same reconstruction
the engine uses at inference time. --artifact-spec exports the active
artifact's columns instead, for parity checks against its trainer.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			svc, err := openService(ctx)
			if err != nil {
				return err
			}
			defer svc.Close()

			a, err := svc.Resolver.Resolve(ctx)
			if err != nil {
				return err
			}
			v, err := parityVerifier(svc.Config, a, artifactCol)
			if err != nil {
				return err
			}
			rows, err := v.Rows(ctx)
			if err != nil {
				return err
			}

			w, err := createOutput(out)
			if err != nil {
				return err
			}
			if err := features.WriteTrainingCSV(w, v.Spec(), rows); err != nil {
				w.Close()
				return err
			}
			if err := w.Close(); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "Wrote %d rows with %d feature columns\n", len(rows), v.Spec().Len())
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "-", "Output CSV path (stdout with -)")
	cmd.Flags().BoolVar(&artifactCol, "artifact-spec", false, "Use the active artifact's feature columns instead of the config")
	return cmd
}

// parityVerifier reconstructs either the configured training columns or,
// with useArtifact, the artifact's own.
func parityVerifier(cfg *config.Config, a *artifact.Artifact, useArtifact bool) (*verification.ParityVerifier, error) {
	v := verification.NewParityVerifier(a)
	if useArtifact {
		return v, nil
	}
	spec, err := cfg.TrainingSpec()
	if err != nil {
		return nil, err
	}
	return v.WithSpec(spec), nil
}

// verifyCmd checks an externally computed training frame against reconstruction.
func verifyCmd() *cobra.Command {
	var (
		in          string
		maxShown    int
		artifactCol bool
	)

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify a trainer's feature CSV matches inference-time reconstruction",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			svc, err := openService(ctx)
			if err != nil {
				return err
			}
			defer svc.Close()

			a, err := svc.Resolver.Resolve(ctx)
			if err != nil {
				return err
			}

			v, err := parityVerifier(svc.Config, a, artifactCol)
			if err != nil {
				return err
			}

			f, err := os.Open(in)
			if err != nil {
				return fmt.Errorf("open %s: %w", in, err)
			}
			expected, err := features.ReadTrainingCSV(f, v.Spec())
			f.Close()
			if err != nil {
				return fmt.Errorf("read %s: %w", in, err)
			}

			report, err := v.VerifyRows(ctx, expected)
			if err != nil {
				return err
			}

			fmt.Printf("Rows: %d, matched: %d, divergent: %d\n", report.TotalRows, report.MatchedRows, report.DivergentRows)
			for i, r := range report.Results {
				if i == maxShown {
					fmt.Printf("... %d more divergent rows\n", len(report.Results)-maxShown)
					break
				}
				for _, d := range r.Divergences {
					fmt.Printf("  %s %s %s: expected %v, got %v\n",
						r.ProductID, r.Date.Format("2006-01-02"), d.Field, d.Expected, d.Actual)
				}
			}
			if !report.Match() {
				return fmt.Errorf("%d of %d rows diverge", report.DivergentRows, report.TotalRows)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&in, "in", "i", "", "Trainer feature CSV")
	cmd.Flags().IntVar(&maxShown, "max-shown", 20, "Divergent rows to print")
	cmd.Flags().BoolVar(&artifactCol, "artifact-spec", false, "Compare the active artifact's feature columns instead of the config")
	cmd.MarkFlagRequired("in")
	return cmd
}
