package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"demand-forecast/internal/artifact"
	"demand-forecast/internal/evaluation"
	"demand-forecast/internal/reporting"
)

// forecastCmd prints a forecast for one product.
func forecastCmd() *cobra.Command {
	var horizon int

	cmd := &cobra.Command{
		Use:   "forecast <product_id>",
		Short: "Forecast daily demand for one product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			svc, err := openService(ctx)
			if err != nil {
				return err
			}
			defer svc.Close()

			if horizon == 0 {
				horizon = svc.Config.Forecast.DefaultHorizon
			}
			series, err := svc.Engine.ForecastSeries(ctx, args[0], horizon)
			if err != nil {
				return fmt.Errorf("forecast %s: %w", args[0], err)
			}

			type point struct {
				Date     string  `json:"date"`
				Forecast float64 `json:"forecast"`
			}
			out := struct {
				ProductID string  `json:"product_id"`
				Horizon   int     `json:"horizon"`
				Tier      string  `json:"tier"`
				Data      []point `json:"data"`
			}{ProductID: series.ProductID, Horizon: horizon, Tier: string(series.Tier)}
			for _, p := range series.Points {
				out.Data = append(out.Data, point{Date: p.Date.Format("2006-01-02"), Forecast: p.Forecast})
			}
			return printJSON(out)
		},
	}

	cmd.Flags().IntVar(&horizon, "horizon", 0, "Days to forecast (config default when 0)")
	return cmd
}

// productsCmd lists the products the active artifact can forecast.
func productsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "products",
		Short: "List forecastable products",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			svc, err := openService(ctx)
			if err != nil {
				return err
			}
			defer svc.Close()

			products, err := svc.Engine.Products(ctx)
			if err != nil {
				return err
			}
			for _, p := range products {
				fmt.Println(p)
			}
			return nil
		},
	}
}

// modelCmd prints the active artifact summary.
func modelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "model",
		Short: "Show the resolved artifact",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			svc, err := openService(ctx)
			if err != nil {
				return err
			}
			defer svc.Close()

			info, err := svc.Engine.Info(ctx)
			if err != nil {
				return err
			}
			return printJSON(info)
		},
	}
}

// evaluateCmd writes the holdout evaluation report.
func evaluateCmd() *cobra.Command {
	var (
		days      int
		outputDir string
	)

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Backtest the active artifact on the last days of history",
		Long: `Truncates the last N days of every product's history, forecasts them
autoregressively, and writes REPORT.md and products.csv with the errors.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			svc, err := openService(ctx)
			if err != nil {
				return err
			}
			defer svc.Close()

			if days == 0 {
				days = svc.Config.Forecast.HoldoutDays
			}
			report, err := reporting.NewGenerator(svc.Resolver).Generate(ctx, days)
			if err != nil {
				return fmt.Errorf("failed to generate report: %w", err)
			}

			if err := os.MkdirAll(outputDir, 0755); err != nil {
				return fmt.Errorf("create output dir: %w", err)
			}
			mdPath := filepath.Join(outputDir, "REPORT.md")
			if err := os.WriteFile(mdPath, []byte(reporting.RenderMarkdown(report)), 0644); err != nil {
				return fmt.Errorf("write %s: %w", mdPath, err)
			}
			csvPath := filepath.Join(outputDir, "products.csv")
			if err := os.WriteFile(csvPath, []byte(reporting.RenderCSV(report.Products)), 0644); err != nil {
				return fmt.Errorf("write %s: %w", csvPath, err)
			}

			fmt.Printf("Holdout %d days: n=%d mae=%.4f rmse=%.4f\n",
				report.HoldoutDays, report.Overall.N, report.Overall.MAE, report.Overall.RMSE)
			fmt.Printf("Wrote %s and %s\n", mdPath, csvPath)
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 0, "Holdout window in days (config default when 0)")
	cmd.Flags().StringVar(&outputDir, "output-dir", "output", "Directory for REPORT.md and products.csv")
	return cmd
}

// freezeCmd writes the resolved artifact to disk with its holdout scores.
func freezeCmd() *cobra.Command {
	var (
		out  string
		days int
	)

	cmd := &cobra.Command{
		Use:   "freeze",
		Short: "Write the resolved artifact as a bundle",
		Long: `Resolves the artifact (typically the fallback synthesized from history),
scores it on a holdout window, and writes it as a bundle the server can load
without warehouse access.`,
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

			if days == 0 {
				days = svc.Config.Forecast.HoldoutDays
			}
			frozen := *a
			res, err := evaluation.Holdout(ctx, a, evaluation.Options{Days: days, Logger: newLogger("evaluation")})
			switch {
			case err == nil:
				frozen.Metrics = res.Metrics()
			case errors.Is(err, evaluation.ErrNothingToEvaluate):
				fmt.Fprintf(os.Stderr, "Warning: %v, bundle written without metrics\n", err)
			default:
				return fmt.Errorf("evaluate artifact: %w", err)
			}

			if out == "" {
				out = svc.Config.Paths.BaseArtifact
			}
			if err := artifact.WriteBundle(out, &frozen); err != nil {
				return err
			}
			fmt.Printf("Wrote %s artifact %s to %s\n", frozen.Tier, frozen.Fingerprint, out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "Bundle path (config base_artifact when empty)")
	cmd.Flags().IntVar(&days, "days", 0, "Holdout window in days (config default when 0)")
	return cmd
}
