package reporting

import (
	"context"
	"fmt"
	"sort"
	"time"

	"demand-forecast/internal/artifact"
	"demand-forecast/internal/evaluation"
)

// ArtifactSource supplies the artifact to report on.
type ArtifactSource interface {
	Resolve(ctx context.Context) (*artifact.Artifact, error)
}

// Generator produces evaluation reports.
type Generator struct {
	artifacts ArtifactSource
	now       func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(artifacts ArtifactSource) *Generator {
	return &Generator{
		artifacts: artifacts,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate resolves the artifact and evaluates it over the last days of history.
func (g *Generator) Generate(ctx context.Context, days int) (*Report, error) {
	a, err := g.artifacts.Resolve(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve artifact: %w", err)
	}

	res, err := evaluation.Holdout(ctx, a, evaluation.Options{Days: days})
	if err != nil {
		return nil, fmt.Errorf("holdout: %w", err)
	}

	r := &Report{
		GeneratedAt:   g.now(),
		Artifact:      a.Info(),
		DataSummary:   generateDataSummary(a),
		HoldoutDays:   res.Days,
		Overall:       errorRow(res),
		Skipped:       res.Skipped,
		StoredMetrics: a.Metrics,
	}
	for _, p := range res.Products {
		r.Products = append(r.Products, ProductRow{
			ProductID: p.ProductID,
			N:         p.N,
			MAE:       p.MAE,
			RMSE:      p.RMSE,
			Bias:      p.Bias,
		})
	}
	sort.Slice(r.Products, func(i, j int) bool {
		return r.Products[i].ProductID < r.Products[j].ProductID
	})
	return r, nil
}

func errorRow(res *evaluation.Result) ErrorRow {
	return ErrorRow{
		N:           res.N,
		MAE:         res.MAE,
		RMSE:        res.RMSE,
		Bias:        res.Bias,
		AbsErrorP50: res.AbsErrorP50,
		AbsErrorP90: res.AbsErrorP90,
		MaxAbsError: res.MaxAbsError,
	}
}

func generateDataSummary(a *artifact.Artifact) DataSummary {
	products := a.History.Products()
	summary := DataSummary{Products: len(products), Records: a.History.Len()}
	for _, id := range products {
		ser, _ := a.History.Series(id)
		if ser.Len() == 0 {
			continue
		}
		first, last := ser.Dates[0], ser.LastDate()
		if summary.DateRangeStart.IsZero() || first.Before(summary.DateRangeStart) {
			summary.DateRangeStart = first
		}
		if last.After(summary.DateRangeEnd) {
			summary.DateRangeEnd = last
		}
	}
	return summary
}
