// Package evaluation scores an artifact by forecasting withheld history.
package evaluation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"demand-forecast/internal/artifact"
	"demand-forecast/internal/domain"
	"demand-forecast/internal/forecast"
)

// ErrNothingToEvaluate is returned when no product has history beyond the holdout window.
var ErrNothingToEvaluate = errors.New("no product has enough history to evaluate")

// Metric keys stored alongside trained bundles.
const (
	MetricMAE      = "mae"
	MetricRMSE     = "rmse"
	MetricNSamples = "n_samples"
)

// ProductResult is the holdout score of one product.
type ProductResult struct {
	ProductID string
	N         int
	MAE       float64
	RMSE      float64
	Bias      float64
}

// Result is the outcome of a holdout run.
type Result struct {
	Tier        domain.Tier
	Fingerprint string
	Days        int
	N           int
	MAE         float64
	RMSE        float64
	Bias        float64
	AbsErrorP50 float64
	AbsErrorP90 float64
	MaxAbsError float64
	// Products sorted by ProductID.
	Products []ProductResult
	// Skipped lists products without history before the holdout window.
	Skipped []string
}

// Metrics returns the bundle metric map for r.
func (r *Result) Metrics() map[string]float64 {
	return map[string]float64{
		MetricMAE:      r.MAE,
		MetricRMSE:     r.RMSE,
		MetricNSamples: float64(r.N),
	}
}

// Options configures Holdout.
type Options struct {
	// Days withheld at the end of every product's history.
	Days   int
	Logger *log.Logger
}

type fixedArtifact struct{ a *artifact.Artifact }

func (f fixedArtifact) Resolve(context.Context) (*artifact.Artifact, error) { return f.a, nil }

// Holdout withholds the last opts.Days observations of every product, forecasts
// them with a's predictor from the truncated history, and scores the forecasts
// against the withheld actuals. Forecast and actual points are paired by date;
// calendar gaps in the actuals are skipped.
func Holdout(ctx context.Context, a *artifact.Artifact, opts Options) (*Result, error) {
	if opts.Days < 1 {
		return nil, fmt.Errorf("%w: holdout days must be at least 1, got %d", forecast.ErrInvalidArgument, opts.Days)
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	truncated := a.History.Truncate(opts.Days)
	held := *a
	held.History = truncated
	held.Fingerprint = a.Fingerprint + "/holdout"
	engine := forecast.NewEngine(forecast.Options{Artifacts: fixedArtifact{a: &held}, Logger: logger})

	res := &Result{Tier: a.Tier, Fingerprint: a.Fingerprint, Days: opts.Days}
	var all []float64

	for _, id := range a.History.Products() {
		full, _ := a.History.Series(id)
		train, ok := truncated.Series(id)
		if !ok {
			res.Skipped = append(res.Skipped, id)
			continue
		}

		actual := make(map[time.Time]float64, opts.Days)
		for i := train.Len(); i < full.Len(); i++ {
			actual[full.Dates[i]] = full.Quantities[i]
		}
		horizon := int(full.LastDate().Sub(train.LastDate()).Hours() / 24)

		points, err := engine.Forecast(ctx, id, horizon)
		if err != nil {
			return nil, fmt.Errorf("forecast %s: %w", id, err)
		}

		var errs []float64
		for _, p := range points {
			if v, ok := actual[p.Date]; ok {
				errs = append(errs, p.Forecast-v)
			}
		}
		stats := computeErrorStats(errs)
		res.Products = append(res.Products, ProductResult{
			ProductID: id,
			N:         stats.n,
			MAE:       stats.mae,
			RMSE:      stats.rmse,
			Bias:      stats.bias,
		})
		all = append(all, errs...)
	}

	if len(all) == 0 {
		return nil, ErrNothingToEvaluate
	}

	stats := computeErrorStats(all)
	res.N = stats.n
	res.MAE = stats.mae
	res.RMSE = stats.rmse
	res.Bias = stats.bias
	res.AbsErrorP50 = stats.p50
	res.AbsErrorP90 = stats.p90
	res.MaxAbsError = stats.maxAbs

	logger.Printf("holdout %d days: n=%d mae=%.4f rmse=%.4f (%d products, %d skipped)",
		opts.Days, res.N, res.MAE, res.RMSE, len(res.Products), len(res.Skipped))
	return res, nil
}
