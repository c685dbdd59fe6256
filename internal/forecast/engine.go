// Package forecast runs the autoregressive multi-step forecast over a resolved artifact.
package forecast

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"demand-forecast/internal/artifact"
	"demand-forecast/internal/cache"
	"demand-forecast/internal/domain"
	"demand-forecast/internal/features"
	"demand-forecast/internal/idhash"
	"demand-forecast/internal/observability"
	"demand-forecast/internal/predictor"
	"demand-forecast/internal/tracing"
)

// Forecast errors
var (
	// ErrUnknownProduct is returned when the artifact holds no history for the product.
	ErrUnknownProduct = errors.New("unknown product")

	// ErrInvalidArgument is returned for a horizon below 1.
	ErrInvalidArgument = errors.New("invalid argument")
)

const tracerName = "demand-forecast/forecast"

// ArtifactSource supplies the artifact forecasts run on.
type ArtifactSource interface {
	Resolve(ctx context.Context) (*artifact.Artifact, error)
}

// Engine produces forecasts. It holds no per-call state and is safe for concurrent use.
type Engine struct {
	artifacts ArtifactSource
	cache     cache.Cache
	logger    *log.Logger
}

// Options configures an Engine.
type Options struct {
	Artifacts ArtifactSource
	// Cache stores finished series keyed by artifact fingerprint. Nil disables caching.
	Cache  cache.Cache
	Logger *log.Logger
}

// NewEngine creates an Engine.
func NewEngine(opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	c := opts.Cache
	if c == nil {
		c = cache.Noop{}
	}
	return &Engine{artifacts: opts.Artifacts, cache: c, logger: logger}
}

// Forecast returns horizon consecutive daily forecasts for productID starting
// the day after its last observation.
func (e *Engine) Forecast(ctx context.Context, productID string, horizon int) ([]domain.ForecastPoint, error) {
	s, err := e.ForecastSeries(ctx, productID, horizon)
	if err != nil {
		return nil, err
	}
	return s.Points, nil
}

// ForecastSeries is Forecast plus the tier that produced it.
func (e *Engine) ForecastSeries(ctx context.Context, productID string, horizon int) (*domain.ForecastSeries, error) {
	if horizon < 1 {
		return nil, fmt.Errorf("%w: horizon must be at least 1, got %d", ErrInvalidArgument, horizon)
	}

	ctx, span := tracing.StartSpan(ctx, tracerName, "forecast.Forecast",
		tracing.AttrProductID.String(productID), tracing.AttrHorizon.Int(horizon))
	defer span.End()

	a, err := e.artifacts.Resolve(ctx)
	if err != nil {
		tracing.RecordError(span, err)
		observability.RecordForecast("none", "error", 0, 0)
		return nil, fmt.Errorf("resolve artifact: %w", err)
	}
	span.SetAttributes(tracing.AttrTier.String(string(a.Tier)))

	key := idhash.ComputeForecastKey(a.Fingerprint, productID, horizon)
	if s, ok := e.cache.Get(ctx, key); ok {
		observability.RecordForecast(string(a.Tier), "cached", 0, 0)
		return s, nil
	}

	start := time.Now()
	points, err := e.run(a, productID, horizon)
	if err != nil {
		tracing.RecordError(span, err)
		observability.RecordForecast(string(a.Tier), "error", 0, 0)
		return nil, err
	}
	observability.RecordForecast(string(a.Tier), "success", time.Since(start).Seconds(), horizon)

	s := &domain.ForecastSeries{ProductID: productID, Horizon: horizon, Tier: a.Tier, Points: points}
	e.cache.Set(ctx, key, s)
	return s, nil
}

// run is the autoregressive loop. Each prediction is appended to the buffer
// so later steps see it in their lag and rolling features.
func (e *Engine) run(a *artifact.Artifact, productID string, horizon int) ([]domain.ForecastPoint, error) {
	series, ok := a.History.Series(productID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProduct, productID)
	}

	code, known := a.Encoder.Encode(productID)
	if !known {
		observability.RecordUnknownEncoding()
		e.logger.Printf("product %s unknown to encoder, using code %d", productID, code)
	}

	buf := features.NewBuffer(series.Quantities, a.Spec.MaxLookback())
	rec := features.NewReconstructor(a.Spec)
	last := series.LastDate()

	points := make([]domain.ForecastPoint, 0, horizon)
	for step := 1; step <= horizon; step++ {
		date := last.AddDate(0, 0, step)

		vec, err := rec.Vector(buf, code, date, series.Latest)
		if err != nil {
			return nil, fmt.Errorf("step %d features: %w", step, err)
		}
		y, err := a.Predictor.Predict(predictor.Input{Features: vec, History: buf.Tail(buf.Len())})
		if err != nil {
			return nil, fmt.Errorf("step %d predict: %w", step, err)
		}

		buf.Append(y)
		points = append(points, domain.ForecastPoint{Date: date, ProductID: productID, Forecast: y})
	}
	return points, nil
}

// Products lists the products the current artifact can forecast, in lexical order.
func (e *Engine) Products(ctx context.Context) ([]string, error) {
	a, err := e.artifacts.Resolve(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve artifact: %w", err)
	}
	return a.History.Products(), nil
}

// Info describes the current artifact.
func (e *Engine) Info(ctx context.Context) (artifact.Info, error) {
	a, err := e.artifacts.Resolve(ctx)
	if err != nil {
		return artifact.Info{}, fmt.Errorf("resolve artifact: %w", err)
	}
	return a.Info(), nil
}
