// Package cache holds forecast result caches. Keys include the artifact
// fingerprint, so a reload never serves forecasts from a previous artifact.
package cache

import (
	"context"

	"demand-forecast/internal/domain"
)

// Cache stores forecast series by key. Implementations are safe for concurrent use.
// Get reports a miss on any backend failure; forecasts are always recomputable.
type Cache interface {
	Get(ctx context.Context, key string) (*domain.ForecastSeries, bool)
	Set(ctx context.Context, key string, series *domain.ForecastSeries)
}

// Noop never stores anything.
type Noop struct{}

// Get implements Cache.
func (Noop) Get(context.Context, string) (*domain.ForecastSeries, bool) { return nil, false }

// Set implements Cache.
func (Noop) Set(context.Context, string, *domain.ForecastSeries) {}

func cloneSeries(s *domain.ForecastSeries) *domain.ForecastSeries {
	c := *s
	c.Points = make([]domain.ForecastPoint, len(s.Points))
	copy(c.Points, s.Points)
	return &c
}
