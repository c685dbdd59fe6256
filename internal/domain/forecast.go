package domain

import "time"

// Tier identifies which predictor an artifact carries.
type Tier string

// Artifact tiers in resolution preference order.
const (
	TierTuned    Tier = "tuned"
	TierBase     Tier = "base"
	TierFallback Tier = "fallback"
)

// ForecastPoint is one forecasted demand value.
type ForecastPoint struct {
	Date      time.Time
	ProductID string
	Forecast  float64
}

// ForecastSeries is a date-ordered forecast for one product.
type ForecastSeries struct {
	ProductID string
	Horizon   int
	Tier      Tier
	Points    []ForecastPoint
}
