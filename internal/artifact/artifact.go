// Package artifact resolves the model artifact the forecast engine runs on:
// a tuned bundle, else a base bundle, else a fallback synthesized from history.
package artifact

import (
	"errors"

	"demand-forecast/internal/domain"
	"demand-forecast/internal/encoding"
	"demand-forecast/internal/features"
	"demand-forecast/internal/history"
	"demand-forecast/internal/predictor"
)

// Artifact errors
var (
	// ErrDataUnavailable is returned when no history could be obtained from any source.
	ErrDataUnavailable = errors.New("demand history unavailable")

	// ErrInvalidBundle is returned when a bundle file cannot be decoded.
	ErrInvalidBundle = errors.New("invalid artifact bundle")
)

// Artifact is everything one forecast needs. It is immutable once published
// and shared by all concurrent callers.
type Artifact struct {
	Predictor   predictor.Predictor
	Spec        *features.Spec
	Encoder     *encoding.ProductEncoder
	History     *history.Store
	Tier        domain.Tier
	Fingerprint string
	// Metrics are the evaluation scores stored with a trained bundle (MAE, RMSE, n_samples).
	Metrics map[string]float64
	// Source names where History came from: "bundle" or a history source name.
	Source string
}

// Info is the serializable summary of an artifact.
type Info struct {
	Tier           domain.Tier        `json:"tier"`
	Model          string             `json:"model"`
	FeatureColumns []string           `json:"feature_columns"`
	Fingerprint    string             `json:"fingerprint"`
	Products       int                `json:"products"`
	Records        int                `json:"records"`
	HistorySource  string             `json:"history_source"`
	Metrics        map[string]float64 `json:"metrics,omitempty"`
}

// Info summarizes a.
func (a *Artifact) Info() Info {
	model := ""
	if ms, err := a.Predictor.Describe(); err == nil {
		model = ms.Type
	}
	return Info{
		Tier:           a.Tier,
		Model:          model,
		FeatureColumns: a.Spec.Columns(),
		Fingerprint:    a.Fingerprint,
		Products:       len(a.History.Products()),
		Records:        a.History.Len(),
		HistorySource:  a.Source,
		Metrics:        a.Metrics,
	}
}
