package predictor

import (
	"encoding/json"
	"fmt"
)

// TypeSmoothing is the bundle type name of Smoothing.
const TypeSmoothing = "smoothing"

// Fallback smoothing defaults.
const (
	DefaultAlpha  = 0.3
	DefaultWindow = 7
)

// Smoothing is the dependency-free fallback predictor. It ignores the feature
// vector and blends the newest history values, strongly favouring the most recent.
type Smoothing struct {
	alpha  float64
	window int
}

type smoothingParams struct {
	Alpha  float64 `json:"alpha"`
	Window int     `json:"window"`
}

// NewSmoothing creates a smoothing predictor. Out-of-range parameters fall back to defaults.
func NewSmoothing(alpha float64, window int) *Smoothing {
	if alpha <= 0 || alpha > 1 {
		alpha = DefaultAlpha
	}
	if window < 1 {
		window = DefaultWindow
	}
	return &Smoothing{alpha: alpha, window: window}
}

func decodeSmoothing(raw json.RawMessage, _ int) (Predictor, error) {
	p := smoothingParams{Alpha: DefaultAlpha, Window: DefaultWindow}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidModel, err)
		}
	}
	return NewSmoothing(p.Alpha, p.Window), nil
}

// Predict seeds s at the newest value, then folds in the newest window values
// from newest to oldest with s = alpha*v + (1-alpha)*s. Empty history yields 0.
func (s *Smoothing) Predict(in Input) (float64, error) {
	n := len(in.History)
	if n == 0 {
		return 0, nil
	}
	start := n - s.window
	if start < 0 {
		start = 0
	}
	level := in.History[n-1]
	for i := n - 1; i >= start; i-- {
		level = s.alpha*in.History[i] + (1-s.alpha)*level
	}
	return level, nil
}

// Describe implements Predictor.
func (s *Smoothing) Describe() (ModelSpec, error) {
	return describe(TypeSmoothing, smoothingParams{Alpha: s.alpha, Window: s.window})
}
