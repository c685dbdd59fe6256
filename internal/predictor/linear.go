package predictor

import (
	"encoding/json"
	"fmt"
)

// TypeLinear is the bundle type name of Linear.
const TypeLinear = "linear"

// Linear is a fitted linear regressor: intercept + coefficients · features.
type Linear struct {
	intercept    float64
	coefficients []float64
}

type linearParams struct {
	Intercept    float64   `json:"intercept"`
	Coefficients []float64 `json:"coefficients"`
}

// NewLinear creates a linear predictor.
func NewLinear(intercept float64, coefficients []float64) *Linear {
	c := make([]float64, len(coefficients))
	copy(c, coefficients)
	return &Linear{intercept: intercept, coefficients: c}
}

func decodeLinear(raw json.RawMessage, nFeatures int) (Predictor, error) {
	var p linearParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidModel, err)
	}
	if len(p.Coefficients) != nFeatures {
		return nil, fmt.Errorf("%w: %d coefficients for %d features", ErrFeatureMismatch, len(p.Coefficients), nFeatures)
	}
	return NewLinear(p.Intercept, p.Coefficients), nil
}

// Predict implements Predictor.
func (l *Linear) Predict(in Input) (float64, error) {
	if err := checkWidth(in.Features, len(l.coefficients)); err != nil {
		return 0, err
	}
	y := l.intercept
	for i, c := range l.coefficients {
		y += c * in.Features[i]
	}
	return y, nil
}

// Describe implements Predictor.
func (l *Linear) Describe() (ModelSpec, error) {
	return describe(TypeLinear, linearParams{Intercept: l.intercept, Coefficients: l.coefficients})
}
