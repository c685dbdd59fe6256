// Package predictor holds the point predictors an artifact can carry.
package predictor

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Predictor errors
var (
	// ErrDependencyMissing is returned when a bundle names a model type this
	// binary has no runtime support for. Resolution treats it as a fallthrough.
	ErrDependencyMissing = errors.New("predictor runtime support unavailable")

	// ErrFeatureMismatch is returned when a feature vector does not fit the model.
	ErrFeatureMismatch = errors.New("feature vector does not match model inputs")

	// ErrInvalidModel is returned when model parameters are malformed.
	ErrInvalidModel = errors.New("invalid model parameters")
)

// Input is what one prediction step sees. Trained predictors read Features;
// the smoothing fallback reads History.
type Input struct {
	Features []float64 // reconstructed vector in feature spec order
	History  []float64 // rolling buffer, oldest first; must not be modified
}

// Predictor produces one point prediction per step.
// Implementations are immutable and safe for concurrent use.
type Predictor interface {
	Predict(in Input) (float64, error)

	// Describe returns the serializable form of the predictor.
	Describe() (ModelSpec, error)
}

// ModelSpec is the serialized predictor stored in a bundle.
type ModelSpec struct {
	Type   string          `json:"type"`
	Params json.RawMessage `json:"params"`
}

// DecodeFunc builds a predictor from its parameters. nFeatures is the length of
// the feature spec the predictor will be fed.
type DecodeFunc func(params json.RawMessage, nFeatures int) (Predictor, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]DecodeFunc{
		TypeLinear:       decodeLinear,
		TypeTreeEnsemble: decodeTreeEnsemble,
		TypeSmoothing:    decodeSmoothing,
	}
)

// Register adds runtime support for a model type.
func Register(modelType string, fn DecodeFunc) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[modelType] = fn
}

// Supported lists registered model types.
func Supported() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	types := make([]string, 0, len(registry))
	for t := range registry {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Decode builds the predictor described by spec.
// Returns ErrDependencyMissing if the model type is not registered.
func Decode(spec ModelSpec, nFeatures int) (Predictor, error) {
	registryMu.RLock()
	fn, ok := registry[spec.Type]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: model type %q", ErrDependencyMissing, spec.Type)
	}
	p, err := fn(spec.Params, nFeatures)
	if err != nil {
		return nil, fmt.Errorf("decode %s model: %w", spec.Type, err)
	}
	return p, nil
}

func describe(modelType string, params any) (ModelSpec, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return ModelSpec{}, fmt.Errorf("marshal %s params: %w", modelType, err)
	}
	return ModelSpec{Type: modelType, Params: raw}, nil
}

func checkWidth(features []float64, want int) error {
	if len(features) != want {
		return fmt.Errorf("%w: got %d features, model expects %d", ErrFeatureMismatch, len(features), want)
	}
	return nil
}
