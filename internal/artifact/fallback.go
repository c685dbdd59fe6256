package artifact

import (
	"fmt"
	"strings"

	"demand-forecast/internal/domain"
	"demand-forecast/internal/encoding"
	"demand-forecast/internal/features"
	"demand-forecast/internal/history"
	"demand-forecast/internal/idhash"
	"demand-forecast/internal/predictor"
)

// FallbackColumns is the minimal feature set of a synthesized artifact.
var FallbackColumns = []string{
	features.ColumnProduct,
	features.ColumnDayOfWeek,
	features.ColumnMonth,
	"lag_7",
	"rolling_mean_14",
	domain.ContextEventCount,
	domain.ContextActiveUsers,
	domain.ContextPrice,
}

// Synthesize builds the dependency-free fallback artifact over store.
// The encoder is fit over products in first-seen order and the predictor
// is exponential smoothing with the given alpha.
func Synthesize(store *history.Store, source string, alpha float64) (*Artifact, error) {
	if store == nil || store.Empty() {
		return nil, ErrDataUnavailable
	}

	spec, err := features.ParseColumns(FallbackColumns, features.ParseOptions{})
	if err != nil {
		return nil, fmt.Errorf("fallback feature spec: %w", err)
	}

	p := predictor.NewSmoothing(alpha, predictor.DefaultWindow)
	model, err := p.Describe()
	if err != nil {
		return nil, err
	}

	enc := encoding.FitFirstSeen(store.ProductsFirstSeen())

	payload := fmt.Sprintf("%s|%s|%s|%s", model.Params, source, strings.Join(enc.Classes(), ","), store.Digest())

	return &Artifact{
		Predictor:   p,
		Spec:        spec,
		Encoder:     enc,
		History:     store,
		Tier:        domain.TierFallback,
		Fingerprint: idhash.ComputeArtifactFingerprint(string(domain.TierFallback), spec.Columns(), []byte(payload)),
		Source:      source,
	}, nil
}
