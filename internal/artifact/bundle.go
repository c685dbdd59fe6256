package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"demand-forecast/internal/domain"
	"demand-forecast/internal/encoding"
	"demand-forecast/internal/features"
	"demand-forecast/internal/history"
	"demand-forecast/internal/idhash"
	"demand-forecast/internal/predictor"
)

// Bundle is the on-disk form of a trained artifact.
type Bundle struct {
	Model          predictor.ModelSpec `json:"model"`
	FeatureColumns []string            `json:"feature_columns"`
	TargetColumn   string              `json:"target_column,omitempty"`
	ProductClasses []string            `json:"product_classes,omitempty"`
	History        []BundleRecord      `json:"history,omitempty"`
	Metrics        map[string]float64  `json:"metrics,omitempty"`
}

// BundleRecord is one history row stored in a bundle.
type BundleRecord struct {
	Date        string   `json:"date"`
	ProductID   string   `json:"product_id"`
	Quantity    float64  `json:"quantity"`
	EventCount  *float64 `json:"event_count,omitempty"`
	ActiveUsers *float64 `json:"active_users,omitempty"`
	Price       *float64 `json:"price,omitempty"`
}

// ReadBundle reads and decodes the bundle at path. It also returns the raw
// bytes for fingerprinting. A missing file yields an error wrapping os.ErrNotExist.
func ReadBundle(path string) (*Bundle, []byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read bundle %s: %w", path, err)
	}
	var b Bundle
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %v", ErrInvalidBundle, path, err)
	}
	if b.Model.Type == "" {
		return nil, nil, fmt.Errorf("%w: %s: missing model type", ErrInvalidBundle, path)
	}
	if len(b.FeatureColumns) == 0 {
		return nil, nil, fmt.Errorf("%w: %s: missing feature columns", ErrInvalidBundle, path)
	}
	return &b, raw, nil
}

// Records converts the stored history to domain records.
func (b *Bundle) Records() ([]*domain.DemandRecord, error) {
	out := make([]*domain.DemandRecord, 0, len(b.History))
	for i, r := range b.History {
		d, err := time.Parse(domain.DateLayout, r.Date)
		if err != nil {
			return nil, fmt.Errorf("%w: history row %d: %v", ErrInvalidBundle, i, err)
		}
		out = append(out, &domain.DemandRecord{
			Date:        d,
			ProductID:   r.ProductID,
			Quantity:    r.Quantity,
			EventCount:  r.EventCount,
			ActiveUsers: r.ActiveUsers,
			Price:       r.Price,
		})
	}
	return out, nil
}

// NewBundle freezes a into its on-disk form, history included.
func NewBundle(a *Artifact) (*Bundle, error) {
	model, err := a.Predictor.Describe()
	if err != nil {
		return nil, fmt.Errorf("describe predictor: %w", err)
	}
	b := &Bundle{
		Model:          model,
		FeatureColumns: a.Spec.Columns(),
		ProductClasses: a.Encoder.Classes(),
		Metrics:        a.Metrics,
	}
	for _, r := range a.History.Records() {
		b.History = append(b.History, BundleRecord{
			Date:        r.Date.Format(domain.DateLayout),
			ProductID:   r.ProductID,
			Quantity:    r.Quantity,
			EventCount:  r.EventCount,
			ActiveUsers: r.ActiveUsers,
			Price:       r.Price,
		})
	}
	return b, nil
}

// WriteBundle writes a to path as a bundle, replacing any existing file.
func WriteBundle(path string, a *Artifact) error {
	b, err := NewBundle(a)
	if err != nil {
		return err
	}
	raw, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal bundle: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create bundle dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write bundle: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename bundle: %w", err)
	}
	return nil
}

// decode builds an artifact from a bundle. hist is used when the bundle
// carries no history of its own.
func decode(b *Bundle, raw []byte, tier domain.Tier, opts features.ParseOptions, hist func() (*history.Store, string, error)) (*Artifact, error) {
	if b.TargetColumn != "" {
		opts.TargetColumn = b.TargetColumn
	}
	spec, err := features.ParseColumns(b.FeatureColumns, opts)
	if err != nil {
		return nil, err
	}

	p, err := predictor.Decode(b.Model, spec.Len())
	if err != nil {
		return nil, err
	}

	var (
		store   *history.Store
		source  = "bundle"
		payload = raw
	)
	if len(b.History) > 0 {
		records, err := b.Records()
		if err != nil {
			return nil, err
		}
		if store, err = history.NewStore(records); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidBundle, err)
		}
	} else {
		if store, source, err = hist(); err != nil {
			return nil, err
		}
		// Loaded history is not covered by the bundle bytes.
		payload = append(append(append([]byte(nil), raw...), '|'), store.Digest()...)
	}

	var enc *encoding.ProductEncoder
	if len(b.ProductClasses) > 0 {
		if enc, err = encoding.FromClasses(b.ProductClasses); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidBundle, err)
		}
	} else {
		// Training fits a sorted label encoder over the same history.
		enc = encoding.FitSorted(store.Products())
	}

	return &Artifact{
		Predictor:   p,
		Spec:        spec,
		Encoder:     enc,
		History:     store,
		Tier:        tier,
		Fingerprint: idhash.ComputeArtifactFingerprint(string(tier), spec.Columns(), payload),
		Metrics:     b.Metrics,
		Source:      source,
	}, nil
}
