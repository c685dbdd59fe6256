package verification

import (
	"context"
	"fmt"
	"time"

	"demand-forecast/internal/artifact"
	"demand-forecast/internal/domain"
	"demand-forecast/internal/features"
)

// ParityVerifier recomputes training rows from an artifact's history and
// compares them with a frame produced elsewhere.
type ParityVerifier struct {
	artifact *artifact.Artifact
	spec     *features.Spec
}

// NewParityVerifier creates a ParityVerifier over a using the artifact's own columns.
func NewParityVerifier(a *artifact.Artifact) *ParityVerifier {
	return &ParityVerifier{artifact: a, spec: a.Spec}
}

// WithSpec returns a verifier that reconstructs spec's columns over the
// same history and encoder. A nil spec keeps the artifact's columns.
func (v *ParityVerifier) WithSpec(spec *features.Spec) *ParityVerifier {
	if spec == nil {
		spec = v.artifact.Spec
	}
	return &ParityVerifier{artifact: v.artifact, spec: spec}
}

// Spec returns the columns rows are reconstructed with.
func (v *ParityVerifier) Spec() *features.Spec {
	return v.spec
}

// Rows reconstructs the training frame for every product, products in lexical order.
func (v *ParityVerifier) Rows(ctx context.Context) ([]features.TrainingRow, error) {
	var out []features.TrainingRow
	for _, id := range v.artifact.History.Products() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows, err := v.productRows(id)
		if err != nil {
			return nil, err
		}
		out = append(out, rows...)
	}
	return out, nil
}

// VerifyRows compares expected rows against the reconstruction. Rows the
// reconstruction cannot produce (unknown product, short lookback) diverge on "row".
func (v *ParityVerifier) VerifyRows(ctx context.Context, expected []features.TrainingRow) (*Report, error) {
	columns := v.spec.Columns()
	computed := make(map[string]map[time.Time]features.TrainingRow)

	report := &Report{TotalRows: len(expected)}
	for _, want := range expected {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		byDate, ok := computed[want.ProductID]
		if !ok {
			rows, err := v.productRows(want.ProductID)
			if err != nil {
				return nil, err
			}
			byDate = make(map[time.Time]features.TrainingRow, len(rows))
			for _, r := range rows {
				byDate[r.Date] = r
			}
			computed[want.ProductID] = byDate
		}

		var divergences []FieldDivergence
		if got, ok := byDate[domain.Day(want.Date)]; ok {
			divergences = CompareRows(want, got, columns)
		} else {
			divergences = []FieldDivergence{{Field: "row", Expected: "present", Actual: "missing"}}
		}

		if len(divergences) == 0 {
			report.MatchedRows++
			continue
		}
		report.DivergentRows++
		report.Results = append(report.Results, RowResult{
			ProductID:   want.ProductID,
			Date:        want.Date,
			Divergences: divergences,
		})
	}
	return report, nil
}

func (v *ParityVerifier) productRows(productID string) ([]features.TrainingRow, error) {
	series, ok := v.artifact.History.Series(productID)
	if !ok {
		return nil, nil
	}
	code, _ := v.artifact.Encoder.Encode(productID)
	rows, err := features.TrainingRows(v.spec, series.Records(), code)
	if err != nil {
		return nil, fmt.Errorf("training rows for %s: %w", productID, err)
	}
	return rows, nil
}
