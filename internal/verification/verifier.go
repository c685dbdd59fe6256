// Package verification checks that features reconstructed at inference time
// match the frame an external trainer computed from the same history.
package verification

import (
	"math"
	"time"

	"demand-forecast/internal/features"
)

// FloatTolerance is the tolerance for float64 comparisons.
const FloatTolerance = 1e-7

// FieldDivergence represents a mismatch between expected and reconstructed values.
type FieldDivergence struct {
	Field    string      // column name, "target" or "row"
	Expected interface{} // trainer value
	Actual   interface{} // reconstructed value
}

// RowResult contains the result of verifying a single training row.
type RowResult struct {
	ProductID   string
	Date        time.Time
	Match       bool
	Divergences []FieldDivergence
}

// Report contains results for batch verification.
type Report struct {
	TotalRows     int         // rows in the expected frame
	MatchedRows   int         // rows that matched within tolerance
	DivergentRows int         // rows with at least one divergence
	Results       []RowResult // divergent rows only, in input order
}

// Match reports whether every row matched.
func (r *Report) Match() bool {
	return r.DivergentRows == 0
}

// CompareRows compares an expected training row with the reconstructed one.
// columns names the feature positions. Uses FloatTolerance for float64 comparisons.
func CompareRows(expected, actual features.TrainingRow, columns []string) []FieldDivergence {
	var divergences []FieldDivergence

	if !floatEquals(expected.Target, actual.Target) {
		divergences = append(divergences, FieldDivergence{
			Field:    "target",
			Expected: expected.Target,
			Actual:   actual.Target,
		})
	}

	for i, col := range columns {
		var want, got float64
		if i < len(expected.Features) {
			want = expected.Features[i]
		}
		if i < len(actual.Features) {
			got = actual.Features[i]
		}
		if !floatEquals(want, got) {
			divergences = append(divergences, FieldDivergence{
				Field:    col,
				Expected: want,
				Actual:   got,
			})
		}
	}

	return divergences
}

// floatEquals compares two float64 values within FloatTolerance.
func floatEquals(a, b float64) bool {
	return math.Abs(a-b) <= FloatTolerance
}
