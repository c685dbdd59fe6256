package features

import (
	"fmt"
	"time"

	"demand-forecast/internal/domain"
)

// TrainingRow is one supervised example for the external trainer.
type TrainingRow struct {
	Date      time.Time
	ProductID string
	Target    float64
	Features  []float64
}

// TrainingRows computes training examples for one product's date-ordered records
// using the same Reconstructor as inference: the buffer for row i holds the targets
// before i, and contextual values are the ones observed on day i.
// Rows without a full lookback window are dropped.
func TrainingRows(spec *Spec, records []*domain.DemandRecord, encodedProduct int) ([]TrainingRow, error) {
	if len(records) == 0 {
		return nil, nil
	}

	recon := NewReconstructor(spec)
	targets := make([]float64, len(records))
	for i, r := range records {
		if i > 0 && !r.Date.After(records[i-1].Date) {
			return nil, fmt.Errorf("records for %s not strictly date-ordered at index %d", r.ProductID, i)
		}
		targets[i] = r.Quantity
	}

	start := spec.MaxLookback()
	var rows []TrainingRow
	for i := start; i < len(records); i++ {
		buf := &Buffer{values: targets[:i:i]}
		ctx := records[i].Context()
		vec, err := recon.Vector(buf, encodedProduct, records[i].Date, ctx.Values)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		rows = append(rows, TrainingRow{
			Date:      records[i].Date,
			ProductID: records[i].ProductID,
			Target:    records[i].Quantity,
			Features:  vec,
		})
	}
	return rows, nil
}
