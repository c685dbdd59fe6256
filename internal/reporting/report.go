package reporting

import (
	"time"

	"demand-forecast/internal/artifact"
)

// Report is a holdout evaluation of the active artifact.
type Report struct {
	GeneratedAt time.Time
	Artifact    artifact.Info

	DataSummary DataSummary

	// Holdout scores
	HoldoutDays int
	Overall     ErrorRow
	// Products sorted by product_id.
	Products []ProductRow
	Skipped  []string

	// Metrics stored with the bundle at training time, if any.
	StoredMetrics map[string]float64
}

// DataSummary describes the history the artifact was evaluated on.
type DataSummary struct {
	Products       int
	Records        int
	DateRangeStart time.Time
	DateRangeEnd   time.Time
}

// ErrorRow holds aggregate forecast error.
type ErrorRow struct {
	N           int
	MAE         float64
	RMSE        float64
	Bias        float64 // mean(forecast - actual)
	AbsErrorP50 float64
	AbsErrorP90 float64
	MaxAbsError float64
}

// ProductRow is one row of the per-product table.
type ProductRow struct {
	ProductID string
	N         int
	MAE       float64
	RMSE      float64
	Bias      float64
}
