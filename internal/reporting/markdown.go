package reporting

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"demand-forecast/internal/domain"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	sb.WriteString("# Forecast Evaluation Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))

	// Artifact
	sb.WriteString("## Artifact\n\n")
	sb.WriteString("| Field | Value |\n")
	sb.WriteString("|-------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Tier | %s |\n", r.Artifact.Tier))
	sb.WriteString(fmt.Sprintf("| Model | %s |\n", r.Artifact.Model))
	sb.WriteString(fmt.Sprintf("| Fingerprint | %s |\n", r.Artifact.Fingerprint))
	sb.WriteString(fmt.Sprintf("| History Source | %s |\n", r.Artifact.HistorySource))
	sb.WriteString(fmt.Sprintf("| Feature Columns | %s |\n", strings.Join(r.Artifact.FeatureColumns, ", ")))
	sb.WriteString("\n")

	// Data Summary
	sb.WriteString("## Data Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Products | %d |\n", r.DataSummary.Products))
	sb.WriteString(fmt.Sprintf("| Records | %d |\n", r.DataSummary.Records))
	sb.WriteString(fmt.Sprintf("| Date Range Start | %s |\n", formatDate(r.DataSummary.DateRangeStart)))
	sb.WriteString(fmt.Sprintf("| Date Range End | %s |\n", formatDate(r.DataSummary.DateRangeEnd)))
	sb.WriteString("\n")

	// Holdout
	sb.WriteString(fmt.Sprintf("## Holdout (last %d days)\n\n", r.HoldoutDays))
	sb.WriteString("| N | MAE | RMSE | Bias | P50 | P90 | Max |\n")
	sb.WriteString("|---|-----|------|------|-----|-----|-----|\n")
	o := r.Overall
	sb.WriteString(fmt.Sprintf("| %d | %.4f | %.4f | %.4f | %.4f | %.4f | %.4f |\n",
		o.N, o.MAE, o.RMSE, o.Bias, o.AbsErrorP50, o.AbsErrorP90, o.MaxAbsError))
	sb.WriteString("\n")

	// Stored metrics
	if len(r.StoredMetrics) > 0 {
		sb.WriteString("### Training-time Metrics\n\n")
		keys := make([]string, 0, len(r.StoredMetrics))
		for k := range r.StoredMetrics {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			sb.WriteString(fmt.Sprintf("- %s: %.4f\n", k, r.StoredMetrics[k]))
		}
		sb.WriteString("\n")
	}

	// Per product
	sb.WriteString("## Products\n\n")
	if len(r.Products) > 0 {
		sb.WriteString("| Product | N | MAE | RMSE | Bias |\n")
		sb.WriteString("|---------|---|-----|------|------|\n")
		for _, p := range r.Products {
			sb.WriteString(fmt.Sprintf("| %s | %d | %.4f | %.4f | %.4f |\n",
				p.ProductID, p.N, p.MAE, p.RMSE, p.Bias))
		}
	} else {
		sb.WriteString("No products evaluated.\n")
	}
	sb.WriteString("\n")

	if len(r.Skipped) > 0 {
		sb.WriteString("### Skipped\n\n")
		for _, id := range r.Skipped {
			sb.WriteString(fmt.Sprintf("- %s\n", id))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(domain.DateLayout)
}
