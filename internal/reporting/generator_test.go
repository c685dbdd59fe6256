package reporting

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"demand-forecast/internal/artifact"
	"demand-forecast/internal/domain"
	"demand-forecast/internal/history"
)

type staticArtifact struct {
	a   *artifact.Artifact
	err error
}

func (s staticArtifact) Resolve(context.Context) (*artifact.Artifact, error) { return s.a, s.err }

func setupArtifact(t *testing.T) *artifact.Artifact {
	t.Helper()
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	var recs []*domain.DemandRecord
	for i := 0; i < 10; i++ {
		recs = append(recs,
			&domain.DemandRecord{Date: start.AddDate(0, 0, i), ProductID: "SKU-B", Quantity: 8},
			&domain.DemandRecord{Date: start.AddDate(0, 0, i), ProductID: "SKU-A", Quantity: 2},
		)
	}
	store, err := history.NewStore(recs)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	a, err := artifact.Synthesize(store, "memory", 0)
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	a.Metrics = map[string]float64{"mae": 1.25, "rmse": 2.5}
	return a
}

func fixedClock() time.Time {
	return time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC)
}

func TestGenerator_Generate(t *testing.T) {
	g := NewGenerator(staticArtifact{a: setupArtifact(t)}).WithClock(fixedClock)

	r, err := g.Generate(context.Background(), 3)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if !r.GeneratedAt.Equal(fixedClock()) {
		t.Errorf("unexpected GeneratedAt %v", r.GeneratedAt)
	}
	if r.DataSummary.Products != 2 || r.DataSummary.Records != 20 {
		t.Errorf("unexpected data summary %+v", r.DataSummary)
	}
	if got := r.DataSummary.DateRangeEnd.Format(domain.DateLayout); got != "2024-03-10" {
		t.Errorf("expected range end 2024-03-10, got %s", got)
	}
	if r.Overall.N != 6 {
		t.Errorf("expected 6 holdout samples, got %d", r.Overall.N)
	}
	if len(r.Products) != 2 || r.Products[0].ProductID != "SKU-A" {
		t.Errorf("expected products sorted, got %+v", r.Products)
	}
	if r.Artifact.Tier != domain.TierFallback {
		t.Errorf("expected fallback tier, got %s", r.Artifact.Tier)
	}
}

func TestGenerator_ResolveError(t *testing.T) {
	g := NewGenerator(staticArtifact{err: artifact.ErrDataUnavailable})

	if _, err := g.Generate(context.Background(), 3); !errors.Is(err, artifact.ErrDataUnavailable) {
		t.Errorf("expected ErrDataUnavailable, got %v", err)
	}
}

func TestRenderMarkdown(t *testing.T) {
	g := NewGenerator(staticArtifact{a: setupArtifact(t)}).WithClock(fixedClock)
	r, err := g.Generate(context.Background(), 3)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	md := RenderMarkdown(r)

	for _, want := range []string{
		"# Forecast Evaluation Report",
		"Generated: 2024-04-01T12:00:00Z",
		"| Tier | fallback |",
		"| Date Range Start | 2024-03-01 |",
		"## Holdout (last 3 days)",
		"- mae: 1.2500",
		"| SKU-A | 3 |",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
	if strings.Contains(md, "### Skipped") {
		t.Error("unexpected skipped section")
	}
}

func TestRenderCSV(t *testing.T) {
	rows := []ProductRow{
		{ProductID: "A", N: 3, MAE: 1, RMSE: 1.5, Bias: -0.5},
		{ProductID: "B", N: 2, MAE: 0, RMSE: 0, Bias: 0},
	}

	got := RenderCSV(rows)
	want := "product_id,n,mae,rmse,bias\n" +
		"A,3,1.000000,1.500000,-0.500000\n" +
		"B,2,0.000000,0.000000,0.000000\n"
	if got != want {
		t.Errorf("unexpected CSV:\n%s", got)
	}
}
