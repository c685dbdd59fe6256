package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"demand-forecast/internal/artifact"
	"demand-forecast/internal/config"
	"demand-forecast/internal/domain"
	"demand-forecast/internal/features"
	"demand-forecast/internal/history"
)

func fallbackArtifact(t *testing.T, days int) *artifact.Artifact {
	t.Helper()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var recs []*domain.DemandRecord
	for i := 0; i < days; i++ {
		recs = append(recs, &domain.DemandRecord{Date: start.AddDate(0, 0, i), ProductID: "A", Quantity: float64(i%4 + 1)})
	}
	store, err := history.NewStore(recs)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	a, err := artifact.Synthesize(store, "test", 0)
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	return a
}

func exportHeader(t *testing.T, cfg *config.Config, a *artifact.Artifact, useArtifact bool) (string, int) {
	t.Helper()
	v, err := parityVerifier(cfg, a, useArtifact)
	if err != nil {
		t.Fatalf("parityVerifier failed: %v", err)
	}
	rows, err := v.Rows(context.Background())
	if err != nil {
		t.Fatalf("Rows failed: %v", err)
	}
	var buf bytes.Buffer
	if err := features.WriteTrainingCSV(&buf, v.Spec(), rows); err != nil {
		t.Fatalf("WriteTrainingCSV failed: %v", err)
	}
	header, _, _ := strings.Cut(buf.String(), "\n")
	return header, len(rows)
}

func TestFeatureExport_UsesConfiguredFamilies(t *testing.T) {
	a := fallbackArtifact(t, 40)

	header, n := exportHeader(t, config.Default(), a, false)
	want := "date,product_id,target,sku_encoded,day_of_week,month,event_count,active_users,price," +
		"lag_1,lag_7,lag_14,lag_28,rolling_mean_7,rolling_mean_14,rolling_mean_28"
	if header != want {
		t.Errorf("header mismatch\n got: %s\nwant: %s", header, want)
	}
	// 40 days minus the 28-day lookback
	if n != 12 {
		t.Errorf("expected 12 rows, got %d", n)
	}

	cfg := config.Default()
	cfg.Features.Lags = []int{2}
	cfg.Features.RollingWindows = nil
	cfg.Features.Contextual = nil
	header, _ = exportHeader(t, cfg, a, false)
	if header != "date,product_id,target,sku_encoded,day_of_week,month,lag_2" {
		t.Errorf("header does not follow config: %s", header)
	}
}

func TestFeatureExport_ArtifactSpec(t *testing.T) {
	a := fallbackArtifact(t, 40)

	header, _ := exportHeader(t, config.Default(), a, true)
	want := "date,product_id,target," + strings.Join(artifact.FallbackColumns, ",")
	if header != want {
		t.Errorf("header mismatch\n got: %s\nwant: %s", header, want)
	}
}

func TestFeatureExport_InvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Features.Lags = []int{0}

	if _, err := parityVerifier(cfg, fallbackArtifact(t, 10), false); err == nil {
		t.Error("expected error for non-positive lag")
	}
}
