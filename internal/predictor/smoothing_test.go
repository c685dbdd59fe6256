package predictor

import (
	"math"
	"testing"
)

func TestSmoothing_SteadyState(t *testing.T) {
	s := NewSmoothing(0.3, 7)

	got, err := s.Predict(Input{History: []float64{10, 10, 10, 10, 10, 10, 10}})
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	if got != 10.0 {
		t.Errorf("expected exactly 10.0, got %v", got)
	}
}

func TestSmoothing_FavoursRecent(t *testing.T) {
	s := NewSmoothing(0.3, 7)

	got, err := s.Predict(Input{History: []float64{1, 2, 3, 4, 5, 6, 7, 8}})
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	if math.Abs(got-4.058819) > 1e-9 {
		t.Errorf("expected 4.058819, got %v", got)
	}
}

func TestSmoothing_IgnoresOlderThanWindow(t *testing.T) {
	s := NewSmoothing(0.3, 7)

	a, _ := s.Predict(Input{History: []float64{1000, 5, 5, 5, 5, 5, 5, 5}})
	b, _ := s.Predict(Input{History: []float64{-50, 5, 5, 5, 5, 5, 5, 5}})
	if a != b {
		t.Errorf("values older than the window must not matter: %v != %v", a, b)
	}
}

func TestSmoothing_EmptyAndShortHistory(t *testing.T) {
	s := NewSmoothing(0.3, 7)

	got, err := s.Predict(Input{})
	if err != nil || got != 0 {
		t.Errorf("expected (0, nil) for empty history, got (%v, %v)", got, err)
	}

	got, _ = s.Predict(Input{History: []float64{4}})
	if got != 4 {
		t.Errorf("expected 4 for single value, got %v", got)
	}
}

func TestSmoothing_Deterministic(t *testing.T) {
	s := NewSmoothing(0.3, 7)
	history := []float64{3, 1, 4, 1, 5, 9, 2, 6}

	first, _ := s.Predict(Input{History: history})
	for i := 0; i < 10; i++ {
		got, _ := s.Predict(Input{History: history})
		if got != first {
			t.Fatalf("run %d: %v != %v", i, got, first)
		}
	}
}

func TestNewSmoothing_Defaults(t *testing.T) {
	s := NewSmoothing(0, 0)
	if s.alpha != DefaultAlpha || s.window != DefaultWindow {
		t.Errorf("expected defaults, got alpha=%v window=%d", s.alpha, s.window)
	}
}
