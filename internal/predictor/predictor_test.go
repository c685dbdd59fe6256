package predictor

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestDecode_UnknownTypeIsDependencyMissing(t *testing.T) {
	_, err := Decode(ModelSpec{Type: "lightgbm", Params: json.RawMessage(`{}`)}, 3)
	if !errors.Is(err, ErrDependencyMissing) {
		t.Errorf("expected ErrDependencyMissing, got %v", err)
	}
}

func TestLinear_RoundTrip(t *testing.T) {
	l := NewLinear(1.5, []float64{2, -1, 0.5})

	spec, err := l.Describe()
	if err != nil {
		t.Fatalf("Describe failed: %v", err)
	}
	p, err := Decode(spec, 3)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	got, err := p.Predict(Input{Features: []float64{1, 2, 4}})
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	// 1.5 + 2 - 2 + 2
	if got != 3.5 {
		t.Errorf("expected 3.5, got %v", got)
	}
}

func TestLinear_WidthMismatch(t *testing.T) {
	l := NewLinear(0, []float64{1, 1})

	if _, err := l.Predict(Input{Features: []float64{1}}); !errors.Is(err, ErrFeatureMismatch) {
		t.Errorf("expected ErrFeatureMismatch, got %v", err)
	}

	spec, _ := l.Describe()
	if _, err := Decode(spec, 5); !errors.Is(err, ErrFeatureMismatch) {
		t.Errorf("expected ErrFeatureMismatch on decode, got %v", err)
	}
}

func TestTreeEnsemble_Predict(t *testing.T) {
	// Single stump on feature 1: x1 <= 5 -> 10, else 20; second tree adds a constant.
	trees := []Tree{
		{Nodes: []Node{
			{Feature: 1, Threshold: 5, Left: 1, Right: 2},
			{Leaf: true, Value: 10},
			{Leaf: true, Value: 20},
		}},
		{Nodes: []Node{{Leaf: true, Value: 0.5}}},
	}
	e, err := NewTreeEnsemble(2, 1, trees)
	if err != nil {
		t.Fatalf("NewTreeEnsemble failed: %v", err)
	}

	tests := []struct {
		x    []float64
		want float64
	}{
		{[]float64{0, 5}, 11.5},
		{[]float64{0, 5.01}, 21.5},
		{[]float64{100, -3}, 11.5},
	}
	for _, tt := range tests {
		got, err := e.Predict(Input{Features: tt.x})
		if err != nil {
			t.Fatalf("Predict failed: %v", err)
		}
		if got != tt.want {
			t.Errorf("x=%v: expected %v, got %v", tt.x, tt.want, got)
		}
	}
}

func TestTreeEnsemble_RoundTrip(t *testing.T) {
	trees := []Tree{{Nodes: []Node{
		{Feature: 0, Threshold: 1, Left: 1, Right: 2},
		{Leaf: true, Value: -1},
		{Leaf: true, Value: 1},
	}}}
	e, err := NewTreeEnsemble(1, 0, trees)
	if err != nil {
		t.Fatalf("NewTreeEnsemble failed: %v", err)
	}

	spec, err := e.Describe()
	if err != nil {
		t.Fatalf("Describe failed: %v", err)
	}
	p, err := Decode(spec, 1)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	got, _ := p.Predict(Input{Features: []float64{2}})
	if got != 1 {
		t.Errorf("expected 1, got %v", got)
	}
}

func TestTreeEnsemble_Validation(t *testing.T) {
	tests := []struct {
		name  string
		trees []Tree
		want  error
	}{
		{"empty tree", []Tree{{}}, ErrInvalidModel},
		{"unknown feature", []Tree{{Nodes: []Node{
			{Feature: 7, Left: 1, Right: 2}, {Leaf: true}, {Leaf: true},
		}}}, ErrFeatureMismatch},
		{"backward child", []Tree{{Nodes: []Node{
			{Feature: 0, Left: 0, Right: 1}, {Leaf: true},
		}}}, ErrInvalidModel},
		{"child out of range", []Tree{{Nodes: []Node{
			{Feature: 0, Left: 1, Right: 9}, {Leaf: true},
		}}}, ErrInvalidModel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTreeEnsemble(2, 0, tt.trees)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestRegister(t *testing.T) {
	Register("constant_test", func(_ json.RawMessage, _ int) (Predictor, error) {
		return NewLinear(7, nil), nil
	})

	p, err := Decode(ModelSpec{Type: "constant_test"}, 0)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	got, _ := p.Predict(Input{})
	if got != 7 {
		t.Errorf("expected 7, got %v", got)
	}
}
