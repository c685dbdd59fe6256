package encoding

import (
	"reflect"
	"testing"
)

func TestFitSorted(t *testing.T) {
	enc := FitSorted([]string{"b", "a", "c", "a"})

	if !reflect.DeepEqual(enc.Classes(), []string{"a", "b", "c"}) {
		t.Errorf("unexpected classes: %v", enc.Classes())
	}
	code, ok := enc.Encode("c")
	if !ok || code != 2 {
		t.Errorf("expected (2, true), got (%d, %v)", code, ok)
	}
}

func TestFitFirstSeen(t *testing.T) {
	enc := FitFirstSeen([]string{"b", "a", "b", "c"})

	if !reflect.DeepEqual(enc.Classes(), []string{"b", "a", "c"}) {
		t.Errorf("unexpected classes: %v", enc.Classes())
	}
	code, _ := enc.Encode("a")
	if code != 1 {
		t.Errorf("expected 1, got %d", code)
	}
}

func TestEncode_UnknownUsesDefault(t *testing.T) {
	enc := FitSorted([]string{"a", "b"})

	code, ok := enc.Encode("zzz")
	if ok {
		t.Error("expected ok=false for unknown product")
	}
	if code != DefaultCode {
		t.Errorf("expected default code %d, got %d", DefaultCode, code)
	}
}

func TestFromClasses_Duplicate(t *testing.T) {
	if _, err := FromClasses([]string{"a", "a"}); err == nil {
		t.Error("expected error for duplicate class")
	}
}
