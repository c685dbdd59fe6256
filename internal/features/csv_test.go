package features

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestTrainingCSV_WriteRead(t *testing.T) {
	spec := mustSpec(t, "lag_2", "rolling_mean_3", "price")
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rows, err := TrainingRows(spec, makeRecords("p1", []float64{1, 2, 3, 4, 5}, start), 0)
	if err != nil {
		t.Fatalf("TrainingRows failed: %v", err)
	}

	var buf bytes.Buffer
	if err := WriteTrainingCSV(&buf, spec, rows); err != nil {
		t.Fatalf("WriteTrainingCSV failed: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "date,product_id,target,lag_2,rolling_mean_3,price\n2024-01-04,p1,4,2,2,13\n") {
		t.Errorf("unexpected CSV:\n%s", buf.String())
	}

	got, err := ReadTrainingCSV(&buf, spec)
	if err != nil {
		t.Fatalf("ReadTrainingCSV failed: %v", err)
	}
	if len(got) != len(rows) {
		t.Fatalf("expected %d rows, got %d", len(rows), len(got))
	}
	for i := range rows {
		if !got[i].Date.Equal(rows[i].Date) || got[i].Target != rows[i].Target {
			t.Errorf("row %d: expected %+v, got %+v", i, rows[i], got[i])
		}
		for j := range rows[i].Features {
			if got[i].Features[j] != rows[i].Features[j] {
				t.Errorf("row %d feature %d: expected %v, got %v", i, j, rows[i].Features[j], got[i].Features[j])
			}
		}
	}
}

func TestReadTrainingCSV_ReordersAndIgnoresColumns(t *testing.T) {
	spec := mustSpec(t, "lag_1", "price")
	in := "price,extra,target,product_id,date,lag_1\n" +
		"9.5,x,3,A,2024-02-01,2\n" +
		",x,4,A,2024-02-02,3\n"

	rows, err := ReadTrainingCSV(strings.NewReader(in), spec)
	if err != nil {
		t.Fatalf("ReadTrainingCSV failed: %v", err)
	}
	if rows[0].Features[0] != 2 || rows[0].Features[1] != 9.5 {
		t.Errorf("expected spec order [2 9.5], got %v", rows[0].Features)
	}
	if rows[1].Features[1] != 0 {
		t.Errorf("expected empty value read as 0, got %v", rows[1].Features[1])
	}
}

func TestReadTrainingCSV_MissingColumn(t *testing.T) {
	spec := mustSpec(t, "lag_1", "price")
	in := "date,product_id,target,lag_1\n2024-02-01,A,3,2\n"

	_, err := ReadTrainingCSV(strings.NewReader(in), spec)
	if !errors.Is(err, ErrConfiguration) {
		t.Errorf("expected ErrConfiguration, got %v", err)
	}
}

func TestReadTrainingCSV_BadValue(t *testing.T) {
	spec := mustSpec(t, "lag_1")
	in := "date,product_id,target,lag_1\n2024-02-01,A,3,abc\n"

	if _, err := ReadTrainingCSV(strings.NewReader(in), spec); err == nil {
		t.Error("expected parse error")
	}
}
