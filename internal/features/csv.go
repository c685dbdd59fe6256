package features

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"demand-forecast/internal/domain"
)

// Leading columns of a training frame CSV, followed by the Spec columns.
const (
	csvDate    = "date"
	csvProduct = "product_id"
	csvTarget  = "target"
)

// WriteTrainingCSV writes rows as a CSV frame with header date,product_id,target,<spec columns>.
func WriteTrainingCSV(w io.Writer, spec *Spec, rows []TrainingRow) error {
	cw := csv.NewWriter(w)

	header := append([]string{csvDate, csvProduct, csvTarget}, spec.Columns()...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	rec := make([]string, len(header))
	for _, r := range rows {
		if len(r.Features) != spec.Len() {
			return fmt.Errorf("%w: row %s/%s has %d features, want %d",
				ErrConfiguration, r.ProductID, r.Date.Format(domain.DateLayout), len(r.Features), spec.Len())
		}
		rec[0] = r.Date.Format(domain.DateLayout)
		rec[1] = r.ProductID
		rec[2] = strconv.FormatFloat(r.Target, 'g', -1, 64)
		for i, v := range r.Features {
			rec[3+i] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// ReadTrainingCSV reads a frame written by WriteTrainingCSV or an external trainer.
// Feature values are returned in spec order; header columns not in spec are ignored,
// and a spec column missing from the header is ErrConfiguration.
func ReadTrainingCSV(r io.Reader, spec *Spec) ([]TrainingRow, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[name] = i
	}
	for _, name := range []string{csvDate, csvProduct, csvTarget} {
		if _, ok := index[name]; !ok {
			return nil, fmt.Errorf("%w: training frame missing column %q", ErrConfiguration, name)
		}
	}
	cols := spec.Columns()
	featureIdx := make([]int, len(cols))
	for i, c := range cols {
		idx, ok := index[c]
		if !ok {
			return nil, fmt.Errorf("%w: training frame missing column %q", ErrConfiguration, c)
		}
		featureIdx[i] = idx
	}

	var rows []TrainingRow
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		date, err := time.Parse(domain.DateLayout, rec[index[csvDate]])
		if err != nil {
			return nil, fmt.Errorf("line %d: parse date: %w", line, err)
		}
		target, err := strconv.ParseFloat(rec[index[csvTarget]], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: parse target: %w", line, err)
		}
		row := TrainingRow{
			Date:      date,
			ProductID: rec[index[csvProduct]],
			Target:    target,
			Features:  make([]float64, len(cols)),
		}
		for i, idx := range featureIdx {
			raw := rec[idx]
			if raw == "" {
				continue
			}
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: parse %s: %w", line, cols[i], err)
			}
			row.Features[i] = v
		}
		rows = append(rows, row)
	}
	return rows, nil
}
