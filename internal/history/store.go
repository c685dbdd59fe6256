// Package history holds the immutable per-product demand index an artifact
// forecasts from, and the sources it is loaded from.
package history

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"demand-forecast/internal/domain"
)

// ErrDuplicatePoint is returned when two records share (date, product).
var ErrDuplicatePoint = errors.New("duplicate demand point")

// Series is one product's date-ordered history.
type Series struct {
	ProductID  string
	Dates      []time.Time
	Quantities []float64
	// Latest holds the observed contextual values of the most recent day.
	Latest map[string]float64

	rows []*domain.DemandRecord
}

// LastDate returns the most recent observed day.
func (s *Series) LastDate() time.Time {
	return s.Dates[len(s.Dates)-1]
}

// Len returns the number of observed days.
func (s *Series) Len() int {
	return len(s.Quantities)
}

// Store is an immutable index of demand history keyed by product.
// It is safe for concurrent reads.
type Store struct {
	series   map[string]*Series
	products []string // first-seen order of the input
	records  int
}

// NewStore indexes records. Input order is free; each product's series is
// sorted by date. Returns ErrDuplicatePoint on a repeated (date, product).
func NewStore(records []*domain.DemandRecord) (*Store, error) {
	grouped := make(map[string][]*domain.DemandRecord)
	var order []string
	for _, r := range records {
		if r == nil || r.ProductID == "" {
			return nil, fmt.Errorf("history record without product id")
		}
		if _, ok := grouped[r.ProductID]; !ok {
			order = append(order, r.ProductID)
		}
		grouped[r.ProductID] = append(grouped[r.ProductID], r)
	}

	st := &Store{series: make(map[string]*Series, len(grouped)), products: order, records: len(records)}
	for id, recs := range grouped {
		sort.SliceStable(recs, func(i, j int) bool { return recs[i].Date.Before(recs[j].Date) })

		rows := make([]*domain.DemandRecord, len(recs))
		for i, r := range recs {
			c := *r
			c.Date = domain.Day(r.Date)
			if i > 0 && c.Date.Equal(rows[i-1].Date) {
				return nil, fmt.Errorf("%w: product %s on %s", ErrDuplicatePoint, id, c.Date.Format(domain.DateLayout))
			}
			rows[i] = &c
		}
		st.series[id] = newSeries(id, rows)
	}
	return st, nil
}

func newSeries(id string, rows []*domain.DemandRecord) *Series {
	s := &Series{
		ProductID:  id,
		Dates:      make([]time.Time, len(rows)),
		Quantities: make([]float64, len(rows)),
		Latest:     rows[len(rows)-1].Context().Values,
		rows:       rows,
	}
	for i, r := range rows {
		s.Dates[i] = r.Date
		s.Quantities[i] = r.Quantity
	}
	return s
}

// Records returns copies of the series rows in date order.
func (s *Series) Records() []*domain.DemandRecord {
	out := make([]*domain.DemandRecord, len(s.rows))
	for i, r := range s.rows {
		c := *r
		out[i] = &c
	}
	return out
}

// Series returns the history of productID, or false if it has none.
// The returned value must not be modified.
func (s *Store) Series(productID string) (*Series, bool) {
	ser, ok := s.series[productID]
	return ser, ok
}

// Products returns distinct products in lexical order.
func (s *Store) Products() []string {
	out := make([]string, len(s.products))
	copy(out, s.products)
	sort.Strings(out)
	return out
}

// ProductsFirstSeen returns distinct products in the order they first
// appeared in the input records.
func (s *Store) ProductsFirstSeen() []string {
	out := make([]string, len(s.products))
	copy(out, s.products)
	return out
}

// Len returns the number of indexed records.
func (s *Store) Len() int {
	return s.records
}

// Empty reports whether the store holds no history.
func (s *Store) Empty() bool {
	return s.records == 0
}

// Records flattens the store back to records ordered by (product, date).
func (s *Store) Records() []*domain.DemandRecord {
	out := make([]*domain.DemandRecord, 0, s.records)
	for _, id := range s.Products() {
		for _, r := range s.series[id].rows {
			c := *r
			out = append(out, &c)
		}
	}
	return out
}

// Digest hashes every record's product, date, quantity and context in
// (product, date) order. Two stores share a digest only when they hold
// the same observations.
func (s *Store) Digest() string {
	h := sha256.New()
	buf := make([]byte, 0, 128)
	for _, id := range s.Products() {
		for _, r := range s.series[id].rows {
			buf = buf[:0]
			buf = append(buf, r.ProductID...)
			buf = append(buf, '|')
			buf = r.Date.UTC().AppendFormat(buf, domain.DateLayout)
			buf = append(buf, '|')
			buf = strconv.AppendFloat(buf, r.Quantity, 'g', -1, 64)
			for _, v := range []*float64{r.EventCount, r.ActiveUsers, r.Price} {
				buf = append(buf, '|')
				if v == nil {
					buf = append(buf, "null"...)
					continue
				}
				buf = strconv.AppendFloat(buf, *v, 'g', -1, 64)
			}
			buf = append(buf, '\n')
			h.Write(buf)
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Truncate returns a store without the last n days of every product.
// Products left with no history are dropped.
func (s *Store) Truncate(n int) *Store {
	if n <= 0 {
		return s
	}
	out := &Store{series: make(map[string]*Series, len(s.series))}
	for _, id := range s.products {
		ser := s.series[id]
		keep := ser.Len() - n
		if keep <= 0 {
			continue
		}
		out.series[id] = newSeries(id, ser.rows[:keep:keep])
		out.products = append(out.products, id)
		out.records += keep
	}
	return out
}
