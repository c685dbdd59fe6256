package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"demand-forecast/internal/domain"
)

// ErrMalformedInput is returned for CSV input that cannot be parsed.
var ErrMalformedInput = errors.New("malformed input")

// timestampLayouts are tried in order when parsing timestamps.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999 MST",
	"2006-01-02 15:04:05.999999999",
	domain.DateLayout,
	"20060102",
}

func parseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unrecognised timestamp %q", ErrMalformedInput, raw)
}

// table reads a headed CSV and exposes columns by name.
type table struct {
	r     *csv.Reader
	index map[string]int
	line  int
}

func newTable(r io.Reader, required ...string) (*table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}
	for _, name := range required {
		if _, ok := index[name]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", ErrMalformedInput, name)
		}
	}
	return &table{r: cr, index: index, line: 1}, nil
}

// next returns the next row, or io.EOF.
func (t *table) next() ([]string, error) {
	rec, err := t.r.Read()
	t.line++
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("line %d: %w", t.line, err)
	}
	return rec, nil
}

func (t *table) get(rec []string, name string) string {
	i, ok := t.index[name]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func (t *table) errorf(format string, args ...any) error {
	return fmt.Errorf("line %d: %w: %s", t.line, ErrMalformedInput, fmt.Sprintf(format, args...))
}

// ReadOrdersCSV reads orders with columns order_id, order_date, product_ids
// and optional user_id, status, revenue. product_ids is a comma-separated list.
func ReadOrdersCSV(r io.Reader) ([]*domain.Order, error) {
	t, err := newTable(r, "order_id", "order_date", "product_ids")
	if err != nil {
		return nil, err
	}

	var orders []*domain.Order
	for {
		rec, err := t.next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		ts, err := parseTimestamp(t.get(rec, "order_date"))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", t.line, err)
		}
		o := &domain.Order{
			OrderID:    t.get(rec, "order_id"),
			UserID:     t.get(rec, "user_id"),
			OrderDate:  ts,
			Status:     t.get(rec, "status"),
			ProductIDs: strings.Split(t.get(rec, "product_ids"), ","),
		}
		if raw := t.get(rec, "revenue"); raw != "" {
			if o.Revenue, err = strconv.ParseFloat(raw, 64); err != nil {
				return nil, t.errorf("revenue %q", raw)
			}
		}
		orders = append(orders, o)
	}
	return orders, nil
}

// ReadEventsCSV reads product events with columns product_id and timestamp.
func ReadEventsCSV(r io.Reader) ([]domain.ProductEvent, error) {
	t, err := newTable(r, "product_id", "timestamp")
	if err != nil {
		return nil, err
	}

	events := []domain.ProductEvent{}
	for {
		rec, err := t.next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		ts, err := parseTimestamp(t.get(rec, "timestamp"))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", t.line, err)
		}
		events = append(events, domain.ProductEvent{Timestamp: ts, ProductID: t.get(rec, "product_id")})
	}
	return events, nil
}

// ReadUsersCSV reads user signups with columns user_id and created_at.
func ReadUsersCSV(r io.Reader) ([]domain.UserSignup, error) {
	t, err := newTable(r, "user_id", "created_at")
	if err != nil {
		return nil, err
	}

	users := []domain.UserSignup{}
	for {
		rec, err := t.next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		ts, err := parseTimestamp(t.get(rec, "created_at"))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", t.line, err)
		}
		users = append(users, domain.UserSignup{UserID: t.get(rec, "user_id"), CreatedAt: ts})
	}
	return users, nil
}

// ReadPricesCSV reads a product catalog with columns product_id and price.
// Rows with an empty price are skipped.
func ReadPricesCSV(r io.Reader) (map[string]float64, error) {
	t, err := newTable(r, "product_id", "price")
	if err != nil {
		return nil, err
	}

	prices := make(map[string]float64)
	for {
		rec, err := t.next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		raw := t.get(rec, "price")
		if raw == "" {
			continue
		}
		p, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, t.errorf("price %q", raw)
		}
		prices[t.get(rec, "product_id")] = p
	}
	return prices, nil
}
