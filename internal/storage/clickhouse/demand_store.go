package clickhouse

import (
	"context"
	"fmt"
	"strings"
	"time"

	"demand-forecast/internal/domain"
	"demand-forecast/internal/storage"
)

// DemandStore implements storage.DemandStore using ClickHouse.
// It is the live warehouse the resolver reads history from.
type DemandStore struct {
	conn *Conn
}

// NewDemandStore creates a new DemandStore.
func NewDemandStore(conn *Conn) *DemandStore {
	return &DemandStore{conn: conn}
}

// Compile-time interface check.
var _ storage.DemandStore = (*DemandStore)(nil)

const demandColumns = `demand_date, product_id, quantity, event_count, active_users, price`

// InsertBulk adds multiple records. Fails entire batch on duplicate (product_id, demand_date).
func (s *DemandStore) InsertBulk(ctx context.Context, records []*domain.DemandRecord) error {
	if len(records) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	type key struct {
		productID string
		date      time.Time
	}
	seen := make(map[key]struct{}, len(records))
	byProduct := make(map[string][]time.Time)
	for _, r := range records {
		if err := storage.ValidateRecord(r); err != nil {
			return err
		}
		k := key{r.ProductID, domain.Day(r.Date)}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
		byProduct[r.ProductID] = append(byProduct[r.ProductID], k.date)
	}

	// MergeTree does not enforce uniqueness, so check stored rows per product.
	for productID, dates := range byProduct {
		existing, err := s.dates(ctx, productID)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		for _, d := range dates {
			if _, ok := existing[d]; ok {
				return storage.ErrDuplicateKey
			}
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `INSERT INTO daily_demand (`+demandColumns+`)`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, r := range records {
		err = batch.Append(
			domain.Day(r.Date), r.ProductID, r.Quantity,
			r.EventCount, r.ActiveUsers, r.Price,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByProduct retrieves all records for a product, ordered by date ASC.
func (s *DemandStore) GetByProduct(ctx context.Context, productID string) ([]*domain.DemandRecord, error) {
	query := `
		SELECT ` + demandColumns + `
		FROM daily_demand
		WHERE product_id = ?
		ORDER BY demand_date ASC
	`

	rows, err := s.conn.Query(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("query by product: %w", err)
	}
	defer rows.Close()

	return scanDemand(rows)
}

// Query retrieves records matching q, ordered by (product_id, date) ASC.
func (s *DemandStore) Query(ctx context.Context, q domain.HistoryQuery) ([]*domain.DemandRecord, error) {
	var (
		conds []string
		args  []any
	)
	if q.ProductID != "" {
		conds = append(conds, "product_id = ?")
		args = append(args, q.ProductID)
	}
	if !q.Start.IsZero() {
		conds = append(conds, "demand_date >= toDate(?)")
		args = append(args, q.Start.UTC().Format(domain.DateLayout))
	}
	if !q.End.IsZero() {
		conds = append(conds, "demand_date <= toDate(?)")
		args = append(args, q.End.UTC().Format(domain.DateLayout))
	}

	query := `SELECT ` + demandColumns + ` FROM daily_demand`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY product_id ASC, demand_date ASC`

	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query demand: %w", err)
	}
	defer rows.Close()

	return scanDemand(rows)
}

// ListProducts returns distinct product ids in lexical order.
func (s *DemandStore) ListProducts(ctx context.Context) ([]string, error) {
	rows, err := s.conn.Query(ctx, `SELECT DISTINCT product_id FROM daily_demand ORDER BY product_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	return products, nil
}

// dates returns the stored days for a product.
func (s *DemandStore) dates(ctx context.Context, productID string) (map[time.Time]struct{}, error) {
	rows, err := s.conn.Query(ctx, `SELECT demand_date FROM daily_demand WHERE product_id = ?`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[time.Time]struct{})
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		out[domain.Day(d)] = struct{}{}
	}
	return out, rows.Err()
}

// scanDemand scans multiple rows.
func scanDemand(rows chRows) ([]*domain.DemandRecord, error) {
	var records []*domain.DemandRecord

	for rows.Next() {
		var r domain.DemandRecord

		err := rows.Scan(
			&r.Date, &r.ProductID, &r.Quantity,
			&r.EventCount, &r.ActiveUsers, &r.Price,
		)
		if err != nil {
			return nil, fmt.Errorf("scan demand row: %w", err)
		}

		r.Date = domain.Day(r.Date)
		records = append(records, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate demand rows: %w", err)
	}

	return records, nil
}
