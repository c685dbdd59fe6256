package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"demand-forecast/internal/domain"
	"demand-forecast/internal/storage"
)

// DemandStore implements storage.DemandStore using PostgreSQL.
type DemandStore struct {
	pool *Pool
}

// NewDemandStore creates a new DemandStore.
func NewDemandStore(pool *Pool) *DemandStore {
	return &DemandStore{pool: pool}
}

// Compile-time interface check.
var _ storage.DemandStore = (*DemandStore)(nil)

const demandColumns = `demand_date, product_id, quantity, event_count, active_users, price`

// InsertBulk adds multiple records atomically. Fails entire batch on any duplicate.
func (s *DemandStore) InsertBulk(ctx context.Context, records []*domain.DemandRecord) error {
	if len(records) == 0 {
		return nil
	}
	for _, r := range records {
		if err := storage.ValidateRecord(r); err != nil {
			return err
		}
	}

	query := `INSERT INTO daily_demand (` + demandColumns + `) VALUES ($1, $2, $3, $4, $5, $6)`

	return s.pool.withTx(ctx, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, r := range records {
			batch.Queue(query, domain.Day(r.Date), r.ProductID, r.Quantity, r.EventCount, r.ActiveUsers, r.Price)
		}

		results := tx.SendBatch(ctx, batch)
		defer results.Close()
		for range records {
			if _, err := results.Exec(); err != nil {
				return fmt.Errorf("insert demand in bulk: %w", err)
			}
		}
		return results.Close()
	})
}

// GetByProduct retrieves all records for a product, ordered by date ASC.
func (s *DemandStore) GetByProduct(ctx context.Context, productID string) ([]*domain.DemandRecord, error) {
	query := `
		SELECT ` + demandColumns + `
		FROM daily_demand
		WHERE product_id = $1
		ORDER BY demand_date ASC
	`

	rows, err := s.pool.Query(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("get demand by product: %w", err)
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
		args = append(args, q.ProductID)
		conds = append(conds, fmt.Sprintf("product_id = $%d", len(args)))
	}
	if !q.Start.IsZero() {
		args = append(args, domain.Day(q.Start))
		conds = append(conds, fmt.Sprintf("demand_date >= $%d", len(args)))
	}
	if !q.End.IsZero() {
		args = append(args, domain.Day(q.End))
		conds = append(conds, fmt.Sprintf("demand_date <= $%d", len(args)))
	}

	query := `SELECT ` + demandColumns + ` FROM daily_demand`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY product_id ASC, demand_date ASC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query demand: %w", err)
	}
	defer rows.Close()

	return scanDemand(rows)
}

// ListProducts returns distinct product ids in lexical order.
func (s *DemandStore) ListProducts(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT DISTINCT product_id FROM daily_demand ORDER BY product_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan products: %w", err)
	}
	return products, nil
}

// scanDemand scans multiple rows into a slice of DemandRecord.
func scanDemand(rows pgx.Rows) ([]*domain.DemandRecord, error) {
	var records []*domain.DemandRecord

	for rows.Next() {
		var r domain.DemandRecord

		err := rows.Scan(
			&r.Date,
			&r.ProductID,
			&r.Quantity,
			&r.EventCount,
			&r.ActiveUsers,
			&r.Price,
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
