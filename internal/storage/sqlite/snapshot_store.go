// Package sqlite stores the offline demand snapshot the fallback tier
// reads when the live warehouse is unreachable.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"demand-forecast/internal/domain"
	"demand-forecast/internal/storage"
)

// SnapshotStore implements storage.SnapshotStore on a single sqlite file.
type SnapshotStore struct {
	db *sql.DB
}

var _ storage.SnapshotStore = (*SnapshotStore)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS daily_demand (
	demand_date  TEXT NOT NULL,
	product_id   TEXT NOT NULL,
	quantity     REAL NOT NULL,
	event_count  REAL,
	active_users REAL,
	price        REAL,
	PRIMARY KEY (product_id, demand_date)
)`

// Open opens (creating if needed) the snapshot at path.
func Open(ctx context.Context, path string) (*SnapshotStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init snapshot schema: %w", err)
	}

	return &SnapshotStore{db: db}, nil
}

// OpenExisting opens the snapshot at path without creating it.
// Returns an error wrapping os.ErrNotExist if the file is absent.
func OpenExisting(ctx context.Context, path string) (*SnapshotStore, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("stat snapshot: %w", err)
	}
	return Open(ctx, path)
}

// Close closes the database.
func (s *SnapshotStore) Close() error {
	return s.db.Close()
}

// InsertBulk adds multiple records in one transaction. Fails entire batch on duplicate.
func (s *SnapshotStore) InsertBulk(ctx context.Context, records []*domain.DemandRecord) error {
	if len(records) == 0 {
		return nil
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return insert(ctx, tx, records)
	})
}

// Replace swaps every stored row for records in one transaction.
func (s *SnapshotStore) Replace(ctx context.Context, records []*domain.DemandRecord) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM daily_demand`); err != nil {
			return fmt.Errorf("clear snapshot: %w", err)
		}
		return insert(ctx, tx, records)
	})
}

func (s *SnapshotStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func insert(ctx context.Context, tx *sql.Tx, records []*domain.DemandRecord) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO daily_demand (demand_date, product_id, quantity, event_count, active_users, price)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if err := storage.ValidateRecord(r); err != nil {
			return err
		}
		_, err := stmt.ExecContext(ctx,
			r.Date.UTC().Format(domain.DateLayout), r.ProductID, r.Quantity,
			nullable(r.EventCount), nullable(r.ActiveUsers), nullable(r.Price),
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert snapshot row: %w", err)
		}
	}
	return nil
}

// GetByProduct retrieves all records for a product, ordered by date ASC.
func (s *SnapshotStore) GetByProduct(ctx context.Context, productID string) ([]*domain.DemandRecord, error) {
	return s.Query(ctx, domain.HistoryQuery{ProductID: productID})
}

// Query retrieves records matching q, ordered by (product_id, date) ASC.
func (s *SnapshotStore) Query(ctx context.Context, q domain.HistoryQuery) ([]*domain.DemandRecord, error) {
	var (
		conds []string
		args  []any
	)
	if q.ProductID != "" {
		conds = append(conds, "product_id = ?")
		args = append(args, q.ProductID)
	}
	// ISO dates compare correctly as text.
	if !q.Start.IsZero() {
		conds = append(conds, "demand_date >= ?")
		args = append(args, q.Start.UTC().Format(domain.DateLayout))
	}
	if !q.End.IsZero() {
		conds = append(conds, "demand_date <= ?")
		args = append(args, q.End.UTC().Format(domain.DateLayout))
	}

	query := `SELECT demand_date, product_id, quantity, event_count, active_users, price FROM daily_demand`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY product_id ASC, demand_date ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query snapshot: %w", err)
	}
	defer rows.Close()

	var records []*domain.DemandRecord
	for rows.Next() {
		var (
			r                 domain.DemandRecord
			date              string
			events, users, pr sql.NullFloat64
		)
		if err := rows.Scan(&date, &r.ProductID, &r.Quantity, &events, &users, &pr); err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		r.Date, err = time.Parse(domain.DateLayout, date)
		if err != nil {
			return nil, fmt.Errorf("parse snapshot date %q: %w", date, err)
		}
		r.EventCount = fromNull(events)
		r.ActiveUsers = fromNull(users)
		r.Price = fromNull(pr)
		records = append(records, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot rows: %w", err)
	}
	return records, nil
}

// ListProducts returns distinct product ids in lexical order.
func (s *SnapshotStore) ListProducts(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT product_id FROM daily_demand ORDER BY product_id ASC`)
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
	return products, rows.Err()
}

func nullable(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func fromNull(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func isDuplicateKeyError(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey || se.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}
