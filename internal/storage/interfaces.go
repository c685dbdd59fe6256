package storage

import (
	"context"

	"demand-forecast/internal/domain"
)

// DemandStore provides access to daily_demand storage.
// Rows are unique per (date, product_id).
type DemandStore interface {
	// InsertBulk adds multiple records atomically. Fails entire batch on duplicate (date, product_id).
	InsertBulk(ctx context.Context, records []*domain.DemandRecord) error

	// GetByProduct retrieves all records for a product, ordered by date ASC.
	GetByProduct(ctx context.Context, productID string) ([]*domain.DemandRecord, error)

	// Query retrieves records matching q, ordered by (product_id, date) ASC.
	Query(ctx context.Context, q domain.HistoryQuery) ([]*domain.DemandRecord, error)

	// ListProducts returns distinct product ids in lexical order.
	ListProducts(ctx context.Context) ([]string, error)
}

// SnapshotStore is a DemandStore that can be rewritten wholesale from another source.
type SnapshotStore interface {
	DemandStore

	// Replace atomically swaps the stored rows for records.
	Replace(ctx context.Context, records []*domain.DemandRecord) error
}

// ValidateRecord checks the fields every store requires.
func ValidateRecord(r *domain.DemandRecord) error {
	if r == nil || r.ProductID == "" || r.Date.IsZero() {
		return ErrInvalidInput
	}
	return nil
}
