package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"demand-forecast/internal/domain"
	"demand-forecast/internal/storage"
)

type demandKey struct {
	productID string
	date      time.Time
}

// DemandStore is an in-memory implementation of storage.SnapshotStore.
type DemandStore struct {
	mu   sync.RWMutex
	data map[demandKey]*domain.DemandRecord
}

// NewDemandStore creates a new in-memory demand store.
func NewDemandStore() *DemandStore {
	return &DemandStore{
		data: make(map[demandKey]*domain.DemandRecord),
	}
}

var _ storage.SnapshotStore = (*DemandStore)(nil)

// InsertBulk adds multiple records. Fails entire batch on duplicate.
func (s *DemandStore) InsertBulk(_ context.Context, records []*domain.DemandRecord) error {
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batch, err := keyBatch(records)
	if err != nil {
		return err
	}
	for k := range batch {
		if _, exists := s.data[k]; exists {
			return storage.ErrDuplicateKey
		}
	}
	for k, r := range batch {
		s.data[k] = r
	}
	return nil
}

// Replace drops every stored row and loads records in their place.
func (s *DemandStore) Replace(_ context.Context, records []*domain.DemandRecord) error {
	batch, err := keyBatch(records)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.data = batch
	s.mu.Unlock()
	return nil
}

// keyBatch validates records, rejects intra-batch duplicates and returns copies keyed by (product, day).
func keyBatch(records []*domain.DemandRecord) (map[demandKey]*domain.DemandRecord, error) {
	batch := make(map[demandKey]*domain.DemandRecord, len(records))
	for _, r := range records {
		if err := storage.ValidateRecord(r); err != nil {
			return nil, err
		}
		rec := copyRecord(r)
		rec.Date = domain.Day(r.Date)
		k := demandKey{productID: rec.ProductID, date: rec.Date}
		if _, exists := batch[k]; exists {
			return nil, storage.ErrDuplicateKey
		}
		batch[k] = rec
	}
	return batch, nil
}

// GetByProduct retrieves all records for a product, ordered by date ASC.
func (s *DemandStore) GetByProduct(ctx context.Context, productID string) ([]*domain.DemandRecord, error) {
	return s.Query(ctx, domain.HistoryQuery{ProductID: productID})
}

// Query retrieves records matching q, ordered by (product_id, date) ASC.
func (s *DemandStore) Query(_ context.Context, q domain.HistoryQuery) ([]*domain.DemandRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.DemandRecord
	for _, r := range s.data {
		if q.Matches(r) {
			result = append(result, copyRecord(r))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].ProductID != result[j].ProductID {
			return result[i].ProductID < result[j].ProductID
		}
		return result[i].Date.Before(result[j].Date)
	})

	return result, nil
}

// ListProducts returns distinct product ids in lexical order.
func (s *DemandStore) ListProducts(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for k := range s.data {
		seen[k.productID] = struct{}{}
	}
	products := make([]string, 0, len(seen))
	for p := range seen {
		products = append(products, p)
	}
	sort.Strings(products)
	return products, nil
}

func copyRecord(r *domain.DemandRecord) *domain.DemandRecord {
	c := *r
	c.EventCount = copyFloat(r.EventCount)
	c.ActiveUsers = copyFloat(r.ActiveUsers)
	c.Price = copyFloat(r.Price)
	return &c
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
