package history

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"demand-forecast/internal/domain"
	"demand-forecast/internal/observability"
	"demand-forecast/internal/storage"
	"demand-forecast/internal/storage/sqlite"
)

// ErrNoHistory is returned when every source failed or returned no rows.
var ErrNoHistory = errors.New("no demand history from any source")

// Source yields demand records for the fallback tier and for bundles that
// do not carry their own history.
type Source interface {
	Name() string
	Load(ctx context.Context) ([]*domain.DemandRecord, error)
}

// StoreSource reads a DemandStore.
type StoreSource struct {
	name  string
	store storage.DemandStore
	query domain.HistoryQuery
}

// FromStore wraps store as a named source restricted to q.
func FromStore(name string, store storage.DemandStore, q domain.HistoryQuery) *StoreSource {
	return &StoreSource{name: name, store: store, query: q}
}

// Name implements Source.
func (s *StoreSource) Name() string { return s.name }

// Load implements Source.
func (s *StoreSource) Load(ctx context.Context) ([]*domain.DemandRecord, error) {
	start := time.Now()
	records, err := s.store.Query(ctx, s.query)
	observability.RecordDBQuery(s.name, "history", time.Since(start).Seconds(), err)
	return records, err
}

// SnapshotSource reads the sqlite snapshot at a path, opening it per load.
type SnapshotSource struct {
	path string
}

// FromSnapshot returns a source over the snapshot file at path.
func FromSnapshot(path string) *SnapshotSource {
	return &SnapshotSource{path: path}
}

// Name implements Source.
func (s *SnapshotSource) Name() string { return "snapshot" }

// Load implements Source.
func (s *SnapshotSource) Load(ctx context.Context) ([]*domain.DemandRecord, error) {
	store, err := sqlite.OpenExisting(ctx, s.path)
	if err != nil {
		return nil, err
	}
	defer store.Close()
	return store.Query(ctx, domain.HistoryQuery{})
}

// Chain tries sources in order and returns the first non-empty history.
type Chain struct {
	sources []Source
	logger  *log.Logger
}

// NewChain creates a chain. A nil logger discards output.
func NewChain(logger *log.Logger, sources ...Source) *Chain {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Chain{sources: sources, logger: logger}
}

// Load returns the first source's history that loads without error and is
// non-empty. When none does, the error wraps ErrNoHistory joined with every
// source failure.
func (c *Chain) Load(ctx context.Context) (*Store, string, error) {
	errs := []error{ErrNoHistory}
	for _, src := range c.sources {
		records, err := src.Load(ctx)
		if err != nil {
			observability.RecordHistorySourceError(src.Name())
			c.logger.Printf("history source %s failed: %v", src.Name(), err)
			errs = append(errs, fmt.Errorf("%s: %w", src.Name(), err))
			continue
		}
		if len(records) == 0 {
			c.logger.Printf("history source %s returned no rows", src.Name())
			errs = append(errs, fmt.Errorf("%s: empty", src.Name()))
			continue
		}
		st, err := NewStore(records)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", src.Name(), err))
			continue
		}
		c.logger.Printf("loaded %d records for %d products from %s", st.Len(), len(st.Products()), src.Name())
		return st, src.Name(), nil
	}
	return nil, "", errors.Join(errs...)
}

// Static is a Source over fixed records.
type Static struct {
	name    string
	records []*domain.DemandRecord
}

// FromRecords returns a source that always yields records.
func FromRecords(name string, records []*domain.DemandRecord) *Static {
	return &Static{name: name, records: records}
}

// Name implements Source.
func (s *Static) Name() string { return s.name }

// Load implements Source.
func (s *Static) Load(context.Context) ([]*domain.DemandRecord, error) {
	return s.records, nil
}
