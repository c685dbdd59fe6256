package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"demand-forecast/internal/domain"
	"demand-forecast/internal/storage/memory"
	"demand-forecast/internal/storage/sqlite"
)

type brokenSource struct{ err error }

func (b brokenSource) Name() string { return "warehouse" }

func (b brokenSource) Load(context.Context) ([]*domain.DemandRecord, error) {
	return nil, b.err
}

func TestChain_FallsThroughToSnapshot(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "demand.db")

	snap, err := sqlite.Open(ctx, path)
	if err != nil {
		t.Fatalf("open snapshot: %v", err)
	}
	if err := snap.InsertBulk(ctx, []*domain.DemandRecord{{Date: day(0), ProductID: "A", Quantity: 4}}); err != nil {
		t.Fatalf("seed snapshot: %v", err)
	}
	snap.Close()

	chain := NewChain(nil, brokenSource{err: errors.New("connection refused")}, FromSnapshot(path))
	st, name, err := chain.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if name != "snapshot" {
		t.Errorf("expected snapshot source, got %s", name)
	}
	if st.Len() != 1 {
		t.Errorf("expected 1 record, got %d", st.Len())
	}
}

func TestChain_AllFail(t *testing.T) {
	warehouseErr := errors.New("connection refused")
	chain := NewChain(nil,
		brokenSource{err: warehouseErr},
		FromSnapshot(filepath.Join(t.TempDir(), "missing.db")),
	)

	_, _, err := chain.Load(context.Background())
	if !errors.Is(err, ErrNoHistory) {
		t.Errorf("expected ErrNoHistory, got %v", err)
	}
	if !errors.Is(err, warehouseErr) {
		t.Errorf("expected warehouse error to be joined, got %v", err)
	}
}

func TestChain_SkipsEmptySource(t *testing.T) {
	store := memory.NewDemandStore()
	_ = store.InsertBulk(context.Background(), []*domain.DemandRecord{{Date: day(0), ProductID: "A", Quantity: 1}})

	chain := NewChain(nil,
		FromRecords("empty", nil),
		FromStore("memory", store, domain.HistoryQuery{}),
	)
	_, name, err := chain.Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if name != "memory" {
		t.Errorf("expected memory source, got %s", name)
	}
}
