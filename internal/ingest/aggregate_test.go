package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"demand-forecast/internal/domain"
	"demand-forecast/internal/storage"
	"demand-forecast/internal/storage/memory"
)

func ts(day, hour int) time.Time {
	return time.Date(2024, 5, day, hour, 0, 0, 0, time.UTC)
}

func TestAggregateOrders_ExplodesAndCounts(t *testing.T) {
	orders := []*domain.Order{
		{OrderID: "o1", OrderDate: ts(1, 9), ProductIDs: []string{"A", " B"}},
		{OrderID: "o2", OrderDate: ts(1, 18), ProductIDs: []string{"A", "A", ""}},
		{OrderID: "o3", OrderDate: ts(2, 7), ProductIDs: []string{"B "}},
	}

	got := AggregateOrders(orders)

	want := []struct {
		product string
		day     int
		qty     float64
	}{
		{"A", 1, 3},
		{"B", 1, 1},
		{"B", 2, 1},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d records, got %d", len(want), len(got))
	}
	for i, w := range want {
		if got[i].ProductID != w.product || !got[i].Date.Equal(ts(w.day, 0)) || got[i].Quantity != w.qty {
			t.Errorf("record %d: expected %s/%d=%v, got %s/%v=%v",
				i, w.product, w.day, w.qty, got[i].ProductID, got[i].Date, got[i].Quantity)
		}
	}
}

func TestAggregateOrders_Empty(t *testing.T) {
	if got := AggregateOrders(nil); got != nil {
		t.Errorf("expected nil, got %v", got)
	}
}

func TestEnrich(t *testing.T) {
	records := []*domain.DemandRecord{
		{Date: ts(1, 0), ProductID: "A", Quantity: 2},
		{Date: ts(2, 0), ProductID: "B", Quantity: 1},
	}
	Enrich(records, Context{
		Events: []domain.ProductEvent{
			{Timestamp: ts(1, 3), ProductID: "A"},
			{Timestamp: ts(1, 4), ProductID: "A"},
			{Timestamp: ts(1, 5), ProductID: "B"},
		},
		Users: []domain.UserSignup{
			{UserID: "u1", CreatedAt: ts(2, 1)},
			{UserID: "u1", CreatedAt: ts(2, 2)},
			{UserID: "u2", CreatedAt: ts(2, 3)},
		},
		Prices: map[string]float64{"A": 9.99},
	})

	a, b := records[0], records[1]
	if a.EventCount == nil || *a.EventCount != 2 {
		t.Errorf("A event_count: expected 2, got %v", a.EventCount)
	}
	if b.EventCount == nil || *b.EventCount != 0 {
		t.Errorf("B event_count: expected 0, got %v", b.EventCount)
	}
	if a.ActiveUsers == nil || *a.ActiveUsers != 0 {
		t.Errorf("A active_users: expected 0, got %v", a.ActiveUsers)
	}
	if b.ActiveUsers == nil || *b.ActiveUsers != 2 {
		t.Errorf("B active_users: expected 2 distinct, got %v", b.ActiveUsers)
	}
	if a.Price == nil || *a.Price != 9.99 {
		t.Errorf("A price: expected 9.99, got %v", a.Price)
	}
	if b.Price != nil {
		t.Errorf("B price: expected NULL, got %v", *b.Price)
	}
}

func TestEnrich_NilContextLeavesNull(t *testing.T) {
	records := []*domain.DemandRecord{{Date: ts(1, 0), ProductID: "A", Quantity: 1}}
	Enrich(records, Context{})

	if records[0].EventCount != nil || records[0].ActiveUsers != nil || records[0].Price != nil {
		t.Errorf("expected all context NULL, got %+v", records[0])
	}
}

func TestSortOrders(t *testing.T) {
	orders := []*domain.Order{
		{OrderID: "b", OrderDate: ts(2, 0)},
		{OrderID: "b", OrderDate: ts(1, 0)},
		{OrderID: "a", OrderDate: ts(1, 0)},
	}
	SortOrders(orders)

	if orders[0].OrderID != "a" || orders[1].OrderID != "b" || !orders[2].OrderDate.Equal(ts(2, 0)) {
		t.Errorf("unexpected order: %s %s %s", orders[0].OrderID, orders[1].OrderID, orders[2].OrderID)
	}
}

func TestRunner_Run(t *testing.T) {
	ctx := context.Background()
	store := memory.NewDemandStore()
	r := NewRunner(RunnerOptions{Store: store, StoreName: "memory"})

	orders, err := ReadOrdersCSV(strings.NewReader(
		"order_id,user_id,order_date,status,revenue,product_ids\n" +
			"o1,u1,2024-05-01 10:00:00 UTC,complete,12.5,\"A,B\"\n" +
			"o2,u2,2024-05-01T23:59:00Z,complete,3,A\n" +
			"o3,u1,2024-05-02,complete,,B\n"))
	if err != nil {
		t.Fatalf("ReadOrdersCSV failed: %v", err)
	}

	n, err := r.Run(ctx, orders, Context{Prices: map[string]float64{"B": 4}})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3 records, got %d", n)
	}

	a, err := store.GetByProduct(ctx, "A")
	if err != nil {
		t.Fatalf("GetByProduct failed: %v", err)
	}
	if len(a) != 1 || a[0].Quantity != 2 {
		t.Errorf("expected A=2 on 2024-05-01, got %+v", a)
	}

	// Same day again collides with stored rows.
	if _, err := r.Run(ctx, orders[:1], Context{}); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestRunner_NoDemand(t *testing.T) {
	r := NewRunner(RunnerOptions{Store: memory.NewDemandStore()})

	n, err := r.Run(context.Background(), []*domain.Order{{OrderID: "o1", OrderDate: ts(1, 0)}}, Context{})
	if err != nil || n != 0 {
		t.Errorf("expected 0 records and no error, got %d, %v", n, err)
	}
}
