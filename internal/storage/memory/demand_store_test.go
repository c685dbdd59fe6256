package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"demand-forecast/internal/domain"
	"demand-forecast/internal/storage"
)

func day(s string) time.Time {
	t, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func ptr[T any](v T) *T {
	return &v
}

func TestDemandStore_InsertBulkAndGet(t *testing.T) {
	store := NewDemandStore()
	ctx := context.Background()

	records := []*domain.DemandRecord{
		{Date: day("2024-01-02"), ProductID: "A", Quantity: 5, Price: ptr(9.5)},
		{Date: day("2024-01-01"), ProductID: "A", Quantity: 3},
		{Date: day("2024-01-01"), ProductID: "B", Quantity: 1},
	}

	if err := store.InsertBulk(ctx, records); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	result, err := store.GetByProduct(ctx, "A")
	if err != nil {
		t.Fatalf("GetByProduct failed: %v", err)
	}
	if len(result) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(result))
	}
	if !result[0].Date.Equal(day("2024-01-01")) || result[1].Quantity != 5 {
		t.Errorf("Expected date ASC order, got %v then %v", result[0].Date, result[1].Date)
	}
	if result[1].Price == nil || *result[1].Price != 9.5 {
		t.Errorf("Expected price 9.5, got %v", result[1].Price)
	}
}

func TestDemandStore_DuplicateKey(t *testing.T) {
	store := NewDemandStore()
	ctx := context.Background()

	records := []*domain.DemandRecord{{Date: day("2024-01-01"), ProductID: "A", Quantity: 1}}
	if err := store.InsertBulk(ctx, records); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	err := store.InsertBulk(ctx, records)
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestDemandStore_IntraBatchDuplicate(t *testing.T) {
	store := NewDemandStore()
	ctx := context.Background()

	records := []*domain.DemandRecord{
		{Date: day("2024-01-01"), ProductID: "A", Quantity: 1},
		{Date: day("2024-01-01").Add(3 * time.Hour), ProductID: "A", Quantity: 2},
	}

	err := store.InsertBulk(ctx, records)
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}

	all, _ := store.Query(ctx, domain.HistoryQuery{})
	if len(all) != 0 {
		t.Errorf("Failed batch must not be partially applied, got %d rows", len(all))
	}
}

func TestDemandStore_InvalidInput(t *testing.T) {
	store := NewDemandStore()

	err := store.InsertBulk(context.Background(), []*domain.DemandRecord{{Date: day("2024-01-01")}})
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}

func TestDemandStore_QueryRange(t *testing.T) {
	store := NewDemandStore()
	ctx := context.Background()

	var records []*domain.DemandRecord
	for i := 0; i < 10; i++ {
		d := day("2024-03-01").AddDate(0, 0, i)
		records = append(records,
			&domain.DemandRecord{Date: d, ProductID: "B", Quantity: float64(i)},
			&domain.DemandRecord{Date: d, ProductID: "A", Quantity: float64(i)},
		)
	}
	if err := store.InsertBulk(ctx, records); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	result, err := store.Query(ctx, domain.HistoryQuery{
		Start: day("2024-03-03"),
		End:   day("2024-03-05"),
	})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(result) != 6 {
		t.Fatalf("Expected 6 records, got %d", len(result))
	}
	if result[0].ProductID != "A" || result[3].ProductID != "B" {
		t.Errorf("Expected product-major order, got %s..%s", result[0].ProductID, result[3].ProductID)
	}
	if result[0].Quantity != 2 || result[2].Quantity != 4 {
		t.Errorf("Expected inclusive bounds, got %v..%v", result[0].Quantity, result[2].Quantity)
	}
}

func TestDemandStore_ListProducts(t *testing.T) {
	store := NewDemandStore()
	ctx := context.Background()

	_ = store.InsertBulk(ctx, []*domain.DemandRecord{
		{Date: day("2024-01-01"), ProductID: "zeta", Quantity: 1},
		{Date: day("2024-01-02"), ProductID: "alpha", Quantity: 1},
		{Date: day("2024-01-03"), ProductID: "zeta", Quantity: 1},
	})

	products, err := store.ListProducts(ctx)
	if err != nil {
		t.Fatalf("ListProducts failed: %v", err)
	}
	if len(products) != 2 || products[0] != "alpha" || products[1] != "zeta" {
		t.Errorf("Expected [alpha zeta], got %v", products)
	}
}

func TestDemandStore_Replace(t *testing.T) {
	store := NewDemandStore()
	ctx := context.Background()

	_ = store.InsertBulk(ctx, []*domain.DemandRecord{{Date: day("2024-01-01"), ProductID: "old", Quantity: 1}})

	if err := store.Replace(ctx, []*domain.DemandRecord{{Date: day("2024-01-01"), ProductID: "new", Quantity: 2}}); err != nil {
		t.Fatalf("Replace failed: %v", err)
	}

	products, _ := store.ListProducts(ctx)
	if len(products) != 1 || products[0] != "new" {
		t.Errorf("Expected [new], got %v", products)
	}
}

func TestDemandStore_ReturnsCopies(t *testing.T) {
	store := NewDemandStore()
	ctx := context.Background()

	_ = store.InsertBulk(ctx, []*domain.DemandRecord{{Date: day("2024-01-01"), ProductID: "A", Quantity: 1, Price: ptr(2.0)}})

	got, _ := store.GetByProduct(ctx, "A")
	got[0].Quantity = 99
	*got[0].Price = 99

	again, _ := store.GetByProduct(ctx, "A")
	if again[0].Quantity != 1 || *again[0].Price != 2 {
		t.Errorf("Stored record was mutated through a returned copy")
	}
}
