package ingest

import (
	"sort"

	"demand-forecast/internal/domain"
)

// SortOrders orders orders by (order_date ASC, order_id ASC).
func SortOrders(orders []*domain.Order) {
	sort.Slice(orders, func(i, j int) bool {
		return compareOrders(orders[i], orders[j]) < 0
	})
}

// SortRecords orders demand records by (product_id ASC, date ASC).
func SortRecords(records []*domain.DemandRecord) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].ProductID != records[j].ProductID {
			return records[i].ProductID < records[j].ProductID
		}
		return records[i].Date.Before(records[j].Date)
	})
}

// compareOrders returns:
//   - negative if a < b
//   - zero if a == b
//   - positive if a > b
func compareOrders(a, b *domain.Order) int {
	if !a.OrderDate.Equal(b.OrderDate) {
		if a.OrderDate.Before(b.OrderDate) {
			return -1
		}
		return 1
	}
	if a.OrderID != b.OrderID {
		if a.OrderID < b.OrderID {
			return -1
		}
		return 1
	}
	return 0
}
