package ingest

import (
	"strings"
	"time"

	"demand-forecast/internal/domain"
)

type dayProduct struct {
	day       time.Time
	productID string
}

// AggregateOrders explodes every order's product list and counts occurrences
// per (calendar day, product). Product ids are trimmed; blank entries are skipped.
// Output is sorted by (product_id, date).
func AggregateOrders(orders []*domain.Order) []*domain.DemandRecord {
	if len(orders) == 0 {
		return nil
	}

	buckets := make(map[dayProduct]*domain.DemandRecord)
	var result []*domain.DemandRecord

	for _, o := range orders {
		day := domain.Day(o.OrderDate)
		for _, raw := range o.ProductIDs {
			id := strings.TrimSpace(raw)
			if id == "" {
				continue
			}
			key := dayProduct{day: day, productID: id}
			rec, ok := buckets[key]
			if !ok {
				rec = &domain.DemandRecord{Date: day, ProductID: id}
				buckets[key] = rec
				result = append(result, rec)
			}
			rec.Quantity++
		}
	}

	SortRecords(result)
	return result
}

// Context holds the side-channel inputs joined onto aggregated demand.
type Context struct {
	Events []domain.ProductEvent
	Users  []domain.UserSignup
	// Prices is the product catalog list price.
	Prices map[string]float64
}

// Enrich fills the contextual columns of records in place.
//
// event_count is the number of product events that day and active_users the
// number of distinct users created that day; both are 0 when nothing was
// observed. price comes from the catalog and stays NULL for unlisted products.
// A nil field of c leaves the matching column untouched.
func Enrich(records []*domain.DemandRecord, c Context) {
	var events map[dayProduct]float64
	if c.Events != nil {
		events = make(map[dayProduct]float64)
		for _, e := range c.Events {
			events[dayProduct{day: domain.Day(e.Timestamp), productID: strings.TrimSpace(e.ProductID)}]++
		}
	}

	var users map[time.Time]float64
	if c.Users != nil {
		seen := make(map[time.Time]map[string]bool)
		for _, u := range c.Users {
			day := domain.Day(u.CreatedAt)
			if seen[day] == nil {
				seen[day] = make(map[string]bool)
			}
			seen[day][u.UserID] = true
		}
		users = make(map[time.Time]float64, len(seen))
		for day, ids := range seen {
			users[day] = float64(len(ids))
		}
	}

	for _, r := range records {
		if events != nil {
			v := events[dayProduct{day: r.Date, productID: r.ProductID}]
			r.EventCount = &v
		}
		if users != nil {
			v := users[r.Date]
			r.ActiveUsers = &v
		}
		if c.Prices != nil {
			if p, ok := c.Prices[r.ProductID]; ok {
				v := p
				r.Price = &v
			}
		}
	}
}
