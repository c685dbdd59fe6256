package domain

import "time"

// Contextual column names carried alongside demand.
const (
	ContextEventCount   = "event_count"
	ContextActiveUsers  = "active_users"
	ContextPrice        = "price"
	ContextCategoryCode = "product_category_encoded"
)

// DemandRecord is one aggregated warehouse row: demand for one product on one day
// plus the nullable side-channel columns observed for that day.
// Corresponds to daily_demand table in ClickHouse/PostgreSQL.
type DemandRecord struct {
	Date        time.Time // calendar day, UTC midnight
	ProductID   string    // product identifier (SKU)
	Quantity    float64   // total demand for the day
	EventCount  *float64  // traffic events for the product, NULL if unknown
	ActiveUsers *float64  // active users on the day, NULL if unknown
	Price       *float64  // list price, NULL if unknown
}

// DemandPoint is one observed demand quantity for one product on one day.
type DemandPoint struct {
	Date      time.Time
	ProductID string
	Quantity  float64
}

// ContextRow holds numeric side-channel values aligned to a DemandPoint.
// Only observed (non-NULL) columns are present in Values.
type ContextRow struct {
	Date      time.Time
	ProductID string
	Values    map[string]float64
}

// Point projects the record onto its demand observation.
func (r *DemandRecord) Point() DemandPoint {
	return DemandPoint{Date: r.Date, ProductID: r.ProductID, Quantity: r.Quantity}
}

// Context projects the record onto its contextual values.
func (r *DemandRecord) Context() ContextRow {
	values := make(map[string]float64, 3)
	if r.EventCount != nil {
		values[ContextEventCount] = *r.EventCount
	}
	if r.ActiveUsers != nil {
		values[ContextActiveUsers] = *r.ActiveUsers
	}
	if r.Price != nil {
		values[ContextPrice] = *r.Price
	}
	return ContextRow{Date: r.Date, ProductID: r.ProductID, Values: values}
}

// HistoryQuery filters a history fetch. Zero values mean "unbounded".
type HistoryQuery struct {
	Start     time.Time // inclusive
	End       time.Time // inclusive
	ProductID string
}

// Matches reports whether the record falls inside the query.
func (q HistoryQuery) Matches(r *DemandRecord) bool {
	if q.ProductID != "" && r.ProductID != q.ProductID {
		return false
	}
	if !q.Start.IsZero() && r.Date.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Date.After(q.End) {
		return false
	}
	return true
}

// Day truncates t to UTC midnight.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DateLayout is the ISO-8601 calendar date layout used on the wire.
const DateLayout = "2006-01-02"
