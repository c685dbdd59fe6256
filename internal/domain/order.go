package domain

import "time"

// Order is one raw order row. Each listed product counts as one unit of demand.
type Order struct {
	OrderID    string
	UserID     string
	OrderDate  time.Time
	Status     string
	Revenue    float64
	ProductIDs []string
}

// ProductEvent is one traffic event (view, add-to-cart, ...) for a product.
type ProductEvent struct {
	Timestamp time.Time
	ProductID string
}

// UserSignup marks a user's creation time; users created on a day count
// as that day's active users.
type UserSignup struct {
	UserID    string
	CreatedAt time.Time
}
