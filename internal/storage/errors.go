package storage

import "errors"

// Storage errors for append-only stores.
var (
	// ErrDuplicateKey is returned when a batch repeats (date, product_id)
	// or collides with a stored row. Demand rows are never updated in place.
	ErrDuplicateKey = errors.New("duplicate key: append-only store does not allow updates")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
)
