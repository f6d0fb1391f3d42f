package repositories

import "errors"

// Sentinel errors wrapped by every repository implementation so callers can
// match with errors.Is regardless of the backing store.
var (
	// ErrNotFound is wrapped when a record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrInsufficientStock is wrapped when a conditional stock decrement is
	// rejected because the available stock is below the requested quantity.
	ErrInsufficientStock = errors.New("insufficient stock")
)
