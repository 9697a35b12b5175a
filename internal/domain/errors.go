package domain

import (
	"errors"
	"fmt"
)

var (
	ErrOrderNotFound    = errors.New("order not found")
	ErrMenuItemNotFound = errors.New("menu item not found")
	ErrEmptyOrder       = errors.New("order must contain at least one item")
	ErrInvalidQuantity  = errors.New("item quantity must be at least 1")
	ErrInvalidDiscount  = errors.New("discount exceeds order amount")
	ErrInvalidRating    = errors.New("rating must be between 1 and 5")
	ErrOrderNotRated    = errors.New("order must be delivered before rating")
)

// InvalidTransitionError reports an attempted move outside the
// lifecycle adjacency table. The order is unchanged when it is returned.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition from %s to %s", e.From, e.To)
}

// ItemUnavailableError aborts order creation: the item is switched off
// or there is not enough stock for the requested quantity.
type ItemUnavailableError struct {
	MenuItemID int64
	Name       string
	Reason     string
}

func (e *ItemUnavailableError) Error() string {
	return fmt.Sprintf("item %q (id=%d) unavailable: %s", e.Name, e.MenuItemID, e.Reason)
}

// ConcurrencyConflictError signals a lost optimistic-version race on a
// read-modify-write. The caller retries the whole operation.
type ConcurrencyConflictError struct {
	OrderID int64
}

func (e *ConcurrencyConflictError) Error() string {
	return fmt.Sprintf("concurrent modification of order %d", e.OrderID)
}

// AggregateUpdateError wraps a failed stats or rollup write. It is
// non-fatal: the order transition has already committed and the failure
// is queued for repair under its idempotency key.
type AggregateUpdateError struct {
	Key string
	Err error
}

func (e *AggregateUpdateError) Error() string {
	return fmt.Sprintf("aggregate update %s failed: %v", e.Key, e.Err)
}

func (e *AggregateUpdateError) Unwrap() error {
	return e.Err
}
