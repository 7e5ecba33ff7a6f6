package orderbook

import "errors"

var (
	ErrInvalidOrder = errors.New("invalid order")
	ErrDuplicateID  = errors.New("duplicate order id")
	ErrNotFound     = errors.New("order not found")
	ErrNotOwner     = errors.New("order belongs to another owner")
	// ErrStorage is returned together with a valid Result: the book changed
	// in memory but the snapshot could not be written.
	ErrStorage = errors.New("order book persisted state is stale")

	errBookNotEmpty = errors.New("order book already initialized")
)
