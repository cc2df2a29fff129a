package querysync

import "errors"

var (
	// ErrClosed is returned by operations on a client after Close.
	ErrClosed = errors.New("querysync: client closed")

	// ErrInvalidResultType means a cached value does not have the type the
	// typed accessor asked for. Two queries sharing a key with different
	// result types trigger it.
	ErrInvalidResultType = errors.New("querysync: cached value has unexpected type")

	// ErrDisabled is returned by Fetch when the query is disabled and the
	// cache holds no data for the key.
	ErrDisabled = errors.New("querysync: query disabled")

	// ErrRemoved is returned by Subscription.Wait when the entry was dropped
	// by Remove or Collect while the client is still open.
	ErrRemoved = errors.New("querysync: entry removed")

	ErrNilFetch = errors.New("querysync: nil fetch function")
)
