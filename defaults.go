package querysync

import "time"

const (
	defaultGCTime     = 5 * time.Minute
	defaultGCInterval = time.Minute
)

// fetch reasons reported to Hooks.FetchStarted
const (
	reasonSubscribe  = "subscribe"
	reasonRefetch    = "refetch"
	reasonInvalidate = "invalidate"
)

// coalesce returns def when v is the zero value of T - otherwise v.
func coalesce[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}
