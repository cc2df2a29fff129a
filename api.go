package querysync

import (
	"context"
	"time"
)

// FetchFunc reads a value from the source of truth (usually a resource
// client call through the transport).
type FetchFunc func(ctx context.Context) (any, error)

// Status is the lifecycle state of a cache entry.
type Status int

const (
	StatusIdle Status = iota
	StatusPending
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusPending:
		return "pending"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Result is an immutable view of an entry at one point in time.
//
// Data survives failed refetches: Status == StatusError with HasData == true
// means "stale data plus an error banner".
type Result struct {
	Key       Key
	Status    Status
	Data      any
	HasData   bool
	Err       error
	UpdatedAt time.Time
	// Stale is true after an invalidation, or once the client StaleTime has
	// elapsed since UpdatedAt.
	Stale bool
	// Fetching is true while a request for the key is in flight, including
	// background refetches of entries that already hold data.
	Fetching bool
	// Version increases on every change of the entry.
	Version uint64
}

// Persister is an optional second-level store used to warm new entries and
// to keep query results across process restarts. See package snapshot.
//
// Persist must be CAS-safe: write only when the generation observed before
// the fetch (Generation) is still current.
type Persister interface {
	Restore(ctx context.Context, key Key) (data any, storedAt time.Time, ok bool, err error)
	Generation(ctx context.Context, key Key) (uint64, error)
	Persist(ctx context.Context, key Key, data any, observedGen uint64) error
	Invalidate(ctx context.Context, p Pattern) error
	Close(ctx context.Context) error
}

// Options tune the client. All fields are optional.
type Options struct {
	Logger Logger // if nil, NopLogger is used
	Hooks  Hooks  // if nil, NopHooks is used

	// StaleTime is how long fetched data counts as fresh. A new subscription
	// to a fresh entry is served from cache without a fetch. 0 => data is
	// stale as soon as it lands, new subscribers always refetch.
	StaleTime time.Duration
	// GCTime is the grace period an entry without subscribers is kept. 0 => 5m
	GCTime time.Duration
	// GCInterval is how often unreferenced entries are swept. 0 => 1m
	GCInterval time.Duration

	Persister Persister        // nil => no persistence
	Clock     func() time.Time // nil => time.Now
}

type queryConfig struct {
	enabled      bool
	staleTime    time.Duration
	hasStaleTime bool
}

// QueryOption configures one subscription.
type QueryOption func(*queryConfig)

// Enabled gates fetching. A disabled subscription never issues a fetch by
// itself (e.g. an empty search term) and does not count as active for
// invalidation refetches.
func Enabled(enabled bool) QueryOption {
	return func(c *queryConfig) { c.enabled = enabled }
}

// WithStaleTime overrides Options.StaleTime for one subscription.
func WithStaleTime(d time.Duration) QueryOption {
	return func(c *queryConfig) {
		c.staleTime = d
		c.hasStaleTime = true
	}
}
