package querysync

import "time"

// Hooks are lightweight callbacks for cache lifecycle events.
// Implementations MUST be cheap and non-blocking: the client calls most of
// them while holding its entry lock. Wrap slow sinks with hooks/async.
type Hooks interface {
	// A network fetch was issued for key.
	// reason ∈ {"subscribe", "refetch", "invalidate"}
	FetchStarted(key string, gen uint64, reason string)

	// A fetch result was applied to its entry. err is nil on success.
	FetchSettled(key string, gen uint64, err error, took time.Duration)

	// A fetch finished after a newer generation took over and was dropped.
	ResultDiscarded(key string, gen uint64)

	// Invalidate matched entries for pattern.
	Invalidated(pattern string, matched int)

	// An unreferenced entry was dropped after its grace period.
	EntryCollected(key string)

	// A mutation failed; no invalidations were applied.
	MutationFailed(name string, err error)

	// The Persister failed. op ∈ {"restore", "generation", "persist", "invalidate"}
	PersistError(key, op string, err error)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) FetchStarted(string, uint64, string)               {}
func (NopHooks) FetchSettled(string, uint64, error, time.Duration) {}
func (NopHooks) ResultDiscarded(string, uint64)                    {}
func (NopHooks) Invalidated(string, int)                           {}
func (NopHooks) EntryCollected(string)                             {}
func (NopHooks) MutationFailed(string, error)                      {}
func (NopHooks) PersistError(string, string, error)                {}
