// Package genstore keeps the generation counters that guard persisted query
// snapshots. A generation belongs to a query namespace ("customers",
// "customer", ...); invalidating any key of a namespace bumps it, which makes
// every snapshot written under an older generation unreadable.
package genstore

import (
	"context"
	"time"
)

// GenStore abstracts where generations live.
// Use LocalGenStore for a single process, or RedisGenStore to share
// generations between processes and across restarts.
type GenStore interface {
	// Current returns the generation of namespace; missing => 0.
	Current(ctx context.Context, namespace string) (uint64, error)
	// CurrentMany returns gens for many namespaces; missing => 0.
	CurrentMany(ctx context.Context, namespaces []string) (map[string]uint64, error)
	// Bump atomically increments and returns the new generation.
	Bump(ctx context.Context, namespace string) (uint64, error)
	// Cleanup prunes old metadata if applicable (no-op for Redis).
	Cleanup(retention time.Duration)
	// Close releases resources (no-op ok).
	Close(context.Context) error
}
