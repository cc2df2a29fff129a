// Package snapshot persists query results so that a restarted process (or a
// sibling process sharing Redis) starts with warm data.
//
// A Store[V] keeps the snapshots of one query namespace. Every snapshot is
// framed with the namespace generation observed before the fetch that
// produced it; invalidating the namespace bumps the generation and every
// older snapshot fails validation on read and is deleted.
//
// A Registry routes querysync.Persister calls to the store registered for a
// key's namespace. Namespaces without a store are simply not persisted.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/thomasjacksonsantos/querysync"
	"github.com/thomasjacksonsantos/querysync/codec"
	"github.com/thomasjacksonsantos/querysync/genstore"
	"github.com/thomasjacksonsantos/querysync/internal/keys"
	"github.com/thomasjacksonsantos/querysync/internal/wire"
	"github.com/thomasjacksonsantos/querysync/provider"
)

const defaultTTL = 24 * time.Hour

// CostFunc returns the admission cost of a framed snapshot (ristretto).
type CostFunc func(storageKey string, framed []byte) int64

type Options[V any] struct {
	Namespace string            // required; the querysync key namespace
	Provider  provider.Provider // required
	Codec     codec.Codec[V]    // required

	// GenStore holds namespace generations. nil => a private LocalGenStore,
	// which is only correct when Provider is in-process too.
	GenStore genstore.GenStore
	// TTL bounds snapshot lifetime in the provider. 0 => 24h.
	TTL time.Duration
	// Cost defaults to the framed size in bytes.
	Cost CostFunc
	// SharedProvider leaves Provider open on Close; set it when several
	// stores use one provider and close the provider yourself.
	SharedProvider bool

	Logger querysync.Logger // nil => NopLogger
	Clock  func() time.Time // nil => time.Now
}

// Store is a generation-checked snapshot store for one namespace.
type Store[V any] struct {
	ns       string
	provider provider.Provider
	codec    codec.Codec[V]
	gens     genstore.GenStore
	ownGens  bool
	ownProv  bool
	ttl      time.Duration
	cost     CostFunc
	log      querysync.Logger
	now      func() time.Time

	closeOnce sync.Once
}

func New[V any](opts Options[V]) (*Store[V], error) {
	if opts.Namespace == "" {
		return nil, errors.New("snapshot: namespace is required")
	}
	if opts.Provider == nil {
		return nil, errors.New("snapshot: provider is required")
	}
	if opts.Codec == nil {
		return nil, errors.New("snapshot: codec is required")
	}
	if opts.TTL < 0 {
		return nil, fmt.Errorf("snapshot: negative TTL %s", opts.TTL)
	}

	s := &Store[V]{
		ns:       opts.Namespace,
		provider: opts.Provider,
		codec:    opts.Codec,
		gens:     opts.GenStore,
		ttl:      opts.TTL,
		cost:     opts.Cost,
		log:      opts.Logger,
		now:      opts.Clock,
		ownProv:  !opts.SharedProvider,
	}
	if s.gens == nil {
		s.gens = genstore.NewLocalGenStore(0, 0)
		s.ownGens = true
	}
	if s.ttl == 0 {
		s.ttl = defaultTTL
	}
	if s.cost == nil {
		s.cost = func(_ string, framed []byte) int64 { return int64(len(framed)) }
	}
	if s.log == nil {
		s.log = querysync.NopLogger{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

func (s *Store[V]) Namespace() string { return s.ns }

// Generation returns the current namespace generation. Callers take it
// before fetching and hand it to SetWithGen.
func (s *Store[V]) Generation(ctx context.Context) (uint64, error) {
	return s.gens.Current(ctx, s.ns)
}

// Get returns the snapshot stored for canonical key. Corrupt, undecodable
// and outdated snapshots are deleted and reported as a miss.
func (s *Store[V]) Get(ctx context.Context, canonical string) (V, time.Time, bool, error) {
	var zero V
	k := keys.Storage(s.ns, canonical)
	raw, ok, err := s.provider.Get(ctx, k)
	if err != nil || !ok {
		return zero, time.Time{}, false, err
	}
	f, err := wire.Decode(raw)
	if err != nil {
		s.log.Warn("dropping corrupt snapshot", querysync.Fields{"key": canonical, "err": err})
		_ = s.provider.Del(ctx, k)
		return zero, time.Time{}, false, nil
	}
	gen, err := s.gens.Current(ctx, s.ns)
	if err != nil {
		return zero, time.Time{}, false, err
	}
	if f.Gen != gen {
		_ = s.provider.Del(ctx, k)
		return zero, time.Time{}, false, nil
	}
	v, err := s.codec.Decode(f.Payload)
	if err != nil {
		s.log.Warn("dropping undecodable snapshot", querysync.Fields{"key": canonical, "err": err})
		_ = s.provider.Del(ctx, k)
		return zero, time.Time{}, false, nil
	}
	return v, f.StoredAt, true, nil
}

// SetWithGen stores value unless the namespace generation moved past
// observedGen, in which case the write is skipped (not an error): the value
// was fetched before an invalidation and must not outlive it.
func (s *Store[V]) SetWithGen(ctx context.Context, canonical string, value V, observedGen uint64) error {
	gen, err := s.gens.Current(ctx, s.ns)
	if err != nil {
		return err
	}
	if gen != observedGen {
		s.log.Debug("snapshot write skipped (gen mismatch)", querysync.Fields{"key": canonical, "obs": observedGen, "cur": gen})
		return nil
	}
	payload, err := s.codec.Encode(value)
	if err != nil {
		return fmt.Errorf("snapshot: encode %s: %w", canonical, err)
	}
	k := keys.Storage(s.ns, canonical)
	framed := wire.Encode(observedGen, s.now(), payload)
	ok, err := s.provider.Set(ctx, k, framed, s.cost(k, framed), s.ttl)
	if err != nil {
		return err
	}
	if !ok {
		s.log.Debug("snapshot rejected by provider (pressure)", querysync.Fields{"key": canonical})
	}
	return nil
}

// Invalidate bumps the namespace generation and deletes the snapshots of the
// given canonical keys right away. Keys not listed become unreadable through
// the generation check.
func (s *Store[V]) Invalidate(ctx context.Context, canonical ...string) error {
	gen, bumpErr := s.gens.Bump(ctx, s.ns)
	var delErr error
	for _, c := range canonical {
		if err := s.provider.Del(ctx, keys.Storage(s.ns, c)); err != nil {
			delErr = errors.Join(delErr, err)
		}
	}
	if bumpErr != nil || delErr != nil {
		return &InvalidateError{Namespace: s.ns, BumpErr: bumpErr, DelErr: delErr}
	}
	s.log.Debug("invalidated snapshot namespace", querysync.Fields{"namespace": s.ns, "newGen": gen})
	return nil
}

// Close closes what the store owns: the provider unless shared, and the
// generation store it created. Repeated calls are no-ops.
func (s *Store[V]) Close(ctx context.Context) error {
	var err error
	s.closeOnce.Do(func() {
		if s.ownProv {
			err = s.provider.Close(ctx)
		}
		if s.ownGens {
			err = errors.Join(err, s.gens.Close(ctx))
		}
	})
	return err
}
