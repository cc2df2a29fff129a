package snapshot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/thomasjacksonsantos/querysync"
)

type binding interface {
	restore(ctx context.Context, canonical string) (any, time.Time, bool, error)
	generation(ctx context.Context) (uint64, error)
	persist(ctx context.Context, canonical string, data any, observedGen uint64) error
	invalidate(ctx context.Context, canonical string) error
	close(ctx context.Context) error
}

type typed[V any] struct{ s *Store[V] }

func (b typed[V]) restore(ctx context.Context, canonical string) (any, time.Time, bool, error) {
	v, at, ok, err := b.s.Get(ctx, canonical)
	if !ok || err != nil {
		return nil, time.Time{}, false, err
	}
	return v, at, true, nil
}

func (b typed[V]) generation(ctx context.Context) (uint64, error) { return b.s.Generation(ctx) }

func (b typed[V]) persist(ctx context.Context, canonical string, data any, observedGen uint64) error {
	v, ok := data.(V)
	if !ok {
		return fmt.Errorf("%w: %s holds %T", ErrTypeMismatch, canonical, data)
	}
	return b.s.SetWithGen(ctx, canonical, v, observedGen)
}

func (b typed[V]) invalidate(ctx context.Context, canonical string) error {
	return b.s.Invalidate(ctx, canonical)
}

func (b typed[V]) close(ctx context.Context) error { return b.s.Close(ctx) }

// Registry implements querysync.Persister over one Store per namespace.
type Registry struct {
	stores  *xsync.MapOf[string, binding]
	closers []func(context.Context) error
}

var _ querysync.Persister = (*Registry)(nil)

func NewRegistry() *Registry {
	return &Registry{stores: xsync.NewMapOf[string, binding]()}
}

// Register adds s under its namespace. A namespace is registered once.
func Register[V any](r *Registry, s *Store[V]) error {
	if _, loaded := r.stores.LoadOrStore(s.Namespace(), typed[V]{s: s}); loaded {
		return fmt.Errorf("snapshot: namespace %q already registered", s.Namespace())
	}
	return nil
}

// OnClose schedules fn to run after the stores closed, e.g. a provider or
// generation store shared between stores. Not safe to call concurrently
// with Close.
func (r *Registry) OnClose(fn func(context.Context) error) {
	r.closers = append(r.closers, fn)
}

// Namespaces lists registered namespaces.
func (r *Registry) Namespaces() []string {
	out := make([]string, 0, r.stores.Size())
	r.stores.Range(func(ns string, _ binding) bool {
		out = append(out, ns)
		return true
	})
	return out
}

func (r *Registry) Restore(ctx context.Context, key querysync.Key) (any, time.Time, bool, error) {
	b, ok := r.stores.Load(key.Namespace)
	if !ok {
		return nil, time.Time{}, false, nil
	}
	return b.restore(ctx, key.String())
}

func (r *Registry) Generation(ctx context.Context, key querysync.Key) (uint64, error) {
	b, ok := r.stores.Load(key.Namespace)
	if !ok {
		return 0, nil
	}
	return b.generation(ctx)
}

func (r *Registry) Persist(ctx context.Context, key querysync.Key, data any, observedGen uint64) error {
	b, ok := r.stores.Load(key.Namespace)
	if !ok {
		return nil
	}
	return b.persist(ctx, key.String(), data, observedGen)
}

// Invalidate bumps the generation of the pattern's namespace. When the
// pattern names a full key its snapshot is also deleted right away.
func (r *Registry) Invalidate(ctx context.Context, p querysync.Pattern) error {
	b, ok := r.stores.Load(p.Namespace)
	if !ok {
		return nil
	}
	return b.invalidate(ctx, p.String())
}

func (r *Registry) Close(ctx context.Context) error {
	var errs []error
	r.stores.Range(func(_ string, b binding) bool {
		errs = append(errs, b.close(ctx))
		return true
	})
	for _, fn := range r.closers {
		errs = append(errs, fn(ctx))
	}
	return errors.Join(errs...)
}

// Lookup returns a registered store, for tooling that reads snapshots
// outside a querysync client.
func Lookup[V any](r *Registry, namespace string) (*Store[V], error) {
	b, ok := r.stores.Load(namespace)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownNamespace, namespace)
	}
	t, ok := b.(typed[V])
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTypeMismatch, namespace)
	}
	return t.s, nil
}
