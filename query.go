package querysync

import (
	"context"
	"fmt"
	"time"
)

// State is the typed view of a Result.
type State[T any] struct {
	Key       Key
	Status    Status
	Data      T
	HasData   bool
	Err       error
	UpdatedAt time.Time
	Stale     bool
	Fetching  bool
}

// Loading is true while the first fetch runs and nothing is cached yet.
func (s State[T]) Loading() bool {
	return s.Status == StatusPending && !s.HasData
}

func stateOf[T any](r Result) State[T] {
	st := State[T]{
		Key:       r.Key,
		Status:    r.Status,
		HasData:   r.HasData,
		Err:       r.Err,
		UpdatedAt: r.UpdatedAt,
		Stale:     r.Stale,
		Fetching:  r.Fetching,
	}
	if !r.HasData {
		return st
	}
	v, ok := r.Data.(T)
	if !ok {
		var zero T
		st.HasData = false
		st.Err = fmt.Errorf("%w: key %s holds %T, want %T", ErrInvalidResultType, r.Key, r.Data, zero)
		return st
	}
	st.Data = v
	return st
}

// Observer is a typed subscription.
type Observer[T any] struct {
	sub *Subscription
}

// Query subscribes to key with a typed fetcher. listener may be nil.
func Query[T any](ctx context.Context, c *Client, key Key, fetch func(context.Context) (T, error), listener func(State[T]), opts ...QueryOption) (*Observer[T], error) {
	if fetch == nil {
		return nil, ErrNilFetch
	}
	var l func(Result)
	if listener != nil {
		l = func(r Result) { listener(stateOf[T](r)) }
	}
	sub, err := c.Subscribe(ctx, key, erase(fetch), l, opts...)
	if err != nil {
		return nil, err
	}
	return &Observer[T]{sub: sub}, nil
}

func (o *Observer[T]) State() State[T] { return stateOf[T](o.sub.Result()) }

// Wait blocks until the query settles. A settled error is returned both in
// the state and as the error.
func (o *Observer[T]) Wait(ctx context.Context) (State[T], error) {
	r, err := o.sub.Wait(ctx)
	st := stateOf[T](r)
	if err != nil {
		return st, err
	}
	return st, st.Err
}

func (o *Observer[T]) Refetch() error { return o.sub.Refetch() }

func (o *Observer[T]) Unsubscribe() { o.sub.Unsubscribe() }

func (o *Observer[T]) Subscription() *Subscription { return o.sub }

// Fetch subscribes, waits for the settled value and unsubscribes. Fresh
// cached data is returned without a request.
func Fetch[T any](ctx context.Context, c *Client, key Key, fetch func(context.Context) (T, error), opts ...QueryOption) (T, error) {
	var zero T
	o, err := Query[T](ctx, c, key, fetch, nil, opts...)
	if err != nil {
		return zero, err
	}
	defer o.Unsubscribe()

	st, err := o.Wait(ctx)
	if err != nil {
		return zero, err
	}
	return st.Data, nil
}

func erase[T any](fetch func(context.Context) (T, error)) FetchFunc {
	return func(ctx context.Context) (any, error) {
		v, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		return v, nil
	}
}
