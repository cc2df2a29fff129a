package resource

import (
	"context"
	"errors"

	"github.com/thomasjacksonsantos/querysync"
)

// ErrNoSync is returned by the cache-bound helpers of a client built
// without a querysync client.
var ErrNoSync = errors.New("resource: client has no querysync client")

// UseList subscribes to one list page. fn may be nil.
func (c *Client[T]) UseList(ctx context.Context, p ListParams, fn func(querysync.State[Paged[T]]), opts ...querysync.QueryOption) (*querysync.Observer[Paged[T]], error) {
	if c.sync == nil {
		return nil, ErrNoSync
	}
	return querysync.Query(ctx, c.sync, c.ListKey(p),
		func(ctx context.Context) (Paged[T], error) { return c.List(ctx, p) },
		fn, c.queryOpts(opts)...)
}

// UseGet subscribes to one item. The query is disabled while id is empty.
func (c *Client[T]) UseGet(ctx context.Context, id string, fn func(querysync.State[T]), opts ...querysync.QueryOption) (*querysync.Observer[T], error) {
	if c.sync == nil {
		return nil, ErrNoSync
	}
	opts = c.queryOpts(opts)
	if id == "" {
		opts = append(opts, querysync.Enabled(false))
	}
	return querysync.Query(ctx, c.sync, c.ItemKey(id),
		func(ctx context.Context) (T, error) { return c.Get(ctx, id) },
		fn, opts...)
}

// UseSearch subscribes to the first page of a search. The query is disabled
// while term is empty. Results share the list namespace, so every list
// invalidation also refreshes open searches.
func (c *Client[T]) UseSearch(ctx context.Context, term string, fn func(querysync.State[Paged[T]]), opts ...querysync.QueryOption) (*querysync.Observer[Paged[T]], error) {
	if c.sync == nil {
		return nil, ErrNoSync
	}
	p := ListParams{Page: 1, PageSize: c.def.SearchPageSize, Search: term}
	opts = c.queryOpts(opts)
	if term == "" {
		opts = append(opts, querysync.Enabled(false))
	}
	return querysync.Query(ctx, c.sync, c.ListKey(p),
		func(ctx context.Context) (Paged[T], error) { return c.List(ctx, p) },
		fn, opts...)
}

func (c *Client[T]) queryOpts(extra []querysync.QueryOption) []querysync.QueryOption {
	out := make([]querysync.QueryOption, 0, len(c.opts.query)+len(extra)+1)
	out = append(out, c.opts.query...)
	return append(out, extra...)
}

// Change is the input of an update.
type Change[T any] struct {
	ID    string
	Value T
}

// CreateMutation invalidates the list namespace only; no item key exists
// yet for the new record.
func (c *Client[T]) CreateMutation() querysync.Mutation[T, T] {
	return querysync.Mutation[T, T]{
		Name:        c.def.Name + ".create",
		Do:          c.Create,
		Invalidates: []querysync.Pattern{c.ListPattern()},
	}
}

func (c *Client[T]) UpdateMutation() querysync.Mutation[Change[T], T] {
	return querysync.Mutation[Change[T], T]{
		Name: c.def.Name + ".update",
		Do: func(ctx context.Context, in Change[T]) (T, error) {
			return c.Update(ctx, in.ID, in.Value)
		},
		Invalidates: []querysync.Pattern{c.ListPattern()},
		InvalidatesFor: func(in Change[T], _ T) []querysync.Pattern {
			return []querysync.Pattern{c.ItemPattern(in.ID)}
		},
	}
}

func (c *Client[T]) DeleteMutation() querysync.Mutation[string, struct{}] {
	return c.idMutation("delete", c.Delete)
}

func (c *Client[T]) ActivateMutation() querysync.Mutation[string, struct{}] {
	return c.idMutation("activate", c.Activate)
}

func (c *Client[T]) DeactivateMutation() querysync.Mutation[string, struct{}] {
	return c.idMutation("deactivate", c.Deactivate)
}

func (c *Client[T]) idMutation(op string, do func(context.Context, string) error) querysync.Mutation[string, struct{}] {
	return querysync.Mutation[string, struct{}]{
		Name: c.def.Name + "." + op,
		Do: func(ctx context.Context, id string) (struct{}, error) {
			return struct{}{}, do(ctx, id)
		},
		Invalidates: []querysync.Pattern{c.ListPattern()},
		InvalidatesFor: func(id string, _ struct{}) []querysync.Pattern {
			return []querysync.Pattern{c.ItemPattern(id)}
		},
	}
}

func (c *Client[T]) CreateAndSync(ctx context.Context, v T) (T, error) {
	if c.sync == nil {
		var zero T
		return zero, ErrNoSync
	}
	return querysync.Mutate(ctx, c.sync, c.CreateMutation(), v)
}

func (c *Client[T]) UpdateAndSync(ctx context.Context, id string, v T) (T, error) {
	if c.sync == nil {
		var zero T
		return zero, ErrNoSync
	}
	return querysync.Mutate(ctx, c.sync, c.UpdateMutation(), Change[T]{ID: id, Value: v})
}

func (c *Client[T]) DeleteAndSync(ctx context.Context, id string) error {
	return c.runID(ctx, c.DeleteMutation(), id)
}

func (c *Client[T]) ActivateAndSync(ctx context.Context, id string) error {
	return c.runID(ctx, c.ActivateMutation(), id)
}

func (c *Client[T]) DeactivateAndSync(ctx context.Context, id string) error {
	return c.runID(ctx, c.DeactivateMutation(), id)
}

func (c *Client[T]) runID(ctx context.Context, m querysync.Mutation[string, struct{}], id string) error {
	if c.sync == nil {
		return ErrNoSync
	}
	_, err := querysync.Mutate(ctx, c.sync, m, id)
	return err
}
