package querysync

import "context"

// Mutation describes a write against the backend and the cache entries it
// makes stale.
type Mutation[I, O any] struct {
	// Name labels the mutation in logs and hooks (e.g. "customer.update").
	Name string
	Do   func(ctx context.Context, in I) (O, error)

	// Invalidates lists patterns known up front; InvalidatesFor computes the
	// ones that depend on input or output (e.g. the item key of an id).
	Invalidates    []Pattern
	InvalidatesFor func(in I, out O) []Pattern

	// OnError replaces the default failure handling (a warn log plus
	// Hooks.MutationFailed).
	OnError func(ctx context.Context, in I, err error)
}

// Mutate runs m.Do once. On success every declared pattern is invalidated;
// the refetches run in the background and Mutate returns without waiting for
// them. On failure the cache is left untouched and the error is returned.
func Mutate[I, O any](ctx context.Context, c *Client, m Mutation[I, O], in I) (O, error) {
	out, err := m.Do(ctx, in)
	if err != nil {
		if m.OnError != nil {
			m.OnError(ctx, in, err)
		} else {
			c.hooks.MutationFailed(m.Name, err)
			c.log.Warn("mutation failed", Fields{"mutation": m.Name, "err": err})
		}
		return out, err
	}

	patterns := append([]Pattern(nil), m.Invalidates...)
	if m.InvalidatesFor != nil {
		patterns = append(patterns, m.InvalidatesFor(in, out)...)
	}
	n := c.Invalidate(context.WithoutCancel(ctx), patterns...)
	c.log.Debug("mutation applied", Fields{"mutation": m.Name, "patterns": len(patterns), "matched": n})
	return out, nil
}
