// Package resource is the generic REST resource client. One Client[T] per
// entity type covers list, get, create, update, delete, activate and
// deactivate, binds the reads to the querysync cache and declares what each
// write invalidates.
package resource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/thomasjacksonsantos/querysync"
	"github.com/thomasjacksonsantos/querysync/transport"
)

// Definition binds an entity type to its endpoints and cache namespaces.
type Definition struct {
	// Name labels the resource in errors, logs and mutation names.
	Name          string
	ListNamespace string
	ItemNamespace string
	// Path is the collection path, e.g. "/customers". Items live at
	// Path/{id}.
	Path string
	// ActivatePath and DeactivatePath are appended to the item path.
	// Default "activate" / "deactivate".
	ActivatePath   string
	DeactivatePath string
	// UpdateMethod is PUT unless set (some endpoints take PATCH).
	UpdateMethod string
	// SearchPageSize bounds UseSearch results. 0 => 20
	SearchPageSize int
}

func (d Definition) validate() error {
	var missing []string
	if d.Name == "" {
		missing = append(missing, "Name")
	}
	if d.ListNamespace == "" {
		missing = append(missing, "ListNamespace")
	}
	if d.ItemNamespace == "" {
		missing = append(missing, "ItemNamespace")
	}
	if d.Path == "" {
		missing = append(missing, "Path")
	}
	if len(missing) > 0 {
		return fmt.Errorf("resource: definition %q missing %s", d.Name, strings.Join(missing, ", "))
	}
	if d.ListNamespace == d.ItemNamespace {
		return fmt.Errorf("resource: definition %q uses one namespace for list and item", d.Name)
	}
	return nil
}

// ListParams select a page. Zero Page and PageSize are sent as is; the
// backend applies its own defaults.
type ListParams struct {
	Page     int
	PageSize int
	Search   string
	Filters  map[string]string
}

func (p ListParams) query() string {
	q := url.Values{}
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	if p.PageSize > 0 {
		q.Set("pageSize", strconv.Itoa(p.PageSize))
	}
	if p.Search != "" {
		q.Set("search", p.Search)
	}
	for k, v := range p.Filters {
		q.Set(k, v)
	}
	return q.Encode()
}

func (p ListParams) params() querysync.P {
	out := querysync.P{"page": p.Page, "pageSize": p.PageSize}
	if p.Search != "" {
		out["search"] = p.Search
	}
	if len(p.Filters) > 0 {
		f := make(map[string]any, len(p.Filters))
		for k, v := range p.Filters {
			f[k] = v
		}
		out["filters"] = f
	}
	return out
}

type Option func(*options)

type options struct {
	query []querysync.QueryOption
}

// WithQueryOptions applies opts to every query issued by the client's
// Use* hooks, ahead of per-call options.
func WithQueryOptions(opts ...querysync.QueryOption) Option {
	return func(o *options) { o.query = append(o.query, opts...) }
}

// Client is the typed client of one resource.
type Client[T any] struct {
	doer transport.Doer
	sync *querysync.Client
	def  Definition
	opts options
}

// New builds a client. sync may be nil when only the plain operations are
// used; the Use* hooks and *AndSync helpers then fail with ErrNoSync.
func New[T any](doer transport.Doer, sync *querysync.Client, def Definition, opts ...Option) (*Client[T], error) {
	if doer == nil {
		return nil, errors.New("resource: nil Doer")
	}
	if err := def.validate(); err != nil {
		return nil, err
	}
	if def.ActivatePath == "" {
		def.ActivatePath = "activate"
	}
	if def.DeactivatePath == "" {
		def.DeactivatePath = "deactivate"
	}
	if def.UpdateMethod == "" {
		def.UpdateMethod = http.MethodPut
	}
	if def.SearchPageSize <= 0 {
		def.SearchPageSize = 20
	}
	c := &Client[T]{doer: doer, sync: sync, def: def}
	for _, o := range opts {
		o(&c.opts)
	}
	return c, nil
}

// MustNew is New for package-level wiring with static definitions.
func MustNew[T any](doer transport.Doer, sync *querysync.Client, def Definition, opts ...Option) *Client[T] {
	c, err := New[T](doer, sync, def, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Client[T]) Definition() Definition { return c.def }

// ListKey is the cache key of one list page.
func (c *Client[T]) ListKey(p ListParams) querysync.Key {
	return querysync.K(c.def.ListNamespace, p.params())
}

// ItemKey is the cache key of one item.
func (c *Client[T]) ItemKey(id string) querysync.Key {
	return querysync.K(c.def.ItemNamespace, querysync.P{"id": id})
}

// ListPattern matches every list page, whatever its parameters.
func (c *Client[T]) ListPattern() querysync.Pattern { return querysync.Match(c.def.ListNamespace) }

// ItemPattern matches the item id.
func (c *Client[T]) ItemPattern(id string) querysync.Pattern {
	return querysync.Match(c.def.ItemNamespace, querysync.P{"id": id})
}

func (c *Client[T]) List(ctx context.Context, p ListParams) (Paged[T], error) {
	path := c.def.Path
	if q := p.query(); q != "" {
		path += "?" + q
	}
	var raw json.RawMessage
	if err := c.doer.Do(ctx, http.MethodGet, path, nil, &raw); err != nil {
		return Paged[T]{}, err
	}
	return unwrap[Paged[T]](c.def.Name, "list", raw)
}

func (c *Client[T]) Get(ctx context.Context, id string) (T, error) {
	var zero T
	if id == "" {
		return zero, ErrEmptyID
	}
	var raw json.RawMessage
	if err := c.doer.Do(ctx, http.MethodGet, c.itemPath(id), nil, &raw); err != nil {
		return zero, err
	}
	return unwrap[T](c.def.Name, "get", raw)
}

func (c *Client[T]) Create(ctx context.Context, v T) (T, error) {
	var zero T
	if err := validate(c.def.Name, &v); err != nil {
		return zero, err
	}
	var raw json.RawMessage
	if err := c.doer.Do(ctx, http.MethodPost, c.def.Path, v, &raw); err != nil {
		return zero, err
	}
	return unwrap[T](c.def.Name, "create", raw)
}

func (c *Client[T]) Update(ctx context.Context, id string, v T) (T, error) {
	var zero T
	if id == "" {
		return zero, ErrEmptyID
	}
	if err := validate(c.def.Name, &v); err != nil {
		return zero, err
	}
	var raw json.RawMessage
	if err := c.doer.Do(ctx, c.def.UpdateMethod, c.itemPath(id), v, &raw); err != nil {
		return zero, err
	}
	return unwrap[T](c.def.Name, "update", raw)
}

func (c *Client[T]) Delete(ctx context.Context, id string) error {
	return c.command(ctx, "delete", http.MethodDelete, id, "")
}

func (c *Client[T]) Activate(ctx context.Context, id string) error {
	return c.command(ctx, "activate", http.MethodPatch, id, c.def.ActivatePath)
}

func (c *Client[T]) Deactivate(ctx context.Context, id string) error {
	return c.command(ctx, "deactivate", http.MethodPatch, id, c.def.DeactivatePath)
}

func (c *Client[T]) command(ctx context.Context, op, method, id, suffix string) error {
	if id == "" {
		return ErrEmptyID
	}
	path := c.itemPath(id)
	if suffix != "" {
		path += "/" + strings.TrimLeft(suffix, "/")
	}
	var raw json.RawMessage
	if err := c.doer.Do(ctx, method, path, nil, &raw); err != nil {
		return err
	}
	_, err := unwrap[json.RawMessage](c.def.Name, op, raw)
	return err
}

func (c *Client[T]) itemPath(id string) string {
	return strings.TrimRight(c.def.Path, "/") + "/" + url.PathEscape(id)
}
