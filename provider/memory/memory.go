// Package memory is a map-backed provider with per-entry TTL. It suits tests
// and single-process tools such as the CLI.
package memory

import (
	"context"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	pr "github.com/thomasjacksonsantos/querysync/provider"
)

type item struct {
	v   []byte
	exp time.Time // zero => no TTL
}

type Provider struct {
	m   *xsync.MapOf[string, item]
	now func() time.Time
}

var _ pr.Provider = (*Provider)(nil)

// New returns an empty provider. now may be nil (time.Now).
func New(now func() time.Time) *Provider {
	if now == nil {
		now = time.Now
	}
	return &Provider{m: xsync.NewMapOf[string, item](), now: now}
}

func (p *Provider) Get(_ context.Context, key string) ([]byte, bool, error) {
	it, ok := p.m.Load(key)
	if !ok {
		return nil, false, nil
	}
	if !it.exp.IsZero() && p.now().After(it.exp) {
		p.m.Delete(key)
		return nil, false, nil
	}
	return it.v, true, nil
}

func (p *Provider) Set(_ context.Context, key string, value []byte, _ int64, ttl time.Duration) (bool, error) {
	var exp time.Time
	if ttl > 0 {
		exp = p.now().Add(ttl)
	}
	p.m.Store(key, item{v: append([]byte(nil), value...), exp: exp})
	return true, nil
}

func (p *Provider) Del(_ context.Context, key string) error {
	p.m.Delete(key)
	return nil
}

func (p *Provider) Close(_ context.Context) error {
	p.m.Clear()
	return nil
}

// Len counts stored entries, expired ones included.
func (p *Provider) Len() int { return p.m.Size() }
