// Package asynchook runs querysync hooks on a worker pool so a slow sink
// (network log shipper, metrics push) never stalls the client, which calls
// some hooks while holding its entry lock.
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{FetchEvery: 10})
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	client, _ := querysync.New(querysync.Options{Hooks: hooks})
//
// Events are dropped when the queue is full; Dropped reports how many.
package asynchook

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/thomasjacksonsantos/querysync"
)

type Hooks struct {
	inner   querysync.Hooks
	q       chan func()
	wg      sync.WaitGroup
	once    sync.Once
	closed  atomic.Bool
	dropped atomic.Uint64
}

var _ querysync.Hooks = (*Hooks)(nil)

func New(inner querysync.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close drains queued events and stops the workers. Events arriving after
// Close are dropped.
func (h *Hooks) Close() {
	h.once.Do(func() {
		h.closed.Store(true)
		close(h.q)
		h.wg.Wait()
	})
}

func (h *Hooks) Dropped() uint64 { return h.dropped.Load() }

func (h *Hooks) try(f func()) {
	if h.closed.Load() {
		h.dropped.Add(1)
		return
	}
	defer func() {
		// lost the race with Close
		if recover() != nil {
			h.dropped.Add(1)
		}
	}()
	select {
	case h.q <- f:
	default:
		h.dropped.Add(1)
	}
}

func (h *Hooks) FetchStarted(k string, gen uint64, reason string) {
	h.try(func() { h.inner.FetchStarted(k, gen, reason) })
}
func (h *Hooks) FetchSettled(k string, gen uint64, err error, took time.Duration) {
	h.try(func() { h.inner.FetchSettled(k, gen, err, took) })
}
func (h *Hooks) ResultDiscarded(k string, gen uint64) {
	h.try(func() { h.inner.ResultDiscarded(k, gen) })
}
func (h *Hooks) Invalidated(p string, n int)        { h.try(func() { h.inner.Invalidated(p, n) }) }
func (h *Hooks) EntryCollected(k string)            { h.try(func() { h.inner.EntryCollected(k) }) }
func (h *Hooks) MutationFailed(m string, err error) { h.try(func() { h.inner.MutationFailed(m, err) }) }
func (h *Hooks) PersistError(k, op string, err error) {
	h.try(func() { h.inner.PersistError(k, op, err) })
}
