package querysync

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Subscription is one observer of a key. Obtain it with Client.Subscribe and
// release it with Unsubscribe.
type Subscription struct {
	c     *Client
	id    uint64
	key   Key
	keyID string

	enabled   bool
	staleTime time.Duration
	fetch     FetchFunc
	listener  func(Result)

	closed atomic.Bool

	mu   sync.Mutex // serializes listener calls
	last uint64
	busy bool
	next *Result
}

// Key returns the subscribed key.
func (s *Subscription) Key() Key { return s.key }

// Result reads the current state of the entry from cache.
func (s *Subscription) Result() Result {
	c := s.c
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entries[s.keyID]
	if e == nil {
		return Result{Key: s.key}
	}
	return c.resultLocked(e, s.staleTime)
}

// Wait blocks until no request for the key is in flight and returns the
// settled result. A disabled subscription to an idle entry returns
// ErrDisabled immediately; an entry dropped by Remove returns ErrRemoved.
func (s *Subscription) Wait(ctx context.Context) (Result, error) {
	c := s.c
	for {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return s.Result(), ErrClosed
		}
		e := c.entries[s.keyID]
		if e == nil {
			c.mu.Unlock()
			return Result{Key: s.key}, ErrRemoved
		}
		if e.inflight == nil {
			res := c.resultLocked(e, s.staleTime)
			c.mu.Unlock()
			if res.Status == StatusIdle {
				return res, ErrDisabled
			}
			return res, nil
		}
		done := e.inflight.done
		c.mu.Unlock()

		select {
		case <-done:
		case <-ctx.Done():
			return s.Result(), ctx.Err()
		}
	}
}

// Refetch forces a fetch for the key. If one is already in flight it is
// joined instead.
func (s *Subscription) Refetch() error {
	if s.closed.Load() {
		return ErrClosed
	}
	if !s.enabled {
		return ErrDisabled
	}
	c := s.c
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	e := c.entries[s.keyID]
	if e == nil || e.inflight != nil {
		c.mu.Unlock()
		return nil
	}
	e.fetch = s.fetch
	notes := c.startFetchLocked(e, reasonRefetch)
	c.mu.Unlock()

	c.dispatch(notes)
	return nil
}

// Unsubscribe detaches the listener. A request in flight keeps running and
// its result still lands in cache. Calling it more than once is a no-op.
func (s *Subscription) Unsubscribe() {
	if s.closed.Swap(true) {
		return
	}
	c := s.c
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entries[s.keyID]
	if e == nil {
		return
	}
	if _, ok := e.subs[s.id]; !ok {
		return
	}
	delete(e.subs, s.id)
	if s.enabled {
		e.enabled--
		if e.enabled > 0 {
			for _, o := range e.subs {
				if o.enabled {
					e.fetch = o.fetch
					break
				}
			}
		}
	}
	if len(e.subs) == 0 {
		e.idleSince = c.now()
	}
}

// deliver hands res to the listener. Calls are serialized; a result older
// than the last one delivered is dropped, and a result arriving while the
// listener runs (including re-entrant calls) is coalesced into the next call.
func (s *Subscription) deliver(res Result) {
	if s.closed.Load() {
		return
	}
	s.mu.Lock()
	if res.Version <= s.last {
		s.mu.Unlock()
		return
	}
	if s.busy {
		if s.next == nil || s.next.Version < res.Version {
			s.next = &res
		}
		s.mu.Unlock()
		return
	}
	s.busy = true
	for {
		s.last = res.Version
		s.mu.Unlock()

		if !s.closed.Load() {
			s.listener(res)
		}

		s.mu.Lock()
		if s.next == nil || s.next.Version <= s.last {
			s.next = nil
			s.busy = false
			s.mu.Unlock()
			return
		}
		res = *s.next
		s.next = nil
	}
}
