package querysync

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

type pending struct {
	gen     uint64
	reason  string
	started time.Time
	cancel  context.CancelFunc
	done    chan struct{} // closed when the request settles or is superseded
}

type entry struct {
	key Key
	id  string

	status    Status
	data      any
	hasData   bool
	err       error
	updatedAt time.Time
	stale     bool
	version   uint64

	gen      uint64 // generation of the latest issued fetch
	inflight *pending
	fetch    FetchFunc // fetcher of the latest enabled subscriber

	subs      map[uint64]*Subscription
	enabled   int // subscribers allowed to fetch
	idleSince time.Time
}

type notification struct {
	sub *Subscription
	res Result
}

// Client is the synchronization layer. It is safe for concurrent use: all
// entry mutation is serialized by one mutex, network calls run on background
// goroutines and listeners are invoked outside the lock.
type Client struct {
	mu      sync.Mutex
	entries map[string]*entry
	nextSub uint64
	closed  bool

	log       Logger
	hooks     Hooks
	persister Persister
	now       func() time.Time

	staleTime  time.Duration
	gcTime     time.Duration
	gcInterval time.Duration

	// base context of every fetch; cancelled by Close
	ctx    context.Context
	cancel context.CancelFunc

	wg        sync.WaitGroup
	ticker    *time.Ticker
	stopCh    chan struct{}
	closeOnce sync.Once
}

// New creates a client and starts its garbage-collection loop.
// Call Close at shutdown.
func New(opts Options) (*Client, error) {
	if opts.StaleTime < 0 {
		return nil, fmt.Errorf("querysync: negative StaleTime %s", opts.StaleTime)
	}
	if opts.GCTime < 0 || opts.GCInterval < 0 {
		return nil, fmt.Errorf("querysync: negative GC settings (time=%s interval=%s)", opts.GCTime, opts.GCInterval)
	}

	c := &Client{
		entries:   make(map[string]*entry),
		persister: opts.Persister,
		staleTime: opts.StaleTime,
	}
	c.log = coalesce[Logger](opts.Logger, NopLogger{})
	c.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	c.gcTime = coalesce(opts.GCTime, defaultGCTime)
	c.gcInterval = coalesce(opts.GCInterval, defaultGCInterval)
	if opts.Clock != nil {
		c.now = opts.Clock
	} else {
		c.now = time.Now
	}
	c.ctx, c.cancel = context.WithCancel(context.Background())

	c.ticker = time.NewTicker(c.gcInterval)
	c.stopCh = make(chan struct{})
	c.wg.Add(1)
	go c.cleanupLoop()
	return c, nil
}

// Close disposes the client: the GC loop stops, in-flight fetches are
// cancelled (their results are discarded) and the persister is closed.
// Results that already settled finish persisting; Close waits for them until
// ctx expires and only then cancels the remaining background work.
func (c *Client) Close(ctx context.Context) error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		for _, e := range c.entries {
			if p := e.inflight; p != nil {
				p.cancel()
				close(p.done)
				e.inflight = nil
			}
		}
		c.mu.Unlock()

		close(c.stopCh)
		c.ticker.Stop()

		waited := make(chan struct{})
		go func() {
			c.wg.Wait()
			close(waited)
		}()
		select {
		case <-waited:
		case <-ctx.Done():
			err = ctx.Err()
		}
		c.cancel()

		if c.persister != nil {
			if cerr := c.persister.Close(ctx); cerr != nil && err == nil {
				err = cerr
			}
		}
	})
	return err
}

func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Subscribe registers listener for key and fetches when needed:
//   - disabled: never fetches; a new entry stays idle
//   - a request for key is in flight: joins it
//   - cached data is fresh: served from cache
//   - otherwise: issues a fetch
//
// ctx bounds only the persister restore of a new entry; the fetch itself runs
// in the background. listener may be nil.
func (c *Client) Subscribe(ctx context.Context, key Key, fetch FetchFunc, listener func(Result), opts ...QueryOption) (*Subscription, error) {
	if fetch == nil {
		return nil, ErrNilFetch
	}
	cfg := queryConfig{enabled: true}
	for _, o := range opts {
		o(&cfg)
	}
	staleTime := c.staleTime
	if cfg.hasStaleTime {
		staleTime = cfg.staleTime
	}
	id := key.String()

	restored := c.restore(ctx, key, id)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	e := c.entries[id]
	if e == nil {
		e = c.newEntryLocked(key, id)
		if restored != nil {
			e.status = StatusSuccess
			e.data = restored.data
			e.hasData = true
			e.updatedAt = restored.at
		}
	}

	c.nextSub++
	s := &Subscription{
		c:         c,
		id:        c.nextSub,
		key:       key,
		keyID:     id,
		enabled:   cfg.enabled,
		staleTime: staleTime,
		fetch:     fetch,
		listener:  listener,
	}
	e.subs[s.id] = s
	e.idleSince = time.Time{}

	var notes []notification
	if cfg.enabled {
		e.enabled++
		e.fetch = fetch
		if e.inflight == nil && c.needsFetch(e, staleTime) {
			notes = c.startFetchLocked(e, reasonSubscribe)
		}
	}
	c.mu.Unlock()

	c.dispatch(notes)
	return s, nil
}

// Invalidate marks every entry matching any pattern stale and schedules a
// background refetch for those with an enabled subscriber. Cached data is
// left in place. Returns the number of entries matched.
//
// Invalidating an entry whose invalidation refetch is still running is a
// no-op, so repeated invalidations do not multiply requests.
func (c *Client) Invalidate(ctx context.Context, patterns ...Pattern) int {
	if len(patterns) == 0 {
		return 0
	}
	if c.isClosed() {
		return 0
	}
	// Persisted generations move before any refetch starts; the refetches
	// must observe the new generation to pass the CAS in Persist.
	if c.persister != nil {
		for _, p := range patterns {
			if err := c.persister.Invalidate(ctx, p); err != nil {
				c.hooks.PersistError(p.String(), "invalidate", err)
				c.log.Warn("persister invalidate failed", Fields{"pattern": p.String(), "err": err})
			}
		}
	}

	counts := make([]int, len(patterns))
	matched := 0
	var notes []notification

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return 0
	}
	for _, e := range c.entries {
		hit := false
		for i, p := range patterns {
			if p.Matches(e.key) {
				counts[i]++
				hit = true
			}
		}
		if !hit {
			continue
		}
		matched++
		notes = append(notes, c.invalidateLocked(e)...)
	}
	c.mu.Unlock()

	for i, p := range patterns {
		c.hooks.Invalidated(p.String(), counts[i])
	}
	c.log.Debug("invalidated", Fields{"patterns": len(patterns), "matched": matched})

	c.dispatch(notes)
	return matched
}

// SetData writes data for key as a fresh successful result, as if a fetch had
// just returned it. An in-flight request for key is left running.
func (c *Client) SetData(key Key, data any) error {
	id := key.String()
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	e := c.entries[id]
	if e == nil {
		e = c.newEntryLocked(key, id)
		e.idleSince = c.now()
	}
	e.status = StatusSuccess
	e.data = data
	e.hasData = true
	e.err = nil
	e.stale = false
	e.updatedAt = c.now()
	e.version++
	notes := c.notificationsLocked(e)
	c.mu.Unlock()

	c.dispatch(notes)
	return nil
}

// Remove drops entries matching any pattern that have no subscribers,
// cancelling their in-flight requests. Returns the number removed.
func (c *Client) Remove(patterns ...Pattern) int {
	var removed []string
	c.mu.Lock()
	for id, e := range c.entries {
		if len(e.subs) > 0 || !matchesAny(patterns, e.key) {
			continue
		}
		if p := e.inflight; p != nil {
			p.cancel()
			close(p.done)
			e.inflight = nil
		}
		delete(c.entries, id)
		removed = append(removed, id)
	}
	c.mu.Unlock()

	for _, id := range removed {
		c.hooks.EntryCollected(id)
	}
	return len(removed)
}

// Peek returns the cached result for key without subscribing or fetching.
func (c *Client) Peek(key Key) (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entries[key.String()]
	if e == nil {
		return Result{Key: key}, false
	}
	return c.resultLocked(e, c.staleTime), true
}

// Entries returns a view of every cached entry, sorted by key.
func (c *Client) Entries() []Result {
	c.mu.Lock()
	out := make([]Result, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, c.resultLocked(e, c.staleTime))
	}
	c.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Key.String() < out[j].Key.String() })
	return out
}

type restoredData struct {
	data any
	at   time.Time
}

func (c *Client) restore(ctx context.Context, key Key, id string) *restoredData {
	if c.persister == nil {
		return nil
	}
	c.mu.Lock()
	_, exists := c.entries[id]
	closed := c.closed
	c.mu.Unlock()
	if exists || closed {
		return nil
	}

	data, at, ok, err := c.persister.Restore(ctx, key)
	if err != nil {
		c.hooks.PersistError(id, "restore", err)
		c.log.Warn("persister restore failed", keyFields(id, "err", err))
		return nil
	}
	if !ok {
		return nil
	}
	c.log.Debug("entry restored from persister", keyFields(id, "storedAt", at))
	return &restoredData{data: data, at: at}
}

func (c *Client) newEntryLocked(key Key, id string) *entry {
	e := &entry{
		key:  key,
		id:   id,
		subs: make(map[uint64]*Subscription),
	}
	c.entries[id] = e
	return e
}

func (c *Client) needsFetch(e *entry, staleTime time.Duration) bool {
	switch e.status {
	case StatusIdle, StatusError:
		return true
	case StatusPending:
		// pending without a request only happens after Close
		return false
	}
	return e.stale || c.expired(e, staleTime)
}

func (c *Client) expired(e *entry, staleTime time.Duration) bool {
	if !e.hasData {
		return false
	}
	return c.now().Sub(e.updatedAt) >= staleTime
}

func (c *Client) invalidateLocked(e *entry) []notification {
	if e.stale && e.inflight != nil && e.inflight.reason == reasonInvalidate {
		return nil
	}
	wasStale := e.stale
	e.stale = true
	if e.enabled > 0 && e.fetch != nil {
		return c.startFetchLocked(e, reasonInvalidate)
	}
	if wasStale {
		return nil
	}
	e.version++
	return c.notificationsLocked(e)
}

// startFetchLocked issues a new generation for e, superseding any request in
// flight. Caller holds c.mu.
func (c *Client) startFetchLocked(e *entry, reason string) []notification {
	if c.closed || e.fetch == nil {
		return nil
	}
	if old := e.inflight; old != nil {
		old.cancel()
		close(old.done)
	}

	e.gen++
	ctx, cancel := context.WithCancel(c.ctx)
	p := &pending{
		gen:     e.gen,
		reason:  reason,
		started: c.now(),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	e.inflight = p
	e.status = StatusPending
	e.version++
	c.hooks.FetchStarted(e.id, p.gen, reason)

	c.wg.Add(1)
	go c.run(ctx, e.key, e.id, p, e.fetch)
	return c.notificationsLocked(e)
}

func (c *Client) run(ctx context.Context, key Key, id string, p *pending, fetch FetchFunc) {
	defer c.wg.Done()
	defer p.cancel()

	var observed uint64
	if c.persister != nil {
		g, err := c.persister.Generation(ctx, key)
		if err != nil {
			c.hooks.PersistError(id, "generation", err)
		}
		observed = g
	}

	v, err := c.call(ctx, fetch)
	if !c.settle(id, p, v, err) {
		return
	}
	if err != nil || c.persister == nil {
		return
	}
	if perr := c.persister.Persist(ctx, key, v, observed); perr != nil {
		c.hooks.PersistError(id, "persist", perr)
		c.log.Warn("persist failed", keyFields(id, "err", perr))
	}
}

func (c *Client) call(ctx context.Context, fetch FetchFunc) (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("querysync: fetch panicked: %v", r)
		}
	}()
	return fetch(ctx)
}

// settle applies a finished request when its generation is still current.
func (c *Client) settle(id string, p *pending, v any, err error) bool {
	c.mu.Lock()
	e := c.entries[id]
	if e == nil || e.inflight != p {
		c.mu.Unlock()
		c.hooks.ResultDiscarded(id, p.gen)
		c.log.Debug("discarded superseded result", keyFields(id, "gen", p.gen))
		return false
	}
	e.inflight = nil
	close(p.done)

	now := c.now()
	if err != nil {
		e.status = StatusError
		e.err = err
	} else {
		e.status = StatusSuccess
		e.data = v
		e.hasData = true
		e.err = nil
		e.stale = false
		e.updatedAt = now
	}
	e.version++
	notes := c.notificationsLocked(e)
	c.mu.Unlock()

	c.hooks.FetchSettled(id, p.gen, err, now.Sub(p.started))
	if err != nil {
		c.log.Debug("fetch failed", keyFields(id, "gen", p.gen, "err", err))
	}
	c.dispatch(notes)
	return true
}

func (c *Client) resultLocked(e *entry, staleTime time.Duration) Result {
	return Result{
		Key:       e.key,
		Status:    e.status,
		Data:      e.data,
		HasData:   e.hasData,
		Err:       e.err,
		UpdatedAt: e.updatedAt,
		Stale:     e.stale || c.expired(e, staleTime),
		Fetching:  e.inflight != nil,
		Version:   e.version,
	}
}

func (c *Client) notificationsLocked(e *entry) []notification {
	if len(e.subs) == 0 {
		return nil
	}
	out := make([]notification, 0, len(e.subs))
	for _, s := range e.subs {
		if s.listener != nil {
			out = append(out, notification{sub: s, res: c.resultLocked(e, s.staleTime)})
		}
	}
	return out
}

func (c *Client) dispatch(notes []notification) {
	for _, n := range notes {
		n.sub.deliver(n.res)
	}
}
