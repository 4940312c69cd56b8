// Package query caches remote collections per entity type. Concurrent reads of a
// key share one request, results are refreshed on a fixed interval or on explicit
// invalidation, and a failed refresh keeps the previous data visible.
package query

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"civicdesk/internal/observability"
)

// DefaultInterval is the refresh period used when none is configured.
const DefaultInterval = 5 * time.Second

// Fetcher loads a whole collection.
type Fetcher[T any] func(ctx context.Context) ([]T, error)

// State is an immutable snapshot of a cache entry.
type State[T any] struct {
	Data      []T
	Err       error
	UpdatedAt time.Time
	// Version increases with every published change.
	Version uint64

	fetching bool
	loaded   bool
}

// IsLoading reports a fetch in flight with no successful result yet.
func (s State[T]) IsLoading() bool { return s.fetching && !s.loaded }

// IsFetching reports any fetch in flight.
func (s State[T]) IsFetching() bool { return s.fetching }

// IsError reports that the most recent applied fetch failed. Data may still hold
// the last good result.
func (s State[T]) IsError() bool { return s.Err != nil }

// HasData reports whether at least one fetch succeeded.
func (s State[T]) HasData() bool { return s.loaded }

type subscription[T any] struct {
	mu      sync.Mutex
	fn      func(State[T])
	active  bool
	seen    bool
	version uint64
}

// Cache holds one collection.
type Cache[T any] struct {
	key      string
	fetch    Fetcher[T]
	interval time.Duration
	log      *zap.Logger
	metrics  observability.Recorder
	group    singleflight.Group

	mu       sync.Mutex
	state    State[T]
	issued   uint64
	applied  uint64
	inflight int
	subs     map[uint64]*subscription[T]
	nextSub  uint64
	stopped  bool

	runMu   sync.Mutex
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewCache constructs a cache entry; call Start to enable timed refresh.
func NewCache[T any](key string, fetch Fetcher[T], opts ...Option) *Cache[T] {
	o := buildOptions(opts)
	return &Cache[T]{
		key:      key,
		fetch:    fetch,
		interval: o.interval,
		log:      o.log.With(zap.String("collection", key)),
		metrics:  o.metrics,
		subs:     make(map[uint64]*subscription[T]),
	}
}

// Key returns the cache key (the entity collection name).
func (c *Cache[T]) Key() string { return c.key }

// Snapshot returns the current state.
func (c *Cache[T]) Snapshot() State[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Cache[T]) snapshotLocked() State[T] {
	s := c.state
	s.fetching = c.inflight > 0
	s.Data = append([]T(nil), c.state.Data...)
	return s
}

// Fetch returns the collection, joining an in-flight request for the same key
// when there is one. The shared request is detached from ctx so one caller giving
// up does not fail the others; ctx only bounds how long this caller waits.
func (c *Cache[T]) Fetch(ctx context.Context) ([]T, error) {
	fetchCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(c.key, func() (any, error) {
		return c.run(fetchCtx)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		data, _ := res.Val.([]T)
		return append([]T(nil), data...), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Invalidate marks the entry stale and re-fetches it, bypassing any request that
// was already in flight. Responses from such older requests are discarded.
func (c *Cache[T]) Invalidate(ctx context.Context) error {
	c.group.Forget(c.key)
	_, err := c.Fetch(ctx)
	return err
}

func (c *Cache[T]) run(ctx context.Context) ([]T, error) {
	c.mu.Lock()
	c.issued++
	seq := c.issued
	c.inflight++
	c.publishLocked()
	c.mu.Unlock()

	data, err := c.fetch(ctx)

	c.mu.Lock()
	c.inflight--
	switch {
	case seq <= c.applied:
		c.metrics.StaleDropped(c.key)
		c.log.Debug("discarding stale response", zap.Uint64("seq", seq), zap.Uint64("applied", c.applied))
	case err != nil:
		c.applied = seq
		c.state.Err = err
		c.metrics.CacheRefreshed(c.key, "error")
		c.log.Warn("refresh failed, keeping previous data", zap.Error(err), zap.Int("cached", len(c.state.Data)))
	default:
		c.applied = seq
		c.state.Data = append([]T(nil), data...)
		c.state.Err = nil
		c.state.UpdatedAt = time.Now().UTC()
		c.state.loaded = true
		c.metrics.CacheRefreshed(c.key, "ok")
	}
	c.publishLocked()
	c.mu.Unlock()
	return data, err
}

// publishLocked bumps the version and delivers the snapshot asynchronously.
// Subscribers drop versions older than one they have already seen, so
// out-of-order delivery never rolls a view back.
func (c *Cache[T]) publishLocked() {
	c.state.Version++
	if c.stopped || len(c.subs) == 0 {
		return
	}
	snap := c.snapshotLocked()
	subs := make([]*subscription[T], 0, len(c.subs))
	for _, s := range c.subs {
		subs = append(subs, s)
	}
	go func() {
		for _, s := range subs {
			s.deliver(snap)
		}
	}()
}

func (s *subscription[T]) deliver(state State[T]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active || (s.seen && state.Version <= s.version) {
		return
	}
	s.seen = true
	s.version = state.Version
	s.fn(state)
}

// Subscribe registers fn for state changes and immediately delivers the current
// state. After the returned cancel function returns, fn is never called again.
// fn must not call cancel itself.
func (c *Cache[T]) Subscribe(fn func(State[T])) (cancel func()) {
	sub := &subscription[T]{fn: fn, active: true}
	c.mu.Lock()
	c.nextSub++
	id := c.nextSub
	c.subs[id] = sub
	snap := c.snapshotLocked()
	c.mu.Unlock()
	sub.deliver(snap)

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, id)
			c.mu.Unlock()
			sub.mu.Lock()
			sub.active = false
			sub.mu.Unlock()
		})
	}
}

// Start fetches once and then refreshes every interval until Stop. Calling Start
// on a running cache is a no-op.
func (c *Cache[T]) Start() {
	c.runMu.Lock()
	defer c.runMu.Unlock()
	if c.started {
		return
	}
	c.started = true
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.mu.Lock()
	c.stopped = false
	c.mu.Unlock()
	c.wg.Add(1)
	go c.loop(ctx)
}

func (c *Cache[T]) loop(ctx context.Context) {
	defer c.wg.Done()
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	c.refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.refresh(ctx)
		}
	}
}

func (c *Cache[T]) refresh(ctx context.Context) {
	if _, err := c.Fetch(ctx); err != nil && ctx.Err() == nil {
		c.log.Debug("timed refresh failed", zap.Error(err))
	}
}

// Stop halts timed refresh and waits for the loop to exit. Subscribers receive no
// further updates, including from requests still in flight.
func (c *Cache[T]) Stop(ctx context.Context) error {
	c.runMu.Lock()
	if !c.started {
		c.runMu.Unlock()
		return nil
	}
	c.started = false
	c.cancel()
	c.runMu.Unlock()

	c.mu.Lock()
	c.stopped = true
	c.mu.Unlock()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
