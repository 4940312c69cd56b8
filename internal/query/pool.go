package query

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

type entry interface {
	Key() string
	Invalidate(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Pool owns one cache per entity collection so that every view of the same
// collection shares data, requests and refresh timing.
type Pool struct {
	opts []Option

	mu      sync.Mutex
	entries map[string]entry
}

// NewPool returns an empty pool; opts apply to every cache it creates.
func NewPool(opts ...Option) *Pool {
	return &Pool{opts: opts, entries: make(map[string]entry)}
}

// For returns the cache registered under key, creating it with fetch on first
// use. Registering the same key with a different element type panics.
func For[T any](p *Pool, key string, fetch Fetcher[T]) *Cache[T] {
	p.mu.Lock()
	defer p.mu.Unlock()
	if e, ok := p.entries[key]; ok {
		c, ok := e.(*Cache[T])
		if !ok {
			panic(fmt.Sprintf("query: cache %q already registered with element type %T", key, e))
		}
		return c
	}
	c := NewCache(key, fetch, p.opts...)
	p.entries[key] = c
	return c
}

// Keys lists registered collections in name order.
func (p *Pool) Keys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	keys := make([]string, 0, len(p.entries))
	for k := range p.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Invalidate re-fetches the named collection. Unknown keys are ignored since
// nothing is displaying them.
func (p *Pool) Invalidate(ctx context.Context, key string) error {
	p.mu.Lock()
	e, ok := p.entries[key]
	p.mu.Unlock()
	if !ok {
		return nil
	}
	return e.Invalidate(ctx)
}

// Close stops timed refresh on every cache.
func (p *Pool) Close(ctx context.Context) error {
	p.mu.Lock()
	entries := make([]entry, 0, len(p.entries))
	for _, e := range p.entries {
		entries = append(entries, e)
	}
	p.mu.Unlock()
	var errs []error
	for _, e := range entries {
		if err := e.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop %s: %w", e.Key(), err))
		}
	}
	return errors.Join(errs...)
}
