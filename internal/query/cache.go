// Package query is the shared read cache behind the planner hooks. Entries
// are keyed by entity and owning identity; concurrent fetches of one key
// share a single load, and invalidation wins over loads already in flight.
package query

import (
	"context"
	"sync"
	"time"
)

// Key identifies a cached read.
type Key struct {
	Entity string
	Owner  string
}

type entry struct {
	value    any
	loadedAt time.Time
	ok       bool
	stale    bool
	version  uint64
	wait     chan struct{}
	err      error
}

// Cache holds the last successful read per key.
type Cache struct {
	mu      sync.Mutex
	entries map[Key]*entry
	ttl     time.Duration
	now     func() time.Time
}

type Option func(*Cache)

// WithTTL expires entries after d. Zero keeps them until invalidated.
func WithTTL(d time.Duration) Option { return func(c *Cache) { c.ttl = d } }

func New(opts ...Option) *Cache {
	c := &Cache{entries: map[Key]*entry{}, now: time.Now}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Cache) get(k Key) *entry {
	e, ok := c.entries[k]
	if !ok {
		e = &entry{}
		c.entries[k] = e
	}
	return e
}

func (c *Cache) fresh(e *entry) bool {
	if !e.ok || e.stale {
		return false
	}
	return c.ttl <= 0 || c.now().Sub(e.loadedAt) < c.ttl
}

// Fetch returns the cached value for k or runs load. A failed load is not
// cached and leaves any previous value in place for Peek.
func Fetch[T any](ctx context.Context, c *Cache, k Key, load func(context.Context) (T, error)) (T, error) {
	var zero T
	for {
		c.mu.Lock()
		e := c.get(k)
		if c.fresh(e) {
			v, _ := e.value.(T)
			c.mu.Unlock()
			return v, nil
		}
		if e.wait != nil {
			wait := e.wait
			c.mu.Unlock()
			select {
			case <-wait:
				c.mu.Lock()
				err := e.err
				c.mu.Unlock()
				if err != nil {
					return zero, err
				}
				continue
			case <-ctx.Done():
				return zero, ctx.Err()
			}
		}
		wait := make(chan struct{})
		e.wait = wait
		e.err = nil
		version := e.version
		c.mu.Unlock()

		v, err := load(ctx)

		c.mu.Lock()
		// Invalidate or Clear may have run during the load.
		if cur := c.entries[k]; cur == e && e.version == version && err == nil {
			e.value = v
			e.ok = true
			e.stale = false
			e.loadedAt = c.now()
		}
		e.err = err
		e.wait = nil
		close(wait)
		c.mu.Unlock()
		return v, err
	}
}

// Peek returns the last successful value without loading.
func Peek[T any](c *Cache, k Key) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[k]
	if !ok || !e.ok {
		var zero T
		return zero, false
	}
	v, ok := e.value.(T)
	return v, ok
}

// Invalidate marks every key of entity stale. The stale value stays visible
// to Peek until the next successful Fetch.
func (c *Cache) Invalidate(entity string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.entries {
		if k.Entity == entity {
			e.version++
			e.stale = true
		}
	}
}

// Clear drops every entry of owner. Used on sign-out.
func (c *Cache) Clear(owner string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if k.Owner == owner {
			delete(c.entries, k)
		}
	}
}
