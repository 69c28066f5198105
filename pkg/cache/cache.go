// Package cache holds short-lived discovery results keyed by operation,
// arguments and a digest of the connection target.
package cache

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultTTL        = 360 * time.Second
	DefaultMaxEntries = 100
)

// Config sizes the cache.
type Config struct {
	TTL        time.Duration
	MaxEntries int
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

type entry struct {
	value      any
	insertedAt time.Time
	gen        uint64
}

// Stats is a point-in-time view of cache activity.
type Stats struct {
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Entries int   `json:"entries"`
}

// Cache is a TTL + LRU result cache, safe for concurrent use.
// Entries expire TTL after insertion; when full the least recently used
// entry is evicted. Concurrent misses on one key share a single computation.
type Cache struct {
	entries *lru.Cache[string, entry]
	group   singleflight.Group
	ttl     time.Duration
	now     func() time.Time
	hits    atomic.Int64
	misses  atomic.Int64

	// mu orders Set against expiry removal so a fresh entry is never
	// removed in place of the stale one it replaced.
	mu  sync.Mutex
	gen atomic.Uint64
}

// New creates a cache. Zero-valued Config fields take the defaults.
func New(cfg Config, opts ...Option) (*Cache, error) {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = DefaultMaxEntries
	}

	entries, err := lru.New[string, entry](cfg.MaxEntries)
	if err != nil {
		return nil, fmt.Errorf("create lru: %w", err)
	}

	c := &Cache{
		entries: entries,
		ttl:     cfg.TTL,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Key builds a cache key. fingerprint must already be a digest; raw
// credentials never belong in a key.
func Key(op, fingerprint string, args ...string) string {
	var b strings.Builder
	b.WriteString(op)
	b.WriteByte(':')
	b.WriteString(fingerprint)
	for _, a := range args {
		b.WriteByte(':')
		b.WriteString(strconv.Quote(a))
	}
	return b.String()
}

// Get returns the value stored under key if it has not expired.
func (c *Cache) Get(key string) (any, bool) {
	e, ok := c.entries.Get(key)
	if !ok {
		return nil, false
	}
	if c.now().Sub(e.insertedAt) >= c.ttl {
		c.removeIfStale(key, e.gen)
		return nil, false
	}
	return e.value, true
}

// removeIfStale removes key only while it still holds generation gen.
func (c *Cache) removeIfStale(key string, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cur, ok := c.entries.Peek(key); ok && cur.gen == gen {
		c.entries.Remove(key)
	}
}

// Set stores value under key, stamped with the current time.
func (c *Cache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Add(key, entry{value: value, insertedAt: c.now(), gen: c.gen.Add(1)})
}

// GetOrCompute returns the cached value for key or runs compute and stores
// its result. Errors are returned to every waiter and never stored.
//
// The shared computation runs detached from any single caller's
// cancellation; each caller stops waiting when its own ctx is done.
func (c *Cache) GetOrCompute(ctx context.Context, key string, compute func(context.Context) (any, error)) (any, error) {
	if v, ok := c.Get(key); ok {
		c.hits.Add(1)
		return v, nil
	}

	flightCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		// Another caller may have filled the entry while we waited on the group.
		if v, ok := c.Get(key); ok {
			return v, nil
		}
		c.misses.Add(1)

		v, err := compute(flightCtx)
		if err != nil {
			return nil, err
		}
		c.Set(key, v)
		return v, nil
	})

	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Fetch is a typed GetOrCompute.
func Fetch[T any](ctx context.Context, c *Cache, key string, compute func(context.Context) (T, error)) (T, error) {
	v, err := c.GetOrCompute(ctx, key, func(ctx context.Context) (any, error) {
		return compute(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}

	typed, ok := v.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("cache entry %q holds %T", key, v)
	}
	return typed, nil
}

// Stats reports hit and miss counters and the current entry count.
func (c *Cache) Stats() Stats {
	return Stats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Entries: c.entries.Len(),
	}
}

// Purge drops every entry.
func (c *Cache) Purge() {
	c.entries.Purge()
}
