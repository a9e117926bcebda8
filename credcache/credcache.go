// Package credcache caches expensive-to-obtain credentials, such as cookies or signing keys,
// for a fixed time-to-live and refreshes them on demand.
package credcache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/samber/mo"
	"github.com/vodkit-cli/vodkit/log"
	"golang.org/x/sync/singleflight"
)

// Clock returns the current time.
type Clock func() time.Time

// Persister stores serialized entries on a best-effort basis.
type Persister interface {
	Load(ctx context.Context, key string) mo.Option[string]
	Save(key, value string)
}

// RefreshFunc obtains a fresh value.
type RefreshFunc[T any] func(ctx context.Context) (T, error)

// Entry is a cached value. It is valid while now - FetchedAt < TTL.
type Entry[T any] struct {
	Value     T             `json:"value"`
	FetchedAt time.Time     `json:"fetched_at"`
	TTL       time.Duration `json:"ttl"`
}

// Fresh reports whether the entry is still valid at now.
func (e *Entry[T]) Fresh(now time.Time) bool {
	return now.Sub(e.FetchedAt) < e.TTL
}

// Cache maps keys to entries.
type Cache[T any] struct {
	namespace string
	clock     Clock
	persister Persister
	log       log.Scoped

	mu       sync.Mutex
	entries  map[string]*Entry[T]
	restored map[string]bool
	group    singleflight.Group
}

// Option configures a Cache.
type Option[T any] func(*Cache[T])

// WithClock replaces the wall clock.
func WithClock[T any](clock Clock) Option[T] {
	return func(c *Cache[T]) { c.clock = clock }
}

// WithPersister makes entries survive restarts through p.
func WithPersister[T any](p Persister) Option[T] {
	return func(c *Cache[T]) { c.persister = p }
}

// New returns an empty cache. namespace prefixes persisted keys.
func New[T any](namespace string, opts ...Option[T]) *Cache[T] {
	c := &Cache[T]{
		namespace: namespace,
		clock:     time.Now,
		log:       log.With("credcache", namespace),
		entries:   make(map[string]*Entry[T]),
		restored:  make(map[string]bool),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// GetOrRefresh returns the cached value for key while it is fresh.
// Otherwise it calls refresh once, even under concurrent callers, and caches the result for ttl.
// When refresh fails and a stale value exists, the stale value is returned instead of the error.
func (c *Cache[T]) GetOrRefresh(ctx context.Context, key string, ttl time.Duration, refresh RefreshFunc[T]) (T, error) {
	if e, ok := c.lookup(ctx, key); ok && e.Fresh(c.clock()) {
		return e.Value, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		// Another caller may have refreshed while this one waited.
		if e, ok := c.lookup(ctx, key); ok && e.Fresh(c.clock()) {
			return e.Value, nil
		}

		value, err := refresh(ctx)
		if err != nil {
			if e, ok := c.lookup(ctx, key); ok {
				c.log.Warnf("refresh %s failed, serving stale value: %s", key, err)
				return e.Value, nil
			}
			return nil, fmt.Errorf("refresh %s: %w", key, err)
		}

		c.store(key, &Entry[T]{Value: value, FetchedAt: c.clock(), TTL: ttl})
		return value, nil
	})

	if err != nil {
		var zero T
		return zero, err
	}

	t, _ := v.(T)
	return t, nil
}

// Peek returns the cached entry for key, fresh or not.
func (c *Cache[T]) Peek(key string) mo.Option[Entry[T]] {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		return mo.Some(*e)
	}
	return mo.None[Entry[T]]()
}

// Invalidate drops key so the next call refreshes.
func (c *Cache[T]) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

func (c *Cache[T]) lookup(ctx context.Context, key string) (*Entry[T], bool) {
	c.mu.Lock()
	e, ok := c.entries[key]
	tried := c.restored[key]
	c.restored[key] = true
	c.mu.Unlock()

	if ok || tried || c.persister == nil {
		return e, ok
	}

	// First miss: consult the persisted copy once.
	raw, found := c.persister.Load(ctx, c.persistKey(key)).Get()
	if !found {
		return nil, false
	}

	var restored Entry[T]
	if err := json.Unmarshal([]byte(raw), &restored); err != nil {
		c.log.Warnf("discarding unreadable persisted entry %s: %s", key, err)
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		return e, true
	}
	c.entries[key] = &restored
	return &restored, true
}

func (c *Cache[T]) store(key string, e *Entry[T]) {
	c.mu.Lock()
	c.entries[key] = e
	c.mu.Unlock()

	if c.persister == nil {
		return
	}

	b, err := json.Marshal(e)
	if err != nil {
		c.log.Warnf("not persisting %s: %s", key, err)
		return
	}
	c.persister.Save(c.persistKey(key), string(b))
}

func (c *Cache[T]) persistKey(key string) string {
	return c.namespace + ":" + key
}
