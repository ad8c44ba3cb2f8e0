// Package cache provides a typed, size-bounded LRU cache with per-entry TTL.
package cache

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
)

// DefaultSize bounds caches created without an explicit size.
const DefaultSize = 1024

type item[V any] struct {
	value     V
	expiresAt time.Time // zero never expires
}

func (i item[V]) expired(now time.Time) bool {
	return !i.expiresAt.IsZero() && now.After(i.expiresAt)
}

// Cache is safe for concurrent use.
type Cache[K comparable, V any] struct {
	lru  *lru.Cache
	done chan struct{}
	once sync.Once
	now  func() time.Time
}

// New creates a cache holding at most size entries and sweeping expired
// entries every cleanupInterval. A zero interval disables sweeping;
// expired entries are still never returned.
func New[K comparable, V any](size int, cleanupInterval time.Duration) *Cache[K, V] {
	if size <= 0 {
		size = DefaultSize
	}

	l, err := lru.New(size)
	if err != nil {
		// only returned for non-positive sizes
		panic(err)
	}

	c := &Cache[K, V]{
		lru:  l,
		done: make(chan struct{}),
		now:  time.Now,
	}

	if cleanupInterval > 0 {
		go c.sweep(cleanupInterval)
	}
	return c
}

// Get returns the value for key if present and not expired.
func (c *Cache[K, V]) Get(_ context.Context, key K) (V, bool) {
	var zero V

	raw, ok := c.lru.Get(key)
	if !ok {
		return zero, false
	}

	it := raw.(item[V])
	if it.expired(c.now()) {
		c.lru.Remove(key)
		return zero, false
	}
	return it.value, true
}

// Set stores value under key. A ttl of zero keeps it until evicted.
func (c *Cache[K, V]) Set(_ context.Context, key K, value V, ttl time.Duration) {
	it := item[V]{value: value}
	if ttl > 0 {
		it.expiresAt = c.now().Add(ttl)
	}
	c.lru.Add(key, it)
}

// Delete removes key.
func (c *Cache[K, V]) Delete(_ context.Context, key K) {
	c.lru.Remove(key)
}

// Len returns the number of entries, expired ones included until swept.
func (c *Cache[K, V]) Len() int {
	return c.lru.Len()
}

// Close stops the sweeper.
func (c *Cache[K, V]) Close() {
	c.once.Do(func() { close(c.done) })
}

func (c *Cache[K, V]) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			now := c.now()
			for _, k := range c.lru.Keys() {
				if raw, ok := c.lru.Peek(k); ok && raw.(item[V]).expired(now) {
					c.lru.Remove(k)
				}
			}
		}
	}
}
