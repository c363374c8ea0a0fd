// Package cache provides a bounded in-memory key-value cache with per-entry
// expiry and FIFO eviction when full. Expiry is checked lazily on read;
// there is no background sweeper.
package cache

import (
	"container/list"
	"sync"
	"time"

	"github.com/promptarena/verdict/pkg/metrics"
)

// Default cache configuration constants.
const (
	defaultMaxSize = 128
	defaultTTL     = 30 * time.Second
)

type entry struct {
	key       string
	value     any
	expiresAt time.Time
}

// Cache is a fixed-capacity TTL cache. Eviction removes the oldest-inserted
// entry; there is no recency tracking.
type Cache struct {
	mu      sync.Mutex
	items   map[string]*list.Element
	order   *list.List // front = oldest insert
	maxSize int
	ttl     time.Duration
	now     func() time.Time
}

// Option applies a configuration option to the Cache.
type Option func(*Cache)

// WithMaxSize sets the maximum number of entries kept.
func WithMaxSize(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.maxSize = n
		}
	}
}

// WithTTL sets the lifetime of each entry.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithNowFunc overrides the clock, for expiry tests.
func WithNowFunc(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates a cache with configuration options.
func New(opts ...Option) *Cache {
	c := &Cache{
		items:   make(map[string]*list.Element),
		order:   list.New(),
		maxSize: defaultMaxSize,
		ttl:     defaultTTL,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the value for key if present and unexpired.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		metrics.RecordCacheMiss()
		return nil, false
	}
	e := el.Value.(*entry)
	if c.now().After(e.expiresAt) {
		c.removeLocked(el)
		metrics.RecordCacheMiss()
		return nil, false
	}
	metrics.RecordCacheHit()
	return e.value, true
}

// Set stores value under key, evicting the oldest insert when full.
// Re-setting an existing key refreshes its value and expiry but keeps its
// insertion position.
func (c *Cache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expires := c.now().Add(c.ttl)
	if el, ok := c.items[key]; ok {
		e := el.Value.(*entry)
		e.value = value
		e.expiresAt = expires
		return
	}
	if c.order.Len() >= c.maxSize {
		if oldest := c.order.Front(); oldest != nil {
			c.removeLocked(oldest)
			metrics.RecordCacheEviction()
		}
	}
	el := c.order.PushBack(&entry{key: key, value: value, expiresAt: expires})
	c.items[key] = el
}

// Delete removes key if present.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		c.removeLocked(el)
	}
}

// Len returns the number of entries currently held, including entries that
// have expired but not yet been observed by a read.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *Cache) removeLocked(el *list.Element) {
	e := el.Value.(*entry)
	c.order.Remove(el)
	delete(c.items, e.key)
}
