package cache

import (
	"sync"
	"time"
)

// Item represents a cached item with expiration
type Item[V any] struct {
	Value      V
	Expiration int64
}

// expiredAt reports whether the item has expired at the given unix nano time
func (item Item[V]) expiredAt(now int64) bool {
	return item.Expiration > 0 && now > item.Expiration
}

// Options configures a Cache
type Options struct {
	// TTL is the default expiration; zero keeps items until deleted
	TTL time.Duration
	// CleanupInterval is how often expired items are purged; zero disables the janitor
	CleanupInterval time.Duration
	// MaxItems bounds the cache; the item closest to expiry is evicted first
	MaxItems int
}

// Cache is a thread-safe in-memory cache with expiration. Eviction callbacks
// run outside the cache lock, so they may call back into the cache.
type Cache[V any] struct {
	mu        sync.RWMutex
	items     map[string]Item[V]
	opts      Options
	onEvicted func(string, V)
	now       func() time.Time
	stop      chan struct{}
	stopOnce  sync.Once
}

type evicted[V any] struct {
	key   string
	value V
}

// New creates a cache and starts its janitor when a cleanup interval is set
func New[V any](opts Options) *Cache[V] {
	c := &Cache[V]{
		items: make(map[string]Item[V]),
		opts:  opts,
		now:   time.Now,
		stop:  make(chan struct{}),
	}

	if opts.CleanupInterval > 0 {
		go c.startCleanupTimer()
	}

	return c
}

// Set adds an item to the cache with the default expiration
func (c *Cache[V]) Set(key string, value V) {
	c.SetWithExpiration(key, value, c.opts.TTL)
}

// SetWithExpiration adds an item to the cache with a specific expiration time
func (c *Cache[V]) SetWithExpiration(key string, value V, d time.Duration) {
	c.mu.Lock()
	var out []evicted[V]
	if _, exists := c.items[key]; !exists && c.opts.MaxItems > 0 && len(c.items) >= c.opts.MaxItems {
		if e, ok := c.evictOldest(); ok {
			out = append(out, e)
		}
	}
	c.items[key] = Item[V]{Value: value, Expiration: c.expiration(d)}
	c.mu.Unlock()

	c.notify(out)
}

// Get retrieves an unexpired item from the cache
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, found := c.items[key]
	if !found || item.expiredAt(c.now().UnixNano()) {
		var zero V
		return zero, false
	}
	return item.Value, true
}

// Touch retrieves an item and restarts its default expiration
func (c *Cache[V]) Touch(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, found := c.items[key]
	if !found || item.expiredAt(c.now().UnixNano()) {
		var zero V
		return zero, false
	}
	item.Expiration = c.expiration(c.opts.TTL)
	c.items[key] = item
	return item.Value, true
}

// Delete removes an item from the cache, calling the eviction callback
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	item, found := c.items[key]
	delete(c.items, key)
	c.mu.Unlock()

	if found {
		c.notify([]evicted[V]{{key, item.Value}})
	}
}

// Remove removes an item without calling the eviction callback
func (c *Cache[V]) Remove(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, found := c.items[key]
	delete(c.items, key)
	return item.Value, found
}

// Flush removes all items from the cache
func (c *Cache[V]) Flush() {
	c.mu.Lock()
	out := make([]evicted[V], 0, len(c.items))
	for k, v := range c.items {
		out = append(out, evicted[V]{k, v.Value})
	}
	c.items = make(map[string]Item[V])
	c.mu.Unlock()

	c.notify(out)
}

// Count returns the number of items in the cache (including expired items)
func (c *Cache[V]) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.items)
}

// SetOnEvicted sets the callback to be called when an item is evicted
func (c *Cache[V]) SetOnEvicted(f func(string, V)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.onEvicted = f
}

// Close stops the janitor
func (c *Cache[V]) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}

// DeleteExpired purges every expired item
func (c *Cache[V]) DeleteExpired() {
	c.mu.Lock()
	now := c.now().UnixNano()
	var out []evicted[V]
	for k, v := range c.items {
		if v.expiredAt(now) {
			out = append(out, evicted[V]{k, v.Value})
			delete(c.items, k)
		}
	}
	c.mu.Unlock()

	c.notify(out)
}

func (c *Cache[V]) startCleanupTimer() {
	ticker := time.NewTicker(c.opts.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.DeleteExpired()
		case <-c.stop:
			return
		}
	}
}

func (c *Cache[V]) expiration(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	return c.now().Add(d).UnixNano()
}

// evictOldest removes the item closest to expiry. Callers hold c.mu.
func (c *Cache[V]) evictOldest() (evicted[V], bool) {
	var (
		oldestKey  string
		oldestTime int64
		found      bool
	)
	for k, v := range c.items {
		// items without expiration are evicted last
		exp := v.Expiration
		if exp == 0 {
			exp = 1<<63 - 1
		}
		if !found || exp < oldestTime {
			oldestKey, oldestTime, found = k, exp, true
		}
	}
	if !found {
		return evicted[V]{}, false
	}

	e := evicted[V]{oldestKey, c.items[oldestKey].Value}
	delete(c.items, oldestKey)
	return e, true
}

func (c *Cache[V]) notify(out []evicted[V]) {
	if len(out) == 0 {
		return
	}
	c.mu.RLock()
	fn := c.onEvicted
	c.mu.RUnlock()

	if fn == nil {
		return
	}
	for _, e := range out {
		fn(e.key, e.value)
	}
}
