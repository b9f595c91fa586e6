package cache

import (
	"container/list"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gobwas/glob"

	"github.com/c360/cropvision/errors"
)

// entry holds one cached value with its expiry and access bookkeeping.
type entry[V any] struct {
	key            string
	value          V
	createdAt      time.Time
	ttl            time.Duration
	accessCount    int64
	lastAccessedAt time.Time
	cost           int64 // approximate bytes, fixed at Set time
}

// isExpired reports whether the entry is logically absent at now.
// A zero TTL entry is expired on any read after creation.
func (e *entry[V]) isExpired(now time.Time) bool {
	return now.Sub(e.createdAt) > e.ttl || e.ttl == 0
}

// touch refreshes access bookkeeping.
func (e *entry[V]) touch(now time.Time) {
	e.accessCount++
	e.lastAccessedAt = now
}

// expiringCache combines per-entry TTL expiry with LRU capacity eviction.
// The list keeps most recently accessed entries at the front, so the back
// element is always the one with the oldest last-access time.
type expiringCache[V any] struct {
	mu       sync.RWMutex
	capacity int

	pressureThreshold     float64
	pressureEvictFraction float64

	items       map[string]*list.Element
	order       *list.List
	memoryBytes int64

	stats   *Statistics // ALWAYS initialized
	metrics *cacheMetrics
	evictFn EvictCallback[V]
	sizer   func(V) int

	// Background sweep coordination
	shutdown chan struct{}
	done     chan struct{}
}

// New creates an expiring cache from the given configuration. Returns a
// no-op cache when cfg.Enabled is false. The background sweep goroutine is
// tied to ctx and to Close.
func New[V any](ctx context.Context, cfg Config, options ...Option[V]) (Cache[V], error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.WrapValidation(err, "cache", "New", "config validation")
	}

	if !cfg.Enabled {
		return NewNoop[V](), nil
	}

	opts := applyOptions(options...)

	var metrics *cacheMetrics
	if opts.metricsReg != nil && opts.metricsPrefix != "" {
		var err error
		metrics, err = newCacheMetrics(opts.metricsReg, opts.metricsPrefix)
		if err != nil {
			return nil, errors.WrapUnknown(err, "cache", "New", "metrics registration")
		}
	}

	c := &expiringCache[V]{
		capacity:              cfg.Capacity,
		pressureThreshold:     cfg.PressureThreshold,
		pressureEvictFraction: cfg.PressureEvictFraction,
		items:                 make(map[string]*list.Element),
		order:                 list.New(),
		stats:                 NewStatistics(),
		metrics:               metrics,
		evictFn:               opts.evictCallback,
		sizer:                 opts.sizer,
		shutdown:              make(chan struct{}),
		done:                  make(chan struct{}),
	}

	go c.sweep(ctx, cfg.CleanupInterval)

	return c, nil
}

// Get retrieves a value by key, removing it if expired.
func (c *expiringCache[V]) Get(key string) (V, bool) {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	element, exists := c.items[key]
	if !exists {
		var zero V
		c.stats.Miss()
		if c.metrics != nil {
			c.metrics.recordMiss()
		}
		return zero, false
	}

	ent := element.Value.(*entry[V])

	if ent.isExpired(now) {
		c.removeElement(element)
		c.stats.Eviction()
		c.stats.Miss()
		c.updateUsage()
		if c.metrics != nil {
			c.metrics.recordEviction()
			c.metrics.recordMiss()
			c.metrics.updateUsage(len(c.items), c.memoryBytes)
		}

		var zero V
		return zero, false
	}

	ent.touch(now)
	c.order.MoveToFront(element)

	c.stats.Hit()
	if c.metrics != nil {
		c.metrics.recordHit()
	}

	return ent.value, true
}

// Set stores a value with the given key and TTL. Re-setting an existing key
// fully resets its metadata, including the access count.
func (c *expiringCache[V]) Set(key string, value V, ttl time.Duration) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if ttl < 0 {
		return errors.WrapValidation(errors.ErrInvalidData, "cache", "Set",
			fmt.Sprintf("ttl cannot be negative, got %v", ttl))
	}

	now := time.Now()
	cost := int64(len(key))*2 + int64(c.sizer(value))*2 + entryOverhead

	c.mu.Lock()
	defer c.mu.Unlock()

	if element, exists := c.items[key]; exists {
		ent := element.Value.(*entry[V])
		c.memoryBytes += cost - ent.cost

		ent.value = value
		ent.createdAt = now
		ent.ttl = ttl
		ent.accessCount = 0
		ent.lastAccessedAt = now
		ent.cost = cost
		c.order.MoveToFront(element)
	} else {
		// Evict the entry with the oldest last-access before inserting.
		if len(c.items) >= c.capacity {
			c.evictLRU()
		}

		ent := &entry[V]{
			key:            key,
			value:          value,
			createdAt:      now,
			ttl:            ttl,
			lastAccessedAt: now,
			cost:           cost,
		}
		c.items[key] = c.order.PushFront(ent)
		c.memoryBytes += cost
	}

	c.stats.Set()
	c.updateUsage()
	if c.metrics != nil {
		c.metrics.recordSet()
		c.metrics.updateUsage(len(c.items), c.memoryBytes)
	}

	return nil
}

// Has reports whether key holds a live entry without touching hit/miss
// counters or access metadata. An expired entry is removed.
func (c *expiringCache[V]) Has(key string) bool {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	element, exists := c.items[key]
	if !exists {
		return false
	}

	ent := element.Value.(*entry[V])
	if ent.isExpired(now) {
		c.removeElement(element)
		c.stats.Eviction()
		c.updateUsage()
		if c.metrics != nil {
			c.metrics.recordEviction()
			c.metrics.updateUsage(len(c.items), c.memoryBytes)
		}
		return false
	}

	return true
}

// Delete removes an entry by key.
func (c *expiringCache[V]) Delete(key string) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	element, exists := c.items[key]
	if !exists {
		return false, nil
	}

	c.removeElement(element)

	c.stats.Delete()
	c.updateUsage()
	if c.metrics != nil {
		c.metrics.recordDelete()
		c.metrics.updateUsage(len(c.items), c.memoryBytes)
	}

	return true, nil
}

// InvalidatePattern removes every entry whose key matches the glob pattern
// and returns the number removed.
func (c *expiringCache[V]) InvalidatePattern(pattern string) (int, error) {
	matcher, err := glob.Compile(pattern)
	if err != nil {
		return 0, errors.WrapValidation(err, "cache", "InvalidatePattern",
			fmt.Sprintf("compile pattern %q", pattern))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var matched []*list.Element
	for element := c.order.Front(); element != nil; element = element.Next() {
		if matcher.Match(element.Value.(*entry[V]).key) {
			matched = append(matched, element)
		}
	}

	for _, element := range matched {
		c.removeElement(element)
		c.stats.Delete()
		if c.metrics != nil {
			c.metrics.recordDelete()
		}
	}

	if len(matched) > 0 {
		c.updateUsage()
		if c.metrics != nil {
			c.metrics.updateUsage(len(c.items), c.memoryBytes)
		}
	}

	return len(matched), nil
}

// Clear removes all entries from the cache.
func (c *expiringCache[V]) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.evictFn != nil {
		for element := c.order.Back(); element != nil; element = element.Prev() {
			ent := element.Value.(*entry[V])
			c.evictFn(ent.key, ent.value)
		}
	}

	c.items = make(map[string]*list.Element)
	c.order.Init()
	c.memoryBytes = 0

	c.updateUsage()
	if c.metrics != nil {
		c.metrics.updateUsage(0, 0)
	}

	return nil
}

// Size returns the current number of entries in the cache.
func (c *expiringCache[V]) Size() int {
	c.mu.RLock()
	size := len(c.items)
	c.mu.RUnlock()
	return size
}

// Keys returns the keys of all live entries, most recently used first.
// Expired entries awaiting sweep are skipped.
func (c *expiringCache[V]) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make([]string, 0, len(c.items))
	now := time.Now()

	for element := c.order.Front(); element != nil; element = element.Next() {
		ent := element.Value.(*entry[V])
		if !ent.isExpired(now) {
			keys = append(keys, ent.key)
		}
	}
	return keys
}

// Stats returns cache statistics.
func (c *expiringCache[V]) Stats() *Statistics {
	return c.stats
}

// Close shuts down the cache and stops the background sweep goroutine.
func (c *expiringCache[V]) Close() error {
	select {
	case <-c.shutdown:
		// Already shutting down
	default:
		close(c.shutdown)
	}

	select {
	case <-c.done:
		return nil
	case <-time.After(5 * time.Second):
		return fmt.Errorf("timeout waiting for sweep goroutine to finish")
	}
}

// updateUsage pushes current occupancy into stats. Must be called with the
// mutex held.
func (c *expiringCache[V]) updateUsage() {
	c.stats.UpdateUsage(int64(len(c.items)), c.memoryBytes)
}

// evictLRU removes the entry with the oldest last-access time.
// Must be called with mutex held.
func (c *expiringCache[V]) evictLRU() {
	element := c.order.Back()
	if element != nil {
		c.removeElement(element)
		c.stats.Eviction()
		if c.metrics != nil {
			c.metrics.recordEviction()
		}
	}
}

// removeElement removes an element from both the list and map.
// Must be called with mutex held.
func (c *expiringCache[V]) removeElement(element *list.Element) {
	ent := element.Value.(*entry[V])
	delete(c.items, ent.key)
	c.order.Remove(element)
	c.memoryBytes -= ent.cost

	if c.evictFn != nil {
		// Callback must not call back into the cache; it runs with the
		// mutex held.
		defer c.evictFn(ent.key, ent.value)
	}
}

// sweep runs in a background goroutine, periodically removing expired
// entries and shedding cold entries while occupancy stays high.
func (c *expiringCache[V]) sweep(ctx context.Context, interval time.Duration) {
	defer close(c.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.shutdown:
			return
		case <-ticker.C:
			c.removeExpired()
			c.relievePressure()
		}
	}
}

// removeExpired removes all expired entries from the cache.
func (c *expiringCache[V]) removeExpired() {
	now := time.Now()
	evicted := 0

	c.mu.Lock()
	for element := c.order.Front(); element != nil; {
		next := element.Next()
		if element.Value.(*entry[V]).isExpired(now) {
			c.removeElement(element)
			evicted++
		}
		element = next
	}
	if evicted > 0 {
		for i := 0; i < evicted; i++ {
			c.stats.Eviction()
		}
		c.updateUsage()
		if c.metrics != nil {
			for i := 0; i < evicted; i++ {
				c.metrics.recordEviction()
			}
			c.metrics.updateUsage(len(c.items), c.memoryBytes)
		}
	}
	c.mu.Unlock()
}

// relievePressure sheds the coldest entries when a sweep leaves occupancy
// above the pressure threshold.
func (c *expiringCache[V]) relievePressure() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if float64(len(c.items)) <= float64(c.capacity)*c.pressureThreshold {
		return
	}

	toEvict := int(float64(len(c.items)) * c.pressureEvictFraction)
	if toEvict < 1 {
		toEvict = 1
	}

	for i := 0; i < toEvict; i++ {
		c.evictLRU()
	}
	c.updateUsage()
	if c.metrics != nil {
		c.metrics.updateUsage(len(c.items), c.memoryBytes)
	}
}
