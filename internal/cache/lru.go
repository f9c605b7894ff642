package cache

import (
	"container/list"
	"sync"
	"time"
)

// LRU holds up to capacity values. Reads refresh recency; entries older than
// ttl read as missing and are dropped by RemoveExpired.
type LRU[T any] struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	now      func() time.Time

	index map[string]*list.Element // key -> element in order
	order *list.List               // front is most recently used
	stats Stats
}

type entry[T any] struct {
	key     string
	value   T
	expires time.Time
}

// Stats counts cache traffic since creation.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64 // capacity and expiry removals
}

// LRUOption configures an LRU.
type LRUOption func(*lruOptions)

type lruOptions struct {
	now func() time.Time
}

// WithClock sets the time source used for expiry.
func WithClock(now func() time.Time) LRUOption {
	return func(o *lruOptions) { o.now = now }
}

// NewLRU returns an empty cache. A capacity below one is raised to one.
func NewLRU[T any](capacity int, ttl time.Duration, opts ...LRUOption) *LRU[T] {
	o := lruOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &LRU[T]{
		capacity: max(capacity, 1),
		ttl:      ttl,
		now:      o.now,
		index:    make(map[string]*list.Element),
		order:    list.New(),
	}
}

func (c *LRU[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e := c.lookup(key); e != nil {
		c.stats.Hits++
		return e.value, true
	}
	c.stats.Misses++
	var zero T
	return zero, false
}

func (c *LRU[T]) Set(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expires := c.now().Add(c.ttl)
	if el, ok := c.index[key]; ok {
		e := el.Value.(*entry[T])
		e.value, e.expires = value, expires
		c.order.MoveToFront(el)
		return
	}

	c.index[key] = c.order.PushFront(&entry[T]{key: key, value: value, expires: expires})
	for c.order.Len() > c.capacity {
		c.remove(c.order.Back())
	}
}

func (c *LRU[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.index[key]; ok {
		c.order.Remove(el)
		delete(c.index, key)
	}
}

// RemoveExpired drops every expired entry and reports how many went.
func (c *LRU[T]) RemoveExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now, removed := c.now(), 0
	for el := c.order.Back(); el != nil; {
		prev := el.Prev()
		if now.After(el.Value.(*entry[T]).expires) {
			c.remove(el)
			removed++
		}
		el = prev
	}
	return removed
}

func (c *LRU[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *LRU[T]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// lookup returns the live entry for key and marks it most recently used.
// An expired entry is removed and reported as absent.
func (c *LRU[T]) lookup(key string) *entry[T] {
	el, ok := c.index[key]
	if !ok {
		return nil
	}
	e := el.Value.(*entry[T])
	if c.now().After(e.expires) {
		c.remove(el)
		return nil
	}
	c.order.MoveToFront(el)
	return e
}

func (c *LRU[T]) remove(el *list.Element) {
	c.order.Remove(el)
	delete(c.index, el.Value.(*entry[T]).key)
	c.stats.Evictions++
}
