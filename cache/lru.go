package cache

import "container/list"

// DefaultMaxEntries is the LRU capacity used when none is given.
const DefaultMaxEntries = 50

type lruEntry[K comparable, V any] struct {
	key   K
	value V
}

// LRU is a bounded least-recently-used cache. It is an optimization
// only: every value must be recomputable from source media, so losing
// an entry is never observable as incorrect output. Not safe for
// concurrent use on its own; FrameCache adds the locking.
type LRU[K comparable, V any] struct {
	maxEntries int
	ll         *list.List
	items      map[K]*list.Element
}

// NewLRU creates a cache holding at most maxEntries values.
func NewLRU[K comparable, V any](maxEntries int) *LRU[K, V] {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &LRU[K, V]{
		maxEntries: maxEntries,
		ll:         list.New(),
		items:      make(map[K]*list.Element, maxEntries),
	}
}

// Get returns the cached value and promotes it to most recently used.
// A miss is not an error.
func (c *LRU[K, V]) Get(key K) (V, bool) {
	if el, ok := c.items[key]; ok {
		c.ll.MoveToFront(el)
		return el.Value.(*lruEntry[K, V]).value, true
	}
	var zero V
	return zero, false
}

// Put inserts or updates a value. Updating an existing key refreshes
// recency without growing the cache; at capacity the least recently
// used entry is evicted first.
func (c *LRU[K, V]) Put(key K, value V) {
	if el, ok := c.items[key]; ok {
		c.ll.MoveToFront(el)
		el.Value.(*lruEntry[K, V]).value = value
		return
	}
	el := c.ll.PushFront(&lruEntry[K, V]{key: key, value: value})
	c.items[key] = el
	if c.ll.Len() > c.maxEntries {
		c.evictOldest()
	}
}

// Has reports presence without touching recency.
func (c *LRU[K, V]) Has(key K) bool {
	_, ok := c.items[key]
	return ok
}

// Delete removes a key if present.
func (c *LRU[K, V]) Delete(key K) {
	if el, ok := c.items[key]; ok {
		c.ll.Remove(el)
		delete(c.items, key)
	}
}

// Clear drops every entry.
func (c *LRU[K, V]) Clear() {
	c.ll.Init()
	c.items = make(map[K]*list.Element, c.maxEntries)
}

// Len returns the number of cached entries.
func (c *LRU[K, V]) Len() int {
	return c.ll.Len()
}

func (c *LRU[K, V]) evictOldest() {
	el := c.ll.Back()
	if el == nil {
		return
	}
	c.ll.Remove(el)
	delete(c.items, el.Value.(*lruEntry[K, V]).key)
}
