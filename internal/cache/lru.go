// Package cache provides a bounded key-value store with least-recently-used
// eviction. It is a pure generic primitive with no knowledge of conversations.
package cache

import (
	"container/list"
	"fmt"
	"sync"
)

// entry is the element payload stored in the recency list.
type entry[K comparable, V any] struct {
	key   K
	value V
}

// LRU is a fixed-capacity key-value store. Both reads and writes promote the
// touched key to most-recently-used; inserting a new key at capacity evicts
// the single least-recently-used entry. All operations are O(1) amortized.
//
// An evicted value is silently and irrecoverably dropped. This is the
// designed trade-off of the store (bounded memory over completeness), not an
// error condition.
//
// LRU is safe for concurrent use by multiple goroutines.
type LRU[K comparable, V any] struct {
	mu       sync.Mutex
	capacity int
	items    map[K]*list.Element
	order    *list.List // front = most recently used
}

// New creates an LRU with the given capacity. Capacity must be at least 1;
// a capacity of 1 means every new distinct key evicts the previous one.
func New[K comparable, V any](capacity int) *LRU[K, V] {
	if capacity < 1 {
		panic(fmt.Sprintf("cache: capacity must be >= 1, got %d", capacity))
	}
	return &LRU[K, V]{
		capacity: capacity,
		items:    make(map[K]*list.Element, capacity),
		order:    list.New(),
	}
}

// Get returns the value stored under key and promotes the key to
// most-recently-used. A miss leaves the cache unchanged.
func (c *LRU[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.order.MoveToFront(elem)
	return elem.Value.(*entry[K, V]).value, true
}

// Set stores value under key. If the key already exists its value is
// replaced and the key is promoted to most-recently-used. If the key is new
// and the cache is full, the least-recently-used entry is evicted first.
func (c *LRU[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		elem.Value.(*entry[K, V]).value = value
		c.order.MoveToFront(elem)
		return
	}

	if len(c.items) >= c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.items, oldest.Value.(*entry[K, V]).key)
		}
	}

	c.items[key] = c.order.PushFront(&entry[K, V]{key: key, value: value})
}

// Len returns the current number of entries.
func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Keys returns the resident keys ordered from most to least recently used.
// Intended for diagnostics and tests.
func (c *LRU[K, V]) Keys() []K {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]K, 0, len(c.items))
	for elem := c.order.Front(); elem != nil; elem = elem.Next() {
		keys = append(keys, elem.Value.(*entry[K, V]).key)
	}
	return keys
}
