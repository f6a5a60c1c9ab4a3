// Package lru provides a fixed-capacity least-recently-used cache.
//
// The cache is a thin layer over hashicorp/golang-lru's simplelru with the
// read-through and write-through operations the cached map needs. It is not
// safe for concurrent use.
package lru

import (
	"fmt"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// Cache holds at most Capacity entries. Inserting into a full cache evicts the
// least recently accessed entry.
type Cache[K comparable, V any] struct {
	lru      *simplelru.LRU[K, V]
	capacity uint32
}

// New returns an empty cache. Panics if capacity is 0.
func New[K comparable, V any](capacity uint32) *Cache[K, V] {
	if capacity == 0 {
		panic("lru: capacity must be > 0")
	}

	l, err := simplelru.NewLRU[K, V](int(capacity), nil)
	if err != nil {
		panic(fmt.Sprintf("lru: %v", err))
	}

	return &Cache[K, V]{lru: l, capacity: capacity}
}

// Capacity returns the maximum number of entries.
func (c *Cache[K, V]) Capacity() uint32 {
	return c.capacity
}

// Get returns the cached value and marks it most recently used.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	return c.lru.Get(key)
}

// GetOrInsertWith returns the cached value for key. On a miss it calls compute
// and caches the result if compute reports one. Absent results are not
// cached.
func (c *Cache[K, V]) GetOrInsertWith(key K, compute func(K) (V, bool)) (V, bool) {
	if v, ok := c.lru.Get(key); ok {
		return v, true
	}

	v, ok := compute(key)
	if ok {
		c.lru.Add(key, v)
	}

	return v, ok
}

// Insert caches value under key and returns the previously cached value.
func (c *Cache[K, V]) Insert(key K, value V) (V, bool) {
	prev, ok := c.lru.Peek(key)
	c.lru.Add(key, value)

	return prev, ok
}

// Remove drops key and returns the value it held.
func (c *Cache[K, V]) Remove(key K) (V, bool) {
	prev, ok := c.lru.Peek(key)
	if ok {
		c.lru.Remove(key)
	}

	return prev, ok
}

// ContainsKey reports whether key is cached without updating recency.
func (c *Cache[K, V]) ContainsKey(key K) bool {
	return c.lru.Contains(key)
}

// Len returns the number of cached entries.
func (c *Cache[K, V]) Len() int {
	return c.lru.Len()
}

// IsEmpty reports whether the cache holds no entries.
func (c *Cache[K, V]) IsEmpty() bool {
	return c.lru.Len() == 0
}

// Clear drops every entry.
func (c *Cache[K, V]) Clear() {
	c.lru.Purge()
}
