package btreemap

import (
	"iter"

	"github.com/calvinalkan/stable-structures/pkg/lru"
	"github.com/calvinalkan/stable-structures/pkg/memory"
	"github.com/calvinalkan/stable-structures/pkg/storable"
)

// CachedBTreeMap keeps recently read values of an [IterableMap] in an LRU
// cache so hot reads skip decoding.
//
// Writes go through to both the cache and the map. FirstKeyValue and
// LastKeyValue read the map directly and never populate the cache, and
// PopFirst and PopLast only evict the popped key. Iteration always reads the
// map.
type CachedBTreeMap[K comparable, V any] struct {
	inner IterableMap[K, V]
	cache *lru.Cache[K, V]
}

// NewCached resets mem and returns an empty map caching up to cacheItems
// values.
func NewCached[K comparable, V any](mem memory.Memory, keys storable.Key[K], values storable.Storable[V], cacheItems uint32) *CachedBTreeMap[K, V] {
	return NewCachedWithMap[K, V](New(mem, keys, values), cacheItems)
}

// InitCached reopens the map stored in mem with an empty cache. See [Init].
func InitCached[K comparable, V any](mem memory.Memory, keys storable.Key[K], values storable.Storable[V], cacheItems uint32) *CachedBTreeMap[K, V] {
	return NewCachedWithMap[K, V](Init(mem, keys, values), cacheItems)
}

// NewCachedWithMap wraps inner with a cache of cacheItems entries. The
// caller must not modify inner directly afterwards. Panics if cacheItems is 0.
func NewCachedWithMap[K comparable, V any](inner IterableMap[K, V], cacheItems uint32) *CachedBTreeMap[K, V] {
	return &CachedBTreeMap[K, V]{inner: inner, cache: lru.New[K, V](cacheItems)}
}

// Inner returns the wrapped map.
func (c *CachedBTreeMap[K, V]) Inner() IterableMap[K, V] {
	return c.inner
}

// CachedLen returns the number of cached values.
func (c *CachedBTreeMap[K, V]) CachedLen() int {
	return c.cache.Len()
}

// Get returns the cached value or reads it from the map and caches it.
// Missing keys are not cached.
func (c *CachedBTreeMap[K, V]) Get(key K) (V, bool) {
	return c.cache.GetOrInsertWith(key, c.inner.Get)
}

// Insert writes value to the cache and the map and returns the map's
// previous value.
func (c *CachedBTreeMap[K, V]) Insert(key K, value V) (V, bool) {
	prev, ok := c.inner.Insert(key, value)
	c.cache.Insert(key, value)

	return prev, ok
}

// Remove implements [Map].
func (c *CachedBTreeMap[K, V]) Remove(key K) (V, bool) {
	c.cache.Remove(key)

	return c.inner.Remove(key)
}

// PopFirst implements [Map].
func (c *CachedBTreeMap[K, V]) PopFirst() (K, V, bool) {
	k, v, ok := c.inner.PopFirst()
	if ok {
		c.cache.Remove(k)
	}

	return k, v, ok
}

// PopLast implements [Map].
func (c *CachedBTreeMap[K, V]) PopLast() (K, V, bool) {
	k, v, ok := c.inner.PopLast()
	if ok {
		c.cache.Remove(k)
	}

	return k, v, ok
}

// ContainsKey implements [Map].
func (c *CachedBTreeMap[K, V]) ContainsKey(key K) bool {
	return c.cache.ContainsKey(key) || c.inner.ContainsKey(key)
}

// FirstKeyValue reads the map directly.
func (c *CachedBTreeMap[K, V]) FirstKeyValue() (K, V, bool) {
	return c.inner.FirstKeyValue()
}

// LastKeyValue reads the map directly.
func (c *CachedBTreeMap[K, V]) LastKeyValue() (K, V, bool) {
	return c.inner.LastKeyValue()
}

// Len implements [Map].
func (c *CachedBTreeMap[K, V]) Len() uint64 {
	return c.inner.Len()
}

// IsEmpty implements [Map].
func (c *CachedBTreeMap[K, V]) IsEmpty() bool {
	return c.cache.IsEmpty() && c.inner.IsEmpty()
}

// Clear empties the cache and the map.
func (c *CachedBTreeMap[K, V]) Clear() {
	c.cache.Clear()
	c.inner.Clear()
}

// Iter implements [IterableMap].
func (c *CachedBTreeMap[K, V]) Iter() iter.Seq2[K, V] {
	return c.inner.Iter()
}

// Range implements [IterableMap].
func (c *CachedBTreeMap[K, V]) Range(start, end Bound[K]) iter.Seq2[K, V] {
	return c.inner.Range(start, end)
}

// IterFromPrevKey implements [IterableMap].
func (c *CachedBTreeMap[K, V]) IterFromPrevKey(bound K) iter.Seq2[K, V] {
	return c.inner.IterFromPrevKey(bound)
}

var _ IterableMap[string, string] = (*CachedBTreeMap[string, string])(nil)
