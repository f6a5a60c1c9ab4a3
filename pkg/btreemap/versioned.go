package btreemap

import (
	"iter"

	"github.com/calvinalkan/stable-structures/pkg/codec"
	"github.com/calvinalkan/stable-structures/pkg/memory"
	"github.com/calvinalkan/stable-structures/pkg/storable"
)

// VersionedBTreeMap stores values in a versioned representation S and
// exposes them in their canonical shape D.
//
// Reads decode whatever layout is stored; writes always store the layout the
// codec encodes to. Reading a legacy record never rewrites it.
type VersionedBTreeMap[K, S, D any] struct {
	inner IterableMap[K, S]
	codec codec.Codec[S, D]
}

// NewVersioned resets mem and returns an empty versioned map.
func NewVersioned[K, S, D any](mem memory.Memory, keys storable.Key[K], stored storable.Storable[S], c codec.Codec[S, D]) *VersionedBTreeMap[K, S, D] {
	return NewVersionedWithMap[K, S, D](New(mem, keys, stored), c)
}

// InitVersioned reopens the map stored in mem. See [Init].
func InitVersioned[K, S, D any](mem memory.Memory, keys storable.Key[K], stored storable.Storable[S], c codec.Codec[S, D]) *VersionedBTreeMap[K, S, D] {
	return NewVersionedWithMap[K, S, D](Init(mem, keys, stored), c)
}

// NewVersionedWithMap wraps inner, which may itself be a decorator such as a
// [CachedBTreeMap].
func NewVersionedWithMap[K, S, D any](inner IterableMap[K, S], c codec.Codec[S, D]) *VersionedBTreeMap[K, S, D] {
	return &VersionedBTreeMap[K, S, D]{inner: inner, codec: c}
}

// Inner returns the wrapped map of stored values.
func (m *VersionedBTreeMap[K, S, D]) Inner() IterableMap[K, S] {
	return m.inner
}

func (m *VersionedBTreeMap[K, S, D]) decode(s S, ok bool) (D, bool) {
	if !ok {
		var zero D
		return zero, false
	}

	return codec.Decode(m.codec, s), true
}

func (m *VersionedBTreeMap[K, S, D]) decodeEntry(k K, s S, ok bool) (K, D, bool) {
	d, ok := m.decode(s, ok)
	return k, d, ok
}

// Get implements [Map].
func (m *VersionedBTreeMap[K, S, D]) Get(key K) (D, bool) {
	return m.decode(m.inner.Get(key))
}

// Insert encodes value and returns the decoded previous value.
func (m *VersionedBTreeMap[K, S, D]) Insert(key K, value D) (D, bool) {
	return m.decode(m.inner.Insert(key, m.codec.Encode(value)))
}

// Remove implements [Map].
func (m *VersionedBTreeMap[K, S, D]) Remove(key K) (D, bool) {
	return m.decode(m.inner.Remove(key))
}

// PopFirst implements [Map].
func (m *VersionedBTreeMap[K, S, D]) PopFirst() (K, D, bool) {
	return m.decodeEntry(m.inner.PopFirst())
}

// PopLast implements [Map].
func (m *VersionedBTreeMap[K, S, D]) PopLast() (K, D, bool) {
	return m.decodeEntry(m.inner.PopLast())
}

// ContainsKey implements [Map].
func (m *VersionedBTreeMap[K, S, D]) ContainsKey(key K) bool {
	return m.inner.ContainsKey(key)
}

// FirstKeyValue implements [Map].
func (m *VersionedBTreeMap[K, S, D]) FirstKeyValue() (K, D, bool) {
	return m.decodeEntry(m.inner.FirstKeyValue())
}

// LastKeyValue implements [Map].
func (m *VersionedBTreeMap[K, S, D]) LastKeyValue() (K, D, bool) {
	return m.decodeEntry(m.inner.LastKeyValue())
}

// Len implements [Map].
func (m *VersionedBTreeMap[K, S, D]) Len() uint64 {
	return m.inner.Len()
}

// IsEmpty implements [Map].
func (m *VersionedBTreeMap[K, S, D]) IsEmpty() bool {
	return m.inner.IsEmpty()
}

// Clear implements [Map].
func (m *VersionedBTreeMap[K, S, D]) Clear() {
	m.inner.Clear()
}

// Iter implements [IterableMap].
func (m *VersionedBTreeMap[K, S, D]) Iter() iter.Seq2[K, D] {
	return m.decodeSeq(m.inner.Iter())
}

// Range implements [IterableMap].
func (m *VersionedBTreeMap[K, S, D]) Range(start, end Bound[K]) iter.Seq2[K, D] {
	return m.decodeSeq(m.inner.Range(start, end))
}

// IterFromPrevKey implements [IterableMap].
func (m *VersionedBTreeMap[K, S, D]) IterFromPrevKey(bound K) iter.Seq2[K, D] {
	return m.decodeSeq(m.inner.IterFromPrevKey(bound))
}

func (m *VersionedBTreeMap[K, S, D]) decodeSeq(seq iter.Seq2[K, S]) iter.Seq2[K, D] {
	return func(yield func(K, D) bool) {
		for k, s := range seq {
			if !yield(k, *m.codec.DecodeRef(&s)) {
				return
			}
		}
	}
}

var _ IterableMap[string, int] = (*VersionedBTreeMap[string, int, int])(nil)
