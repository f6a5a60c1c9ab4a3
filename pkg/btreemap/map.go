// Package btreemap provides ordered maps persisted in a [memory.Memory].
//
// [BTreeMap] is the persistent implementation. [CachedBTreeMap] and
// [VersionedBTreeMap] decorate any [IterableMap] and can be stacked.
//
// Maps are not safe for concurrent use, and must not be modified while an
// iterator returned by Iter, Range or IterFromPrevKey is being consumed.
package btreemap

import "iter"

// Map is an ordered key-value map.
//
// Precondition violations (keys or values whose encoding exceeds the declared
// bound) panic. Absence is reported as (zero, false).
type Map[K, V any] interface {
	// Get returns the value stored under key.
	Get(key K) (V, bool)

	// Insert stores value under key and returns the previous value.
	Insert(key K, value V) (V, bool)

	// Remove deletes key and returns the value it held.
	Remove(key K) (V, bool)

	// PopFirst removes and returns the entry with the smallest key.
	PopFirst() (K, V, bool)

	// PopLast removes and returns the entry with the largest key.
	PopLast() (K, V, bool)

	ContainsKey(key K) bool

	// FirstKeyValue returns the entry with the smallest key without removing it.
	FirstKeyValue() (K, V, bool)

	// LastKeyValue returns the entry with the largest key without removing it.
	LastKeyValue() (K, V, bool)

	Len() uint64
	IsEmpty() bool

	// Clear removes every entry.
	Clear()
}

// IterableMap is a [Map] with ordered iteration.
type IterableMap[K, V any] interface {
	Map[K, V]

	// Iter yields every entry in ascending key order.
	Iter() iter.Seq2[K, V]

	// Range yields the entries with keys between start and end in ascending
	// order.
	Range(start, end Bound[K]) iter.Seq2[K, V]

	// IterFromPrevKey yields entries in ascending order, starting at the
	// largest key strictly less than bound. It yields nothing if no key is
	// less than bound.
	IterFromPrevKey(bound K) iter.Seq2[K, V]
}

// BoundKind tells how a [Bound] limits a range.
type BoundKind uint8

const (
	// BoundUnbounded places no limit on that side of the range.
	BoundUnbounded BoundKind = iota
	// BoundIncluded includes the bound key.
	BoundIncluded
	// BoundExcluded excludes the bound key.
	BoundExcluded
)

// Bound is one end of a key range.
type Bound[K any] struct {
	Kind BoundKind
	Key  K
}

// Included returns a bound that includes key.
func Included[K any](key K) Bound[K] {
	return Bound[K]{Kind: BoundIncluded, Key: key}
}

// Excluded returns a bound that excludes key.
func Excluded[K any](key K) Bound[K] {
	return Bound[K]{Kind: BoundExcluded, Key: key}
}

// Unbounded returns an open bound.
func Unbounded[K any]() Bound[K] {
	return Bound[K]{}
}

// admitsFromBelow reports whether c = compare(key, start.Key) places key inside
// the range on the start side.
func (b Bound[K]) admitsFromBelow(c int) bool {
	switch b.Kind {
	case BoundIncluded:
		return c >= 0
	case BoundExcluded:
		return c > 0
	default:
		return true
	}
}

// admitsFromAbove reports whether c = compare(key, end.Key) places key inside
// the range on the end side.
func (b Bound[K]) admitsFromAbove(c int) bool {
	switch b.Kind {
	case BoundIncluded:
		return c <= 0
	case BoundExcluded:
		return c < 0
	default:
		return true
	}
}
