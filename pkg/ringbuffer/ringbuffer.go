// Package ringbuffer provides a fixed-capacity FIFO over a persistent vector.
//
// A [RingBuffer] keeps its elements in a [vec.Vec] of at most Capacity slots
// and its window in a [cell.Cell] holding an [Indices] record. Pushing into a
// full buffer overwrites the oldest slot and returns the evicted value.
// Slots outside the window may hold stale data; they are never read.
package ringbuffer

import (
	"fmt"
	"iter"

	"github.com/calvinalkan/stable-structures/pkg/cell"
	"github.com/calvinalkan/stable-structures/pkg/memory"
	"github.com/calvinalkan/stable-structures/pkg/storable"
	"github.com/calvinalkan/stable-structures/pkg/vec"
)

// RingBuffer is a FIFO of at most Capacity elements.
type RingBuffer[T any] struct {
	data    vec.Vec[T]
	indices cell.Cell[Indices]
}

// New resets both memories and returns an empty buffer with the given
// capacity. Panics if capacity is 0 or values is unbounded.
func New[T any](dataMem, indicesMem memory.Memory, values storable.Storable[T], capacity uint64) *RingBuffer[T] {
	ix := NewIndices(capacity)

	return NewWith(vec.New(dataMem, values), cell.NewStableCell(indicesMem, IndicesStorable(), ix))
}

// Init reopens a buffer stored in dataMem and indicesMem. capacity is used
// only when indicesMem is empty; a stored buffer keeps its own capacity.
// Panics if either memory holds something else.
func Init[T any](dataMem, indicesMem memory.Memory, values storable.Storable[T], capacity uint64) *RingBuffer[T] {
	ix := NewIndices(capacity)

	return NewWith(vec.Init(dataMem, values), cell.InitStableCell(indicesMem, IndicesStorable(), ix))
}

// NewWith assembles a buffer from an existing vector and indices cell.
// Panics if the vector holds more slots than the indices allow.
func NewWith[T any](data vec.Vec[T], indices cell.Cell[Indices]) *RingBuffer[T] {
	ix := indices.Get()

	if data.Len() > ix.Capacity() {
		panic(fmt.Sprintf("ringbuffer: %d data slots exceed capacity %d", data.Len(), ix.Capacity()))
	}

	if ix.Len() > data.Len() {
		panic(fmt.Sprintf("ringbuffer: window of %d elements over %d data slots", ix.Len(), data.Len()))
	}

	return &RingBuffer[T]{data: data, indices: indices}
}

// Len returns the number of elements.
func (r *RingBuffer[T]) Len() uint64 {
	return r.indices.Get().Len()
}

// IsEmpty reports whether the buffer holds no elements.
func (r *RingBuffer[T]) IsEmpty() bool {
	return r.indices.Get().IsEmpty()
}

// Capacity returns the maximum number of elements.
func (r *RingBuffer[T]) Capacity() uint64 {
	return r.indices.Get().Capacity()
}

// Indices returns the current window.
func (r *RingBuffer[T]) Indices() Indices {
	return r.indices.Get()
}

// Push appends value as the newest element. If the buffer was full, the
// oldest element is overwritten and returned.
func (r *RingBuffer[T]) Push(value T) (T, bool) {
	ix := r.indices.Get()
	slot := ix.OffsetToIndex(ix.Len())

	var (
		evicted T
		ok      bool
	)

	if ix.IsFull() {
		evicted, ok = r.data.Get(slot)
		ix.IncreaseStart(1)
	} else {
		ix.IncreaseLen(1)
	}

	if slot == r.data.Len() {
		r.data.Push(value)
	} else {
		r.data.Set(slot, value)
	}

	r.indices.Set(ix)

	return evicted, ok
}

// Pop removes and returns the newest element.
func (r *RingBuffer[T]) Pop() (T, bool) {
	ix := r.indices.Get()
	if ix.IsEmpty() {
		var zero T
		return zero, false
	}

	ix.DecreaseLen(1)
	value, ok := r.data.Get(ix.OffsetToIndex(ix.Len()))

	r.indices.Set(ix)

	return value, ok
}

// Truncate drops the n newest elements. The data slots are left in place and
// reused by later pushes.
func (r *RingBuffer[T]) Truncate(n uint64) {
	ix := r.indices.Get()
	ix.DecreaseLen(n)
	r.indices.Set(ix)
}

// NthElement returns the n-th oldest element; 0 is the oldest.
func (r *RingBuffer[T]) NthElement(n uint64) (T, bool) {
	slot, ok := r.indices.Get().NthElement(n)
	if !ok {
		var zero T
		return zero, false
	}

	return r.data.Get(slot)
}

// NthElementFromEnd returns the n-th newest element; 0 is the newest.
func (r *RingBuffer[T]) NthElementFromEnd(n uint64) (T, bool) {
	slot, ok := r.indices.Get().NthElementFromEnd(n)
	if !ok {
		var zero T
		return zero, false
	}

	return r.data.Get(slot)
}

// First returns the oldest element.
func (r *RingBuffer[T]) First() (T, bool) {
	return r.NthElement(0)
}

// Last returns the newest element.
func (r *RingBuffer[T]) Last() (T, bool) {
	return r.NthElementFromEnd(0)
}

// All yields the elements from oldest to newest. The buffer must not be
// modified during iteration.
func (r *RingBuffer[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		ix := r.indices.Get()

		for i := range ix.Len() {
			v, ok := r.data.Get(ix.OffsetToIndex(i))
			if !ok || !yield(v) {
				return
			}
		}
	}
}

// Resize changes the capacity. When shrinking, the oldest surplus elements
// are dropped; the rest keep their order. Every kept element is rewritten,
// so Resize costs O(min(Len, newCapacity)). Panics if newCapacity is 0.
func (r *RingBuffer[T]) Resize(newCapacity uint64) {
	if newCapacity == 0 {
		panic("ringbuffer: capacity must be > 0")
	}

	ix := r.indices.Get()
	if ix.Capacity() == newCapacity {
		return
	}

	keep := min(ix.Len(), newCapacity)
	kept := make([]T, 0, keep)

	for i := ix.Len() - keep; i < ix.Len(); i++ {
		v, ok := r.data.Get(ix.OffsetToIndex(i))
		if !ok {
			panic(fmt.Sprintf("ringbuffer: element %d should be present", i))
		}

		kept = append(kept, v)
	}

	r.data.Clear()

	for _, v := range kept {
		r.data.Push(v)
	}

	next := NewIndices(newCapacity)
	next.IncreaseLen(keep)
	r.indices.Set(next)
}

// Clear removes every element and keeps the capacity.
func (r *RingBuffer[T]) Clear() {
	r.indices.Set(NewIndices(r.Capacity()))
	r.data.Clear()
}
