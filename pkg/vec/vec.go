// Package vec provides a growable, integer-indexed vector persisted in a
// memory.
package vec

import (
	"encoding/binary"
	"fmt"
	"iter"

	"github.com/calvinalkan/stable-structures/internal/layout"
	"github.com/calvinalkan/stable-structures/pkg/memory"
	"github.com/calvinalkan/stable-structures/pkg/storable"
)

// Vec is an integer-indexed sequence.
type Vec[T any] interface {
	IsEmpty() bool

	// Clear removes every element.
	Clear()

	Len() uint64

	// Set replaces the element at index. Panics if index >= Len().
	Set(index uint64, value T)

	// Get returns the element at index, or false if index >= Len().
	Get(index uint64) (T, bool)

	// Push appends value.
	Push(value T)

	// Pop removes and returns the last element.
	Pop() (T, bool)
}

const (
	svcMagic      = "SVC"
	svcVersion    = 1
	svcHeaderSize = 32

	offMaxSize = 0x04 // uint32
	offFlags   = 0x08 // uint32
	offLen     = 0x10 // uint64

	flagFixed uint32 = 1 << 0

	// Variable-size elements carry a u32 length prefix in their slot.
	lenPrefixSize = 4
)

// StableVec stores elements of a bounded type in fixed-width slots.
//
// Header layout (little-endian): magic "SVC", version u8, element max size
// u32 at 0x04, flags u32 at 0x08, length u64 at 0x10. Slots start at 0x20.
type StableVec[T any] struct {
	mem      memory.Memory
	values   storable.Storable[T]
	slotSize uint64
	length   uint64
}

// New resets mem and returns an empty vector. Panics if values is unbounded.
func New[T any](mem memory.Memory, values storable.Storable[T]) *StableVec[T] {
	v := newVec(mem, values)

	layout.MustWrite(mem, 0, make([]byte, svcHeaderSize))
	layout.WriteMagic(mem, svcMagic, svcVersion)
	layout.WriteU32(mem, offMaxSize, values.Bound().MaxSize)
	layout.WriteU32(mem, offFlags, v.flags())

	return v
}

// Init reopens the vector stored in mem, or creates one if mem is empty.
// Panics if mem holds anything else or the element bound changed.
func Init[T any](mem memory.Memory, values storable.Storable[T]) *StableVec[T] {
	if mem.Size() == 0 {
		return New(mem, values)
	}

	v := newVec(mem, values)

	layout.CheckMagic("vec", mem, svcMagic, svcVersion)

	maxSize := layout.ReadU32(mem, offMaxSize)
	flags := layout.ReadU32(mem, offFlags)

	if maxSize != values.Bound().MaxSize || flags != v.flags() {
		panic(fmt.Sprintf("vec: stored element bound %d (flags %d) does not match %d (flags %d)",
			maxSize, flags, values.Bound().MaxSize, v.flags()))
	}

	v.length = layout.ReadU64(mem, offLen)

	if svcHeaderSize+v.length*v.slotSize > memory.Bytes(mem) {
		panic(fmt.Sprintf("vec: length %d exceeds memory size", v.length))
	}

	return v
}

func newVec[T any](mem memory.Memory, values storable.Storable[T]) *StableVec[T] {
	b := values.Bound()
	if !b.IsBounded() {
		panic("vec: element type must be bounded")
	}

	slot := uint64(b.MaxSize)
	if !b.IsFixedSize {
		slot += lenPrefixSize
	}

	return &StableVec[T]{mem: mem, values: values, slotSize: slot}
}

func (v *StableVec[T]) flags() uint32 {
	if v.values.Bound().IsFixedSize {
		return flagFixed
	}

	return 0
}

func (v *StableVec[T]) slotOffset(index uint64) uint64 {
	return svcHeaderSize + index*v.slotSize
}

func (v *StableVec[T]) setLen(n uint64) {
	v.length = n
	layout.WriteU64(v.mem, offLen, n)
}

func (v *StableVec[T]) writeSlot(index uint64, value T) {
	b := v.values.Encode(value)
	storable.CheckBound("vec element", v.values.Bound(), len(b))

	var buf []byte
	if v.values.Bound().IsFixedSize {
		buf = b
	} else {
		buf = make([]byte, lenPrefixSize+len(b))
		binary.LittleEndian.PutUint32(buf, uint32(len(b)))
		copy(buf[lenPrefixSize:], b)
	}

	layout.MustWrite(v.mem, v.slotOffset(index), buf)
}

func (v *StableVec[T]) readSlot(index uint64) T {
	off := v.slotOffset(index)

	if v.values.Bound().IsFixedSize {
		buf := make([]byte, v.slotSize)
		v.mem.Read(off, buf)

		return v.values.Decode(buf)
	}

	n := layout.ReadU32(v.mem, off)
	if uint64(n)+lenPrefixSize > v.slotSize {
		panic(fmt.Sprintf("vec: corrupt element length %d at index %d", n, index))
	}

	buf := make([]byte, n)
	v.mem.Read(off+lenPrefixSize, buf)

	return v.values.Decode(buf)
}

// Memory returns the memory the vector is stored in.
func (v *StableVec[T]) Memory() memory.Memory {
	return v.mem
}

// IsEmpty implements [Vec].
func (v *StableVec[T]) IsEmpty() bool {
	return v.length == 0
}

// Clear implements [Vec]. The memory keeps its size.
func (v *StableVec[T]) Clear() {
	v.setLen(0)
}

// Len implements [Vec].
func (v *StableVec[T]) Len() uint64 {
	return v.length
}

// Set implements [Vec].
func (v *StableVec[T]) Set(index uint64, value T) {
	if index >= v.length {
		panic(fmt.Sprintf("vec: index %d out of range (len %d)", index, v.length))
	}

	v.writeSlot(index, value)
}

// Get implements [Vec].
func (v *StableVec[T]) Get(index uint64) (T, bool) {
	if index >= v.length {
		var zero T
		return zero, false
	}

	return v.readSlot(index), true
}

// Push implements [Vec]. Panics if the memory cannot grow.
func (v *StableVec[T]) Push(value T) {
	v.writeSlot(v.length, value)
	v.setLen(v.length + 1)
}

// Pop implements [Vec].
func (v *StableVec[T]) Pop() (T, bool) {
	if v.length == 0 {
		var zero T
		return zero, false
	}

	value := v.readSlot(v.length - 1)
	v.setLen(v.length - 1)

	return value, true
}

// Iter yields the elements in index order.
func (v *StableVec[T]) Iter() iter.Seq[T] {
	return func(yield func(T) bool) {
		for i := range v.length {
			if !yield(v.readSlot(i)) {
				return
			}
		}
	}
}

var _ Vec[int] = (*StableVec[int])(nil)
