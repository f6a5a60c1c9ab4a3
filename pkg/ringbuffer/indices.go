package ringbuffer

import (
	"encoding/binary"
	"fmt"

	"github.com/calvinalkan/stable-structures/pkg/storable"
)

// Indices tracks the logical window of a ring buffer over its data slots.
//
// The window starts at slot Start and spans Len slots, wrapping at Capacity.
type Indices struct {
	start    uint64
	len      uint64
	capacity uint64
}

// NewIndices returns empty indices for capacity slots. Panics if capacity is 0.
func NewIndices(capacity uint64) Indices {
	if capacity == 0 {
		panic("ringbuffer: capacity must be > 0")
	}

	return Indices{capacity: capacity}
}

// Start returns the slot of the oldest element.
func (ix Indices) Start() uint64 {
	return ix.start
}

// Len returns the number of elements in the window.
func (ix Indices) Len() uint64 {
	return ix.len
}

// Capacity returns the number of slots.
func (ix Indices) Capacity() uint64 {
	return ix.capacity
}

// IsEmpty reports whether the window is empty.
func (ix Indices) IsEmpty() bool {
	return ix.len == 0
}

// IsFull reports whether the window covers every slot.
func (ix Indices) IsFull() bool {
	return ix.len == ix.capacity
}

// OffsetToIndex maps an offset from Start to a slot.
func (ix Indices) OffsetToIndex(offset uint64) uint64 {
	return (ix.start + offset) % ix.capacity
}

// NthElement returns the slot of the n-th oldest element.
func (ix Indices) NthElement(n uint64) (uint64, bool) {
	if n >= ix.len {
		return 0, false
	}

	return ix.OffsetToIndex(n), true
}

// NthElementFromEnd returns the slot of the n-th newest element; 0 is the
// newest.
func (ix Indices) NthElementFromEnd(n uint64) (uint64, bool) {
	if n >= ix.len {
		return 0, false
	}

	return ix.OffsetToIndex(ix.len - (n + 1)), true
}

// IncreaseLen grows the window by n, saturating at Capacity.
func (ix *Indices) IncreaseLen(n uint64) {
	ix.len = min(ix.len+n, ix.capacity)
}

// DecreaseLen shrinks the window by n, saturating at 0.
func (ix *Indices) DecreaseLen(n uint64) {
	if n > ix.len {
		ix.len = 0
		return
	}

	ix.len -= n
}

// IncreaseStart moves Start forward by n slots, wrapping at Capacity.
func (ix *Indices) IncreaseStart(n uint64) {
	ix.start = (ix.start + n%ix.capacity) % ix.capacity
}

const indicesSize = 24

type indicesStorable struct{}

// IndicesStorable returns the 24-byte encoding of [Indices]: start, len and
// capacity as little-endian u64.
func IndicesStorable() storable.Storable[Indices] {
	return indicesStorable{}
}

func (indicesStorable) Bound() storable.Bound {
	return storable.Bound{MaxSize: indicesSize, IsFixedSize: true}
}

func (indicesStorable) Encode(ix Indices) []byte {
	buf := make([]byte, 0, indicesSize)
	buf = binary.LittleEndian.AppendUint64(buf, ix.start)
	buf = binary.LittleEndian.AppendUint64(buf, ix.len)
	buf = binary.LittleEndian.AppendUint64(buf, ix.capacity)

	return buf
}

func (indicesStorable) Decode(b []byte) Indices {
	if len(b) != indicesSize {
		panic(fmt.Sprintf("ringbuffer: indices: got %d bytes, want %d", len(b), indicesSize))
	}

	ix := Indices{
		start:    binary.LittleEndian.Uint64(b[0:]),
		len:      binary.LittleEndian.Uint64(b[8:]),
		capacity: binary.LittleEndian.Uint64(b[16:]),
	}

	if ix.capacity == 0 || ix.len > ix.capacity || ix.start >= ix.capacity {
		panic(fmt.Sprintf("ringbuffer: corrupt indices start=%d len=%d capacity=%d", ix.start, ix.len, ix.capacity))
	}

	return ix
}
