// Package cell provides single persisted values.
package cell

import (
	"encoding/binary"

	"github.com/calvinalkan/stable-structures/internal/layout"
	"github.com/calvinalkan/stable-structures/pkg/memory"
	"github.com/calvinalkan/stable-structures/pkg/storable"
)

// Cell holds exactly one value.
type Cell[T any] interface {
	Get() T
	Set(value T)
}

// RefCell is a [Cell] that can lend its current value without copying.
type RefCell[T any] interface {
	Cell[T]

	// GetRef returns a pointer to the current value. It is valid until the
	// next Set and must not be written through.
	GetRef() *T
}

const (
	sclMagic      = "SCL"
	sclVersion    = 1
	sclHeaderSize = 8

	offValueLen = 4 // uint32
)

// StableCell persists one value in a memory.
//
// Layout: magic "SCL", version u8, value length u32, value bytes. The decoded
// value is kept in memory, so Get never decodes.
type StableCell[T any] struct {
	mem    memory.Memory
	values storable.Storable[T]
	value  T
}

// NewStableCell resets mem and stores value in it.
func NewStableCell[T any](mem memory.Memory, values storable.Storable[T], value T) *StableCell[T] {
	c := &StableCell[T]{mem: mem, values: values}

	layout.MustWrite(mem, 0, make([]byte, sclHeaderSize))
	layout.WriteMagic(mem, sclMagic, sclVersion)
	c.Set(value)

	return c
}

// InitStableCell reopens the cell stored in mem. If mem is empty it stores
// defaultValue. Panics if mem holds anything else.
func InitStableCell[T any](mem memory.Memory, values storable.Storable[T], defaultValue T) *StableCell[T] {
	if mem.Size() == 0 {
		return NewStableCell(mem, values, defaultValue)
	}

	layout.CheckMagic("cell", mem, sclMagic, sclVersion)

	n := layout.ReadU32(mem, offValueLen)

	buf := make([]byte, n)
	mem.Read(sclHeaderSize, buf)

	return &StableCell[T]{mem: mem, values: values, value: values.Decode(buf)}
}

// Get returns the current value.
func (c *StableCell[T]) Get() T {
	return c.value
}

// GetRef implements [RefCell].
func (c *StableCell[T]) GetRef() *T {
	return &c.value
}

// Set stores value. Panics if its encoding exceeds the type's bound or the
// memory cannot grow; the stored value is unchanged in either case.
func (c *StableCell[T]) Set(value T) {
	b := c.values.Encode(value)
	storable.CheckBound("cell value", c.values.Bound(), len(b))

	layout.MustWrite(c.mem, sclHeaderSize, b)

	var n [4]byte
	binary.LittleEndian.PutUint32(n[:], uint32(len(b)))
	c.mem.Write(offValueLen, n[:])

	c.value = value
}

var _ RefCell[int] = (*StableCell[int])(nil)
