// Package stablelog provides an append-only list of variable-size entries
// persisted in two memories: one for entry offsets and one for entry bytes.
package stablelog

import (
	"encoding/binary"
	"fmt"
	"iter"

	"github.com/calvinalkan/stable-structures/internal/layout"
	"github.com/calvinalkan/stable-structures/pkg/memory"
	"github.com/calvinalkan/stable-structures/pkg/storable"
)

// Log is an append-only sequence.
type Log[T any] interface {
	// Get returns the entry at index.
	Get(index uint64) (T, bool)

	// Append adds value and returns its index.
	Append(value T) (uint64, error)

	Len() uint64
	IsEmpty() bool

	// Clear removes every entry.
	Clear()
}

// Layouts (little-endian).
//
// Index memory: magic "GLI", version u8, entry count u64 at 0x08, then one
// u64 end offset per entry from 0x10.
//
// Data memory: magic "GLD", version u8, 12 reserved bytes, entry bytes from
// 0x10. End offsets are relative to 0x10.
const (
	indexMagic      = "GLI"
	dataMagic       = "GLD"
	logVersion      = 1
	indexHeaderSize = 16
	dataHeaderSize  = 16

	offIndexLen = 0x08 // uint64
)

// StableLog implements [Log].
type StableLog[T any] struct {
	index  memory.Memory
	data   memory.Memory
	values storable.Storable[T]
	length uint64
}

// New resets both memories and returns an empty log.
func New[T any](indexMem, dataMem memory.Memory, values storable.Storable[T]) *StableLog[T] {
	layout.MustWrite(indexMem, 0, make([]byte, indexHeaderSize))
	layout.WriteMagic(indexMem, indexMagic, logVersion)

	layout.MustWrite(dataMem, 0, make([]byte, dataHeaderSize))
	layout.WriteMagic(dataMem, dataMagic, logVersion)

	return &StableLog[T]{index: indexMem, data: dataMem, values: values}
}

// Init reopens the log stored in the two memories, or creates one if both
// are empty. Panics if either memory holds anything else.
func Init[T any](indexMem, dataMem memory.Memory, values storable.Storable[T]) *StableLog[T] {
	if indexMem.Size() == 0 && dataMem.Size() == 0 {
		return New(indexMem, dataMem, values)
	}

	layout.CheckMagic("stablelog index", indexMem, indexMagic, logVersion)
	layout.CheckMagic("stablelog data", dataMem, dataMagic, logVersion)

	l := &StableLog[T]{index: indexMem, data: dataMem, values: values}
	l.length = layout.ReadU64(indexMem, offIndexLen)

	if indexHeaderSize+l.length*8 > memory.Bytes(indexMem) {
		panic(fmt.Sprintf("stablelog: %d entries exceed index memory", l.length))
	}

	if l.length > 0 && dataHeaderSize+l.endOffset(l.length-1) > memory.Bytes(dataMem) {
		panic("stablelog: entries exceed data memory")
	}

	return l
}

func (l *StableLog[T]) endOffset(i uint64) uint64 {
	return layout.ReadU64(l.index, indexHeaderSize+i*8)
}

func (l *StableLog[T]) startOffset(i uint64) uint64 {
	if i == 0 {
		return 0
	}

	return l.endOffset(i - 1)
}

// Get implements [Log].
func (l *StableLog[T]) Get(index uint64) (T, bool) {
	if index >= l.length {
		var zero T
		return zero, false
	}

	start, end := l.startOffset(index), l.endOffset(index)

	buf := make([]byte, end-start)
	l.data.Read(dataHeaderSize+start, buf)

	return l.values.Decode(buf), true
}

// Append implements [Log]. It returns an error wrapping
// [memory.ErrGrowFailed] if either memory cannot grow; the log is unchanged
// in that case. Panics if value exceeds its bound.
func (l *StableLog[T]) Append(value T) (uint64, error) {
	b := l.values.Encode(value)
	storable.CheckBound("stablelog entry", l.values.Bound(), len(b))

	start := l.startOffset(l.length)
	end := start + uint64(len(b))

	if err := memory.SafeWrite(l.data, dataHeaderSize+start, b); err != nil {
		return 0, fmt.Errorf("stablelog: append entry %d data: %w", l.length, err)
	}

	var off [8]byte
	binary.LittleEndian.PutUint64(off[:], end)

	if err := memory.SafeWrite(l.index, indexHeaderSize+l.length*8, off[:]); err != nil {
		return 0, fmt.Errorf("stablelog: append entry %d index: %w", l.length, err)
	}

	idx := l.length
	l.length++
	layout.WriteU64(l.index, offIndexLen, l.length)

	return idx, nil
}

// Len implements [Log].
func (l *StableLog[T]) Len() uint64 {
	return l.length
}

// IsEmpty implements [Log].
func (l *StableLog[T]) IsEmpty() bool {
	return l.length == 0
}

// Clear implements [Log]. The memories keep their size.
func (l *StableLog[T]) Clear() {
	l.length = 0
	layout.WriteU64(l.index, offIndexLen, 0)
}

// Iter yields entries in append order.
func (l *StableLog[T]) Iter() iter.Seq2[uint64, T] {
	return func(yield func(uint64, T) bool) {
		for i := range l.length {
			v, _ := l.Get(i)
			if !yield(i, v) {
				return
			}
		}
	}
}

var _ Log[int] = (*StableLog[int])(nil)
