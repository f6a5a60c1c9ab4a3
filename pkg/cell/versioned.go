package cell

import (
	"github.com/calvinalkan/stable-structures/pkg/codec"
	"github.com/calvinalkan/stable-structures/pkg/memory"
	"github.com/calvinalkan/stable-structures/pkg/storable"
)

// VersionedCell exposes a cell of stored layouts S as its canonical shape D.
// Reading a legacy value never rewrites it.
type VersionedCell[S, D any] struct {
	inner RefCell[S]
	codec codec.Codec[S, D]
}

// NewVersionedCell wraps inner.
func NewVersionedCell[S, D any](inner RefCell[S], c codec.Codec[S, D]) *VersionedCell[S, D] {
	return &VersionedCell[S, D]{inner: inner, codec: c}
}

// InitVersionedCell reopens a [StableCell] in mem, storing the encoding of
// defaultValue when mem is empty.
func InitVersionedCell[S, D any](mem memory.Memory, stored storable.Storable[S], c codec.Codec[S, D], defaultValue D) *VersionedCell[S, D] {
	return NewVersionedCell(InitStableCell(mem, stored, c.Encode(defaultValue)), c)
}

// GetRef returns the canonical value, borrowed from the cell when the stored
// layout is current.
func (v *VersionedCell[S, D]) GetRef() *D {
	return v.codec.DecodeRef(v.inner.GetRef())
}

// Get implements [Cell].
func (v *VersionedCell[S, D]) Get() D {
	return *v.GetRef()
}

// Set stores the encoding of value.
func (v *VersionedCell[S, D]) Set(value D) {
	v.inner.Set(v.codec.Encode(value))
}

// Inner returns the wrapped cell.
func (v *VersionedCell[S, D]) Inner() RefCell[S] {
	return v.inner
}

var _ Cell[int] = (*VersionedCell[int, int])(nil)
