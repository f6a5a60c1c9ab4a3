package memory

// VectorMemory is a heap-backed [Memory].
//
// A *VectorMemory is a handle: copies of the pointer share the same buffer,
// so a collection can be dropped and reopened over the same handle to
// simulate a process restart.
type VectorMemory struct {
	data     []byte
	maxPages uint64
}

// NewVectorMemory returns an empty, unbounded memory.
func NewVectorMemory() *VectorMemory {
	return &VectorMemory{}
}

// NewVectorMemoryWithLimit returns an empty memory that refuses to grow
// beyond maxPages pages.
func NewVectorMemoryWithLimit(maxPages uint64) *VectorMemory {
	return &VectorMemory{maxPages: maxPages}
}

// Size implements [Memory].
func (v *VectorMemory) Size() uint64 {
	return uint64(len(v.data)) / PageSize
}

// Grow implements [Memory].
func (v *VectorMemory) Grow(pages uint64) int64 {
	prev := v.Size()
	if v.maxPages > 0 && prev+pages > v.maxPages {
		return -1
	}

	v.data = append(v.data, make([]byte, pages*PageSize)...)

	return int64(prev)
}

// Read implements [Memory].
func (v *VectorMemory) Read(offset uint64, dst []byte) {
	checkRange("read", uint64(len(v.data)), offset, len(dst))
	copy(dst, v.data[offset:])
}

// Write implements [Memory].
func (v *VectorMemory) Write(offset uint64, src []byte) {
	checkRange("write", uint64(len(v.data)), offset, len(src))
	copy(v.data[offset:], src)
}

var _ Memory = (*VectorMemory)(nil)
