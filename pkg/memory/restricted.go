package memory

import "fmt"

// RestrictedMemory exposes the page window [startPage, endPage) of another
// memory as a memory of its own. It grows the parent on demand but never
// beyond endPage.
type RestrictedMemory struct {
	inner     Memory
	startPage uint64
	endPage   uint64
}

// NewRestrictedMemory panics if startPage > endPage.
func NewRestrictedMemory(inner Memory, startPage, endPage uint64) *RestrictedMemory {
	if startPage > endPage {
		panic(fmt.Sprintf("memory: invalid page window [%d, %d)", startPage, endPage))
	}

	return &RestrictedMemory{inner: inner, startPage: startPage, endPage: endPage}
}

// Size implements [Memory].
func (r *RestrictedMemory) Size() uint64 {
	innerSize := r.inner.Size()
	if innerSize <= r.startPage {
		return 0
	}

	return min(innerSize-r.startPage, r.endPage-r.startPage)
}

// Grow implements [Memory].
func (r *RestrictedMemory) Grow(pages uint64) int64 {
	cur := r.Size()
	if cur+pages > r.endPage-r.startPage {
		return -1
	}

	need := r.startPage + cur + pages
	if have := r.inner.Size(); have < need {
		if r.inner.Grow(need-have) < 0 {
			return -1
		}
	}

	return int64(cur)
}

// Read implements [Memory].
func (r *RestrictedMemory) Read(offset uint64, dst []byte) {
	checkRange("read", Bytes(r), offset, len(dst))
	r.inner.Read(r.startPage*PageSize+offset, dst)
}

// Write implements [Memory].
func (r *RestrictedMemory) Write(offset uint64, src []byte) {
	checkRange("write", Bytes(r), offset, len(src))
	r.inner.Write(r.startPage*PageSize+offset, src)
}

var _ Memory = (*RestrictedMemory)(nil)
