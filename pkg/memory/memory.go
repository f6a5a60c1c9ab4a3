package memory

import (
	"errors"
	"fmt"
)

// PageSize is the size of one memory page in bytes (64 KiB).
const PageSize uint64 = 64 << 10

// Memory is a growable, byte-addressable region.
//
// Offsets are absolute byte offsets from the start of the region. The
// region is always Size()*PageSize bytes long; newly grown pages are zeroed.
type Memory interface {
	// Size returns the current size in pages.
	Size() uint64

	// Grow extends the memory by pages pages and returns the previous size
	// in pages, or -1 if the memory cannot grow.
	Grow(pages uint64) int64

	// Read copies len(dst) bytes starting at offset into dst.
	// Panics if the range is out of bounds.
	Read(offset uint64, dst []byte)

	// Write copies src into the memory starting at offset.
	// Panics if the range is out of bounds.
	Write(offset uint64, src []byte)
}

var (
	// ErrGrowFailed indicates a memory could not be grown to hold a write.
	//
	// Recovery: free space (clear a collection) or raise the memory limit.
	ErrGrowFailed = errors.New("memory: grow failed")

	// ErrBusy indicates another process holds the memory file.
	//
	// Recovery: retry after the other owner closes it.
	ErrBusy = errors.New("memory: busy")

	// ErrCorrupt indicates a memory file or snapshot is damaged.
	//
	// Recovery: restore from a different snapshot or recreate it.
	ErrCorrupt = errors.New("memory: corrupt")

	// ErrInvalidInput indicates invalid arguments were provided.
	ErrInvalidInput = errors.New("memory: invalid input")

	// ErrClosed indicates the memory was already closed.
	ErrClosed = errors.New("memory: closed")
)

// Bytes returns the current size of m in bytes.
func Bytes(m Memory) uint64 {
	return m.Size() * PageSize
}

// EnsureCapacity grows m until at least n bytes are addressable.
func EnsureCapacity(m Memory, n uint64) error {
	have := Bytes(m)
	if n <= have {
		return nil
	}

	pages := (n - have + PageSize - 1) / PageSize
	if m.Grow(pages) < 0 {
		return fmt.Errorf("grow by %d pages (have %d): %w", pages, m.Size(), ErrGrowFailed)
	}

	return nil
}

// SafeWrite writes src at offset, growing m first if needed.
func SafeWrite(m Memory, offset uint64, src []byte) error {
	if err := EnsureCapacity(m, offset+uint64(len(src))); err != nil {
		return err
	}

	m.Write(offset, src)

	return nil
}

// checkRange panics if [offset, offset+n) is not inside a region of size bytes.
func checkRange(kind string, size, offset uint64, n int) {
	end := offset + uint64(n)
	if end < offset || end > size {
		panic(fmt.Sprintf("memory: %s out of bounds: offset=%d len=%d size=%d", kind, offset, n, size))
	}
}
