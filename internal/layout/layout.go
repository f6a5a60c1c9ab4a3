// Package layout holds the little-endian header helpers shared by the
// collections. Every collection starts its memory with a 3-byte magic and a
// 1-byte layout version.
package layout

import (
	"encoding/binary"
	"fmt"

	"github.com/calvinalkan/stable-structures/pkg/memory"
)

// MagicSize is the length of a collection magic.
const MagicSize = 3

// WriteMagic writes magic and version at offset 0, growing m if needed.
// Panics if m cannot grow.
func WriteMagic(m memory.Memory, magic string, version byte) {
	if len(magic) != MagicSize {
		panic(fmt.Sprintf("layout: magic %q must be %d bytes", magic, MagicSize))
	}

	MustWrite(m, 0, append([]byte(magic), version))
}

// CheckMagic panics unless m starts with magic and version. owner prefixes
// the panic message.
func CheckMagic(owner string, m memory.Memory, magic string, version byte) {
	if memory.Bytes(m) < MagicSize+1 {
		panic(fmt.Sprintf("%s: memory too small for header", owner))
	}

	var hdr [MagicSize + 1]byte
	m.Read(0, hdr[:])

	if string(hdr[:MagicSize]) != magic {
		panic(fmt.Sprintf("%s: bad magic %q, want %q", owner, hdr[:MagicSize], magic))
	}

	if hdr[MagicSize] != version {
		panic(fmt.Sprintf("%s: unsupported layout version %d, want %d", owner, hdr[MagicSize], version))
	}
}

// MustWrite is [memory.SafeWrite] that panics when m cannot grow.
func MustWrite(m memory.Memory, offset uint64, src []byte) {
	if err := memory.SafeWrite(m, offset, src); err != nil {
		panic(fmt.Sprintf("layout: write %d bytes at %d: %v", len(src), offset, err))
	}
}

// ReadU32 reads a little-endian uint32 at offset.
func ReadU32(m memory.Memory, offset uint64) uint32 {
	var b [4]byte
	m.Read(offset, b[:])

	return binary.LittleEndian.Uint32(b[:])
}

// WriteU32 writes a little-endian uint32 at offset. The range must already be
// addressable.
func WriteU32(m memory.Memory, offset uint64, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	m.Write(offset, b[:])
}

// ReadU64 reads a little-endian uint64 at offset.
func ReadU64(m memory.Memory, offset uint64) uint64 {
	var b [8]byte
	m.Read(offset, b[:])

	return binary.LittleEndian.Uint64(b[:])
}

// WriteU64 writes a little-endian uint64 at offset. The range must already be
// addressable.
func WriteU64(m memory.Memory, offset uint64, v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	m.Write(offset, b[:])
}
