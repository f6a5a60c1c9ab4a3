package memory

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"

	"github.com/calvinalkan/stable-structures/internal/fs"
)

// Snapshot file layout (little-endian):
//
//	0x00  magic "SMS1"
//	0x04  pages u64
//	0x0C  CRC32-C of the data
//	0x10  data, pages * PageSize bytes
const (
	snapshotMagic      = "SMS1"
	snapshotHeaderSize = 16

	offSnapPages = 4
	offSnapCRC   = 12
)

var crcTable = crc32.MakeTable(crc32.Castagnoli)

// WriteSnapshot atomically writes an image of m to path. An existing file is
// replaced only after the new image is complete.
func WriteSnapshot(path string, m Memory) error {
	size := Bytes(m)

	buf := make([]byte, snapshotHeaderSize+size)
	data := buf[snapshotHeaderSize:]

	if size > 0 {
		m.Read(0, data)
	}

	copy(buf, snapshotMagic)
	binary.LittleEndian.PutUint64(buf[offSnapPages:], m.Size())
	binary.LittleEndian.PutUint32(buf[offSnapCRC:], crc32.Checksum(data, crcTable))

	if err := fs.NewReal().WriteFileAtomic(path, buf, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}

	return nil
}

// ReadSnapshot loads a snapshot written by [WriteSnapshot] into a new
// [VectorMemory].
//
// Returns [ErrCorrupt] if the file is truncated or fails its checksum.
func ReadSnapshot(path string) (*VectorMemory, error) {
	buf, err := fs.NewReal().ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	if len(buf) < snapshotHeaderSize || string(buf[:4]) != snapshotMagic {
		return nil, fmt.Errorf("snapshot %q: bad header: %w", path, ErrCorrupt)
	}

	pages := binary.LittleEndian.Uint64(buf[offSnapPages:])
	data := buf[snapshotHeaderSize:]

	if uint64(len(data)) != pages*PageSize {
		return nil, fmt.Errorf("snapshot %q: %d data bytes, want %d: %w", path, len(data), pages*PageSize, ErrCorrupt)
	}

	want := binary.LittleEndian.Uint32(buf[offSnapCRC:])
	if got := crc32.Checksum(data, crcTable); got != want {
		return nil, fmt.Errorf("snapshot %q: crc %08x, want %08x: %w", path, got, want, ErrCorrupt)
	}

	return &VectorMemory{data: data}, nil
}
