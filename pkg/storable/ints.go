package storable

import (
	"cmp"
	"encoding/binary"
	"fmt"
)

// Integers are encoded big-endian so that byte order equals numeric order.

type uint64Key struct{}

// Uint64 returns the 8-byte fixed-size encoding of uint64.
func Uint64() Key[uint64] {
	return uint64Key{}
}

func (uint64Key) Bound() Bound {
	return Bound{MaxSize: 8, IsFixedSize: true}
}

func (uint64Key) Compare(a, b uint64) int {
	return cmp.Compare(a, b)
}

func (uint64Key) Encode(v uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, v)
}

func (uint64Key) Decode(b []byte) uint64 {
	mustLen("uint64", b, 8)

	return binary.BigEndian.Uint64(b)
}

type uint32Key struct{}

// Uint32 returns the 4-byte fixed-size encoding of uint32.
func Uint32() Key[uint32] {
	return uint32Key{}
}

func (uint32Key) Bound() Bound {
	return Bound{MaxSize: 4, IsFixedSize: true}
}

func (uint32Key) Compare(a, b uint32) int {
	return cmp.Compare(a, b)
}

func (uint32Key) Encode(v uint32) []byte {
	return binary.BigEndian.AppendUint32(nil, v)
}

func (uint32Key) Decode(b []byte) uint32 {
	mustLen("uint32", b, 4)

	return binary.BigEndian.Uint32(b)
}

type int64Key struct{}

// Int64 returns the 8-byte fixed-size encoding of int64. The sign bit is
// flipped so negative values sort before positive ones.
func Int64() Key[int64] {
	return int64Key{}
}

func (int64Key) Bound() Bound {
	return Bound{MaxSize: 8, IsFixedSize: true}
}

func (int64Key) Compare(a, b int64) int {
	return cmp.Compare(a, b)
}

func (int64Key) Encode(v int64) []byte {
	return binary.BigEndian.AppendUint64(nil, uint64(v)^(1<<63))
}

func (int64Key) Decode(b []byte) int64 {
	mustLen("int64", b, 8)

	return int64(binary.BigEndian.Uint64(b) ^ (1 << 63))
}

func mustLen(what string, b []byte, n int) {
	if len(b) != n {
		panic(fmt.Sprintf("storable: decode %s: got %d bytes, want %d", what, len(b), n))
	}
}
