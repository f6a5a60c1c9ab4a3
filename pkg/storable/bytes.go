package storable

import (
	"bytes"
	"strings"
)

type stringKey struct{ max uint32 }

// String returns an unbounded UTF-8 encoding of string.
func String() Key[string] {
	return stringKey{}
}

// BoundedString returns a string encoding limited to maxBytes bytes.
func BoundedString(maxBytes uint32) Key[string] {
	return stringKey{max: maxBytes}
}

func (s stringKey) Bound() Bound {
	return Bound{MaxSize: s.max}
}

func (stringKey) Compare(a, b string) int {
	return strings.Compare(a, b)
}

func (stringKey) Encode(v string) []byte {
	return []byte(v)
}

func (stringKey) Decode(b []byte) string {
	return string(b)
}

type bytesKey struct {
	max   uint32
	fixed bool
}

// Bytes returns an unbounded encoding of byte slices. Decode returns a copy.
func Bytes() Key[[]byte] {
	return bytesKey{}
}

// BoundedBytes returns a byte slice encoding limited to maxBytes bytes.
func BoundedBytes(maxBytes uint32) Key[[]byte] {
	return bytesKey{max: maxBytes}
}

// FixedBytes returns an encoding of byte slices that are exactly n bytes.
func FixedBytes(n uint32) Key[[]byte] {
	return bytesKey{max: n, fixed: true}
}

func (k bytesKey) Bound() Bound {
	return Bound{MaxSize: k.max, IsFixedSize: k.fixed}
}

func (bytesKey) Compare(a, b []byte) int {
	return bytes.Compare(a, b)
}

func (bytesKey) Encode(v []byte) []byte {
	return bytes.Clone(v)
}

func (k bytesKey) Decode(b []byte) []byte {
	if k.fixed {
		mustLen("fixed bytes", b, int(k.max))
	}

	return append([]byte{}, b...)
}
