// Package storable defines how values are turned into bytes for stable
// collections, and ships encodings for the common key and value types.
//
// A [Storable] declares a [Bound]: the maximum encoded size and whether every
// encoding has exactly that size. Collections check encoded lengths against
// the bound before writing and panic when it is violated. Collections with
// fixed-width slots (vectors, ring buffers) require a bounded type.
package storable

import "fmt"

// Bound describes the encoded size of a type. MaxSize 0 means unbounded.
type Bound struct {
	MaxSize     uint32
	IsFixedSize bool
}

// Unbounded is the bound of types with no size limit.
var Unbounded = Bound{}

// IsBounded reports whether b declares a maximum size.
func (b Bound) IsBounded() bool {
	return b.MaxSize > 0
}

// Storable encodes and decodes values of type T.
//
// Decode(Encode(v)) must equal v. Decode panics on input that no Encode
// could have produced.
type Storable[T any] interface {
	Bound() Bound
	Encode(v T) []byte
	Decode(b []byte) T
}

// Key is a [Storable] with a total order, usable as a map key.
type Key[T any] interface {
	Storable[T]

	// Compare returns -1, 0 or +1.
	Compare(a, b T) int
}

// CheckBound panics if an encoding of n bytes violates b.
func CheckBound(what string, b Bound, n int) {
	if !b.IsBounded() {
		return
	}

	if uint64(n) > uint64(b.MaxSize) {
		panic(fmt.Sprintf("storable: %s encodes to %d bytes, exceeds bound %d", what, n, b.MaxSize))
	}

	if b.IsFixedSize && uint64(n) != uint64(b.MaxSize) {
		panic(fmt.Sprintf("storable: %s encodes to %d bytes, fixed size is %d", what, n, b.MaxSize))
	}
}
