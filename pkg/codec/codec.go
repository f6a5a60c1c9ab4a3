// Package codec converts between a stored representation S and the
// canonical in-memory shape D of a record.
//
// S is typically a closed set of historical layouts (for example a struct
// with one pointer field per version). A codec upgrades any of them to D on
// read and always writes the newest layout.
package codec

// Codec converts stored values to their canonical shape and back.
//
// DecodeRef returns a pointer into s when s already holds the canonical shape
// (no copy), and a pointer to a fresh value when a migration was needed.
// Callers must not mutate the result through the pointer unless they own s.
//
// For every d, Decode(c, c.Encode(d)) must equal d.
type Codec[S, D any] interface {
	DecodeRef(s *S) *D
	Encode(d D) S
}

// Decode returns the canonical value for s by value.
func Decode[S, D any](c Codec[S, D], s S) D {
	return *c.DecodeRef(&s)
}

// Identity is the codec for types stored in their canonical shape.
type Identity[D any] struct{}

// DecodeRef returns s itself.
func (Identity[D]) DecodeRef(s *D) *D {
	return s
}

// Encode returns d unchanged.
func (Identity[D]) Encode(d D) D {
	return d
}

// Func builds a codec from two functions. decode always produces a fresh
// value.
func Func[S, D any](decode func(S) D, encode func(D) S) Codec[S, D] {
	return funcCodec[S, D]{decode: decode, encode: encode}
}

type funcCodec[S, D any] struct {
	decode func(S) D
	encode func(D) S
}

func (f funcCodec[S, D]) DecodeRef(s *S) *D {
	d := f.decode(*s)
	return &d
}

func (f funcCodec[S, D]) Encode(d D) S {
	return f.encode(d)
}
