package storable

import (
	"fmt"

	"google.golang.org/protobuf/proto"
)

type protoValue[T proto.Message] struct {
	newFn func() T
}

// Proto returns an unbounded encoding of protobuf messages. newFn allocates
// the empty message Decode unmarshals into. Encoding is deterministic, so
// equal messages produce equal bytes.
func Proto[T proto.Message](newFn func() T) Storable[T] {
	return protoValue[T]{newFn: newFn}
}

func (protoValue[T]) Bound() Bound { return Unbounded }

func (protoValue[T]) Encode(v T) []byte {
	b, err := proto.MarshalOptions{Deterministic: true}.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("storable: proto encode %T: %v", v, err))
	}

	return b
}

func (p protoValue[T]) Decode(b []byte) T {
	v := p.newFn()
	if err := proto.Unmarshal(b, v); err != nil {
		panic(fmt.Sprintf("storable: proto decode %T: %v", v, err))
	}

	return v
}
