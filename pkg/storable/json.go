package storable

import (
	"encoding/json"
	"fmt"
)

type jsonValue[T any] struct{}

// JSON returns an unbounded encoding of T through encoding/json.
//
// Encode panics if T cannot be marshaled and Decode panics on malformed
// input; both indicate a type that does not belong in a collection.
func JSON[T any]() Storable[T] { return jsonValue[T]{} }

func (jsonValue[T]) Bound() Bound { return Unbounded }

func (jsonValue[T]) Encode(v T) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("storable: json encode %T: %v", v, err))
	}

	return b
}

func (jsonValue[T]) Decode(b []byte) T {
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		panic(fmt.Sprintf("storable: json decode %T: %v", v, err))
	}

	return v
}
