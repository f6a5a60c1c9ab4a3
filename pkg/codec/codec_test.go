package codec_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/calvinalkan/stable-structures/pkg/codec"
)

type userV1 struct {
	Name string
}

type userV2 struct {
	Name string
	Age  *uint8
}

// storedUser is the on-disk union: exactly one field is set.
type storedUser struct {
	V1 *userV1
	V2 *userV2
}

type userCodec struct{}

func (userCodec) DecodeRef(s *storedUser) *userV2 {
	if s.V2 != nil {
		return s.V2
	}

	return &userV2{Name: s.V1.Name}
}

func (userCodec) Encode(d userV2) storedUser {
	return storedUser{V2: &d}
}

func Test_Codec_DecodeRef_Borrows_When_Stored_Shape_Is_Current(t *testing.T) {
	t.Parallel()

	stored := storedUser{V2: &userV2{Name: "ada"}}

	got := userCodec{}.DecodeRef(&stored)
	assert.Same(t, stored.V2, got)
}

func Test_Codec_Decode_Migrates_When_Stored_Shape_Is_Legacy(t *testing.T) {
	t.Parallel()

	got := codec.Decode[storedUser, userV2](userCodec{}, storedUser{V1: &userV1{Name: "bob"}})

	assert.Equal(t, userV2{Name: "bob"}, got)
}

func Test_Codec_Decode_Inverts_Encode_When_Round_Tripped(t *testing.T) {
	t.Parallel()

	age := uint8(7)
	in := userV2{Name: "cy", Age: &age}

	var c codec.Codec[storedUser, userV2] = userCodec{}

	assert.Equal(t, in, codec.Decode(c, c.Encode(in)))
}

func Test_Identity_Returns_Same_Pointer_When_Decoding(t *testing.T) {
	t.Parallel()

	v := 5

	assert.Same(t, &v, codec.Identity[int]{}.DecodeRef(&v))
	assert.Equal(t, 5, codec.Decode[int, int](codec.Identity[int]{}, 5))
}

func Test_Func_Codec_Applies_Functions_When_Used(t *testing.T) {
	t.Parallel()

	c := codec.Func(func(s string) int { return len(s) }, func(d int) string { return string(make([]byte, d)) })

	assert.Equal(t, 3, codec.Decode(c, "abc"))
	assert.Len(t, c.Encode(4), 4)
}
