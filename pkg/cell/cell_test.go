package cell_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/stable-structures/pkg/cell"
	"github.com/calvinalkan/stable-structures/pkg/codec"
	"github.com/calvinalkan/stable-structures/pkg/memory"
	"github.com/calvinalkan/stable-structures/pkg/storable"
)

func Test_StableCell_Get_Returns_Stored_Value_When_Reopened(t *testing.T) {
	t.Parallel()

	mem := memory.NewVectorMemory()
	c := cell.NewStableCell(mem, storable.Storable[string](storable.String()), "first")

	assert.Equal(t, "first", c.Get())

	c.Set("second, longer value")
	c.Set("third")

	reopened := cell.InitStableCell(mem, storable.Storable[string](storable.String()), "default")
	assert.Equal(t, "third", reopened.Get())
}

func Test_InitStableCell_Stores_Default_When_Memory_Empty(t *testing.T) {
	t.Parallel()

	mem := memory.NewVectorMemory()
	c := cell.InitStableCell(mem, storable.Storable[uint64](storable.Uint64()), 7)

	assert.Equal(t, uint64(7), c.Get())
	assert.Equal(t, uint64(7), cell.InitStableCell(mem, storable.Storable[uint64](storable.Uint64()), 0).Get())
}

func Test_NewStableCell_Resets_Value_When_Memory_Holds_Cell(t *testing.T) {
	t.Parallel()

	mem := memory.NewVectorMemory()
	cell.NewStableCell(mem, storable.Storable[uint64](storable.Uint64()), 1)
	cell.NewStableCell(mem, storable.Storable[uint64](storable.Uint64()), 2)

	assert.Equal(t, uint64(2), cell.InitStableCell(mem, storable.Storable[uint64](storable.Uint64()), 0).Get())
}

func Test_StableCell_Set_Panics_And_Keeps_Value_When_Bound_Exceeded(t *testing.T) {
	t.Parallel()

	mem := memory.NewVectorMemory()
	c := cell.NewStableCell(mem, storable.Storable[string](storable.BoundedString(3)), "abc")

	assert.Panics(t, func() { c.Set("abcd") })
	assert.Equal(t, "abc", c.Get())
	assert.Equal(t, "abc", cell.InitStableCell(mem, storable.Storable[string](storable.BoundedString(3)), "").Get())
}

func Test_InitStableCell_Panics_When_Memory_Holds_Other_Structure(t *testing.T) {
	t.Parallel()

	mem := memory.NewVectorMemory()
	require.NoError(t, memory.SafeWrite(mem, 0, []byte("BTM\x01")))

	assert.Panics(t, func() { cell.InitStableCell(mem, storable.Storable[string](storable.String()), "") })
}

type userV1 struct {
	Name string `json:"name"`
}

type userV2 struct {
	Name string `json:"name"`
	Age  *uint8 `json:"age,omitempty"`
}

type storedUser struct {
	V1 *userV1 `json:"v1,omitempty"`
	V2 *userV2 `json:"v2,omitempty"`
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

func Test_VersionedCell_Decodes_Legacy_Value_When_Read(t *testing.T) {
	t.Parallel()

	mem := memory.NewVectorMemory()
	stable := cell.NewStableCell(mem, storable.JSON[storedUser](), storedUser{V1: &userV1{Name: "test"}})
	stable.Set(storedUser{V1: &userV1{Name: "test2"}})

	versioned := cell.NewVersionedCell[storedUser, userV2](stable, userCodec{})

	assert.Equal(t, userV2{Name: "test2"}, versioned.Get())
	assert.NotNil(t, stable.Get().V1, "reads keep the legacy layout")

	age := uint8(42)
	versioned.Set(userV2{Name: "test3", Age: &age})

	assert.Equal(t, userV2{Name: "test3", Age: &age}, versioned.Get())
	assert.Same(t, stable.Get().V2, versioned.GetRef(), "current layout is borrowed")

	reopened := cell.InitVersionedCell[storedUser, userV2](mem, storable.JSON[storedUser](), userCodec{}, userV2{})
	assert.Equal(t, userV2{Name: "test3", Age: &age}, reopened.Get())
}

func Test_VersionedCell_Passes_Through_When_Codec_Is_Identity(t *testing.T) {
	t.Parallel()

	c := cell.InitVersionedCell[uint64, uint64](memory.NewVectorMemory(), storable.Uint64(), codec.Identity[uint64]{}, 9)

	assert.Equal(t, uint64(9), c.Get())

	c.Set(10)
	assert.Equal(t, uint64(10), c.Inner().Get())
}
