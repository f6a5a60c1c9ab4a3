package layout_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/stable-structures/internal/layout"
	"github.com/calvinalkan/stable-structures/pkg/memory"
)

func Test_CheckMagic_Accepts_Header_When_Written_By_WriteMagic(t *testing.T) {
	t.Parallel()

	m := memory.NewVectorMemory()
	layout.WriteMagic(m, "ABC", 2)

	assert.NotPanics(t, func() { layout.CheckMagic("test", m, "ABC", 2) })
	assert.PanicsWithValue(t, `test: unsupported layout version 2, want 3`, func() { layout.CheckMagic("test", m, "ABC", 3) })
	assert.Panics(t, func() { layout.CheckMagic("test", m, "XYZ", 2) })
}

func Test_CheckMagic_Panics_When_Memory_Is_Empty(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { layout.CheckMagic("test", memory.NewVectorMemory(), "ABC", 1) })
}

func Test_Integers_Round_Trip_When_Little_Endian(t *testing.T) {
	t.Parallel()

	m := memory.NewVectorMemory()
	m.Grow(1)

	layout.WriteU32(m, 4, 0xDEADBEEF)
	layout.WriteU64(m, 8, 1<<40+7)

	assert.Equal(t, uint32(0xDEADBEEF), layout.ReadU32(m, 4))
	assert.Equal(t, uint64(1<<40+7), layout.ReadU64(m, 8))

	raw := make([]byte, 4)
	m.Read(4, raw)
	assert.Equal(t, []byte{0xEF, 0xBE, 0xAD, 0xDE}, raw)
}

func Test_MustWrite_Panics_When_Memory_Cannot_Grow(t *testing.T) {
	t.Parallel()

	m := memory.NewVectorMemoryWithLimit(1)

	require.NotPanics(t, func() { layout.MustWrite(m, 0, []byte{1}) })
	assert.Panics(t, func() { layout.MustWrite(m, memory.PageSize, []byte{1}) })
}
