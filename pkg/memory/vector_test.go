package memory_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/stable-structures/pkg/memory"
)

func Test_VectorMemory_Grow_Returns_Previous_Size_When_Growing(t *testing.T) {
	t.Parallel()

	m := memory.NewVectorMemory()

	assert.Equal(t, uint64(0), m.Size())
	assert.Equal(t, int64(0), m.Grow(2))
	assert.Equal(t, int64(2), m.Grow(1))
	assert.Equal(t, uint64(3), m.Size())
}

func Test_VectorMemory_Grow_Returns_Minus_One_When_Limit_Exceeded(t *testing.T) {
	t.Parallel()

	m := memory.NewVectorMemoryWithLimit(2)

	require.Equal(t, int64(0), m.Grow(2))
	assert.Equal(t, int64(-1), m.Grow(1))
	assert.Equal(t, uint64(2), m.Size())
}

func Test_VectorMemory_Read_Returns_Written_Bytes_When_In_Bounds(t *testing.T) {
	t.Parallel()

	m := memory.NewVectorMemory()
	m.Grow(1)

	m.Write(100, []byte("hello"))

	got := make([]byte, 5)
	m.Read(100, got)

	assert.Equal(t, "hello", string(got))
}

func Test_VectorMemory_Panics_When_Access_Is_Out_Of_Bounds(t *testing.T) {
	t.Parallel()

	m := memory.NewVectorMemory()
	m.Grow(1)

	assert.Panics(t, func() { m.Write(memory.PageSize-2, []byte("abc")) })
	assert.Panics(t, func() { m.Read(memory.PageSize, make([]byte, 1)) })
	assert.NotPanics(t, func() { m.Write(memory.PageSize-3, []byte("abc")) })
}

func Test_VectorMemory_Handles_Share_Buffer_When_Pointer_Copied(t *testing.T) {
	t.Parallel()

	m := memory.NewVectorMemory()
	alias := m

	require.NoError(t, memory.SafeWrite(m, 10, []byte{1, 2, 3}))

	got := make([]byte, 3)
	alias.Read(10, got)

	assert.Equal(t, []byte{1, 2, 3}, got)
}

func Test_EnsureCapacity_Returns_ErrGrowFailed_When_Memory_Cannot_Grow(t *testing.T) {
	t.Parallel()

	m := memory.NewVectorMemoryWithLimit(1)

	require.NoError(t, memory.EnsureCapacity(m, memory.PageSize))
	require.ErrorIs(t, memory.EnsureCapacity(m, memory.PageSize+1), memory.ErrGrowFailed)
	require.ErrorIs(t, memory.SafeWrite(m, memory.PageSize, []byte{1}), memory.ErrGrowFailed)
}

func Test_RestrictedMemory_Maps_Window_Onto_Parent_When_Written(t *testing.T) {
	t.Parallel()

	parent := memory.NewVectorMemory()
	r := memory.NewRestrictedMemory(parent, 2, 4)

	assert.Equal(t, uint64(0), r.Size())
	require.Equal(t, int64(0), r.Grow(1))
	assert.Equal(t, uint64(3), parent.Size(), "parent grows to cover the window start")

	r.Write(0, []byte("x"))

	got := make([]byte, 1)
	parent.Read(2*memory.PageSize, got)
	assert.Equal(t, "x", string(got))

	assert.Equal(t, int64(1), r.Grow(1))
	assert.Equal(t, int64(-1), r.Grow(1), "window is two pages")
}
