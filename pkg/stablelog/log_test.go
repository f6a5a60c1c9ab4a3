package stablelog_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/stable-structures/pkg/memory"
	"github.com/calvinalkan/stable-structures/pkg/stablelog"
	"github.com/calvinalkan/stable-structures/pkg/storable"
)

func Test_StableLog_Get_Returns_Appended_Entries_When_Indexed(t *testing.T) {
	t.Parallel()

	l := stablelog.Init(memory.NewVectorMemory(), memory.NewVectorMemory(), storable.Storable[string](storable.String()))

	assert.True(t, l.IsEmpty())

	for i, s := range []string{"a", "", "ccc"} {
		idx, err := l.Append(s)
		require.NoError(t, err)
		assert.Equal(t, uint64(i), idx)
	}

	assert.Equal(t, uint64(3), l.Len())

	got, ok := l.Get(1)
	require.True(t, ok)
	assert.Equal(t, "", got)

	got, _ = l.Get(2)
	assert.Equal(t, "ccc", got)

	_, ok = l.Get(3)
	assert.False(t, ok)
}

func Test_StableLog_Restores_Entries_When_Reopened(t *testing.T) {
	t.Parallel()

	index, data := memory.NewVectorMemory(), memory.NewVectorMemory()
	values := storable.Storable[uint64](storable.Uint64())

	l := stablelog.New(index, data, values)
	for i := range uint64(100) {
		_, err := l.Append(i * i)
		require.NoError(t, err)
	}

	reopened := stablelog.Init(index, data, values)
	assert.Equal(t, uint64(100), reopened.Len())

	for i, v := range reopened.Iter() {
		require.Equal(t, i*i, v)
	}
}

func Test_StableLog_Clear_Empties_Log_When_Called(t *testing.T) {
	t.Parallel()

	index, data := memory.NewVectorMemory(), memory.NewVectorMemory()
	l := stablelog.New(index, data, storable.Storable[string](storable.String()))

	_, _ = l.Append("x")
	l.Clear()

	assert.True(t, l.IsEmpty())
	assert.True(t, stablelog.Init(index, data, storable.Storable[string](storable.String())).IsEmpty())

	idx, err := l.Append("y")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), idx)
}

func Test_StableLog_Append_Returns_ErrGrowFailed_When_Data_Memory_Full(t *testing.T) {
	t.Parallel()

	l := stablelog.New(memory.NewVectorMemory(), memory.NewVectorMemoryWithLimit(1), storable.Storable[[]byte](storable.Bytes()))

	_, err := l.Append(make([]byte, 60000))
	require.NoError(t, err)

	_, err = l.Append(make([]byte, 60000))
	require.ErrorIs(t, err, memory.ErrGrowFailed)
	assert.Equal(t, uint64(1), l.Len(), "failed append leaves the log unchanged")
}

func Test_StableLog_Init_Panics_When_Memories_Swapped(t *testing.T) {
	t.Parallel()

	index, data := memory.NewVectorMemory(), memory.NewVectorMemory()
	stablelog.New(index, data, storable.Storable[string](storable.String()))

	assert.Panics(t, func() { stablelog.Init(data, index, storable.Storable[string](storable.String())) })
}
