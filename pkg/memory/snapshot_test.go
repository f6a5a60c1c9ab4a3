package memory_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/stable-structures/pkg/memory"
)

func Test_ReadSnapshot_Returns_Same_Bytes_When_Written_By_WriteSnapshot(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "snap")
	m := memory.NewVectorMemory()
	require.NoError(t, memory.SafeWrite(m, 70000, []byte("snapshot")))

	require.NoError(t, memory.WriteSnapshot(path, m))

	restored, err := memory.ReadSnapshot(path)
	require.NoError(t, err)

	assert.Equal(t, m.Size(), restored.Size())

	got := make([]byte, 8)
	restored.Read(70000, got)
	assert.Equal(t, "snapshot", string(got))
}

func Test_ReadSnapshot_Returns_Empty_Memory_When_Source_Was_Empty(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "snap")
	require.NoError(t, memory.WriteSnapshot(path, memory.NewVectorMemory()))

	restored, err := memory.ReadSnapshot(path)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), restored.Size())
}

func Test_ReadSnapshot_Returns_ErrCorrupt_When_Data_Is_Damaged(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "snap")
	m := memory.NewVectorMemory()
	require.NoError(t, memory.SafeWrite(m, 0, []byte("x")))
	require.NoError(t, memory.WriteSnapshot(path, m))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	raw[len(raw)-1] ^= 0xFF
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	_, err = memory.ReadSnapshot(path)
	require.ErrorIs(t, err, memory.ErrCorrupt)

	require.NoError(t, os.WriteFile(path, raw[:20], 0o644))

	_, err = memory.ReadSnapshot(path)
	require.ErrorIs(t, err, memory.ErrCorrupt)
}
