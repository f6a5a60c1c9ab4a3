package memory_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/stable-structures/pkg/memory"
)

func Test_FileMemory_Persists_Writes_When_Reopened(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "data.mem")

	fm, err := memory.OpenFile(path, memory.DefaultFileOptions())
	require.NoError(t, err)

	require.NoError(t, memory.SafeWrite(fm, memory.PageSize+5, []byte("persist")))
	require.NoError(t, fm.Flush())
	require.NoError(t, fm.Close())
	require.NoError(t, fm.Close(), "Close is idempotent")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(2*memory.PageSize), info.Size())

	fm, err = memory.OpenFile(path, memory.FileOptions{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = fm.Close() })

	assert.Equal(t, uint64(2), fm.Size())

	got := make([]byte, 7)
	fm.Read(memory.PageSize+5, got)
	assert.Equal(t, "persist", string(got))
}

func Test_OpenFile_Returns_ErrBusy_When_Already_Open(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "data.mem")

	fm, err := memory.OpenFile(path, memory.DefaultFileOptions())
	require.NoError(t, err)
	t.Cleanup(func() { _ = fm.Close() })

	_, err = memory.OpenFile(path, memory.DefaultFileOptions())
	require.ErrorIs(t, err, memory.ErrBusy)
}

func Test_OpenFile_Waits_For_Owner_When_LockTimeout_Set(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "data.mem")

	fm, err := memory.OpenFile(path, memory.DefaultFileOptions())
	require.NoError(t, err)

	_, err = memory.OpenFile(path, memory.FileOptions{LockTimeout: 20 * time.Millisecond})
	require.ErrorIs(t, err, memory.ErrBusy)

	go func() {
		time.Sleep(30 * time.Millisecond)
		_ = fm.Close()
	}()

	second, err := memory.OpenFile(path, memory.FileOptions{LockTimeout: 5 * time.Second})
	require.NoError(t, err)
	require.NoError(t, second.Close())
}

func Test_OpenFile_Returns_ErrCorrupt_When_Size_Not_Page_Aligned(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "data.mem")
	require.NoError(t, os.WriteFile(path, []byte("short"), 0o644))

	_, err := memory.OpenFile(path, memory.DefaultFileOptions())
	require.ErrorIs(t, err, memory.ErrCorrupt)

	// The lock must be released on failure.
	require.NoError(t, os.Truncate(path, 0))

	fm, err := memory.OpenFile(path, memory.DefaultFileOptions())
	require.NoError(t, err)
	require.NoError(t, fm.Close())
}

func Test_FileMemory_Grow_Returns_Minus_One_When_MaxPages_Reached(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "data.mem")

	fm, err := memory.OpenFile(path, memory.FileOptions{MaxPages: 1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = fm.Close() })

	require.Equal(t, int64(0), fm.Grow(1))
	assert.Equal(t, int64(-1), fm.Grow(1))
}

func Test_FileMemory_Flush_Returns_ErrClosed_When_Closed(t *testing.T) {
	t.Parallel()

	fm, err := memory.OpenFile(filepath.Join(t.TempDir(), "data.mem"), memory.DefaultFileOptions())
	require.NoError(t, err)
	require.NoError(t, fm.Close())

	require.ErrorIs(t, fm.Flush(), memory.ErrClosed)
	assert.Equal(t, int64(-1), fm.Grow(1))
}

func Test_MemoryManager_Survives_Reopen_When_Backed_By_File(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "data.mem")

	fm, err := memory.OpenFile(path, memory.DefaultFileOptions())
	require.NoError(t, err)

	mm := memory.InitMemoryManagerWithBucketSize(fm, 1)
	require.NoError(t, memory.SafeWrite(mm.Get(1), 0, []byte("virtual")))
	require.NoError(t, fm.Close())

	fm, err = memory.OpenFile(path, memory.DefaultFileOptions())
	require.NoError(t, err)
	t.Cleanup(func() { _ = fm.Close() })

	got := make([]byte, 7)
	memory.InitMemoryManager(fm).Get(1).Read(0, got)
	assert.Equal(t, "virtual", string(got))
}
