package btreemap_test

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/stable-structures/pkg/btreemap"
	"github.com/calvinalkan/stable-structures/pkg/memory"
	"github.com/calvinalkan/stable-structures/pkg/storable"
)

func newCached(t *testing.T, items uint32) *btreemap.CachedBTreeMap[uint64, uint64] {
	t.Helper()

	return btreemap.NewCached(memory.NewVectorMemory(), storable.Uint64(), storable.Storable[uint64](storable.Uint64()), items)
}

func Test_CachedBTreeMap_Get_Populates_Cache_When_Key_In_Map(t *testing.T) {
	t.Parallel()

	c := newCached(t, 10)
	c.Inner().Insert(1, 11)

	v, ok := c.Get(1)
	require.True(t, ok)
	assert.Equal(t, uint64(11), v)
	assert.Equal(t, 1, c.CachedLen())

	_, ok = c.Get(2)
	assert.False(t, ok)
	assert.Equal(t, 1, c.CachedLen(), "misses are not cached")
}

func Test_CachedBTreeMap_Insert_Writes_Through_When_Called(t *testing.T) {
	t.Parallel()

	c := newCached(t, 10)

	_, had := c.Insert(1, 10)
	assert.False(t, had)

	prev, had := c.Insert(1, 20)
	require.True(t, had)
	assert.Equal(t, uint64(10), prev)

	inner, _ := c.Inner().Get(1)
	assert.Equal(t, uint64(20), inner)

	got, _ := c.Get(1)
	assert.Equal(t, uint64(20), got)
	assert.Equal(t, 1, c.CachedLen())
}

func Test_CachedBTreeMap_Remove_Evicts_Both_When_Key_Present(t *testing.T) {
	t.Parallel()

	c := newCached(t, 10)
	c.Insert(3, 31)
	c.Get(3)

	prev, ok := c.Remove(3)
	require.True(t, ok)
	assert.Equal(t, uint64(31), prev)

	_, ok = c.Remove(3)
	assert.False(t, ok)

	_, ok = c.Get(3)
	assert.False(t, ok)
	assert.False(t, c.ContainsKey(3))
	assert.True(t, c.IsEmpty())
}

func Test_CachedBTreeMap_Pop_Evicts_Popped_Key_When_Cached(t *testing.T) {
	t.Parallel()

	c := newCached(t, 10)
	c.Insert(0, 42)
	c.Insert(10, 100)

	k, v, ok := c.PopFirst()
	require.True(t, ok)
	assert.Equal(t, [2]uint64{0, 42}, [2]uint64{k, v})

	_, ok = c.Get(0)
	assert.False(t, ok)

	k, v, ok = c.PopLast()
	require.True(t, ok)
	assert.Equal(t, [2]uint64{10, 100}, [2]uint64{k, v})
	assert.Equal(t, 0, c.CachedLen())
	assert.True(t, c.IsEmpty())
}

func Test_CachedBTreeMap_FirstKeyValue_Bypasses_Cache_When_Inner_Changed(t *testing.T) {
	t.Parallel()

	c := newCached(t, 10)
	c.Insert(1, 1)

	// A write that reaches the map without going through the cache.
	c.Inner().Insert(1, 2)

	k, v, _ := c.FirstKeyValue()
	assert.Equal(t, [2]uint64{1, 2}, [2]uint64{k, v})

	cached, _ := c.Get(1)
	assert.Equal(t, uint64(1), cached, "cache keeps the value it was told about")

	c.FirstKeyValue()
	c.LastKeyValue()
	assert.Equal(t, 1, c.CachedLen(), "peeks never populate")
}

func Test_CachedBTreeMap_Uses_Existing_Map_When_Wrapped(t *testing.T) {
	t.Parallel()

	mem := memory.NewVectorMemory()
	inner := btreemap.New(mem, storable.Uint64(), storable.Storable[[]byte](storable.FixedBytes(2)))
	inner.Insert(1, []byte{1, 1})
	inner.Insert(2, []byte{2, 1})

	c := btreemap.NewCachedWithMap[uint64, []byte](inner, 10)

	assert.True(t, c.ContainsKey(1))
	assert.True(t, c.ContainsKey(2))
	assert.False(t, c.ContainsKey(3))
	assert.False(t, c.IsEmpty())

	got, _ := c.Get(1)
	assert.Equal(t, []byte{1, 1}, got)

	c.Remove(2)
	_, ok := c.Get(2)
	assert.False(t, ok)
	assert.False(t, inner.ContainsKey(2))
	assert.False(t, c.IsEmpty())

	c.Remove(1)
	assert.False(t, inner.ContainsKey(1))
	assert.True(t, c.IsEmpty())
}

func Test_CachedBTreeMap_Clear_Empties_Cache_And_Map(t *testing.T) {
	t.Parallel()

	c := newCached(t, 10)
	c.Insert(1, 1)
	c.Insert(2, 2)
	c.Insert(3, 3)

	c.Clear()

	assert.Equal(t, uint64(0), c.Len())
	assert.Equal(t, 0, c.CachedLen())

	_, ok := c.Get(1)
	assert.False(t, ok)
}

func Test_CachedBTreeMap_Iterates_Map_When_Ranged(t *testing.T) {
	t.Parallel()

	c := newCached(t, 2)
	c.Insert(1, 10)
	c.Insert(2, 20)
	c.Insert(3, 30)

	var keys []uint64
	for k := range c.Range(btreemap.Included[uint64](2), btreemap.Unbounded[uint64]()) {
		keys = append(keys, k)
	}

	assert.Equal(t, []uint64{2, 3}, keys)
	assert.Len(t, collect(c.Iter()), 3)
	assert.Len(t, collect(c.IterFromPrevKey(3)), 2)
}

func Test_CachedBTreeMap_Get_Matches_Backing_Map_When_Random_Ops(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewPCG(7, 11))
	mem := memory.NewVectorMemory()
	c := btreemap.NewCached(mem, storable.Uint64(), storable.Storable[uint64](storable.Uint64()), 8)
	values := storable.Storable[uint64](storable.Uint64())

	for step := range 3000 {
		k := rng.Uint64N(32)

		switch rng.IntN(6) {
		case 0, 1:
			c.Insert(k, rng.Uint64())
		case 2:
			c.Remove(k)
		case 3:
			if rng.IntN(2) == 0 {
				c.PopFirst()
			} else {
				c.PopLast()
			}
		case 4:
			// Reopening drops the cache and rebuilds the map from memory.
			c = btreemap.InitCached(mem, storable.Uint64(), values, 8)
		default:
			got, ok := c.Get(k)
			want, wantOK := c.Inner().Get(k)
			require.Equal(t, wantOK, ok, "step %d key %d", step, k)
			require.Equal(t, want, got, "step %d key %d", step, k)
		}

		require.LessOrEqual(t, c.CachedLen(), 8)
	}
}
