package btreemap_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/stable-structures/pkg/btreemap"
	"github.com/calvinalkan/stable-structures/pkg/codec"
	"github.com/calvinalkan/stable-structures/pkg/memory"
	"github.com/calvinalkan/stable-structures/pkg/storable"
)

type userV1 struct {
	Name string `json:"name"`
}

type userV2 struct {
	Name string `json:"name"`
	Age  *uint8 `json:"age,omitempty"`
}

// storedUser holds exactly one layout.
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

func age(n uint8) *uint8 {
	return &n
}

func Test_VersionedBTreeMap_Get_Migrates_Legacy_Record_Without_Rewriting_When_Read(t *testing.T) {
	t.Parallel()

	m := btreemap.NewVersioned[uint64, storedUser, userV2](memory.NewVectorMemory(), storable.Uint64(), storable.JSON[storedUser](), userCodec{})

	m.Inner().Insert(1, storedUser{V1: &userV1{Name: "ada"}})

	got, ok := m.Get(1)
	require.True(t, ok)
	assert.Equal(t, userV2{Name: "ada"}, got)

	raw, _ := m.Inner().Get(1)
	assert.NotNil(t, raw.V1, "reads keep the legacy layout")
	assert.Nil(t, raw.V2)

	prev, had := m.Insert(1, userV2{Name: "ada", Age: age(36)})
	require.True(t, had)
	assert.Equal(t, userV2{Name: "ada"}, prev)

	raw, _ = m.Inner().Get(1)
	assert.Nil(t, raw.V1)
	assert.Equal(t, &userV2{Name: "ada", Age: age(36)}, raw.V2)
}

func Test_VersionedBTreeMap_Decodes_Every_Operation_When_Mixed_Layouts_Stored(t *testing.T) {
	t.Parallel()

	mem := memory.NewVectorMemory()
	m := btreemap.NewVersioned[uint64, storedUser, userV2](mem, storable.Uint64(), storable.JSON[storedUser](), userCodec{})

	m.Inner().Insert(0, storedUser{V1: &userV1{Name: "zero"}})
	m.Insert(5, userV2{Name: "five", Age: age(5)})
	m.Inner().Insert(10, storedUser{V1: &userV1{Name: "ten"}})

	k, v, ok := m.FirstKeyValue()
	require.True(t, ok)
	assert.Equal(t, uint64(0), k)
	assert.Equal(t, userV2{Name: "zero"}, v)

	k, v, _ = m.LastKeyValue()
	assert.Equal(t, uint64(10), k)
	assert.Equal(t, userV2{Name: "ten"}, v)

	var names []string
	for _, u := range m.Iter() {
		names = append(names, u.Name)
	}

	assert.Equal(t, []string{"zero", "five", "ten"}, names)

	names = names[:0]
	for _, u := range m.IterFromPrevKey(10) {
		names = append(names, u.Name)
	}

	assert.Equal(t, []string{"five", "ten"}, names)

	reopened := btreemap.InitVersioned[uint64, storedUser, userV2](mem, storable.Uint64(), storable.JSON[storedUser](), userCodec{})

	_, v, _ = reopened.PopLast()
	assert.Equal(t, userV2{Name: "ten"}, v)

	_, v, _ = reopened.PopFirst()
	assert.Equal(t, userV2{Name: "zero"}, v)

	removed, ok := reopened.Remove(5)
	require.True(t, ok)
	assert.Equal(t, userV2{Name: "five", Age: age(5)}, removed)
	assert.True(t, reopened.IsEmpty())
}

func Test_VersionedBTreeMap_Stacks_On_Cache_When_Wrapped(t *testing.T) {
	t.Parallel()

	cached := btreemap.NewCached(memory.NewVectorMemory(), storable.Uint64(), storable.JSON[storedUser](), 4)
	m := btreemap.NewVersionedWithMap[uint64, storedUser, userV2](cached, userCodec{})

	m.Insert(1, userV2{Name: "one"})

	got, ok := m.Get(1)
	require.True(t, ok)
	assert.Equal(t, userV2{Name: "one"}, got)
	assert.Equal(t, 1, cached.CachedLen())
	assert.Equal(t, uint64(1), m.Len())
	assert.True(t, m.ContainsKey(1))

	m.Clear()
	assert.True(t, m.IsEmpty())
}

func Test_VersionedBTreeMap_Behaves_Like_Plain_Map_When_Codec_Is_Identity(t *testing.T) {
	t.Parallel()

	m := btreemap.NewVersioned[uint64, []byte, []byte](memory.NewVectorMemory(), storable.Uint64(), storable.FixedBytes(2), codec.Identity[[]byte]{})

	m.Insert(1, []byte{1, 1})
	m.Insert(2, []byte{2, 1})
	m.Insert(3, []byte{3, 1})

	prev, _ := m.Insert(1, []byte{1, 10})
	assert.Equal(t, []byte{1, 1}, prev)

	var keys []uint64
	for k := range m.Range(btreemap.Unbounded[uint64](), btreemap.Included[uint64](2)) {
		keys = append(keys, k)
	}

	assert.Equal(t, []uint64{1, 2}, keys)
}
