package btreemap

import (
	"encoding/binary"
	"fmt"
	"iter"
	"math"

	"github.com/tidwall/btree"

	"github.com/calvinalkan/stable-structures/internal/layout"
	"github.com/calvinalkan/stable-structures/pkg/memory"
	"github.com/calvinalkan/stable-structures/pkg/storable"
)

// BTM1 layout constants.
const (
	btmMagic      = "BTM"
	btmVersion    = 1
	btmHeaderSize = 64

	// Record kinds.
	recordPut       byte = 1
	recordTombstone byte = 2

	// kind u8 + key length u32 + value length u32.
	recordHeaderSize = 9

	// Header flags.
	flagKeyFixed   uint32 = 1 << 0
	flagValueFixed uint32 = 1 << 1

	// Dead bytes below this never trigger compaction.
	defaultCompactMinDead = 64 << 10
)

// Header field offsets (bytes from memory start).
const (
	offKeyMax    = 0x04 // uint32
	offValueMax  = 0x08 // uint32
	offFlags     = 0x0C // uint32
	offDataStart = 0x10 // uint64
	offDataEnd   = 0x18 // uint64
	offLiveBytes = 0x20 // uint64
	offCount     = 0x28 // uint64
	// 0x30..0x40 reserved
)

// slot is the in-memory index entry for one live key.
type slot[K any] struct {
	key    K
	off    uint64
	keyLen uint32
	valLen uint32
}

func (s slot[K]) size() uint64 {
	return recordHeaderSize + uint64(s.keyLen) + uint64(s.valLen)
}

// BTreeMap is an ordered map persisted in a single memory.
//
// Entries are stored as an append-only log of put and tombstone records after
// a fixed 64-byte header. An in-memory B-tree maps every live key to its
// record and is rebuilt from the log by [Init]. When dead records outweigh
// live ones the live set is rewritten into free space and the header is
// switched to it in one write, so a torn compaction leaves the previous
// region intact.
//
// Header layout (little-endian):
//
//	0x00  magic "BTM", version u8
//	0x04  key max size u32
//	0x08  value max size u32
//	0x0C  flags u32 (bit 0 key fixed, bit 1 value fixed)
//	0x10  data start u64
//	0x18  data end u64
//	0x20  live bytes u64
//	0x28  entry count u64
//
// Record layout: kind u8, key length u32, value length u32, key, value.
type BTreeMap[K, V any] struct {
	mem    memory.Memory
	keys   storable.Key[K]
	values storable.Storable[V]
	index  *btree.BTreeG[slot[K]]

	dataStart uint64
	dataEnd   uint64
	live      uint64

	compactMinDead uint64
}

// New resets mem and returns an empty map over it.
func New[K, V any](mem memory.Memory, keys storable.Key[K], values storable.Storable[V]) *BTreeMap[K, V] {
	m := newMap(mem, keys, values)
	m.reset()

	return m
}

// Init reopens the map stored in mem, or creates an empty one if mem is
// empty.
//
// Panics if mem holds a different structure, a different layout version, or
// a map created with different key or value bounds.
func Init[K, V any](mem memory.Memory, keys storable.Key[K], values storable.Storable[V]) *BTreeMap[K, V] {
	if mem.Size() == 0 {
		return New(mem, keys, values)
	}

	m := newMap(mem, keys, values)
	m.load()

	return m
}

func newMap[K, V any](mem memory.Memory, keys storable.Key[K], values storable.Storable[V]) *BTreeMap[K, V] {
	less := func(a, b slot[K]) bool {
		return keys.Compare(a.key, b.key) < 0
	}

	return &BTreeMap[K, V]{
		mem:            mem,
		keys:           keys,
		values:         values,
		index:          btree.NewBTreeGOptions(less, btree.Options{Degree: 32, NoLocks: true}),
		compactMinDead: defaultCompactMinDead,
	}
}

func (m *BTreeMap[K, V]) flags() uint32 {
	var f uint32
	if m.keys.Bound().IsFixedSize {
		f |= flagKeyFixed
	}

	if m.values.Bound().IsFixedSize {
		f |= flagValueFixed
	}

	return f
}

func (m *BTreeMap[K, V]) reset() {
	layout.MustWrite(m.mem, 0, make([]byte, btmHeaderSize))
	layout.WriteMagic(m.mem, btmMagic, btmVersion)

	layout.WriteU32(m.mem, offKeyMax, m.keys.Bound().MaxSize)
	layout.WriteU32(m.mem, offValueMax, m.values.Bound().MaxSize)
	layout.WriteU32(m.mem, offFlags, m.flags())

	m.index.Clear()
	m.dataStart = btmHeaderSize
	m.dataEnd = btmHeaderSize
	m.live = 0
	m.writeHeader()
}

func (m *BTreeMap[K, V]) writeHeader() {
	var hdr [offCount + 8 - offDataStart]byte

	binary.LittleEndian.PutUint64(hdr[0:], m.dataStart)
	binary.LittleEndian.PutUint64(hdr[offDataEnd-offDataStart:], m.dataEnd)
	binary.LittleEndian.PutUint64(hdr[offLiveBytes-offDataStart:], m.live)
	binary.LittleEndian.PutUint64(hdr[offCount-offDataStart:], uint64(m.index.Len()))

	m.mem.Write(offDataStart, hdr[:])
}

func (m *BTreeMap[K, V]) load() {
	layout.CheckMagic("btreemap", m.mem, btmMagic, btmVersion)

	if memory.Bytes(m.mem) < btmHeaderSize {
		panic("btreemap: memory too small for header")
	}

	keyMax := layout.ReadU32(m.mem, offKeyMax)
	valueMax := layout.ReadU32(m.mem, offValueMax)
	flags := layout.ReadU32(m.mem, offFlags)

	if keyMax != m.keys.Bound().MaxSize || valueMax != m.values.Bound().MaxSize || flags != m.flags() {
		panic(fmt.Sprintf("btreemap: stored bounds key=%d value=%d flags=%d do not match key=%d value=%d flags=%d",
			keyMax, valueMax, flags, m.keys.Bound().MaxSize, m.values.Bound().MaxSize, m.flags()))
	}

	m.dataStart = layout.ReadU64(m.mem, offDataStart)
	m.dataEnd = layout.ReadU64(m.mem, offDataEnd)
	m.live = layout.ReadU64(m.mem, offLiveBytes)
	count := layout.ReadU64(m.mem, offCount)

	if m.dataStart < btmHeaderSize || m.dataEnd < m.dataStart || m.dataEnd > memory.Bytes(m.mem) {
		panic(fmt.Sprintf("btreemap: corrupt data region [%d, %d)", m.dataStart, m.dataEnd))
	}

	var live uint64

	for off := m.dataStart; off < m.dataEnd; {
		kind, keyLen, valLen := m.readRecordHeader(off)

		kb := make([]byte, keyLen)
		m.mem.Read(off+recordHeaderSize, kb)

		s := slot[K]{key: m.keys.Decode(kb), off: off, keyLen: keyLen, valLen: valLen}

		switch kind {
		case recordPut:
			if prev, ok := m.index.Set(s); ok {
				live -= prev.size()
			}

			live += s.size()
		case recordTombstone:
			if prev, ok := m.index.Delete(s); ok {
				live -= prev.size()
			}
		default:
			panic(fmt.Sprintf("btreemap: corrupt record kind %d at offset %d", kind, off))
		}

		off += s.size()
	}

	if live != m.live || uint64(m.index.Len()) != count {
		panic(fmt.Sprintf("btreemap: replay found %d entries (%d bytes), header says %d (%d bytes)",
			m.index.Len(), live, count, m.live))
	}
}

func (m *BTreeMap[K, V]) readRecordHeader(off uint64) (byte, uint32, uint32) {
	var hdr [recordHeaderSize]byte
	m.mem.Read(off, hdr[:])

	return hdr[0], binary.LittleEndian.Uint32(hdr[1:]), binary.LittleEndian.Uint32(hdr[5:])
}

// appendRecord writes a record after dataEnd and returns its offset. When
// the memory cannot grow, dead records are compacted away and the append is
// retried. Panics before the record is written if there is still no room.
func (m *BTreeMap[K, V]) appendRecord(kind byte, kb, vb []byte) uint64 {
	keyLen := recordLen("key", len(kb))
	valLen := recordLen("value", len(vb))

	rec := make([]byte, recordHeaderSize+len(kb)+len(vb))
	rec[0] = kind
	binary.LittleEndian.PutUint32(rec[1:], keyLen)
	binary.LittleEndian.PutUint32(rec[5:], valLen)
	copy(rec[recordHeaderSize:], kb)
	copy(rec[recordHeaderSize+len(kb):], vb)

	n := uint64(len(rec))

	if err := memory.EnsureCapacity(m.mem, m.dataEnd+n); err != nil {
		if m.dead() == 0 || !m.compact() || memory.EnsureCapacity(m.mem, m.dataEnd+n) != nil {
			panic(fmt.Sprintf("btreemap: append %d bytes at %d: %v", n, m.dataEnd, err))
		}
	}

	off := m.dataEnd
	m.mem.Write(off, rec)
	m.dataEnd += n

	return off
}

// recordLen panics if an encoding does not fit the u32 length field.
func recordLen(what string, n int) uint32 {
	if uint64(n) > math.MaxUint32 {
		panic(fmt.Sprintf("btreemap: %s encoding is %d bytes, record limit %d", what, n, uint64(math.MaxUint32)))
	}

	return uint32(n)
}

func (m *BTreeMap[K, V]) readValue(s slot[K]) V {
	vb := make([]byte, s.valLen)
	m.mem.Read(s.off+recordHeaderSize+uint64(s.keyLen), vb)

	return m.values.Decode(vb)
}

// Memory returns the memory the map is stored in.
func (m *BTreeMap[K, V]) Memory() memory.Memory {
	return m.mem
}

// Get implements [Map].
func (m *BTreeMap[K, V]) Get(key K) (V, bool) {
	s, ok := m.index.Get(slot[K]{key: key})
	if !ok {
		var zero V
		return zero, false
	}

	return m.readValue(s), true
}

// Insert implements [Map]. Panics if the encoded key or value exceeds its
// bound, or if the memory cannot grow even after compaction. The entry is
// unchanged in either case.
func (m *BTreeMap[K, V]) Insert(key K, value V) (V, bool) {
	kb := m.keys.Encode(key)
	storable.CheckBound("btreemap key", m.keys.Bound(), len(kb))

	vb := m.values.Encode(value)
	storable.CheckBound("btreemap value", m.values.Bound(), len(vb))

	var (
		prev    V
		hadPrev bool
	)

	old, ok := m.index.Get(slot[K]{key: key})
	if ok {
		prev, hadPrev = m.readValue(old), true
	}

	off := m.appendRecord(recordPut, kb, vb)
	s := slot[K]{key: key, off: off, keyLen: uint32(len(kb)), valLen: uint32(len(vb))}

	if ok {
		m.live -= old.size()
	}

	m.index.Set(s)
	m.live += s.size()
	m.writeHeader()
	m.maybeCompact()

	return prev, hadPrev
}

// Remove implements [Map].
func (m *BTreeMap[K, V]) Remove(key K) (V, bool) {
	old, ok := m.index.Get(slot[K]{key: key})
	if !ok {
		var zero V
		return zero, false
	}

	return m.removeSlot(old), true
}

func (m *BTreeMap[K, V]) removeSlot(old slot[K]) V {
	prev := m.readValue(old)

	if m.index.Len() == 1 {
		m.Clear()
		return prev
	}

	m.appendRecord(recordTombstone, m.keys.Encode(old.key), nil)
	m.index.Delete(old)
	m.live -= old.size()
	m.writeHeader()
	m.maybeCompact()

	return prev
}

// PopFirst implements [Map].
func (m *BTreeMap[K, V]) PopFirst() (K, V, bool) {
	s, ok := m.index.Min()
	if !ok {
		var (
			k K
			v V
		)

		return k, v, false
	}

	return s.key, m.removeSlot(s), true
}

// PopLast implements [Map].
func (m *BTreeMap[K, V]) PopLast() (K, V, bool) {
	s, ok := m.index.Max()
	if !ok {
		var (
			k K
			v V
		)

		return k, v, false
	}

	return s.key, m.removeSlot(s), true
}

// ContainsKey implements [Map].
func (m *BTreeMap[K, V]) ContainsKey(key K) bool {
	_, ok := m.index.Get(slot[K]{key: key})
	return ok
}

// FirstKeyValue implements [Map].
func (m *BTreeMap[K, V]) FirstKeyValue() (K, V, bool) {
	return m.entry(m.index.Min())
}

// LastKeyValue implements [Map].
func (m *BTreeMap[K, V]) LastKeyValue() (K, V, bool) {
	return m.entry(m.index.Max())
}

func (m *BTreeMap[K, V]) entry(s slot[K], ok bool) (K, V, bool) {
	if !ok {
		var (
			k K
			v V
		)

		return k, v, false
	}

	return s.key, m.readValue(s), true
}

// Len implements [Map].
func (m *BTreeMap[K, V]) Len() uint64 {
	return uint64(m.index.Len())
}

// IsEmpty implements [Map].
func (m *BTreeMap[K, V]) IsEmpty() bool {
	return m.index.Len() == 0
}

// Clear implements [Map]. The memory keeps its size.
func (m *BTreeMap[K, V]) Clear() {
	m.index.Clear()
	m.dataStart = btmHeaderSize
	m.dataEnd = btmHeaderSize
	m.live = 0
	m.writeHeader()
}

// Iter implements [IterableMap].
func (m *BTreeMap[K, V]) Iter() iter.Seq2[K, V] {
	return m.Range(Unbounded[K](), Unbounded[K]())
}

// Range implements [IterableMap].
func (m *BTreeMap[K, V]) Range(start, end Bound[K]) iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		visit := func(s slot[K]) bool {
			if !end.admitsFromAbove(m.keys.Compare(s.key, end.Key)) {
				return false
			}

			if !start.admitsFromBelow(m.keys.Compare(s.key, start.Key)) {
				return true
			}

			return yield(s.key, m.readValue(s))
		}

		if start.Kind == BoundUnbounded {
			m.index.Scan(visit)
			return
		}

		m.index.Ascend(slot[K]{key: start.Key}, visit)
	}
}

// IterFromPrevKey implements [IterableMap].
func (m *BTreeMap[K, V]) IterFromPrevKey(bound K) iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		var (
			from  slot[K]
			found bool
		)

		m.index.Descend(slot[K]{key: bound}, func(s slot[K]) bool {
			if m.keys.Compare(s.key, bound) < 0 {
				from, found = s, true
				return false
			}

			return true
		})

		if !found {
			return
		}

		m.index.Ascend(from, func(s slot[K]) bool {
			return yield(s.key, m.readValue(s))
		})
	}
}

func (m *BTreeMap[K, V]) dead() uint64 {
	return m.dataEnd - m.dataStart - m.live
}

// maybeCompact rewrites the live records once dead bytes exceed both the
// live bytes and compactMinDead. It is skipped when there is no room.
func (m *BTreeMap[K, V]) maybeCompact() {
	dead := m.dead()
	if dead < m.compactMinDead || dead <= m.live {
		return
	}

	m.compact()
}

// compact copies the live records into free space, into the gap before
// dataStart when they fit there and after dataEnd otherwise, then switches
// the header to them. Returns false with nothing changed if the memory cannot
// grow to hold the copy.
func (m *BTreeMap[K, V]) compact() bool {
	target := m.dataEnd
	if btmHeaderSize+m.live <= m.dataStart {
		target = btmHeaderSize
	} else if memory.EnsureCapacity(m.mem, m.dataEnd+m.live) != nil {
		return false
	}

	slots := make([]slot[K], 0, m.index.Len())
	m.index.Scan(func(s slot[K]) bool {
		slots = append(slots, s)
		return true
	})

	buf := make([]byte, m.live)
	pos := uint64(0)

	for i, s := range slots {
		n := s.size()
		m.mem.Read(s.off, buf[pos:pos+n])
		slots[i].off = target + pos
		pos += n
	}

	m.mem.Write(target, buf)

	for _, s := range slots {
		m.index.Set(s)
	}

	m.dataStart = target
	m.dataEnd = target + m.live
	m.writeHeader()

	return true
}

var _ IterableMap[string, string] = (*BTreeMap[string, string])(nil)
