package memory

import (
	"encoding/binary"
	"fmt"
)

// MemoryID identifies one of the virtual memories of a [MemoryManager].
type MemoryID uint8

// MaxMemories is the number of virtual memories a manager can hand out.
const MaxMemories = 255

// DefaultBucketSize is the number of pages per bucket.
const DefaultBucketSize uint16 = 128

// Manager layout. The header occupies the first page; buckets start at page 1.
//
//	0x0000  magic "MGR"
//	0x0003  version u8
//	0x0004  allocated bucket count u16
//	0x0006  bucket size in pages u16
//	0x0008  reserved (32 bytes)
//	0x0028  memory sizes in pages, MaxMemories * u64
//	0x0820  bucket table, maxBuckets * u8 (memory id, 0xFF = unallocated)
const (
	managerMagic   = "MGR"
	managerVersion = 1

	offMgrBuckets    = 4
	offMgrBucketSize = 6
	offMgrSizes      = 40
	offMgrTable      = offMgrSizes + MaxMemories*8

	maxBuckets        = 32768
	unallocatedBucket = 0xFF
	bucketsStartPage  = 1
)

// MemoryManager partitions a single memory into up to [MaxMemories]
// independent virtual memories.
//
// Each virtual memory grows in buckets of a fixed number of pages; buckets of
// different memories interleave in the underlying memory. The bucket table is
// persisted so [InitMemoryManager] restores every virtual memory.
type MemoryManager struct {
	mem        Memory
	bucketSize uint64
	allocated  uint16
	sizes      [MaxMemories]uint64
	buckets    [MaxMemories][]uint16
}

// NewMemoryManager resets mem and returns an empty manager with the default
// bucket size.
func NewMemoryManager(mem Memory) *MemoryManager {
	return NewMemoryManagerWithBucketSize(mem, DefaultBucketSize)
}

// NewMemoryManagerWithBucketSize is [NewMemoryManager] with a custom bucket
// size in pages. Panics if bucketPages is 0 or mem cannot hold the header.
func NewMemoryManagerWithBucketSize(mem Memory, bucketPages uint16) *MemoryManager {
	if bucketPages == 0 {
		panic("memory: bucket size must be > 0")
	}

	if err := EnsureCapacity(mem, bucketsStartPage*PageSize); err != nil {
		panic(fmt.Sprintf("memory: manager header: %v", err))
	}

	mm := &MemoryManager{mem: mem, bucketSize: uint64(bucketPages)}

	table := make([]byte, maxBuckets)
	for i := range table {
		table[i] = unallocatedBucket
	}

	mem.Write(offMgrTable, table)
	mm.writeHeader()

	return mm
}

// InitMemoryManager reopens a manager previously created over mem, or creates
// one if mem is empty. Panics if mem holds anything else.
func InitMemoryManager(mem Memory) *MemoryManager {
	return InitMemoryManagerWithBucketSize(mem, DefaultBucketSize)
}

// InitMemoryManagerWithBucketSize is [InitMemoryManager] with the bucket size
// used when mem is empty. An existing manager keeps its stored bucket size.
func InitMemoryManagerWithBucketSize(mem Memory, bucketPages uint16) *MemoryManager {
	if mem.Size() == 0 {
		return NewMemoryManagerWithBucketSize(mem, bucketPages)
	}

	var hdr [offMgrSizes]byte
	mem.Read(0, hdr[:])

	if string(hdr[:3]) != managerMagic {
		panic(fmt.Sprintf("memory: bad manager magic %q", hdr[:3]))
	}

	if hdr[3] != managerVersion {
		panic(fmt.Sprintf("memory: unsupported manager version %d", hdr[3]))
	}

	mm := &MemoryManager{
		mem:        mem,
		allocated:  binary.LittleEndian.Uint16(hdr[offMgrBuckets:]),
		bucketSize: uint64(binary.LittleEndian.Uint16(hdr[offMgrBucketSize:])),
	}

	if mm.bucketSize == 0 || mm.allocated > maxBuckets {
		panic("memory: corrupt manager header")
	}

	sizes := make([]byte, MaxMemories*8)
	mem.Read(offMgrSizes, sizes)

	for i := range mm.sizes {
		mm.sizes[i] = binary.LittleEndian.Uint64(sizes[i*8:])
	}

	table := make([]byte, mm.allocated)
	mem.Read(offMgrTable, table)

	for bucket, id := range table {
		if id == unallocatedBucket {
			continue
		}

		mm.buckets[id] = append(mm.buckets[id], uint16(bucket))
	}

	for id, size := range mm.sizes {
		if uint64(len(mm.buckets[id]))*mm.bucketSize < size {
			panic(fmt.Sprintf("memory: virtual memory %d has %d pages but only %d buckets", id, size, len(mm.buckets[id])))
		}
	}

	return mm
}

// Get returns the virtual memory with the given id. Handles are cheap; two
// handles with the same id address the same bytes. Panics if id is out of
// range.
func (mm *MemoryManager) Get(id MemoryID) *VirtualMemory {
	if int(id) >= MaxMemories {
		panic(fmt.Sprintf("memory: memory id %d out of range", id))
	}

	return &VirtualMemory{mm: mm, id: id}
}

// BucketSize returns the bucket size in pages.
func (mm *MemoryManager) BucketSize() uint64 {
	return mm.bucketSize
}

// AllocatedBuckets returns how many buckets have been handed out.
func (mm *MemoryManager) AllocatedBuckets() int {
	return int(mm.allocated)
}

func (mm *MemoryManager) writeHeader() {
	var hdr [offMgrSizes]byte

	copy(hdr[:], managerMagic)
	hdr[3] = managerVersion
	binary.LittleEndian.PutUint16(hdr[offMgrBuckets:], mm.allocated)
	binary.LittleEndian.PutUint16(hdr[offMgrBucketSize:], uint16(mm.bucketSize))

	mm.mem.Write(0, hdr[:])

	sizes := make([]byte, MaxMemories*8)
	for i, s := range mm.sizes {
		binary.LittleEndian.PutUint64(sizes[i*8:], s)
	}

	mm.mem.Write(offMgrSizes, sizes)
}

func (mm *MemoryManager) grow(id MemoryID, pages uint64) int64 {
	prev := mm.sizes[id]
	newSize := prev + pages
	have := uint64(len(mm.buckets[id]))
	need := (newSize + mm.bucketSize - 1) / mm.bucketSize

	if need > have {
		extra := need - have
		if uint64(mm.allocated)+extra > maxBuckets {
			return -1
		}

		required := bucketsStartPage + (uint64(mm.allocated)+extra)*mm.bucketSize
		if cur := mm.mem.Size(); cur < required {
			if mm.mem.Grow(required-cur) < 0 {
				return -1
			}
		}

		for range extra {
			bucket := mm.allocated
			mm.buckets[id] = append(mm.buckets[id], bucket)
			mm.mem.Write(offMgrTable+uint64(bucket), []byte{byte(id)})
			mm.allocated++
		}
	}

	mm.sizes[id] = newSize
	mm.writeHeader()

	return int64(prev)
}

// access splits [offset, offset+len(buf)) into per-bucket chunks and calls fn
// with the physical offset of each chunk.
func (mm *MemoryManager) access(id MemoryID, kind string, offset uint64, buf []byte, fn func(phys uint64, chunk []byte)) {
	checkRange(kind, mm.sizes[id]*PageSize, offset, len(buf))

	bucketBytes := mm.bucketSize * PageSize

	for len(buf) > 0 {
		idx := offset / bucketBytes
		within := offset % bucketBytes
		n := min(uint64(len(buf)), bucketBytes-within)

		bucket := uint64(mm.buckets[id][idx])
		phys := bucketsStartPage*PageSize + bucket*bucketBytes + within

		fn(phys, buf[:n])

		buf = buf[n:]
		offset += n
	}
}

// VirtualMemory is one partition of a [MemoryManager].
type VirtualMemory struct {
	mm *MemoryManager
	id MemoryID
}

// ID returns the memory id within its manager.
func (v *VirtualMemory) ID() MemoryID {
	return v.id
}

// Size implements [Memory].
func (v *VirtualMemory) Size() uint64 {
	return v.mm.sizes[v.id]
}

// Grow implements [Memory].
func (v *VirtualMemory) Grow(pages uint64) int64 {
	return v.mm.grow(v.id, pages)
}

// Read implements [Memory].
func (v *VirtualMemory) Read(offset uint64, dst []byte) {
	v.mm.access(v.id, "read", offset, dst, func(phys uint64, chunk []byte) {
		v.mm.mem.Read(phys, chunk)
	})
}

// Write implements [Memory].
func (v *VirtualMemory) Write(offset uint64, src []byte) {
	v.mm.access(v.id, "write", offset, src, func(phys uint64, chunk []byte) {
		v.mm.mem.Write(phys, chunk)
	})
}

var _ Memory = (*VirtualMemory)(nil)
