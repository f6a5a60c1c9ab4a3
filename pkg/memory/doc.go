// Package memory provides page-addressable memory handles that the stable
// collections are laid out on.
//
// A [Memory] is a contiguous, byte-addressable region that grows in units of
// [PageSize] bytes and never shrinks. Every collection in this module is
// constructed by handing it one (or, for a ring buffer or log, two) memories
// and assuming exclusive logical ownership of them afterwards.
//
// Implementations:
//   - [VectorMemory]: heap-backed; handles share the same buffer.
//   - [FileMemory]: a file mapped with mmap(2); survives process restarts.
//   - [RestrictedMemory]: a fixed page window of another memory.
//   - [MemoryManager]: partitions one memory into up to 255 [VirtualMemory]
//     handles, so several collections can share a single file.
//
// # Errors
//
// Reads and writes outside the current size are programming errors and
// panic. Growing past a limit is reported by [Memory.Grow] returning -1;
// [EnsureCapacity] and [SafeWrite] turn that into [ErrGrowFailed].
//
// # Concurrency
//
// Memories are not safe for concurrent use. The collections built on them
// assume a single, non-reentrant caller.
package memory
