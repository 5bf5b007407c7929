// Package alloc provides dynamic memory allocation over a simulated physical memory.
//
// # Overview
//
// Two allocator shapes share the Allocator interface:
//
//   - Standard: an address-ordered list of blocks that exactly tiles the
//     memory. Placement is First Fit, Best Fit or Worst Fit. Freed blocks are
//     merged with free neighbours.
//   - Buddy: power-of-two blocks kept in per-size free lists. Blocks are split
//     in halves on allocation and merged with their buddy (address XOR size)
//     on release.
//
// The interface is sealed: only this package can implement it.
//
// # Usage Example
//
//	mem := physmem.MustNew(1024)
//	a, err := alloc.New(mem, alloc.Buddy, alloc.WithMinBlockSize(32))
//	if err != nil {
//	    return err
//	}
//
//	id, err := a.Allocate(50) // 64-byte block
//	if err != nil {
//	    return err
//	}
//	addr, _ := a.BlockAddress(id)
//
//	// Later
//	err = a.Deallocate(id)
//
// # Block IDs
//
// Every successful Allocate returns a new BlockID, starting at 1. IDs are
// never reused within an allocator instance, so freeing an ID twice is
// reported as ErrDoubleFree rather than freeing an unrelated block.
//
// # Standard Allocator
//
// Blocks live in an arena slice and link to their neighbours by index, so
// splitting and merging only rewires prev/next handles. A block is split only
// when it exceeds the request by more than one byte. Release merges forward
// while the next block is free, then merges once into a free predecessor.
// After every operation no two adjacent blocks are both free.
//
// # Buddy Allocator
//
// Total memory and the minimum block size must both be powers of two.
// Requests are rounded up to a power of two (at least the minimum block).
// Every block satisfies addr % size == 0 at all times.
//
// # Accounting
//
// Both allocators maintain UsedSize on the backing store, so
// used + free == total always holds. Internal fragmentation compares block
// sizes with the requested sizes; external fragmentation is
// (totalFree - largestFree) / totalFree.
//
// # Thread Safety
//
// Allocators are not thread-safe. Callers must synchronize access externally.
package alloc
