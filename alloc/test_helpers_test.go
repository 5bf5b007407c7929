package alloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/memsim/physmem"
)

// ============================================================================
// Construction Utilities
// ============================================================================

// newTestStandard creates a Standard allocator over a fresh heap memory.
func newTestStandard(t testing.TB, size uint64, kind Kind) (*Standard, *physmem.Memory) {
	t.Helper()

	mem, err := physmem.New(size)
	require.NoError(t, err)

	s, err := NewStandard(mem, kind)
	require.NoError(t, err)
	return s, mem
}

// newTestBuddy creates a BuddyAllocator over a fresh heap memory.
func newTestBuddy(t testing.TB, size, minBlock uint64) (*BuddyAllocator, *physmem.Memory) {
	t.Helper()

	mem, err := physmem.New(size)
	require.NoError(t, err)

	b, err := NewBuddy(mem, minBlock)
	require.NoError(t, err)
	return b, mem
}

// mustAlloc allocates and fails the test on error.
func mustAlloc(t testing.TB, a Allocator, size uint64) BlockID {
	t.Helper()

	id, err := a.Allocate(size)
	require.NoError(t, err, "Allocate(%d)", size)
	require.NotZero(t, id)
	return id
}

// mustAddr returns the address of an allocated block.
func mustAddr(t testing.TB, a Allocator, id BlockID) uint64 {
	t.Helper()

	addr, err := a.BlockAddress(id)
	require.NoError(t, err, "BlockAddress(%d)", id)
	return addr
}

// ============================================================================
// Invariant Checks
// ============================================================================

// assertInvariants checks the accounting invariants shared by every allocator:
// blocks tile the memory, used + free == total and the store's used size
// matches the allocator's.
func assertInvariants(t testing.TB, a Allocator, mem *physmem.Memory) {
	t.Helper()

	blocks := a.Blocks()
	require.NotEmpty(t, blocks)

	var next, used uint64
	for i, b := range blocks {
		require.Equal(t, next, b.Addr, "block %d: gap or overlap at %#x", i, b.Addr)
		require.NotZero(t, b.Size, "block %d: zero size", i)
		if b.Free {
			assert.Zero(t, b.ID, "block %d: free block carries an id", i)
		} else {
			assert.NotZero(t, b.ID, "block %d: allocated block without id", i)
			assert.LessOrEqual(t, b.Requested, b.Size, "block %d: requested exceeds size", i)
			used += b.Size
		}
		next = b.End()
	}
	require.Equal(t, mem.TotalSize(), next, "blocks do not cover memory")

	st := a.Stats()
	assert.Equal(t, used, st.UsedBytes)
	assert.Equal(t, st.TotalBytes, st.UsedBytes+st.FreeBytes, "used + free != total")
	assert.Equal(t, used, mem.UsedSize(), "store used size out of sync")
}

// assertNoAdjacentFree checks that the standard allocator fully coalesced.
func assertNoAdjacentFree(t testing.TB, s *Standard) {
	t.Helper()

	blocks := s.Blocks()
	for i := 1; i < len(blocks); i++ {
		assert.False(t, blocks[i-1].Free && blocks[i].Free,
			"adjacent free blocks at %#x and %#x", blocks[i-1].Addr, blocks[i].Addr)
	}
}

// assertBuddyAligned checks addr % size == 0 and power-of-two sizes for every block.
func assertBuddyAligned(t testing.TB, b *BuddyAllocator) {
	t.Helper()

	for _, blk := range b.Blocks() {
		assert.Zero(t, blk.Size&(blk.Size-1), "size %d is not a power of two", blk.Size)
		assert.Zero(t, blk.Addr%blk.Size, "block at %#x misaligned for size %d", blk.Addr, blk.Size)
		assert.GreaterOrEqual(t, blk.Size, b.MinBlockSize())
	}
}
