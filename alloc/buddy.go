package alloc

import (
	"fmt"
	"io"
	"slices"

	"github.com/joshuapare/memsim/internal/buf"
	"github.com/joshuapare/memsim/internal/logger"
	"github.com/joshuapare/memsim/physmem"
)

// buddyBlock is an allocated power-of-two block.
type buddyBlock struct {
	addr      uint64
	size      uint64
	requested uint64
}

// BuddyAllocator hands out power-of-two blocks. Free blocks are kept in
// per-size lists; a block's buddy is at addr XOR size.
type BuddyAllocator struct {
	store    physmem.Store
	minBlock uint64
	maxBlock uint64

	free     map[uint64][]uint64 // size -> block addresses, oldest first
	live     map[BlockID]buddyBlock
	byAddr   map[uint64]BlockID
	released map[BlockID]struct{}

	nextID BlockID
	used   uint64
	stats  counters
}

// BuddyOf returns the address of the block's buddy at the given size.
func BuddyOf(addr, size uint64) uint64 {
	return addr ^ size
}

// NewBuddy creates a buddy allocator over all of store. Both the store size
// and minBlock must be powers of two, and minBlock must not exceed the store.
func NewBuddy(store physmem.Store, minBlock uint64) (*BuddyAllocator, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	total := store.TotalSize()
	if !buf.IsPowerOfTwo(total) {
		return nil, fmt.Errorf("buddy total size %d: %w", total, ErrNotPowerOfTwo)
	}
	if !buf.IsPowerOfTwo(minBlock) {
		return nil, fmt.Errorf("buddy min block size %d: %w", minBlock, ErrNotPowerOfTwo)
	}
	if minBlock > total {
		return nil, fmt.Errorf("buddy min block size %d exceeds total %d: %w", minBlock, total, ErrTooLarge)
	}

	b := &BuddyAllocator{
		store:    store,
		minBlock: minBlock,
		maxBlock: total,
		free:     map[uint64][]uint64{total: {0}},
		live:     make(map[BlockID]buddyBlock),
		byAddr:   make(map[uint64]BlockID),
		released: make(map[BlockID]struct{}),
		nextID:   1,
	}
	store.SetUsedSize(0)
	return b, nil
}

func (b *BuddyAllocator) sealed() {}

// Kind always returns Buddy.
func (b *BuddyAllocator) Kind() Kind { return Buddy }

// MinBlockSize returns the smallest block handed out.
func (b *BuddyAllocator) MinBlockSize() uint64 { return b.minBlock }

// MaxBlockSize returns the largest block, which is the whole memory.
func (b *BuddyAllocator) MaxBlockSize() uint64 { return b.maxBlock }

// blockSizeFor rounds size up to a power of two no smaller than minBlock.
// Returns 0 when the request cannot fit in memory.
func (b *BuddyAllocator) blockSizeFor(size uint64) uint64 {
	target := buf.NextPowerOfTwo(size)
	if target == 0 || target > b.maxBlock {
		return 0
	}
	return max(target, b.minBlock)
}

// Allocate reserves a block of at least size bytes.
func (b *BuddyAllocator) Allocate(size uint64) (BlockID, error) {
	b.stats.allocations++

	if size == 0 {
		b.stats.failed++
		return 0, ErrZeroSize
	}

	target := b.blockSizeFor(size)
	if target == 0 {
		b.stats.failed++
		return 0, fmt.Errorf("allocate %d bytes: %w", size, ErrTooLarge)
	}

	// Search upward for the smallest size class with a free block.
	cur := target
	for len(b.free[cur]) == 0 {
		if cur >= b.maxBlock {
			b.stats.failed++
			return 0, fmt.Errorf("allocate %d bytes (block %d): %w", size, target, ErrOutOfMemory)
		}
		cur <<= 1
	}

	addr := b.popFree(cur)

	// Split down, keeping the lower half and freeing the upper one.
	for cur > target {
		cur >>= 1
		b.free[cur] = append(b.free[cur], addr+cur)
		logger.Debug("alloc: buddy split", "addr", addr, "size", cur)
	}

	id := b.nextID
	b.nextID++
	b.live[id] = buddyBlock{addr: addr, size: target, requested: size}
	b.byAddr[addr] = id
	b.used += target
	b.store.SetUsedSize(b.used)

	logger.Debug("alloc: buddy allocated", "id", id, "addr", addr, "size", target, "requested", size)
	return id, nil
}

// Deallocate frees the block and merges it with its buddy while the buddy is free.
func (b *BuddyAllocator) Deallocate(id BlockID) error {
	blk, ok := b.live[id]
	if !ok {
		if _, freed := b.released[id]; freed {
			return fmt.Errorf("deallocate id=%d: %w", id, ErrDoubleFree)
		}
		return fmt.Errorf("deallocate id=%d: %w", id, ErrUnknownBlock)
	}

	delete(b.live, id)
	delete(b.byAddr, blk.addr)
	b.released[id] = struct{}{}
	b.used -= blk.size

	addr, size := blk.addr, blk.size
	for size < b.maxBlock {
		buddy := BuddyOf(addr, size)
		if !b.removeFree(size, buddy) {
			break
		}
		logger.Debug("alloc: buddy merge", "addr", min(addr, buddy), "size", size<<1)
		addr = min(addr, buddy)
		size <<= 1
	}
	b.free[size] = append(b.free[size], addr)

	b.store.SetUsedSize(b.used)
	b.stats.deallocations++
	return nil
}

// DeallocateByAddress frees the allocated block starting at addr.
func (b *BuddyAllocator) DeallocateByAddress(addr uint64) error {
	id, ok := b.byAddr[addr]
	if !ok {
		return fmt.Errorf("deallocate addr=%#x: %w", addr, ErrNoBlockAtAddress)
	}
	return b.Deallocate(id)
}

// BlockAddress returns the start address of an allocated block.
func (b *BuddyAllocator) BlockAddress(id BlockID) (uint64, error) {
	blk, ok := b.live[id]
	if !ok {
		return 0, fmt.Errorf("block id=%d: %w", id, ErrUnknownBlock)
	}
	return blk.addr, nil
}

func (b *BuddyAllocator) popFree(size uint64) uint64 {
	list := b.free[size]
	addr := list[0]
	if len(list) == 1 {
		delete(b.free, size)
	} else {
		b.free[size] = list[1:]
	}
	return addr
}

// removeFree deletes addr from the size list, reporting whether it was there.
func (b *BuddyAllocator) removeFree(size, addr uint64) bool {
	list := b.free[size]
	i := slices.Index(list, addr)
	if i < 0 {
		return false
	}
	list = slices.Delete(list, i, i+1)
	if len(list) == 0 {
		delete(b.free, size)
	} else {
		b.free[size] = list
	}
	return true
}

// Blocks returns allocated and free blocks sorted by address.
func (b *BuddyAllocator) Blocks() []BlockInfo {
	out := make([]BlockInfo, 0, len(b.live)+len(b.free))
	for id, blk := range b.live {
		out = append(out, BlockInfo{ID: id, Addr: blk.addr, Size: blk.size, Requested: blk.requested})
	}
	for size, list := range b.free {
		for _, addr := range list {
			out = append(out, BlockInfo{Addr: addr, Size: size, Free: true})
		}
	}
	slices.SortFunc(out, func(x, y BlockInfo) int {
		switch {
		case x.Addr < y.Addr:
			return -1
		case x.Addr > y.Addr:
			return 1
		}
		return 0
	})
	return out
}

// FreeLists returns a copy of the free lists keyed by block size.
func (b *BuddyAllocator) FreeLists() map[uint64][]uint64 {
	out := make(map[uint64][]uint64, len(b.free))
	for size, list := range b.free {
		out[size] = slices.Clone(list)
	}
	return out
}

func (b *BuddyAllocator) freeSummary() (total, largest uint64, count int) {
	for size, list := range b.free {
		if len(list) == 0 {
			continue
		}
		total += size * uint64(len(list))
		largest = max(largest, size)
		count += len(list)
	}
	return total, largest, count
}

// Utilization is used/total as a percentage.
func (b *BuddyAllocator) Utilization() float64 {
	return percent(b.used, b.maxBlock)
}

// InternalFragmentation is rounding waste inside allocated blocks as a percentage.
func (b *BuddyAllocator) InternalFragmentation() float64 {
	var allocated, requested uint64
	for _, blk := range b.live {
		allocated += blk.size
		requested += blk.requested
	}
	return percent(allocated-requested, allocated)
}

// ExternalFragmentation is free bytes outside the largest free block as a percentage.
func (b *BuddyAllocator) ExternalFragmentation() float64 {
	total, largest, _ := b.freeSummary()
	return externalFragmentation(total, largest)
}

// Stats returns a snapshot of the allocator state.
func (b *BuddyAllocator) Stats() Stats {
	totalFree, largest, freeCount := b.freeSummary()
	return Stats{
		Strategy:              Buddy,
		TotalBytes:            b.maxBlock,
		UsedBytes:             b.used,
		FreeBytes:             b.maxBlock - b.used,
		AllocatedBlocks:       len(b.live),
		FreeBlocks:            freeCount,
		LargestFree:           largest,
		Allocations:           b.stats.allocations,
		FailedAllocations:     b.stats.failed,
		Deallocations:         b.stats.deallocations,
		Utilization:           b.Utilization(),
		InternalFragmentation: b.InternalFragmentation(),
		ExternalFragmentation: externalFragmentation(totalFree, largest),
		MinBlockSize:          b.minBlock,
		MaxBlockSize:          b.maxBlock,
	}
}

// Dump writes the free lists by size class followed by the allocated blocks.
func (b *BuddyAllocator) Dump(w io.Writer) {
	fmt.Fprintf(w, "\n=== Buddy Allocator Memory Layout (%d bytes) ===\n", b.maxBlock)

	fmt.Fprintln(w, "\nFree lists:")
	for size := b.minBlock; size != 0 && size <= b.maxBlock; size <<= 1 {
		list := b.free[size]
		if len(list) == 0 {
			continue
		}
		fmt.Fprintf(w, "  Size %d: %d block(s) at", size, len(list))
		for _, addr := range list {
			fmt.Fprintf(w, " 0x%04x", addr)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "\nAllocated blocks:")
	for _, blk := range b.Blocks() {
		if blk.Free {
			continue
		}
		fmt.Fprintf(w, "  [0x%04x - 0x%04x] id=%d size=%d requested=%d\n",
			blk.Addr, blk.End()-1, blk.ID, blk.Size, blk.Requested)
	}
	fmt.Fprintln(w)
}
