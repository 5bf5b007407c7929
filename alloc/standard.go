package alloc

import (
	"fmt"
	"io"

	"github.com/joshuapare/memsim/internal/logger"
	"github.com/joshuapare/memsim/physmem"
)

// minSplitRemainder is the smallest leftover that justifies splitting a block.
// A block exactly one byte larger than the request is handed out whole.
const minSplitRemainder = 1

// handle indexes a block in the arena.
type handle int32

const nilHandle handle = -1

// block is one arena slot. Slots released by coalesce are recycled by split.
type block struct {
	addr      uint64
	size      uint64
	requested uint64
	id        BlockID
	free      bool
	prev      handle
	next      handle
}

// Standard is a free-list allocator with First/Best/Worst Fit placement.
// Blocks tile [0, TotalSize) in address order with no gaps or overlaps.
type Standard struct {
	store    physmem.Store
	strategy Kind

	// Arena of blocks linked in address order by prev/next handles
	blocks []block
	spare  []handle // recycled slots
	head   handle

	byID     map[BlockID]handle
	byAddr   map[uint64]handle
	released map[BlockID]struct{}

	nextID BlockID
	used   uint64
	stats  counters
}

// NewStandard creates a Standard allocator spanning all of store.
func NewStandard(store physmem.Store, strategy Kind) (*Standard, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	switch strategy {
	case FirstFit, BestFit, WorstFit:
	default:
		return nil, fmt.Errorf("%w: %v is not a free-list strategy", ErrBadStrategy, strategy)
	}

	s := &Standard{
		store:    store,
		strategy: strategy,
		head:     nilHandle,
		byID:     make(map[BlockID]handle),
		byAddr:   make(map[uint64]handle),
		released: make(map[BlockID]struct{}),
		nextID:   1,
	}
	s.head = s.newBlock(0, store.TotalSize())
	store.SetUsedSize(0)
	return s, nil
}

func (s *Standard) sealed() {}

// Kind reports the placement strategy.
func (s *Standard) Kind() Kind { return s.strategy }

// Allocate reserves size bytes using the configured placement strategy.
func (s *Standard) Allocate(size uint64) (BlockID, error) {
	s.stats.allocations++

	if size == 0 {
		s.stats.failed++
		return 0, ErrZeroSize
	}
	if size > s.store.TotalSize() {
		s.stats.failed++
		return 0, fmt.Errorf("allocate %d bytes: %w", size, ErrTooLarge)
	}

	h := s.findBlock(size)
	if h == nilHandle {
		s.stats.failed++
		return 0, fmt.Errorf("allocate %d bytes: %w", size, ErrOutOfMemory)
	}

	s.split(h, size)

	b := &s.blocks[h]
	b.free = false
	b.id = s.nextID
	b.requested = size
	s.nextID++

	s.byID[b.id] = h
	s.byAddr[b.addr] = h
	s.used += b.size
	s.store.SetUsedSize(s.used)

	logger.Debug("alloc: allocated", "strategy", s.strategy.String(), "id", b.id, "addr", b.addr, "size", b.size)
	return b.id, nil
}

// Deallocate frees the block and merges it with free neighbours.
func (s *Standard) Deallocate(id BlockID) error {
	h, ok := s.byID[id]
	if !ok {
		if _, freed := s.released[id]; freed {
			return fmt.Errorf("deallocate id=%d: %w", id, ErrDoubleFree)
		}
		return fmt.Errorf("deallocate id=%d: %w", id, ErrUnknownBlock)
	}

	b := &s.blocks[h]
	delete(s.byID, id)
	delete(s.byAddr, b.addr)
	s.released[id] = struct{}{}

	s.used -= b.size
	b.free = true
	b.id = 0
	b.requested = 0

	s.coalesce(h)
	s.store.SetUsedSize(s.used)
	s.stats.deallocations++

	logger.Debug("alloc: freed", "id", id)
	return nil
}

// DeallocateByAddress frees the allocated block that starts at addr.
func (s *Standard) DeallocateByAddress(addr uint64) error {
	h, ok := s.byAddr[addr]
	if !ok {
		return fmt.Errorf("deallocate addr=%#x: %w", addr, ErrNoBlockAtAddress)
	}
	return s.Deallocate(s.blocks[h].id)
}

// BlockAddress returns the start address of an allocated block.
func (s *Standard) BlockAddress(id BlockID) (uint64, error) {
	h, ok := s.byID[id]
	if !ok {
		return 0, fmt.Errorf("block id=%d: %w", id, ErrUnknownBlock)
	}
	return s.blocks[h].addr, nil
}

// findBlock scans the list for a free block of at least size bytes.
// Best and worst fit use strict comparisons, so ties keep the lowest address.
func (s *Standard) findBlock(size uint64) handle {
	found := nilHandle
	for h := s.head; h != nilHandle; h = s.blocks[h].next {
		b := &s.blocks[h]
		if !b.free || b.size < size {
			continue
		}
		switch s.strategy {
		case FirstFit:
			return h
		case BestFit:
			if found == nilHandle || b.size < s.blocks[found].size {
				found = h
			}
		case WorstFit:
			if found == nilHandle || b.size > s.blocks[found].size {
				found = h
			}
		}
	}
	return found
}

// split carves an exact-size block out of h, leaving the remainder as a
// free block immediately after it.
func (s *Standard) split(h handle, size uint64) {
	if s.blocks[h].size <= size+minSplitRemainder {
		return
	}

	rest := s.newBlock(s.blocks[h].addr+size, s.blocks[h].size-size)

	// newBlock may grow the arena, so re-take pointers afterwards.
	b := &s.blocks[h]
	r := &s.blocks[rest]
	r.prev = h
	r.next = b.next
	if b.next != nilHandle {
		s.blocks[b.next].prev = rest
	}
	b.next = rest
	b.size = size

	logger.Debug("alloc: split", "addr", b.addr, "size", size, "remainder", r.size)
}

// coalesce merges h forward while the next block is free, then merges it
// once into a free predecessor.
func (s *Standard) coalesce(h handle) {
	for {
		next := s.blocks[h].next
		if next == nilHandle || !s.blocks[next].free {
			break
		}
		s.blocks[h].size += s.blocks[next].size
		s.unlink(next)
	}

	prev := s.blocks[h].prev
	if prev != nilHandle && s.blocks[prev].free {
		s.blocks[prev].size += s.blocks[h].size
		s.unlink(h)
	}
}

// unlink removes h from the list and returns its slot to the spare pool.
func (s *Standard) unlink(h handle) {
	b := &s.blocks[h]
	if b.prev != nilHandle {
		s.blocks[b.prev].next = b.next
	} else {
		s.head = b.next
	}
	if b.next != nilHandle {
		s.blocks[b.next].prev = b.prev
	}
	*b = block{prev: nilHandle, next: nilHandle}
	s.spare = append(s.spare, h)
}

// newBlock takes a slot from the spare pool or grows the arena.
func (s *Standard) newBlock(addr, size uint64) handle {
	nb := block{addr: addr, size: size, free: true, prev: nilHandle, next: nilHandle}
	if n := len(s.spare); n > 0 {
		h := s.spare[n-1]
		s.spare = s.spare[:n-1]
		s.blocks[h] = nb
		return h
	}
	s.blocks = append(s.blocks, nb)
	return handle(len(s.blocks) - 1)
}

// Blocks returns every block in address order.
func (s *Standard) Blocks() []BlockInfo {
	out := make([]BlockInfo, 0, len(s.blocks)-len(s.spare))
	for h := s.head; h != nilHandle; h = s.blocks[h].next {
		b := s.blocks[h]
		out = append(out, BlockInfo{ID: b.id, Addr: b.addr, Size: b.size, Requested: b.requested, Free: b.free})
	}
	return out
}

func (s *Standard) freeSummary() (total, largest uint64, count int) {
	for h := s.head; h != nilHandle; h = s.blocks[h].next {
		b := &s.blocks[h]
		if !b.free {
			continue
		}
		total += b.size
		largest = max(largest, b.size)
		count++
	}
	return total, largest, count
}

// Utilization is used/total as a percentage.
func (s *Standard) Utilization() float64 {
	return percent(s.used, s.store.TotalSize())
}

// InternalFragmentation is wasted bytes inside allocated blocks as a percentage.
func (s *Standard) InternalFragmentation() float64 {
	return internalFragmentation(s.Blocks())
}

// ExternalFragmentation is free bytes outside the largest free block as a percentage.
func (s *Standard) ExternalFragmentation() float64 {
	total, largest, _ := s.freeSummary()
	return externalFragmentation(total, largest)
}

// Stats returns a snapshot of the allocator state.
func (s *Standard) Stats() Stats {
	totalFree, largest, freeCount := s.freeSummary()
	return Stats{
		Strategy:              s.strategy,
		TotalBytes:            s.store.TotalSize(),
		UsedBytes:             s.used,
		FreeBytes:             s.store.TotalSize() - s.used,
		AllocatedBlocks:       len(s.byID),
		FreeBlocks:            freeCount,
		LargestFree:           largest,
		Allocations:           s.stats.allocations,
		FailedAllocations:     s.stats.failed,
		Deallocations:         s.stats.deallocations,
		Utilization:           s.Utilization(),
		InternalFragmentation: s.InternalFragmentation(),
		ExternalFragmentation: externalFragmentation(totalFree, largest),
	}
}

// Dump writes one line per block in address order.
func (s *Standard) Dump(w io.Writer) {
	fmt.Fprintf(w, "\n=== Memory Layout (%d bytes) ===\n", s.store.TotalSize())
	for _, b := range s.Blocks() {
		if b.Free {
			fmt.Fprintf(w, "[0x%04x - 0x%04x] FREE (%d bytes)\n", b.Addr, b.End()-1, b.Size)
		} else {
			fmt.Fprintf(w, "[0x%04x - 0x%04x] USED (id=%d, %d bytes)\n", b.Addr, b.End()-1, b.ID, b.Size)
		}
	}
	fmt.Fprintln(w)
}
