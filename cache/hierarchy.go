package cache

import (
	"fmt"
	"io"

	"github.com/joshuapare/memsim/physmem"
)

// Hierarchy puts L1 in front of L2 in front of the backing store. Both levels
// are write-through; the hierarchy never allocates on a write miss.
type Hierarchy struct {
	store physmem.Store
	l1    *Level
	l2    *Level

	memAccesses uint64
	requests    uint64
}

// NewHierarchy creates L1 and L2 over store.
func NewHierarchy(store physmem.Store, l1, l2 Config) (*Hierarchy, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	first, err := NewLevel(1, l1, store)
	if err != nil {
		return nil, err
	}
	second, err := NewLevel(2, l2, store)
	if err != nil {
		return nil, err
	}
	return &Hierarchy{store: store, l1: first, l2: second}, nil
}

// L1 returns the first level.
func (h *Hierarchy) L1() *Level { return h.l1 }

// L2 returns the second level.
func (h *Hierarchy) L2() *Level { return h.l2 }

// Read returns the byte at addr from the closest level holding it. An L2 hit
// backfills L1; a miss in both reads memory and backfills L2 then L1.
func (h *Hierarchy) Read(addr uint64) (byte, error) {
	if addr >= h.store.TotalSize() {
		return 0, fmt.Errorf("cache read %#x: %w", addr, ErrOutOfRange)
	}
	h.requests++

	if h.l1.Contains(addr) {
		return h.l1.Read(addr)
	}

	if h.l2.Contains(addr) {
		v, err := h.l2.Read(addr)
		if err != nil {
			return 0, err
		}
		if err := h.l1.Write(addr, v); err != nil {
			return 0, err
		}
		return v, nil
	}

	h.memAccesses++
	v, err := h.store.Read(addr)
	if err != nil {
		return 0, fmt.Errorf("cache read %#x: %w", addr, err)
	}
	if err := h.l2.Write(addr, v); err != nil {
		return 0, err
	}
	if err := h.l1.Write(addr, v); err != nil {
		return 0, err
	}
	return v, nil
}

// Write stores b in memory, then updates each level that already holds addr.
func (h *Hierarchy) Write(addr uint64, b byte) error {
	if addr >= h.store.TotalSize() {
		return fmt.Errorf("cache write %#x: %w", addr, ErrOutOfRange)
	}
	h.requests++

	if err := h.store.Write(addr, b); err != nil {
		return fmt.Errorf("cache write %#x: %w", addr, err)
	}
	if h.l1.Contains(addr) {
		if err := h.l1.Write(addr, b); err != nil {
			return err
		}
	}
	if h.l2.Contains(addr) {
		if err := h.l2.Write(addr, b); err != nil {
			return err
		}
	}
	return nil
}

// ContainsInL1 reports whether addr is resident in L1.
func (h *Hierarchy) ContainsInL1(addr uint64) bool { return h.l1.Contains(addr) }

// ContainsInL2 reports whether addr is resident in L2.
func (h *Hierarchy) ContainsInL2(addr uint64) bool { return h.l2.Contains(addr) }

// Flush invalidates both levels.
func (h *Hierarchy) Flush() {
	h.l1.Flush()
	h.l2.Flush()
}

// InvalidateRange drops the lines covering [addr, addr+n) from both levels.
// Used when memory changes behind the cache's back, such as a page load.
func (h *Hierarchy) InvalidateRange(addr, n uint64) {
	h.l1.InvalidateRange(addr, n)
	h.l2.InvalidateRange(addr, n)
}

// ResetStats zeroes every counter in the hierarchy and both levels.
func (h *Hierarchy) ResetStats() {
	h.l1.ResetStats()
	h.l2.ResetStats()
	h.memAccesses = 0
	h.requests = 0
}

// Stats aggregates both levels' counters.
func (h *Hierarchy) Stats() HierarchyStats {
	s := HierarchyStats{
		L1:             h.l1.Stats(),
		L2:             h.l2.Stats(),
		MemoryAccesses: h.memAccesses,
		Requests:       h.requests,
	}
	s.TotalAccesses = s.L1.Accesses + s.L2.Accesses
	return s
}

// Dump writes both levels.
func (h *Hierarchy) Dump(w io.Writer) {
	h.l1.Dump(w)
	fmt.Fprintln(w)
	h.l2.Dump(w)
}
