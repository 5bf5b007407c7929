// Package system wires the simulated memory, allocator, cache hierarchy and
// virtual memory into one machine and tracks per-session access statistics.
//
// Reads and writes go through virtual memory when it is enabled, then
// through the cache hierarchy when it is enabled, and otherwise straight to
// memory. The allocator works on the same memory but is independent of the
// access path; using it together with virtual memory on overlapping
// addresses is not meaningful.
package system

import (
	"fmt"
	"io"

	"github.com/joshuapare/memsim/alloc"
	"github.com/joshuapare/memsim/cache"
	"github.com/joshuapare/memsim/config"
	"github.com/joshuapare/memsim/internal/logger"
	"github.com/joshuapare/memsim/physmem"
	"github.com/joshuapare/memsim/vm"
)

// HistoryLimit bounds the number of access results kept.
const HistoryLimit = 1000

// System is the whole simulated machine. It is not safe for concurrent use.
type System struct {
	cfg config.Config

	mem   *physmem.Memory
	alloc alloc.Allocator // nil when the strategy could not be built
	cache *cache.Hierarchy
	vm    *vm.VM

	session SessionStats
	history []AccessResult
}

// New builds a System from a validated configuration.
func New(cfg config.Config) (*System, error) {
	s := &System{cfg: cfg}
	if err := s.build(cfg.Memory.Size); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// build replaces memory and every subsystem. On error the previous state is kept.
func (s *System) build(size uint64) error {
	mem, err := newMemory(s.cfg.Memory.Backing, size)
	if err != nil {
		return err
	}

	var h *cache.Hierarchy
	if s.cfg.Cache.Enabled {
		if h, err = cache.NewHierarchy(mem, s.cfg.Cache.L1, s.cfg.Cache.L2); err != nil {
			_ = mem.Close()
			return err
		}
	}

	var v *vm.VM
	if s.cfg.VM.Enabled {
		if v, err = vm.New(mem, s.cfg.VM.Geometry()); err != nil {
			_ = mem.Close()
			return err
		}
	}

	a, allocErr := alloc.New(mem, s.cfg.Allocator.Strategy, alloc.WithMinBlockSize(s.cfg.Allocator.MinBlock))

	if s.mem != nil {
		_ = s.mem.Close()
	}
	s.mem, s.cache, s.vm, s.alloc = mem, h, v, a
	s.cfg.Memory.Size = size

	logger.Info("system: memory initialized", "size", size, "backing", s.cfg.Memory.Backing,
		"cache", h != nil, "vm", v != nil)

	if allocErr != nil {
		return fmt.Errorf("memory initialized but %s allocator unavailable: %w",
			s.cfg.Allocator.Strategy.DisplayName(), allocErr)
	}
	return nil
}

func newMemory(backing string, size uint64) (*physmem.Memory, error) {
	if backing == config.BackingMmap {
		return physmem.NewMapped(size)
	}
	return physmem.New(size)
}

// Close releases the memory mapping, if any.
func (s *System) Close() error {
	if s.mem == nil {
		return nil
	}
	err := s.mem.Close()
	s.mem = nil
	return err
}

// Config returns the effective configuration, including runtime changes.
func (s *System) Config() config.Config { return s.cfg }

// Memory returns the backing store.
func (s *System) Memory() *physmem.Memory { return s.mem }

// Allocator returns the active allocator, or nil.
func (s *System) Allocator() alloc.Allocator { return s.alloc }

// Cache returns the cache hierarchy, or nil when disabled.
func (s *System) Cache() *cache.Hierarchy { return s.cache }

// VM returns the virtual memory, or nil when disabled.
func (s *System) VM() *vm.VM { return s.vm }

// InitMemory replaces memory with size fresh bytes and rebuilds every
// subsystem with the current settings. Session statistics are reset.
func (s *System) InitMemory(size uint64) error {
	if size == 0 {
		return physmem.ErrZeroSize
	}
	old := s.mem
	err := s.build(size)
	if s.mem != old {
		s.ResetSession()
	}
	return err
}

// SetAllocator replaces the allocator with a fresh one of the given kind over
// the current memory. On failure the previous allocator stays active.
func (s *System) SetAllocator(kind alloc.Kind) error {
	a, err := alloc.New(s.mem, kind, alloc.WithMinBlockSize(s.cfg.Allocator.MinBlock))
	if err != nil {
		return err
	}
	s.alloc = a
	s.cfg.Allocator.Strategy = kind
	logger.Info("system: allocator set", "strategy", kind.String())
	return nil
}

// ConfigureCache enables, disables or reshapes the cache hierarchy. A new
// hierarchy starts empty.
func (s *System) ConfigureCache(enabled bool, l1, l2 cache.Config) error {
	if !enabled {
		s.cache = nil
		s.cfg.Cache.Enabled = false
		return nil
	}
	h, err := cache.NewHierarchy(s.mem, l1, l2)
	if err != nil {
		return err
	}
	s.cache = h
	s.cfg.Cache = config.Cache{Enabled: true, L1: l1, L2: l2}
	return nil
}

// ConfigureVM enables, disables or reshapes virtual memory. A new VM starts
// with no resident pages.
func (s *System) ConfigureVM(enabled bool, geometry vm.Config) error {
	if !enabled {
		s.vm = nil
		s.cfg.VM.Enabled = false
		return nil
	}
	v, err := vm.New(s.mem, geometry)
	if err != nil {
		return err
	}
	s.vm = v
	s.cfg.VM = config.VM{
		Enabled:  true,
		Pages:    geometry.Pages,
		Frames:   geometry.Frames,
		PageSize: geometry.PageSize,
		Policy:   geometry.Policy,
	}
	return nil
}

// Allocate reserves size bytes with the active allocator.
func (s *System) Allocate(size uint64) (alloc.BlockID, error) {
	if s.alloc == nil {
		return 0, ErrNoAllocator
	}
	return s.alloc.Allocate(size)
}

// Deallocate releases a block by ID.
func (s *System) Deallocate(id alloc.BlockID) error {
	if s.alloc == nil {
		return ErrNoAllocator
	}
	return s.alloc.Deallocate(id)
}

// DeallocateByAddress releases the block starting at addr.
func (s *System) DeallocateByAddress(addr uint64) error {
	if s.alloc == nil {
		return ErrNoAllocator
	}
	return s.alloc.DeallocateByAddress(addr)
}

// Read loads one byte. addr is virtual when VM is enabled, physical otherwise.
func (s *System) Read(addr uint64) AccessResult {
	s.session.Accesses++
	s.session.Reads++
	res := AccessResult{Op: OpRead, VirtualAddr: addr, PhysicalAddr: addr, UsedVM: s.vm != nil}

	if s.vm != nil {
		faults := s.vm.Stats().Faults
		paddr, err := s.vm.Translate(addr)
		if err != nil {
			return s.fail(res, err)
		}
		res.PhysicalAddr = paddr
		res.PageFault = s.vm.Stats().Faults > faults
		s.invalidateFrame(res)
	}

	if s.cache != nil {
		before := s.cache.Stats()
		v, err := s.cache.Read(res.PhysicalAddr)
		if err != nil {
			return s.fail(res, err)
		}
		res.Value = v
		res.Served = served(before, s.cache.Stats())
	} else {
		v, err := s.mem.Read(res.PhysicalAddr)
		if err != nil {
			return s.fail(res, err)
		}
		res.Value = v
		res.Served = LevelMemory
	}

	return s.finish(res)
}

// Write stores one byte. addr is virtual when VM is enabled, physical otherwise.
func (s *System) Write(addr uint64, b byte) AccessResult {
	s.session.Accesses++
	s.session.Writes++
	res := AccessResult{Op: OpWrite, VirtualAddr: addr, PhysicalAddr: addr, Value: b, UsedVM: s.vm != nil}

	if s.vm != nil {
		faults := s.vm.Stats().Faults
		paddr, err := s.vm.TranslateForWrite(addr)
		if err != nil {
			return s.fail(res, err)
		}
		res.PhysicalAddr = paddr
		res.PageFault = s.vm.Stats().Faults > faults
		s.invalidateFrame(res)
	}

	if s.cache != nil {
		before := s.cache.Stats()
		if err := s.cache.Write(res.PhysicalAddr, b); err != nil {
			return s.fail(res, err)
		}
		res.Served = served(before, s.cache.Stats())
	} else {
		if err := s.mem.Write(res.PhysicalAddr, b); err != nil {
			return s.fail(res, err)
		}
		res.Served = LevelMemory
	}

	return s.finish(res)
}

// invalidateFrame drops cached copies of a frame that a page fault just refilled.
func (s *System) invalidateFrame(res AccessResult) {
	if !res.PageFault || s.cache == nil {
		return
	}
	size := uint64(s.vm.Config().PageSize)
	s.cache.InvalidateRange(res.PhysicalAddr&^(size-1), size)
}

// served classifies a hierarchy access by which level's hit counter moved.
func served(before, after cache.HierarchyStats) Level {
	switch {
	case after.L1.Hits > before.L1.Hits:
		return LevelL1
	case after.L2.Hits > before.L2.Hits:
		return LevelL2
	default:
		return LevelMemory
	}
}

func (s *System) finish(res AccessResult) AccessResult {
	switch res.Served {
	case LevelL1:
		s.session.L1Hits++
	case LevelL2:
		s.session.L2Hits++
	default:
		s.session.MemoryAccesses++
	}

	res.Level = res.Served
	if res.PageFault {
		s.session.PageFaults++
		res.Level = LevelPageFault
	}

	s.record(res)
	logger.Debug("system: access", "op", res.Op.String(), "addr", res.VirtualAddr,
		"paddr", res.PhysicalAddr, "level", res.Level.String())
	return res
}

func (s *System) fail(res AccessResult, err error) AccessResult {
	s.session.Failed++
	res.Err = err
	s.record(res)
	return res
}

func (s *System) record(res AccessResult) {
	s.history = append(s.history, res)
	if len(s.history) > HistoryLimit {
		s.history = s.history[len(s.history)-HistoryLimit:]
	}
}

// Session returns the statistics since the last reset.
func (s *System) Session() SessionStats { return s.session }

// Recent returns up to n of the latest access results, oldest first.
func (s *System) Recent(n int) []AccessResult {
	n = max(0, min(n, len(s.history)))
	out := make([]AccessResult, n)
	copy(out, s.history[len(s.history)-n:])
	return out
}

// ResetSession clears the session statistics and access history.
// Component counters are cumulative and not affected.
func (s *System) ResetSession() {
	s.session = SessionStats{}
	s.history = nil
}

// FlushCaches invalidates every cache line.
func (s *System) FlushCaches() error {
	if s.cache == nil {
		return ErrNoCache
	}
	s.cache.Flush()
	return nil
}

// FlushVM drops every resident page.
func (s *System) FlushVM() error {
	if s.vm == nil {
		return ErrNoVM
	}
	s.vm.Flush()
	return nil
}

// AllocatorStats returns the allocator snapshot.
func (s *System) AllocatorStats() (alloc.Stats, error) {
	if s.alloc == nil {
		return alloc.Stats{}, ErrNoAllocator
	}
	return s.alloc.Stats(), nil
}

// CacheStats returns the hierarchy counters.
func (s *System) CacheStats() (cache.HierarchyStats, error) {
	if s.cache == nil {
		return cache.HierarchyStats{}, ErrNoCache
	}
	return s.cache.Stats(), nil
}

// VMStats returns the virtual memory counters.
func (s *System) VMStats() (vm.Stats, error) {
	if s.vm == nil {
		return vm.Stats{}, ErrNoVM
	}
	return s.vm.Stats(), nil
}

// DumpMemory writes the allocator's block layout.
func (s *System) DumpMemory(w io.Writer) error {
	if s.alloc == nil {
		return ErrNoAllocator
	}
	s.alloc.Dump(w)
	return nil
}

// DumpCache writes both cache levels.
func (s *System) DumpCache(w io.Writer) error {
	if s.cache == nil {
		return ErrNoCache
	}
	s.cache.Dump(w)
	return nil
}

// DumpVM writes the page table.
func (s *System) DumpVM(w io.Writer) error {
	if s.vm == nil {
		return ErrNoVM
	}
	s.vm.Dump(w)
	return nil
}
