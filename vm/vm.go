package vm

import (
	"fmt"
	"io"
	"slices"

	"github.com/joshuapare/memsim/internal/buf"
	"github.com/joshuapare/memsim/internal/logger"
	"github.com/joshuapare/memsim/physmem"
)

// Config is the page table geometry and replacement policy.
type Config struct {
	Pages    int    `yaml:"pages" json:"pages"`
	Frames   int    `yaml:"frames" json:"frames"`
	PageSize int    `yaml:"page_size" json:"page_size"`
	Policy   Policy `yaml:"policy" json:"policy"`
}

// Validate checks the geometry on its own. NewVM also checks that the frames
// fit in the backing store.
func (c Config) Validate() error {
	if c.PageSize <= 0 || !buf.IsPowerOfTwo(uint64(c.PageSize)) {
		return fmt.Errorf("%w: page size must be a power of 2, got %d", ErrBadGeometry, c.PageSize)
	}
	if c.Pages <= 0 {
		return fmt.Errorf("%w: number of virtual pages must be > 0", ErrBadGeometry)
	}
	if c.Frames <= 0 {
		return fmt.Errorf("%w: number of physical frames must be > 0", ErrBadGeometry)
	}
	if c.Frames > c.Pages {
		return fmt.Errorf("%w: physical frames (%d) cannot exceed virtual pages (%d)", ErrBadGeometry, c.Frames, c.Pages)
	}
	if !c.Policy.valid() {
		return fmt.Errorf("%w: %d", ErrBadPolicy, uint8(c.Policy))
	}
	return nil
}

// PhysicalBytes is Frames * PageSize.
func (c Config) PhysicalBytes() uint64 {
	return uint64(c.Frames) * uint64(c.PageSize)
}

func (c Config) String() string {
	return fmt.Sprintf("%d virtual pages, %d physical frames, %d bytes/page, %s",
		c.Pages, c.Frames, c.PageSize, c.Policy)
}

// PageTableEntry describes one virtual page.
type PageTableEntry struct {
	Valid      bool
	Frame      uint32
	Dirty      bool
	Referenced bool
	LoadTime   uint64
	LastAccess uint64
}

func (e *PageTableEntry) recordAccess(now uint64) {
	e.Referenced = true
	e.LastAccess = now
}

// VM is a single-process paged virtual memory.
type VM struct {
	cfg   Config
	store physmem.Store

	table      []PageTableEntry
	frames     frameBitmap
	fifo       []uint64 // resident pages in load order, FIFO only
	hand       int      // clock hand, a page number
	offsetBits uint

	clock uint64
	stats Stats
}

// New creates a VM with every page non-resident.
func New(store physmem.Store, cfg Config) (*VM, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if need, ok := buf.MulOverflowSafe(uint64(cfg.Frames), uint64(cfg.PageSize)); !ok || need > store.TotalSize() {
		return nil, fmt.Errorf("%w: physical memory too small for %d frames of %d bytes (have %d)",
			ErrBadGeometry, cfg.Frames, cfg.PageSize, store.TotalSize())
	}

	return &VM{
		cfg:        cfg,
		store:      store,
		table:      make([]PageTableEntry, cfg.Pages),
		frames:     newFrameBitmap(cfg.Frames),
		offsetBits: buf.Log2(uint64(cfg.PageSize)),
	}, nil
}

// Config returns the VM geometry.
func (v *VM) Config() Config { return v.cfg }

// Split decomposes vaddr into page number and offset.
func (v *VM) Split(vaddr uint64) (page, offset uint64) {
	return vaddr >> v.offsetBits, vaddr & (uint64(v.cfg.PageSize) - 1)
}

// Translate maps vaddr to a physical address, faulting the page in if needed.
func (v *VM) Translate(vaddr uint64) (uint64, error) {
	page, offset := v.Split(vaddr)
	if page >= uint64(v.cfg.Pages) {
		return 0, fmt.Errorf("translate %#x (page %d of %d): %w", vaddr, page, v.cfg.Pages, ErrPageOutOfRange)
	}

	v.stats.Total++
	v.clock++

	pte := &v.table[page]
	if pte.Valid {
		v.stats.Hits++
		pte.recordAccess(v.clock)
		return v.physical(pte.Frame, offset), nil
	}

	v.stats.Faults++
	frame, err := v.fault(page)
	if err != nil {
		return 0, err
	}
	return v.physical(frame, offset), nil
}

// TranslateForWrite is Translate plus marking the page dirty. Callers that
// store the byte themselves (through a cache, say) use it instead of Write.
func (v *VM) TranslateForWrite(vaddr uint64) (uint64, error) {
	paddr, err := v.Translate(vaddr)
	if err != nil {
		return 0, err
	}
	page, _ := v.Split(vaddr)
	v.table[page].Dirty = true
	return paddr, nil
}

// Read translates vaddr and reads the byte from the store.
func (v *VM) Read(vaddr uint64) (byte, error) {
	paddr, err := v.Translate(vaddr)
	if err != nil {
		return 0, err
	}
	return v.store.Read(paddr)
}

// Write translates vaddr, marks the page dirty and stores b.
func (v *VM) Write(vaddr uint64, b byte) error {
	paddr, err := v.TranslateForWrite(vaddr)
	if err != nil {
		return err
	}
	return v.store.Write(paddr, b)
}

func (v *VM) physical(frame uint32, offset uint64) uint64 {
	return uint64(frame)<<v.offsetBits | offset
}

// fault loads page into a frame, evicting a victim if none is free.
func (v *VM) fault(page uint64) (uint32, error) {
	frame := v.frames.firstFree()
	if frame < 0 {
		v.evict(v.victim())
		frame = v.frames.firstFree()
		if frame < 0 {
			return 0, fmt.Errorf("page fault on page %d: %w", page, ErrNoFreeFrame)
		}
	}

	v.frames.set(frame)
	v.loadFromDisk(page, frame)

	v.table[page] = PageTableEntry{
		Valid:      true,
		Frame:      uint32(frame),
		Referenced: true,
		LoadTime:   v.clock,
		LastAccess: v.clock,
	}
	if v.cfg.Policy == FIFO {
		v.fifo = append(v.fifo, page)
	}

	logger.Debug("vm: page fault", "page", page, "frame", frame)
	return uint32(frame), nil
}

// victim selects a resident page to evict.
func (v *VM) victim() uint64 {
	switch v.cfg.Policy {
	case FIFO:
		if len(v.fifo) > 0 {
			return v.fifo[0]
		}
	case LRU:
		victim, oldest := -1, uint64(0)
		for i := range v.table {
			if v.table[i].Valid && (victim < 0 || v.table[i].LastAccess < oldest) {
				victim, oldest = i, v.table[i].LastAccess
			}
		}
		if victim >= 0 {
			return uint64(victim)
		}
	case Clock:
		for range 2 * len(v.table) {
			pte := &v.table[v.hand]
			page := v.hand
			v.hand = (v.hand + 1) % len(v.table)
			if !pte.Valid {
				continue
			}
			if !pte.Referenced {
				return uint64(page)
			}
			pte.Referenced = false
		}
	}
	return v.firstResident()
}

func (v *VM) firstResident() uint64 {
	for i := range v.table {
		if v.table[i].Valid {
			return uint64(i)
		}
	}
	return 0
}

// evict frees page's frame. A dirty page counts as a write-back.
func (v *VM) evict(page uint64) {
	pte := &v.table[page]
	if !pte.Valid {
		return
	}

	if pte.Dirty {
		v.stats.WriteBacks++
	}
	v.frames.unset(int(pte.Frame))
	logger.Debug("vm: evict", "page", page, "frame", pte.Frame, "dirty", pte.Dirty, "policy", v.cfg.Policy.String())
	*pte = PageTableEntry{}
	v.stats.Evictions++

	if i := slices.Index(v.fifo, page); i >= 0 {
		v.fifo = slices.Delete(v.fifo, i, i+1)
	}
}

// loadFromDisk fills frame with the synthetic contents of page.
func (v *VM) loadFromDisk(page uint64, frame int) {
	size := uint64(v.cfg.PageSize)
	data := make([]byte, size)
	for i := range data {
		data[i] = byte((page*size + uint64(i)) % 256)
	}
	v.store.WriteRange(uint64(frame)*size, data)
}

// Flush drops every page and resets replacement state. Counters are kept.
func (v *VM) Flush() {
	clear(v.table)
	v.frames.reset()
	v.fifo = v.fifo[:0]
	v.hand = 0
}

// ResetStats zeroes the counters.
func (v *VM) ResetStats() { v.stats = Stats{} }

// Entry returns a copy of page's table entry.
func (v *VM) Entry(page uint64) (PageTableEntry, bool) {
	if page >= uint64(len(v.table)) {
		return PageTableEntry{}, false
	}
	return v.table[page], true
}

// Resident returns the resident page numbers in ascending order.
func (v *VM) Resident() []uint64 {
	var out []uint64
	for i := range v.table {
		if v.table[i].Valid {
			out = append(out, uint64(i))
		}
	}
	return out
}

// FramesInUse returns how many frames hold a page.
func (v *VM) FramesInUse() int { return v.frames.used() }

// Stats returns a copy of the counters.
func (v *VM) Stats() Stats {
	s := v.stats
	s.Config = v.cfg
	return s
}

// Dump writes every resident page table entry.
func (v *VM) Dump(w io.Writer) {
	fmt.Fprintln(w, "=== Page Table ===")
	fmt.Fprintf(w, "%s\n\n", v.cfg)

	for i, pte := range v.table {
		if !pte.Valid {
			continue
		}
		fmt.Fprintf(w, "Page %4d: Valid=1, Frame=%4d, Dirty=%d, Ref=%d",
			i, pte.Frame, btoi(pte.Dirty), btoi(pte.Referenced))
		switch v.cfg.Policy {
		case FIFO:
			fmt.Fprintf(w, ", LoadTime=%d", pte.LoadTime)
		case LRU:
			fmt.Fprintf(w, ", LastAccess=%d", pte.LastAccess)
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w)
}

func btoi(b bool) int {
	if b {
		return 1
	}
	return 0
}
