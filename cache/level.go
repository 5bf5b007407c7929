package cache

import (
	"fmt"
	"io"

	"github.com/joshuapare/memsim/internal/buf"
	"github.com/joshuapare/memsim/internal/logger"
	"github.com/joshuapare/memsim/physmem"
)

// Config is the geometry and policy of one Level.
type Config struct {
	Sets      int    `yaml:"sets" json:"sets"`
	Ways      int    `yaml:"ways" json:"ways"`
	BlockSize int    `yaml:"block_size" json:"block_size"`
	Policy    Policy `yaml:"policy" json:"policy"`
}

// Validate checks that sets and block size are powers of two, ways is at
// least one and the policy is known.
func (c Config) Validate() error {
	if c.Sets <= 0 || !buf.IsPowerOfTwo(uint64(c.Sets)) {
		return fmt.Errorf("%w: number of sets must be a power of 2, got %d", ErrBadGeometry, c.Sets)
	}
	if c.BlockSize <= 0 || !buf.IsPowerOfTwo(uint64(c.BlockSize)) {
		return fmt.Errorf("%w: block size must be a power of 2, got %d", ErrBadGeometry, c.BlockSize)
	}
	if c.Ways < 1 {
		return fmt.Errorf("%w: associativity must be at least 1, got %d", ErrBadGeometry, c.Ways)
	}
	if !c.Policy.valid() {
		return fmt.Errorf("%w: %d", ErrBadPolicy, uint8(c.Policy))
	}
	return nil
}

// Capacity is the number of data bytes the level can hold.
func (c Config) Capacity() int { return c.Sets * c.Ways * c.BlockSize }

// String renders e.g. "8 sets, 2-way, 64 bytes/block, LRU".
func (c Config) String() string {
	return fmt.Sprintf("%d sets, %d-way, %d bytes/block, %s", c.Sets, c.Ways, c.BlockSize, c.Policy)
}

// Level is a single set-associative, write-through cache.
type Level struct {
	level int
	cfg   Config
	store physmem.Store

	sets       [][]Line
	offsetBits uint
	indexBits  uint

	clock    uint64
	hits     uint64
	misses   uint64
	accesses uint64
}

// NewLevel creates an empty cache level. level is the number shown in stats (1 for L1).
func NewLevel(level int, cfg Config, store physmem.Store) (*Level, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("L%d: %w", level, err)
	}

	l := &Level{
		level:      level,
		cfg:        cfg,
		store:      store,
		sets:       make([][]Line, cfg.Sets),
		offsetBits: buf.Log2(uint64(cfg.BlockSize)),
		indexBits:  buf.Log2(uint64(cfg.Sets)),
	}
	for i := range l.sets {
		set := make([]Line, cfg.Ways)
		for w := range set {
			set[w] = newLine(cfg.BlockSize)
		}
		l.sets[i] = set
	}
	return l, nil
}

// Number returns the level number (1 for L1, 2 for L2).
func (l *Level) Number() int { return l.level }

// Config returns the level's geometry.
func (l *Level) Config() Config { return l.cfg }

// Clock returns the logical clock. It ticks once per Read or Write.
func (l *Level) Clock() uint64 { return l.clock }

// Split decomposes addr into tag, set index and block offset.
func (l *Level) Split(addr uint64) (tag uint64, set int, offset int) {
	offset = int(addr & (uint64(l.cfg.BlockSize) - 1))
	set = int((addr >> l.offsetBits) & (uint64(l.cfg.Sets) - 1))
	tag = addr >> (l.offsetBits + l.indexBits)
	return tag, set, offset
}

// Read returns the byte at addr, loading its block on a miss.
func (l *Level) Read(addr uint64) (byte, error) {
	if addr >= l.store.TotalSize() {
		return 0, fmt.Errorf("L%d read %#x: %w", l.level, addr, ErrOutOfRange)
	}

	l.accesses++
	l.clock++

	tag, set, offset := l.Split(addr)
	if way := l.find(set, tag); way >= 0 {
		l.hits++
		line := &l.sets[set][way]
		line.recordAccess(l.clock)
		return line.Data[offset], nil
	}

	l.misses++
	way := l.victim(set)
	l.load(addr, tag, set, way)
	return l.sets[set][way].Data[offset], nil
}

// Write stores b in the backing store, then updates the cached block. On a
// miss the block is loaded into the set.
func (l *Level) Write(addr uint64, b byte) error {
	if addr >= l.store.TotalSize() {
		return fmt.Errorf("L%d write %#x: %w", l.level, addr, ErrOutOfRange)
	}
	if err := l.store.Write(addr, b); err != nil {
		return fmt.Errorf("L%d write %#x: %w", l.level, addr, err)
	}

	l.accesses++
	l.clock++

	tag, set, offset := l.Split(addr)
	if way := l.find(set, tag); way >= 0 {
		l.hits++
		line := &l.sets[set][way]
		line.Data[offset] = b
		line.recordAccess(l.clock)
		return nil
	}

	l.misses++
	way := l.victim(set)
	l.load(addr, tag, set, way)
	l.sets[set][way].Data[offset] = b
	return nil
}

// Contains reports whether addr's block is resident. It has no side effects.
func (l *Level) Contains(addr uint64) bool {
	tag, set, _ := l.Split(addr)
	return l.find(set, tag) >= 0
}

// Flush invalidates every line. The logical clock keeps running.
func (l *Level) Flush() {
	for _, set := range l.sets {
		for w := range set {
			set[w].invalidate()
		}
	}
}

// InvalidateRange drops every line whose block overlaps [addr, addr+n).
func (l *Level) InvalidateRange(addr, n uint64) {
	if n == 0 {
		return
	}
	bs := uint64(l.cfg.BlockSize)
	end := addr + n
	for base := addr &^ (bs - 1); base < end; base += bs {
		tag, set, _ := l.Split(base)
		if way := l.find(set, tag); way >= 0 {
			l.sets[set][way].invalidate()
		}
	}
}

// ResetStats zeroes the hit, miss and access counters.
func (l *Level) ResetStats() {
	l.hits, l.misses, l.accesses = 0, 0, 0
}

// Lines returns a copy of the lines in one set, or nil if set is out of range.
func (l *Level) Lines(set int) []Line {
	if set < 0 || set >= len(l.sets) {
		return nil
	}
	out := make([]Line, len(l.sets[set]))
	for i, line := range l.sets[set] {
		out[i] = line.clone()
	}
	return out
}

func (l *Level) find(set int, tag uint64) int {
	for way, line := range l.sets[set] {
		if line.Valid && line.Tag == tag {
			return way
		}
	}
	return -1
}

// victim picks the way to replace in set.
func (l *Level) victim(set int) int {
	lines := l.sets[set]
	for way := range lines {
		if !lines[way].Valid {
			return way
		}
	}

	key := func(line *Line) uint64 {
		switch l.cfg.Policy {
		case FIFO:
			return line.InsertedAt
		case LFU:
			return line.AccessCount
		default:
			return line.LastAccess
		}
	}

	victim := 0
	best := key(&lines[0])
	for way := 1; way < len(lines); way++ {
		if k := key(&lines[way]); k < best {
			best, victim = k, way
		}
	}

	logger.Debug("cache: evict", "level", l.level, "set", set, "way", victim,
		"tag", lines[victim].Tag, "policy", l.cfg.Policy.String())
	return victim
}

// load fills a line with addr's block. Bytes past the end of the store read as zero.
func (l *Level) load(addr, tag uint64, set, way int) {
	line := &l.sets[set][way]
	base := addr &^ (uint64(l.cfg.BlockSize) - 1)

	n := min(uint64(l.cfg.BlockSize), l.store.TotalSize()-base)
	if !l.store.ReadRange(base, line.Data[:n]) {
		clear(line.Data[:n])
	}
	clear(line.Data[n:])

	line.Valid = true
	line.Tag = tag
	line.InsertedAt = l.clock
	line.LastAccess = l.clock
	line.AccessCount = 1
}

// Stats returns the level's counters.
func (l *Level) Stats() LevelStats {
	return LevelStats{
		Level:    l.level,
		Config:   l.cfg,
		Hits:     l.hits,
		Misses:   l.misses,
		Accesses: l.accesses,
	}
}

// Dump writes every set that holds at least one valid line, with the
// metadata the policy uses.
func (l *Level) Dump(w io.Writer) {
	fmt.Fprintf(w, "=== L%d Cache Contents ===\n", l.level)
	fmt.Fprintf(w, "%s\n\n", l.cfg)

	for idx, set := range l.sets {
		occupied := false
		for _, line := range set {
			if line.Valid {
				occupied = true
				break
			}
		}
		if !occupied {
			continue
		}

		fmt.Fprintf(w, "Set %d: ", idx)
		for _, line := range set {
			if !line.Valid {
				fmt.Fprint(w, "[V:0 Tag:----] ")
				continue
			}
			fmt.Fprintf(w, "[V:1 Tag:0x%04x", line.Tag)
			switch l.cfg.Policy {
			case FIFO:
				fmt.Fprintf(w, " Order:%d", line.InsertedAt)
			case LRU:
				fmt.Fprintf(w, " LastUse:%d", line.LastAccess)
			case LFU:
				fmt.Fprintf(w, " AccessCnt:%d", line.AccessCount)
			}
			fmt.Fprint(w, "] ")
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w)
}
