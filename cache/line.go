package cache

// Line is one cache line. Stamps are values of the owning Level's logical clock.
type Line struct {
	Valid bool
	Tag   uint64
	Data  []byte

	InsertedAt  uint64 // FIFO
	LastAccess  uint64 // LRU
	AccessCount uint64 // LFU
}

func newLine(blockSize int) Line {
	return Line{Data: make([]byte, blockSize)}
}

// recordAccess refreshes LRU and LFU metadata on a hit.
func (l *Line) recordAccess(now uint64) {
	l.LastAccess = now
	l.AccessCount++
}

// invalidate drops the line's contents. Data is kept allocated for reuse.
func (l *Line) invalidate() {
	l.Valid = false
	l.Tag = 0
	l.InsertedAt = 0
	l.LastAccess = 0
	l.AccessCount = 0
}

// clone returns a deep copy, so snapshots don't alias live line data.
func (l Line) clone() Line {
	l.Data = append([]byte(nil), l.Data...)
	return l
}
