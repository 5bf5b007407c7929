package physmem

// Store is the contract the allocators, caches and virtual memory rely on.
// *Memory is the canonical implementation.
type Store interface {
	// Read returns the byte at addr.
	Read(addr uint64) (byte, error)

	// Write stores b at addr.
	Write(addr uint64, b byte) error

	// ReadRange copies len(p) bytes starting at addr into p.
	// Returns false (and copies nothing) if the range is out of bounds.
	ReadRange(addr uint64, p []byte) bool

	// WriteRange copies p into memory starting at addr.
	// Returns false (and writes nothing) if the range is out of bounds.
	WriteRange(addr uint64, p []byte) bool

	// TotalSize is the capacity in bytes.
	TotalSize() uint64

	// UsedSize is the allocator-maintained used byte count.
	UsedSize() uint64

	// SetUsedSize replaces the used byte count.
	SetUsedSize(n uint64)
}

var _ Store = (*Memory)(nil)
