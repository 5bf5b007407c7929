package physmem

import (
	"fmt"

	"github.com/joshuapare/memsim/internal/buf"
)

// Memory is a contiguous simulated RAM.
type Memory struct {
	data   []byte
	used   uint64
	unmap  func() error
	mapped bool
}

// New allocates a heap-backed memory of size bytes.
func New(size uint64) (*Memory, error) {
	if size == 0 {
		return nil, ErrZeroSize
	}
	return &Memory{data: make([]byte, size)}, nil
}

// MustNew is New for sizes known to be valid (tests, fixed defaults).
func MustNew(size uint64) *Memory {
	m, err := New(size)
	if err != nil {
		panic(err)
	}
	return m
}

// Read returns the byte at addr.
func (m *Memory) Read(addr uint64) (byte, error) {
	if !m.IsValidRange(addr, 1) {
		return 0, fmt.Errorf("read %#x (size %d): %w", addr, len(m.data), ErrOutOfRange)
	}
	return m.data[addr], nil
}

// Write stores b at addr.
func (m *Memory) Write(addr uint64, b byte) error {
	if !m.IsValidRange(addr, 1) {
		return fmt.Errorf("write %#x (size %d): %w", addr, len(m.data), ErrOutOfRange)
	}
	m.data[addr] = b
	return nil
}

// ReadRange copies len(p) bytes starting at addr into p.
func (m *Memory) ReadRange(addr uint64, p []byte) bool {
	src, ok := buf.Slice(m.data, addr, uint64(len(p)))
	if !ok || !m.IsValidRange(addr, uint64(len(p))) {
		return false
	}
	copy(p, src)
	return true
}

// WriteRange copies p into memory starting at addr.
func (m *Memory) WriteRange(addr uint64, p []byte) bool {
	dst, ok := buf.Slice(m.data, addr, uint64(len(p)))
	if !ok || !m.IsValidRange(addr, uint64(len(p))) {
		return false
	}
	copy(dst, p)
	return true
}

// IsValidRange reports whether [addr, addr+n) is inside the memory. The start
// address must be in bounds even when n is zero.
func (m *Memory) IsValidRange(addr, n uint64) bool {
	return buf.InRange(uint64(len(m.data)), addr, n)
}

// TotalSize returns the capacity in bytes.
func (m *Memory) TotalSize() uint64 { return uint64(len(m.data)) }

// UsedSize returns the allocator-maintained used byte count.
func (m *Memory) UsedSize() uint64 { return m.used }

// FreeSize returns TotalSize() - UsedSize().
func (m *Memory) FreeSize() uint64 { return m.TotalSize() - m.used }

// SetUsedSize replaces the used byte count. Values above the capacity are clamped.
func (m *Memory) SetUsedSize(n uint64) {
	m.used = min(n, m.TotalSize())
}

// Clear zeroes every byte and resets the used counter.
func (m *Memory) Clear() {
	clear(m.data)
	m.used = 0
}

// Fill sets every byte to fn(addr). Handy for building deterministic fixtures.
func (m *Memory) Fill(fn func(addr uint64) byte) {
	for i := range m.data {
		m.data[i] = fn(uint64(i))
	}
}

// Mapped reports whether the memory lives in an OS mapping rather than the Go heap.
func (m *Memory) Mapped() bool { return m.mapped }

// Close releases an OS mapping. It is a no-op for heap memory and safe to call twice.
func (m *Memory) Close() error {
	if m.unmap == nil {
		m.data = nil
		return nil
	}
	err := m.unmap()
	m.unmap = nil
	m.data = nil
	return err
}
