//go:build linux || darwin

package physmem

import (
	"fmt"
	"math"

	"golang.org/x/sys/unix"
)

// NewMapped backs the memory with an anonymous private mapping so large
// simulated RAM sizes stay out of the Go heap. The OS zero-fills the pages.
func NewMapped(size uint64) (*Memory, error) {
	if size == 0 {
		return nil, ErrZeroSize
	}
	if size > math.MaxInt {
		return nil, fmt.Errorf("physmem: size %d too large to map", size)
	}

	data, err := unix.Mmap(-1, 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("physmem: mmap failed: %w", err)
	}

	m := &Memory{data: data, mapped: true}
	m.unmap = func() error {
		return unix.Munmap(data)
	}
	return m, nil
}
