package system

import "errors"

var (
	// ErrNoAllocator indicates that no allocator is active, usually after
	// InitMemory could not rebuild the current strategy for the new size.
	ErrNoAllocator = errors.New("system: allocator not set (use 'set allocator <type>')")

	// ErrNoCache indicates a cache operation while the cache hierarchy is disabled.
	ErrNoCache = errors.New("system: cache hierarchy is disabled")

	// ErrNoVM indicates a virtual memory operation while virtual memory is disabled.
	ErrNoVM = errors.New("system: virtual memory is disabled")
)
