package vm

import "errors"

var (
	// ErrBadGeometry indicates an unusable page count, frame count or page size.
	ErrBadGeometry = errors.New("vm: invalid geometry")

	// ErrBadPolicy indicates an unknown page replacement policy.
	ErrBadPolicy = errors.New("vm: unknown page replacement policy")

	// ErrNilStore indicates a missing backing store.
	ErrNilStore = errors.New("vm: backing store cannot be nil")

	// ErrPageOutOfRange indicates a virtual address whose page number is past the page table.
	ErrPageOutOfRange = errors.New("vm: invalid virtual address: page number out of range")

	// ErrNoFreeFrame indicates that eviction did not release a frame.
	ErrNoFreeFrame = errors.New("vm: failed to find free frame after eviction")
)
