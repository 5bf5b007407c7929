package alloc

import "errors"

var (
	// ErrZeroSize indicates a request for zero bytes.
	ErrZeroSize = errors.New("alloc: cannot allocate zero bytes")

	// ErrOutOfMemory indicates that no free block large enough was found.
	ErrOutOfMemory = errors.New("alloc: no suitable block found (out of memory)")

	// ErrTooLarge indicates a request larger than the whole memory.
	ErrTooLarge = errors.New("alloc: requested size exceeds total memory")

	// ErrUnknownBlock indicates a block ID this allocator never issued.
	ErrUnknownBlock = errors.New("alloc: block id not found")

	// ErrDoubleFree indicates a block ID that was already released.
	ErrDoubleFree = errors.New("alloc: block already freed")

	// ErrNoBlockAtAddress indicates an address that is not the start of an allocated block.
	ErrNoBlockAtAddress = errors.New("alloc: no allocated block found at this address")

	// ErrNotPowerOfTwo indicates buddy geometry that is not a power of two.
	ErrNotPowerOfTwo = errors.New("alloc: size must be a power of two")

	// ErrBadStrategy indicates an unknown allocation strategy.
	ErrBadStrategy = errors.New("alloc: unknown allocation strategy")

	// ErrNilStore indicates a missing backing store.
	ErrNilStore = errors.New("alloc: backing store cannot be nil")
)
