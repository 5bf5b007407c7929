package cache

import "errors"

var (
	// ErrBadGeometry indicates a set count, associativity or block size the cache cannot use.
	ErrBadGeometry = errors.New("cache: invalid geometry")

	// ErrBadPolicy indicates an unknown replacement policy.
	ErrBadPolicy = errors.New("cache: unknown replacement policy")

	// ErrNilStore indicates a missing backing store.
	ErrNilStore = errors.New("cache: backing store cannot be nil")

	// ErrOutOfRange indicates an address past the end of the backing store.
	ErrOutOfRange = errors.New("cache: address out of range")
)
