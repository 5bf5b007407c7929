package physmem

import "errors"

var (
	// ErrOutOfRange indicates an address or range outside the memory bounds.
	ErrOutOfRange = errors.New("physmem: address out of range")

	// ErrZeroSize indicates an attempt to create a zero-byte memory.
	ErrZeroSize = errors.New("physmem: memory size must be greater than zero")
)
