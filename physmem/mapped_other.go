//go:build !linux && !darwin

package physmem

// NewMapped falls back to heap memory where anonymous mappings aren't used.
func NewMapped(size uint64) (*Memory, error) {
	return New(size)
}
