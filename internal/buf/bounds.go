// Package buf holds overflow-safe address arithmetic shared by the memory
// back ends.
package buf

import (
	"fmt"
	"math"
	"math/bits"
)

// AddOverflowSafe adds a and b, returning ok = false when the result would overflow uint64.
func AddOverflowSafe(a, b uint64) (uint64, bool) {
	sum, carry := bits.Add64(a, b, 0)
	return sum, carry == 0
}

// MulOverflowSafe multiplies a and b, returning ok = false when the result would overflow uint64.
// Used for frames * pageSize style geometry checks.
func MulOverflowSafe(a, b uint64) (uint64, bool) {
	hi, lo := bits.Mul64(a, b)
	return lo, hi == 0
}

// InRange reports whether [addr, addr+n) lies within a region of total bytes.
// The start address must itself be inside the region, even for n == 0.
func InRange(total, addr, n uint64) bool {
	if addr >= total {
		return false
	}
	end, ok := AddOverflowSafe(addr, n)
	return ok && end <= total
}

// CheckRange is InRange with a descriptive error for callers that surface it.
//
//	if err := buf.CheckRange(total, addr, uint64(len(p))); err != nil {
//	    return fmt.Errorf("write: %w", err)
//	}
func CheckRange(total, addr, n uint64) error {
	if addr >= total {
		return fmt.Errorf("bounds: addr=%#x >= size=%#x", addr, total)
	}
	end, ok := AddOverflowSafe(addr, n)
	if !ok {
		return fmt.Errorf("overflow: addr=%#x + len=%d", addr, n)
	}
	if end > total {
		return fmt.Errorf("bounds: end=%#x > size=%#x", end, total)
	}
	return nil
}

// Slice returns b[off:off+n] if it fits within len(b).
func Slice(b []byte, off, n uint64) ([]byte, bool) {
	if uint64(len(b)) > math.MaxInt {
		return nil, false
	}
	end, ok := AddOverflowSafe(off, n)
	if !ok || off > uint64(len(b)) || end > uint64(len(b)) {
		return nil, false
	}
	return b[off:end], true
}

// IsPowerOfTwo reports whether n is a non-zero power of two.
func IsPowerOfTwo(n uint64) bool {
	return n != 0 && n&(n-1) == 0
}

// Log2 returns the exponent of a power of two (the number of low bits needed
// to address n distinct values). Log2(1) == 0.
func Log2(n uint64) uint {
	if n == 0 {
		return 0
	}
	return uint(bits.Len64(n - 1))
}

// NextPowerOfTwo rounds n up to the nearest power of two. NextPowerOfTwo(0) == 1.
// Returns 0 when the result does not fit in uint64.
func NextPowerOfTwo(n uint64) uint64 {
	if n <= 1 {
		return 1
	}
	shift := bits.Len64(n - 1)
	if shift >= 64 {
		return 0
	}
	return 1 << shift
}
