package vm

import "math/bits"

// frameBitmap tracks frame occupancy, one bit per frame.
type frameBitmap struct {
	words []uint64
	n     int
}

func newFrameBitmap(n int) frameBitmap {
	return frameBitmap{words: make([]uint64, (n+63)/64), n: n}
}

func (b *frameBitmap) set(f int)   { b.words[f/64] |= 1 << (f % 64) }
func (b *frameBitmap) unset(f int) { b.words[f/64] &^= 1 << (f % 64) }

func (b *frameBitmap) inUse(f int) bool {
	return b.words[f/64]&(1<<(f%64)) != 0
}

// firstFree returns the lowest unused frame, or -1 when every frame is taken.
func (b *frameBitmap) firstFree() int {
	for i, w := range b.words {
		if w == ^uint64(0) {
			continue
		}
		f := i*64 + bits.TrailingZeros64(^w)
		if f >= b.n {
			return -1
		}
		return f
	}
	return -1
}

func (b *frameBitmap) used() int {
	c := 0
	for _, w := range b.words {
		c += bits.OnesCount64(w)
	}
	return c
}

func (b *frameBitmap) reset() { clear(b.words) }
