package buf

import (
	"math"
	"testing"
)

func TestAddOverflowSafe(t *testing.T) {
	if sum, ok := AddOverflowSafe(10, 5); !ok || sum != 15 {
		t.Fatalf("AddOverflowSafe(10,5)=%d,%v want 15,true", sum, ok)
	}
	if _, ok := AddOverflowSafe(math.MaxUint64, 1); ok {
		t.Fatalf("expected overflow when adding to MaxUint64")
	}
}

func TestMulOverflowSafe(t *testing.T) {
	if p, ok := MulOverflowSafe(16, 512); !ok || p != 8192 {
		t.Fatalf("MulOverflowSafe(16,512)=%d,%v want 8192,true", p, ok)
	}
	if _, ok := MulOverflowSafe(math.MaxUint64/2, 3); ok {
		t.Fatalf("expected overflow")
	}
	if p, ok := MulOverflowSafe(0, math.MaxUint64); !ok || p != 0 {
		t.Fatalf("zero operand should never overflow")
	}
}

func TestInRange(t *testing.T) {
	tests := []struct {
		name        string
		total, addr uint64
		n           uint64
		want        bool
	}{
		{"whole region", 1024, 0, 1024, true},
		{"last byte", 1024, 1023, 1, true},
		{"past end", 1024, 1020, 8, false},
		{"start outside", 1024, 1024, 0, false},
		{"zero length inside", 1024, 10, 0, true},
		{"wrap around", 1024, 8, math.MaxUint64, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InRange(tt.total, tt.addr, tt.n); got != tt.want {
				t.Fatalf("InRange(%d,%d,%d)=%v want %v", tt.total, tt.addr, tt.n, got, tt.want)
			}
			if err := CheckRange(tt.total, tt.addr, tt.n); (err == nil) != tt.want {
				t.Fatalf("CheckRange(%d,%d,%d) err=%v want ok=%v", tt.total, tt.addr, tt.n, err, tt.want)
			}
		})
	}
}

func TestSlice(t *testing.T) {
	data := []byte{0, 1, 2, 3, 4}
	if got, ok := Slice(data, 1, 3); !ok || len(got) != 3 || got[0] != 1 || got[2] != 3 {
		t.Fatalf("Slice returned unexpected result: %v, %v", got, ok)
	}
	if _, ok := Slice(data, 4, 2); ok {
		t.Fatalf("Slice should fail when extending beyond len")
	}
	if _, ok := Slice(data, 6, 0); ok {
		t.Fatalf("Slice should reject offset past len")
	}
}

func TestPowerOfTwoHelpers(t *testing.T) {
	for _, n := range []uint64{1, 2, 32, 1024, 1 << 40} {
		if !IsPowerOfTwo(n) {
			t.Errorf("IsPowerOfTwo(%d) = false", n)
		}
	}
	for _, n := range []uint64{0, 3, 48, 1000} {
		if IsPowerOfTwo(n) {
			t.Errorf("IsPowerOfTwo(%d) = true", n)
		}
	}

	logs := map[uint64]uint{1: 0, 2: 1, 16: 4, 64: 6, 4096: 12}
	for n, want := range logs {
		if got := Log2(n); got != want {
			t.Errorf("Log2(%d)=%d want %d", n, got, want)
		}
	}

	next := map[uint64]uint64{0: 1, 1: 1, 2: 2, 3: 4, 50: 64, 100: 128, 200: 256, 256: 256}
	for n, want := range next {
		if got := NextPowerOfTwo(n); got != want {
			t.Errorf("NextPowerOfTwo(%d)=%d want %d", n, got, want)
		}
	}
	if got := NextPowerOfTwo(1<<63 + 1); got != 0 {
		t.Errorf("NextPowerOfTwo overflow = %d, want 0", got)
	}
}
