package cache

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/memsim/physmem"
)

var (
	testL1 = Config{Sets: 4, Ways: 1, BlockSize: 16, Policy: LRU}
	testL2 = Config{Sets: 8, Ways: 2, BlockSize: 16, Policy: LRU}
)

func newTestHierarchy(t testing.TB, mem physmem.Store) *Hierarchy {
	t.Helper()

	h, err := NewHierarchy(mem, testL1, testL2)
	require.NoError(t, err)
	return h
}

func TestNewHierarchy_Errors(t *testing.T) {
	_, err := NewHierarchy(nil, testL1, testL2)
	require.ErrorIs(t, err, ErrNilStore)

	bad := testL2
	bad.Ways = 0
	h, err := NewHierarchy(physmem.MustNew(256), testL1, bad)
	require.ErrorIs(t, err, ErrBadGeometry)
	assert.Nil(t, h)
}

func TestHierarchy_ReadMissFillsBothLevels(t *testing.T) {
	mem := newPatternMemory(t, 1024)
	h := newTestHierarchy(t, mem)

	v, err := h.Read(100)
	require.NoError(t, err)
	assert.Equal(t, byte(100), v)
	assert.True(t, h.ContainsInL1(100))
	assert.True(t, h.ContainsInL2(100))

	st := h.Stats()
	assert.Equal(t, uint64(1), st.MemoryAccesses)
	assert.Equal(t, uint64(1), st.Requests)
	// Both backfills are counted as level writes.
	assert.Equal(t, uint64(1), st.L1.Misses)
	assert.Equal(t, uint64(1), st.L2.Misses)
	assert.Equal(t, uint64(2), st.TotalAccesses)

	// Whole block is now in L1.
	v, err = h.Read(97)
	require.NoError(t, err)
	assert.Equal(t, byte(97), v)
	assert.Equal(t, uint64(1), h.Stats().L1.Hits)
	assert.Equal(t, uint64(1), h.Stats().MemoryAccesses)
}

func TestHierarchy_L2HitBackfillsL1(t *testing.T) {
	mem := newPatternMemory(t, 1024)
	h := newTestHierarchy(t, mem)

	_, err := h.Read(200)
	require.NoError(t, err)
	h.L1().Flush()
	require.False(t, h.ContainsInL1(200))

	v, err := h.Read(200)
	require.NoError(t, err)
	assert.Equal(t, byte(200), v)
	assert.True(t, h.ContainsInL1(200))

	st := h.Stats()
	assert.Equal(t, uint64(1), st.L2.Hits)
	assert.Equal(t, uint64(1), st.MemoryAccesses)
	assert.Equal(t, uint64(2), st.L1.Misses)
	assert.Equal(t, uint64(2), st.Requests)
}

func TestHierarchy_WriteMissDoesNotAllocate(t *testing.T) {
	mem := newPatternMemory(t, 1024)
	h := newTestHierarchy(t, mem)

	require.NoError(t, h.Write(5, 42))

	got, err := mem.Read(5)
	require.NoError(t, err)
	assert.Equal(t, byte(42), got)
	assert.False(t, h.ContainsInL1(5))
	assert.False(t, h.ContainsInL2(5))

	st := h.Stats()
	assert.Zero(t, st.TotalAccesses)
	assert.Equal(t, uint64(1), st.Requests)
}

func TestHierarchy_WriteHitUpdatesResidentLevels(t *testing.T) {
	mem := newPatternMemory(t, 1024)
	h := newTestHierarchy(t, mem)

	_, err := h.Read(5)
	require.NoError(t, err)
	require.NoError(t, h.Write(5, 99))

	v, err := h.Read(5)
	require.NoError(t, err)
	assert.Equal(t, byte(99), v)

	// Drop L1 and make sure L2 also saw the write.
	h.L1().Flush()
	v, err = h.Read(5)
	require.NoError(t, err)
	assert.Equal(t, byte(99), v)
	assert.Equal(t, uint64(1), h.Stats().MemoryAccesses)
}

func TestHierarchy_OutOfRange(t *testing.T) {
	h := newTestHierarchy(t, physmem.MustNew(64))

	_, err := h.Read(64)
	require.ErrorIs(t, err, ErrOutOfRange)
	require.ErrorIs(t, h.Write(64, 1), ErrOutOfRange)
	assert.Equal(t, HierarchyStats{L1: h.L1().Stats(), L2: h.L2().Stats()}, h.Stats())
	assert.Zero(t, h.Stats().Requests)
}

func TestHierarchy_FlushAndReset(t *testing.T) {
	h := newTestHierarchy(t, newPatternMemory(t, 256))
	_, _ = h.Read(0)

	h.Flush()
	assert.False(t, h.ContainsInL1(0))
	assert.False(t, h.ContainsInL2(0))

	h.ResetStats()
	st := h.Stats()
	assert.Zero(t, st.TotalAccesses)
	assert.Zero(t, st.MemoryAccesses)
	assert.Zero(t, st.Requests)
	assert.Zero(t, st.OverallHitRatio())
}

func TestHierarchy_RandomInvariants(t *testing.T) {
	mem := newPatternMemory(t, 2048)
	h := newTestHierarchy(t, mem)
	shadow := make([]byte, 2048)
	for i := range shadow {
		shadow[i] = byte(i)
	}

	rng := rand.New(rand.NewSource(7)) // Fixed seed for reproducibility
	for i := range 2000 {
		addr := uint64(rng.Intn(2048))
		if rng.Intn(4) == 0 {
			b := byte(rng.Intn(256))
			require.NoError(t, h.Write(addr, b))
			shadow[addr] = b
		} else {
			v, err := h.Read(addr)
			require.NoError(t, err)
			require.Equal(t, shadow[addr], v, "step %d: stale read at %#x", i, addr)
		}

		st := h.Stats()
		assertCounters(t, st.L1)
		assertCounters(t, st.L2)
		require.GreaterOrEqual(t, st.OverallHitRatio(), 0.0)
		require.LessOrEqual(t, st.OverallHitRatio(), 100.0)
	}
	assert.Equal(t, uint64(2000), h.Stats().Requests)
}

func TestHierarchy_DumpAndStatsText(t *testing.T) {
	h := newTestHierarchy(t, newPatternMemory(t, 256))
	_, _ = h.Read(0)
	_, _ = h.Read(0)

	var out bytes.Buffer
	h.Dump(&out)
	assert.Contains(t, out.String(), "=== L1 Cache Contents ===")
	assert.Contains(t, out.String(), "=== L2 Cache Contents ===")

	text := h.Stats().String()
	assert.Contains(t, text, "=== Overall Statistics ===")
	assert.Contains(t, text, "Memory Accesses: 1")
	assert.Contains(t, text, "L1 Hits: 1")
	// 1 hit out of 3 level accesses.
	assert.Contains(t, text, "Overall Hit Ratio: 33.33%")
}
