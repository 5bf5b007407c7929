package alloc

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/memsim/physmem"
)

func TestNewBuddy_Errors(t *testing.T) {
	tests := []struct {
		name     string
		total    uint64
		minBlock uint64
		wantErr  error
	}{
		{"total_not_pow2", 1000, 32, ErrNotPowerOfTwo},
		{"min_not_pow2", 1024, 48, ErrNotPowerOfTwo},
		{"min_zero", 1024, 0, ErrNotPowerOfTwo},
		{"min_above_total", 64, 128, ErrTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := NewBuddy(physmem.MustNew(tt.total), tt.minBlock)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, b)
		})
	}

	_, err := NewBuddy(nil, 32)
	require.ErrorIs(t, err, ErrNilStore)
}

// Three allocations round up to 64, 128 and 256 bytes.
func TestBuddy_RoundingScenario(t *testing.T) {
	b, mem := newTestBuddy(t, 1024, 32)

	cases := []struct{ req, want uint64 }{{50, 64}, {100, 128}, {200, 256}}
	for _, c := range cases {
		id := mustAlloc(t, b, c.req)
		for _, blk := range b.Blocks() {
			if blk.ID == id {
				assert.Equal(t, c.want, blk.Size, "request %d", c.req)
			}
		}
	}

	assert.Equal(t, uint64(448), b.Stats().UsedBytes)
	assert.Equal(t, uint64(448), mem.UsedSize())
	assertInvariants(t, b, mem)
	assertBuddyAligned(t, b)
}

func TestBuddy_MinBlockClamp(t *testing.T) {
	b, _ := newTestBuddy(t, 1024, 32)

	id := mustAlloc(t, b, 1)
	blocks := b.Blocks()
	require.NotEmpty(t, blocks)
	assert.Equal(t, id, blocks[0].ID)
	assert.Equal(t, uint64(32), blocks[0].Size)
}

func TestBuddy_SplitLeavesOneFreeBlockPerLevel(t *testing.T) {
	b, _ := newTestBuddy(t, 1024, 32)
	mustAlloc(t, b, 32)

	assert.Equal(t, map[uint64][]uint64{
		32:  {32},
		64:  {64},
		128: {128},
		256: {256},
		512: {512},
	}, b.FreeLists())
}

// Freeing two 64-byte buddies at 0 and 64 lets a 128-byte request succeed.
func TestBuddy_FreedBuddiesMerge(t *testing.T) {
	for _, order := range [][2]int{{0, 1}, {1, 0}} {
		b, mem := newTestBuddy(t, 256, 32)

		ids := []BlockID{mustAlloc(t, b, 64), mustAlloc(t, b, 64)}
		assert.Equal(t, uint64(0), mustAddr(t, b, ids[0]))
		assert.Equal(t, uint64(64), mustAddr(t, b, ids[1]))

		// Occupy the other half so only a merge can satisfy 128.
		mustAlloc(t, b, 128)
		_, err := b.Allocate(128)
		require.ErrorIs(t, err, ErrOutOfMemory)

		require.NoError(t, b.Deallocate(ids[order[0]]))
		require.NoError(t, b.Deallocate(ids[order[1]]))

		id := mustAlloc(t, b, 128)
		assert.Equal(t, uint64(0), mustAddr(t, b, id))
		assertInvariants(t, b, mem)
		assertBuddyAligned(t, b)
	}
}

func TestBuddy_FullMergeRestoresWholeMemory(t *testing.T) {
	b, mem := newTestBuddy(t, 1024, 32)

	var ids []BlockID
	for range 32 {
		ids = append(ids, mustAlloc(t, b, 32))
	}
	_, err := b.Allocate(1)
	require.ErrorIs(t, err, ErrOutOfMemory)

	for _, id := range ids {
		require.NoError(t, b.Deallocate(id))
	}
	assert.Equal(t, map[uint64][]uint64{1024: {0}}, b.FreeLists())
	assert.Zero(t, mem.UsedSize())
}

func TestBuddy_BuddyOfIsInvolution(t *testing.T) {
	for size := uint64(32); size <= 1024; size <<= 1 {
		for addr := uint64(0); addr < 2048; addr += size {
			buddy := BuddyOf(addr, size)
			assert.Equal(t, addr, BuddyOf(buddy, size))
			assert.Zero(t, buddy%size)
			assert.NotEqual(t, addr, buddy)
		}
	}
}

func TestBuddy_Errors(t *testing.T) {
	b, _ := newTestBuddy(t, 1024, 32)

	_, err := b.Allocate(0)
	require.ErrorIs(t, err, ErrZeroSize)

	_, err = b.Allocate(1025)
	require.ErrorIs(t, err, ErrTooLarge)

	require.ErrorIs(t, b.Deallocate(7), ErrUnknownBlock)

	id := mustAlloc(t, b, 100)
	require.NoError(t, b.Deallocate(id))
	require.ErrorIs(t, b.Deallocate(id), ErrDoubleFree)
	require.ErrorIs(t, b.DeallocateByAddress(0), ErrNoBlockAtAddress)

	st := b.Stats()
	assert.Equal(t, uint64(3), st.Allocations)
	assert.Equal(t, uint64(2), st.FailedAllocations)
	assert.Equal(t, uint64(1), st.Deallocations)
}

func TestBuddy_Fragmentation(t *testing.T) {
	b, _ := newTestBuddy(t, 1024, 32)

	mustAlloc(t, b, 48) // 64-byte block, 16 wasted
	assert.InDelta(t, 25.0, b.InternalFragmentation(), 1e-9)

	// Free: 64 + 128 + 256 + 512 = 960, largest 512.
	assert.InDelta(t, 100.0*448/960, b.ExternalFragmentation(), 1e-9)
	assert.InDelta(t, 6.25, b.Utilization(), 1e-9)
}

func TestBuddy_DumpAndStatsText(t *testing.T) {
	b, _ := newTestBuddy(t, 256, 32)
	mustAlloc(t, b, 100)

	var out bytes.Buffer
	b.Dump(&out)
	assert.Contains(t, out.String(), "Size 128: 1 block(s) at 0x0080")
	assert.Contains(t, out.String(), "[0x0000 - 0x007f] id=1 size=128 requested=100")

	text := b.Stats().String()
	assert.Contains(t, text, "=== Buddy Allocator Statistics ===")
	assert.Contains(t, text, "Min block size: 32 bytes")
	assert.Contains(t, text, "Max block size: 256 bytes")
}

func TestNew_Dispatch(t *testing.T) {
	mem := physmem.MustNew(1024)

	a, err := New(mem, Buddy, WithMinBlockSize(64))
	require.NoError(t, err)
	assert.Equal(t, Buddy, a.Kind())
	assert.Equal(t, uint64(64), a.Stats().MinBlockSize)

	a, err = New(mem, WorstFit)
	require.NoError(t, err)
	_, ok := a.(*Standard)
	assert.True(t, ok)

	a, err = New(physmem.MustNew(1000), Buddy)
	require.ErrorIs(t, err, ErrNotPowerOfTwo)
	assert.Nil(t, a)

	_, err = New(mem, Kind(42))
	require.ErrorIs(t, err, ErrBadStrategy)
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in   string
		want Kind
	}{
		{"first_fit", FirstFit},
		{"Best-Fit", BestFit},
		{"worst fit", WorstFit},
		{" BUDDY ", Buddy},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseKind(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseKind("next_fit")
	require.ErrorIs(t, err, ErrBadStrategy)

	var k Kind
	require.NoError(t, k.UnmarshalText([]byte("best_fit")))
	text, err := k.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "best_fit", string(text))
}
