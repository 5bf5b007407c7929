package vm

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/memsim/physmem"
)

func newTestVM(t testing.TB, cfg Config) (*VM, *physmem.Memory) {
	t.Helper()

	mem, err := physmem.New(cfg.PhysicalBytes())
	require.NoError(t, err)

	v, err := New(mem, cfg)
	require.NoError(t, err)
	return v, mem
}

// assertStats checks faults + hits == total and that resident pages match used frames.
func assertStats(t testing.TB, v *VM) {
	t.Helper()

	st := v.Stats()
	assert.Equal(t, st.Total, st.Faults+st.Hits, "faults + hits != total")
	assert.Equal(t, len(v.Resident()), v.FramesInUse(), "resident pages != frames in use")
	assert.LessOrEqual(t, v.FramesInUse(), v.Config().Frames)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{"ok", Config{Pages: 64, Frames: 16, PageSize: 512, Policy: LRU}, nil},
		{"page_not_pow2", Config{Pages: 64, Frames: 16, PageSize: 500, Policy: LRU}, ErrBadGeometry},
		{"zero_pages", Config{Pages: 0, Frames: 0, PageSize: 512, Policy: LRU}, ErrBadGeometry},
		{"zero_frames", Config{Pages: 4, Frames: 0, PageSize: 512, Policy: LRU}, ErrBadGeometry},
		{"frames_exceed_pages", Config{Pages: 4, Frames: 8, PageSize: 512, Policy: LRU}, ErrBadGeometry},
		{"bad_policy", Config{Pages: 4, Frames: 2, PageSize: 512}, ErrBadPolicy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestNew_Errors(t *testing.T) {
	cfg := Config{Pages: 8, Frames: 4, PageSize: 256, Policy: FIFO}

	_, err := New(nil, cfg)
	require.ErrorIs(t, err, ErrNilStore)

	v, err := New(physmem.MustNew(512), cfg)
	require.ErrorIs(t, err, ErrBadGeometry, "4 frames of 256 bytes need 1024 bytes")
	assert.Nil(t, v)
}

// Three sequential reads load pages 0, 1 and 2; a fourth page evicts page 0.
func TestVM_FIFOScenario(t *testing.T) {
	v, _ := newTestVM(t, Config{Pages: 10, Frames: 3, PageSize: 256, Policy: FIFO})

	for _, addr := range []uint64{0, 256, 512} {
		_, err := v.Read(addr)
		require.NoError(t, err)
	}
	assert.Equal(t, []uint64{0, 1, 2}, v.Resident())
	assert.Equal(t, uint64(3), v.Stats().Faults)

	_, err := v.Read(768)
	require.NoError(t, err)

	st := v.Stats()
	assert.Equal(t, uint64(4), st.Faults)
	assert.Equal(t, uint64(1), st.Evictions)
	assert.Equal(t, []uint64{1, 2, 3}, v.Resident())

	pte, ok := v.Entry(3)
	require.True(t, ok)
	assert.Equal(t, uint32(0), pte.Frame, "page 3 reuses page 0's frame")
	assertStats(t, v)
}

func TestVM_FIFOIgnoresRecency(t *testing.T) {
	v, _ := newTestVM(t, Config{Pages: 8, Frames: 2, PageSize: 64, Policy: FIFO})

	for _, addr := range []uint64{0, 64, 0, 0, 128} {
		_, err := v.Read(addr)
		require.NoError(t, err)
	}
	assert.Equal(t, []uint64{1, 2}, v.Resident(), "page 0 was loaded first and goes first")
}

func TestVM_FIFORepeatedReload(t *testing.T) {
	v, _ := newTestVM(t, Config{Pages: 4, Frames: 2, PageSize: 64, Policy: FIFO})

	// 0,1 load; 2 evicts 0; 0 evicts 1; 1 evicts 2; 2 evicts 0.
	for _, page := range []uint64{0, 1, 2, 0, 1, 2} {
		_, err := v.Read(page * 64)
		require.NoError(t, err)
		assertStats(t, v)
	}
	assert.Equal(t, []uint64{1, 2}, v.Resident())
	assert.Equal(t, []uint64{1, 2}, v.fifo, "queue holds each resident page once, in load order")
	assert.Equal(t, uint64(4), v.Stats().Evictions)
}

func TestVM_LRU(t *testing.T) {
	v, _ := newTestVM(t, Config{Pages: 8, Frames: 2, PageSize: 64, Policy: LRU})

	for _, addr := range []uint64{0, 64, 0, 128} {
		_, err := v.Read(addr)
		require.NoError(t, err)
	}
	assert.Equal(t, []uint64{0, 2}, v.Resident(), "page 1 was least recently used")
	assertStats(t, v)
}

func TestVM_ClockSecondChance(t *testing.T) {
	v, _ := newTestVM(t, Config{Pages: 10, Frames: 3, PageSize: 64, Policy: Clock})

	for _, page := range []uint64{0, 1, 2, 3} {
		_, err := v.Read(page * 64)
		require.NoError(t, err)
	}
	// Every page was referenced, so the full sweep clears all bits and takes page 0.
	assert.Equal(t, []uint64{1, 2, 3}, v.Resident())

	// Touch page 1 between loads; page 2 was not touched and must go instead.
	_, err := v.Read(64)
	require.NoError(t, err)
	_, err = v.Read(4 * 64)
	require.NoError(t, err)

	assert.Equal(t, []uint64{1, 3, 4}, v.Resident())
	pte, _ := v.Entry(1)
	assert.False(t, pte.Referenced, "second chance clears the bit")
	assertStats(t, v)
}

func TestVM_TranslateAndSyntheticFill(t *testing.T) {
	v, _ := newTestVM(t, Config{Pages: 16, Frames: 2, PageSize: 256, Policy: LRU})

	paddr, err := v.Translate(5*256 + 17)
	require.NoError(t, err)
	assert.Equal(t, uint64(17), paddr, "first fault lands in frame 0")

	b, err := v.Read(5*256 + 17)
	require.NoError(t, err)
	assert.Equal(t, byte((5*256+17)%256), b)

	paddr, err = v.Translate(9 * 256)
	require.NoError(t, err)
	assert.Equal(t, uint64(256), paddr)

	st := v.Stats()
	assert.Equal(t, uint64(2), st.Faults)
	assert.Equal(t, uint64(1), st.Hits)
}

func TestVM_WriteMarksDirty(t *testing.T) {
	v, mem := newTestVM(t, Config{Pages: 4, Frames: 1, PageSize: 64, Policy: FIFO})

	require.NoError(t, v.Write(10, 0xAB))
	pte, ok := v.Entry(0)
	require.True(t, ok)
	assert.True(t, pte.Dirty)

	got, err := mem.Read(10)
	require.NoError(t, err)
	assert.Equal(t, byte(0xAB), got)

	b, err := v.Read(10)
	require.NoError(t, err)
	assert.Equal(t, byte(0xAB), b)

	// Evicting the dirty page counts a write-back; the data is not persisted.
	_, err = v.Read(64)
	require.NoError(t, err)
	b, err = v.Read(10)
	require.NoError(t, err)
	assert.Equal(t, byte(10), b, "reload comes from the synthetic disk")

	st := v.Stats()
	assert.Equal(t, uint64(1), st.WriteBacks)
	assert.Equal(t, uint64(2), st.Evictions)
}

func TestVM_TranslateForWriteDoesNotStore(t *testing.T) {
	v, mem := newTestVM(t, Config{Pages: 4, Frames: 2, PageSize: 64, Policy: LRU})

	paddr, err := v.TranslateForWrite(70)
	require.NoError(t, err)

	pte, _ := v.Entry(1)
	assert.True(t, pte.Dirty)

	got, err := mem.Read(paddr)
	require.NoError(t, err)
	assert.Equal(t, byte(70), got, "only the synthetic fill is present")
}

func TestVM_OutOfRangeLeavesStatsAlone(t *testing.T) {
	v, _ := newTestVM(t, Config{Pages: 4, Frames: 2, PageSize: 64, Policy: LRU})

	_, err := v.Translate(4 * 64)
	require.ErrorIs(t, err, ErrPageOutOfRange)
	_, err = v.Read(1 << 40)
	require.ErrorIs(t, err, ErrPageOutOfRange)
	require.ErrorIs(t, v.Write(1000, 1), ErrPageOutOfRange)

	assert.Equal(t, Stats{Config: v.Config()}, v.Stats())
}

func TestVM_Flush(t *testing.T) {
	v, _ := newTestVM(t, Config{Pages: 8, Frames: 2, PageSize: 64, Policy: Clock})

	for _, page := range []uint64{0, 1, 2} {
		_, err := v.Read(page * 64)
		require.NoError(t, err)
	}
	require.NotZero(t, v.hand)

	v.Flush()
	assert.Empty(t, v.Resident())
	assert.Zero(t, v.FramesInUse())
	assert.Zero(t, v.hand)
	assert.Equal(t, uint64(3), v.Stats().Faults, "flush keeps counters")

	_, err := v.Read(0)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), v.Stats().Faults)

	v.ResetStats()
	assert.Zero(t, v.Stats().Total)
}

func TestVM_RandomInvariants(t *testing.T) {
	for _, policy := range []Policy{FIFO, LRU, Clock} {
		t.Run(policy.String(), func(t *testing.T) {
			v, _ := newTestVM(t, Config{Pages: 32, Frames: 5, PageSize: 64, Policy: policy})

			rng := rand.New(rand.NewSource(99)) // Fixed seed for reproducibility
			for range 1000 {
				addr := uint64(rng.Intn(32 * 64))
				if rng.Intn(3) == 0 {
					require.NoError(t, v.Write(addr, byte(rng.Intn(256))))
				} else {
					_, err := v.Read(addr)
					require.NoError(t, err)
				}
				assertStats(t, v)
				if policy == FIFO {
					require.Len(t, v.fifo, len(v.Resident()))
				}
			}
		})
	}
}

func TestVM_DumpAndStatsText(t *testing.T) {
	v, _ := newTestVM(t, Config{Pages: 4, Frames: 2, PageSize: 64, Policy: FIFO})
	_, _ = v.Read(0)
	_, _ = v.Read(1)

	var out bytes.Buffer
	v.Dump(&out)
	assert.Contains(t, out.String(), "4 virtual pages, 2 physical frames, 64 bytes/page, FIFO")
	assert.Contains(t, out.String(), "Page    0: Valid=1, Frame=   0, Dirty=0, Ref=1, LoadTime=1")

	text := v.Stats().String()
	assert.Contains(t, text, "Page Faults: 1")
	assert.Contains(t, text, "Page Hits: 1")
	assert.Contains(t, text, "Page Fault Rate: 50.00%")
}

func TestFrameBitmap(t *testing.T) {
	b := newFrameBitmap(70)
	for f := range 70 {
		require.Equal(t, f, b.firstFree())
		b.set(f)
	}
	assert.Equal(t, -1, b.firstFree())
	assert.Equal(t, 70, b.used())

	b.unset(65)
	assert.False(t, b.inUse(65))
	assert.Equal(t, 65, b.firstFree())

	b.reset()
	assert.Zero(t, b.used())
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("CLOCK")
	require.NoError(t, err)
	assert.Equal(t, Clock, p)

	_, err = ParsePolicy("lfu")
	require.ErrorIs(t, err, ErrBadPolicy)

	text, err := Clock.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "clock", string(text))
}
