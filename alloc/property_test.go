package alloc

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/memsim/physmem"
)

// TestProperty_RandomAllocFree runs random allocate/free sequences against every
// strategy and checks the invariants after each step.
func TestProperty_RandomAllocFree(t *testing.T) {
	for _, kind := range []Kind{FirstFit, BestFit, WorstFit, Buddy} {
		t.Run(kind.String(), func(t *testing.T) {
			mem, err := physmem.New(4096)
			require.NoError(t, err)
			a, err := New(mem, kind, WithMinBlockSize(16))
			require.NoError(t, err)

			rng := rand.New(rand.NewSource(42)) // Fixed seed for reproducibility
			var live []BlockID

			for i := range 500 {
				if len(live) == 0 || rng.Intn(3) != 0 {
					size := uint64(1 + rng.Intn(300))
					id, allocErr := a.Allocate(size)
					if allocErr == nil {
						live = append(live, id)
					} else {
						require.ErrorIs(t, allocErr, ErrOutOfMemory, "step %d", i)
					}
				} else {
					j := rng.Intn(len(live))
					require.NoError(t, a.Deallocate(live[j]), "step %d", i)
					live[j] = live[len(live)-1]
					live = live[:len(live)-1]
				}

				assertInvariants(t, a, mem)
				switch impl := a.(type) {
				case *Standard:
					assertNoAdjacentFree(t, impl)
				case *BuddyAllocator:
					assertBuddyAligned(t, impl)
				}
			}

			for _, id := range live {
				require.NoError(t, a.Deallocate(id))
			}
			blocks := a.Blocks()
			require.Len(t, blocks, 1, "everything should merge back once all blocks are freed")
			require.Zero(t, mem.UsedSize())
		})
	}
}
