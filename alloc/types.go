package alloc

import (
	"fmt"
	"strings"
)

// BlockInfo is a read-only view of one block.
type BlockInfo struct {
	ID        BlockID // 0 for free blocks
	Addr      uint64
	Size      uint64
	Requested uint64 // bytes asked for; 0 for free blocks
	Free      bool
}

// End returns the first address past the block.
func (b BlockInfo) End() uint64 { return b.Addr + b.Size }

// Stats is a snapshot of allocator state and lifetime counters.
type Stats struct {
	Strategy Kind `json:"strategy"`

	TotalBytes uint64 `json:"total_bytes"`
	UsedBytes  uint64 `json:"used_bytes"`
	FreeBytes  uint64 `json:"free_bytes"`

	AllocatedBlocks int    `json:"allocated_blocks"`
	FreeBlocks      int    `json:"free_blocks"`
	LargestFree     uint64 `json:"largest_free"`

	Allocations       uint64 `json:"allocations"` // Allocate calls, successful or not
	FailedAllocations uint64 `json:"failed_allocations"`
	Deallocations     uint64 `json:"deallocations"` // successful releases

	Utilization           float64 `json:"utilization"` // percent
	InternalFragmentation float64 `json:"internal_fragmentation"`
	ExternalFragmentation float64 `json:"external_fragmentation"`

	// Buddy only
	MinBlockSize uint64 `json:"min_block_size,omitempty"`
	MaxBlockSize uint64 `json:"max_block_size,omitempty"`
}

// SuccessRate is the percentage of Allocate calls that succeeded.
func (s Stats) SuccessRate() float64 {
	if s.Allocations == 0 {
		return 0
	}
	return 100 * float64(s.Allocations-s.FailedAllocations) / float64(s.Allocations)
}

// String renders the stats as the multi-line report printed by the shell.
func (s Stats) String() string {
	var b strings.Builder

	if s.Strategy == Buddy {
		b.WriteString("=== Buddy Allocator Statistics ===\n")
	} else {
		b.WriteString("=== Allocator Statistics ===\n")
	}
	fmt.Fprintf(&b, "Strategy: %s\n", s.Strategy.DisplayName())
	if s.Strategy == Buddy {
		fmt.Fprintf(&b, "Min block size: %d bytes\n", s.MinBlockSize)
		fmt.Fprintf(&b, "Max block size: %d bytes\n", s.MaxBlockSize)
	}

	fmt.Fprintf(&b, "\nTotal memory: %d bytes\n", s.TotalBytes)
	fmt.Fprintf(&b, "Used memory: %d bytes\n", s.UsedBytes)
	fmt.Fprintf(&b, "Free memory: %d bytes\n", s.FreeBytes)
	fmt.Fprintf(&b, "Utilization: %.2f%%\n", s.Utilization)

	fmt.Fprintf(&b, "\nAllocated blocks: %d\n", s.AllocatedBlocks)
	fmt.Fprintf(&b, "Free blocks: %d\n", s.FreeBlocks)
	fmt.Fprintf(&b, "Largest free block: %d bytes\n", s.LargestFree)

	fmt.Fprintf(&b, "\nTotal allocations: %d\n", s.Allocations)
	fmt.Fprintf(&b, "Failed allocations: %d\n", s.FailedAllocations)
	fmt.Fprintf(&b, "Total deallocations: %d\n", s.Deallocations)
	fmt.Fprintf(&b, "Success rate: %.2f%%\n", s.SuccessRate())

	fmt.Fprintf(&b, "\nInternal fragmentation: %.2f%%\n", s.InternalFragmentation)
	fmt.Fprintf(&b, "External fragmentation: %.2f%%\n", s.ExternalFragmentation)
	return b.String()
}

// counters holds lifetime operation counts shared by both allocators.
type counters struct {
	allocations   uint64
	failed        uint64
	deallocations uint64
}

// percent returns 100*num/den, or 0 when den is zero.
func percent(num, den uint64) float64 {
	if den == 0 {
		return 0
	}
	return 100 * float64(num) / float64(den)
}

// internalFragmentation computes (allocated - requested) / allocated over live blocks.
func internalFragmentation(blocks []BlockInfo) float64 {
	var allocated, requested uint64
	for _, b := range blocks {
		if b.Free || b.Requested == 0 {
			continue
		}
		allocated += b.Size
		requested += b.Requested
	}
	return percent(allocated-requested, allocated)
}

// externalFragmentation computes (totalFree - largestFree) / totalFree.
func externalFragmentation(totalFree, largestFree uint64) float64 {
	return percent(totalFree-largestFree, totalFree)
}
