package cache

import (
	"fmt"
	"strings"
)

// LevelStats holds one level's counters. Hits + Misses == Accesses.
type LevelStats struct {
	Level    int    `json:"level"`
	Config   Config `json:"config"`
	Hits     uint64 `json:"hits"`
	Misses   uint64 `json:"misses"`
	Accesses uint64 `json:"accesses"`
}

// HitRatio is hits/accesses as a percentage.
func (s LevelStats) HitRatio() float64 { return ratio(s.Hits, s.Accesses) }

// MissRatio is misses/accesses as a percentage.
func (s LevelStats) MissRatio() float64 { return ratio(s.Misses, s.Accesses) }

func (s LevelStats) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "=== L%d Cache Statistics ===\n", s.Level)
	fmt.Fprintf(&b, "Configuration: %s\n", s.Config)
	fmt.Fprintf(&b, "Hits: %d\n", s.Hits)
	fmt.Fprintf(&b, "Misses: %d\n", s.Misses)
	fmt.Fprintf(&b, "Total Accesses: %d\n", s.Accesses)
	fmt.Fprintf(&b, "Hit Ratio: %.2f%%\n", s.HitRatio())
	fmt.Fprintf(&b, "Miss Ratio: %.2f%%\n", s.MissRatio())
	return b.String()
}

// HierarchyStats aggregates both levels.
type HierarchyStats struct {
	L1 LevelStats `json:"l1"`
	L2 LevelStats `json:"l2"`

	// TotalAccesses is L1.Accesses + L2.Accesses, backfills included.
	TotalAccesses uint64 `json:"total_accesses"`

	// MemoryAccesses counts reads that missed both levels.
	MemoryAccesses uint64 `json:"memory_accesses"`

	// Requests counts Read and Write calls on the hierarchy.
	Requests uint64 `json:"requests"`
}

// OverallHitRatio is (L1 hits + L2 hits) / (L1 accesses + L2 accesses) as a percentage.
func (s HierarchyStats) OverallHitRatio() float64 {
	return ratio(s.L1.Hits+s.L2.Hits, s.TotalAccesses)
}

func (s HierarchyStats) String() string {
	var b strings.Builder
	b.WriteString("=== Cache Hierarchy Statistics ===\n\n")
	b.WriteString(s.L1.String())
	b.WriteString("\n")
	b.WriteString(s.L2.String())
	b.WriteString("\n")
	b.WriteString("=== Overall Statistics ===\n")
	fmt.Fprintf(&b, "Requests: %d\n", s.Requests)
	fmt.Fprintf(&b, "Total Accesses: %d\n", s.TotalAccesses)
	fmt.Fprintf(&b, "L1 Hits: %d\n", s.L1.Hits)
	fmt.Fprintf(&b, "L2 Hits: %d\n", s.L2.Hits)
	fmt.Fprintf(&b, "Memory Accesses: %d\n", s.MemoryAccesses)
	fmt.Fprintf(&b, "Overall Hit Ratio: %.2f%%\n", s.OverallHitRatio())
	return b.String()
}

func ratio(num, den uint64) float64 {
	if den == 0 {
		return 0
	}
	return 100 * float64(num) / float64(den)
}
