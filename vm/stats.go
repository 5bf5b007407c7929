package vm

import (
	"fmt"
	"strings"
)

// Stats holds the VM counters. Faults + Hits == Total.
type Stats struct {
	Config     Config `json:"config"`
	Faults     uint64 `json:"page_faults"`
	Hits       uint64 `json:"page_hits"`
	Total      uint64 `json:"total_accesses"`
	Evictions  uint64 `json:"evictions"`
	WriteBacks uint64 `json:"write_backs"`
}

// FaultRate is faults/total as a percentage.
func (s Stats) FaultRate() float64 { return rate(s.Faults, s.Total) }

// HitRate is hits/total as a percentage.
func (s Stats) HitRate() float64 { return rate(s.Hits, s.Total) }

func (s Stats) String() string {
	var b strings.Builder
	b.WriteString("=== Virtual Memory Statistics ===\n")
	fmt.Fprintf(&b, "Configuration: %s\n", s.Config)
	fmt.Fprintf(&b, "Page Faults: %d\n", s.Faults)
	fmt.Fprintf(&b, "Page Hits: %d\n", s.Hits)
	fmt.Fprintf(&b, "Total Accesses: %d\n", s.Total)
	fmt.Fprintf(&b, "Evictions: %d\n", s.Evictions)
	fmt.Fprintf(&b, "Write-backs: %d\n", s.WriteBacks)
	fmt.Fprintf(&b, "Page Fault Rate: %.2f%%\n", s.FaultRate())
	fmt.Fprintf(&b, "Page Hit Rate: %.2f%%\n", s.HitRate())
	return b.String()
}

func rate(num, den uint64) float64 {
	if den == 0 {
		return 0
	}
	return 100 * float64(num) / float64(den)
}
