package system

import "fmt"

// Level is where an access was served from.
type Level uint8

const (
	LevelL1 Level = iota + 1
	LevelL2
	LevelMemory
	LevelPageFault
)

func (l Level) String() string {
	switch l {
	case LevelL1:
		return "L1 Cache"
	case LevelL2:
		return "L2 Cache"
	case LevelMemory:
		return "Memory"
	case LevelPageFault:
		return "Page Fault"
	default:
		return "Unknown"
	}
}

// MarshalText implements encoding.TextMarshaler for JSON reports.
func (l Level) MarshalText() ([]byte, error) { return []byte(l.String()), nil }

// Op is the kind of access.
type Op uint8

const (
	OpRead Op = iota + 1
	OpWrite
)

func (o Op) String() string {
	if o == OpWrite {
		return "WRITE"
	}
	return "READ"
}

// MarshalText implements encoding.TextMarshaler for JSON reports.
func (o Op) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

// AccessResult describes one Read or Write.
type AccessResult struct {
	Op           Op     `json:"op"`
	VirtualAddr  uint64 `json:"virtual_address"`
	PhysicalAddr uint64 `json:"physical_address"`
	Value        byte   `json:"value"`

	// Level is LevelPageFault when translation faulted, otherwise Served.
	Level Level `json:"level"`
	// Served is the cache level or memory that supplied the byte.
	Served    Level `json:"served"`
	PageFault bool  `json:"page_fault"`
	UsedVM    bool  `json:"used_vm"`

	Err error `json:"-"`
}

// OK reports whether the access succeeded.
func (r AccessResult) OK() bool { return r.Err == nil }

func (r AccessResult) String() string {
	if r.Err != nil {
		return fmt.Sprintf("%-5s [0x%08x] -> FAIL (%v)", r.Op, r.VirtualAddr, r.Err)
	}
	return fmt.Sprintf("%-5s [0x%08x] -> %-12s (value: 0x%02x)", r.Op, r.VirtualAddr, r.Level, r.Value)
}

// SessionStats counts accesses since the last ResetSession.
// L1Hits + L2Hits + MemoryAccesses == Accesses - Failed.
type SessionStats struct {
	Accesses       uint64 `json:"total_accesses"`
	Reads          uint64 `json:"total_reads"`
	Writes         uint64 `json:"total_writes"`
	Failed         uint64 `json:"failed"`
	L1Hits         uint64 `json:"l1_hits"`
	L2Hits         uint64 `json:"l2_hits"`
	MemoryAccesses uint64 `json:"memory_accesses"`
	PageFaults     uint64 `json:"page_faults"`
}

// L1HitRate is L1 hits as a percentage of all accesses.
func (s SessionStats) L1HitRate() float64 { return pct(s.L1Hits, s.Accesses) }

// L2HitRate is L2 hits as a percentage of all accesses.
func (s SessionStats) L2HitRate() float64 { return pct(s.L2Hits, s.Accesses) }

// MemoryAccessRate is memory accesses as a percentage of all accesses.
func (s SessionStats) MemoryAccessRate() float64 { return pct(s.MemoryAccesses, s.Accesses) }

// PageFaultRate is page faults as a percentage of all accesses.
func (s SessionStats) PageFaultRate() float64 { return pct(s.PageFaults, s.Accesses) }

func pct(num, den uint64) float64 {
	if den == 0 {
		return 0
	}
	return 100 * float64(num) / float64(den)
}
