package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/joshuapare/memsim/alloc"
	"github.com/joshuapare/memsim/cache"
	"github.com/joshuapare/memsim/system"
	"github.com/joshuapare/memsim/vm"
)

const ruleWidth = 63

// Snapshot gathers everything the session report shows. Nil component
// stats mean the component is not configured.
type Snapshot struct {
	Session   system.SessionStats   `json:"session"`
	VMEnabled bool                  `json:"vm_enabled"`
	Allocator *alloc.Stats          `json:"allocator,omitempty"`
	Cache     *cache.HierarchyStats `json:"cache,omitempty"`
	VM        *vm.Stats             `json:"vm,omitempty"`
	Recent    []Access              `json:"recent,omitempty"`
}

// Access is the JSON form of a system.AccessResult, error included.
type Access struct {
	system.AccessResult
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// NewAccess wraps res for reporting.
func NewAccess(res system.AccessResult) Access {
	a := Access{AccessResult: res, OK: res.OK()}
	if res.Err != nil {
		a.Error = res.Err.Error()
	}
	return a
}

// Collect snapshots s, keeping the last recent history entries.
func Collect(s *system.System, recent int) Snapshot {
	snap := Snapshot{
		Session:   s.Session(),
		VMEnabled: s.VM() != nil,
	}
	if st, err := s.AllocatorStats(); err == nil {
		snap.Allocator = &st
	}
	if st, err := s.CacheStats(); err == nil {
		snap.Cache = &st
	}
	if st, err := s.VMStats(); err == nil {
		snap.VM = &st
	}
	for _, res := range s.Recent(recent) {
		snap.Recent = append(snap.Recent, NewAccess(res))
	}
	return snap
}

// Report writes the session report, the distribution chart and the recent
// access table. JSON mode writes the whole snapshot.
func (r *Reporter) Report(snap Snapshot) error {
	if r.opts.Format == FormatJSON {
		return r.JSON(snap)
	}
	var b strings.Builder
	r.writeSession(&b, snap)
	b.WriteString("\n")
	r.writeDistribution(&b, snap.Session, snap.VMEnabled)
	if len(snap.Recent) > 0 {
		b.WriteString("\n")
		r.writeRecent(&b, snap.Recent)
	}
	return r.flush(&b)
}

// Session writes the session report followed by the distribution chart.
func (r *Reporter) Session(snap Snapshot) error {
	if r.opts.Format == FormatJSON {
		snap.Recent = nil
		return r.JSON(snap)
	}
	var b strings.Builder
	r.writeSession(&b, snap)
	b.WriteString("\n")
	r.writeDistribution(&b, snap.Session, snap.VMEnabled)
	return r.flush(&b)
}

// Recent writes the recent access table.
func (r *Reporter) Recent(accesses []Access) error {
	if r.opts.Format == FormatJSON {
		if accesses == nil {
			accesses = []Access{}
		}
		return r.JSON(accesses)
	}
	var b strings.Builder
	r.writeRecent(&b, accesses)
	return r.flush(&b)
}

// Access writes the outcome of a single read or write.
func (r *Reporter) Access(res system.AccessResult) error {
	if r.opts.Format == FormatJSON {
		return r.JSON(NewAccess(res))
	}
	line := res.String()
	if !res.OK() {
		line = r.styles.err.Render(line)
	}
	_, err := fmt.Fprintln(r.writer, line)
	return err
}

// Bar renders pct (0..100) as a width-cell bar of █ and ░.
func Bar(pct float64, width int) string {
	pct = min(max(pct, 0), 100)
	filled := int(pct / 100 * float64(width))
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func (r *Reporter) flush(b *strings.Builder) error {
	_, err := io.WriteString(r.writer, b.String())
	return err
}

func (r *Reporter) heavyRule() string { return r.styles.rule.Render(strings.Repeat("═", ruleWidth)) }
func (r *Reporter) lightRule() string { return r.styles.rule.Render(strings.Repeat("─", ruleWidth)) }

func (r *Reporter) heading(b *strings.Builder, title string) {
	b.WriteString(r.styles.section.Render(title))
	b.WriteString("\n")
	b.WriteString(r.lightRule())
	b.WriteString("\n")
}

func (r *Reporter) countLine(b *strings.Builder, label string, n uint64) {
	fmt.Fprintf(b, "  %-20s%10s\n", label+":", r.Count(n))
}

func (r *Reporter) rateLine(b *strings.Builder, label string, n uint64, pct float64) {
	fmt.Fprintf(b, "  %-20s%10s  (%.1f%%)\n", label+":", r.Count(n), pct)
}

func (r *Reporter) writeSession(b *strings.Builder, snap Snapshot) {
	s := snap.Session

	b.WriteString(r.heavyRule())
	b.WriteString("\n")
	b.WriteString(r.styles.title.Render(fmt.Sprintf("%37s", "SESSION REPORT")))
	b.WriteString("\n")
	b.WriteString(r.heavyRule())
	b.WriteString("\n\n")

	r.heading(b, "Access Summary:")
	r.countLine(b, "Total Accesses", s.Accesses)
	r.countLine(b, "Total Reads", s.Reads)
	r.countLine(b, "Total Writes", s.Writes)
	if s.Failed > 0 {
		r.countLine(b, "Failed", s.Failed)
	}
	b.WriteString("\n")

	r.heading(b, "Access Distribution (Current Session):")
	r.rateLine(b, "L1 Cache Hits", s.L1Hits, s.L1HitRate())
	r.rateLine(b, "L2 Cache Hits", s.L2Hits, s.L2HitRate())
	r.rateLine(b, "Memory Accesses", s.MemoryAccesses, s.MemoryAccessRate())
	if snap.VMEnabled {
		r.rateLine(b, "Page Faults", s.PageFaults, s.PageFaultRate())
	}
	b.WriteString("\n")

	if c := snap.Cache; c != nil {
		r.heading(b, "Cache Hierarchy (Cumulative):")
		fmt.Fprintf(b, "  L1: %s hits, %s misses (%.1f%% hit ratio)\n",
			r.Count(c.L1.Hits), r.Count(c.L1.Misses), c.L1.HitRatio())
		fmt.Fprintf(b, "  L2: %s hits, %s misses (%.1f%% hit ratio)\n",
			r.Count(c.L2.Hits), r.Count(c.L2.Misses), c.L2.HitRatio())
		fmt.Fprintf(b, "  Overall: %.1f%% hit ratio\n\n", c.OverallHitRatio())
	}

	if v := snap.VM; v != nil {
		r.heading(b, "Virtual Memory (Cumulative):")
		fmt.Fprintf(b, "  %-20s%s\n", "Page Faults:", r.Count(v.Faults))
		fmt.Fprintf(b, "  %-20s%s\n", "Page Hits:", r.Count(v.Hits))
		fmt.Fprintf(b, "  %-20s%.1f%%\n\n", "Page Fault Rate:", v.FaultRate())
	}

	if a := snap.Allocator; a != nil {
		r.heading(b, "Memory Allocator:")
		fmt.Fprintf(b, "  %-20s%s\n", "Strategy:", a.Strategy.DisplayName())
		fmt.Fprintf(b, "  %-20s%.1f%%\n", "Utilization:", a.Utilization)
		fmt.Fprintf(b, "  %-20s%.1f%%\n", "Internal Frag:", a.InternalFragmentation)
		fmt.Fprintf(b, "  %-20s%.1f%%\n", "External Frag:", a.ExternalFragmentation)
	}

	b.WriteString(r.heavyRule())
	b.WriteString("\n")
}

func (r *Reporter) writeDistribution(b *strings.Builder, s system.SessionStats, vmEnabled bool) {
	b.WriteString(r.styles.section.Render("Access Distribution:"))
	b.WriteString("\n\n")

	if s.Accesses == 0 {
		b.WriteString("  No accesses recorded yet.\n")
		return
	}

	row := func(style lipgloss.Style, label string, pct float64, n uint64) {
		fmt.Fprintf(b, "  %s %-12s%s %5.1f%%  (%s)\n",
			style.Render("█"), label, style.Render(Bar(pct, r.opts.BarWidth)), pct, r.Count(n))
	}
	row(r.styles.l1, "L1 Cache", s.L1HitRate(), s.L1Hits)
	row(r.styles.l2, "L2 Cache", s.L2HitRate(), s.L2Hits)
	row(r.styles.memory, "Memory", s.MemoryAccessRate(), s.MemoryAccesses)
	if vmEnabled && s.PageFaults > 0 {
		row(r.styles.fault, "Page Faults", s.PageFaultRate(), s.PageFaults)
	}

	fmt.Fprintf(b, "\nTotal Accesses: %s (Reads: %s, Writes: %s)\n",
		r.Count(s.Accesses), r.Count(s.Reads), r.Count(s.Writes))
}

func (r *Reporter) writeRecent(b *strings.Builder, accesses []Access) {
	fmt.Fprintf(b, "%s\n", r.styles.section.Render(fmt.Sprintf("Recent Accesses (last %d):", len(accesses))))

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("Address", "Op", "Status", "Level", "Value")
	for _, a := range accesses {
		status, level, value := "SUCCESS", a.Level.String(), fmt.Sprintf("0x%02x", a.Value)
		if !a.OK {
			status, level, value = "FAIL", "-", "-"
		}
		t.Row(fmt.Sprintf("0x%06x", a.VirtualAddr), a.Op.String(), status, level, value)
	}
	b.WriteString(t.String())
	b.WriteString("\n")
}
