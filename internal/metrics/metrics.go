package metrics

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/efebarandurmaz/framebind/internal/assembler"
	"github.com/efebarandurmaz/framebind/internal/state"
)

// RunMetrics collects statistics for one generation run.
type RunMetrics struct {
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at,omitempty"`
	Duration   time.Duration    `json:"duration_ms,omitempty"`
	Target     string           `json:"target"`
	Libraries  []LibraryMetrics `json:"libraries"`
	Errors     []string         `json:"errors,omitempty"`
}

type LibraryMetrics struct {
	Name         string        `json:"name"`
	LinkName     string        `json:"link_name"`
	Linkage      string        `json:"linkage"`
	Files        int           `json:"files"`
	Statements   int           `json:"statements"`
	Exports      int           `json:"exports"`
	GatedExports int           `json:"gated_exports"`
	CrateExports int           `json:"crate_exports"`
	Capabilities int           `json:"capabilities"`
	Units        int           `json:"units"`
	Bytes        int           `json:"bytes"`
	Added        int           `json:"added"`
	Changed      int           `json:"changed"`
	Pruned       int           `json:"pruned"`
	Duration     time.Duration `json:"duration_ms"`
}

// New starts tracking a run.
func New(target string) *RunMetrics {
	return &RunMetrics{StartedAt: time.Now(), Target: target}
}

// CollectLibrary computes library metrics from the package and the units
// written for it.
func CollectLibrary(name string, p *assembler.Package, units []assembler.Unit, changes state.Changes, pruned int, d time.Duration) LibraryMetrics {
	st := p.Stats()
	lm := LibraryMetrics{
		Name:         name,
		LinkName:     p.LinkName,
		Linkage:      p.Linkage.String(),
		Files:        st.Files,
		Statements:   st.Statements,
		Exports:      st.Exports,
		GatedExports: st.GatedExports,
		CrateExports: st.CrateExports,
		Capabilities: st.Capabilities,
		Units:        len(units),
		Added:        len(changes.Added),
		Changed:      len(changes.Changed),
		Pruned:       pruned,
		Duration:     d,
	}
	for _, u := range units {
		lm.Bytes += len(u.Content)
	}
	return lm
}

// AddLibrary records one library's results.
func (m *RunMetrics) AddLibrary(lm LibraryMetrics) {
	m.Libraries = append(m.Libraries, lm)
}

// AddError records a library that failed.
func (m *RunMetrics) AddError(library string, err error) {
	m.Errors = append(m.Errors, fmt.Sprintf("%s: %v", library, err))
}

// Finish marks the run as complete.
func (m *RunMetrics) Finish() {
	m.FinishedAt = time.Now()
	m.Duration = m.FinishedAt.Sub(m.StartedAt)
}

// Totals sums the per-library figures.
func (m *RunMetrics) Totals() LibraryMetrics {
	var t LibraryMetrics
	t.Name = "total"
	for _, l := range m.Libraries {
		t.Files += l.Files
		t.Statements += l.Statements
		t.Exports += l.Exports
		t.GatedExports += l.GatedExports
		t.CrateExports += l.CrateExports
		t.Units += l.Units
		t.Bytes += l.Bytes
		t.Added += l.Added
		t.Changed += l.Changed
		t.Pruned += l.Pruned
	}
	return t
}

// PrintSummary writes a human-readable summary.
func (m *RunMetrics) PrintSummary(w io.Writer) {
	fmt.Fprintf(w, "\n╔══════════════════════════════════════╗\n")
	fmt.Fprintf(w, "║        FRAMEBIND RUN REPORT          ║\n")
	fmt.Fprintf(w, "╠══════════════════════════════════════╣\n")
	fmt.Fprintf(w, "║ Duration:    %-23s║\n", m.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "║ Target:      %-23s║\n", m.Target)
	fmt.Fprintf(w, "║ Libraries:   %-23d║\n", len(m.Libraries))
	for _, l := range m.Libraries {
		fmt.Fprintf(w, "╠══════════════════════════════════════╣\n")
		fmt.Fprintf(w, "║ %s (link %s, %s)\n", l.Name, l.LinkName, l.Linkage)
		fmt.Fprintf(w, "║   Files:       %d\n", l.Files)
		fmt.Fprintf(w, "║   Statements:  %d\n", l.Statements)
		fmt.Fprintf(w, "║   Exports:     %d (%d gated, %d crate-only)\n", l.Exports, l.GatedExports, l.CrateExports)
		fmt.Fprintf(w, "║   Features:    %d\n", l.Capabilities)
		fmt.Fprintf(w, "║   Units:       %d, %s\n", l.Units, formatBytes(l.Bytes))
		fmt.Fprintf(w, "║   Changes:     +%d ~%d -%d\n", l.Added, l.Changed, l.Pruned)
	}
	if len(m.Errors) > 0 {
		fmt.Fprintf(w, "╠══════════════════════════════════════╣\n")
		fmt.Fprintf(w, "║ ERRORS\n")
		for _, e := range m.Errors {
			fmt.Fprintf(w, "║   • %s\n", e)
		}
	}
	fmt.Fprintf(w, "╚══════════════════════════════════════╝\n")
}

// JSON returns the metrics as formatted JSON.
func (m *RunMetrics) JSON() ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}

func formatBytes(b int) string {
	switch {
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(b)/float64(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(b)/float64(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}
