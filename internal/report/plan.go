package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/roach88/autoverify/internal/ir"
)

// PlanEntry is one harness that a run would execute.
type PlanEntry struct {
	Crate    string
	Function string
	Harness  string
	Kind     ir.HarnessKind
	Unwind   int

	// Problem is set for a manual harness that cannot run.
	Problem string
}

// Plan is the dry-run view of a unit: what would run and what would not.
type Plan struct {
	Crate   string
	Limits  ir.Limits
	Auto    []PlanEntry
	Skipped []ir.Skip
	Covered []string
	Manual  []PlanEntry
}

// PlanText writes the plan with the same section headings as a run report.
func PlanText(w io.Writer, p Plan) error {
	var b strings.Builder

	if len(p.Auto) == 0 {
		fmt.Fprintf(&b, "%s\n\n", NoCandidatesMessage)
	} else {
		rows := make([][]string, len(p.Auto))
		for i, e := range p.Auto {
			rows[i] = []string{e.Crate, e.Function, e.Harness, string(e.Kind), unwindCell(e.Unwind)}
		}
		fmt.Fprintf(&b, "Selected %d function(s) for automatic verification:\n", len(p.Auto))
		fmt.Fprintf(&b, "%s\n\n", render([]string{"Crate", "Selected Function", "Harness", "Kind", "Unwind"}, rows))
	}

	// Skips render exactly as in a run report.
	writeSkipped(&b, &ir.RunReport{Crate: p.Crate, Skipped: p.Skipped, Covered: p.Covered})

	b.WriteString("Manual Harness Summary:\n")
	if len(p.Manual) == 0 {
		fmt.Fprintf(&b, "%s\n\n", NoManualMessage)
	} else {
		rows := make([][]string, len(p.Manual))
		for i, m := range p.Manual {
			target := m.Function
			if m.Kind != ir.KindProofForContract {
				target = "-"
			}
			status := "ready"
			if m.Problem != "" {
				status = m.Problem
			}
			rows[i] = []string{m.Crate, m.Harness, target, string(m.Kind), status}
		}
		fmt.Fprintf(&b, "%s\n\n", render([]string{"Crate", "Harness", "Target", "Kind", "Status"}, rows))
	}

	fmt.Fprintf(&b, "%d automatic and %d manual harness(es) would run with a %s timeout.\n",
		len(p.Auto), runnable(p.Manual), p.Limits.Timeout)

	_, err := io.WriteString(w, b.String())
	return err
}

func unwindCell(n int) string {
	if n == 0 {
		return "-"
	}
	return strconv.Itoa(n)
}

func runnable(entries []PlanEntry) int {
	n := 0
	for _, e := range entries {
		if e.Problem == "" {
			n++
		}
	}
	return n
}
