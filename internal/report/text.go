// Package report renders a finalized run report.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/roach88/autoverify/internal/ir"
)

// Fixed report sentences.
const (
	NoCandidatesMessage = "No functions were eligible for automatic verification."
	NoManualMessage     = "No proof harnesses were found to verify."
)

// Options controls text rendering.
type Options struct {
	// Verbose adds wall-clock cost to verdict lines. Costs vary between runs,
	// so verbose output is not reproducible.
	Verbose bool
}

// Text writes the human-readable report. Without Verbose the output is a
// pure function of the report's identity fields.
func Text(w io.Writer, r *ir.RunReport, opts Options) error {
	var b strings.Builder

	writeCandidates(&b, r)
	writeSkipped(&b, r)
	writeVerdicts(&b, r, opts)
	writeManual(&b, r, opts)
	writeSummary(&b, r)

	_, err := io.WriteString(w, b.String())
	return err
}

func writeCandidates(b *strings.Builder, r *ir.RunReport) {
	if r.NoCandidates() {
		fmt.Fprintf(b, "%s\n\n", NoCandidatesMessage)
		return
	}
	rows := make([][]string, len(r.Entries))
	for i, e := range r.Entries {
		rows[i] = []string{e.Crate, e.Function}
	}
	fmt.Fprintf(b, "Selected %d function(s) for automatic verification:\n", len(r.Entries))
	fmt.Fprintf(b, "%s\n\n", render([]string{"Crate", "Selected Function"}, rows))
}

func writeSkipped(b *strings.Builder, r *ir.RunReport) {
	if len(r.Skipped) == 0 && len(r.Covered) == 0 {
		return
	}
	rows := make([][]string, 0, len(r.Skipped)+len(r.Covered))
	for _, s := range r.Skipped {
		reason := s.Reason.Describe()
		if s.Detail != "" {
			reason += ": " + s.Detail
		}
		rows = append(rows, []string{s.Crate, s.Function, reason})
	}
	for _, fn := range r.Covered {
		rows = append(rows, []string{r.Crate, fn, "Covered by a manual harness"})
	}
	fmt.Fprintf(b, "Skipped %d function(s):\n", len(rows))
	fmt.Fprintf(b, "%s\n\n", render([]string{"Crate", "Skipped Function", "Reason for Skipping"}, rows))
}

func writeVerdicts(b *strings.Builder, r *ir.RunReport, opts Options) {
	if r.NoCandidates() {
		return
	}
	b.WriteString("Verification results:\n")
	for _, e := range r.Entries {
		writeVerdictLine(b, e.Function, e.Kind, e.Verdict, opts)
	}
	b.WriteString("\n")
}

func writeVerdictLine(b *strings.Builder, name string, kind ir.HarnessKind, v ir.Verdict, opts Options) {
	fmt.Fprintf(b, "  %s (%s): %s", name, kind, v.Tag)
	if opts.Verbose {
		fmt.Fprintf(b, " [%s]", v.Duration)
	}
	b.WriteString("\n")
	if v.Property != "" {
		fmt.Fprintf(b, "    %s: %s\n", propertyLabel(v.Tag), v.Property)
	}
}

func propertyLabel(tag ir.VerdictTag) string {
	switch tag {
	case ir.VerdictSuccess:
		return "satisfied"
	case ir.VerdictFailure:
		return "violated"
	case ir.VerdictTimeout:
		return "timeout"
	default:
		return "fault"
	}
}

func writeManual(b *strings.Builder, r *ir.RunReport, opts Options) {
	b.WriteString("Manual Harness Summary:\n")
	if len(r.Manual) == 0 {
		fmt.Fprintf(b, "%s\n\n", NoManualMessage)
		return
	}
	rows := make([][]string, len(r.Manual))
	for i, m := range r.Manual {
		target := m.Target
		if target == "" {
			target = "-"
		}
		rows[i] = []string{m.Crate, m.Harness, target, string(m.Kind), string(m.Verdict.Tag)}
	}
	fmt.Fprintf(b, "%s\n", render([]string{"Crate", "Harness", "Target", "Kind", "Result"}, rows))
	for _, m := range r.Manual {
		if !m.Verdict.Tag.Succeeded() {
			writeVerdictLine(b, m.Harness, m.Kind, m.Verdict, opts)
		}
	}
	c := r.ManualCounts
	fmt.Fprintf(b, "Manual harnesses: %d succeeded, %d failed, %d total.\n\n", c.Succeeded, c.Failed, c.Total)
}

func writeSummary(b *strings.Builder, r *ir.RunReport) {
	if !r.NoCandidates() {
		rows := make([][]string, len(r.Entries))
		for i, e := range r.Entries {
			rows[i] = []string{e.Crate, e.Function, string(e.Kind), string(e.Verdict.Tag)}
		}
		b.WriteString("Autoharness Summary:\n")
		fmt.Fprintf(b, "%s\n", render([]string{"Crate", "Selected Function", "Kind of Automatic Harness", "Verification Result"}, rows))
	}

	fmt.Fprintf(b, "%s\n", CountLine(r.Counts))

	if r.NeedsAdvisory() {
		fmt.Fprintf(b, "\n%s\n", Advisory(r.Limits))
	}
}

// CountLine is the one-line autoharness summary.
func CountLine(c ir.Counts) string {
	return fmt.Sprintf("%d successfully verified functions, %d failures, %d total.", c.Succeeded, c.Failed, c.Total)
}

// Advisory explains how the harness defaults can cause failures and timeouts.
func Advisory(l ir.Limits) string {
	unwind := fmt.Sprintf("an unwinding bound of %d", l.Unwind)
	if l.Unwind == 0 {
		unwind = "no fixed unwinding bound"
	}
	return fmt.Sprintf("Note: automatic harnesses run with a %s timeout and %s. "+
		"A timeout or failure may come from these limits rather than from the function; "+
		"raise them with --harness-timeout and --default-unwind, or write a manual harness.",
		l.Timeout, unwind)
}

func render(headers []string, rows [][]string) string {
	cell := lipgloss.NewStyle().Padding(0, 1)
	return table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, col int) lipgloss.Style { return cell }).
		Headers(headers...).
		Rows(rows...).
		String()
}
