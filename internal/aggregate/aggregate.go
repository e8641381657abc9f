// Package aggregate builds the run report from verdicts and skip notices.
package aggregate

import (
	"errors"
	"fmt"

	"github.com/roach88/autoverify/internal/ir"
)

// ErrFinalized is returned when adding to a builder after Finalize.
var ErrFinalized = errors.New("aggregate: report already finalized")

// Builder accumulates one run's results. It is not safe for concurrent use;
// the driver hands over a fully materialized verdict slice.
type Builder struct {
	report    ir.RunReport
	seen      map[int]bool
	finalized bool
}

// NewBuilder starts a report for crate. limits are the run's harness defaults.
func NewBuilder(crate string, limits ir.Limits) *Builder {
	return &Builder{
		report: ir.RunReport{
			Version: ir.ReportVersion,
			Crate:   crate,
			Limits:  limits,
			Entries: []ir.Entry{},
			Skipped: []ir.Skip{},
			Manual:  []ir.ManualEntry{},
		},
		seen: make(map[int]bool),
	}
}

// AddEntry records the verdict of a synthesized harness.
func (b *Builder) AddEntry(c ir.Candidate, h ir.Harness, v ir.Verdict) error {
	if b.finalized {
		return ErrFinalized
	}
	if h.Manual || h.CandidateIndex != c.Index {
		return fmt.Errorf("aggregate: harness %s does not belong to candidate %d (%s)", h.Name, c.Index, c.Name)
	}
	if v.HarnessID != h.ID {
		return fmt.Errorf("aggregate: verdict for %s does not reference harness %s", v.HarnessID, h.ID)
	}
	if err := b.claim(c.Index, c.Name); err != nil {
		return err
	}

	b.report.Entries = append(b.report.Entries, ir.Entry{
		Index:     c.Index,
		Crate:     c.Crate,
		Function:  c.Name,
		Class:     c.Class,
		Kind:      h.Kind,
		HarnessID: h.ID,
		Verdict:   v,
	})
	return nil
}

// AddSkip records a discovered candidate that produced no verdict.
func (b *Builder) AddSkip(c ir.Candidate, reason ir.SkipReason, detail string) error {
	if b.finalized {
		return ErrFinalized
	}
	if err := b.claim(c.Index, c.Name); err != nil {
		return err
	}

	b.report.Skipped = append(b.report.Skipped, ir.Skip{
		Index:    c.Index,
		Crate:    c.Crate,
		Function: c.Name,
		Reason:   reason,
		Detail:   detail,
	})
	return nil
}

// AddManual records the verdict of a user-authored harness.
func (b *Builder) AddManual(h ir.Harness, v ir.Verdict) error {
	if b.finalized {
		return ErrFinalized
	}
	if !h.Manual {
		return fmt.Errorf("aggregate: harness %s is not a manual harness", h.Name)
	}

	target := ""
	if h.Kind == ir.KindProofForContract {
		target = h.Target
	}
	b.report.Manual = append(b.report.Manual, ir.ManualEntry{
		Crate:     h.Crate,
		Harness:   h.Name,
		Target:    target,
		Kind:      h.Kind,
		HarnessID: h.ID,
		Verdict:   v,
	})
	return nil
}

// SetCovered records functions excluded from selection by manual harnesses.
func (b *Builder) SetCovered(functions []string) error {
	if b.finalized {
		return ErrFinalized
	}
	b.report.Covered = append([]string(nil), functions...)
	return nil
}

// Finalize sorts results into discovery order, computes counts, and returns
// the report. The builder rejects further additions.
func (b *Builder) Finalize() *ir.RunReport {
	if !b.finalized {
		b.finalized = true
		sortByIndex(b.report.Entries, func(e ir.Entry) int { return e.Index })
		sortByIndex(b.report.Skipped, func(s ir.Skip) int { return s.Index })
		b.report.Counts = count(b.report.Entries, len(b.report.Skipped))
		b.report.ManualCounts = countManual(b.report.Manual)
	}
	r := b.report
	return &r
}

func (b *Builder) claim(index int, name string) error {
	if b.seen[index] {
		return fmt.Errorf("aggregate: candidate %d (%s) already recorded", index, name)
	}
	b.seen[index] = true
	return nil
}

func count(entries []ir.Entry, skipped int) ir.Counts {
	c := ir.Counts{Skipped: skipped}
	for _, e := range entries {
		if e.Verdict.Tag.Succeeded() {
			c.Succeeded++
		} else {
			c.Failed++
		}
	}
	c.Total = c.Succeeded + c.Failed + c.Skipped
	return c
}

func countManual(entries []ir.ManualEntry) ir.Counts {
	var c ir.Counts
	for _, e := range entries {
		if e.Verdict.Tag.Succeeded() {
			c.Succeeded++
		} else {
			c.Failed++
		}
	}
	c.Total = c.Succeeded + c.Failed
	return c
}
