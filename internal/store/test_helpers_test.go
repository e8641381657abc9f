package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/autoverify/internal/ir"
)

// createTestStore creates a new store in a temp directory for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestReport creates a finalized report with one entry of each kind.
func createTestReport(crate string) *ir.RunReport {
	return &ir.RunReport{
		Version: ir.ReportVersion,
		Crate:   crate,
		Limits:  ir.DefaultLimits(),
		Entries: []ir.Entry{
			{Index: 0, Crate: crate, Function: "max", Class: ir.ClassContract, Kind: ir.KindProofForContract, HarnessID: "h0",
				Verdict: ir.Verdict{HarnessID: "h0", Tag: ir.VerdictFailure, Property: "result == x", Duration: 1500 * time.Millisecond}},
			{Index: 2, Crate: crate, Function: "div", Class: ir.ClassContract, Kind: ir.KindProofForContract, HarnessID: "h2",
				Verdict: ir.Verdict{HarnessID: "h2", Tag: ir.VerdictSuccess, Property: "result <= x"}},
		},
		Skipped: []ir.Skip{
			{Index: 1, Crate: crate, Function: "raw", Reason: ir.SkipUnsupportedType, Detail: "parameter p: raw pointer *const u8 is not supported"},
		},
		Manual: []ir.ManualEntry{
			{Crate: crate, Harness: "check_mul", Target: "mul", Kind: ir.KindProofForContract, HarnessID: "m0",
				Verdict: ir.Verdict{HarnessID: "m0", Tag: ir.VerdictSuccess}},
		},
		Covered:      []string{"mul"},
		Counts:       ir.Counts{Total: 3, Succeeded: 1, Failed: 1, Skipped: 1},
		ManualCounts: ir.Counts{Total: 1, Succeeded: 1},
	}
}
