package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/autoverify/internal/ir"
)

func newGoldie(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func sixCandidateReport() *ir.RunReport {
	entries := []ir.Entry{
		{Index: 0, Crate: "fixtures", Function: "max", Class: ir.ClassContract, Kind: ir.KindProofForContract,
			Verdict: ir.Verdict{Tag: ir.VerdictFailure, Property: "result == x", Duration: 2 * time.Second}},
		{Index: 1, Crate: "fixtures", Function: "alignment::as_usize", Class: ir.ClassContract, Kind: ir.KindProofForContract,
			Verdict: ir.Verdict{Tag: ir.VerdictSuccess, Property: "result.is_power_of_two()"}},
		{Index: 2, Crate: "fixtures", Function: "div", Class: ir.ClassContract, Kind: ir.KindProofForContract,
			Verdict: ir.Verdict{Tag: ir.VerdictSuccess, Property: "result <= x"}},
		{Index: 3, Crate: "fixtures", Function: "has_loop_contract", Class: ir.ClassLoopContract, Kind: ir.KindProof,
			Verdict: ir.Verdict{Tag: ir.VerdictSuccess, Property: "x >= 2"}},
		{Index: 4, Crate: "fixtures", Function: "has_recursion_gcd", Class: ir.ClassRecursive, Kind: ir.KindProof,
			Verdict: ir.Verdict{Tag: ir.VerdictSuccess}},
		{Index: 5, Crate: "fixtures", Function: "unchecked_mul", Class: ir.ClassPlainProof, Kind: ir.KindProof,
			Verdict: ir.Verdict{Tag: ir.VerdictSuccess, Property: "a.checked_mul(b).is_some()"}},
	}
	return &ir.RunReport{
		Version:      ir.ReportVersion,
		Crate:        "fixtures",
		Limits:       ir.DefaultLimits(),
		Entries:      entries,
		Skipped:      []ir.Skip{},
		Manual:       []ir.ManualEntry{},
		Counts:       ir.Counts{Total: 6, Succeeded: 5, Failed: 1},
		ManualCounts: ir.Counts{},
	}
}

func TestTextSixCandidates(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Text(&buf, sixCandidateReport(), Options{}))
	out := buf.String()

	assert.Contains(t, out, "Selected 6 function(s) for automatic verification:")
	for _, fn := range []string{"max", "alignment::as_usize", "div", "has_loop_contract", "has_recursion_gcd", "unchecked_mul"} {
		assert.Contains(t, out, fn)
	}
	assert.Contains(t, out, "  max (ProofForContract): Failure\n    violated: result == x\n")
	assert.Contains(t, out, "  div (ProofForContract): Success\n    satisfied: result <= x\n")
	assert.Contains(t, out, "  has_recursion_gcd (Proof): Success\n  unchecked_mul")
	assert.Contains(t, out, "Manual Harness Summary:\n"+NoManualMessage+"\n")
	assert.Contains(t, out, "Autoharness Summary:")
	assert.Contains(t, out, "Kind of Automatic Harness")
	assert.Contains(t, out, "\n5 successfully verified functions, 1 failures, 6 total.\n")
	assert.Contains(t, out, "Note: automatic harnesses run with a 1m0s timeout and an unwinding bound of 20.")
	assert.NotContains(t, out, "2s]", "durations only appear in verbose mode")
	assert.NotContains(t, out, "Skipped")

	newGoldie(t).Assert(t, "six_candidates", buf.Bytes())
}

func TestTextIsReproducible(t *testing.T) {
	var a, b bytes.Buffer
	require.NoError(t, Text(&a, sixCandidateReport(), Options{}))

	r := sixCandidateReport()
	r.Entries[0].Verdict.Duration = time.Hour
	require.NoError(t, Text(&b, r, Options{}))

	assert.Equal(t, a.String(), b.String())
}

func TestTextVerboseShowsDuration(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Text(&buf, sixCandidateReport(), Options{Verbose: true}))
	assert.Contains(t, buf.String(), "  max (ProofForContract): Failure [2s]\n")
}

func TestTextSectionOrder(t *testing.T) {
	r := sixCandidateReport()
	r.Entries = r.Entries[:2]
	r.Skipped = []ir.Skip{{Index: 2, Crate: "fixtures", Function: "raw", Reason: ir.SkipUnsupportedType, Detail: "parameter p: raw pointer *const u8 is not supported"}}
	r.Covered = []string{"div"}
	r.Counts = ir.Counts{Total: 3, Succeeded: 1, Failed: 1, Skipped: 1}

	var buf bytes.Buffer
	require.NoError(t, Text(&buf, r, Options{}))
	out := buf.String()

	order := []string{
		"Selected 2 function(s)",
		"Skipped 2 function(s):",
		"Unsupported argument type(s): parameter p: raw pointer *const u8 is not supported",
		"Covered by a manual harness",
		"Verification results:",
		"Manual Harness Summary:",
		"Autoharness Summary:",
		"1 successfully verified functions, 1 failures, 3 total.",
	}
	last := -1
	for _, s := range order {
		idx := bytes.Index(buf.Bytes(), []byte(s))
		require.GreaterOrEqual(t, idx, 0, "missing %q in:\n%s", s, out)
		assert.Greater(t, idx, last, "%q out of order", s)
		last = idx
	}
}

func TestTextManualHarnesses(t *testing.T) {
	r := sixCandidateReport()
	r.Manual = []ir.ManualEntry{
		{Crate: "fixtures", Harness: "check_div", Target: "div", Kind: ir.KindProofForContract, Verdict: ir.Verdict{Tag: ir.VerdictSuccess}},
		{Crate: "fixtures", Harness: "check_sum", Kind: ir.KindProof, Verdict: ir.Verdict{Tag: ir.VerdictTimeout, Property: "harness exceeded time bound of 1m0s"}},
	}
	r.ManualCounts = ir.Counts{Total: 2, Succeeded: 1, Failed: 1}

	var buf bytes.Buffer
	require.NoError(t, Text(&buf, r, Options{}))
	out := buf.String()

	assert.NotContains(t, out, NoManualMessage)
	assert.Contains(t, out, "check_div")
	assert.Contains(t, out, "  check_sum (Proof): Timeout\n    timeout: harness exceeded time bound of 1m0s\n")
	assert.Contains(t, out, "Manual harnesses: 1 succeeded, 1 failed, 2 total.")
}

func TestTextNoCandidates(t *testing.T) {
	r := &ir.RunReport{
		Version: ir.ReportVersion,
		Crate:   "empty",
		Limits:  ir.DefaultLimits(),
		Entries: []ir.Entry{},
		Skipped: []ir.Skip{},
		Manual:  []ir.ManualEntry{},
	}

	var buf bytes.Buffer
	require.NoError(t, Text(&buf, r, Options{}))

	g := newGoldie(t)
	g.Assert(t, "no_candidates", buf.Bytes())
}

func TestTextErrorOnlyHasNoAdvisory(t *testing.T) {
	r := sixCandidateReport()
	r.Entries = r.Entries[1:2]
	r.Entries[0].Verdict = ir.Verdict{Tag: ir.VerdictError, Property: "solver crashed"}
	r.Counts = ir.Counts{Total: 1, Failed: 1}

	var buf bytes.Buffer
	require.NoError(t, Text(&buf, r, Options{}))
	assert.Contains(t, buf.String(), "    fault: solver crashed\n")
	assert.NotContains(t, buf.String(), "Note:")
}

func TestAdvisoryUnboundedUnwind(t *testing.T) {
	assert.Contains(t, Advisory(ir.Limits{Timeout: 30 * time.Second}), "30s timeout and no fixed unwinding bound")
}
