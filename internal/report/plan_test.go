package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/autoverify/internal/ir"
)

func TestPlanText(t *testing.T) {
	p := Plan{
		Crate:  "mixed",
		Limits: ir.DefaultLimits(),
		Auto: []PlanEntry{
			{Crate: "mixed", Function: "negate", Harness: "autoharness_negate", Kind: ir.KindProof, Unwind: 20},
			{Crate: "mixed", Function: "sum", Harness: "autoharness_sum", Kind: ir.KindProof},
		},
		Skipped: []ir.Skip{{Index: 0, Crate: "mixed", Function: "parse", Reason: ir.SkipUnsupportedType, Detail: "parameter s: str is not supported"}},
		Covered: []string{"checked_add"},
		Manual: []PlanEntry{
			{Crate: "mixed", Function: "checked_add", Harness: "proofs::check_checked_add", Kind: ir.KindProofForContract},
			{Crate: "mixed", Function: "proofs::broken", Harness: "proofs::broken", Kind: ir.KindProof, Problem: "target missing"},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, PlanText(&buf, p))
	out := buf.String()

	assert.Contains(t, out, "Selected 2 function(s) for automatic verification:")
	assert.Contains(t, out, "autoharness_negate")
	assert.Contains(t, out, "Skipped 2 function(s):")
	assert.Contains(t, out, "Unsupported argument type(s): parameter s: str is not supported")
	assert.Contains(t, out, "Covered by a manual harness")
	assert.Contains(t, out, "ready")
	assert.Contains(t, out, "target missing")
	assert.Contains(t, out, "2 automatic and 1 manual harness(es) would run with a 1m0s timeout.\n")
}

func TestPlanTextEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PlanText(&buf, Plan{Crate: "empty", Limits: ir.DefaultLimits()}))

	assert.Equal(t, NoCandidatesMessage+"\n\nManual Harness Summary:\n"+NoManualMessage+
		"\n\n0 automatic and 0 manual harness(es) would run with a 1m0s timeout.\n", buf.String())
}

func TestHistory(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, History(&buf, nil))
	assert.Equal(t, NoHistoryMessage+"\n", buf.String())

	buf.Reset()
	require.NoError(t, History(&buf, []HistoryRow{{
		ID:           "run-2",
		Crate:        "fixtures",
		StartedAt:    time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Counts:       ir.Counts{Total: 6, Succeeded: 5, Failed: 1},
		ManualCounts: ir.Counts{Total: 1, Succeeded: 1},
	}}))
	out := buf.String()
	assert.Contains(t, out, "run-2")
	assert.Contains(t, out, "2025-01-01T00:00:00Z")
	assert.Contains(t, out, "1/1")
}
