package selector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/autoverify/internal/ir"
)

func u32(names ...string) []ir.Param {
	params := make([]ir.Param, len(names))
	for i, n := range names {
		params[i] = ir.Param{Name: n, Type: "u32"}
	}
	return params
}

func fixtureUnit() *ir.Unit {
	return &ir.Unit{
		Crate:     "fixtures",
		Arbitrary: []string{"Alignment"},
		Functions: []ir.FunctionDecl{
			{Name: "max", HasBody: true, Params: u32("x", "y"), Contract: &ir.Contract{Ensures: []string{"result == x"}}},
			{Name: "alignment::as_usize", HasBody: true, Params: []ir.Param{{Name: "self", Type: "Alignment"}}, Contract: &ir.Contract{Ensures: []string{"result.is_power_of_two()"}}},
			{Name: "div", HasBody: true, Params: u32("x", "y"), Contract: &ir.Contract{Requires: []string{"y != 0"}, Ensures: []string{"result <= x"}}},
			{Name: "has_loop_contract", HasBody: true, LoopInvariants: []string{"x >= 2"}},
			{Name: "has_recursion_gcd", HasBody: true, Params: u32("a", "b"), Recursive: true, RecursionBound: 8},
			{Name: "unchecked_mul", HasBody: true, Params: u32("a", "b"), Assertions: []string{"a.checked_mul(b).is_some()"}},
		},
	}
}

func TestSelectSixCandidates(t *testing.T) {
	sel := Select(fixtureUnit(), Options{})

	require.Len(t, sel.Candidates, 6)
	assert.False(t, sel.NoneEligible)
	assert.Empty(t, sel.Manual)
	assert.Empty(t, sel.Covered)

	want := []struct {
		name  string
		class ir.Classification
	}{
		{"max", ir.ClassContract},
		{"alignment::as_usize", ir.ClassContract},
		{"div", ir.ClassContract},
		{"has_loop_contract", ir.ClassLoopContract},
		{"has_recursion_gcd", ir.ClassRecursive},
		{"unchecked_mul", ir.ClassPlainProof},
	}
	for i, w := range want {
		c := sel.Candidates[i]
		assert.Equal(t, i, c.Index)
		assert.Equal(t, w.name, c.Name)
		assert.Equal(t, w.class, c.Class, "candidate %s", w.name)
		assert.Equal(t, "fixtures", c.Crate)
	}
}

func TestSelectIsDeterministic(t *testing.T) {
	a := Select(fixtureUnit(), Options{})
	b := Select(fixtureUnit(), Options{})
	assert.Equal(t, a, b)
}

func TestClassifyContractTakesPrecedence(t *testing.T) {
	fn := &ir.FunctionDecl{
		Name:           "both",
		HasBody:        true,
		Contract:       &ir.Contract{Ensures: []string{"result > 0"}},
		LoopInvariants: []string{"i < n"},
		Recursive:      true,
	}
	assert.Equal(t, ir.ClassContract, Classify(fn))

	fn.Contract = nil
	assert.Equal(t, ir.ClassLoopContract, Classify(fn))

	fn.LoopInvariants = nil
	assert.Equal(t, ir.ClassRecursive, Classify(fn))

	fn.Recursive = false
	assert.Equal(t, ir.ClassPlainProof, Classify(fn))
}

func TestCheckEligible(t *testing.T) {
	tests := []struct {
		name   string
		fn     ir.FunctionDecl
		reason ir.SkipReason
	}{
		{"no body", ir.FunctionDecl{Name: "ext"}, ir.SkipNoBody},
		{"contract marker", ir.FunctionDecl{Name: "m", HasBody: true, Marker: "kani_contract_mode"}, ir.SkipInstrumentation},
		{"arbitrary impl", ir.FunctionDecl{Name: "any", HasBody: true, TraitImpl: "kani::Arbitrary"}, ir.SkipInstrumentation},
		{"invariant impl", ir.FunctionDecl{Name: "is_safe", HasBody: true, TraitImpl: "Invariant"}, ir.SkipInstrumentation},
		{"generic", ir.FunctionDecl{Name: "g", HasBody: true, Generics: []string{"T"}}, ir.SkipGeneric},
		{"untyped param", ir.FunctionDecl{Name: "p", HasBody: true, Params: []ir.Param{{Name: "x"}}}, ir.SkipMalformed},
		{"unnamed param", ir.FunctionDecl{Name: "p", HasBody: true, Params: []ir.Param{{Type: "u8"}}}, ir.SkipMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckEligible(&tt.fn)
			require.NotNil(t, err)
			assert.True(t, ir.IsSelectionError(err))
			assert.Equal(t, tt.reason, err.Reason)
			assert.Equal(t, tt.fn.Name, err.Function)
		})
	}

	assert.Nil(t, CheckEligible(&ir.FunctionDecl{Name: "ok", HasBody: true, TraitImpl: "Display"}))
}

func TestSelectIneligibleAreDiscovered(t *testing.T) {
	unit := &ir.Unit{
		Crate: "fixtures",
		Functions: []ir.FunctionDecl{
			{Name: "ext"},
			{Name: "ok", HasBody: true},
		},
	}
	sel := Select(unit, Options{})

	require.Len(t, sel.Candidates, 2)
	assert.Equal(t, ir.ClassIneligible, sel.Candidates[0].Class)
	assert.Equal(t, ir.SkipNoBody, sel.Candidates[0].Reason)
	assert.Equal(t, "function has no body", sel.Candidates[0].Detail)

	assert.Len(t, sel.Eligible(), 1)
	assert.Len(t, sel.Ineligible(), 1)
	assert.Equal(t, 1, sel.Eligible()[0].Index)
}

func TestSelectManualHarnesses(t *testing.T) {
	unit := fixtureUnit()
	unit.Functions = append(unit.Functions,
		ir.FunctionDecl{Name: "check_div", HasBody: true, Harness: &ir.ManualHarness{Kind: ir.KindProofForContract, Target: "div"}},
		ir.FunctionDecl{Name: "check_div_again", HasBody: true, Harness: &ir.ManualHarness{Kind: ir.KindProofForContract, Target: "div"}},
		ir.FunctionDecl{Name: "check_sum", HasBody: true, Harness: &ir.ManualHarness{Kind: ir.KindProof}},
	)

	sel := Select(unit, Options{})

	require.Len(t, sel.Manual, 3)
	assert.Equal(t, "check_div", sel.Manual[0].Name)
	assert.Equal(t, []string{"div"}, sel.Covered)

	require.Len(t, sel.Candidates, 5, "div is covered by a manual harness")
	for i, c := range sel.Candidates {
		assert.NotEqual(t, "div", c.Name)
		assert.Equal(t, i, c.Index, "indices stay dense after exclusions")
	}
}

func TestSelectFilters(t *testing.T) {
	sel := Select(fixtureUnit(), Options{Include: []string{"has_"}})
	require.Len(t, sel.Candidates, 2)
	assert.Equal(t, "has_loop_contract", sel.Candidates[0].Name)
	assert.Equal(t, "has_recursion_gcd", sel.Candidates[1].Name)

	sel = Select(fixtureUnit(), Options{Exclude: []string{"max", "alignment"}})
	require.Len(t, sel.Candidates, 4)
	assert.Equal(t, "div", sel.Candidates[0].Name)

	sel = Select(fixtureUnit(), Options{Include: []string{"div"}, Exclude: []string{"div"}})
	require.Len(t, sel.Candidates, 1, "exclude is ignored when include is set")
}

func TestSelectNoneEligible(t *testing.T) {
	sel := Select(&ir.Unit{Crate: "empty"}, Options{})
	assert.True(t, sel.NoneEligible)
	assert.Empty(t, sel.Candidates)

	sel = Select(&ir.Unit{Crate: "c", Functions: []ir.FunctionDecl{{Name: "ext"}}}, Options{})
	assert.True(t, sel.NoneEligible, "only ineligible functions discovered")
	assert.Len(t, sel.Candidates, 1)
}

func TestMatches(t *testing.T) {
	assert.True(t, Matches("alignment::as_usize", []string{"alignment::as_usize"}))
	assert.True(t, Matches("alignment::as_usize", []string{"as_usize"}))
	assert.False(t, Matches("div", []string{"mul"}))
	assert.False(t, Matches("div", []string{""}))
	assert.False(t, Matches("div", nil))
}
