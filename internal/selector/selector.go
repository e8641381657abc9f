// Package selector decides which functions of a compilation unit are
// candidates for automatic verification, and how each one is classified.
//
// Selection is a pure function of the unit metadata and the filter options.
// Discovery order is declaration order; it fixes report order downstream.
package selector

import (
	"fmt"
	"strings"

	"github.com/roach88/autoverify/internal/ir"
)

// Options filters which functions are discovered.
type Options struct {
	// Include, when non-empty, restricts discovery to functions whose
	// qualified name equals or contains one of the patterns.
	Include []string

	// Exclude removes functions whose qualified name equals or contains one
	// of the patterns. Ignored when Include is set.
	Exclude []string
}

// Selection is the outcome of running the selector over one unit.
type Selection struct {
	Crate string

	// Candidates holds every discovered function, eligible or not, in
	// discovery order. Candidate.Index is the position in this slice.
	Candidates []ir.Candidate

	// Manual holds the user-authored proof harnesses in declaration order.
	Manual []ir.FunctionDecl

	// Covered lists functions targeted by a manual contract harness. They are
	// never automatic candidates.
	Covered []string

	// NoneEligible is set when no discovered function may produce a harness.
	NoneEligible bool
}

// Eligible returns the candidates that may produce a harness.
func (s *Selection) Eligible() []ir.Candidate {
	var out []ir.Candidate
	for _, c := range s.Candidates {
		if c.Eligible() {
			out = append(out, c)
		}
	}
	return out
}

// Ineligible returns the candidates skipped at selection time.
func (s *Selection) Ineligible() []ir.Candidate {
	var out []ir.Candidate
	for _, c := range s.Candidates {
		if !c.Eligible() {
			out = append(out, c)
		}
	}
	return out
}

// Select classifies every function in the unit.
func Select(unit *ir.Unit, opts Options) *Selection {
	sel := &Selection{Crate: unit.Crate}

	covered := make(map[string]bool)
	for i := range unit.Functions {
		fn := &unit.Functions[i]
		if !fn.IsManualHarness() {
			continue
		}
		sel.Manual = append(sel.Manual, *fn)
		if fn.Harness.Kind == ir.KindProofForContract && fn.Harness.Target != "" && !covered[fn.Harness.Target] {
			covered[fn.Harness.Target] = true
			sel.Covered = append(sel.Covered, fn.Harness.Target)
		}
	}

	for i := range unit.Functions {
		fn := &unit.Functions[i]
		if fn.IsManualHarness() || covered[fn.Name] {
			continue
		}
		if !opts.Discovers(fn.Name) {
			continue
		}
		sel.Candidates = append(sel.Candidates, newCandidate(len(sel.Candidates), fn))
	}

	sel.NoneEligible = len(sel.Eligible()) == 0
	return sel
}

// Discovers reports whether a function with the given qualified name passes
// the include/exclude filters.
func (o Options) Discovers(name string) bool {
	if len(o.Include) > 0 {
		return Matches(name, o.Include)
	}
	return !Matches(name, o.Exclude)
}

// Matches reports whether name equals or contains any of the patterns.
func Matches(name string, patterns []string) bool {
	for _, p := range patterns {
		if p == "" {
			continue
		}
		if name == p || strings.Contains(name, p) {
			return true
		}
	}
	return false
}

func newCandidate(index int, fn *ir.FunctionDecl) ir.Candidate {
	c := ir.Candidate{
		Index:          index,
		Name:           fn.Name,
		Crate:          fn.Crate,
		Params:         fn.Params,
		Assertions:     fn.Assertions,
		LoopInvariants: fn.LoopInvariants,
		Recursive:      fn.Recursive,
		RecursionBound: fn.RecursionBound,
	}
	if !fn.Contract.IsEmpty() {
		c.Contract = fn.Contract
	}

	if err := CheckEligible(fn); err != nil {
		c.Class = ir.ClassIneligible
		c.Reason = err.Reason
		c.Detail = err.Message
		return c
	}

	c.Class = Classify(fn)
	return c
}

// Classify returns the verification mode for an eligible function.
// A contract takes precedence over loop invariants, which take precedence
// over recursion.
func Classify(fn *ir.FunctionDecl) ir.Classification {
	switch {
	case !fn.Contract.IsEmpty():
		return ir.ClassContract
	case len(fn.LoopInvariants) > 0:
		return ir.ClassLoopContract
	case fn.Recursive || fn.RecursionBound > 0:
		return ir.ClassRecursive
	default:
		return ir.ClassPlainProof
	}
}

// instrumentationTraits are the trait impls whose items exist only to drive
// the verifier.
var instrumentationTraits = []string{"Arbitrary", "Invariant"}

// CheckEligible returns a selection error when fn can never produce a harness.
func CheckEligible(fn *ir.FunctionDecl) *ir.PipelineError {
	if !fn.HasBody {
		return ir.NewSelectionError(fn.Name, ir.SkipNoBody, "function has no body")
	}

	if fn.Marker != "" {
		return ir.NewSelectionError(fn.Name, ir.SkipInstrumentation,
			fmt.Sprintf("function carries instrumentation marker %s", fn.Marker))
	}
	for _, trait := range instrumentationTraits {
		if fn.TraitImpl == trait || strings.HasSuffix(fn.TraitImpl, "::"+trait) {
			return ir.NewSelectionError(fn.Name, ir.SkipInstrumentation,
				fmt.Sprintf("function implements %s", fn.TraitImpl))
		}
	}

	if len(fn.Generics) > 0 {
		return ir.NewSelectionError(fn.Name, ir.SkipGeneric,
			fmt.Sprintf("function is generic over %s", strings.Join(fn.Generics, ", ")))
	}

	for i, p := range fn.Params {
		if p.Name == "" || p.Type == "" {
			return ir.NewSelectionError(fn.Name, ir.SkipMalformed,
				fmt.Sprintf("parameter %d has no name or type", i))
		}
	}

	return nil
}
