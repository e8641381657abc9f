// Package synth builds verification harnesses.
//
// Automatic harnesses are synthesized from eligible candidates. Manual
// harnesses are converted from the unit's user-authored proofs so the driver
// can execute both the same way. Synthesis of one candidate never looks at
// another.
package synth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/autoverify/internal/ir"
)

// HarnessPrefix names synthesized harness entry points.
const HarnessPrefix = "autoharness_"

// Synthesizer builds harnesses for the functions of one compilation unit.
type Synthesizer struct {
	crate     string
	types     *typeChecker
	functions map[string]*ir.FunctionDecl
}

// New creates a synthesizer for unit. The unit's arbitrary types extend the
// set of parameter types that can be constructed unconstrained.
func New(unit *ir.Unit) *Synthesizer {
	arbitrary := make(map[string]bool, len(unit.Arbitrary))
	for _, t := range unit.Arbitrary {
		arbitrary[t] = true
	}
	functions := make(map[string]*ir.FunctionDecl, len(unit.Functions))
	for i := range unit.Functions {
		functions[unit.Functions[i].Name] = &unit.Functions[i]
	}
	return &Synthesizer{
		crate:     unit.Crate,
		types:     &typeChecker{arbitrary: arbitrary},
		functions: functions,
	}
}

// Synthesize builds the harness for one eligible candidate.
//
// Returns a SYNTHESIS_ERROR PipelineError with reason unsupported-type when a
// parameter type has no unconstrained constructor, and a SELECTION_ERROR
// when the candidate is ineligible. No harness is produced in either case.
func (s *Synthesizer) Synthesize(c ir.Candidate, limits ir.Limits) (ir.Harness, error) {
	if !c.Eligible() {
		return ir.Harness{}, ir.NewSelectionError(c.Name, c.Reason, "ineligible candidate cannot be synthesized")
	}

	inputs, err := s.inputs(c.Name, c.Params)
	if err != nil {
		return ir.Harness{}, err
	}

	h := ir.Harness{
		Name:           HarnessName(c.Name),
		Target:         c.Name,
		Crate:          c.Crate,
		CandidateIndex: c.Index,
		Limits:         limits,
		Inputs:         inputs,
		Assertions:     c.Assertions,
		LoopInvariants: c.LoopInvariants,
	}

	switch c.Class {
	case ir.ClassContract:
		if c.Contract.IsEmpty() {
			return ir.Harness{}, ir.NewSynthesisError(c.Name, "contract candidate has no contract")
		}
		h.Kind = ir.KindProofForContract
		h.Requires = c.Contract.Requires
		h.Ensures = c.Contract.Ensures

	case ir.ClassLoopContract:
		// Invariants bound exploration instead of a fixed unwinding limit.
		h.Kind = ir.KindProof
		h.Limits.Unwind = 0

	case ir.ClassRecursive:
		h.Kind = ir.KindProof
		if !c.Contract.IsEmpty() {
			h.Kind = ir.KindProofForContract
			h.Requires = c.Contract.Requires
			h.Ensures = c.Contract.Ensures
		}
		h.Limits.Unwind = tighterUnwind(limits.Unwind, c.RecursionBound)

	case ir.ClassPlainProof:
		h.Kind = ir.KindProof

	default:
		return ir.Harness{}, ir.NewSynthesisError(c.Name, fmt.Sprintf("unknown classification %q", c.Class))
	}

	return withID(h)
}

// Manual converts a user-authored proof harness. A contract harness checks
// its target's contract; a plain proof checks its own assertions. A positive
// unwind on the harness overrides the default.
func (s *Synthesizer) Manual(fn *ir.FunctionDecl, limits ir.Limits) (ir.Harness, error) {
	if !fn.IsManualHarness() {
		return ir.Harness{}, fmt.Errorf("function %s is not a proof harness", fn.Name)
	}

	crate := fn.Crate
	if crate == "" {
		crate = s.crate
	}

	h := ir.Harness{
		Name:           fn.Name,
		Target:         fn.Name,
		Crate:          crate,
		CandidateIndex: -1,
		Kind:           fn.Harness.Kind,
		Manual:         true,
		Limits:         limits,
		Assertions:     fn.Assertions,
		LoopInvariants: fn.LoopInvariants,
	}
	if fn.Harness.Unwind > 0 {
		h.Limits.Unwind = fn.Harness.Unwind
	}

	if fn.Harness.Kind == ir.KindProofForContract {
		target, ok := s.functions[fn.Harness.Target]
		if !ok {
			return ir.Harness{}, fmt.Errorf("harness %s: target %s not found", fn.Name, fn.Harness.Target)
		}
		h.Target = target.Name
		if target.Contract != nil {
			h.Requires = target.Contract.Requires
			h.Ensures = target.Contract.Ensures
		}
		inputs, err := s.inputs(target.Name, target.Params)
		if err != nil {
			return ir.Harness{}, err
		}
		h.Inputs = inputs
	}

	return withID(h)
}

// HarnessName derives the entry point name for a synthesized harness.
func HarnessName(function string) string {
	return HarnessPrefix + strings.ReplaceAll(function, "::", "_")
}

func (s *Synthesizer) inputs(function string, params []ir.Param) ([]ir.Input, error) {
	inputs := make([]ir.Input, 0, len(params))
	var unsupported, malformed []string
	for _, p := range params {
		err := s.types.check(p.Type)
		if err == nil {
			inputs = append(inputs, ir.Input{Name: p.Name, Type: p.Type})
			continue
		}
		msg := fmt.Sprintf("parameter %s: %v", p.Name, err)
		var me *malformedError
		if errors.As(err, &me) {
			malformed = append(malformed, msg)
		} else {
			unsupported = append(unsupported, msg)
		}
	}
	// A signature the grammar cannot read is reported as malformed even when
	// other parameters are merely unsupported.
	if len(malformed) > 0 {
		return nil, ir.NewSelectionError(function, ir.SkipMalformed, strings.Join(malformed, "; "))
	}
	if len(unsupported) > 0 {
		return nil, ir.NewSynthesisError(function, strings.Join(unsupported, "; "))
	}
	return inputs, nil
}

// tighterUnwind applies a recursion bound when it is stricter than the default.
// A zero default means unbounded.
func tighterUnwind(def, bound int) int {
	if bound > 0 && (def == 0 || bound < def) {
		return bound
	}
	return def
}

func withID(h ir.Harness) (ir.Harness, error) {
	id, err := ir.HarnessID(h)
	if err != nil {
		return ir.Harness{}, fmt.Errorf("synthesize %s: %w", h.Target, err)
	}
	h.ID = id
	return h, nil
}
