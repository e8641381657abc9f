package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/autoverify/internal/ir"
)

// CompileUnit parses a CUE value into compilation-unit metadata.
// Uses the CUE SDK's Go API directly (not a CLI subprocess).
//
// The value is the root of a metadata document, e.g.:
//
//	crate: "fixtures"
//	arbitrary: ["Alignment"]
//	functions: [
//		{name: "max", params: [{name: "x", type: "u32"}], contract: ensures: ["result == x"]},
//	]
//
// Structural problems (wrong kinds, missing names) are compile errors.
// Signature problems inside a function (untyped parameters) are preserved
// so the selector can skip that one function instead of failing the run.
func CompileUnit(v cue.Value) (*ir.Unit, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	crate, err := requiredString(v, "crate")
	if err != nil {
		return nil, err
	}

	unit := &ir.Unit{Crate: crate}

	unit.Arbitrary, err = stringList(v, "arbitrary")
	if err != nil {
		return nil, err
	}

	fnsVal := v.LookupPath(cue.ParsePath("functions"))
	if !fnsVal.Exists() {
		return unit, nil
	}

	iter, err := fnsVal.List()
	if err != nil {
		return nil, &CompileError{
			Field:   "functions",
			Message: "functions must be a list",
			Pos:     fnsVal.Pos(),
		}
	}

	for i := 0; iter.Next(); i++ {
		fn, err := CompileFunction(iter.Value(), crate)
		if err != nil {
			return nil, fmt.Errorf("functions[%d]: %w", i, err)
		}
		unit.Functions = append(unit.Functions, *fn)
	}

	return unit, nil
}

// CompileFunction parses one function entry. defaultCrate applies when the
// entry does not name its own crate.
func CompileFunction(v cue.Value, defaultCrate string) (*ir.FunctionDecl, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	name, err := requiredString(v, "name")
	if err != nil {
		return nil, err
	}

	fn := &ir.FunctionDecl{
		Name:    name,
		Crate:   defaultCrate,
		HasBody: true,
		Pos:     posString(v.Pos()),
	}

	if crate, ok, err := optionalString(v, "crate"); err != nil {
		return nil, err
	} else if ok {
		fn.Crate = crate
	}

	if fn.Result, _, err = optionalString(v, "result"); err != nil {
		return nil, err
	}
	if fn.TraitImpl, _, err = optionalString(v, "trait_impl"); err != nil {
		return nil, err
	}
	if fn.Marker, _, err = optionalString(v, "marker"); err != nil {
		return nil, err
	}

	if body, ok, err := optionalBool(v, "body"); err != nil {
		return nil, err
	} else if ok {
		fn.HasBody = body
	}
	if fn.Recursive, _, err = optionalBool(v, "recursive"); err != nil {
		return nil, err
	}

	if bound, ok, err := optionalInt(v, "recursion_bound"); err != nil {
		return nil, err
	} else if ok {
		if bound <= 0 {
			return nil, &CompileError{
				Field:   "recursion_bound",
				Message: "recursion_bound must be positive",
				Pos:     v.LookupPath(cue.ParsePath("recursion_bound")).Pos(),
			}
		}
		fn.RecursionBound = bound
		fn.Recursive = true
	}

	if fn.Generics, err = stringList(v, "generics"); err != nil {
		return nil, err
	}
	if fn.Assertions, err = stringList(v, "assertions"); err != nil {
		return nil, err
	}
	if fn.LoopInvariants, err = stringList(v, "loop_invariants"); err != nil {
		return nil, err
	}

	if fn.Params, err = parseParams(v); err != nil {
		return nil, err
	}
	if fn.Contract, err = parseContract(v); err != nil {
		return nil, err
	}
	if fn.Harness, err = parseHarness(v); err != nil {
		return nil, err
	}

	return fn, nil
}

// parseParams extracts the parameter list. Missing names or types are kept
// as empty strings; they mark a malformed signature, not a malformed document.
func parseParams(v cue.Value) ([]ir.Param, error) {
	paramsVal := v.LookupPath(cue.ParsePath("params"))
	if !paramsVal.Exists() {
		return nil, nil
	}

	iter, err := paramsVal.List()
	if err != nil {
		return nil, &CompileError{
			Field:   "params",
			Message: "params must be a list",
			Pos:     paramsVal.Pos(),
		}
	}

	var params []ir.Param
	for iter.Next() {
		pv := iter.Value()
		name, _, err := optionalString(pv, "name")
		if err != nil {
			return nil, err
		}
		typ, _, err := optionalString(pv, "type")
		if err != nil {
			return nil, err
		}
		params = append(params, ir.Param{Name: name, Type: typ})
	}
	return params, nil
}

// parseContract extracts requires/ensures. Each may be a single string or a list.
func parseContract(v cue.Value) (*ir.Contract, error) {
	cv := v.LookupPath(cue.ParsePath("contract"))
	if !cv.Exists() {
		return nil, nil
	}

	requires, err := stringList(cv, "requires")
	if err != nil {
		return nil, err
	}
	ensures, err := stringList(cv, "ensures")
	if err != nil {
		return nil, err
	}

	contract := &ir.Contract{Requires: requires, Ensures: ensures}
	if contract.IsEmpty() {
		return nil, &CompileError{
			Field:   "contract",
			Message: "contract must declare at least one requires or ensures predicate",
			Pos:     cv.Pos(),
		}
	}
	return contract, nil
}

// parseHarness extracts the manual harness attribute, if present.
func parseHarness(v cue.Value) (*ir.ManualHarness, error) {
	hv := v.LookupPath(cue.ParsePath("harness"))
	if !hv.Exists() {
		return nil, nil
	}

	kind, err := requiredString(hv, "kind")
	if err != nil {
		return nil, err
	}

	h := &ir.ManualHarness{}
	switch kind {
	case "proof":
		h.Kind = ir.KindProof
	case "proof_for_contract":
		h.Kind = ir.KindProofForContract
	default:
		return nil, &CompileError{
			Field:   "harness.kind",
			Message: fmt.Sprintf("unknown harness kind %q: must be proof or proof_for_contract", kind),
			Pos:     hv.Pos(),
		}
	}

	if h.Target, _, err = optionalString(hv, "target"); err != nil {
		return nil, err
	}
	if h.Kind == ir.KindProofForContract && h.Target == "" {
		return nil, &CompileError{
			Field:   "harness.target",
			Message: "proof_for_contract harness requires a target",
			Pos:     hv.Pos(),
		}
	}

	if unwind, ok, err := optionalInt(hv, "unwind"); err != nil {
		return nil, err
	} else if ok {
		h.Unwind = unwind
	}

	return h, nil
}

func requiredString(v cue.Value, field string) (string, error) {
	s, ok, err := optionalString(v, field)
	if err != nil {
		return "", err
	}
	if !ok || s == "" {
		return "", &CompileError{
			Field:   field,
			Message: field + " is required",
			Pos:     v.Pos(),
		}
	}
	return s, nil
}

func optionalString(v cue.Value, field string) (string, bool, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", false, nil
	}
	s, err := fv.String()
	if err != nil {
		return "", false, formatCUEError(err)
	}
	return s, true, nil
}

func optionalBool(v cue.Value, field string) (bool, bool, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return false, false, nil
	}
	b, err := fv.Bool()
	if err != nil {
		return false, false, formatCUEError(err)
	}
	return b, true, nil
}

func optionalInt(v cue.Value, field string) (int, bool, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return 0, false, nil
	}
	n, err := fv.Int64()
	if err != nil {
		return 0, false, formatCUEError(err)
	}
	return int(n), true, nil
}

// stringList reads a field that may be a single string or a list of strings.
func stringList(v cue.Value, field string) ([]string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return nil, nil
	}

	if s, err := fv.String(); err == nil {
		return []string{s}, nil
	}

	iter, err := fv.List()
	if err != nil {
		return nil, &CompileError{
			Field:   field,
			Message: "must be a string or a list of strings",
			Pos:     fv.Pos(),
		}
	}

	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out = append(out, s)
	}
	return out, nil
}

func posString(pos token.Pos) string {
	if !pos.IsValid() {
		return ""
	}
	return fmt.Sprintf("%s:%d:%d", pos.Filename(), pos.Line(), pos.Column())
}

// CompileError is a structural error in a metadata document.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
