package compiler

import (
	"fmt"

	"github.com/roach88/autoverify/internal/ir"
)

// Validation error codes (E100-E199).
const (
	ErrDuplicateFunction  = "E105" // two functions share a fully qualified name
	ErrUnknownTarget      = "E110" // manual harness targets a function not in the unit
	ErrTargetIsHarness    = "E111" // manual harness targets another harness
	ErrNegativeUnwind     = "E112" // manual harness unwind is negative
	ErrCrateMismatch      = "E113" // fragments disagree on the crate name
	ErrEmptyArbitraryType = "E114" // blank entry in the arbitrary list
)

// ValidationError represents a unit-level consistency error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Pos     string `json:"pos,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Pos != "" {
		return fmt.Sprintf("[%s] %s: %s: %s", e.Code, e.Pos, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks cross-function consistency of a compiled unit.
// Returns all errors found (does not fail-fast).
//
// Per-function signature problems are NOT reported here; they are
// selection-time skips, not metadata errors.
func Validate(unit *ir.Unit) []ValidationError {
	var errs []ValidationError

	for i, typ := range unit.Arbitrary {
		if typ == "" {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("arbitrary[%d]", i),
				Message: "arbitrary type name must be non-empty",
				Code:    ErrEmptyArbitraryType,
			})
		}
	}

	byName := make(map[string]*ir.FunctionDecl, len(unit.Functions))
	for i := range unit.Functions {
		fn := &unit.Functions[i]
		if prev, ok := byName[fn.Name]; ok {
			errs = append(errs, ValidationError{
				Field:   "functions." + fn.Name,
				Message: fmt.Sprintf("duplicate function name (first declared at %s)", prev.Pos),
				Code:    ErrDuplicateFunction,
				Pos:     fn.Pos,
			})
			continue
		}
		byName[fn.Name] = fn
	}

	for i := range unit.Functions {
		fn := &unit.Functions[i]
		if fn.Harness == nil {
			continue
		}
		if fn.Harness.Unwind < 0 {
			errs = append(errs, ValidationError{
				Field:   "functions." + fn.Name + ".harness.unwind",
				Message: "unwind must be non-negative",
				Code:    ErrNegativeUnwind,
				Pos:     fn.Pos,
			})
		}
		if fn.Harness.Target == "" {
			continue
		}
		target, ok := byName[fn.Harness.Target]
		if !ok {
			errs = append(errs, ValidationError{
				Field:   "functions." + fn.Name + ".harness.target",
				Message: fmt.Sprintf("target %q is not declared in this unit", fn.Harness.Target),
				Code:    ErrUnknownTarget,
				Pos:     fn.Pos,
			})
			continue
		}
		if target.IsManualHarness() {
			errs = append(errs, ValidationError{
				Field:   "functions." + fn.Name + ".harness.target",
				Message: fmt.Sprintf("target %q is itself a proof harness", fn.Harness.Target),
				Code:    ErrTargetIsHarness,
				Pos:     fn.Pos,
			})
		}
	}

	return errs
}
