package ir

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes per-candidate pipeline errors.
type ErrorCode string

const (
	// ErrCodeSelection indicates a malformed or unsupported function signature.
	ErrCodeSelection ErrorCode = "SELECTION_ERROR"

	// ErrCodeSynthesis indicates no harness could be built for the candidate's types.
	ErrCodeSynthesis ErrorCode = "SYNTHESIS_ERROR"

	// ErrCodeBackendTimeout indicates the harness exceeded its time bound.
	ErrCodeBackendTimeout ErrorCode = "BACKEND_TIMEOUT"

	// ErrCodeBackendFault indicates a tool-internal error, distinct from a counterexample.
	ErrCodeBackendFault ErrorCode = "BACKEND_FAULT"

	// ErrCodeNoCandidates marks the terminal state where nothing was selected.
	// It is reported, never treated as a failure.
	ErrCodeNoCandidates ErrorCode = "NO_CANDIDATES"
)

// PipelineError is a per-candidate failure. It never aborts a run:
// selection and synthesis errors become skips, backend errors become verdicts.
type PipelineError struct {
	Code ErrorCode

	// Function is the fully qualified name of the affected function.
	Function string

	// Reason is the skip reason for selection and synthesis errors.
	Reason SkipReason

	Message string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *PipelineError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Function != "" {
		msg = fmt.Sprintf("%s (function=%s)", msg, e.Function)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// NewSelectionError creates a PipelineError for an ineligible signature.
func NewSelectionError(function string, reason SkipReason, message string) *PipelineError {
	return &PipelineError{
		Code:     ErrCodeSelection,
		Function: function,
		Reason:   reason,
		Message:  message,
	}
}

// NewSynthesisError creates a PipelineError for an unsupported type shape.
func NewSynthesisError(function, message string) *PipelineError {
	return &PipelineError{
		Code:     ErrCodeSynthesis,
		Function: function,
		Reason:   SkipUnsupportedType,
		Message:  message,
	}
}

// NewBackendFault wraps a backend error for the given harness target.
func NewBackendFault(function string, err error) *PipelineError {
	return &PipelineError{
		Code:     ErrCodeBackendFault,
		Function: function,
		Message:  "model-checking backend fault",
		Err:      err,
	}
}

// NewBackendTimeout creates a PipelineError for an exceeded time bound.
func NewBackendTimeout(function string, limits Limits) *PipelineError {
	return &PipelineError{
		Code:     ErrCodeBackendTimeout,
		Function: function,
		Message:  fmt.Sprintf("harness exceeded time bound of %s", limits.Timeout),
	}
}

// NewNoCandidates describes a unit in which no function was eligible.
func NewNoCandidates(crate string) *PipelineError {
	return &PipelineError{
		Code:    ErrCodeNoCandidates,
		Message: fmt.Sprintf("no functions in crate %s were eligible for automatic verification", crate),
	}
}

// IsNoCandidates returns true if err is the no-candidates terminal state.
func IsNoCandidates(err error) bool {
	return hasCode(err, ErrCodeNoCandidates)
}

// IsSynthesisError returns true if err is a synthesis PipelineError.
// Uses errors.As to handle wrapped errors.
func IsSynthesisError(err error) bool {
	return hasCode(err, ErrCodeSynthesis)
}

// IsSelectionError returns true if err is a selection PipelineError.
func IsSelectionError(err error) bool {
	return hasCode(err, ErrCodeSelection)
}

// IsBackendTimeout returns true if err is a backend timeout PipelineError.
func IsBackendTimeout(err error) bool {
	return hasCode(err, ErrCodeBackendTimeout)
}

func hasCode(err error, code ErrorCode) bool {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Code == code
	}
	return false
}
