package ir

import "time"

// Classification tags a function by the kind of verification that applies to it.
type Classification string

const (
	// ClassContract marks a function with a precondition/postcondition contract.
	ClassContract Classification = "Contract"
	// ClassLoopContract marks a function with loop invariants but no contract.
	ClassLoopContract Classification = "LoopContract"
	// ClassRecursive marks a recursive function with a recursion bound but no contract.
	ClassRecursive Classification = "Recursive"
	// ClassPlainProof marks a function verified only against its embedded assertions.
	ClassPlainProof Classification = "PlainProof"
	// ClassIneligible marks a function that never produces a harness.
	ClassIneligible Classification = "Ineligible"
)

// HarnessKind distinguishes contract-checking harnesses from plain proofs.
type HarnessKind string

const (
	// KindProofForContract checks a contract against all inputs satisfying its precondition.
	KindProofForContract HarnessKind = "ProofForContract"
	// KindProof checks the assertions embedded in the function body.
	KindProof HarnessKind = "Proof"
)

// VerdictTag is the normalized outcome of one harness execution.
type VerdictTag string

const (
	VerdictSuccess VerdictTag = "Success"
	VerdictFailure VerdictTag = "Failure"
	VerdictTimeout VerdictTag = "Timeout"
	VerdictError   VerdictTag = "Error"
)

// Succeeded reports whether the tag counts toward the succeeded total.
// Failure, Timeout and Error all count as failed.
func (t VerdictTag) Succeeded() bool {
	return t == VerdictSuccess
}

// SkipReason names why a discovered function produced no harness.
type SkipReason string

const (
	SkipNoBody          SkipReason = "no-body"
	SkipGeneric         SkipReason = "generic-function"
	SkipInstrumentation SkipReason = "instrumentation"
	SkipMalformed       SkipReason = "malformed-signature"
	SkipUnsupportedType SkipReason = "unsupported-type"
)

// Describe returns the human-readable form used in reports.
func (r SkipReason) Describe() string {
	switch r {
	case SkipNoBody:
		return "No body"
	case SkipGeneric:
		return "Generic function"
	case SkipInstrumentation:
		return "Verifier instrumentation"
	case SkipMalformed:
		return "Malformed signature"
	case SkipUnsupportedType:
		return "Unsupported argument type(s)"
	default:
		return string(r)
	}
}

// Default resource limits applied to every synthesized harness.
const (
	DefaultTimeout = 60 * time.Second
	DefaultUnwind  = 20
)

// Limits bounds a single backend invocation.
type Limits struct {
	// Timeout is the wall-clock bound for one harness.
	Timeout time.Duration `json:"timeout"`

	// Unwind is the loop/recursion unwinding bound.
	// Zero means no fixed bound: exploration is bounded by loop invariants.
	Unwind int `json:"unwind"`
}

// DefaultLimits returns the 60s / unwind 20 defaults.
func DefaultLimits() Limits {
	return Limits{Timeout: DefaultTimeout, Unwind: DefaultUnwind}
}

// Param is one function parameter as reported by the compiler toolchain.
type Param struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Contract holds the pre- and postconditions attached to a function.
type Contract struct {
	// Requires lists precondition predicates, verbatim.
	Requires []string `json:"requires,omitempty"`

	// Ensures lists postcondition predicates over result and inputs, verbatim.
	Ensures []string `json:"ensures,omitempty"`
}

// IsEmpty reports whether the contract has no predicates.
func (c *Contract) IsEmpty() bool {
	return c == nil || (len(c.Requires) == 0 && len(c.Ensures) == 0)
}

// ManualHarness marks a function as a user-authored proof harness.
type ManualHarness struct {
	// Kind is Proof or ProofForContract.
	Kind HarnessKind `json:"kind"`

	// Target is the function checked by a ProofForContract harness.
	Target string `json:"target,omitempty"`

	// Unwind overrides the default unwinding bound when positive.
	Unwind int `json:"unwind,omitempty"`
}

// FunctionDecl is the compilation-unit metadata for one function.
type FunctionDecl struct {
	Name           string         `json:"name"`
	Crate          string         `json:"crate"`
	Params         []Param        `json:"params,omitempty"`
	Result         string         `json:"result,omitempty"`
	Generics       []string       `json:"generics,omitempty"`
	HasBody        bool           `json:"has_body"`
	TraitImpl      string         `json:"trait_impl,omitempty"`
	Marker         string         `json:"marker,omitempty"`
	Assertions     []string       `json:"assertions,omitempty"`
	Contract       *Contract      `json:"contract,omitempty"`
	LoopInvariants []string       `json:"loop_invariants,omitempty"`
	Recursive      bool           `json:"recursive,omitempty"`
	RecursionBound int            `json:"recursion_bound,omitempty"`
	Harness        *ManualHarness `json:"harness,omitempty"`

	// Pos is the source position of the declaration, for diagnostics.
	Pos string `json:"-"`
}

// IsManualHarness reports whether the function is itself a proof harness.
func (f *FunctionDecl) IsManualHarness() bool {
	return f.Harness != nil
}

// Unit is the metadata of one compilation unit.
type Unit struct {
	Crate string `json:"crate"`

	// Arbitrary lists crate types that can be constructed unconstrained.
	Arbitrary []string `json:"arbitrary,omitempty"`

	// Functions are in declaration order; this order is the discovery order.
	Functions []FunctionDecl `json:"functions"`
}

// Candidate is a function selected for automatic harness generation.
// Immutable once produced by the selector.
type Candidate struct {
	// Index is the discovery position among all discovered candidates.
	Index          int            `json:"index"`
	Name           string         `json:"name"`
	Crate          string         `json:"crate"`
	Class          Classification `json:"classification"`
	Params         []Param        `json:"params,omitempty"`
	Assertions     []string       `json:"assertions,omitempty"`
	Contract       *Contract      `json:"contract,omitempty"`
	LoopInvariants []string       `json:"loop_invariants,omitempty"`
	Recursive      bool           `json:"recursive,omitempty"`
	RecursionBound int            `json:"recursion_bound,omitempty"`

	// Reason and Detail explain an Ineligible classification.
	Reason SkipReason `json:"reason,omitempty"`
	Detail string     `json:"detail,omitempty"`
}

// Eligible reports whether the candidate may produce a harness.
func (c *Candidate) Eligible() bool {
	return c.Class != ClassIneligible
}

// Input is one unconstrained harness input.
type Input struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Harness is a verification unit bound to exactly one function.
type Harness struct {
	// ID is content-addressed; see HarnessID.
	ID string `json:"id"`

	// Name is the harness entry point name.
	Name string `json:"name"`

	// Target is the fully qualified name of the function under verification.
	Target string `json:"target"`
	Crate  string `json:"crate"`

	// CandidateIndex links an autoharness to its candidate. -1 for manual harnesses.
	CandidateIndex int         `json:"candidate_index"`
	Kind           HarnessKind `json:"kind"`
	Manual         bool        `json:"manual"`
	Limits         Limits      `json:"limits"`

	Inputs         []Input  `json:"inputs,omitempty"`
	Requires       []string `json:"requires,omitempty"`
	Ensures        []string `json:"ensures,omitempty"`
	Assertions     []string `json:"assertions,omitempty"`
	LoopInvariants []string `json:"loop_invariants,omitempty"`
}

// Verdict is the outcome of executing one harness.
type Verdict struct {
	HarnessID string     `json:"harness_id"`
	Tag       VerdictTag `json:"tag"`

	// Property is the violated or satisfied property text, verbatim from the backend.
	Property string `json:"property,omitempty"`

	// Duration is the wall-clock cost. Excluded from report identity.
	Duration time.Duration `json:"duration"`
}

// Entry is one autoharness result in discovery order.
type Entry struct {
	Index     int            `json:"index"`
	Crate     string         `json:"crate"`
	Function  string         `json:"function"`
	Class     Classification `json:"classification"`
	Kind      HarnessKind    `json:"kind"`
	HarnessID string         `json:"harness_id"`
	Verdict   Verdict        `json:"verdict"`
}

// Skip records a discovered candidate that produced no verdict.
type Skip struct {
	Index    int        `json:"index"`
	Crate    string     `json:"crate"`
	Function string     `json:"function"`
	Reason   SkipReason `json:"reason"`
	Detail   string     `json:"detail,omitempty"`
}

// ManualEntry is one user-authored harness result.
type ManualEntry struct {
	Crate     string      `json:"crate"`
	Harness   string      `json:"harness"`
	Target    string      `json:"target,omitempty"`
	Kind      HarnessKind `json:"kind"`
	HarnessID string      `json:"harness_id"`
	Verdict   Verdict     `json:"verdict"`
}

// Counts summarizes a set of results.
type Counts struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// RunReport is the terminal aggregate of one run.
// Produced by the aggregator and never mutated after finalization.
type RunReport struct {
	Version string `json:"version"`
	Crate   string `json:"crate"`

	// Limits are the defaults applied to synthesized harnesses in this run.
	Limits Limits `json:"limits"`

	// Entries are autoharness results in candidate discovery order.
	Entries []Entry `json:"entries"`

	// Skipped are discovered candidates without a verdict, in discovery order.
	Skipped []Skip `json:"skipped"`

	// Manual are user-authored harness results in declaration order.
	Manual []ManualEntry `json:"manual"`

	// Covered lists functions excluded because a manual harness targets them.
	Covered []string `json:"covered,omitempty"`

	Counts       Counts `json:"counts"`
	ManualCounts Counts `json:"manual_counts"`
}

// NoCandidates reports whether no function was selected for automatic verification.
func (r *RunReport) NoCandidates() bool {
	return len(r.Entries) == 0
}

// HasFailures reports whether any autoharness or manual harness failed.
func (r *RunReport) HasFailures() bool {
	return r.Counts.Failed > 0 || r.ManualCounts.Failed > 0
}

// NeedsAdvisory reports whether any Timeout or Failure outcome occurred.
func (r *RunReport) NeedsAdvisory() bool {
	for _, e := range r.Entries {
		if e.Verdict.Tag == VerdictTimeout || e.Verdict.Tag == VerdictFailure {
			return true
		}
	}
	for _, m := range r.Manual {
		if m.Verdict.Tag == VerdictTimeout || m.Verdict.Tag == VerdictFailure {
			return true
		}
	}
	return false
}
