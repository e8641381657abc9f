// Package ir provides the shared data model for the autoverify pipeline.
//
// This package contains type definitions only. All other internal packages
// import ir; ir imports nothing internal. The pipeline stages exchange these
// values strictly left to right:
//
//	FunctionDecl -> Candidate -> Harness -> Verdict -> RunReport
//
// Key design constraints:
//   - Candidates are immutable once selected and carry their discovery index
//   - Every Harness references exactly one Candidate (by index and name)
//   - Every Verdict references exactly one Harness (by content-addressed ID)
//   - A finalized RunReport is never mutated
//   - All JSON tags use snake_case
//   - Identity hashes never include wall-clock cost
package ir
