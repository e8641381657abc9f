// Package store provides a SQLite archive of finalized run reports.
//
// The archive is write-only from the pipeline's point of view: a run never
// reads earlier runs, so archived state cannot influence a verdict. The
// history and show commands read it back.
//
// # Tables
//
//   - runs: one row per archived report, with its counts and digest
//   - entries: autoharness results keyed by discovery index
//   - skips: skipped candidates keyed by discovery index
//   - manual_results: user-authored harness results in declaration order
//
// # Deterministic Reads
//
// Every query orders by an explicit integer key (seq, idx, pos), never by
// timestamp, so reading an archived run reproduces the original report
// ordering exactly.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
