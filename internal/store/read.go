package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/autoverify/internal/ir"
)

// ErrRunNotFound is returned when no archived run has the requested ID.
var ErrRunNotFound = errors.New("run not found")

// RunSummary is one row of the run history.
type RunSummary struct {
	Seq          int64     `json:"seq"`
	ID           string    `json:"id"`
	Crate        string    `json:"crate"`
	Digest       string    `json:"digest"`
	ToolVersion  string    `json:"tool_version"`
	StartedAt    time.Time `json:"started_at"`
	Counts       ir.Counts `json:"counts"`
	ManualCounts ir.Counts `json:"manual_counts"`
}

// ListRuns returns archived runs, newest first. A positive limit caps the
// number of rows; an empty crate matches every crate.
//
// Returns an empty slice (not nil) if the archive is empty.
func (s *Store) ListRuns(ctx context.Context, crate string, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, id, crate, digest, tool_version, started_at,
		       total, succeeded, failed, skipped, manual_total, manual_succeeded, manual_failed
		FROM runs
		WHERE ? = '' OR crate = ?
		ORDER BY seq DESC
		LIMIT ?
	`, crate, crate, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []RunSummary{}
	for rows.Next() {
		var (
			rs      RunSummary
			started string
		)
		if err := rows.Scan(&rs.Seq, &rs.ID, &rs.Crate, &rs.Digest, &rs.ToolVersion, &started,
			&rs.Counts.Total, &rs.Counts.Succeeded, &rs.Counts.Failed, &rs.Counts.Skipped,
			&rs.ManualCounts.Total, &rs.ManualCounts.Succeeded, &rs.ManualCounts.Failed); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if rs.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
			return nil, fmt.Errorf("parse started_at for run %s: %w", rs.ID, err)
		}
		runs = append(runs, rs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadRun reconstructs an archived report. Entries and skips come back in
// discovery order and manual results in declaration order.
func (s *Store) ReadRun(ctx context.Context, runID string) (*ir.RunReport, error) {
	r := &ir.RunReport{}
	var (
		timeoutMS int64
		covered   string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT crate, report_version, timeout_ms, unwind,
		       total, succeeded, failed, skipped, manual_total, manual_succeeded, manual_failed, covered
		FROM runs
		WHERE id = ?
	`, runID).Scan(&r.Crate, &r.Version, &timeoutMS, &r.Limits.Unwind,
		&r.Counts.Total, &r.Counts.Succeeded, &r.Counts.Failed, &r.Counts.Skipped,
		&r.ManualCounts.Total, &r.ManualCounts.Succeeded, &r.ManualCounts.Failed, &covered)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("read run %s: %w", runID, err)
	}
	r.Limits.Timeout = time.Duration(timeoutMS) * time.Millisecond

	if r.Covered, err = unmarshalCovered(covered); err != nil {
		return nil, err
	}
	if r.Entries, err = s.readEntries(ctx, runID); err != nil {
		return nil, err
	}
	if r.Skipped, err = s.readSkips(ctx, runID); err != nil {
		return nil, err
	}
	if r.Manual, err = s.readManual(ctx, runID); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Store) readEntries(ctx context.Context, runID string) ([]ir.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT idx, crate, function, classification, kind, harness_id, tag, property, duration_ns
		FROM entries
		WHERE run_id = ?
		ORDER BY idx ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	entries := []ir.Entry{}
	for rows.Next() {
		var (
			e        ir.Entry
			duration int64
		)
		if err := rows.Scan(&e.Index, &e.Crate, &e.Function, &e.Class, &e.Kind, &e.HarnessID,
			&e.Verdict.Tag, &e.Verdict.Property, &duration); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e.Verdict.HarnessID = e.HarnessID
		e.Verdict.Duration = time.Duration(duration)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}

func (s *Store) readSkips(ctx context.Context, runID string) ([]ir.Skip, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT idx, crate, function, reason, detail
		FROM skips
		WHERE run_id = ?
		ORDER BY idx ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query skips: %w", err)
	}
	defer rows.Close()

	skips := []ir.Skip{}
	for rows.Next() {
		var sk ir.Skip
		if err := rows.Scan(&sk.Index, &sk.Crate, &sk.Function, &sk.Reason, &sk.Detail); err != nil {
			return nil, fmt.Errorf("scan skip: %w", err)
		}
		skips = append(skips, sk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate skips: %w", err)
	}
	return skips, nil
}

func (s *Store) readManual(ctx context.Context, runID string) ([]ir.ManualEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT crate, harness, target, kind, harness_id, tag, property, duration_ns
		FROM manual_results
		WHERE run_id = ?
		ORDER BY pos ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query manual results: %w", err)
	}
	defer rows.Close()

	manual := []ir.ManualEntry{}
	for rows.Next() {
		var (
			m        ir.ManualEntry
			duration int64
		)
		if err := rows.Scan(&m.Crate, &m.Harness, &m.Target, &m.Kind, &m.HarnessID,
			&m.Verdict.Tag, &m.Verdict.Property, &duration); err != nil {
			return nil, fmt.Errorf("scan manual result: %w", err)
		}
		m.Verdict.HarnessID = m.HarnessID
		m.Verdict.Duration = time.Duration(duration)
		manual = append(manual, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate manual results: %w", err)
	}
	return manual, nil
}
