package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/roach88/autoverify/internal/ir"
)

// WriteRun archives a finalized report under runID.
// Uses ON CONFLICT(id) DO NOTHING for idempotency: writing the same run ID
// twice keeps the first report and returns nil.
func (s *Store) WriteRun(ctx context.Context, runID string, startedAt time.Time, r *ir.RunReport) error {
	digest, err := ir.ReportDigest(r)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	covered, err := marshalCovered(r.Covered)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write run: begin: %w", err)
	}
	defer tx.Rollback() // no-op after commit

	res, err := tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, crate, report_version, tool_version, digest, started_at, timeout_ms, unwind,
		 total, succeeded, failed, skipped, manual_total, manual_succeeded, manual_failed, covered)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		runID, r.Crate, r.Version, ir.ToolVersion, digest,
		startedAt.UTC().Format(time.RFC3339Nano),
		r.Limits.Timeout.Milliseconds(), r.Limits.Unwind,
		r.Counts.Total, r.Counts.Succeeded, r.Counts.Failed, r.Counts.Skipped,
		r.ManualCounts.Total, r.ManualCounts.Succeeded, r.ManualCounts.Failed,
		covered,
	)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil
	}

	if err := writeEntries(ctx, tx, runID, r.Entries); err != nil {
		return err
	}
	if err := writeSkips(ctx, tx, runID, r.Skipped); err != nil {
		return err
	}
	if err := writeManual(ctx, tx, runID, r.Manual); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write run: commit: %w", err)
	}
	return nil
}

func writeEntries(ctx context.Context, tx *sql.Tx, runID string, entries []ir.Entry) error {
	for _, e := range entries {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO entries
			(run_id, idx, crate, function, classification, kind, harness_id, tag, property, duration_ns)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			runID, e.Index, e.Crate, e.Function, string(e.Class), string(e.Kind), e.HarnessID,
			string(e.Verdict.Tag), e.Verdict.Property, int64(e.Verdict.Duration),
		)
		if err != nil {
			return fmt.Errorf("write entry %s: %w", e.Function, err)
		}
	}
	return nil
}

func writeSkips(ctx context.Context, tx *sql.Tx, runID string, skips []ir.Skip) error {
	for _, sk := range skips {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO skips (run_id, idx, crate, function, reason, detail)
			VALUES (?, ?, ?, ?, ?, ?)
		`, runID, sk.Index, sk.Crate, sk.Function, string(sk.Reason), sk.Detail)
		if err != nil {
			return fmt.Errorf("write skip %s: %w", sk.Function, err)
		}
	}
	return nil
}

func writeManual(ctx context.Context, tx *sql.Tx, runID string, manual []ir.ManualEntry) error {
	for pos, m := range manual {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO manual_results
			(run_id, pos, crate, harness, target, kind, harness_id, tag, property, duration_ns)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			runID, pos, m.Crate, m.Harness, m.Target, string(m.Kind), m.HarnessID,
			string(m.Verdict.Tag), m.Verdict.Property, int64(m.Verdict.Duration),
		)
		if err != nil {
			return fmt.Errorf("write manual result %s: %w", m.Harness, err)
		}
	}
	return nil
}
