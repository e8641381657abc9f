// Package pipeline runs one verification pass over a compilation unit:
// select candidates, synthesize harnesses, execute them on a backend, and
// aggregate the verdicts into a run report.
//
// The report is threaded through the stages as an owned value. Nothing is
// shared between runs, so two runs over the same unit with a deterministic
// backend produce reports with equal digests.
package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/autoverify/internal/aggregate"
	"github.com/roach88/autoverify/internal/driver"
	"github.com/roach88/autoverify/internal/ir"
	"github.com/roach88/autoverify/internal/selector"
	"github.com/roach88/autoverify/internal/synth"
)

// Options configures a run.
type Options struct {
	// Limits are the defaults applied to synthesized harnesses.
	Limits ir.Limits

	// Filter restricts which functions are discovered.
	Filter selector.Options

	// Jobs bounds concurrent backend invocations. Zero selects the CPU count.
	Jobs int

	Logger *slog.Logger
	Clock  func() time.Time
	RunIDs RunIDGenerator
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o.Logger
}

// Planned pairs an eligible candidate with its synthesized harness.
type Planned struct {
	Candidate ir.Candidate
	Harness   ir.Harness
}

// ManualPlan is a user-authored harness ready to run. Err is set when the
// harness could not be prepared; it is reported as an Error verdict.
type ManualPlan struct {
	Harness ir.Harness
	Err     error
}

// PlannedSkip is a discovered candidate that will produce no verdict.
type PlannedSkip struct {
	Candidate ir.Candidate
	Reason    ir.SkipReason
	Detail    string
}

// Plan is everything decided before the backend runs.
type Plan struct {
	Crate     string
	Limits    ir.Limits
	Selection *selector.Selection
	Harnesses []Planned
	Skips     []PlannedSkip
	Manual    []ManualPlan
}

// NoCandidates reports whether no synthesized harness will run.
func (p *Plan) NoCandidates() bool {
	return len(p.Harnesses) == 0
}

// Result is the outcome of Run.
type Result struct {
	RunID     string
	StartedAt time.Time
	Plan      *Plan
	Report    *ir.RunReport
}

// Prepare selects candidates and synthesizes every harness without running
// the backend. Selection and synthesis errors become skips.
func Prepare(unit *ir.Unit, opts Options) *Plan {
	log := opts.logger()

	sel := selector.Select(unit, opts.Filter)
	plan := &Plan{Crate: unit.Crate, Limits: opts.Limits, Selection: sel}
	s := synth.New(unit)

	for _, c := range sel.Candidates {
		if !c.Eligible() {
			plan.Skips = append(plan.Skips, PlannedSkip{Candidate: c, Reason: c.Reason, Detail: c.Detail})
			log.Debug("skipped at selection", "function", c.Name, "reason", c.Reason)
			continue
		}

		h, err := s.Synthesize(c, opts.Limits)
		if err != nil {
			reason, detail := ir.SkipUnsupportedType, err.Error()
			var pe *ir.PipelineError
			if errors.As(err, &pe) {
				if pe.Reason != "" {
					reason = pe.Reason
				}
				detail = pe.Message
			}
			plan.Skips = append(plan.Skips, PlannedSkip{Candidate: c, Reason: reason, Detail: detail})
			log.Debug("skipped at synthesis", "function", c.Name, "error", err)
			continue
		}
		plan.Harnesses = append(plan.Harnesses, Planned{Candidate: c, Harness: h})
	}

	for i := range sel.Manual {
		fn := &sel.Manual[i]
		h, err := s.Manual(fn, opts.Limits)
		if err != nil {
			crate := fn.Crate
			if crate == "" {
				crate = unit.Crate
			}
			target := fn.Name
			if fn.Harness.Target != "" {
				target = fn.Harness.Target
			}
			h = ir.Harness{Name: fn.Name, Target: target, Crate: crate, CandidateIndex: -1, Kind: fn.Harness.Kind, Manual: true, Limits: opts.Limits}
			log.Warn("manual harness not runnable", "harness", fn.Name, "error", err)
		}
		plan.Manual = append(plan.Manual, ManualPlan{Harness: h, Err: err})
	}

	if plan.NoCandidates() {
		log.Info(ir.NewNoCandidates(unit.Crate).Message)
	}
	return plan
}

// Run executes a full verification pass. Only harness execution is
// concurrent; the returned report lists results in discovery order.
//
// The returned error is non-nil only for an internal inconsistency between
// stages; per-candidate failures are recorded in the report.
func Run(ctx context.Context, unit *ir.Unit, backend driver.Backend, opts Options) (*Result, error) {
	log := opts.logger()
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	ids := opts.RunIDs
	if ids == nil {
		ids = UUIDv7Generator{}
	}

	res := &Result{RunID: ids.Generate(), StartedAt: now().UTC()}
	log.Info("run started", "run_id", res.RunID, "crate", unit.Crate, "backend", backend.Name())

	plan := Prepare(unit, opts)
	res.Plan = plan

	// Automatic harnesses first, then runnable manual harnesses, in one pool.
	harnesses := make([]ir.Harness, 0, len(plan.Harnesses)+len(plan.Manual))
	for _, p := range plan.Harnesses {
		harnesses = append(harnesses, p.Harness)
	}
	manualAt := make([]int, len(plan.Manual))
	for i, m := range plan.Manual {
		manualAt[i] = -1
		if m.Err == nil {
			manualAt[i] = len(harnesses)
			harnesses = append(harnesses, m.Harness)
		}
	}

	drv := driver.New(backend,
		driver.WithJobs(opts.Jobs),
		driver.WithLogger(log),
		driver.WithClock(now),
	)
	verdicts := drv.Run(ctx, harnesses)

	b := aggregate.NewBuilder(unit.Crate, opts.Limits)
	for i, p := range plan.Harnesses {
		if err := b.AddEntry(p.Candidate, p.Harness, verdicts[i]); err != nil {
			return nil, err
		}
	}
	for _, s := range plan.Skips {
		if err := b.AddSkip(s.Candidate, s.Reason, s.Detail); err != nil {
			return nil, err
		}
	}
	for i, m := range plan.Manual {
		v := ir.Verdict{HarnessID: m.Harness.ID, Tag: ir.VerdictError}
		if manualAt[i] >= 0 {
			v = verdicts[manualAt[i]]
		} else {
			v.Property = m.Err.Error()
		}
		if err := b.AddManual(m.Harness, v); err != nil {
			return nil, err
		}
	}
	if err := b.SetCovered(plan.Selection.Covered); err != nil {
		return nil, err
	}

	res.Report = b.Finalize()
	log.Info("run finished",
		"run_id", res.RunID,
		"succeeded", res.Report.Counts.Succeeded,
		"failed", res.Report.Counts.Failed,
		"skipped", res.Report.Counts.Skipped,
		"manual_failed", res.Report.ManualCounts.Failed,
	)
	return res, nil
}
