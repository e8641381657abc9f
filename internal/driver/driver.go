// Package driver executes harnesses against a model-checking backend.
//
// Harnesses run on a bounded worker pool. Each invocation gets its own
// deadline from the harness limits; exceeding it yields a Timeout verdict
// for that harness only. Verdicts are returned in input order regardless of
// completion order.
package driver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/autoverify/internal/ir"
)

// Backend verifies one harness and returns its verdict.
//
// Implementations must honor ctx: the driver cancels it when the harness
// time bound is exceeded. A returned error is a tool fault, not a
// counterexample; counterexamples are Failure verdicts.
type Backend interface {
	Name() string
	Verify(ctx context.Context, h ir.Harness, limits ir.Limits) (ir.Verdict, error)
}

// BackendFunc adapts a function to the Backend interface.
type BackendFunc func(ctx context.Context, h ir.Harness, limits ir.Limits) (ir.Verdict, error)

// Name implements Backend.
func (f BackendFunc) Name() string { return "func" }

// Verify implements Backend.
func (f BackendFunc) Verify(ctx context.Context, h ir.Harness, limits ir.Limits) (ir.Verdict, error) {
	return f(ctx, h, limits)
}

// Driver schedules harness executions.
type Driver struct {
	backend Backend
	jobs    int
	logger  *slog.Logger
	now     func() time.Time
	drain   time.Duration
}

// DefaultDrain is how long the driver waits, after a harness deadline, for
// the backend to return and release its resources.
const DefaultDrain = 5 * time.Second

// Option configures a Driver.
type Option func(*Driver)

// WithJobs bounds the number of concurrent backend invocations.
// Values below 1 select runtime.NumCPU().
func WithJobs(n int) Option {
	return func(d *Driver) {
		if n > 0 {
			d.jobs = n
		}
	}
}

// WithLogger sets the logger. The default discards output.
func WithLogger(l *slog.Logger) Option {
	return func(d *Driver) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithClock sets the time source used to measure wall-clock cost.
func WithClock(now func() time.Time) Option {
	return func(d *Driver) {
		if now != nil {
			d.now = now
		}
	}
}

// WithDrain sets how long to wait for a backend to return once its
// deadline has passed. Negative values are ignored.
func WithDrain(d time.Duration) Option {
	return func(dr *Driver) {
		if d >= 0 {
			dr.drain = d
		}
	}
}

// New creates a driver for backend.
func New(backend Backend, opts ...Option) *Driver {
	d := &Driver{
		backend: backend,
		jobs:    runtime.NumCPU(),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:     time.Now,
		drain:   DefaultDrain,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Jobs returns the worker pool size.
func (d *Driver) Jobs() int {
	return d.jobs
}

type job struct {
	index   int
	harness ir.Harness
}

type result struct {
	index   int
	verdict ir.Verdict
}

// Run executes every harness and returns one verdict per harness, at the
// same index.
//
// Cancelling ctx after Run starts does not stop queued or in-flight
// harnesses; only the per-harness deadline cancels an invocation.
func (d *Driver) Run(ctx context.Context, harnesses []ir.Harness) []ir.Verdict {
	verdicts := make([]ir.Verdict, len(harnesses))
	if len(harnesses) == 0 {
		return verdicts
	}

	ctx = context.WithoutCancel(ctx)

	workers := min(d.jobs, len(harnesses))
	queue := make(chan job)
	results := make(chan result, len(harnesses))

	d.logger.Info("verification started",
		"backend", d.backend.Name(),
		"harnesses", len(harnesses),
		"workers", workers)

	var g errgroup.Group
	g.Go(func() error {
		defer close(queue)
		for i, h := range harnesses {
			queue <- job{index: i, harness: h}
		}
		return nil
	})
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for j := range queue {
				results <- result{index: j.index, verdict: d.Verify(ctx, j.harness)}
			}
			return nil
		})
	}
	_ = g.Wait() // workers never return errors
	close(results)

	for r := range results {
		verdicts[r.index] = r.verdict
	}

	d.logger.Info("verification finished", "harnesses", len(harnesses))
	return verdicts
}

// Verify executes one harness under its limits and returns exactly one
// verdict. Backend faults, panics, and exceeded deadlines are folded into
// the verdict.
//
// The deadline is enforced by the driver: once it passes the verdict is
// Timeout whatever the backend returns. A backend that has not returned
// within the drain period after the deadline is abandoned.
func (d *Driver) Verify(ctx context.Context, h ir.Harness) (v ir.Verdict) {
	start := d.now()

	var (
		callCtx context.Context
		cancel  context.CancelFunc
	)
	if h.Limits.Timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, h.Limits.Timeout)
	} else {
		callCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	defer func() {
		v.HarnessID = h.ID
		v.Duration = d.now().Sub(start)
		d.logger.Debug("harness verified",
			"harness", h.Name,
			"target", h.Target,
			"tag", v.Tag,
			"duration", v.Duration)
	}()

	done := make(chan outcome, 1)
	go func() {
		done <- d.call(callCtx, h)
	}()

	var out outcome
	select {
	case out = <-done:
	case <-callCtx.Done():
		drain := time.NewTimer(d.drain)
		select {
		case out = <-done:
		case <-drain.C:
			d.logger.Warn("backend ignored deadline; abandoning call", "harness", h.Name)
			out.err = callCtx.Err()
		}
		drain.Stop()
	}

	if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		timeout := ir.NewBackendTimeout(h.Target, h.Limits)
		d.logger.Warn("harness timed out", "harness", h.Name, "limit", h.Limits.Timeout)
		return ir.Verdict{Tag: ir.VerdictTimeout, Property: timeout.Message}
	}
	if out.err != nil {
		return d.fault(h, out.err)
	}

	switch out.verdict.Tag {
	case ir.VerdictSuccess, ir.VerdictFailure, ir.VerdictTimeout, ir.VerdictError:
		return out.verdict
	default:
		return d.fault(h, fmt.Errorf("backend returned unknown verdict tag %q", out.verdict.Tag))
	}
}

type outcome struct {
	verdict ir.Verdict
	err     error
}

// call invokes the backend, converting a panic into an error.
func (d *Driver) call(ctx context.Context, h ir.Harness) (out outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = outcome{err: fmt.Errorf("backend panic: %v", r)}
		}
	}()
	v, err := d.backend.Verify(ctx, h, h.Limits)
	return outcome{verdict: v, err: err}
}

func (d *Driver) fault(h ir.Harness, err error) ir.Verdict {
	fault := ir.NewBackendFault(h.Target, err)
	d.logger.Warn("backend fault", "harness", h.Name, "error", fault)
	return ir.Verdict{Tag: ir.VerdictError, Property: err.Error()}
}
