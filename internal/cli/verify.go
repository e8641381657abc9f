package cli

import (
	"bytes"
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/autoverify/internal/pipeline"
	"github.com/roach88/autoverify/internal/report"
	"github.com/roach88/autoverify/internal/selector"
	"github.com/roach88/autoverify/internal/store"
)

// VerifyOptions holds flags for the verify command.
type VerifyOptions struct {
	*RootOptions
	RunFlags

	// RunIDs overrides run ID generation. Nil uses UUIDv7.
	RunIDs pipeline.RunIDGenerator
}

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &VerifyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "verify <metadata>",
		Short: "Synthesize and run automatic harnesses",
		Long: `Select eligible functions from compilation-unit metadata, synthesize a
proof harness for each, run every automatic and manual harness on the
backend, and print the report.

The metadata is a CUE or JSON file, or a directory of them.

Exit codes:
  0 - Every harness verified, or nothing was eligible
  1 - One or more automatic or manual harnesses did not verify
  2 - Command error (unreadable metadata, bad configuration, etc.)

Examples:
  autoverify verify ./target/metadata --checker kani-checker
  autoverify verify unit.cue --script outcomes.yaml --format json
  autoverify verify unit.cue --checker kani-checker --harness-timeout 5m --default-unwind 0
  autoverify verify unit.cue --checker kani-checker --include-function alignment --record runs.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(cmd.Context(), opts, args[0], cmd)
		},
	}

	opts.register(cmd)
	opts.registerBackend(cmd)

	return cmd
}

func runVerify(ctx context.Context, opts *VerifyOptions, metadataPath string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := opts.formatter(cmd)
	log := opts.Logger(cmd.ErrOrStderr())

	cfg, err := opts.settings(cmd, metadataPath)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, err.Error(), err)
	}
	if err := cfg.Validate(); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, fmt.Sprintf("invalid configuration: %v", err), err)
	}

	unit, err := loadUnit(formatter, metadataPath)
	if err != nil {
		return err
	}

	backend, err := newBackend(cfg, log)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeBackend, err.Error(), err)
	}
	formatter.VerboseLog("Backend %s, timeout %s, unwind %d, jobs %d", backend.Name(), cfg.HarnessTimeout, cfg.DefaultUnwind, cfg.Jobs)

	res, err := pipeline.Run(ctx, unit, backend, pipeline.Options{
		Limits: cfg.Limits(),
		Filter: selector.Options{Include: cfg.Include, Exclude: cfg.Exclude},
		Jobs:   cfg.Jobs,
		Logger: log,
		RunIDs: opts.RunIDs,
	})
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "run failed", err)
	}

	if cfg.Record != "" {
		if err := record(ctx, cfg.Record, res); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStore, fmt.Sprintf("failed to record run in %s", cfg.Record), err)
		}
		formatter.VerboseLog("Recorded run %s in %s", res.RunID, cfg.Record)
	}

	r := res.Report
	failures := r.Counts.Failed + r.ManualCounts.Failed
	if formatter.IsJSON() {
		doc, err := report.NewDocument(res.RunID, r)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeGeneric, "failed to build report document", err)
		}
		if err := formatter.Report(res.RunID, doc, failures); err != nil {
			return err
		}
	} else {
		var buf bytes.Buffer
		if err := report.Text(&buf, r, report.Options{Verbose: opts.Verbose}); err != nil {
			return err
		}
		if _, err := cmd.OutOrStdout().Write(buf.Bytes()); err != nil {
			return err
		}
	}

	if r.HasFailures() {
		return NewExitError(ExitFailure, fmt.Sprintf("%d harness(es) did not verify", failures))
	}
	return nil
}

func record(ctx context.Context, path string, res *pipeline.Result) error {
	s, err := store.Open(path)
	if err != nil {
		return err
	}
	defer s.Close()
	return s.WriteRun(ctx, res.RunID, res.StartedAt, res.Report)
}
