package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/autoverify/internal/report"
	"github.com/roach88/autoverify/internal/store"
)

// ShowOptions holds flags for the show command.
type ShowOptions struct {
	*RootOptions
	DBPath string
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShowOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Re-render an archived run",
		Long: `Print the report of a run recorded with verify --record.

The text output is identical to the report printed when the run finished
(without verbose durations). The exit code reflects the archived run.

Examples:
  autoverify show 01936f4e-8b1a-7c3d-9e2f-5a6b7c8d9e0f --db runs.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DBPath, "db", "", "path to the run archive (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runShow(opts *ShowOptions, runID string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	s, err := openArchive(formatter, opts.DBPath)
	if err != nil {
		return err
	}
	defer s.Close()

	r, err := s.ReadRun(cmd.Context(), runID)
	if errors.Is(err, store.ErrRunNotFound) {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("run not found: %s", runID), err)
	}
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to read run", err)
	}

	failures := r.Counts.Failed + r.ManualCounts.Failed
	if formatter.IsJSON() {
		doc, err := report.NewDocument(runID, r)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeGeneric, "failed to build report document", err)
		}
		if err := formatter.Report(runID, doc, failures); err != nil {
			return err
		}
	} else if err := report.Text(cmd.OutOrStdout(), r, report.Options{}); err != nil {
		return err
	}

	if r.HasFailures() {
		return NewExitError(ExitFailure, fmt.Sprintf("%d harness(es) did not verify", failures))
	}
	return nil
}
