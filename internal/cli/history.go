package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/autoverify/internal/report"
	"github.com/roach88/autoverify/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	DBPath string
	Crate  string
	Limit  int
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List archived runs",
		Long: `List runs recorded with verify --record, newest first.

Examples:
  autoverify history --db runs.db
  autoverify history --db runs.db --crate fixtures --limit 5`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DBPath, "db", "", "path to the run archive (required)")
	cmd.Flags().StringVar(&opts.Crate, "crate", "", "only list runs of this crate")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum number of runs (0 = all)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	s, err := openArchive(formatter, opts.DBPath)
	if err != nil {
		return err
	}
	defer s.Close()

	runs, err := s.ListRuns(cmd.Context(), opts.Crate, opts.Limit)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, "failed to list runs", err)
	}

	if formatter.IsJSON() {
		return formatter.Success(runs)
	}

	rows := make([]report.HistoryRow, len(runs))
	for i, r := range runs {
		rows[i] = report.HistoryRow{
			ID:           r.ID,
			Crate:        r.Crate,
			StartedAt:    r.StartedAt,
			Counts:       r.Counts,
			ManualCounts: r.ManualCounts,
		}
	}
	return report.History(cmd.OutOrStdout(), rows)
}

// openArchive opens an existing archive. A missing file is a command error,
// not an empty archive.
func openArchive(f *OutputFormatter, path string) (*store.Store, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, f.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("archive not found: %s", path), err)
	}
	s, err := store.Open(path)
	if err != nil {
		return nil, f.Fail(ExitCommandError, ErrCodeStore, fmt.Sprintf("failed to open archive %s", path), err)
	}
	return s, nil
}
