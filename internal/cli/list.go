package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/autoverify/internal/ir"
	"github.com/roach88/autoverify/internal/pipeline"
	"github.com/roach88/autoverify/internal/report"
	"github.com/roach88/autoverify/internal/selector"
)

// ListOptions holds flags for the list command.
type ListOptions struct {
	*RootOptions
	RunFlags
}

// ListResult is the JSON payload of the list command.
type ListResult struct {
	Crate     string         `json:"crate"`
	Harnesses []ir.Harness   `json:"harnesses"`
	Skipped   []ir.Skip      `json:"skipped"`
	Covered   []string       `json:"covered,omitempty"`
	Manual    []ManualResult `json:"manual"`
}

// ManualResult is one manual harness in the list payload.
type ManualResult struct {
	Harness ir.Harness `json:"harness"`
	Error   string     `json:"error,omitempty"`
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list <metadata>",
		Short: "Show which harnesses would run",
		Long: `Select and synthesize harnesses without running a backend.

Prints the functions selected for automatic verification with the harness
each would get, the functions that would be skipped and why, and the manual
harnesses found in the unit.

Examples:
  autoverify list ./target/metadata
  autoverify list unit.cue --exclude-function internal:: --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(opts, args[0], cmd)
		},
	}

	opts.register(cmd)

	return cmd
}

func runList(opts *ListOptions, metadataPath string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	cfg, err := opts.settings(cmd, metadataPath)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, err.Error(), err)
	}

	unit, err := loadUnit(formatter, metadataPath)
	if err != nil {
		return err
	}

	plan := pipeline.Prepare(unit, pipeline.Options{
		Limits: cfg.Limits(),
		Filter: selector.Options{Include: cfg.Include, Exclude: cfg.Exclude},
		Logger: opts.Logger(cmd.ErrOrStderr()),
	})

	if formatter.IsJSON() {
		return formatter.Success(listResult(plan))
	}
	return report.PlanText(cmd.OutOrStdout(), planView(plan))
}

func listResult(plan *pipeline.Plan) ListResult {
	res := ListResult{
		Crate:     plan.Crate,
		Harnesses: []ir.Harness{},
		Skipped:   []ir.Skip{},
		Covered:   plan.Selection.Covered,
		Manual:    []ManualResult{},
	}
	for _, p := range plan.Harnesses {
		res.Harnesses = append(res.Harnesses, p.Harness)
	}
	for _, s := range plan.Skips {
		res.Skipped = append(res.Skipped, skipOf(s))
	}
	for _, m := range plan.Manual {
		mr := ManualResult{Harness: m.Harness}
		if m.Err != nil {
			mr.Error = m.Err.Error()
		}
		res.Manual = append(res.Manual, mr)
	}
	return res
}

func planView(plan *pipeline.Plan) report.Plan {
	view := report.Plan{
		Crate:   plan.Crate,
		Limits:  plan.Limits,
		Covered: plan.Selection.Covered,
	}
	for _, p := range plan.Harnesses {
		view.Auto = append(view.Auto, planEntry(p.Harness))
	}
	for _, s := range plan.Skips {
		view.Skipped = append(view.Skipped, skipOf(s))
	}
	for _, m := range plan.Manual {
		e := planEntry(m.Harness)
		if m.Err != nil {
			e.Problem = m.Err.Error()
		}
		view.Manual = append(view.Manual, e)
	}
	return view
}

func planEntry(h ir.Harness) report.PlanEntry {
	return report.PlanEntry{
		Crate:    h.Crate,
		Function: h.Target,
		Harness:  h.Name,
		Kind:     h.Kind,
		Unwind:   h.Limits.Unwind,
	}
}

func skipOf(s pipeline.PlannedSkip) ir.Skip {
	return ir.Skip{
		Index:    s.Candidate.Index,
		Crate:    s.Candidate.Crate,
		Function: s.Candidate.Name,
		Reason:   s.Reason,
		Detail:   s.Detail,
	}
}
