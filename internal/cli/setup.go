package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/autoverify/internal/backend"
	"github.com/roach88/autoverify/internal/compiler"
	"github.com/roach88/autoverify/internal/config"
	"github.com/roach88/autoverify/internal/driver"
	"github.com/roach88/autoverify/internal/ir"
)

// RunFlags holds the flags shared by verify and list.
type RunFlags struct {
	ConfigPath     string
	HarnessTimeout time.Duration
	DefaultUnwind  int
	Jobs           int
	Include        []string
	Exclude        []string
	Backend        string
	Checker        string
	CheckerArgs    []string
	Script         string
	Record         string
}

func (f *RunFlags) register(cmd *cobra.Command) {
	def := config.Default()
	flags := cmd.Flags()
	flags.StringVar(&f.ConfigPath, "config", "", "config file (default: "+config.FileName+" next to the metadata)")
	flags.DurationVar(&f.HarnessTimeout, "harness-timeout", def.HarnessTimeout, "time bound for each automatic harness")
	flags.IntVar(&f.DefaultUnwind, "default-unwind", def.DefaultUnwind, "unwinding bound for automatic harnesses (0 = no fixed bound)")
	flags.StringSliceVar(&f.Include, "include-function", nil, "only discover functions whose name contains one of these patterns")
	flags.StringSliceVar(&f.Exclude, "exclude-function", nil, "do not discover functions whose name contains one of these patterns")
}

func (f *RunFlags) registerBackend(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.IntVarP(&f.Jobs, "jobs", "j", 0, "concurrent harness executions (0 = number of CPUs)")
	flags.StringVar(&f.Backend, "backend", config.BackendProcess, "backend kind (process|scripted)")
	flags.StringVar(&f.Checker, "checker", "", "checker command for the process backend")
	flags.StringArrayVar(&f.CheckerArgs, "checker-arg", nil, "extra argument passed to the checker (repeatable)")
	flags.StringVar(&f.Script, "script", "", "outcome table for the scripted backend")
	flags.StringVar(&f.Record, "record", "", "archive the finished run into this SQLite database")
}

// settings resolves the effective configuration: defaults, then the config
// file, then any flag the user set explicitly.
func (f *RunFlags) settings(cmd *cobra.Command, metadataPath string) (config.Config, error) {
	var (
		cfg config.Config
		err error
	)
	if f.ConfigPath != "" {
		cfg, err = config.Load(f.ConfigPath)
	} else {
		cfg, _, err = config.Discover(configDir(metadataPath))
	}
	if err != nil {
		return cfg, err
	}

	changed := cmd.Flags().Changed
	if changed("harness-timeout") {
		cfg.HarnessTimeout = f.HarnessTimeout
	}
	if changed("default-unwind") {
		cfg.DefaultUnwind = f.DefaultUnwind
	}
	if changed("jobs") {
		cfg.Jobs = f.Jobs
	}
	if changed("include-function") {
		cfg.Include = f.Include
	}
	if changed("exclude-function") {
		cfg.Exclude = f.Exclude
	}
	if changed("record") {
		cfg.Record = f.Record
	}
	if changed("checker") {
		cfg.Backend.Kind = config.BackendProcess
		cfg.Backend.Command = f.Checker
	}
	if changed("checker-arg") {
		cfg.Backend.Args = f.CheckerArgs
	}
	if changed("script") {
		cfg.Backend.Kind = config.BackendScripted
		cfg.Backend.Script = f.Script
	}
	if changed("backend") {
		cfg.Backend.Kind = f.Backend
	}
	return cfg, nil
}

// configDir is where an implicit config file is looked up.
func configDir(metadataPath string) string {
	if info, err := os.Stat(metadataPath); err == nil && info.IsDir() {
		return metadataPath
	}
	return filepath.Dir(metadataPath)
}

// newBackend constructs the backend named by cfg.
func newBackend(cfg config.Config, log *slog.Logger) (driver.Backend, error) {
	switch cfg.Backend.Kind {
	case config.BackendScripted:
		s, err := backend.LoadScript(cfg.Backend.Script)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.BackendProcess:
		p := backend.NewProcess(cfg.Backend.Command, cfg.Backend.Args...)
		p.Logger = log
		p.GracePeriod = cfg.Backend.GracePeriod
		return p, nil
	default:
		return nil, fmt.Errorf("unknown backend kind %q", cfg.Backend.Kind)
	}
}

// loadUnit loads metadata and reports a MetadataError through the formatter.
// Failure to obtain metadata is the one fatal error of a run.
func loadUnit(f *OutputFormatter, path string) (*ir.Unit, error) {
	unit, err := compiler.LoadUnit(path)
	if err == nil {
		f.VerboseLog("Loaded crate %s: %d function(s)", unit.Crate, len(unit.Functions))
		return unit, nil
	}

	var me *compiler.MetadataError
	if errors.As(err, &me) {
		msg := me.Message
		if me.Pos.IsValid() {
			msg = fmt.Sprintf("%s:%d:%d: %s", me.Pos.Filename(), me.Pos.Line(), me.Pos.Column(), me.Message)
		}
		return nil, f.Fail(ExitCommandError, me.Code, msg, err)
	}
	return nil, f.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), err)
}
