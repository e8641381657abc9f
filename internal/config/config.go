// Package config loads autoverify settings from an optional YAML file.
// Command-line flags override file values; see internal/cli.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/autoverify/internal/ir"
)

// FileName is the config file looked up in the metadata directory.
const FileName = "autoverify.yaml"

// Backend kinds.
const (
	BackendProcess  = "process"
	BackendScripted = "scripted"
)

// Config holds run settings.
type Config struct {
	// HarnessTimeout bounds each harness invocation.
	HarnessTimeout time.Duration `yaml:"harness-timeout"`

	// DefaultUnwind is the unwinding bound for synthesized harnesses.
	// Zero means no fixed bound.
	DefaultUnwind int `yaml:"default-unwind"`

	// Jobs bounds concurrent backend invocations. Zero selects the CPU count.
	Jobs int `yaml:"jobs"`

	// Include and Exclude filter discovered functions by qualified name.
	Include []string `yaml:"include,omitempty"`
	Exclude []string `yaml:"exclude,omitempty"`

	Backend Backend `yaml:"backend"`

	// Record is the path of the SQLite run archive. Empty disables archiving.
	Record string `yaml:"record,omitempty"`
}

// Backend selects and configures the model-checking backend.
type Backend struct {
	// Kind is "process" or "scripted".
	Kind string `yaml:"kind"`

	// Command and Args start the checker for the process backend.
	Command string   `yaml:"command,omitempty"`
	Args    []string `yaml:"args,omitempty"`

	// Script is the outcome table for the scripted backend.
	// Relative paths resolve against the config file's directory.
	Script string `yaml:"script,omitempty"`

	// GracePeriod is the delay between SIGINT and SIGKILL on deadline.
	GracePeriod time.Duration `yaml:"grace-period,omitempty"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		HarnessTimeout: ir.DefaultTimeout,
		DefaultUnwind:  ir.DefaultUnwind,
		Backend:        Backend{Kind: BackendProcess},
	}
}

// Limits returns the harness limits these settings describe.
func (c Config) Limits() ir.Limits {
	return ir.Limits{Timeout: c.HarnessTimeout, Unwind: c.DefaultUnwind}
}

// Validate checks value ranges and backend completeness.
func (c Config) Validate() error {
	var errs []error
	if c.HarnessTimeout <= 0 {
		errs = append(errs, fmt.Errorf("harness-timeout must be positive, got %s", c.HarnessTimeout))
	}
	if c.DefaultUnwind < 0 {
		errs = append(errs, fmt.Errorf("default-unwind must be non-negative, got %d", c.DefaultUnwind))
	}
	if c.Jobs < 0 {
		errs = append(errs, fmt.Errorf("jobs must be non-negative, got %d", c.Jobs))
	}
	switch c.Backend.Kind {
	case BackendProcess:
		if c.Backend.Command == "" {
			errs = append(errs, errors.New("backend.command is required for the process backend"))
		}
	case BackendScripted:
		if c.Backend.Script == "" {
			errs = append(errs, errors.New("backend.script is required for the scripted backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown backend kind %q: must be %s or %s", c.Backend.Kind, BackendProcess, BackendScripted))
	}
	return errors.Join(errs...)
}

// Load reads a config file over the defaults. Fields absent from the file
// keep their default values; unknown fields are rejected.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("failed to parse config YAML %s: %w", path, err)
	}

	if cfg.Backend.Script != "" && !filepath.IsAbs(cfg.Backend.Script) {
		cfg.Backend.Script = filepath.Join(filepath.Dir(path), cfg.Backend.Script)
	}
	return cfg, nil
}

// Discover loads dir/autoverify.yaml when it exists and returns the defaults
// otherwise. found reports whether a file was read.
func Discover(dir string) (cfg Config, found bool, err error) {
	path := filepath.Join(dir, FileName)
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return Default(), false, nil
	}
	cfg, err = Load(path)
	return cfg, err == nil, err
}
