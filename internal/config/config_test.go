package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/autoverify/internal/ir"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, ir.DefaultLimits(), cfg.Limits())
	assert.Equal(t, BackendProcess, cfg.Backend.Kind)
	assert.Zero(t, cfg.Jobs)
	assert.Empty(t, cfg.Record)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
harness-timeout: 5s
default-unwind: 0
jobs: 4
include: ["alignment"]
exclude: ["as_usize"]
record: runs.db
backend:
  kind: process
  command: kani-driver
  args: ["--quiet"]
  grace-period: 1s
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.HarnessTimeout)
	assert.Equal(t, 0, cfg.DefaultUnwind)
	assert.Equal(t, 4, cfg.Jobs)
	assert.Equal(t, []string{"alignment"}, cfg.Include)
	assert.Equal(t, []string{"as_usize"}, cfg.Exclude)
	assert.Equal(t, "runs.db", cfg.Record)
	assert.Equal(t, "kani-driver", cfg.Backend.Command)
	assert.Equal(t, []string{"--quiet"}, cfg.Backend.Args)
	assert.Equal(t, time.Second, cfg.Backend.GracePeriod)
	assert.NoError(t, cfg.Validate())
}

func TestLoadKeepsAbsentFields(t *testing.T) {
	path := writeConfig(t, "jobs: 2\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Jobs)
	assert.Equal(t, ir.DefaultTimeout, cfg.HarnessTimeout)
	assert.Equal(t, ir.DefaultUnwind, cfg.DefaultUnwind)
}

func TestLoadEmptyFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadRejectsUnknownField(t *testing.T) {
	_, err := Load(writeConfig(t, "harness_timeout: 5s\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config YAML")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadResolvesScriptPath(t *testing.T) {
	path := writeConfig(t, "backend:\n  kind: scripted\n  script: outcomes.yaml\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "outcomes.yaml"), cfg.Backend.Script)
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()

	cfg, found, err := Discover(dir)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, Default(), cfg)

	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("default-unwind: 7\n"), 0o644))
	cfg, found, err = Discover(dir)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 7, cfg.DefaultUnwind)
}

func TestValidate(t *testing.T) {
	valid := Default()
	valid.Backend.Command = "kani"

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"zero timeout", func(c *Config) { c.HarnessTimeout = 0 }, "harness-timeout must be positive"},
		{"negative unwind", func(c *Config) { c.DefaultUnwind = -1 }, "default-unwind must be non-negative"},
		{"negative jobs", func(c *Config) { c.Jobs = -2 }, "jobs must be non-negative"},
		{"process without command", func(c *Config) { c.Backend.Command = "" }, "backend.command is required"},
		{"scripted without script", func(c *Config) { c.Backend.Kind = BackendScripted }, "backend.script is required"},
		{"unknown kind", func(c *Config) { c.Backend.Kind = "remote" }, `unknown backend kind "remote"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
