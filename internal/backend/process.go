package backend

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/roach88/autoverify/internal/ir"
)

// Checker exit codes. Any other status is a tool fault.
const (
	ExitVerified = 0
	ExitFailed   = 10
)

// DefaultGracePeriod is the time between SIGINT and SIGKILL when a checker
// process group is terminated on deadline.
const DefaultGracePeriod = 3 * time.Second

// Output markers recognized in checker stdout.
const (
	markerSuccessful = "VERIFICATION:- SUCCESSFUL"
	markerFailed     = "VERIFICATION:- FAILED"
	markerCheck      = "Failed Checks:"
)

// Request is the JSON document written to the checker's stdin.
type Request struct {
	Harness ir.Harness `json:"harness"`
	Limits  Limits     `json:"limits"`
}

// Limits is the wire form of ir.Limits.
type Limits struct {
	TimeoutMS int64 `json:"timeout_ms"`
	Unwind    int   `json:"unwind"`
}

// Process runs an external checker once per harness.
//
// The checker receives a Request on stdin plus "--harness <name>" and, when
// the unwinding bound is fixed, "--unwind <n>". It reports through its exit
// status and stdout markers:
//
//	VERIFICATION:- SUCCESSFUL   (exit 0)
//	VERIFICATION:- FAILED       (exit 10)
//	Failed Checks: <predicate>  (one line per violated check)
type Process struct {
	Command string
	Args    []string

	// Env is the checker environment. Nil inherits the current process environment.
	Env []string

	// GracePeriod overrides DefaultGracePeriod when positive.
	GracePeriod time.Duration

	Logger *slog.Logger
}

// NewProcess creates a backend that runs command with args.
func NewProcess(command string, args ...string) *Process {
	return &Process{Command: command, Args: args}
}

// Name implements driver.Backend.
func (p *Process) Name() string {
	return "process:" + filepath.Base(p.Command)
}

// Verify implements driver.Backend.
func (p *Process) Verify(ctx context.Context, h ir.Harness, limits ir.Limits) (ir.Verdict, error) {
	payload, err := json.Marshal(Request{
		Harness: h,
		Limits:  Limits{TimeoutMS: limits.Timeout.Milliseconds(), Unwind: limits.Unwind},
	})
	if err != nil {
		return ir.Verdict{}, fmt.Errorf("encoding harness %s: %w", h.Name, err)
	}

	args := append([]string{}, p.Args...)
	args = append(args, "--harness", h.Name)
	if limits.Unwind > 0 {
		args = append(args, "--unwind", strconv.Itoa(limits.Unwind))
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.Command(p.Command, args...)
	cmd.Env = p.Env
	cmd.Stdin = bytes.NewReader(payload)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	// Own process group so a deadline kills the checker and its children.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		return ir.Verdict{}, fmt.Errorf("failed to start checker: %w", err)
	}
	pgid := cmd.Process.Pid
	p.logger().Debug("checker started", "harness", h.Name, "pid", pgid)

	waitDone := make(chan error, 1)
	go func() {
		waitDone <- cmd.Wait()
	}()

	var runErr error
	select {
	case runErr = <-waitDone:
	case <-ctx.Done():
		p.killProcessGroup(pgid, waitDone)
		p.logger().Debug("checker killed", "harness", h.Name, "pid", pgid, "reason", ctx.Err())
		return ir.Verdict{}, ctx.Err()
	}

	code := 0
	if runErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) {
			return ir.Verdict{}, fmt.Errorf("checker failed: %w", runErr)
		}
		code = exitErr.ExitCode()
	}

	tag, prop, found := ParseOutput(&stdout)
	switch {
	case code != ExitVerified && code != ExitFailed:
		return ir.Verdict{}, fmt.Errorf("checker exited with status %d: %s", code, lastLine(stderr.String()))
	case !found:
		return ir.Verdict{}, fmt.Errorf("checker output has no verification result")
	case code == ExitVerified && tag != ir.VerdictSuccess, code == ExitFailed && tag != ir.VerdictFailure:
		return ir.Verdict{}, fmt.Errorf("checker exit status %d disagrees with reported result %s", code, tag)
	}

	if prop == "" {
		if tag == ir.VerdictFailure {
			prop = firstProperty(h)
		} else {
			prop = satisfiedProperty(h)
		}
	}
	return ir.Verdict{Tag: tag, Property: prop}, nil
}

// ParseOutput scans checker stdout for the verification result and the first
// violated check. found is false when no result marker is present.
func ParseOutput(r io.Reader) (tag ir.VerdictTag, property string, found bool) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(line, markerSuccessful):
			tag, found = ir.VerdictSuccess, true
		case strings.HasPrefix(line, markerFailed):
			tag, found = ir.VerdictFailure, true
		case strings.HasPrefix(line, markerCheck) && property == "":
			property = strings.TrimSpace(strings.TrimPrefix(line, markerCheck))
		}
	}
	return tag, property, found
}

// killProcessGroup sends SIGINT to the process group and, if the leader has
// not exited within the grace period, SIGKILL. Returns once the leader is reaped.
func (p *Process) killProcessGroup(pgid int, waitDone <-chan error) {
	grace := p.GracePeriod
	if grace <= 0 {
		grace = DefaultGracePeriod
	}
	_ = syscall.Kill(-pgid, syscall.SIGINT)

	timer := time.NewTimer(grace)
	defer timer.Stop()
	select {
	case <-waitDone:
	case <-timer.C:
		_ = syscall.Kill(-pgid, syscall.SIGKILL)
		<-waitDone
	}
}

func (p *Process) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
