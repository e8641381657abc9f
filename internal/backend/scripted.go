package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/autoverify/internal/ir"
)

// Result names a scripted outcome.
type Result string

const (
	ResultSuccess Result = "success"
	ResultFailure Result = "failure"
	ResultTimeout Result = "timeout"
	ResultError   Result = "error"
)

// Outcome is the scripted answer for one function or harness.
type Outcome struct {
	Result Result `yaml:"result"`

	// Property overrides the reported property text.
	// A failure without one reports the harness's first checked predicate.
	Property string `yaml:"property,omitempty"`

	// Fault is the error text for an error result.
	Fault string `yaml:"fault,omitempty"`

	// Delay simulates solver time. It is interrupted by the harness deadline.
	Delay time.Duration `yaml:"delay,omitempty"`
}

// Script is the outcome table of a Scripted backend.
//
// Example:
//
//	default: success
//	outcomes:
//	  max:
//	    result: failure
//	    property: "result == x"
//	  slow:
//	    result: timeout
type Script struct {
	Default  Result             `yaml:"default"`
	Outcomes map[string]Outcome `yaml:"outcomes"`
}

// Scripted is a deterministic backend that answers from a Script.
// Outcomes are looked up by harness target, then by harness name.
type Scripted struct {
	script Script
}

// NewScripted creates a backend from an in-memory script.
// An empty default result means success.
func NewScripted(script Script) (*Scripted, error) {
	if script.Default == "" {
		script.Default = ResultSuccess
	}
	if err := validResult(script.Default); err != nil {
		return nil, fmt.Errorf("default: %w", err)
	}
	for name, o := range script.Outcomes {
		if err := validResult(o.Result); err != nil {
			return nil, fmt.Errorf("outcomes.%s: %w", name, err)
		}
	}
	return &Scripted{script: script}, nil
}

// LoadScript reads a YAML outcome table from disk.
func LoadScript(path string) (*Scripted, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script file %s: %w", path, err)
	}
	s, err := ParseScript(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// ParseScript parses a YAML outcome table. Unknown fields are rejected.
func ParseScript(data []byte) (*Scripted, error) {
	var script Script
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&script); err != nil {
		return nil, fmt.Errorf("failed to parse script YAML: %w", err)
	}
	return NewScripted(script)
}

// Name implements driver.Backend.
func (s *Scripted) Name() string { return "scripted" }

// Verify implements driver.Backend.
func (s *Scripted) Verify(ctx context.Context, h ir.Harness, _ ir.Limits) (ir.Verdict, error) {
	o, ok := s.script.Outcomes[h.Target]
	if !ok {
		o, ok = s.script.Outcomes[h.Name]
	}
	if !ok {
		o = Outcome{Result: s.script.Default}
	}

	if o.Delay > 0 {
		timer := time.NewTimer(o.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ir.Verdict{}, ctx.Err()
		case <-timer.C:
		}
	}

	switch o.Result {
	case ResultFailure:
		prop := o.Property
		if prop == "" {
			prop = firstProperty(h)
		}
		return ir.Verdict{Tag: ir.VerdictFailure, Property: prop}, nil

	case ResultTimeout:
		if _, hasDeadline := ctx.Deadline(); !hasDeadline {
			return ir.Verdict{Tag: ir.VerdictTimeout, Property: o.Property}, nil
		}
		<-ctx.Done()
		return ir.Verdict{}, ctx.Err()

	case ResultError:
		fault := o.Fault
		if fault == "" {
			fault = "scripted fault"
		}
		return ir.Verdict{}, errors.New(fault)

	default:
		prop := o.Property
		if prop == "" {
			prop = satisfiedProperty(h)
		}
		return ir.Verdict{Tag: ir.VerdictSuccess, Property: prop}, nil
	}
}

func validResult(r Result) error {
	switch r {
	case ResultSuccess, ResultFailure, ResultTimeout, ResultError:
		return nil
	}
	return fmt.Errorf("unknown result %q: must be success, failure, timeout, or error", r)
}
