package compiler

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/token"

	"github.com/roach88/autoverify/internal/ir"
)

// Metadata load error codes.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No metadata files found
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeInvalid     = "E007" // Compiled unit failed validation
)

// MetadataError is the fatal failure to obtain compilation-unit metadata.
// It is the only error that aborts a whole run.
type MetadataError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
	Err     error
}

func (e *MetadataError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *MetadataError) Unwrap() error {
	return e.Err
}

// IsMetadataError returns true if err is (or wraps) a MetadataError.
func IsMetadataError(err error) bool {
	var me *MetadataError
	return errors.As(err, &me)
}

// LoadUnit loads compilation-unit metadata from a file or a directory.
//
// A directory contributes every .cue and .json file beneath it, in lexical
// path order; each file is one fragment and fragments are concatenated in
// that order, which fixes the discovery order. JSON is a subset of CUE, so
// metadata exported as JSON by a compiler toolchain loads unchanged.
func LoadUnit(path string) (*ir.Unit, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, &MetadataError{Code: ErrCodeNotFound, Message: fmt.Sprintf("metadata path not found: %s", path), Err: err}
	}
	if err != nil {
		return nil, &MetadataError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing metadata path: %v", err), Err: err}
	}

	files := []string{path}
	if info.IsDir() {
		files, err = FindMetadataFiles(path)
		if err != nil {
			return nil, &MetadataError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err), Err: err}
		}
		if len(files) == 0 {
			return nil, &MetadataError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no .cue or .json files found in %s", path)}
		}
	}

	ctx := cuecontext.New()
	var unit *ir.Unit
	for _, file := range files {
		fragment, err := loadFragment(ctx, file)
		if err != nil {
			return nil, err
		}
		if unit == nil {
			unit = fragment
			continue
		}
		if fragment.Crate != unit.Crate {
			return nil, &MetadataError{
				Code:    ErrCodeInvalid,
				Message: fmt.Sprintf("[%s] %s declares crate %q, expected %q", ErrCrateMismatch, file, fragment.Crate, unit.Crate),
			}
		}
		unit.Arbitrary = append(unit.Arbitrary, fragment.Arbitrary...)
		unit.Functions = append(unit.Functions, fragment.Functions...)
	}

	if verrs := Validate(unit); len(verrs) > 0 {
		return nil, &MetadataError{
			Code:    ErrCodeInvalid,
			Message: fmt.Sprintf("%d validation error(s); first: %v", len(verrs), verrs[0]),
			Err:     verrs[0],
		}
	}

	return unit, nil
}

// loadFragment compiles one metadata file.
func loadFragment(ctx *cue.Context, file string) (*ir.Unit, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, &MetadataError{Code: ErrCodeNotFound, Message: fmt.Sprintf("reading %s: %v", file, err), Err: err}
	}

	value := ctx.CompileBytes(data, cue.Filename(file))
	if err := value.Err(); err != nil {
		return nil, &MetadataError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err), Err: err}
	}

	unit, err := CompileUnit(value)
	if err != nil {
		var compileErr *CompileError
		if errors.As(err, &compileErr) {
			return nil, &MetadataError{Code: ErrCodeBuildFailed, Message: err.Error(), Pos: compileErr.Pos, Err: err}
		}
		return nil, &MetadataError{Code: ErrCodeGeneric, Message: fmt.Sprintf("%s: %v", file, err), Err: err}
	}
	return unit, nil
}

// FindMetadataFiles walks the directory and returns all .cue and .json paths.
func FindMetadataFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		switch filepath.Ext(path) {
		case ".cue", ".json":
			files = append(files, path)
		}
		return nil
	})
	return files, err
}
