package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/roach88/autoverify/internal/ir"
)

// Document is the machine-readable form of a run report.
type Document struct {
	// RunID names the run in the archive.
	RunID string `json:"run_id,omitempty"`

	// Digest identifies the report independent of wall-clock cost.
	Digest string `json:"digest"`

	// Summary is the one-line count, as in the text report.
	Summary string `json:"summary"`

	Report *ir.RunReport `json:"report"`
}

// NewDocument wraps r with its digest and summary line.
func NewDocument(runID string, r *ir.RunReport) (Document, error) {
	digest, err := ir.ReportDigest(r)
	if err != nil {
		return Document{}, fmt.Errorf("report digest: %w", err)
	}
	return Document{
		RunID:   runID,
		Digest:  digest,
		Summary: CountLine(r.Counts),
		Report:  r,
	}, nil
}

// JSON writes r as an indented Document.
func JSON(w io.Writer, runID string, r *ir.RunReport) error {
	doc, err := NewDocument(runID, r)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
