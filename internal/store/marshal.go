package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/autoverify/internal/ir"
)

// marshalCovered converts the covered-function list to canonical JSON TEXT.
func marshalCovered(covered []string) (string, error) {
	data, err := ir.MarshalCanonical(ir.Strings(covered))
	if err != nil {
		return "", fmt.Errorf("marshal covered: %w", err)
	}
	return string(data), nil
}

// unmarshalCovered parses the covered-function list. An empty list reads as nil,
// matching a report built without covered functions.
func unmarshalCovered(text string) ([]string, error) {
	var covered []string
	if err := json.Unmarshal([]byte(text), &covered); err != nil {
		return nil, fmt.Errorf("unmarshal covered: %w", err)
	}
	if len(covered) == 0 {
		return nil, nil
	}
	return covered, nil
}
