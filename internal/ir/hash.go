package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainHarness = "autoverify/harness/v1"
	DomainReport  = "autoverify/report/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// HarnessID computes the content-addressed ID of a harness.
// The ID field itself is ignored, so HarnessID(h) is stable after assignment.
func HarnessID(h Harness) (string, error) {
	inputs := make(IRArray, len(h.Inputs))
	for i, in := range h.Inputs {
		inputs[i] = IRObject{"name": IRString(in.Name), "type": IRString(in.Type)}
	}

	obj := IRObject{
		"name":            IRString(h.Name),
		"target":          IRString(h.Target),
		"crate":           IRString(h.Crate),
		"kind":            IRString(h.Kind),
		"manual":          IRBool(h.Manual),
		"inputs":          inputs,
		"limits":          limitsObject(h.Limits),
		"requires":        Strings(h.Requires),
		"ensures":         Strings(h.Ensures),
		"assertions":      Strings(h.Assertions),
		"loop_invariants": Strings(h.LoopInvariants),
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("HarnessID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainHarness, canonical), nil
}

// ReportDigest computes a digest over everything in a report except
// wall-clock cost. Two runs over identical metadata with a deterministic
// backend produce the same digest.
func ReportDigest(r *RunReport) (string, error) {
	entries := make(IRArray, len(r.Entries))
	for i, e := range r.Entries {
		entries[i] = IRObject{
			"index":          IRInt(e.Index),
			"crate":          IRString(e.Crate),
			"function":       IRString(e.Function),
			"classification": IRString(e.Class),
			"kind":           IRString(e.Kind),
			"harness_id":     IRString(e.HarnessID),
			"verdict":        verdictObject(e.Verdict),
		}
	}

	skipped := make(IRArray, len(r.Skipped))
	for i, s := range r.Skipped {
		skipped[i] = IRObject{
			"index":    IRInt(s.Index),
			"crate":    IRString(s.Crate),
			"function": IRString(s.Function),
			"reason":   IRString(s.Reason),
			"detail":   IRString(s.Detail),
		}
	}

	manual := make(IRArray, len(r.Manual))
	for i, m := range r.Manual {
		manual[i] = IRObject{
			"crate":      IRString(m.Crate),
			"harness":    IRString(m.Harness),
			"target":     IRString(m.Target),
			"kind":       IRString(m.Kind),
			"harness_id": IRString(m.HarnessID),
			"verdict":    verdictObject(m.Verdict),
		}
	}

	obj := IRObject{
		"version":       IRString(r.Version),
		"crate":         IRString(r.Crate),
		"limits":        limitsObject(r.Limits),
		"entries":       entries,
		"skipped":       skipped,
		"manual":        manual,
		"covered":       Strings(r.Covered),
		"counts":        countsObject(r.Counts),
		"manual_counts": countsObject(r.ManualCounts),
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("ReportDigest: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainReport, canonical), nil
}

func limitsObject(l Limits) IRObject {
	return IRObject{
		"timeout_ms": IRInt(l.Timeout.Milliseconds()),
		"unwind":     IRInt(l.Unwind),
	}
}

func verdictObject(v Verdict) IRObject {
	return IRObject{
		"harness_id": IRString(v.HarnessID),
		"tag":        IRString(v.Tag),
		"property":   IRString(v.Property),
	}
}

func countsObject(c Counts) IRObject {
	return IRObject{
		"total":     IRInt(c.Total),
		"succeeded": IRInt(c.Succeeded),
		"failed":    IRInt(c.Failed),
		"skipped":   IRInt(c.Skipped),
	}
}

// MustHarnessID is like HarnessID but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustHarnessID(h Harness) string {
	id, err := HarnessID(h)
	if err != nil {
		panic(err)
	}
	return id
}
