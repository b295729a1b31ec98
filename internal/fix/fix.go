// Package fix selects and applies the fixes attached to findings.
//
// Each fix is atomic: either all of its edits are applied or none. Fixes are
// considered in source order and a fix whose edits overlap an already
// accepted fix is skipped; running the lint pass again picks it up.
package fix

import (
	"errors"
	"fmt"
	"sort"

	"github.com/santosr2/esguard/pkg/sdk"
)

// ErrNoFixes is returned when no fixes were applied.
var ErrNoFixes = errors.New("no applicable fixes found")

// SkippedFix records a fix that was not applied and why.
type SkippedFix struct {
	Finding sdk.Finding
	Reason  string
}

// Result describes one application run over a single source text.
type Result struct {
	Output  []byte
	Applied []sdk.Finding
	Skipped []SkippedFix
	Edits   int
}

type candidate struct {
	finding sdk.Finding
	order   int
}

// Apply applies the fixes of findings to src. Findings must all refer to
// src; their edits are in src coordinates. src itself is not modified.
func Apply(src []byte, findings []sdk.Finding) (*Result, error) {
	result := &Result{Output: src}

	var candidates []candidate
	for i, f := range findings {
		if f.Fix == nil || len(f.Fix.Edits) == 0 {
			continue
		}
		candidates = append(candidates, candidate{finding: f, order: i})
	}
	if len(candidates) == 0 {
		return result, ErrNoFixes
	}
	sortCandidates(candidates)

	var accepted []sdk.Edit
	for _, c := range candidates {
		edits := c.finding.Fix.Edits
		if reason := checkEdits(edits, len(src)); reason != "" {
			result.Skipped = append(result.Skipped, SkippedFix{Finding: c.finding, Reason: reason})
			continue
		}
		if conflictsWithExisting(accepted, edits) {
			result.Skipped = append(result.Skipped, SkippedFix{
				Finding: c.finding,
				Reason:  "conflicts with previously applied edits",
			})
			continue
		}
		accepted = append(accepted, edits...)
		result.Applied = append(result.Applied, c.finding)
	}

	if len(result.Applied) == 0 {
		return result, ErrNoFixes
	}

	out, err := sdk.ApplyEdits(src, accepted)
	if err != nil {
		return result, fmt.Errorf("applying %d edits: %w", len(accepted), err)
	}
	result.Output = out
	result.Edits = len(accepted)
	return result, nil
}

// sortCandidates orders fixes by the start and end of the text they touch,
// then by the order the findings were reported in.
func sortCandidates(candidates []candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		si, sj := candidates[i].finding.Fix.Span(), candidates[j].finding.Fix.Span()
		if si.Start != sj.Start {
			return si.Start < sj.Start
		}
		if si.End != sj.End {
			return si.End < sj.End
		}
		return candidates[i].order < candidates[j].order
	})
}

func checkEdits(edits []sdk.Edit, n int) string {
	for i, e := range edits {
		if !e.Range.Valid(n) {
			return fmt.Sprintf("edit %s out of range", e.Range)
		}
		for _, other := range edits[:i] {
			if other.Range.Overlaps(e.Range) {
				return fmt.Sprintf("edits %s and %s overlap", other.Range, e.Range)
			}
		}
	}
	return ""
}

func conflictsWithExisting(existing []sdk.Edit, edits []sdk.Edit) bool {
	for _, prev := range existing {
		for _, e := range edits {
			if prev.Range.Overlaps(e.Range) {
				return true
			}
		}
	}
	return false
}
