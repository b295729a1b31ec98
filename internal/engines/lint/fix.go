package lint

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/santosr2/esguard/internal/fix"
	"github.com/santosr2/esguard/internal/parse"
	"github.com/santosr2/esguard/pkg/sdk"
)

// MaxFixPasses bounds the lint-and-fix loop for one file.
const MaxFixPasses = 10

// FixResult describes the fixes applied to one file.
type FixResult struct {
	File      string
	Original  []byte
	Output    []byte
	Applied   []sdk.Finding // findings whose fixes were applied, over all passes
	Remaining []sdk.Finding // findings left in the output
	Passes    int
}

// Changed reports whether fixing modified the file contents.
func (r *FixResult) Changed() bool {
	return !bytes.Equal(r.Original, r.Output)
}

// FixSource lints content and applies fixes until no more apply. Files that
// the frontend cannot parse again after rewriting get a single pass.
func (e *Engine) FixSource(ctx context.Context, path string, content []byte) (*FixResult, error) {
	result := &FixResult{File: path, Original: content, Output: content}
	reparse := parse.CanReparse(e.frontend, path)

	findings, err := e.CheckSource(ctx, path, content)
	if err != nil {
		return nil, err
	}

	for result.Passes < MaxFixPasses {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		applied, err := fix.Apply(result.Output, findings)
		if errors.Is(err, fix.ErrNoFixes) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("fixing %s: %w", path, err)
		}
		result.Passes++
		result.Output = applied.Output
		result.Applied = append(result.Applied, applied.Applied...)

		if !reparse {
			findings = withoutFindings(findings, applied.Applied)
			break
		}
		findings, err = e.CheckSource(ctx, path, result.Output)
		if err != nil {
			return nil, err
		}
	}

	result.Remaining = findings
	return result, nil
}

// withoutFindings drops the applied findings from all. Fixes from a single
// pass leave the rest of the findings pointing at stale offsets, so their
// fixes are dropped too.
func withoutFindings(all, applied []sdk.Finding) []sdk.Finding {
	done := make(map[sdk.Finding]bool, len(applied))
	for _, f := range applied {
		done[stripFix(f)] = true
	}
	var out []sdk.Finding
	for _, f := range all {
		if f = stripFix(f); !done[f] {
			out = append(out, f)
		}
	}
	return out
}

func stripFix(f sdk.Finding) sdk.Finding {
	f.Fix = nil
	f.Fixable = false
	return f
}

// Fix applies fixes to files. When write is set, changed files are written
// back in place.
func (e *Engine) Fix(ctx context.Context, files []string, write bool) ([]*FixResult, error) {
	if e.initErr != nil {
		return nil, e.initErr
	}

	results := make([]*FixResult, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.jobs())

	for i, file := range files {
		g.Go(func() error {
			content, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("reading %s: %w", file, err)
			}
			res, err := e.FixSource(gctx, file, content)
			if err != nil {
				return err
			}
			if write && res.Changed() {
				mode := os.FileMode(0o644)
				if info, err := os.Stat(file); err == nil {
					mode = info.Mode()
				}
				if err := os.WriteFile(file, res.Output, mode); err != nil {
					return fmt.Errorf("write %s: %w", file, err)
				}
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
