// Package main provides the fix command for esguard.
package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/santosr2/esguard/internal/engines/lint"
	"github.com/santosr2/esguard/internal/fix"
	"github.com/santosr2/esguard/internal/runner"
	"github.com/santosr2/esguard/pkg/sdk"
)

var fixDryRun bool

var fixCmd = &cobra.Command{
	Use:   "fix [paths...]",
	Short: "Auto-fix all fixable issues",
	Long: `Apply the fixes of every enabled lint rule and write the files back.

Files are re-checked after each round of fixes until nothing more applies.
Use --dry-run to print the changes as a diff instead of writing them, and
--changed to only fix files that have been modified in git.`,
	Example: `  # Fix all files
  esguard fix

  # Preview fixes for specific paths
  esguard fix --dry-run ./src

  # Only fix changed files (git)
  esguard fix --changed`,
	RunE: runFix,
}

func init() {
	fixCmd.Flags().BoolVar(&fixDryRun, "dry-run", false, "print the fixes as a diff without writing files")
	rootCmd.AddCommand(fixCmd)
}

func runFix(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	files, err := getTargetFiles(ctx, args, changed)
	if err != nil {
		return fmt.Errorf("finding files: %w", err)
	}
	if len(files) == 0 {
		_, _ = fmt.Fprintln(out, "No source files found")
		return nil
	}

	r, err := newRunner(cfg)
	if err != nil {
		return err
	}

	printFixHeader(out, len(files))

	results, err := r.Lint().Fix(ctx, files, !fixDryRun)
	if err != nil {
		return err
	}

	if fixDryRun {
		if err := printDiffs(out, results); err != nil {
			return err
		}
	}

	remaining := printFixSummary(out, results)
	if len(remaining) > 0 {
		_, _ = fmt.Fprintln(out)
		if err := writeFindings(out, r, remaining); err != nil {
			return err
		}
	}
	return checkThreshold(remaining, cfg.SeverityThreshold)
}

func printFixHeader(w io.Writer, fileCount int) {
	modeMsg := ""
	if changed {
		modeMsg = " (changed files only)"
	}
	if fixDryRun {
		modeMsg += " (dry run)"
	}
	_, _ = fmt.Fprintf(w, "Fixing %s%s...\n\n", formatFileCount(fileCount), modeMsg)
}

func printDiffs(w io.Writer, results []*lint.FixResult) error {
	for _, res := range results {
		if !res.Changed() {
			continue
		}
		diff, err := fix.Diff(res.File, res.Original, res.Output)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprint(w, diff)
	}
	return nil
}

// printFixSummary reports what was fixed and returns the findings that
// still need attention.
func printFixSummary(w io.Writer, results []*lint.FixResult) []sdk.Finding {
	var remaining []sdk.Finding
	fixed, changedFiles := 0, 0
	for _, res := range results {
		fixed += len(res.Applied)
		if res.Changed() {
			changedFiles++
		}
		remaining = append(remaining, res.Remaining...)
	}
	runner.SortFindings(remaining)

	verb := "Fixed"
	if fixDryRun {
		verb = "Would fix"
	}
	_, _ = fmt.Fprintln(w, "---")
	_, _ = fmt.Fprintf(w, "Summary: %s %d issue(s) in %s\n", verb, fixed, formatFileCount(changedFiles))

	if len(remaining) > 0 {
		_, _ = fmt.Fprintf(w, "\n%d issue(s) require manual attention\n", len(remaining))
	} else {
		_, _ = fmt.Fprintln(w, "\nAll fixable issues resolved!")
	}
	return remaining
}
