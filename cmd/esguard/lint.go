package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var lintCmd = &cobra.Command{
	Use:     "lint [paths...]",
	Aliases: []string{"check"},
	Short:   "Run all enabled engines",
	Long: `Run the lint engine, the policy engine when enabled and any engine
plugins over JavaScript, JSX and Flow sources. This is the recommended
command for CI/CD.

The command fails when a finding at or above the severity threshold is
reported.`,
	Example: `  # Lint the current directory
  esguard lint

  # Only lint files changed in git, report as SARIF
  esguard lint --changed --format sarif > esguard.sarif

  # Fail on errors only
  esguard lint src --severity-threshold error`,
	RunE: runLint,
}

func init() {
	rootCmd.AddCommand(lintCmd)
}

func runLint(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	files, err := getTargetFiles(ctx, args, changed)
	if err != nil {
		return fmt.Errorf("finding files: %w", err)
	}
	if len(files) == 0 {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No source files found")
		return nil
	}

	r, err := newRunner(cfg)
	if err != nil {
		return err
	}

	if verbose {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Checking %s...\n", formatFileCount(len(files)))
	}

	findings, err := r.Run(ctx, files)
	if err != nil {
		return err
	}

	if err := writeFindings(cmd.OutOrStdout(), r, findings); err != nil {
		return err
	}
	return checkThreshold(findings, cfg.SeverityThreshold)
}
