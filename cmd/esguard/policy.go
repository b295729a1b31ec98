package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	policyInput string
	policyFiles []string
)

var policyCmd = &cobra.Command{
	Use:   "policy [paths...]",
	Short: "Run policy checks",
	Long: `Run Rego policies against JavaScript, JSX and Flow sources.

Policies come from the policy section of the config, from --policy, or
the built-in policies when none are configured. Policies query the parsed
file through input.nodes and input.comments and report through
data.esguard.deny (errors) and data.esguard.warn (warnings).

Use --input to print the document a policy sees for one file.`,
	Example: `  # Run policies over the current directory
  esguard policy

  # Run one policy file
  esguard policy --policy policies/no-settimeout.rego src

  # Show the policy input for a file
  esguard policy --input src/app.js`,
	RunE: runPolicy,
}

func init() {
	policyCmd.Flags().StringVar(&policyInput, "input", "", "print the policy input document for a file and exit")
	policyCmd.Flags().StringSliceVar(&policyFiles, "policy", nil, "policy file to evaluate (repeatable)")
	rootCmd.AddCommand(policyCmd)
}

func runPolicy(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.Engines.Policy.Enabled = true
	cfg.Policy.Files = append(cfg.Policy.Files, policyFiles...)

	r, err := newRunner(cfg)
	if err != nil {
		return err
	}
	engine := r.Policy()

	if policyInput != "" {
		doc, err := engine.GetInput(ctx, policyInput)
		if err != nil {
			return fmt.Errorf("building input for %s: %w", policyInput, err)
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(doc))
		return nil
	}

	files, err := getTargetFiles(ctx, args, changed)
	if err != nil {
		return fmt.Errorf("finding files: %w", err)
	}
	if len(files) == 0 {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No source files found")
		return nil
	}

	findings, err := engine.Run(ctx, files)
	if err != nil {
		return fmt.Errorf("running policies: %w", err)
	}

	if err := writeFindings(cmd.OutOrStdout(), r, findings); err != nil {
		return err
	}
	return checkThreshold(findings, cfg.SeverityThreshold)
}
