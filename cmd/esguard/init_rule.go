package main

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/cobra"
)

var (
	initRuleName   string
	initRuleOutput string
	initRuleForce  bool
)

var ruleNamePattern = regexp.MustCompile(`^[a-z][a-z0-9-]*$`)

var initRuleCmd = &cobra.Command{
	Use:   "init-rule",
	Short: "Initialize a new Rego policy",
	Long: `Generate scaffolding for a new Rego policy: the policy itself, a
fixture that violates it and the expected findings, ready for test-rule.`,
	Example: `  # Create policies/no-settimeout.rego and its fixtures
  esguard init-rule --name no-settimeout

  # Then iterate with
  esguard test-rule policies/no-settimeout.rego --fixtures policies/testdata/no-settimeout`,
	RunE: runInitRule,
}

func init() {
	initRuleCmd.Flags().StringVar(&initRuleName, "name", "", "rule name (required)")
	initRuleCmd.Flags().StringVar(&initRuleOutput, "output", "policies", "output directory")
	initRuleCmd.Flags().BoolVar(&initRuleForce, "force", false, "overwrite existing files")
	_ = initRuleCmd.MarkFlagRequired("name")
	rootCmd.AddCommand(initRuleCmd)
}

func runInitRule(cmd *cobra.Command, _ []string) error {
	if !ruleNamePattern.MatchString(initRuleName) {
		return fmt.Errorf("invalid rule name %q (use lowercase letters, digits and dashes)", initRuleName)
	}

	fixtures := filepath.Join(initRuleOutput, "testdata", initRuleName)
	files := map[string]string{
		filepath.Join(initRuleOutput, initRuleName+".rego"): regoTemplate,
		filepath.Join(fixtures, "example.js"):               fixtureTemplate,
		filepath.Join(fixtures, "expected.yaml"):            expectTemplate,
	}

	for path := range files {
		if _, err := os.Stat(path); err == nil && !initRuleForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
	}
	if err := os.MkdirAll(fixtures, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", fixtures, err)
	}

	out := cmd.OutOrStdout()
	for _, path := range []string{
		filepath.Join(initRuleOutput, initRuleName+".rego"),
		filepath.Join(fixtures, "example.js"),
		filepath.Join(fixtures, "expected.yaml"),
	} {
		content := strings.ReplaceAll(files[path], "{{name}}", initRuleName)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		_, _ = fmt.Fprintf(out, "Created %s\n", path)
	}

	_, _ = fmt.Fprintln(out, "\nNext steps:")
	_, _ = fmt.Fprintf(out, "  esguard test-rule %s --fixtures %s --expect %s\n",
		filepath.Join(initRuleOutput, initRuleName+".rego"), fixtures, filepath.Join(fixtures, "expected.yaml"))
	_, _ = fmt.Fprintf(out, "  esguard dev --watch %s\n", initRuleOutput)
	return nil
}

const regoTemplate = `package esguard

import rego.v1

# {{name}}: replace the body with your own checks. Run
#   esguard policy --input <file>
# to see the document a policy receives.
warn contains msg if {
    some node in input.nodes
    node.kind == "CallExpression"
    node.callee == "setTimeout"
    msg := {
        "msg": "Avoid setTimeout",
        "rule": "{{name}}",
        "start": node.start,
        "end": node.end
    }
}
`

const fixtureTemplate = `setTimeout(() => {}, 10);
`

const expectTemplate = `findings:
  - rule: {{name}}
    severity: warning
    message: setTimeout
`
