// Package main provides the test-rule command for esguard.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/santosr2/esguard/internal/engines/policy"
	"github.com/santosr2/esguard/pkg/sdk"
)

var (
	testRuleFixtures string
	testRuleExpect   string
)

var testRuleCmd = &cobra.Command{
	Use:   "test-rule [rule-path]",
	Short: "Test a Rego policy against fixtures",
	Long: `Test a policy against fixture files and expected findings.

This command allows you to test custom policies during development.
It runs the policy against the source files in the fixtures directory and
compares the findings with the expected results.`,
	Example: `  # Test a Rego policy
  esguard test-rule ./policies/my-rule.rego

  # Test with specific fixtures directory
  esguard test-rule ./policies/my-rule.rego --fixtures ./testdata

  # Test with expected findings file
  esguard test-rule ./policies/my-rule.rego --expect ./expected.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runTestRule,
}

func init() {
	testRuleCmd.Flags().StringVar(&testRuleFixtures, "fixtures", "testdata/", "fixtures directory")
	testRuleCmd.Flags().StringVar(&testRuleExpect, "expect", "", "expected findings file (YAML or JSON)")
	rootCmd.AddCommand(testRuleCmd)
}

// ExpectedFinding represents an expected finding in test fixtures.
type ExpectedFinding struct {
	Rule     string `yaml:"rule" json:"rule"`
	Severity string `yaml:"severity" json:"severity"`
	Message  string `yaml:"message" json:"message"`
	File     string `yaml:"file" json:"file"`
	Line     int    `yaml:"line" json:"line"`
}

// ExpectedResults represents expected test results.
type ExpectedResults struct {
	Findings []ExpectedFinding `yaml:"findings" json:"findings"`
}

func runTestRule(cmd *cobra.Command, args []string) error {
	rulePath := args[0]
	out := cmd.OutOrStdout()

	if _, err := os.Stat(rulePath); os.IsNotExist(err) {
		return fmt.Errorf("rule file not found: %s", rulePath)
	}
	if ext := strings.ToLower(filepath.Ext(rulePath)); ext != ".rego" {
		return fmt.Errorf("unsupported rule type: %s", ext)
	}

	_, _ = fmt.Fprintf(out, "Testing rule: %s\n\n", rulePath)

	fixtures, err := findFixtures(testRuleFixtures)
	if err != nil {
		return fmt.Errorf("finding fixtures: %w", err)
	}
	if len(fixtures) == 0 {
		_, _ = fmt.Fprintf(out, "No fixtures found in %s\n\n", testRuleFixtures)
		_, _ = fmt.Fprintln(out, "Create test fixtures:")
		_, _ = fmt.Fprintf(out, "  mkdir -p %s\n", testRuleFixtures)
		_, _ = fmt.Fprintln(out, "  # Add .js files to test against")
		return nil
	}

	_, _ = fmt.Fprintf(out, "Found %d fixture file(s)\n\n", len(fixtures))

	engine := policy.New(&policy.Config{PolicyFiles: []string{rulePath}})
	findings, err := engine.Run(cmd.Context(), fixtures)
	if err != nil {
		return fmt.Errorf("running rule: %w", err)
	}

	_, _ = fmt.Fprintf(out, "Results: %d finding(s)\n\n", len(findings))
	for _, finding := range findings {
		printTestFinding(out, finding)
	}

	if testRuleExpect != "" {
		expected, err := loadExpected(testRuleExpect)
		if err != nil {
			return err
		}
		return compareExpected(out, findings, expected)
	}
	return nil
}

func printTestFinding(w io.Writer, finding sdk.Finding) {
	icon := "i"
	if finding.Severity == sdk.SeverityError || finding.Severity == sdk.SeverityWarning {
		icon = "!"
	}
	_, _ = fmt.Fprintf(w, "  [%s] %s\n", icon, finding.Rule)
	_, _ = fmt.Fprintf(w, "      %s\n", finding.Message)
	if finding.File != "" {
		_, _ = fmt.Fprintf(w, "      File: %s:%d\n", finding.File, finding.Location.Start.Line)
	}
	_, _ = fmt.Fprintln(w)
}

func findFixtures(dir string) ([]string, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, nil
	}
	return findSourceFiles([]string{dir})
}

func loadExpected(path string) (*ExpectedResults, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading expected file: %w", err)
	}

	var expected ExpectedResults
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		if err := json.Unmarshal(data, &expected); err != nil {
			return nil, fmt.Errorf("parsing JSON: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &expected); err != nil {
			return nil, fmt.Errorf("parsing YAML: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported expected file format: %s", ext)
	}
	return &expected, nil
}

func compareExpected(w io.Writer, findings []sdk.Finding, expected *ExpectedResults) error {
	_, _ = fmt.Fprintln(w, "---")
	_, _ = fmt.Fprintln(w, "Comparing with expected findings...")
	_, _ = fmt.Fprintln(w)

	passed := true
	matched := make(map[int]bool)

	for _, exp := range expected.Findings {
		found := false
		for i, actual := range findings {
			if matched[i] {
				continue
			}
			if matchesFinding(exp, actual) {
				matched[i] = true
				found = true
				break
			}
		}

		if found {
			_, _ = fmt.Fprintf(w, "  [+] Expected finding matched: %s\n", exp.Rule)
		} else {
			_, _ = fmt.Fprintf(w, "  [-] Expected finding NOT found: %s\n", exp.Rule)
			if exp.Message != "" {
				_, _ = fmt.Fprintf(w, "      Message: %s\n", exp.Message)
			}
			passed = false
		}
	}

	for i, actual := range findings {
		if !matched[i] {
			_, _ = fmt.Fprintf(w, "  [?] Unexpected finding: %s\n", actual.Rule)
			_, _ = fmt.Fprintf(w, "      Message: %s\n", actual.Message)
			passed = false
		}
	}

	_, _ = fmt.Fprintln(w)

	if passed {
		_, _ = fmt.Fprintln(w, "All tests passed!")
		return nil
	}
	return fmt.Errorf("test failed: expected findings do not match actual findings")
}

// matchesFinding compares the fields the expectation sets. Rule matches by
// suffix so "no-settimeout" matches "policy.no-settimeout", and File by
// base name.
func matchesFinding(expected ExpectedFinding, actual sdk.Finding) bool {
	if expected.Rule != "" && !strings.HasSuffix(actual.Rule, expected.Rule) {
		return false
	}
	if expected.Severity != "" && string(actual.Severity) != expected.Severity {
		return false
	}
	if expected.Message != "" && !strings.Contains(actual.Message, expected.Message) {
		return false
	}
	if expected.File != "" && filepath.Base(actual.File) != filepath.Base(expected.File) {
		return false
	}
	if expected.Line != 0 && actual.Location.Start.Line != expected.Line {
		return false
	}
	return true
}
