package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/santosr2/esguard/pkg/sdk"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Rule management commands",
	Long:  `Inspect the built-in and plugin lint rules.`,
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all available rules",
	Long:  `Display all built-in and plugin rules with their defaults.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		r, err := newRunner(cfg)
		if err != nil {
			return err
		}
		return listRules(cmd.OutOrStdout(), r.Rules())
	},
}

var rulesDocsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Generate rule documentation",
	Long:  `Generate markdown documentation for all rules.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		r, err := newRunner(cfg)
		if err != nil {
			return err
		}
		writeRuleDocs(cmd.OutOrStdout(), r.Rules())
		return nil
	},
}

func init() {
	rulesCmd.AddCommand(rulesListCmd)
	rulesCmd.AddCommand(rulesDocsCmd)
	rootCmd.AddCommand(rulesCmd)
}

func listRules(w io.Writer, rules []sdk.Rule) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "NAME\tSEVERITY\tDEFAULT\tFIXABLE\tDESCRIPTION")
	for _, rule := range rules {
		meta := rule.Meta()
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			rule.Name(),
			meta.DefaultSeverity,
			onOff(meta.DefaultEnabled),
			yesNo(meta.Fixable),
			rule.Description(),
		)
	}
	return tw.Flush()
}

func writeRuleDocs(w io.Writer, rules []sdk.Rule) {
	_, _ = fmt.Fprintln(w, "# esguard rules")
	for _, rule := range rules {
		meta := rule.Meta()
		_, _ = fmt.Fprintf(w, "\n## %s\n\n%s\n\n", rule.Name(), rule.Description())
		_, _ = fmt.Fprintf(w, "- Default severity: `%s`\n", meta.DefaultSeverity)
		_, _ = fmt.Fprintf(w, "- Enabled by default: %s\n", yesNo(meta.DefaultEnabled))
		_, _ = fmt.Fprintf(w, "- Auto-fixable: %s\n", yesNo(meta.Fixable))
		if len(meta.Tags) > 0 {
			_, _ = fmt.Fprintf(w, "- Tags: %s\n", strings.Join(meta.Tags, ", "))
		}
		if len(meta.Schema) == 0 {
			continue
		}
		_, _ = fmt.Fprintln(w, "\n| Option | Type | Default | Description |")
		_, _ = fmt.Fprintln(w, "|---|---|---|---|")
		for _, opt := range meta.Schema {
			def := "-"
			if opt.Default != nil {
				def = fmt.Sprintf("`%v`", opt.Default)
			}
			_, _ = fmt.Fprintf(w, "| `%s` | %s | %s | %s |\n", opt.Name, opt.Type, def, opt.Description)
		}
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
