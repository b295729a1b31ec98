package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/santosr2/esguard/internal/config"
	"github.com/santosr2/esguard/internal/engines/lint"
)

var (
	initFormat string
	initForce  bool
	initPolicy bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize esguard configuration",
	Long: `Create a .esguard.yaml (or .esguard.toml) configuration file listing
every built-in rule with its default settings.`,
	Example: `  # Write .esguard.yaml
  esguard init

  # Write .esguard.toml with the policy engine enabled
  esguard init --format toml --policy`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().StringVar(&initFormat, "format", "yaml", "config format (yaml|toml)")
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing config file")
	initCmd.Flags().BoolVar(&initPolicy, "policy", false, "enable the policy engine with a policies/ directory")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, _ []string) error {
	path := cfgFile
	if path == "" {
		switch initFormat {
		case "yaml", "yml":
			path = ".esguard.yaml"
		case "toml":
			path = ".esguard.toml"
		default:
			return fmt.Errorf("unknown config format %q (must be yaml or toml)", initFormat)
		}
	}

	if _, err := os.Stat(path); err == nil && !initForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	cfg := initialConfig(initPolicy)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := cfg.Write(f, initFormat); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", path)
	return nil
}

// initialConfig is the default configuration with an explicit entry for
// every built-in rule.
func initialConfig(withPolicy bool) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Rules = make(map[string]config.RuleConfig)
	for _, rule := range lint.New(nil).Rules() {
		meta := rule.Meta()
		enabled := meta.DefaultEnabled
		rc := config.RuleConfig{Enabled: &enabled, Severity: string(meta.DefaultSeverity)}
		if len(meta.Schema) > 0 {
			rc.Options = make(map[string]interface{}, len(meta.Schema))
			for _, opt := range meta.Schema {
				if opt.Default != nil {
					rc.Options[opt.Name] = opt.Default
				}
			}
		}
		cfg.Rules[rule.Name()] = rc
	}

	if withPolicy {
		cfg.Engines.Policy.Enabled = true
		cfg.Policy.Dirs = []string{"policies"}
	}
	return cfg
}
