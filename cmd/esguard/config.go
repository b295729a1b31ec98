// Package main provides configuration management commands for esguard.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/santosr2/esguard/internal/config"
)

var configOutputFormat string

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management commands",
	Long: `Manage esguard configuration files.

Use subcommands to show or validate the configuration, or to add a profile.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show resolved configuration",
	Long: `Display the final configuration after all imports and merges.

This command loads the configuration file, processes all imports,
applies profile settings, and shows the final resolved configuration.`,
	Example: `  # Show resolved config
  esguard config show

  # Show config in JSON format
  esguard config show --format json

  # Show a profile applied to a specific config file
  esguard config show --config custom.yaml --profile ci`,
	RunE: runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration",
	Long: `Validate the configuration file and all imports.

This command checks for syntax errors, invalid values, unknown rules and
rule options that do not match the rule's schema.`,
	Example: `  # Validate default config
  esguard config validate

  # Validate specific config file
  esguard config validate --config custom.yaml`,
	RunE: runConfigValidate,
}

var configInitProfileCmd = &cobra.Command{
	Use:   "init-profile [name]",
	Short: "Initialize a new configuration profile",
	Long:  `Create a new configuration profile in the config file.`,
	Args:  cobra.ExactArgs(1),
	Example: `  # Create a CI profile
  esguard config init-profile ci`,
	RunE: runConfigInitProfile,
}

func init() {
	configShowCmd.Flags().StringVar(&configOutputFormat, "format", "yaml", "output format (yaml|toml|json)")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configInitProfileCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch strings.ToLower(configOutputFormat) {
	case "json":
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling config: %w", err)
		}
		_, _ = fmt.Fprintln(out, string(data))
		return nil
	case "yaml", "yml", "toml":
		return cfg.Write(out, strings.ToLower(configOutputFormat))
	default:
		return fmt.Errorf("unsupported format: %s (use yaml, toml or json)", configOutputFormat)
	}
}

func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	if path := config.Find("."); path != "" {
		return path
	}
	return config.DefaultFiles[0]
}

func runConfigValidate(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	path := configPath()

	_, _ = fmt.Fprintf(out, "Validating configuration: %s\n\n", path)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("configuration file not found: %s", path)
	}

	cfg, err := config.Load(path)
	if err == nil && profile != "" {
		err = cfg.ApplyProfile(profile)
	}
	if err == nil {
		// Building the engines checks rule names and options.
		_, err = newRunner(cfg)
	}
	if err != nil {
		_, _ = fmt.Fprintln(out, "[!] Validation failed:")
		_, _ = fmt.Fprintf(out, "    %v\n", err)
		return err
	}

	if issues := validateConfig(cfg); len(issues) > 0 {
		_, _ = fmt.Fprintln(out, "[!] Validation warnings:")
		for _, issue := range issues {
			_, _ = fmt.Fprintf(out, "    - %s\n", issue)
		}
		_, _ = fmt.Fprintln(out)
	}

	_, _ = fmt.Fprintln(out, "[+] Configuration is valid")
	printConfigSummary(out, cfg)
	return nil
}

func printConfigSummary(w io.Writer, cfg *config.Config) {
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, "Configuration summary:")
	_, _ = fmt.Fprintf(w, "  Version: %d\n", cfg.Version)
	_, _ = fmt.Fprintf(w, "  Parser:  %s\n", cfg.Parser)
	_, _ = fmt.Fprintln(w, "  Engines enabled:")
	if cfg.Engines.Lint.Enabled {
		_, _ = fmt.Fprintln(w, "    - lint")
	}
	if cfg.Engines.Policy.Enabled {
		_, _ = fmt.Fprintln(w, "    - policy")
	}
	if len(cfg.Rules) > 0 {
		_, _ = fmt.Fprintf(w, "  Configured rules: %d\n", len(cfg.Rules))
	}
	if len(cfg.Profiles) > 0 {
		_, _ = fmt.Fprintf(w, "  Profiles: %d\n", len(cfg.Profiles))
		for _, name := range slices.Sorted(maps.Keys(cfg.Profiles)) {
			_, _ = fmt.Fprintf(w, "    - %s\n", name)
		}
	}
}

// validateConfig reports settings that load but are likely mistakes.
func validateConfig(cfg *config.Config) []string {
	var issues []string

	if !cfg.Engines.Lint.Enabled && !cfg.Engines.Policy.Enabled && !cfg.Plugins.Enabled {
		issues = append(issues, "no engines are enabled")
	}
	if cfg.Engines.Policy.Enabled && len(cfg.Policy.Dirs) == 0 && len(cfg.Policy.Files) == 0 {
		issues = append(issues, "policy engine is enabled without policy dirs or files; built-in policies are used")
	}
	if cfg.Parallel && cfg.Jobs == 1 {
		issues = append(issues, "parallel is set but jobs is 1")
	}

	return issues
}

func runConfigInitProfile(cmd *cobra.Command, args []string) error {
	profileName := args[0]
	path := configPath()

	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if cfg.Profiles == nil {
		cfg.Profiles = make(map[string]config.Profile)
	}
	if _, exists := cfg.Profiles[profileName]; exists {
		return fmt.Errorf("profile '%s' already exists", profileName)
	}

	cfg.Profiles[profileName] = config.Profile{
		Name:        profileName,
		Description: fmt.Sprintf("%s profile", profileName),
		Engines: config.Engines{
			Lint:   config.EngineConfig{Enabled: true},
			Policy: config.EngineConfig{Enabled: false},
		},
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	encoding := "yaml"
	if strings.HasSuffix(path, ".toml") {
		encoding = "toml"
	}
	if err := cfg.Write(f, encoding); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Created profile '%s' in %s\n\n", profileName, path)
	_, _ = fmt.Fprintf(out, "Use it with: esguard lint --profile %s\n", profileName)
	return nil
}
