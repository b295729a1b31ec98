package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/santosr2/esguard/internal/plugins"
)

var pluginsCmd = &cobra.Command{
	Use:   "plugins",
	Short: "Plugin management commands",
	Long: `Manage esguard plugins.

Plugins extend esguard with custom rules, engines and output formatters.
Plugins are Go shared libraries (.so files) built against this module that
export PluginMetadata and a New function.

Plugin directories can be configured in .esguard.yaml:

  plugins:
    enabled: true
    directories:
      - ~/.esguard/plugins
      - ./plugins`,
}

var pluginsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List installed plugins",
	RunE: func(cmd *cobra.Command, _ []string) error {
		manager, dirs, err := loadPlugins()
		if err != nil || manager == nil {
			return err
		}
		listPlugins(cmd.OutOrStdout(), manager.ListPlugins(), dirs)
		return nil
	},
}

var pluginsInfoCmd = &cobra.Command{
	Use:   "info [plugin-name]",
	Short: "Show detailed information about a plugin",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, _, err := loadPlugins()
		if err != nil || manager == nil {
			return err
		}
		for _, p := range manager.ListPlugins() {
			if p.Metadata.Name == args[0] {
				printPluginInfo(cmd.OutOrStdout(), p)
				return nil
			}
		}
		return fmt.Errorf("plugin not found: %s", args[0])
	},
}

func init() {
	rootCmd.AddCommand(pluginsCmd)
	pluginsCmd.AddCommand(pluginsListCmd)
	pluginsCmd.AddCommand(pluginsInfoCmd)
}

// loadPlugins loads the configured plugin directories. It returns a nil
// manager when plugins are disabled.
func loadPlugins() (*plugins.Manager, []string, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if !cfg.Plugins.Enabled {
		fmt.Println("Plugins are not enabled in configuration")
		return nil, nil, nil
	}

	manager := plugins.NewManager(cfg.Plugins.Directories)
	if err := manager.LoadAll(); err != nil {
		return nil, nil, fmt.Errorf("loading plugins: %w", err)
	}
	return manager, cfg.Plugins.Directories, nil
}

func listPlugins(w io.Writer, list []*plugins.Plugin, dirs []string) {
	if len(list) == 0 {
		_, _ = fmt.Fprintln(w, "No plugins installed")
		_, _ = fmt.Fprintf(w, "\nPlugin directories searched:\n")
		for _, dir := range dirs {
			_, _ = fmt.Fprintf(w, "  - %s\n", dir)
		}
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "NAME\tVERSION\tTYPE\tDESCRIPTION")
	_, _ = fmt.Fprintln(tw, "----\t-------\t----\t-----------")
	for _, p := range list {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			p.Metadata.Name,
			p.Metadata.Version,
			p.Metadata.Type,
			p.Metadata.Description,
		)
	}
	_ = tw.Flush()
}

func printPluginInfo(w io.Writer, p *plugins.Plugin) {
	_, _ = fmt.Fprintf(w, "Name:        %s\n", p.Metadata.Name)
	_, _ = fmt.Fprintf(w, "Version:     %s\n", p.Metadata.Version)
	_, _ = fmt.Fprintf(w, "Type:        %s\n", p.Metadata.Type)
	_, _ = fmt.Fprintf(w, "Description: %s\n", p.Metadata.Description)
	_, _ = fmt.Fprintf(w, "Author:      %s\n", p.Metadata.Author)
	_, _ = fmt.Fprintf(w, "Path:        %s\n", p.Metadata.Path)

	switch inst := p.Instance.(type) {
	case plugins.RulePlugin:
		rules := inst.GetRules()
		_, _ = fmt.Fprintf(w, "\nProvides %d rule(s):\n", len(rules))
		for _, r := range rules {
			_, _ = fmt.Fprintf(w, "  - %s: %s\n", r.Name(), r.Description())
		}
	case plugins.EnginePlugin:
		_, _ = fmt.Fprintf(w, "\nEngine name: %s\n", inst.Name())
	case plugins.FormatterPlugin:
		_, _ = fmt.Fprintf(w, "\nFormatter name: %s\n", inst.Name())
	}
}
