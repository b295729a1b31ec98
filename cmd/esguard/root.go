package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	cfgFile           string
	profile           string
	format            string
	changed           bool
	severityThreshold string
	verbose           bool
	noColor           bool
)

var rootCmd = &cobra.Command{
	Use:   "esguard",
	Short: "esguard - JavaScript and Flow lint platform",
	Long: `esguard lints JavaScript, JSX and Flow sources.

It runs built-in lint rules with auto-fixes, custom Rego policies and
plugin rules over source files or over ESTree ASTs produced by Babel,
flow-parser or espree, in a single binary.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .esguard.yaml)")
	rootCmd.PersistentFlags().StringVar(&profile, "profile", "", "profile to use from config")
	rootCmd.PersistentFlags().StringVar(&format, "format", "text", "output format (text|json|json-compact|sarif|html|github)")
	rootCmd.PersistentFlags().BoolVar(&changed, "changed", false, "only check files changed in git")
	rootCmd.PersistentFlags().StringVar(&severityThreshold, "severity-threshold", "", "minimum severity level to fail (info|warning|error)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
}

// Execute runs the root command. An interrupt cancels the running command.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}
