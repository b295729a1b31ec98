package main

import (
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

var (
	versionShort bool
	versionJSON  bool
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Display version, build, and runtime information for esguard.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		out := cmd.OutOrStdout()

		if versionJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]string{
				"version":   version,
				"commit":    commit,
				"date":      date,
				"goVersion": runtime.Version(),
				"platform":  runtime.GOOS + "/" + runtime.GOARCH,
			})
		}

		if versionShort {
			_, _ = fmt.Fprintln(out, version)
			return nil
		}

		_, _ = fmt.Fprintf(out, "esguard version %s\n", version)
		_, _ = fmt.Fprintf(out, "  Commit:      %s\n", commit)
		_, _ = fmt.Fprintf(out, "  Build date:  %s\n", date)
		_, _ = fmt.Fprintf(out, "  Go version:  %s\n", runtime.Version())
		_, _ = fmt.Fprintf(out, "  Platform:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
		return nil
	},
}

func init() {
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "print only version number")
	versionCmd.Flags().BoolVar(&versionJSON, "json", false, "output in JSON format")
	rootCmd.AddCommand(versionCmd)
}
