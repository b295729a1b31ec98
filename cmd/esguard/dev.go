// Package main provides the dev command for esguard.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/santosr2/esguard/internal/config"
	"github.com/santosr2/esguard/internal/parse"
)

var (
	devWatch  string
	devTarget string
)

const devDebounce = 500 * time.Millisecond

var devCmd = &cobra.Command{
	Use:   "dev",
	Short: "Development mode with file watching",
	Long: `Run in development mode with automatic re-evaluation when files change.

This mode is useful when developing policies. It watches the policy
directory, the config file and the target sources, and re-runs every
enabled engine against the target files after each change.`,
	Example: `  # Watch policies/ and check the current directory
  esguard dev

  # Watch a specific directory
  esguard dev --watch ./rules

  # Check a specific target directory
  esguard dev --target ./src`,
	RunE: runDev,
}

func init() {
	devCmd.Flags().StringVar(&devWatch, "watch", "policies/", "directory to watch for changes")
	devCmd.Flags().StringVar(&devTarget, "target", ".", "target directory to run checks against")
	rootCmd.AddCommand(devCmd)
}

func runDev(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	_, _ = fmt.Fprintln(out, "Starting development mode...")
	_, _ = fmt.Fprintf(out, "  Watching: %s\n", devWatch)
	_, _ = fmt.Fprintf(out, "  Target:   %s\n\n", devTarget)

	if _, err := os.Stat(devWatch); os.IsNotExist(err) {
		_, _ = fmt.Fprintf(out, "Watch directory does not exist: %s\n\n", devWatch)
		_, _ = fmt.Fprintln(out, "Create a policy with:")
		_, _ = fmt.Fprintf(out, "  esguard init-rule --name my-rule --output %s\n", devWatch)
		return nil
	}

	if err := runDevCheck(ctx, out); err != nil {
		_, _ = fmt.Fprintf(out, "Initial check error: %v\n", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watchTree(watcher, devWatch); err != nil {
		return fmt.Errorf("setting up watch: %w", err)
	}
	if err := watchTree(watcher, devTarget); err != nil {
		_, _ = fmt.Fprintf(out, "Warning: could not watch target directory: %v\n", err)
	}

	_, _ = fmt.Fprintln(out, "Watching for changes... (Ctrl+C to stop)")
	_, _ = fmt.Fprintln(out)

	var debounceTimer *time.Timer
	for {
		select {
		case <-ctx.Done():
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = watchTree(watcher, event.Name)
					continue
				}
			}
			if !isWatchedFile(event.Name) {
				continue
			}

			name := event.Name
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(devDebounce, func() {
				_, _ = fmt.Fprintf(out, "\n[%s] File changed: %s\n\n", time.Now().Format("15:04:05"), name)
				if err := runDevCheck(ctx, out); err != nil {
					_, _ = fmt.Fprintf(out, "Check error: %v\n", err)
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			_, _ = fmt.Fprintf(out, "Watcher error: %v\n", err)
		}
	}
}

// watchTree adds dir and its subdirectories to the watcher, skipping the
// directories source discovery skips.
func watchTree(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && shouldSkipDir(d.Name()) {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}

// isWatchedFile reports whether a change to path can change the results:
// policies, policy data, config files and sources.
func isWatchedFile(path string) bool {
	switch filepath.Ext(path) {
	case ".rego", ".json", ".yaml", ".yml", ".toml":
		return true
	}
	return parse.IsSource(path) || slices.Contains(config.DefaultFiles, filepath.Base(path))
}

// runDevCheck reloads the config, adds the watched directory as a policy
// source and runs every enabled engine over the target.
func runDevCheck(ctx context.Context, out io.Writer) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.Engines.Policy.Enabled = true
	if !slices.Contains(cfg.Policy.Dirs, devWatch) {
		cfg.Policy.Dirs = append(cfg.Policy.Dirs, devWatch)
	}

	files, err := getTargetFiles(ctx, []string{devTarget}, false)
	if err != nil {
		return fmt.Errorf("finding target files: %w", err)
	}
	if len(files) == 0 {
		_, _ = fmt.Fprintf(out, "No source files found in %s\n", devTarget)
		return nil
	}

	r, err := newRunner(cfg)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(out, "Checking %s...\n\n", formatFileCount(len(files)))
	findings, err := r.Run(ctx, files)
	if err != nil {
		return fmt.Errorf("running checks: %w", err)
	}
	return writeFindings(out, r, findings)
}
