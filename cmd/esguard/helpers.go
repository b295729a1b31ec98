// Package main provides CLI helpers for esguard commands.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/santosr2/esguard/internal/config"
	"github.com/santosr2/esguard/internal/output"
	"github.com/santosr2/esguard/internal/parse"
	"github.com/santosr2/esguard/internal/runner"
	"github.com/santosr2/esguard/internal/vcs"
	"github.com/santosr2/esguard/pkg/sdk"
)

// loadConfig loads the config file, applies --profile and lets
// --severity-threshold override the configured threshold.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if profile != "" {
		if err := cfg.ApplyProfile(profile); err != nil {
			return nil, fmt.Errorf("applying profile: %w", err)
		}
	}
	if severityThreshold != "" {
		cfg.SeverityThreshold = severityThreshold
	}
	return cfg, nil
}

// newRunner builds the engines for cfg. Engine logs go to stderr with
// --verbose and are discarded otherwise.
func newRunner(cfg *config.Config) (*runner.Runner, error) {
	var logger *log.Logger
	if verbose {
		logger = log.New(os.Stderr, "esguard: ", 0)
	}
	return runner.New(cfg, runner.Options{Logger: logger})
}

// getTargetFiles returns the list of files to process based on the provided paths
// and global flags. When --changed is set, it uses VCS to detect changed files.
func getTargetFiles(ctx context.Context, paths []string, changedOnly bool) ([]string, error) {
	if changedOnly {
		return getChangedFiles(ctx, paths)
	}
	if len(paths) == 0 {
		paths = []string{"."}
	}
	return findSourceFiles(paths)
}

// getChangedFiles uses VCS to get only changed source files.
// If paths are provided, it filters the changed files to only those within the paths.
func getChangedFiles(ctx context.Context, filterPaths []string) ([]string, error) {
	git := vcs.NewGit(".")

	if !git.IsGitRepo(ctx) {
		return nil, fmt.Errorf("not a git repository; --changed requires git")
	}

	changedFiles, err := git.GetAllChangedSourceFiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting changed files: %w", err)
	}

	if len(filterPaths) == 0 || (len(filterPaths) == 1 && filterPaths[0] == ".") {
		return vcs.FilterExisting(changedFiles), nil
	}

	var filteredFiles []string
	for _, file := range changedFiles {
		for _, filterPath := range filterPaths {
			absFilterPath, err := filepath.Abs(filterPath)
			if err != nil {
				continue
			}
			if isPathWithin(file, absFilterPath) {
				filteredFiles = append(filteredFiles, file)
				break
			}
		}
	}

	return vcs.FilterExisting(filteredFiles), nil
}

// isPathWithin checks if a file path is within a directory path.
func isPathWithin(filePath, dirPath string) bool {
	filePath = filepath.Clean(filePath)
	dirPath = filepath.Clean(dirPath)

	if strings.HasPrefix(filePath, dirPath) {
		// Make sure it's actually within (not just a prefix match)
		remainder := strings.TrimPrefix(filePath, dirPath)
		return remainder == "" || strings.HasPrefix(remainder, string(filepath.Separator))
	}
	return false
}

// findSourceFiles recursively finds the JavaScript, Flow and TypeScript
// sources in the given paths. Files named explicitly are kept even when
// their extension is not a source extension.
func findSourceFiles(paths []string) ([]string, error) {
	var files []string
	seen := make(map[string]bool)
	add := func(p string) {
		absPath, err := filepath.Abs(p)
		if err != nil {
			absPath = p
		}
		if !seen[absPath] {
			files = append(files, absPath)
			seen[absPath] = true
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", path, err)
		}

		if !info.IsDir() {
			add(path)
			continue
		}

		err = filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if p != path && shouldSkipDir(d.Name()) {
					return filepath.SkipDir
				}
				return nil
			}
			if parse.IsSource(p) {
				add(p)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", path, err)
		}
	}

	return files, nil
}

// shouldSkipDir returns true if the directory should be skipped during traversal.
func shouldSkipDir(name string) bool {
	if strings.HasPrefix(name, ".") && name != "." {
		return true
	}
	skipDirs := map[string]bool{
		"node_modules": true,
		"vendor":       true,
		"dist":         true,
		"build":        true,
		"coverage":     true,
		"flow-typed":   true,
		"testdata":     true,
	}
	return skipDirs[name]
}

// formatFileCount returns a human-readable file count string.
func formatFileCount(count int) string {
	if count == 1 {
		return "1 file"
	}
	return fmt.Sprintf("%d files", count)
}

// writeFindings renders findings in the --format format. Formats not built
// in are looked up among the formatter plugins.
func writeFindings(w io.Writer, r *runner.Runner, findings []sdk.Finding) error {
	formatter, err := output.GetFormatter(format, output.Options{
		Verbose: verbose,
		NoColor: noColor,
		Version: version,
		Rules:   r.Rules(),
	})
	if err != nil {
		plugin, ok := r.Plugins().GetFormatter(format)
		if !ok {
			return err
		}
		return plugin.Format(findings, w)
	}
	return formatter.Format(findings, w)
}

// checkThreshold fails when any finding is at or above the severity
// threshold.
func checkThreshold(findings []sdk.Finding, threshold string) error {
	failing, err := runner.FilterBySeverity(findings, threshold)
	if err != nil {
		return err
	}
	if len(failing) == 0 {
		return nil
	}
	if threshold == "" {
		threshold = string(sdk.SeverityInfo)
	}
	return fmt.Errorf("found %d problem(s) at or above %s severity", len(failing), threshold)
}
