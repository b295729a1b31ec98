// Package vcs provides version control system integration.
// It supports detecting changed files for incremental checks.
package vcs

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/santosr2/esguard/internal/parse"
)

// Git provides Git-specific VCS operations
type Git struct {
	workDir string
}

// NewGit creates a new Git VCS instance
func NewGit(workDir string) *Git {
	if workDir == "" {
		workDir = "."
	}
	return &Git{workDir: workDir}
}

func (g *Git) output(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = g.workDir
	return cmd.Output()
}

// IsGitRepo checks if the working directory is inside a Git repository
func (g *Git) IsGitRepo(ctx context.Context) bool {
	_, err := g.output(ctx, "rev-parse", "--git-dir")
	return err == nil
}

// GetRepoRoot returns the root directory of the Git repository
func (g *Git) GetRepoRoot(ctx context.Context) (string, error) {
	out, err := g.output(ctx, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", fmt.Errorf("getting repo root: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

// GetCurrentBranch returns the current branch name
func (g *Git) GetCurrentBranch(ctx context.Context) (string, error) {
	out, err := g.output(ctx, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", fmt.Errorf("getting current branch: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

// GetDefaultBranch returns the default branch (main or master)
func (g *Git) GetDefaultBranch(ctx context.Context) string {
	if out, err := g.output(ctx, "symbolic-ref", "refs/remotes/origin/HEAD", "--short"); err == nil {
		return strings.TrimPrefix(strings.TrimSpace(string(out)), "origin/")
	}

	for _, branch := range []string{"main", "master"} {
		if _, err := g.output(ctx, "rev-parse", "--verify", branch); err == nil {
			return branch
		}
	}

	return "main"
}

// GetChangedFiles returns files that have changed compared to the given base ref
// If base is empty, it compares to the default branch
func (g *Git) GetChangedFiles(ctx context.Context, base string) ([]string, error) {
	if base == "" {
		base = g.GetDefaultBranch(ctx)
	}

	mergeBase, err := g.output(ctx, "merge-base", base, "HEAD")
	if err != nil {
		// no common ancestor, diff against base itself
		return g.list(ctx, "getting changed files", "diff", "--name-only", base)
	}
	return g.list(ctx, "getting changed files", "diff", "--name-only", strings.TrimSpace(string(mergeBase)), "HEAD")
}

// GetStagedFiles returns files that are staged for commit
func (g *Git) GetStagedFiles(ctx context.Context) ([]string, error) {
	return g.list(ctx, "getting staged files", "diff", "--name-only", "--cached")
}

// GetUnstagedFiles returns files that have unstaged changes
func (g *Git) GetUnstagedFiles(ctx context.Context) ([]string, error) {
	return g.list(ctx, "getting unstaged files", "diff", "--name-only")
}

// GetUntrackedFiles returns untracked files
func (g *Git) GetUntrackedFiles(ctx context.Context) ([]string, error) {
	return g.list(ctx, "getting untracked files", "ls-files", "--others", "--exclude-standard")
}

func (g *Git) list(ctx context.Context, what string, args ...string) ([]string, error) {
	out, err := g.output(ctx, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", what, err)
	}
	return g.parseFileList(ctx, out)
}

// GetAllChanges returns all changed, staged, and untracked files
func (g *Git) GetAllChanges(ctx context.Context) ([]string, error) {
	seen := make(map[string]bool)
	var result []string

	for _, get := range []func(context.Context) ([]string, error){
		g.GetStagedFiles,
		g.GetUnstagedFiles,
		g.GetUntrackedFiles,
	} {
		files, err := get(ctx)
		if err != nil {
			continue
		}
		for _, f := range files {
			if !seen[f] {
				seen[f] = true
				result = append(result, f)
			}
		}
	}
	return result, nil
}

// GetChangedSourceFiles returns the lintable files changed since base
func (g *Git) GetChangedSourceFiles(ctx context.Context, base string) ([]string, error) {
	files, err := g.GetChangedFiles(ctx, base)
	if err != nil {
		return nil, err
	}
	return filterSourceFiles(files), nil
}

// GetAllChangedSourceFiles returns all changed lintable files, including
// staged, unstaged and untracked ones.
func (g *Git) GetAllChangedSourceFiles(ctx context.Context) ([]string, error) {
	files, err := g.GetAllChanges(ctx)
	if err != nil {
		return nil, err
	}
	return filterSourceFiles(files), nil
}

func filterSourceFiles(files []string) []string {
	var result []string
	for _, f := range files {
		if parse.IsSource(f) {
			result = append(result, f)
		}
	}
	return result
}

// parseFileList parses git output into a list of absolute paths
func (g *Git) parseFileList(ctx context.Context, out []byte) ([]string, error) {
	var files []string
	var root string
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !filepath.IsAbs(line) {
			if root == "" {
				root, _ = g.GetRepoRoot(ctx)
			}
			if root != "" {
				line = filepath.Join(root, line)
			}
		}
		files = append(files, line)
	}
	return files, scanner.Err()
}

// FileStatus represents the Git status of a file (M=modified, A=added, D=deleted, etc.)
type FileStatus struct {
	Path   string
	Status string
}

// GetFileStatuses returns the Git status of all changed files in the repository.
func (g *Git) GetFileStatuses(ctx context.Context) ([]FileStatus, error) {
	out, err := g.output(ctx, "status", "--porcelain")
	if err != nil {
		return nil, fmt.Errorf("getting file statuses: %w", err)
	}

	var statuses []FileStatus
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := scanner.Text()
		if len(line) < 3 {
			continue
		}
		if path := strings.TrimSpace(line[3:]); path != "" {
			statuses = append(statuses, FileStatus{
				Path:   path,
				Status: strings.TrimSpace(line[:2]),
			})
		}
	}
	return statuses, scanner.Err()
}

// FilterExisting filters a list of files to only those that exist
func FilterExisting(files []string) []string {
	var result []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			result = append(result, f)
		}
	}
	return result
}
