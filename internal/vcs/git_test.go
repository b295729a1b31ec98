package vcs

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initRepo(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}

	dir := t.TempDir()
	for _, args := range [][]string{
		{"init", "-b", "main"},
		{"config", "user.email", "test@test.com"},
		{"config", "user.name", "Test User"},
	} {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		require.NoError(t, cmd.Run(), "git %v", args)
	}
	return dir
}

func git(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, string(out))
}

func TestNewGit(t *testing.T) {
	assert.Equal(t, ".", NewGit("").workDir)
	assert.Equal(t, "/tmp", NewGit("/tmp").workDir)
}

func TestGit_IsGitRepo_Outside(t *testing.T) {
	assert.False(t, NewGit("/nonexistent").IsGitRepo(context.Background()))
}

func TestFilterSourceFiles(t *testing.T) {
	files := []string{
		"src/index.js",
		"src/App.jsx",
		"lib/util.mjs",
		"README.md",
		"package.json",
		"types.ts",
		"main.go",
	}

	assert.Equal(t, []string{"src/index.js", "src/App.jsx", "lib/util.mjs", "types.ts"}, filterSourceFiles(files))
}

func TestFilterExisting(t *testing.T) {
	tmpDir := t.TempDir()
	existing := filepath.Join(tmpDir, "exists.js")
	require.NoError(t, os.WriteFile(existing, []byte(""), 0o644))

	filtered := FilterExisting([]string{existing, filepath.Join(tmpDir, "missing.js")})
	assert.Equal(t, []string{existing}, filtered)
}

func TestGit_ParseFileList(t *testing.T) {
	files, err := NewGit(t.TempDir()).parseFileList(context.Background(), []byte("a.js\n/abs/b.js\n\n"))
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "/abs/b.js", files[1])
}

func TestGit_TempRepo(t *testing.T) {
	ctx := context.Background()
	dir := initRepo(t)
	g := NewGit(dir)

	assert.True(t, g.IsGitRepo(ctx))

	root, err := g.GetRepoRoot(ctx)
	require.NoError(t, err)
	want, _ := filepath.EvalSymlinks(dir)
	got, _ := filepath.EvalSymlinks(root)
	assert.Equal(t, want, got)

	main := filepath.Join(dir, "index.js")
	require.NoError(t, os.WriteFile(main, []byte("a();\n"), 0o644))
	git(t, dir, "add", "index.js")

	staged, err := g.GetStagedFiles(ctx)
	require.NoError(t, err)
	assert.Len(t, staged, 1)

	git(t, dir, "commit", "-m", "initial")

	branch, err := g.GetCurrentBranch(ctx)
	require.NoError(t, err)
	assert.Equal(t, "main", branch)
	assert.Equal(t, "main", g.GetDefaultBranch(ctx))

	require.NoError(t, os.WriteFile(main, []byte("b();\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "new.jsx"), []byte("<a/>;\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.md"), []byte("# notes\n"), 0o644))

	unstaged, err := g.GetUnstagedFiles(ctx)
	require.NoError(t, err)
	assert.Len(t, unstaged, 1)

	untracked, err := g.GetUntrackedFiles(ctx)
	require.NoError(t, err)
	assert.Len(t, untracked, 2)

	all, err := g.GetAllChanges(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	sources, err := g.GetAllChangedSourceFiles(ctx)
	require.NoError(t, err)
	require.Len(t, sources, 2)
	for _, f := range sources {
		assert.True(t, filepath.IsAbs(f))
	}

	statuses, err := g.GetFileStatuses(ctx)
	require.NoError(t, err)
	byName := make(map[string]string)
	for _, s := range statuses {
		byName[filepath.Base(s.Path)] = s.Status
	}
	assert.Equal(t, "M", byName["index.js"])
	assert.Equal(t, "??", byName["new.jsx"])

	t.Run("changed since base", func(t *testing.T) {
		git(t, dir, "checkout", "-b", "feature")
		git(t, dir, "add", ".")
		git(t, dir, "commit", "-m", "feature")

		changed, err := g.GetChangedSourceFiles(ctx, "main")
		require.NoError(t, err)
		assert.Len(t, changed, 2)
	})
}
