package vcs

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRepo creates a git repository with one commit in a temporary
// directory, with a local identity so commits work without global
// configuration.
func setupTestRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	runTestGit(t, dir, "init", "-b", "main")
	runTestGit(t, dir, "config", "user.email", "test@example.com")
	runTestGit(t, dir, "config", "user.name", "Test User")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "README"), []byte("readme\n"), 0o644))
	runTestGit(t, dir, "add", ".")
	runTestGit(t, dir, "commit", "-m", "initial commit")
	return dir
}

func runTestGit(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", append([]string{"-C", dir}, args...)...)
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %v failed: %s", args, string(out))
	return string(out)
}

func TestIsRepoRoot(t *testing.T) {
	repo := setupTestRepo(t)
	m := NewManager()

	assert.True(t, m.IsRepoRoot(repo))

	sub := filepath.Join(repo, "sub")
	require.NoError(t, os.Mkdir(sub, 0o755))
	assert.False(t, m.IsRepoRoot(sub), "a subdirectory is not the tree root")
	assert.False(t, m.IsRepoRoot(t.TempDir()), "a non-repo is not a tree root")
}

func TestStatusClassification(t *testing.T) {
	repo := setupTestRepo(t)
	m := NewManager()

	s, err := m.Status(repo)
	require.NoError(t, err)
	assert.True(t, s.Clean())
	assert.Empty(t, s.Untracked)

	// One modification, one untracked file.
	require.NoError(t, os.WriteFile(filepath.Join(repo, "README"), []byte("changed\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(repo, "new.txt"), []byte("new\n"), 0o644))

	s, err = m.Status(repo)
	require.NoError(t, err)
	assert.False(t, s.Clean())
	assert.Equal(t, []string{"README"}, s.Modified)
	assert.Equal(t, []string{"new.txt"}, s.Untracked)
	assert.Empty(t, s.Unmerged)
}

func TestStatusUnmerged(t *testing.T) {
	repo := setupTestRepo(t)
	m := NewManager()

	// Create a conflict: both branches edit README.
	runTestGit(t, repo, "checkout", "-b", "feature")
	require.NoError(t, os.WriteFile(filepath.Join(repo, "README"), []byte("feature\n"), 0o644))
	runTestGit(t, repo, "commit", "-a", "-m", "feature change")

	runTestGit(t, repo, "checkout", "main")
	require.NoError(t, os.WriteFile(filepath.Join(repo, "README"), []byte("main\n"), 0o644))
	runTestGit(t, repo, "commit", "-a", "-m", "main change")

	merge := exec.Command("git", "-C", repo, "merge", "feature")
	_ = merge.Run() // expected to fail with a conflict

	s, err := m.Status(repo)
	require.NoError(t, err)
	assert.Equal(t, []string{"README"}, s.Unmerged)
}

func TestCommitAllAndTag(t *testing.T) {
	repo := setupTestRepo(t)
	m := NewManager()

	require.NoError(t, os.WriteFile(filepath.Join(repo, "README"), []byte("v2\n"), 0o644))
	require.NoError(t, m.CommitAll(repo, "3.2.2-1"))

	s, err := m.Status(repo)
	require.NoError(t, err)
	assert.True(t, s.Clean())

	subject := runTestGit(t, repo, "log", "-1", "--format=%s")
	assert.Equal(t, "3.2.2-1\n", subject)

	require.NoError(t, m.Tag(repo, "3.2.2-1", "3.2.2-1", false))
	assert.True(t, m.TagExists(repo, "3.2.2-1"))
	assert.False(t, m.TagExists(repo, "9.9.9-9"))

	// Creating the same tag again needs force.
	require.Error(t, m.Tag(repo, "3.2.2-1", "again", false))
	require.NoError(t, m.Tag(repo, "3.2.2-1", "again", true))
}

func TestRemove(t *testing.T) {
	repo := setupTestRepo(t)
	m := NewManager()

	tracked := filepath.Join(repo, "old.tar.gz")
	require.NoError(t, os.WriteFile(tracked, []byte("x"), 0o644))
	runTestGit(t, repo, "add", "old.tar.gz")
	runTestGit(t, repo, "commit", "-m", "add tarball")

	require.NoError(t, m.Remove(repo, "old.tar.gz"))
	s, err := m.Status(repo)
	require.NoError(t, err)
	assert.Contains(t, s.Modified, "old.tar.gz")

	// Never-tracked paths are tolerated.
	require.NoError(t, m.Remove(repo, "never-existed.tar.gz"))
}
