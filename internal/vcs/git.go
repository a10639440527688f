// Package vcs wraps the git CLI for the release workflow: working-tree
// inspection, staging removals, committing, and tagging.
//
// Commands shell out to git rather than using a Go Git library because
// the workflow must match whatever git the packager uses day to day,
// including hooks and local configuration. All commands pass the target
// tree via -C so the process working directory never changes.
package vcs

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/CharlesMAtkinson/wireguard-kit-debian-packaging/internal/model"
)

// StatusSummary classifies the entries of `git status --porcelain`.
type StatusSummary struct {
	// Modified lists tracked files with staged or unstaged changes,
	// including additions, deletions, and renames.
	Modified []string

	// Untracked lists files git does not track.
	Untracked []string

	// Unmerged lists paths with unresolved merge conflicts. Any entry
	// here makes a commit impossible.
	Unmerged []string
}

// Clean reports whether nothing tracked changed and nothing is unmerged.
func (s StatusSummary) Clean() bool {
	return len(s.Modified) == 0 && len(s.Unmerged) == 0
}

// Manager provides git operations for one repository. It is stateless;
// every method takes the tree path.
type Manager struct{}

// NewManager creates a Manager.
func NewManager() *Manager {
	return &Manager{}
}

// IsRepoRoot reports whether dir is the top level of a git working tree,
// which both commands require before touching anything.
func (m *Manager) IsRepoRoot(dir string) bool {
	out, err := runGit(dir, "rev-parse", "--show-toplevel")
	if err != nil {
		return false
	}
	top, err := filepath.EvalSymlinks(strings.TrimSpace(out))
	if err != nil {
		return false
	}
	resolved, err := filepath.EvalSymlinks(filepath.Clean(dir))
	if err != nil {
		return false
	}
	return top == resolved
}

// Status runs `git status --porcelain` and classifies every entry.
func (m *Manager) Status(dir string) (StatusSummary, error) {
	out, err := runGit(dir, "status", "--porcelain")
	if err != nil {
		return StatusSummary{}, err
	}
	return parsePorcelainStatus(out), nil
}

// Remove stages the deletion of a file. Paths that git never tracked are
// not an error; the filesystem removal is the caller's concern.
func (m *Manager) Remove(dir, path string) error {
	_, err := runGit(dir, "rm", "--ignore-unmatch", "--quiet", "--", path)
	return err
}

// CommitAll commits every tracked modification with the given message,
// equivalent to `git commit -a -m <message>`.
func (m *Manager) CommitAll(dir, message string) error {
	_, err := runGit(dir, "commit", "-a", "-m", message)
	return err
}

// Tag creates an annotated tag. With force, an existing tag of the same
// name is replaced.
func (m *Manager) Tag(dir, name, message string, force bool) error {
	args := []string{"tag", "-a", "-m", message}
	if force {
		args = append(args, "-f")
	}
	args = append(args, name)
	_, err := runGit(dir, args...)
	return err
}

// TagExists reports whether the named tag exists.
func (m *Manager) TagExists(dir, name string) bool {
	_, err := runGit(dir, "rev-parse", "--verify", "--quiet", "refs/tags/"+name)
	return err == nil
}

// runGit executes git -C dir with the given arguments, returning stdout
// on success and a CLIError including stderr on failure.
func runGit(dir string, args ...string) (string, error) {
	fullArgs := append([]string{"-C", dir}, args...)
	cmd := exec.Command("git", fullArgs...)

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		message := fmt.Sprintf("git %s failed", strings.Join(args, " "))
		if s := strings.TrimSpace(stderr.String()); s != "" {
			message = fmt.Sprintf("%s: %s", message, s)
		}
		return "", model.WrapCLIError(model.ExitErrors, message, err)
	}
	return stdout.String(), nil
}

// parsePorcelainStatus classifies `git status --porcelain` lines. Each
// line is "XY path" where X is the index state and Y the work-tree state.
// Unmerged entries use U in either column or the AA/DD combinations.
func parsePorcelainStatus(out string) StatusSummary {
	var s StatusSummary

	for _, line := range strings.Split(out, "\n") {
		if len(line) < 4 {
			continue
		}
		x, y := line[0], line[1]
		path := line[3:]
		// Rename entries are "R  old -> new"; keep the new name.
		if i := strings.Index(path, " -> "); i >= 0 {
			path = path[i+4:]
		}

		switch {
		case x == '?' && y == '?':
			s.Untracked = append(s.Untracked, path)
		case x == 'U' || y == 'U' || (x == 'A' && y == 'A') || (x == 'D' && y == 'D'):
			s.Unmerged = append(s.Unmerged, path)
		default:
			s.Modified = append(s.Modified, path)
		}
	}
	return s
}
