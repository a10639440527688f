// Package fscheck verifies filesystem preconditions before a run touches
// anything: that named paths exist, have the expected kind, and grant the
// requested access to the effective user.
//
// A single Check call evaluates every item and reports all failing paths
// together, each with its specific reason, so a user fixes the whole tree
// in one pass instead of replaying the command per problem. A malformed
// requirement (unknown kind or permission letter) is an internal misuse,
// reported as a programming error and short-circuiting immediately.
package fscheck

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/CharlesMAtkinson/wireguard-kit-debian-packaging/internal/model"
)

// Kind is the expected file kind of a checked path.
type Kind int

const (
	// KindFile requires a regular file.
	KindFile Kind = iota

	// KindDir requires a directory.
	KindDir

	// KindBlockDevice requires a block device node.
	KindBlockDevice
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "regular file"
	case KindDir:
		return "directory"
	case KindBlockDevice:
		return "block device"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

func (k Kind) valid() bool {
	return k == KindFile || k == KindDir || k == KindBlockDevice
}

// Item is one (path, requirement) pair.
type Item struct {
	// Path is the filesystem path to verify.
	Path string

	// Kind is the required file kind.
	Kind Kind

	// Perms is the required access, any subset of "rwx" evaluated against
	// the effective user. Empty means existence and kind only.
	Perms string

	// Absolute requires Path to be absolute.
	Absolute bool
}

// Check verifies every item and returns nil only when all paths satisfy
// all requested properties. On failure it returns a single CLIError whose
// message lists each failing path with its reason. A malformed
// requirement returns a programming-error CLIError immediately.
func Check(items ...Item) error {
	var problems []string

	for _, item := range items {
		// Requirement validation comes first: a bad requirement is a bug
		// in the caller, not a property of the user's tree.
		if !item.Kind.valid() {
			return model.ProgrammingError("invalid file kind %d for %q", int(item.Kind), item.Path)
		}
		for _, p := range item.Perms {
			if p != 'r' && p != 'w' && p != 'x' {
				return model.ProgrammingError("invalid permission %q for %q (valid: r, w, x)", string(p), item.Path)
			}
		}

		problems = append(problems, checkItem(item)...)
	}

	if len(problems) > 0 {
		return model.NewCLIError(model.ExitErrors, strings.Join(problems, "\n"))
	}
	return nil
}

// checkItem evaluates one item and returns a reason string per failed
// property. It keeps going after the first failure so every problem with
// the path is reported.
func checkItem(item Item) []string {
	var problems []string

	if item.Absolute && !filepath.IsAbs(item.Path) {
		problems = append(problems, fmt.Sprintf("%s: not an absolute path", item.Path))
	}

	info, err := os.Stat(item.Path)
	if err != nil {
		if os.IsNotExist(err) {
			problems = append(problems, fmt.Sprintf("%s: does not exist", item.Path))
		} else {
			problems = append(problems, fmt.Sprintf("%s: cannot stat: %v", item.Path, err))
		}
		// Kind and access checks are meaningless without a stat result.
		return problems
	}

	if !kindMatches(item.Kind, info.Mode()) {
		problems = append(problems, fmt.Sprintf("%s: is not a %s", item.Path, item.Kind))
	}

	for _, p := range item.Perms {
		var mode uint32
		var word string
		switch p {
		case 'r':
			mode, word = unix.R_OK, "readable"
		case 'w':
			mode, word = unix.W_OK, "writable"
		case 'x':
			mode, word = unix.X_OK, "executable"
		}
		// unix.Access checks against the effective UID, matching what the
		// process can actually do, unlike a plain mode-bit inspection.
		if err := unix.Access(item.Path, mode); err != nil {
			problems = append(problems, fmt.Sprintf("%s: not %s", item.Path, word))
		}
	}

	return problems
}

func kindMatches(k Kind, mode fs.FileMode) bool {
	switch k {
	case KindFile:
		return mode.IsRegular()
	case KindDir:
		return mode.IsDir()
	case KindBlockDevice:
		return mode&fs.ModeDevice != 0 && mode&fs.ModeCharDevice == 0
	default:
		return false
	}
}
