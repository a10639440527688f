package fscheck

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CharlesMAtkinson/wireguard-kit-debian-packaging/internal/model"
)

// TestCheckAllSatisfied: every path meeting its requirement yields nil.
func TestCheckAllSatisfied(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "changelog")
	require.NoError(t, os.WriteFile(file, []byte("x\n"), 0o644))

	err := Check(
		Item{Path: file, Kind: KindFile, Perms: "rw", Absolute: true},
		Item{Path: dir, Kind: KindDir, Perms: "rwx", Absolute: true},
	)
	assert.NoError(t, err)
}

// TestCheckReportsSpecificFailures: each failing path is named with the
// specific property it misses, and all failures come back in one error.
func TestCheckReportsSpecificFailures(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission checks are meaningless as root")
	}

	dir := t.TempDir()
	unreadable := filepath.Join(dir, "secret")
	require.NoError(t, os.WriteFile(unreadable, []byte("x"), 0o000))
	missing := filepath.Join(dir, "nope")

	err := Check(
		Item{Path: unreadable, Kind: KindFile, Perms: "r"},
		Item{Path: missing, Kind: KindFile},
		Item{Path: dir, Kind: KindFile}, // wrong kind
		Item{Path: "relative/path", Kind: KindDir, Absolute: true},
	)
	require.Error(t, err)

	msg := err.Error()
	assert.Contains(t, msg, unreadable+": not readable")
	assert.Contains(t, msg, missing+": does not exist")
	assert.Contains(t, msg, dir+": is not a regular file")
	assert.Contains(t, msg, "relative/path: not an absolute path")
}

// TestCheckMalformedRequirement: invalid kinds and permission letters are
// programming errors that short-circuit rather than per-file failures.
func TestCheckMalformedRequirement(t *testing.T) {
	dir := t.TempDir()

	err := Check(Item{Path: dir, Kind: Kind(99)})
	require.Error(t, err)
	var cliErr *model.CLIError
	require.ErrorAs(t, err, &cliErr)
	assert.Contains(t, cliErr.Message, "programming error")

	err = Check(Item{Path: dir, Kind: KindDir, Perms: "rz"})
	require.Error(t, err)
	require.ErrorAs(t, err, &cliErr)
	assert.Contains(t, cliErr.Message, "programming error")
	assert.Contains(t, cliErr.Message, `"z"`)
}

// TestCheckMissingPathSkipsAccess: a missing path reports only its
// absence, not follow-on kind or access noise.
func TestCheckMissingPathSkipsAccess(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "gone")
	err := Check(Item{Path: missing, Kind: KindFile, Perms: "rwx"})
	require.Error(t, err)
	assert.Equal(t, missing+": does not exist", err.(*model.CLIError).Message)
}
