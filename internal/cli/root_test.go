// Package cli — root_test.go covers the shared request validation: the
// version option handling and the aggregation of every usage problem
// into a single error.
package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// executeCommand runs the root command with the given arguments and
// captured output streams.
func executeCommand(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()

	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	rootCmd := NewRootCommand()
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)
	rootCmd.SetArgs(args)

	err = rootCmd.Execute()
	return out.String(), errOut.String(), err
}

// TestUsageProblemsAggregated: a missing version option and stray
// positional arguments are reported together, not one at a time.
func TestUsageProblemsAggregated(t *testing.T) {
	_, _, err := executeCommand(t, "build", "stray")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required option -v")
	assert.Contains(t, err.Error(), "unexpected arguments: stray")
}

func TestMalformedVersionRejected(t *testing.T) {
	tests := []struct {
		name    string
		version string
	}{
		{"missing revision", "3.2.2"},
		{"two components", "3.2-1"},
		{"non-numeric revision", "3.2.2-x"},
		{"leading junk", "v3.2.2-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := executeCommand(t, "release", "-v", tt.version)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid package version")
		})
	}
}

// TestValidVersionPassesValidation: with a well-formed version the
// command proceeds past validation and fails later (no repository in
// the current directory), not on usage.
func TestValidVersionPassesValidation(t *testing.T) {
	chdir(t, t.TempDir())

	_, _, err := executeCommand(t, "build", "-v", "3.2.2-1")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "invalid package version")
	assert.Contains(t, err.Error(), "not the root of a version-controlled tree")
}

func TestVersionFlagOutput(t *testing.T) {
	stdout, _, err := executeCommand(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, stdout, Version)
}
