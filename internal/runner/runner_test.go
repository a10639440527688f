package runner

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CharlesMAtkinson/wireguard-kit-debian-packaging/internal/msg"
)

func newRunner(debug bool) (*Runner, *bytes.Buffer) {
	errOut := &bytes.Buffer{}
	return New(msg.New(debug, &bytes.Buffer{}, errOut)), errOut
}

// TestRunSuccess: stdout is captured and the exit code is zero.
func TestRunSuccess(t *testing.T) {
	r, _ := newRunner(false)

	res, err := r.Run(context.Background(), "", "sh", "-c", "echo hello; echo oops >&2")
	require.NoError(t, err)
	assert.Equal(t, "hello\n", res.Stdout)
	assert.Equal(t, "oops\n", res.Stderr)
	assert.Equal(t, 0, res.ExitCode)
}

// TestRunFailure: a non-zero exit reports the command line, exit code,
// and captured stderr.
func TestRunFailure(t *testing.T) {
	r, _ := newRunner(false)

	res, err := r.Run(context.Background(), "", "sh", "-c", "echo broken >&2; exit 3")
	require.Error(t, err)
	assert.Equal(t, 3, res.ExitCode)
	assert.Contains(t, err.Error(), "exit 3")
	assert.Contains(t, err.Error(), "broken")
	assert.Contains(t, err.Error(), "sh -c")
}

// TestRunMissingTool: a tool that cannot start is distinguished from one
// that ran and failed.
func TestRunMissingTool(t *testing.T) {
	r, _ := newRunner(false)

	res, err := r.Run(context.Background(), "", "definitely-not-a-real-tool-xyz")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot run")
	assert.Equal(t, -1, res.ExitCode)
}

// TestRunDir: the command runs in the requested directory.
func TestRunDir(t *testing.T) {
	r, _ := newRunner(false)
	dir := t.TempDir()

	res, err := r.Run(context.Background(), dir, "pwd")
	require.NoError(t, err)
	assert.Contains(t, res.Stdout, dir)
}

// TestRunDebugTrace: with debug enabled the invocation is traced.
func TestRunDebugTrace(t *testing.T) {
	r, errOut := newRunner(true)

	_, err := r.Run(context.Background(), "", "true")
	require.NoError(t, err)
	assert.Contains(t, errOut.String(), "DEBUG: running: true")
}

// TestRunQuiet: probe form reports only success or failure.
func TestRunQuiet(t *testing.T) {
	r, _ := newRunner(false)
	assert.True(t, r.RunQuiet(context.Background(), "", "true"))
	assert.False(t, r.RunQuiet(context.Background(), "", "false"))
}
