// Package runner is the single choke point for invoking external tools
// (debuild, debsign, tar, ar, xz, cp). Every invocation is blocking,
// captures stdout and stderr separately, and reports non-zero exits as
// CLIError values carrying the full command line, exit code, and
// captured standard error for diagnosis. No timeouts are applied: a hang
// in an external tool hangs the run, matching the pipeline's sequential
// contract.
package runner

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/CharlesMAtkinson/wireguard-kit-debian-packaging/internal/model"
	"github.com/CharlesMAtkinson/wireguard-kit-debian-packaging/internal/msg"
)

// Result is the captured outcome of one external tool invocation. It is
// inspected once immediately after the call and not retained.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner invokes external tools and traces every invocation through the
// reporter's debug channel.
type Runner struct {
	rep *msg.Reporter
}

// New creates a Runner reporting through rep.
func New(rep *msg.Reporter) *Runner {
	return &Runner{rep: rep}
}

// Run executes name with args in dir (empty dir means the current
// working directory) and waits for completion. A non-zero exit returns a
// CLIError alongside the captured Result; the Result is valid either way.
func (r *Runner) Run(ctx context.Context, dir, name string, args ...string) (Result, error) {
	r.rep.Debugf("running: %s %s (in %s)", name, strings.Join(args, " "), displayDir(dir))

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}

	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			// The tool never ran (not found, not executable, context
			// cancelled before start).
			res.ExitCode = -1
			return res, model.WrapCLIError(model.ExitErrors,
				fmt.Sprintf("cannot run %s", name), err)
		}
		return res, model.NewCLIError(model.ExitErrors, failureMessage(name, args, res))
	}

	if res.Stdout != "" {
		r.rep.Debugf("%s stdout:\n%s", name, strings.TrimRight(res.Stdout, "\n"))
	}
	return res, nil
}

// RunQuiet is Run for probes whose failure is an answer, not an error:
// it returns only whether the command exited zero.
func (r *Runner) RunQuiet(ctx context.Context, dir, name string, args ...string) bool {
	_, err := r.Run(ctx, dir, name, args...)
	return err == nil
}

// failureMessage renders the full diagnosis for a failed invocation:
// command line, exit code, and whatever the tool wrote to stderr.
func failureMessage(name string, args []string, res Result) string {
	b := &strings.Builder{}
	fmt.Fprintf(b, "%s %s failed (exit %d)", name, strings.Join(args, " "), res.ExitCode)
	if s := strings.TrimSpace(res.Stderr); s != "" {
		fmt.Fprintf(b, ": %s", s)
	}
	return b.String()
}

func displayDir(dir string) string {
	if dir == "" {
		return "."
	}
	return dir
}
