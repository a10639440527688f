// Package lifecycle owns the per-run resources of a debkit command: the
// temporary working directory, the advisory lock that keeps two runs of
// the same command from interleaving, and the routing of terminating
// signals into a single idempotent shutdown path.
//
// The controller moves through initializing → running → finalizing →
// terminated. Shutdown happens exactly once no matter how many exit paths
// race to it (normal return, error return, signal); a sync.Once guards
// the transition rather than an ad-hoc boolean.
package lifecycle

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"regexp"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/CharlesMAtkinson/wireguard-kit-debian-packaging/internal/model"
	"github.com/CharlesMAtkinson/wireguard-kit-debian-packaging/internal/msg"
)

// trappedSignals is every terminating signal the controller converts into
// a 128+N exit. SIGKILL cannot be trapped and SIGCHLD only reports child
// status, so neither appears here.
var trappedSignals = []os.Signal{
	syscall.SIGHUP,
	syscall.SIGINT,
	syscall.SIGQUIT,
	syscall.SIGABRT,
	syscall.SIGPIPE,
	syscall.SIGALRM,
	syscall.SIGTERM,
	syscall.SIGUSR1,
	syscall.SIGUSR2,
}

// Options adjusts controller behavior. The zero value is correct for
// production use; tests override the directories and the exit function.
type Options struct {
	// TempRoot is where the working directory is created.
	// Defaults to os.TempDir().
	TempRoot string

	// LockDir is where the lock file lives. Defaults to os.TempDir().
	LockDir string

	// Keep retains the working directory at shutdown for inspection.
	Keep bool

	// Exit terminates the process. Defaults to os.Exit.
	Exit func(code int)
}

// Controller holds one run's temporary directory and lock, and routes
// trapped signals to shutdown. Create one per command invocation with New
// and always call Shutdown (normally via defer) before returning.
type Controller struct {
	tool     string
	rep      *msg.Reporter
	tempRoot string
	workDir  string
	lockPath string
	lockFile *os.File
	keep     bool
	exit     func(int)
	sigCh    chan os.Signal
	once     sync.Once
}

// New acquires the per-tool lock, creates the temporary working
// directory, and registers the signal handlers. On any failure nothing is
// left behind.
func New(tool string, rep *msg.Reporter, opts Options) (*Controller, error) {
	if opts.TempRoot == "" {
		opts.TempRoot = os.TempDir()
	}
	if opts.LockDir == "" {
		opts.LockDir = os.TempDir()
	}
	if opts.Exit == nil {
		opts.Exit = os.Exit
	}

	c := &Controller{
		tool:     tool,
		rep:      rep,
		tempRoot: opts.TempRoot,
		lockPath: filepath.Join(opts.LockDir, "debkit-"+tool+".lock"),
		keep:     opts.Keep,
		exit:     opts.Exit,
	}

	if err := c.acquireLock(); err != nil {
		return nil, err
	}

	workDir, err := os.MkdirTemp(opts.TempRoot, "debkit-"+tool+".")
	if err != nil {
		c.releaseLock()
		return nil, model.WrapCLIError(model.ExitErrors, "failed to create working directory", err)
	}
	c.workDir = workDir
	rep.Debugf("working directory: %s", workDir)

	c.sigCh = make(chan os.Signal, 1)
	signal.Notify(c.sigCh, trappedSignals...)
	go c.watchSignals()

	return c, nil
}

// WorkDir returns the run's temporary working directory.
func (c *Controller) WorkDir() string {
	return c.workDir
}

// LockPath returns the path of the held lock file.
func (c *Controller) LockPath() string {
	return c.lockPath
}

// Shutdown releases the lock and removes the working directory (unless
// retention was requested). It is idempotent: later calls, including a
// re-entrant one from the signal path, are no-ops.
func (c *Controller) Shutdown() {
	c.once.Do(c.cleanup)
}

// acquireLock takes an exclusive advisory flock on the per-tool lock
// file and records the holder's PID in it. A second concurrent run fails
// fast instead of queueing. The kernel drops the lock if the process
// dies, so a crashed run cannot leave the lock stuck.
func (c *Controller) acquireLock() error {
	f, err := os.OpenFile(c.lockPath, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return model.WrapCLIError(model.ExitErrors,
			fmt.Sprintf("cannot open lock file %s", c.lockPath), err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		_ = f.Close()
		return model.WrapCLIError(model.ExitErrors,
			fmt.Sprintf("another debkit %s run holds %s", c.tool, c.lockPath), err)
	}

	// The PID is informational only; the flock is what enforces mutual
	// exclusion.
	_ = f.Truncate(0)
	_, _ = fmt.Fprintf(f, "%d\n", os.Getpid())

	c.lockFile = f
	return nil
}

func (c *Controller) releaseLock() {
	if c.lockFile == nil {
		return
	}
	_ = unix.Flock(int(c.lockFile.Fd()), unix.LOCK_UN)
	_ = c.lockFile.Close()
	_ = os.Remove(c.lockPath)
	c.lockFile = nil
}

// watchSignals runs in its own goroutine. The first trapped signal routes
// to shutdown and terminates the process with 128+N. A normal Shutdown
// closes the channel, which ends the goroutine without exiting.
func (c *Controller) watchSignals() {
	sig, ok := <-c.sigCh
	if !ok {
		return
	}
	c.rep.Errorf("received signal %v, shutting down", sig)
	c.once.Do(c.cleanup)
	c.exit(int(SignalExitCode(sig)))
}

// cleanup is the single shutdown body, reached exactly once through the
// sync.Once in Shutdown / watchSignals.
func (c *Controller) cleanup() {
	signal.Stop(c.sigCh)
	close(c.sigCh)
	c.removeWorkDir()
	c.releaseLock()
}

// workDirPattern matches the exact naming template MkdirTemp used for
// this tool's working directory.
func (c *Controller) workDirPattern() *regexp.Regexp {
	return regexp.MustCompile(`^debkit-` + regexp.QuoteMeta(c.tool) + `\.[0-9A-Za-z]+$`)
}

// removeWorkDir deletes the working directory at shutdown. The path must
// still sit directly under the temp root and match the creation template;
// anything else is left alone and reported, so a corrupted path can never
// turn into a recursive delete of the wrong tree.
func (c *Controller) removeWorkDir() {
	if c.workDir == "" {
		return
	}
	if c.keep {
		c.rep.Infof("retaining working directory %s", c.workDir)
		return
	}

	parent := filepath.Dir(c.workDir)
	base := filepath.Base(c.workDir)
	if parent != filepath.Clean(c.tempRoot) || !c.workDirPattern().MatchString(base) {
		c.rep.Errorf("refusing to remove %s: not a debkit %s working directory", c.workDir, c.tool)
		return
	}

	if err := os.RemoveAll(c.workDir); err != nil {
		c.rep.Errorf("failed to remove working directory %s: %v", c.workDir, err)
	}
}

// SignalExitCode maps a trapped signal to its exit code, 128 plus the
// signal number. Non-POSIX signal values map to plain failure.
func SignalExitCode(sig os.Signal) model.ExitCode {
	s, ok := sig.(syscall.Signal)
	if !ok {
		return model.ExitErrors
	}
	return model.ExitSignalBase + model.ExitCode(s)
}
