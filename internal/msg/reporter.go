// Package msg implements the leveled message facade for the debkit
// commands. It is the one place run output is written and the one place
// warning/error history is recorded; the final exit code is computed from
// that history.
//
// Four message classes exist. Debug output is suppressed unless debug
// mode is on. Info goes to standard output. Warning and Error go to
// standard error and set the corresponding flag. The reporter never
// terminates the process: errors travel back to the top-level handler as
// values (see internal/cli.Execute).
package msg

import (
	"fmt"
	"io"
	"sync"

	"github.com/CharlesMAtkinson/wireguard-kit-debian-packaging/internal/model"
)

// Level identifies a message class.
type Level int

const (
	// LevelDebug messages trace internal steps; written to standard
	// error only when debug mode is enabled.
	LevelDebug Level = iota

	// LevelInfo messages report normal progress on standard output.
	LevelInfo

	// LevelWarning messages report recoverable problems on standard
	// error and mark the run as warned.
	LevelWarning

	// LevelError messages report failures on standard error and mark the
	// run as failed.
	LevelError
)

// String returns the severity prefix used in output.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarning:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return fmt.Sprintf("Level(%d)", int(l))
	}
}

// Reporter formats leveled messages and tracks whether any warning or
// error occurred during the run. It is safe for use from the main flow
// and the signal goroutine at the same time.
type Reporter struct {
	mu     sync.Mutex
	debug  bool
	out    io.Writer
	errOut io.Writer
	warned bool
	failed bool
}

// New creates a Reporter. out receives Info messages; errOut receives
// Debug, Warning and Error messages.
func New(debug bool, out, errOut io.Writer) *Reporter {
	return &Reporter{debug: debug, out: out, errOut: errOut}
}

// Debugging reports whether debug mode is enabled.
func (r *Reporter) Debugging() bool {
	return r.debug
}

// Report writes a message of the given class. An unknown class is itself
// a programming error and is returned to the caller instead of being
// written anywhere.
func (r *Reporter) Report(level Level, format string, args ...interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch level {
	case LevelDebug:
		if r.debug {
			fmt.Fprintf(r.errOut, "DEBUG: "+format+"\n", args...)
		}
	case LevelInfo:
		fmt.Fprintf(r.out, format+"\n", args...)
	case LevelWarning:
		r.warned = true
		fmt.Fprintf(r.errOut, "WARN: "+format+"\n", args...)
	case LevelError:
		r.failed = true
		fmt.Fprintf(r.errOut, "ERROR: "+format+"\n", args...)
	default:
		return model.ProgrammingError("unknown message level %d", int(level))
	}
	return nil
}

// Debugf writes a debug trace message (suppressed unless debug mode).
func (r *Reporter) Debugf(format string, args ...interface{}) {
	_ = r.Report(LevelDebug, format, args...)
}

// Infof writes a progress message to standard output.
func (r *Reporter) Infof(format string, args ...interface{}) {
	_ = r.Report(LevelInfo, format, args...)
}

// Warningf writes a warning to standard error and records it.
func (r *Reporter) Warningf(format string, args ...interface{}) {
	_ = r.Report(LevelWarning, format, args...)
}

// Errorf writes an error to standard error and records it.
func (r *Reporter) Errorf(format string, args ...interface{}) {
	_ = r.Report(LevelError, format, args...)
}

// Warned reports whether any warning was emitted during the run.
func (r *Reporter) Warned() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.warned
}

// Failed reports whether any error was emitted during the run.
func (r *Reporter) Failed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.failed
}

// ExitCode computes the process exit code from the recorded history:
// 1 if any warning occurred plus 2 if any error occurred. When the
// caller requests a failure exit (forceFailure) but neither flag is set,
// the code is forced to 2 so the process never reports success after a
// failed run.
func (r *Reporter) ExitCode(forceFailure bool) model.ExitCode {
	r.mu.Lock()
	defer r.mu.Unlock()

	code := model.ExitSuccess
	if r.warned {
		code += model.ExitWarnings
	}
	if r.failed {
		code += model.ExitErrors
	}
	if forceFailure && code&model.ExitErrors == 0 {
		// A failure was requested but no error flag is set. Exit 2 (or 3
		// when a warning was also recorded).
		code += model.ExitErrors
	}
	return code
}
