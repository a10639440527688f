package model

import "fmt"

// ExitCode defines the process exit codes the debkit commands use.
// Scripts driving debkit rely on these to distinguish clean runs from
// runs that only warned and runs that failed outright.
type ExitCode int

const (
	// ExitSuccess indicates a clean run: no warnings, no errors.
	ExitSuccess ExitCode = 0

	// ExitWarnings indicates at least one warning was emitted but no error.
	ExitWarnings ExitCode = 1

	// ExitErrors indicates at least one error occurred. It is also the
	// forced code when a command requests a failure exit without having
	// recorded a specific warning or error.
	ExitErrors ExitCode = 2

	// ExitWarningsAndErrors indicates both a warning and an error occurred.
	ExitWarningsAndErrors ExitCode = 3

	// ExitSignalBase is added to the signal number when a trapped
	// terminating signal ends the run (so SIGTERM exits 143).
	ExitSignalBase ExitCode = 128
)

// CLIError is an error that carries an exit code. Domain packages return
// it up the call chain; the single top-level handler in internal/cli
// decides the process exit. No code below that handler terminates the
// process itself.
type CLIError struct {
	// Code is the exit code the process should terminate with.
	Code ExitCode

	// Message is the human-readable description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error satisfies the error interface.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is / errors.As.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a CLIError with the given exit code and message.
func NewCLIError(code ExitCode, message string) *CLIError {
	return &CLIError{Code: code, Message: message}
}

// WrapCLIError creates a CLIError wrapping an existing error.
func WrapCLIError(code ExitCode, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Err: err}
}

// ProgrammingError marks an internal misuse (for example a malformed
// precondition requirement). It is kept distinct from ordinary validation
// failures so it is never mistaken for a problem with the user's tree.
func ProgrammingError(format string, args ...interface{}) *CLIError {
	return &CLIError{
		Code:    ExitErrors,
		Message: "programming error: " + fmt.Sprintf(format, args...),
	}
}
