// Package errs defines the error taxonomy of spec.md §7: a small set of
// distinct, wrappable error kinds that cmd/minilop maps to exit codes.
package errs

import "fmt"

// InitError is fatal: the process cannot start fuzzing at all (shared
// memory allocation failed, the forkserver never came up, the dry run
// admitted zero seeds, a required folder is missing). Exit code 1.
type InitError struct {
	Msg string
	Err error
}

func (e *InitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("init error: %s: %v", e.Msg, e.Err)
	}
	return fmt.Sprintf("init error: %s", e.Msg)
}

func (e *InitError) Unwrap() error { return e.Err }

// NewInit wraps err as a fatal initialisation error.
func NewInit(msg string, err error) *InitError {
	return &InitError{Msg: msg, Err: err}
}

// HarnessError signals a forkserver control-channel failure. The main
// loop is allowed to respawn once in response to this; a second
// occurrence must be escalated to a fatal runtime error (exit code 2).
type HarnessError struct {
	Msg string
	Err error
}

func (e *HarnessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("harness error: %s: %v", e.Msg, e.Err)
	}
	return fmt.Sprintf("harness error: %s", e.Msg)
}

func (e *HarnessError) Unwrap() error { return e.Err }

// NewHarness wraps err as a recoverable-once harness error.
func NewHarness(msg string, err error) *HarnessError {
	return &HarnessError{Msg: msg, Err: err}
}

// FatalError wraps any error that should terminate the main loop with
// exit code 2 (a second consecutive HarnessError, or any other
// unrecoverable runtime condition).
type FatalError struct {
	Msg string
	Err error
}

func (e *FatalError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fatal: %s: %v", e.Msg, e.Err)
	}
	return fmt.Sprintf("fatal: %s", e.Msg)
}

func (e *FatalError) Unwrap() error { return e.Err }

// NewFatal wraps err as a fatal runtime error.
func NewFatal(msg string, err error) *FatalError {
	return &FatalError{Msg: msg, Err: err}
}
