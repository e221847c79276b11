// Package executor performs approved actions: atomic file edits and shell
// command execution with timeout and process-group cleanup. Failures are
// captured as structured error kinds on the result, never raised past this
// boundary.
package executor

import "time"

// ErrorKind classifies how an execution failed. Empty means success.
type ErrorKind string

const (
	ErrorNone         ErrorKind = ""
	ErrorTimeout      ErrorKind = "timeout"
	ErrorInterrupted  ErrorKind = "interrupted"
	ErrorSpawnFailure ErrorKind = "spawn_failure"
	ErrorIO           ErrorKind = "io_error"
	ErrorNonZeroExit  ErrorKind = "non_zero_exit"
)

// Result is the immutable outcome of one executed action. ExitCode is nil
// when no exit status exists (file edits, spawn failures, killed processes).
type Result struct {
	ExitCode  *int
	Stdout    string
	Stderr    string
	Duration  time.Duration
	Truncated bool
	ErrorKind ErrorKind

	// Detail describes the failure for the user; empty on success.
	Detail string
}

// Failed reports whether the action did not complete successfully.
func (r *Result) Failed() bool {
	return r.ErrorKind != ErrorNone
}

func intPtr(v int) *int {
	return &v
}
