package policy

import "fmt"

// OutsideWorkspaceError indicates a path resolves outside the workspace boundary.
type OutsideWorkspaceError struct{}

func (e *OutsideWorkspaceError) Error() string {
	return "path is outside workspace root"
}

// OutsideWorkspace implements the behavioral interface for cross-package error checking.
func (e *OutsideWorkspaceError) OutsideWorkspace() bool {
	return true
}

// ErrOutsideWorkspace is returned when a path escapes the workspace boundary.
var ErrOutsideWorkspace = &OutsideWorkspaceError{}

// TraversalAttemptError indicates a raw path contained parent-directory
// traversal tokens while canonical checking was unavailable.
type TraversalAttemptError struct {
	Path string
}

func (e *TraversalAttemptError) Error() string {
	return fmt.Sprintf("path contains traversal sequences: %s", e.Path)
}

func (e *TraversalAttemptError) TraversalAttempt() bool {
	return true
}

// NotFoundError indicates a read-intent path does not exist.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("path does not exist: %s", e.Path)
}

func (e *NotFoundError) NotFound() bool {
	return true
}

// WorkspaceRootNotSetError is returned when restriction is enabled but the
// workspace root is empty.
type WorkspaceRootNotSetError struct{}

func (e *WorkspaceRootNotSetError) Error() string {
	return "workspace root not set"
}

func (e *WorkspaceRootNotSetError) InvalidWorkspace() bool {
	return true
}

// ErrWorkspaceRootNotSet is returned when the workspace root is empty.
var ErrWorkspaceRootNotSet = &WorkspaceRootNotSetError{}

// SymlinkLoopError is returned when a symlink loop is detected.
type SymlinkLoopError struct {
	Path string
}

func (e *SymlinkLoopError) Error() string {
	return fmt.Sprintf("symlink loop detected: %s", e.Path)
}

func (e *SymlinkLoopError) PathResolutionFailed() bool {
	return true
}

// SymlinkChainTooLongError is returned when the symlink hop budget is exceeded.
type SymlinkChainTooLongError struct {
	MaxHops int
}

func (e *SymlinkChainTooLongError) Error() string {
	return fmt.Sprintf("symlink chain too long (max %d hops)", e.MaxHops)
}

func (e *SymlinkChainTooLongError) PathResolutionFailed() bool {
	return true
}

// DeniedError reports a command rejected by the denylist. Rule names the
// matched denylist rule so the user sees exactly why the command can never
// be approved.
type DeniedError struct {
	Rule   string
	Reason string
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("command denied by rule %s: %s", e.Rule, e.Reason)
}

func (e *DeniedError) CommandDenied() bool {
	return true
}
