// Package gate decides whether proposed actions run automatically, require
// user confirmation, or are blocked outright. Every proposed action passes
// through exactly one review; terminal outcomes are immutable and each
// produces exactly one session event.
package gate

import (
	"fmt"
	"time"
)

// ActionKind tags the variants of a proposed action.
type ActionKind string

const (
	ActionFileEdit    ActionKind = "file_edit"
	ActionCommandExec ActionKind = "command_exec"
)

// FileEdit proposes replacing the full content of a file. Diff is a
// human-readable preview shown at the approval prompt.
type FileEdit struct {
	Path       string
	NewContent []byte
	Diff       string
}

// CommandExec proposes running a shell command. A zero Timeout means the
// executor's configured default applies.
type CommandExec struct {
	Command    string
	WorkingDir string
	Timeout    time.Duration
}

// Action is the tagged union of proposable actions. Exactly one variant
// field is set, matching Kind.
type Action struct {
	Kind    ActionKind
	Edit    *FileEdit
	Command *CommandExec
}

// NewFileEdit builds a file-edit action.
func NewFileEdit(path string, newContent []byte, diff string) Action {
	return Action{Kind: ActionFileEdit, Edit: &FileEdit{Path: path, NewContent: newContent, Diff: diff}}
}

// NewCommandExec builds a command-execution action.
func NewCommandExec(command, workingDir string, timeout time.Duration) Action {
	return Action{Kind: ActionCommandExec, Command: &CommandExec{Command: command, WorkingDir: workingDir, Timeout: timeout}}
}

// Describe returns a one-line summary for prompts and log events.
func (a Action) Describe() string {
	switch a.Kind {
	case ActionFileEdit:
		return fmt.Sprintf("edit %s", a.Edit.Path)
	case ActionCommandExec:
		return fmt.Sprintf("run %q", a.Command.Command)
	default:
		return string(a.Kind)
	}
}
