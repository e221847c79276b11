package executor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"github.com/Cyclone1070/aegis/internal/config"
	"github.com/Cyclone1070/aegis/internal/gate"
	"github.com/Cyclone1070/aegis/internal/session"
)

// FileWriter is the filesystem surface file edits need.
type FileWriter interface {
	WriteFileAtomic(path string, content []byte, perm os.FileMode) error
	EnsureDirs(path string) error
}

// ActionExecutor runs actions the gate approved. Commands execute in their
// own process group so a timeout or interrupt terminates the whole subprocess
// tree; file edits are all-or-nothing.
type ActionExecutor struct {
	fs            FileWriter
	log           *session.EventLog
	workspaceRoot string

	defaultTimeout time.Duration
	defaultDir     string
	maxOutput      int64
	gracePeriod    time.Duration
}

// NewActionExecutor creates the executor for one session.
func NewActionExecutor(cfg config.NativeCommandsConfig, workspaceRoot string, fs FileWriter, log *session.EventLog) *ActionExecutor {
	if fs == nil {
		panic("fs is required")
	}
	if log == nil {
		panic("log is required")
	}

	var defaultTimeout time.Duration
	if cfg.DefaultTimeoutSeconds != nil {
		defaultTimeout = time.Duration(*cfg.DefaultTimeoutSeconds) * time.Second
	}
	defaultDir := workspaceRoot
	if cfg.DefaultWorkingDirectory != nil {
		defaultDir = *cfg.DefaultWorkingDirectory
		if !filepath.IsAbs(defaultDir) {
			defaultDir = filepath.Join(workspaceRoot, defaultDir)
		}
	}

	return &ActionExecutor{
		fs:             fs,
		log:            log,
		workspaceRoot:  workspaceRoot,
		defaultTimeout: defaultTimeout,
		defaultDir:     defaultDir,
		maxOutput:      cfg.MaxOutputSize,
		gracePeriod:    time.Duration(cfg.GracefulShutdownMs) * time.Millisecond,
	}
}

// Execute runs an approved action and returns its result. Calling Execute
// with a non-approving decision is a programming error and panics; the gate
// is the only component allowed to approve.
func (e *ActionExecutor) Execute(ctx context.Context, action gate.Action, decision gate.Decision) *Result {
	if !decision.Approved() {
		panic(fmt.Sprintf("execute called with non-approving decision %q", decision.Outcome))
	}

	var result *Result
	switch action.Kind {
	case gate.ActionFileEdit:
		result = e.executeEdit(action.Edit)
	case gate.ActionCommandExec:
		result = e.executeCommand(ctx, action.Command)
	default:
		panic("unknown action kind " + string(action.Kind))
	}

	e.log.Append(session.Event{
		Kind:     session.EventToolResult,
		ToolName: string(action.Kind),
		Content:  summarize(action, result),
	})
	return result
}

func (e *ActionExecutor) executeEdit(edit *gate.FileEdit) *Result {
	start := time.Now()

	if err := e.fs.EnsureDirs(filepath.Dir(edit.Path)); err != nil {
		return &Result{
			Duration:  time.Since(start),
			ErrorKind: ErrorIO,
			Detail:    err.Error(),
		}
	}
	if err := e.fs.WriteFileAtomic(edit.Path, edit.NewContent, 0o644); err != nil {
		return &Result{
			Duration:  time.Since(start),
			ErrorKind: ErrorIO,
			Detail:    err.Error(),
		}
	}
	return &Result{Duration: time.Since(start)}
}

func (e *ActionExecutor) executeCommand(ctx context.Context, action *gate.CommandExec) *Result {
	timeout := action.Timeout
	if timeout == 0 {
		timeout = e.defaultTimeout
	}
	dir := action.WorkingDir
	if dir == "" {
		dir = e.defaultDir
	}

	start := time.Now()

	stdout := newCollector(e.maxOutput)
	stderr := newCollector(e.maxOutput)

	cmd := exec.Command("/bin/sh", "-c", action.Command)
	cmd.Dir = dir
	cmd.Env = os.Environ()
	cmd.Stdin = nil
	// The collectors are plain writers, so Wait drains both streams before
	// returning and no output from a short-lived command can be lost.
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	// Own process group, so killing -pgid reaches the whole subprocess tree.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		return &Result{Duration: time.Since(start), ErrorKind: ErrorSpawnFailure, Detail: err.Error()}
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	var timeoutCh <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	result := &Result{}
	select {
	case err := <-done:
		if err == nil {
			result.ExitCode = intPtr(0)
		} else if exitErr, ok := err.(*exec.ExitError); ok {
			result.ExitCode = intPtr(exitErr.ExitCode())
			result.ErrorKind = ErrorNonZeroExit
			result.Detail = fmt.Sprintf("exit status %d", exitErr.ExitCode())
		} else {
			result.ErrorKind = ErrorIO
			result.Detail = err.Error()
		}

	case <-ctx.Done():
		e.killGroup(cmd, done)
		result.ErrorKind = ErrorInterrupted
		result.Detail = ctx.Err().Error()

	case <-timeoutCh:
		// SIGINT first so the command may shut down cleanly, then SIGKILL
		// the whole group after the grace period.
		e.signalGroup(cmd, syscall.SIGINT)
		select {
		case <-done:
		case <-time.After(e.gracePeriod):
			e.killGroup(cmd, done)
		}
		result.ErrorKind = ErrorTimeout
		result.Detail = fmt.Sprintf("command exceeded timeout of %s", timeout)
	}

	result.Stdout = stdout.String()
	result.Stderr = stderr.String()
	result.Truncated = stdout.Truncated() || stderr.Truncated()
	result.Duration = time.Since(start)
	return result
}

func (e *ActionExecutor) signalGroup(cmd *exec.Cmd, sig syscall.Signal) {
	if cmd.Process == nil {
		return
	}
	_ = syscall.Kill(-cmd.Process.Pid, sig)
}

// killGroup SIGKILLs the process group and waits for Wait to return so the
// process is fully reaped before the result is built.
func (e *ActionExecutor) killGroup(cmd *exec.Cmd, done <-chan error) {
	e.signalGroup(cmd, syscall.SIGKILL)
	<-done
}

func summarize(action gate.Action, result *Result) string {
	if result.Failed() {
		return fmt.Sprintf("%s failed (%s): %s", action.Describe(), result.ErrorKind, result.Detail)
	}
	return action.Describe() + " succeeded"
}
