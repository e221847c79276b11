package adapter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Cyclone1070/aegis/internal/agent"
	"github.com/Cyclone1070/aegis/internal/executor"
	"github.com/Cyclone1070/aegis/internal/fsutil"
	"github.com/Cyclone1070/aegis/internal/gate"
	"github.com/Cyclone1070/aegis/internal/policy"
	"github.com/Cyclone1070/aegis/internal/provider/model"
)

// previewLimit caps diff previews shown at approval prompts.
const previewLimit = 40

// Toolbox wires the approval pipeline into the model-callable tools.
type Toolbox struct {
	gate        *gate.ApprovalGate
	exec        *executor.ActionExecutor
	paths       *policy.PathValidator
	fs          *fsutil.OSFileSystem
	maxFileSize int64
}

// NewToolbox creates the toolbox for one session.
func NewToolbox(g *gate.ApprovalGate, exec *executor.ActionExecutor, paths *policy.PathValidator, fs *fsutil.OSFileSystem, maxFileSize int64) *Toolbox {
	if g == nil {
		panic("gate is required")
	}
	if exec == nil {
		panic("exec is required")
	}
	if paths == nil {
		panic("paths is required")
	}
	if fs == nil {
		panic("fs is required")
	}
	return &Toolbox{gate: g, exec: exec, paths: paths, fs: fs, maxFileSize: maxFileSize}
}

// Tools returns every tool the agent may offer to the model.
func (t *Toolbox) Tools() []agent.Tool {
	return []agent.Tool{
		NewBaseAdapter(
			"run_command",
			"Runs a shell command in the workspace. Output is captured and returned.",
			&model.ParameterSchema{
				Type: "object",
				Properties: map[string]model.PropertySchema{
					"command":         {Type: "string", Description: "The shell command to run"},
					"working_dir":     {Type: "string", Description: "Working directory, relative to the workspace root"},
					"timeout_seconds": {Type: "integer", Description: "Timeout in seconds (0 uses the configured default)"},
				},
				Required: []string{"command"},
			},
			t.runCommand,
		),
		NewBaseAdapter(
			"read_file",
			"Reads a file from the workspace.",
			&model.ParameterSchema{
				Type: "object",
				Properties: map[string]model.PropertySchema{
					"path": {Type: "string", Description: "Path of the file to read"},
				},
				Required: []string{"path"},
			},
			t.readFile,
		),
		NewBaseAdapter(
			"write_file",
			"Writes a file in the workspace, replacing any existing content.",
			&model.ParameterSchema{
				Type: "object",
				Properties: map[string]model.PropertySchema{
					"path":    {Type: "string", Description: "Path of the file to write"},
					"content": {Type: "string", Description: "Full new file content"},
				},
				Required: []string{"path", "content"},
			},
			t.writeFile,
		),
		NewBaseAdapter(
			"edit_file",
			"Replaces one occurrence of a string in an existing file.",
			&model.ParameterSchema{
				Type: "object",
				Properties: map[string]model.PropertySchema{
					"path":       {Type: "string", Description: "Path of the file to edit"},
					"old_string": {Type: "string", Description: "Exact text to replace; must occur exactly once"},
					"new_string": {Type: "string", Description: "Replacement text"},
				},
				Required: []string{"path", "old_string", "new_string"},
			},
			t.editFile,
		),
	}
}

// RunCommandRequest is the typed argument set for run_command.
type RunCommandRequest struct {
	Command        string `mapstructure:"command"`
	WorkingDir     string `mapstructure:"working_dir"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

func (r RunCommandRequest) Validate() error {
	if strings.TrimSpace(r.Command) == "" {
		return errors.New("command must not be empty")
	}
	if r.TimeoutSeconds < 0 {
		return errors.New("timeout_seconds must not be negative")
	}
	return nil
}

// RunCommandResponse is what the model sees after a command runs.
type RunCommandResponse struct {
	ExitCode   *int   `json:"exit_code"`
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
	DurationMs int64  `json:"duration_ms"`
	Truncated  bool   `json:"truncated,omitempty"`
	ErrorKind  string `json:"error_kind,omitempty"`
	Detail     string `json:"detail,omitempty"`
}

func (t *Toolbox) runCommand(ctx context.Context, req RunCommandRequest) (RunCommandResponse, error) {
	action := gate.NewCommandExec(req.Command, req.WorkingDir, time.Duration(req.TimeoutSeconds)*time.Second)

	decision, err := t.review(ctx, action)
	if err != nil {
		return RunCommandResponse{}, err
	}

	result := t.exec.Execute(ctx, action, decision)
	return RunCommandResponse{
		ExitCode:   result.ExitCode,
		Stdout:     result.Stdout,
		Stderr:     result.Stderr,
		DurationMs: result.Duration.Milliseconds(),
		Truncated:  result.Truncated,
		ErrorKind:  string(result.ErrorKind),
		Detail:     result.Detail,
	}, nil
}

// ReadFileRequest is the typed argument set for read_file.
type ReadFileRequest struct {
	Path string `mapstructure:"path"`
}

func (r ReadFileRequest) Validate() error {
	if r.Path == "" {
		return errors.New("path must not be empty")
	}
	return nil
}

// ReadFileResponse carries the file content back to the model.
type ReadFileResponse struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

func (t *Toolbox) readFile(ctx context.Context, req ReadFileRequest) (ReadFileResponse, error) {
	canonical, err := t.paths.Validate(req.Path, policy.IntentRead)
	if err != nil {
		return ReadFileResponse{}, err
	}
	content, err := t.fs.ReadFileLimited(canonical, t.maxFileSize)
	if err != nil {
		return ReadFileResponse{}, err
	}
	return ReadFileResponse{Path: canonical, Content: string(content)}, nil
}

// WriteFileRequest is the typed argument set for write_file.
type WriteFileRequest struct {
	Path    string `mapstructure:"path"`
	Content string `mapstructure:"content"`
}

func (r WriteFileRequest) Validate() error {
	if r.Path == "" {
		return errors.New("path must not be empty")
	}
	return nil
}

// WriteFileResponse confirms a completed write.
type WriteFileResponse struct {
	Path         string `json:"path"`
	BytesWritten int    `json:"bytes_written"`
}

func (t *Toolbox) writeFile(ctx context.Context, req WriteFileRequest) (WriteFileResponse, error) {
	action := gate.NewFileEdit(req.Path, []byte(req.Content), writePreview(req.Path, req.Content))

	decision, err := t.review(ctx, action)
	if err != nil {
		return WriteFileResponse{}, err
	}

	result := t.exec.Execute(ctx, action, decision)
	if result.Failed() {
		return WriteFileResponse{}, fmt.Errorf("write failed (%s): %s", result.ErrorKind, result.Detail)
	}
	// The gate rewrote the path to its validated canonical form.
	return WriteFileResponse{Path: action.Edit.Path, BytesWritten: len(req.Content)}, nil
}

// EditFileRequest is the typed argument set for edit_file.
type EditFileRequest struct {
	Path      string `mapstructure:"path"`
	OldString string `mapstructure:"old_string"`
	NewString string `mapstructure:"new_string"`
}

func (r EditFileRequest) Validate() error {
	if r.Path == "" {
		return errors.New("path must not be empty")
	}
	if r.OldString == "" {
		return errors.New("old_string must not be empty")
	}
	if r.OldString == r.NewString {
		return errors.New("old_string and new_string are identical")
	}
	return nil
}

// EditFileResponse confirms a completed edit.
type EditFileResponse struct {
	Path string `json:"path"`
}

func (t *Toolbox) editFile(ctx context.Context, req EditFileRequest) (EditFileResponse, error) {
	canonical, err := t.paths.Validate(req.Path, policy.IntentRead)
	if err != nil {
		return EditFileResponse{}, err
	}
	current, err := t.fs.ReadFileLimited(canonical, t.maxFileSize)
	if err != nil {
		return EditFileResponse{}, err
	}

	switch n := strings.Count(string(current), req.OldString); {
	case n == 0:
		return EditFileResponse{}, fmt.Errorf("old_string not found in %s", req.Path)
	case n > 1:
		return EditFileResponse{}, fmt.Errorf("old_string occurs %d times in %s; provide more context", n, req.Path)
	}

	newContent := strings.Replace(string(current), req.OldString, req.NewString, 1)
	action := gate.NewFileEdit(canonical, []byte(newContent), editPreview(req.OldString, req.NewString))

	decision, err := t.review(ctx, action)
	if err != nil {
		return EditFileResponse{}, err
	}

	result := t.exec.Execute(ctx, action, decision)
	if result.Failed() {
		return EditFileResponse{}, fmt.Errorf("edit failed (%s): %s", result.ErrorKind, result.Detail)
	}
	return EditFileResponse{Path: canonical}, nil
}

// review runs one action through the gate. Non-approving decisions come back
// as errors so the model sees the block or rejection reason verbatim.
func (t *Toolbox) review(ctx context.Context, action gate.Action) (gate.Decision, error) {
	decision, err := t.gate.Review(ctx, gate.NewPendingAction(action))
	if err != nil {
		return gate.Decision{}, err
	}
	if !decision.Approved() {
		return gate.Decision{}, decision.Err()
	}
	return decision, nil
}

// writePreview renders the content shown at a write_file approval prompt.
func writePreview(path, content string) string {
	lines := strings.Split(content, "\n")
	var sb strings.Builder
	fmt.Fprintf(&sb, "+++ %s\n", path)
	for i, line := range lines {
		if i >= previewLimit {
			fmt.Fprintf(&sb, "... (%d more lines)\n", len(lines)-previewLimit)
			break
		}
		sb.WriteString("+ " + line + "\n")
	}
	return sb.String()
}

// editPreview renders the replacement shown at an edit_file approval prompt.
func editPreview(oldString, newString string) string {
	var sb strings.Builder
	for _, line := range capLines(oldString) {
		sb.WriteString("- " + line + "\n")
	}
	for _, line := range capLines(newString) {
		sb.WriteString("+ " + line + "\n")
	}
	return sb.String()
}

func capLines(s string) []string {
	lines := strings.Split(s, "\n")
	if len(lines) > previewLimit {
		lines = append(lines[:previewLimit], "...")
	}
	return lines
}
