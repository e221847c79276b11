package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Cyclone1070/aegis/internal/config"
	"github.com/Cyclone1070/aegis/internal/executor"
	"github.com/Cyclone1070/aegis/internal/fsutil"
	"github.com/Cyclone1070/aegis/internal/gate"
	"github.com/Cyclone1070/aegis/internal/policy"
	"github.com/Cyclone1070/aegis/internal/session"
)

// scriptedConfirmer answers prompts from a queue and records each one.
type scriptedConfirmer struct {
	answers []gate.Answer
	calls   int
}

func (c *scriptedConfirmer) Confirm(ctx context.Context, action gate.Action, verdict string) (gate.Answer, error) {
	c.calls++
	if len(c.answers) == 0 {
		return gate.AnswerReject, nil
	}
	answer := c.answers[0]
	c.answers = c.answers[1:]
	return answer, nil
}

type fixture struct {
	toolbox   *Toolbox
	log       *session.EventLog
	confirmer *scriptedConfirmer
	root      string
}

func newFixture(t *testing.T, mutate func(*policy.SecurityPolicy)) *fixture {
	t.Helper()

	pol := policy.SecurityPolicy{
		WorkspaceRoot:        t.TempDir(),
		PathValidation:       true,
		WorkspaceRestriction: true,
		CommandValidation:    true,
	}
	if mutate != nil {
		mutate(&pol)
	}

	fs := fsutil.NewOSFileSystem()
	log := session.NewEventLog()
	confirmer := &scriptedConfirmer{}
	paths := policy.NewPathValidator(pol, fs)
	g := gate.NewApprovalGate(pol, paths, policy.NewCommandValidator(pol), confirmer, log)

	timeout := 10
	exec := executor.NewActionExecutor(config.NativeCommandsConfig{
		DefaultTimeoutSeconds: &timeout,
		MaxOutputSize:         1024 * 1024,
		GracefulShutdownMs:    50,
	}, pol.WorkspaceRoot, fs, log)

	return &fixture{
		toolbox:   NewToolbox(g, exec, paths, fs, 1024*1024),
		log:       log,
		confirmer: confirmer,
		root:      pol.WorkspaceRoot,
	}
}

func (f *fixture) tool(t *testing.T, name string) *fixtureTool {
	t.Helper()
	for _, tool := range f.toolbox.Tools() {
		if tool.Name() == name {
			return &fixtureTool{t: t, exec: tool.Execute}
		}
	}
	t.Fatalf("tool %q not found", name)
	return nil
}

type fixtureTool struct {
	t    *testing.T
	exec func(ctx context.Context, args map[string]any) (string, error)
}

func (ft *fixtureTool) run(args map[string]any) (map[string]any, error) {
	out, err := ft.exec(context.Background(), args)
	if err != nil {
		return nil, err
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		ft.t.Fatalf("response is not JSON: %v", err)
	}
	return decoded, nil
}

func TestRunCommandTool(t *testing.T) {
	t.Run("allowlisted command runs without prompting", func(t *testing.T) {
		f := newFixture(t, func(pol *policy.SecurityPolicy) {
			pol.Allowlist = []string{"echo"}
		})

		resp, err := f.tool(t, "run_command").run(map[string]any{"command": "echo hello"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp["exit_code"] != float64(0) {
			t.Errorf("exit_code = %v", resp["exit_code"])
		}
		if resp["stdout"] != "hello\n" {
			t.Errorf("stdout = %v", resp["stdout"])
		}
		if f.confirmer.calls != 0 {
			t.Error("allowlisted command must not prompt")
		}
	})

	t.Run("denylisted command is blocked and never executed", func(t *testing.T) {
		f := newFixture(t, func(pol *policy.SecurityPolicy) {
			pol.Allowlist = []string{"rm"}
			pol.AutoApproveNativeCommands = true
		})

		_, err := f.tool(t, "run_command").run(map[string]any{"command": "rm -rf /"})
		var blocked *gate.BlockedError
		if !errors.As(err, &blocked) {
			t.Fatalf("expected BlockedError, got %v", err)
		}

		for _, ev := range f.log.Events() {
			if ev.Kind == session.EventToolResult {
				t.Fatal("blocked command must never reach the executor")
			}
		}
		if f.confirmer.calls != 0 {
			t.Error("denied command must not prompt")
		}
	})

	t.Run("user rejection stops execution", func(t *testing.T) {
		f := newFixture(t, nil)
		f.confirmer.answers = []gate.Answer{gate.AnswerReject}

		_, err := f.tool(t, "run_command").run(map[string]any{"command": "echo hello"})
		var rejected *gate.RejectedError
		if !errors.As(err, &rejected) {
			t.Fatalf("expected RejectedError, got %v", err)
		}
		for _, ev := range f.log.Events() {
			if ev.Kind == session.EventToolResult {
				t.Fatal("rejected command must never reach the executor")
			}
		}
	})

	t.Run("approved command executes", func(t *testing.T) {
		f := newFixture(t, nil)
		f.confirmer.answers = []gate.Answer{gate.AnswerApprove}

		resp, err := f.tool(t, "run_command").run(map[string]any{"command": "echo approved"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp["stdout"] != "approved\n" {
			t.Errorf("stdout = %v", resp["stdout"])
		}
	})

	t.Run("empty command fails validation", func(t *testing.T) {
		f := newFixture(t, nil)

		_, err := f.tool(t, "run_command").run(map[string]any{"command": "  "})
		if err == nil || !strings.Contains(err.Error(), "validation failed") {
			t.Fatalf("expected validation error, got %v", err)
		}
	})
}

func TestWriteFileTool(t *testing.T) {
	t.Run("writes within the workspace", func(t *testing.T) {
		f := newFixture(t, func(pol *policy.SecurityPolicy) {
			pol.AutoApproveEdits = true
		})

		target := filepath.Join(f.root, "notes.txt")
		resp, err := f.tool(t, "write_file").run(map[string]any{"path": target, "content": "hello"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp["bytes_written"] != float64(5) {
			t.Errorf("bytes_written = %v", resp["bytes_written"])
		}

		got, err := os.ReadFile(target)
		if err != nil || string(got) != "hello" {
			t.Errorf("file content = %q, err %v", got, err)
		}
	})

	t.Run("relative paths are anchored at the workspace root", func(t *testing.T) {
		f := newFixture(t, func(pol *policy.SecurityPolicy) {
			pol.AutoApproveEdits = true
		})

		// The test process CWD is not the workspace root; the write must
		// land under the root regardless.
		resp, err := f.tool(t, "write_file").run(map[string]any{"path": "notes.txt", "content": "anchored"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := filepath.Join(f.root, "notes.txt")
		if resp["path"] != want {
			t.Errorf("path = %v, want %v", resp["path"], want)
		}

		got, err := os.ReadFile(want)
		if err != nil || string(got) != "anchored" {
			t.Errorf("file content = %q, err %v", got, err)
		}
		if _, err := os.Stat("notes.txt"); !os.IsNotExist(err) {
			t.Error("file must not be created relative to the process CWD")
		}
	})

	t.Run("refuses paths escaping the workspace", func(t *testing.T) {
		f := newFixture(t, func(pol *policy.SecurityPolicy) {
			pol.AutoApproveEdits = true
		})

		_, err := f.tool(t, "write_file").run(map[string]any{"path": "/etc/evil", "content": "x"})
		var blocked *gate.BlockedError
		if !errors.As(err, &blocked) {
			t.Fatalf("expected BlockedError, got %v", err)
		}
	})
}

func TestEditFileTool(t *testing.T) {
	setup := func(t *testing.T, content string) (*fixture, string) {
		f := newFixture(t, func(pol *policy.SecurityPolicy) {
			pol.AutoApproveEdits = true
		})
		target := filepath.Join(f.root, "main.go")
		if err := os.WriteFile(target, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		return f, target
	}

	t.Run("replaces a unique occurrence", func(t *testing.T) {
		f, target := setup(t, "package main\n\nfunc old() {}\n")

		_, err := f.tool(t, "edit_file").run(map[string]any{
			"path": target, "old_string": "func old()", "new_string": "func renamed()",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		got, _ := os.ReadFile(target)
		if !strings.Contains(string(got), "func renamed()") {
			t.Errorf("content = %q", got)
		}
	})

	t.Run("missing old string", func(t *testing.T) {
		f, target := setup(t, "package main\n")

		_, err := f.tool(t, "edit_file").run(map[string]any{
			"path": target, "old_string": "nope", "new_string": "x",
		})
		if err == nil || !strings.Contains(err.Error(), "not found") {
			t.Fatalf("expected not-found error, got %v", err)
		}
	})

	t.Run("ambiguous old string", func(t *testing.T) {
		f, target := setup(t, "aa aa\n")

		_, err := f.tool(t, "edit_file").run(map[string]any{
			"path": target, "old_string": "aa", "new_string": "bb",
		})
		if err == nil || !strings.Contains(err.Error(), "2 times") {
			t.Fatalf("expected ambiguity error, got %v", err)
		}
	})

	t.Run("nonexistent file", func(t *testing.T) {
		f, _ := setup(t, "x")

		_, err := f.tool(t, "edit_file").run(map[string]any{
			"path": filepath.Join(f.root, "missing.go"), "old_string": "a", "new_string": "b",
		})
		if err == nil {
			t.Fatal("expected error for missing file")
		}
	})
}

func TestReadFileTool(t *testing.T) {
	t.Run("reads workspace files", func(t *testing.T) {
		f := newFixture(t, nil)
		target := filepath.Join(f.root, "data.txt")
		if err := os.WriteFile(target, []byte("payload"), 0o644); err != nil {
			t.Fatal(err)
		}

		resp, err := f.tool(t, "read_file").run(map[string]any{"path": "data.txt"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp["content"] != "payload" {
			t.Errorf("content = %v", resp["content"])
		}
	})

	t.Run("refuses traversal outside the workspace", func(t *testing.T) {
		f := newFixture(t, nil)

		_, err := f.tool(t, "read_file").run(map[string]any{"path": "../../etc/passwd"})
		if err == nil {
			t.Fatal("expected error for escaping path")
		}
	})
}

func TestToolDefinitions(t *testing.T) {
	f := newFixture(t, nil)

	names := make(map[string]bool)
	for _, tool := range f.toolbox.Tools() {
		names[tool.Name()] = true
		def := tool.Definition()
		if def.Name != tool.Name() || def.Description == "" || def.Parameters == nil {
			t.Errorf("incomplete definition for %s: %+v", tool.Name(), def)
		}
	}
	for _, want := range []string{"run_command", "read_file", "write_file", "edit_file"} {
		if !names[want] {
			t.Errorf("missing tool %s", want)
		}
	}
}
