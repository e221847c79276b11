package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// mockFS implements FileSystem for loader tests.
type mockFS struct {
	home    string
	homeErr error
	files   map[string][]byte
	readErr error
}

func (m *mockFS) UserHomeDir() (string, error) {
	if m.homeErr != nil {
		return "", m.homeErr
	}
	return m.home, nil
}

func (m *mockFS) ReadFile(path string) ([]byte, error) {
	if m.readErr != nil {
		return nil, m.readErr
	}
	if data, ok := m.files[path]; ok {
		return data, nil
	}
	return nil, os.ErrNotExist
}

func configPath(home string) string {
	return filepath.Join(home, ".config", ConfigDir, ConfigFile)
}

func TestLoad(t *testing.T) {
	t.Run("missing dotfile returns defaults", func(t *testing.T) {
		fs := &mockFS{home: "/home/user", files: map[string][]byte{}}

		cfg, err := NewLoaderWithFS(fs).Load()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Model.RetryCount != 2 {
			t.Errorf("expected default retry_count 2, got %d", cfg.Model.RetryCount)
		}
		if !cfg.Security.WorkspaceRestriction {
			t.Error("expected workspace_restriction to default to true")
		}
	})

	t.Run("home dir failure falls back to defaults", func(t *testing.T) {
		fs := &mockFS{homeErr: errors.New("no home")}

		cfg, err := NewLoaderWithFS(fs).Load()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.AutoApproveEdits {
			t.Error("expected auto_approve_edits to default to false")
		}
	})

	t.Run("dotfile values override defaults", func(t *testing.T) {
		fs := &mockFS{
			home: "/home/user",
			files: map[string][]byte{
				configPath("/home/user"): []byte(`{
					"auto_approve_edits": true,
					"native_command_allowlist": ["git status", "go test"],
					"model": {
						"default_provider": "gemini",
						"default_model": "gemini-2.0-flash",
						"retry_count": 5,
						"timeout": 30
					}
				}`),
			},
		}

		cfg, err := NewLoaderWithFS(fs).Load()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !cfg.AutoApproveEdits {
			t.Error("expected auto_approve_edits true")
		}
		if len(cfg.NativeCommandAllowlist) != 2 || cfg.NativeCommandAllowlist[0] != "git status" {
			t.Errorf("unexpected allowlist: %v", cfg.NativeCommandAllowlist)
		}
		if cfg.Model.RetryCount != 5 {
			t.Errorf("expected retry_count 5, got %d", cfg.Model.RetryCount)
		}
		// Untouched keys keep defaults
		if cfg.Agent.MaxTurns != 20 {
			t.Errorf("expected default max_turns 20, got %d", cfg.Agent.MaxTurns)
		}
	})

	t.Run("explicit false overrides default true", func(t *testing.T) {
		fs := &mockFS{
			home: "/home/user",
			files: map[string][]byte{
				configPath("/home/user"): []byte(`{"security": {"path_validation": false, "workspace_restriction": true, "command_validation": true}}`),
			},
		}

		cfg, err := NewLoaderWithFS(fs).Load()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Security.PathValidation {
			t.Error("expected path_validation false after explicit override")
		}
	})

	t.Run("malformed JSON returns error", func(t *testing.T) {
		fs := &mockFS{
			home: "/home/user",
			files: map[string][]byte{
				configPath("/home/user"): []byte(`{not json`),
			},
		}

		if _, err := NewLoaderWithFS(fs).Load(); err == nil {
			t.Fatal("expected error for malformed JSON")
		}
	})

	t.Run("permission error returned", func(t *testing.T) {
		fs := &mockFS{home: "/home/user", readErr: os.ErrPermission}

		if _, err := NewLoaderWithFS(fs).Load(); !errors.Is(err, os.ErrPermission) {
			t.Fatalf("expected permission error, got %v", err)
		}
	})

	t.Run("invalid merged config returns validation error", func(t *testing.T) {
		fs := &mockFS{
			home: "/home/user",
			files: map[string][]byte{
				configPath("/home/user"): []byte(`{"model": {"retry_count": -1}}`),
			},
		}

		if _, err := NewLoaderWithFS(fs).Load(); err == nil {
			t.Fatal("expected validation error for negative retry_count")
		}
	})

	t.Run("null default_timeout means no timeout", func(t *testing.T) {
		fs := &mockFS{
			home: "/home/user",
			files: map[string][]byte{
				configPath("/home/user"): []byte(`{"native_commands": {"default_timeout": null, "max_output_size": 1024, "graceful_shutdown_ms": 100}}`),
			},
		}

		cfg, err := NewLoaderWithFS(fs).Load()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.NativeCommands.DefaultTimeoutSeconds != nil {
			t.Errorf("expected nil default_timeout, got %v", *cfg.NativeCommands.DefaultTimeoutSeconds)
		}
	})
}
