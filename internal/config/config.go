package config

// Config holds all application configuration values.
// Defaults are set in DefaultConfig() and can be overridden via dotfile.
// NOTE: Values in config files override defaults, including explicit zero values.
// Missing keys are left at their default values.
type Config struct {
	// Approval behaviour
	AutoApproveEdits          bool     `json:"auto_approve_edits"`
	AutoApproveNativeCommands bool     `json:"auto_approve_native_commands"`
	NativeCommandAllowlist    []string `json:"native_command_allowlist"`

	NativeCommands NativeCommandsConfig `json:"native_commands"`
	Security       SecurityConfig       `json:"security"`
	Model          ModelConfig          `json:"model"`
	Agent          AgentConfig          `json:"agent"`
}

// NativeCommandsConfig controls shell command execution.
type NativeCommandsConfig struct {
	// DefaultTimeoutSeconds bounds command runtime. Nil means no timeout.
	DefaultTimeoutSeconds *int `json:"default_timeout"`

	// DefaultWorkingDirectory is resolved relative to the workspace root.
	// Nil means the workspace root itself.
	DefaultWorkingDirectory *string `json:"default_working_directory"`

	// MaxOutputSize bounds collected stdout/stderr per command, in bytes.
	MaxOutputSize int64 `json:"max_output_size"` // Default: 10 * 1024 * 1024 (10MB)

	// GracefulShutdownMs is how long a timed-out command gets between
	// SIGINT and SIGKILL of its process group.
	GracefulShutdownMs int `json:"graceful_shutdown_ms"` // Default: 2000
}

// SecurityConfig toggles the validation layers. All default to true;
// disabling them is an explicit opt-out in the dotfile.
type SecurityConfig struct {
	PathValidation       bool `json:"path_validation"`
	WorkspaceRestriction bool `json:"workspace_restriction"`
	CommandValidation    bool `json:"command_validation"`
}

// ModelConfig selects providers/models and retry behaviour for generation.
type ModelConfig struct {
	DefaultProvider  string `json:"default_provider"`
	DefaultModel     string `json:"default_model"`
	FallbackProvider string `json:"fallback_provider"`
	FallbackModel    string `json:"fallback_model"`

	// RetryCount is the number of retries per (provider, model) pair,
	// in addition to the first attempt.
	RetryCount int `json:"retry_count"` // Default: 2

	// TimeoutSeconds is the per-attempt timeout.
	TimeoutSeconds int `json:"timeout"` // Default: 120

	// Generation parameters. Pointers distinguish "not set" from zero.
	Temperature *float32 `json:"temperature"`
	MaxTokens   *int     `json:"max_tokens"`
}

// AgentConfig bounds the agent loop.
type AgentConfig struct {
	MaxTurns int64 `json:"max_turns"` // Default: 20

	// MaxFileSize bounds file reads and writes, in bytes.
	MaxFileSize int64 `json:"max_file_size"` // Default: 20 * 1024 * 1024 (20MB)

	// ApprovalTimeoutSeconds bounds how long an approval prompt may wait.
	// Zero means wait indefinitely.
	ApprovalTimeoutSeconds int `json:"approval_timeout_seconds"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		AutoApproveEdits:          false,
		AutoApproveNativeCommands: false,
		NativeCommandAllowlist:    nil,
		NativeCommands: NativeCommandsConfig{
			DefaultTimeoutSeconds: intPtr(600),
			MaxOutputSize:         10 * 1024 * 1024,
			GracefulShutdownMs:    2000,
		},
		Security: SecurityConfig{
			PathValidation:       true,
			WorkspaceRestriction: true,
			CommandValidation:    true,
		},
		Model: ModelConfig{
			DefaultProvider:  "gemini",
			DefaultModel:     "gemini-2.0-flash",
			FallbackProvider: "gemini",
			FallbackModel:    "gemini-1.5-flash",
			RetryCount:       2,
			TimeoutSeconds:   120,
		},
		Agent: AgentConfig{
			MaxTurns:    20,
			MaxFileSize: 20 * 1024 * 1024,
		},
	}
}

func intPtr(v int) *int { return &v }
