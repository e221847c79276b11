package config

import (
	"fmt"
	"strings"
)

// Validate checks config values for correctness.
// Returns an error if any values are invalid.
func (c *Config) Validate() error {
	var errs []string

	// Native command validation
	if c.NativeCommands.DefaultTimeoutSeconds != nil && *c.NativeCommands.DefaultTimeoutSeconds < 1 {
		errs = append(errs, "native_commands.default_timeout must be >= 1 or null")
	}
	if c.NativeCommands.MaxOutputSize < 1 {
		errs = append(errs, "native_commands.max_output_size must be >= 1")
	}
	if c.NativeCommands.GracefulShutdownMs < 1 {
		errs = append(errs, "native_commands.graceful_shutdown_ms must be >= 1")
	}

	// Allowlist entries are literal prefixes; blank entries would match everything.
	for i, entry := range c.NativeCommandAllowlist {
		if strings.TrimSpace(entry) == "" {
			errs = append(errs, fmt.Sprintf("native_command_allowlist[%d] must not be blank", i))
		}
	}

	// Model validation
	if c.Model.DefaultProvider == "" {
		errs = append(errs, "model.default_provider must not be empty")
	}
	if c.Model.DefaultModel == "" {
		errs = append(errs, "model.default_model must not be empty")
	}
	if c.Model.RetryCount < 0 {
		errs = append(errs, "model.retry_count must be >= 0")
	}
	if c.Model.TimeoutSeconds < 1 {
		errs = append(errs, "model.timeout must be >= 1")
	}
	if c.Model.Temperature != nil && (*c.Model.Temperature < 0 || *c.Model.Temperature > 2) {
		errs = append(errs, "model.temperature must be in [0, 2]")
	}
	if c.Model.MaxTokens != nil && *c.Model.MaxTokens < 1 {
		errs = append(errs, "model.max_tokens must be >= 1")
	}

	// Agent validation
	if c.Agent.MaxTurns < 1 {
		errs = append(errs, "agent.max_turns must be >= 1")
	}
	if c.Agent.MaxFileSize < 1 {
		errs = append(errs, "agent.max_file_size must be >= 1")
	}
	if c.Agent.ApprovalTimeoutSeconds < 0 {
		errs = append(errs, "agent.approval_timeout_seconds must be >= 0")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed: %v", errs)
	}

	return nil
}
