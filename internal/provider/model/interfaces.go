package model

import (
	"context"
)

// Provider defines the interface for LLM backends. One implementation exists
// per provider, selected by configuration, never by runtime type inspection.
type Provider interface {
	// Name returns the provider identifier used in configuration and
	// fallback chains (e.g. "gemini").
	Name() string

	// Generate sends a request to the model and returns the response.
	// Failures are reported as *ProviderError so callers can classify
	// them as retryable or fatal for the active (provider, model) pair.
	Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error)

	// SetModel changes the active model at runtime.
	// Returns an error if the model is invalid or unavailable.
	SetModel(model string) error

	// GetModel returns the currently active model name.
	GetModel() string

	// ListModels returns a list of available model names.
	ListModels(ctx context.Context) ([]string, error)

	// DefineTools registers tool definitions with the provider for native
	// tool calling. Call before Generate when tools are in play.
	DefineTools(ctx context.Context, tools []ToolDefinition) error
}
