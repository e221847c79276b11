package agent

import (
	"context"

	"github.com/Cyclone1070/aegis/internal/provider/model"
)

// Tool is a capability the agent can invoke from a model tool call.
// Implementations must be safe for sequential reuse across turns.
type Tool interface {
	// Name returns the unique identifier for this tool.
	Name() string

	// Description returns a human-readable description.
	Description() string

	// Definition returns the structured tool definition for the provider.
	Definition() model.ToolDefinition

	// Execute runs the tool with the arguments the model provided.
	Execute(ctx context.Context, args map[string]any) (string, error)
}
