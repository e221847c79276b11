// Package adapter exposes gateway operations as model-callable tools. Every
// adapter decodes the model's argument map into a typed request, runs it
// through the approval pipeline, and marshals a typed response back to JSON.
package adapter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/Cyclone1070/aegis/internal/provider/model"
)

// Validator is implemented by request types that check their own arguments.
type Validator interface {
	Validate() error
}

// ToolExecutor executes a tool with a typed request and response.
type ToolExecutor[Req, Resp any] func(ctx context.Context, req Req) (Resp, error)

// BaseAdapter centralizes argument decoding, validation, execution, and
// response marshaling for all tools.
type BaseAdapter[Req, Resp any] struct {
	name        string
	description string
	definition  model.ToolDefinition
	executor    ToolExecutor[Req, Resp]
}

// NewBaseAdapter creates an adapter for one tool.
func NewBaseAdapter[Req, Resp any](
	name string,
	description string,
	paramSchema *model.ParameterSchema,
	executor ToolExecutor[Req, Resp],
) *BaseAdapter[Req, Resp] {
	if executor == nil {
		panic("executor is required")
	}
	return &BaseAdapter[Req, Resp]{
		name:        name,
		description: description,
		definition: model.ToolDefinition{
			Name:        name,
			Description: description,
			Parameters:  paramSchema,
		},
		executor: executor,
	}
}

// Name implements agent.Tool.
func (b *BaseAdapter[Req, Resp]) Name() string {
	return b.name
}

// Description implements agent.Tool.
func (b *BaseAdapter[Req, Resp]) Description() string {
	return b.description
}

// Definition implements agent.Tool.
func (b *BaseAdapter[Req, Resp]) Definition() model.ToolDefinition {
	return b.definition
}

// Execute decodes args into the typed request, validates it when the type
// supports validation, runs the executor, and returns the response as JSON.
func (b *BaseAdapter[Req, Resp]) Execute(ctx context.Context, args map[string]any) (string, error) {
	var req Req
	if err := mapstructure.Decode(args, &req); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}

	if v, ok := any(req).(Validator); ok {
		if err := v.Validate(); err != nil {
			return "", fmt.Errorf("%s validation failed: %w", b.name, err)
		}
	}

	resp, err := b.executor(ctx, req)
	if err != nil {
		return "", err
	}

	bytes, err := json.Marshal(resp)
	if err != nil {
		return "", fmt.Errorf("failed to marshal response: %w", err)
	}
	return string(bytes), nil
}
