// Package gemini implements the model.Provider interface on top of the
// Google Gemini SDK.
package gemini

import (
	"context"
	"sync"

	"github.com/Cyclone1070/aegis/internal/provider/model"
)

// ProviderName is the identifier used in configuration and fallback chains.
const ProviderName = "gemini"

// GeminiProvider adapts the Gemini SDK to the provider contract. The active
// model and tool set may change at runtime; both are guarded for concurrent
// Generate calls from independent sessions.
type GeminiProvider struct {
	client GeminiClient

	mu        sync.RWMutex
	modelName string
	tools     []model.ToolDefinition
}

// New creates a GeminiProvider with the given client and initial model.
func New(client GeminiClient, modelName string) *GeminiProvider {
	if client == nil {
		panic("client is required")
	}
	return &GeminiProvider{client: client, modelName: modelName}
}

// Name returns the provider identifier.
func (p *GeminiProvider) Name() string {
	return ProviderName
}

// Generate sends a request to the Gemini API and returns the response.
// API failures are mapped to *model.ProviderError with retryability set.
func (p *GeminiProvider) Generate(ctx context.Context, req *model.GenerateRequest) (*model.GenerateResponse, error) {
	p.mu.RLock()
	modelName := p.modelName
	tools := p.tools
	p.mu.RUnlock()

	// Per-request model and tools take precedence over the registered state.
	if req.Model != "" {
		modelName = req.Model
	}
	if len(req.Tools) > 0 {
		tools = req.Tools
	}

	contents := toGeminiContents(req.Prompt, req.History)
	config := toGeminiConfig(req.Config)
	if len(tools) > 0 {
		config.Tools = toGeminiTools(tools)
	}

	resp, err := p.client.GenerateContent(ctx, modelName, contents, config)
	if err != nil {
		return nil, mapGeminiError(err)
	}
	return fromGeminiResponse(resp, modelName)
}

// SetModel changes the active model at runtime.
func (p *GeminiProvider) SetModel(modelName string) error {
	if modelName == "" {
		return &model.ProviderError{
			Code:    model.ErrorCodeInvalidModel,
			Message: "model name is empty",
		}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.modelName = modelName
	return nil
}

// GetModel returns the currently active model name.
func (p *GeminiProvider) GetModel() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.modelName
}

// ListModels returns the available generation model names.
func (p *GeminiProvider) ListModels(ctx context.Context) ([]string, error) {
	names, err := p.client.ListModels(ctx)
	if err != nil {
		return nil, mapGeminiError(err)
	}
	return names, nil
}

// DefineTools registers tool definitions for native tool calling.
func (p *GeminiProvider) DefineTools(ctx context.Context, tools []model.ToolDefinition) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tools = tools
	return nil
}
