package gemini

import (
	"context"
	"strings"

	"google.golang.org/genai"
)

// GeminiClient is the surface of the Gemini SDK this provider uses.
// The abstraction keeps the provider testable without network access.
type GeminiClient interface {
	// GenerateContent sends a request to the Gemini API and returns the response.
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)

	// ListModels returns the names of available generation models.
	ListModels(ctx context.Context) ([]string, error)
}

// RealGeminiClient wraps the official SDK client to satisfy GeminiClient.
type RealGeminiClient struct {
	client *genai.Client
}

// NewRealGeminiClient creates a RealGeminiClient from an SDK client.
func NewRealGeminiClient(client *genai.Client) *RealGeminiClient {
	return &RealGeminiClient{client: client}
}

// GenerateContent calls the SDK's GenerateContent method.
func (c *RealGeminiClient) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	return c.client.Models.GenerateContent(ctx, model, contents, config)
}

// ListModels lists gemini-* text generation models, excluding embedding,
// image, audio, live, and robotics variants.
func (c *RealGeminiClient) ListModels(ctx context.Context) ([]string, error) {
	var names []string
	for m, err := range c.client.Models.All(ctx) {
		if err != nil {
			return nil, err
		}
		if strings.HasPrefix(m.Name, "models/gemini-") &&
			!strings.Contains(m.Name, "embedding") &&
			!strings.Contains(m.Name, "image") &&
			!strings.Contains(m.Name, "audio") &&
			!strings.Contains(m.Name, "live") &&
			!strings.Contains(m.Name, "robotic") {
			names = append(names, strings.TrimPrefix(m.Name, "models/"))
		}
	}
	return names, nil
}
