package gemini

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	agentmodel "github.com/Cyclone1070/aegis/internal/agent/model"
	"github.com/Cyclone1070/aegis/internal/provider/model"
)

// toGeminiContents converts a prompt and history to Gemini Content format.
func toGeminiContents(prompt string, history []agentmodel.Message) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history)+1)

	for _, msg := range history {
		if content := messageToGeminiContent(msg); content != nil {
			contents = append(contents, content)
		}
	}

	if prompt != "" {
		contents = append(contents, &genai.Content{
			Role:  "user",
			Parts: []*genai.Part{genai.NewPartFromText(prompt)},
		})
	}

	return contents
}

// messageToGeminiContent converts a single message; empty messages map to nil.
func messageToGeminiContent(msg agentmodel.Message) *genai.Content {
	role := "user"
	if msg.Role == "assistant" || msg.Role == "model" {
		role = "model"
	}

	parts := make([]*genai.Part, 0)

	if msg.Content != "" {
		parts = append(parts, genai.NewPartFromText(msg.Content))
	}

	for _, toolCall := range msg.ToolCalls {
		parts = append(parts, &genai.Part{
			FunctionCall: &genai.FunctionCall{
				Name: toolCall.Name,
				Args: toolCall.Args,
			},
		})
	}

	for _, result := range msg.ToolResults {
		responseContent := result.Content
		if result.Error != "" {
			responseContent = fmt.Sprintf("Error: %s", result.Error)
		}
		parts = append(parts, &genai.Part{
			FunctionResponse: &genai.FunctionResponse{
				Name: result.Name,
				Response: map[string]any{
					"content": responseContent,
				},
			},
		})
	}

	if len(parts) == 0 {
		return nil
	}
	return &genai.Content{Role: role, Parts: parts}
}

// toGeminiConfig converts the generation config to Gemini's format.
func toGeminiConfig(config *model.GenerateConfig) *genai.GenerateContentConfig {
	geminiConfig := &genai.GenerateContentConfig{
		SafetySettings: defaultSafetySettings(),
	}
	if config == nil {
		return geminiConfig
	}

	if config.Temperature != nil {
		geminiConfig.Temperature = config.Temperature
	}
	if config.TopP != nil {
		geminiConfig.TopP = config.TopP
	}
	if config.MaxTokens != nil {
		geminiConfig.MaxOutputTokens = int32(*config.MaxTokens)
	}
	if len(config.StopSequences) > 0 {
		geminiConfig.StopSequences = config.StopSequences
	}

	return geminiConfig
}

func defaultSafetySettings() []*genai.SafetySetting {
	return []*genai.SafetySetting{
		{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockThresholdOff},
		{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockThresholdOff},
		{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockThresholdOff},
		{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockThresholdOff},
	}
}

// toGeminiTools converts tool definitions to Gemini function declarations.
func toGeminiTools(tools []model.ToolDefinition) []*genai.Tool {
	if len(tools) == 0 {
		return nil
	}

	declarations := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, tool := range tools {
		fd := &genai.FunctionDeclaration{
			Name:        tool.Name,
			Description: tool.Description,
		}
		if tool.Parameters != nil {
			fd.Parameters = toGeminiSchema(tool.Parameters)
		}
		declarations = append(declarations, fd)
	}

	return []*genai.Tool{{FunctionDeclarations: declarations}}
}

func toGeminiSchema(params *model.ParameterSchema) *genai.Schema {
	schema := &genai.Schema{Type: genai.TypeObject}

	if params.Properties != nil {
		schema.Properties = make(map[string]*genai.Schema)
		for name, prop := range params.Properties {
			propSchema := &genai.Schema{
				Type:        toGeminiType(prop.Type),
				Description: prop.Description,
			}
			if len(prop.Enum) > 0 {
				propSchema.Enum = prop.Enum
			}
			if prop.Items != nil {
				propSchema.Items = &genai.Schema{
					Type:        toGeminiType(prop.Items.Type),
					Description: prop.Items.Description,
				}
			}
			schema.Properties[name] = propSchema
		}
	}

	if len(params.Required) > 0 {
		schema.Required = params.Required
	}
	return schema
}

func toGeminiType(typeStr string) genai.Type {
	switch typeStr {
	case "string":
		return genai.TypeString
	case "number":
		return genai.TypeNumber
	case "integer":
		return genai.TypeInteger
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	case "object":
		return genai.TypeObject
	default:
		return genai.TypeString
	}
}

// fromGeminiResponse converts a Gemini response into the tagged response
// union. Safety blocks become a Refusal variant rather than an error, so the
// caller can distinguish "the model declined" from "the call failed".
func fromGeminiResponse(resp *genai.GenerateContentResponse, modelUsed string) (*model.GenerateResponse, error) {
	if len(resp.Candidates) == 0 {
		return nil, &model.ProviderError{
			Code:    model.ErrorCodeInvalidRequest,
			Message: "no candidates in response",
		}
	}

	candidate := resp.Candidates[0]

	if candidate.FinishReason == genai.FinishReasonSafety {
		return &model.GenerateResponse{
			Content: model.ResponseContent{
				Type:          model.ResponseTypeRefusal,
				RefusalReason: "content blocked by safety filters",
			},
			Metadata: buildMetadata(resp.UsageMetadata, modelUsed),
		}, nil
	}

	if candidate.FinishReason == genai.FinishReasonMaxTokens {
		// Partial response; surfaced with the error so the caller decides.
		return buildTextResponse(candidate, resp.UsageMetadata, modelUsed), &model.ProviderError{
			Code:      model.ErrorCodeInvalidRequest,
			Message:   "response truncated at max output tokens",
			Retryable: false,
		}
	}

	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			if part.FunctionCall != nil {
				return buildToolCallResponse(candidate, resp.UsageMetadata, modelUsed), nil
			}
		}
	}

	return buildTextResponse(candidate, resp.UsageMetadata, modelUsed), nil
}

func buildTextResponse(candidate *genai.Candidate, usage *genai.GenerateContentResponseUsageMetadata, modelUsed string) *model.GenerateResponse {
	var text strings.Builder
	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			text.WriteString(part.Text)
		}
	}

	return &model.GenerateResponse{
		Content: model.ResponseContent{
			Type: model.ResponseTypeText,
			Text: text.String(),
		},
		Metadata: buildMetadata(usage, modelUsed),
	}
}

func buildToolCallResponse(candidate *genai.Candidate, usage *genai.GenerateContentResponseUsageMetadata, modelUsed string) *model.GenerateResponse {
	toolCalls := make([]agentmodel.ToolCall, 0)
	for _, part := range candidate.Content.Parts {
		if part.FunctionCall != nil {
			toolCalls = append(toolCalls, agentmodel.ToolCall{
				ID:   part.FunctionCall.ID,
				Name: part.FunctionCall.Name,
				Args: part.FunctionCall.Args,
			})
		}
	}

	return &model.GenerateResponse{
		Content: model.ResponseContent{
			Type:      model.ResponseTypeToolCall,
			ToolCalls: toolCalls,
		},
		Metadata: buildMetadata(usage, modelUsed),
	}
}

func buildMetadata(usage *genai.GenerateContentResponseUsageMetadata, modelUsed string) model.ResponseMetadata {
	metadata := model.ResponseMetadata{ModelUsed: modelUsed}
	if usage != nil {
		metadata.PromptTokens = int(usage.PromptTokenCount)
		metadata.CompletionTokens = int(usage.CandidatesTokenCount)
		metadata.TotalTokens = int(usage.TotalTokenCount)
	}
	return metadata
}

// mapGeminiError maps SDK errors to provider errors with retryability set
// the way the fallback logic expects: rate limits and 5xx are retryable on
// the same pair, auth and bad requests are fatal for the pair.
func mapGeminiError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case 401, 403:
			return &model.ProviderError{
				Code:       model.ErrorCodeAuth,
				Message:    "authentication failed",
				Underlying: err,
				Retryable:  false,
			}
		case 404:
			return &model.ProviderError{
				Code:       model.ErrorCodeInvalidModel,
				Message:    "model not found",
				Underlying: err,
				Retryable:  false,
			}
		case 429:
			return &model.ProviderError{
				Code:       model.ErrorCodeRateLimit,
				Message:    "rate limit exceeded",
				Underlying: err,
				Retryable:  true,
				RetryAfter: parseRetryAfter(apiErr),
			}
		case 400:
			return &model.ProviderError{
				Code:       model.ErrorCodeInvalidRequest,
				Message:    fmt.Sprintf("invalid request: %s", apiErr.Message),
				Underlying: err,
				Retryable:  false,
			}
		case 500, 502, 503, 504:
			return &model.ProviderError{
				Code:       model.ErrorCodeUnavailable,
				Message:    "service unavailable",
				Underlying: err,
				Retryable:  true,
			}
		default:
			return &model.ProviderError{
				Code:       model.ErrorCodeNetwork,
				Message:    fmt.Sprintf("API error: %s", apiErr.Message),
				Underlying: err,
				Retryable:  true,
			}
		}
	}

	return &model.ProviderError{
		Code:       model.ErrorCodeNetwork,
		Message:    "network error",
		Underlying: err,
		Retryable:  true,
	}
}

// parseRetryAfter extracts the retry delay hint from a 429's RetryInfo
// detail, when the API provides one.
func parseRetryAfter(apiErr genai.APIError) *time.Duration {
	for _, detail := range apiErr.Details {
		typ, _ := detail["@type"].(string)
		if !strings.Contains(typ, "RetryInfo") {
			continue
		}
		delay, _ := detail["retryDelay"].(string)
		if delay == "" {
			continue
		}
		if d, err := time.ParseDuration(delay); err == nil && d > 0 {
			return &d
		}
	}
	return nil
}
