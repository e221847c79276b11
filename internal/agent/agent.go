// Package agent runs the conversation loop: model completions through the
// fallback invoker, tool calls through the approval pipeline, and every
// user-visible step into the session event log.
package agent

import (
	"context"
	"errors"
	"fmt"

	agentmodel "github.com/Cyclone1070/aegis/internal/agent/model"
	"github.com/Cyclone1070/aegis/internal/gate"
	"github.com/Cyclone1070/aegis/internal/invoker"
	"github.com/Cyclone1070/aegis/internal/provider/model"
	"github.com/Cyclone1070/aegis/internal/session"
)

// ErrMaxTurns is returned when the loop ends without the model concluding.
var ErrMaxTurns = errors.New("maximum turns reached")

// UserInterface is the terminal surface the agent talks to.
type UserInterface interface {
	// WriteMessage shows an assistant message to the user.
	WriteMessage(text string)

	// WriteStatus shows a transient progress line.
	WriteStatus(stage, message string)

	// ReadInput blocks for the user's next message.
	ReadInput(ctx context.Context, prompt string) (string, error)
}

// ModelInvoker is the resilient invocation surface the agent depends on.
type ModelInvoker interface {
	Invoke(ctx context.Context, req *model.GenerateRequest, chain invoker.FallbackChain) (*model.GenerateResponse, []invoker.Attempt, error)
}

// Config collects the agent's collaborators.
type Config struct {
	Invoker  ModelInvoker
	Chain    invoker.FallbackChain
	UI       UserInterface
	Tools    []Tool
	Log      *session.EventLog
	MaxTurns int64
	Generate *model.GenerateConfig

	// Interactive keeps the conversation open after each assistant message.
	// One-shot runs end at the first final text response.
	Interactive bool
}

// Agent drives one session. Turns are strictly sequential: one action is
// classified, approved, and executed before the next model call.
type Agent struct {
	invoker     ModelInvoker
	chain       invoker.FallbackChain
	ui          UserInterface
	tools       map[string]Tool
	defs        []model.ToolDefinition
	log         *session.EventLog
	maxTurns    int64
	generate    *model.GenerateConfig
	interactive bool

	history []agentmodel.Message

	// refusal holds the first blocked or rejected action of the run, so a
	// one-shot run can exit with a policy-refusal status instead of success.
	refusal error
}

// New creates an agent from its collaborators.
func New(cfg Config) *Agent {
	if cfg.Invoker == nil {
		panic("invoker is required")
	}
	if cfg.UI == nil {
		panic("ui is required")
	}
	if cfg.Log == nil {
		panic("log is required")
	}
	if cfg.Chain.Len() == 0 {
		panic("chain is required")
	}
	if cfg.MaxTurns <= 0 {
		panic("maxTurns must be positive")
	}

	toolMap := make(map[string]Tool, len(cfg.Tools))
	defs := make([]model.ToolDefinition, 0, len(cfg.Tools))
	for _, t := range cfg.Tools {
		toolMap[t.Name()] = t
		defs = append(defs, t.Definition())
	}

	return &Agent{
		invoker:     cfg.Invoker,
		chain:       cfg.Chain,
		ui:          cfg.UI,
		tools:       toolMap,
		defs:        defs,
		log:         cfg.Log,
		maxTurns:    cfg.MaxTurns,
		generate:    cfg.Generate,
		interactive: cfg.Interactive,
	}
}

// Run executes the loop starting from goal until the model concludes, the
// user ends the session, or the turn budget runs out.
func (a *Agent) Run(ctx context.Context, goal string) error {
	a.history = []agentmodel.Message{{Role: "user", Content: goal}}
	a.refusal = nil
	a.log.Append(session.Event{Kind: session.EventUserMessage, Content: goal})

	for turn := int64(0); turn < a.maxTurns; turn++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		a.ui.WriteStatus("thinking", "Generating response...")

		req := &model.GenerateRequest{
			History: a.history,
			Config:  a.generate,
			Tools:   a.defs,
		}
		response, _, err := a.invoker.Invoke(ctx, req, a.chain)
		if err != nil {
			return err
		}

		switch response.Content.Type {
		case model.ResponseTypeToolCall:
			if len(response.Content.ToolCalls) == 0 {
				a.history = append(a.history, agentmodel.Message{
					Role:    "system",
					Content: "Error: empty tool call list",
				})
				continue
			}

			a.history = append(a.history, agentmodel.Message{
				Role:      "model",
				ToolCalls: response.Content.ToolCalls,
			})

			results := make([]agentmodel.ToolResult, 0, len(response.Content.ToolCalls))
			for _, toolCall := range response.Content.ToolCalls {
				results = append(results, a.executeToolCall(ctx, toolCall))
			}

			a.history = append(a.history, agentmodel.Message{
				Role:        "function",
				ToolResults: results,
			})

		case model.ResponseTypeText:
			a.ui.WriteMessage(response.Content.Text)
			a.log.Append(session.Event{Kind: session.EventAssistantMessage, Content: response.Content.Text})
			a.history = append(a.history, agentmodel.Message{
				Role:    "assistant",
				Content: response.Content.Text,
			})

			if !a.interactive {
				// A run whose action was blocked or rejected must not
				// report success, even when the model concluded politely.
				return a.refusal
			}

			userInput, err := a.ui.ReadInput(ctx, "You: ")
			if err != nil {
				return fmt.Errorf("failed to read user input: %w", err)
			}
			a.log.Append(session.Event{Kind: session.EventUserMessage, Content: userInput})
			a.history = append(a.history, agentmodel.Message{
				Role:    "user",
				Content: userInput,
			})

		case model.ResponseTypeRefusal:
			a.ui.WriteStatus("blocked", "Model refused to generate")
			a.history = append(a.history, agentmodel.Message{
				Role:    "system",
				Content: fmt.Sprintf("Model refused: %s", response.Content.RefusalReason),
			})
			if !a.interactive {
				return fmt.Errorf("model refused: %s", response.Content.RefusalReason)
			}

		default:
			a.history = append(a.history, agentmodel.Message{
				Role:    "system",
				Content: fmt.Sprintf("Error: unknown response type %v", response.Content.Type),
			})
		}
	}

	return fmt.Errorf("%w (%d)", ErrMaxTurns, a.maxTurns)
}

// executeToolCall runs one tool call. Failures come back as tool result
// errors so the model can react; they are never raised out of the loop.
func (a *Agent) executeToolCall(ctx context.Context, toolCall agentmodel.ToolCall) agentmodel.ToolResult {
	tool, exists := a.tools[toolCall.Name]
	if !exists {
		a.log.AppendError("agent", fmt.Sprintf("unknown tool %q", toolCall.Name))
		return agentmodel.ToolResult{
			ID:    toolCall.ID,
			Name:  toolCall.Name,
			Error: fmt.Sprintf("unknown tool %q", toolCall.Name),
		}
	}

	a.ui.WriteStatus("executing", fmt.Sprintf("Running %s...", toolCall.Name))

	result, err := tool.Execute(ctx, toolCall.Args)
	if err != nil {
		if a.refusal == nil && gate.IsPolicyRefusal(err) {
			a.refusal = err
		}
		return agentmodel.ToolResult{
			ID:    toolCall.ID,
			Name:  toolCall.Name,
			Error: err.Error(),
		}
	}
	return agentmodel.ToolResult{
		ID:      toolCall.ID,
		Name:    toolCall.Name,
		Content: result,
	}
}
