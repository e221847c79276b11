// Package main is the aegis command-line agent. Every file edit and shell
// command the model proposes passes through the approval gateway before it
// touches the workspace.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/genai"

	"github.com/Cyclone1070/aegis/internal/agent"
	"github.com/Cyclone1070/aegis/internal/agent/adapter"
	"github.com/Cyclone1070/aegis/internal/config"
	"github.com/Cyclone1070/aegis/internal/executor"
	"github.com/Cyclone1070/aegis/internal/fsutil"
	"github.com/Cyclone1070/aegis/internal/gate"
	"github.com/Cyclone1070/aegis/internal/invoker"
	"github.com/Cyclone1070/aegis/internal/policy"
	"github.com/Cyclone1070/aegis/internal/provider"
	"github.com/Cyclone1070/aegis/internal/provider/gemini"
	providermodel "github.com/Cyclone1070/aegis/internal/provider/model"
	"github.com/Cyclone1070/aegis/internal/session"
	"github.com/Cyclone1070/aegis/internal/ui"
	"github.com/Cyclone1070/aegis/internal/workspace"
)

// Exit codes distinguish failure classes for scripting.
const (
	exitOK             = 0
	exitError          = 1
	exitPolicyRefused  = 2
	exitChainExhausted = 3
)

// Dependencies holds the components main wires together. Factories keep the
// wiring testable without a live API key or terminal.
type Dependencies struct {
	Config          *config.Config
	Console         *ui.Console
	Log             *session.EventLog
	ProviderFactory func(context.Context) (providermodel.Provider, error)
}

func createRealProviderFactory(cfg *config.Config) func(context.Context) (providermodel.Provider, error) {
	return func(ctx context.Context) (providermodel.Provider, error) {
		apiKey := os.Getenv("GEMINI_API_KEY")
		if apiKey == "" {
			apiKey = os.Getenv("AI_STUDIO_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY environment variable is required")
		}

		genaiClient, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini client: %w", err)
		}

		return gemini.New(gemini.NewRealGeminiClient(genaiClient), cfg.Model.DefaultModel), nil
	}
}

// buildPolicy resolves the workspace root, layers the optional policy pack
// over the dotfile config, and returns the session policy plus the denylist
// the pack extended.
func buildPolicy(cfg *config.Config) (policy.SecurityPolicy, *policy.Denylist, error) {
	workspaceRoot, err := workspace.Discover("")
	if err != nil {
		return policy.SecurityPolicy{}, nil, fmt.Errorf("failed to resolve workspace root: %w", err)
	}

	pol := policy.FromConfig(cfg, workspaceRoot)
	denylist := policy.DefaultDenylist()

	packPath, err := policy.DefaultPackPath()
	if err != nil {
		return pol, denylist, nil // no home dir, no pack
	}
	pack, err := policy.LoadPack(packPath)
	if err != nil {
		return policy.SecurityPolicy{}, nil, fmt.Errorf("failed to load policy pack: %w", err)
	}
	return pack.Apply(pol, denylist), denylist, nil
}

// buildTools assembles the safety pipeline: validators, gate, executor, and
// the tool adapters the agent exposes to the model.
func buildTools(pol policy.SecurityPolicy, denylist *policy.Denylist, cfg *config.Config, confirmer gate.Confirmer, log *session.EventLog) []agent.Tool {
	fs := fsutil.NewOSFileSystem()
	paths := policy.NewPathValidator(pol, fs)
	commands := policy.NewCommandValidatorWithDenylist(pol, denylist)
	approvalGate := gate.NewApprovalGate(pol, paths, commands, confirmer, log)
	actionExecutor := executor.NewActionExecutor(cfg.NativeCommands, pol.WorkspaceRoot, fs, log)

	return adapter.NewToolbox(approvalGate, actionExecutor, paths, fs, cfg.Agent.MaxFileSize).Tools()
}

// buildAgent wires the fallback chain, invoker, and conversation loop.
func buildAgent(ctx context.Context, deps Dependencies, tools []agent.Tool, interactive bool) (*agent.Agent, error) {
	backend, err := deps.ProviderFactory(ctx)
	if err != nil {
		return nil, err
	}
	// Reject a bad default model at startup rather than on the first turn.
	if err := backend.SetModel(deps.Config.Model.DefaultModel); err != nil {
		return nil, fmt.Errorf("invalid default model: %w", err)
	}
	registry := provider.NewRegistry()
	registry.Register(backend)

	chain, err := invoker.ChainFromConfig(deps.Config.Model)
	if err != nil {
		return nil, err
	}

	inv := invoker.New(registry, deps.Log,
		deps.Config.Model.RetryCount,
		time.Duration(deps.Config.Model.TimeoutSeconds)*time.Second)

	return agent.New(agent.Config{
		Invoker:  inv,
		Chain:    chain,
		UI:       deps.Console,
		Tools:    tools,
		Log:      deps.Log,
		MaxTurns: deps.Config.Agent.MaxTurns,
		Generate: &providermodel.GenerateConfig{
			Temperature: deps.Config.Model.Temperature,
			MaxTokens:   deps.Config.Model.MaxTokens,
		},
		Interactive: interactive,
	}), nil
}

func main() {
	goal := flag.String("goal", "", "run a single goal non-interactively and exit")
	models := flag.Bool("models", false, "list available models and exit")
	flag.Parse()

	os.Exit(run(*goal, *models))
}

// listModels prints the provider's available model names.
func listModels(ctx context.Context, deps Dependencies) int {
	backend, err := deps.ProviderFactory(ctx)
	if err != nil {
		deps.Console.WriteError(err.Error())
		return exitError
	}
	names, err := backend.ListModels(ctx)
	if err != nil {
		deps.Console.WriteError(err.Error())
		return exitError
	}
	for _, name := range names {
		deps.Console.WriteMessage(name)
	}
	return exitOK
}

func run(goal string, models bool) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	console := ui.NewConsole()

	cfg, err := config.Load()
	if err != nil {
		console.WriteError(fmt.Sprintf("failed to load config: %v", err))
		return exitError
	}

	deps := Dependencies{
		Config:          cfg,
		Console:         console,
		Log:             session.NewEventLog(),
		ProviderFactory: createRealProviderFactory(cfg),
	}
	if models {
		return listModels(ctx, deps)
	}

	pol, denylist, err := buildPolicy(cfg)
	if err != nil {
		console.WriteError(err.Error())
		return exitError
	}
	tools := buildTools(pol, denylist, cfg, console, deps.Log)

	interactive := goal == "" && console.IsInteractive()
	if goal == "" && !interactive {
		console.WriteError("no goal given and stdin is not a terminal; use -goal")
		return exitError
	}

	loop, err := buildAgent(ctx, deps, tools, interactive)
	if err != nil {
		console.WriteError(err.Error())
		return exitError
	}

	if interactive {
		goal, err = console.ReadInput(ctx, "What would you like to do? ")
		if err != nil {
			return exitOK // user backed out before starting
		}
	}

	return exitCode(console, loop.Run(ctx, goal))
}

// exitCode maps the session result onto the documented exit codes.
func exitCode(console *ui.Console, err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, ui.ErrInputAborted):
		return exitOK // the user ended the session
	case gate.IsPolicyRefusal(err):
		console.WriteError(err.Error())
		return exitPolicyRefused
	default:
		var exhausted *invoker.ChainExhaustedError
		if errors.As(err, &exhausted) {
			console.WriteError(err.Error())
			return exitChainExhausted
		}
		console.WriteError(err.Error())
		return exitError
	}
}
