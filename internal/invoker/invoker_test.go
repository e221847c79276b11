package invoker

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Cyclone1070/aegis/internal/config"
	"github.com/Cyclone1070/aegis/internal/provider/model"
	"github.com/Cyclone1070/aegis/internal/session"
)

// scriptedProvider returns canned results in sequence and records the model
// each request asked for.
type scriptedProvider struct {
	name          string
	model         string
	results       []error // nil means success
	calls         int
	models        []string // req.Model per call
	setModelCalls int
}

func (p *scriptedProvider) Name() string { return p.name }

func (p *scriptedProvider) Generate(ctx context.Context, req *model.GenerateRequest) (*model.GenerateResponse, error) {
	p.models = append(p.models, req.Model)
	var err error
	if p.calls < len(p.results) {
		err = p.results[p.calls]
	}
	p.calls++
	if err != nil {
		return nil, err
	}
	return &model.GenerateResponse{
		Content:  model.ResponseContent{Type: model.ResponseTypeText, Text: "ok"},
		Metadata: model.ResponseMetadata{ModelUsed: req.Model},
	}, nil
}

func (p *scriptedProvider) SetModel(m string) error { p.setModelCalls++; p.model = m; return nil }
func (p *scriptedProvider) GetModel() string        { return p.model }
func (p *scriptedProvider) ListModels(ctx context.Context) ([]string, error) {
	return []string{p.model}, nil
}
func (p *scriptedProvider) DefineTools(ctx context.Context, tools []model.ToolDefinition) error {
	return nil
}

type fakeLookup map[string]model.Provider

func (f fakeLookup) Lookup(name string) (model.Provider, error) {
	p, ok := f[name]
	if !ok {
		return nil, errors.New("unknown provider " + name)
	}
	return p, nil
}

func retryable(msg string) error {
	return &model.ProviderError{Code: model.ErrorCodeRateLimit, Message: msg, Retryable: true}
}

func fatal(msg string) error {
	return &model.ProviderError{Code: model.ErrorCodeAuth, Message: msg, Retryable: false}
}

func mustChain(t *testing.T, pairs ...Pair) FallbackChain {
	t.Helper()
	chain, err := NewChain(pairs...)
	if err != nil {
		t.Fatalf("chain: %v", err)
	}
	return chain
}

func TestInvokeSuccessOnPrimary(t *testing.T) {
	primary := &scriptedProvider{name: "gemini"}
	inv := New(fakeLookup{"gemini": primary}, session.NewEventLog(), 2, 0)

	resp, attempts, err := inv.Invoke(context.Background(), &model.GenerateRequest{}, mustChain(t, Pair{"gemini", "flash"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content.Text != "ok" {
		t.Errorf("unexpected response %+v", resp)
	}
	if len(attempts) != 1 || attempts[0].Outcome != OutcomeSuccess {
		t.Errorf("expected single successful attempt, got %+v", attempts)
	}
	if len(primary.models) != 1 || primary.models[0] != "flash" {
		t.Errorf("expected request pinned to flash, got %v", primary.models)
	}
}

func TestInvokePinsModelPerRequest(t *testing.T) {
	// The pair's model travels on the request; the shared provider is never
	// mutated, so concurrent invocations cannot cross models.
	primary := &scriptedProvider{name: "gemini", results: []error{retryable("busy"), retryable("busy")}}
	fallback := &scriptedProvider{name: "gemini-lite"}
	inv := New(fakeLookup{"gemini": primary, "gemini-lite": fallback}, session.NewEventLog(), 1, 0)

	chain := mustChain(t, Pair{"gemini", "flash"}, Pair{"gemini-lite", "mini"})
	req := &model.GenerateRequest{Prompt: "hi"}
	if _, _, err := inv.Invoke(context.Background(), req, chain); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i, m := range primary.models {
		if m != "flash" {
			t.Errorf("primary attempt %d asked for %q", i, m)
		}
	}
	if len(fallback.models) != 1 || fallback.models[0] != "mini" {
		t.Errorf("fallback models = %v", fallback.models)
	}
	if primary.setModelCalls != 0 || fallback.setModelCalls != 0 {
		t.Error("invoker must not mutate provider model state")
	}
	if req.Model != "" {
		t.Errorf("caller's request mutated: Model = %q", req.Model)
	}
}

func TestInvokeRetriesThenFallsBack(t *testing.T) {
	// Spec scenario: chain of 2 pairs, retry_count=1, primary always
	// retryable => exactly 2 attempts on primary, then the fallback; a
	// successful fallback attempt stops further attempts.
	primary := &scriptedProvider{name: "gemini", results: []error{retryable("rate limit"), retryable("rate limit")}}
	fallback := &scriptedProvider{name: "backup"}
	log := session.NewEventLog()
	inv := New(fakeLookup{"gemini": primary, "backup": fallback}, log, 1, 0)

	chain := mustChain(t, Pair{"gemini", "flash"}, Pair{"backup", "mini"})
	resp, attempts, err := inv.Invoke(context.Background(), &model.GenerateRequest{}, chain)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp == nil {
		t.Fatal("expected response from fallback")
	}

	if len(attempts) != 3 {
		t.Fatalf("expected 3 attempts, got %+v", attempts)
	}
	if attempts[0].Provider != "gemini" || attempts[0].Outcome != OutcomeRetryableError {
		t.Errorf("attempt 0 wrong: %+v", attempts[0])
	}
	if attempts[1].Provider != "gemini" || attempts[1].Outcome != OutcomeRetryableError {
		t.Errorf("attempt 1 wrong: %+v", attempts[1])
	}
	if attempts[2].Provider != "backup" || attempts[2].Outcome != OutcomeSuccess {
		t.Errorf("attempt 2 wrong: %+v", attempts[2])
	}
	if primary.calls != 2 {
		t.Errorf("expected exactly 2 calls on primary, got %d", primary.calls)
	}
	if fallback.calls != 1 {
		t.Errorf("expected exactly 1 call on fallback, got %d", fallback.calls)
	}

	// Attempt indexes are sequential across the whole request.
	for i, a := range attempts {
		if a.Index != i {
			t.Errorf("attempt %d has index %d", i, a.Index)
		}
	}
}

func TestInvokeFatalAdvancesImmediately(t *testing.T) {
	primary := &scriptedProvider{name: "gemini", results: []error{fatal("bad api key")}}
	fallback := &scriptedProvider{name: "backup"}
	inv := New(fakeLookup{"gemini": primary, "backup": fallback}, session.NewEventLog(), 3, 0)

	chain := mustChain(t, Pair{"gemini", "flash"}, Pair{"backup", "mini"})
	_, attempts, err := inv.Invoke(context.Background(), &model.GenerateRequest{}, chain)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if primary.calls != 1 {
		t.Errorf("fatal error must not be retried, primary called %d times", primary.calls)
	}
	if len(attempts) != 2 || attempts[0].Outcome != OutcomeFatalError {
		t.Errorf("unexpected attempts %+v", attempts)
	}
}

func TestInvokeChainExhausted(t *testing.T) {
	primary := &scriptedProvider{name: "gemini", results: []error{retryable("overloaded"), retryable("overloaded")}}
	fallback := &scriptedProvider{name: "backup", results: []error{fatal("invalid model")}}
	log := session.NewEventLog()
	inv := New(fakeLookup{"gemini": primary, "backup": fallback}, log, 1, 0)

	chain := mustChain(t, Pair{"gemini", "flash"}, Pair{"backup", "mini"})
	resp, attempts, err := inv.Invoke(context.Background(), &model.GenerateRequest{}, chain)
	if resp != nil {
		t.Fatal("expected no response")
	}

	var exhausted *ChainExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected ChainExhaustedError, got %v", err)
	}
	if len(exhausted.Attempts) != 3 || len(attempts) != 3 {
		t.Fatalf("expected all 3 attempts aggregated, got %+v", exhausted.Attempts)
	}

	// Every pair and its specific failure reason is in the message.
	msg := err.Error()
	for _, want := range []string{"gemini/flash", "backup/mini", "overloaded", "invalid model"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error message missing %q: %s", want, msg)
		}
	}

	// Exactly one terminal ErrorEvent.
	errorEvents := 0
	for _, ev := range log.Events() {
		if ev.Kind == session.EventError {
			errorEvents++
		}
	}
	if errorEvents != 1 {
		t.Errorf("expected exactly 1 error event, got %d", errorEvents)
	}
}

func TestInvokeUnknownProviderIsFatalForPair(t *testing.T) {
	fallback := &scriptedProvider{name: "backup"}
	inv := New(fakeLookup{"backup": fallback}, session.NewEventLog(), 0, 0)

	chain := mustChain(t, Pair{"missing", "x"}, Pair{"backup", "mini"})
	resp, attempts, err := inv.Invoke(context.Background(), &model.GenerateRequest{}, chain)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp == nil {
		t.Fatal("expected fallback response")
	}
	if attempts[0].Outcome != OutcomeFatalError {
		t.Errorf("expected fatal attempt for unknown provider, got %+v", attempts[0])
	}
}

func TestInvokeCancellation(t *testing.T) {
	primary := &scriptedProvider{name: "gemini", results: []error{retryable("slow"), retryable("slow")}}
	inv := New(fakeLookup{"gemini": primary}, session.NewEventLog(), 5, 0)
	hint := 10 * time.Second
	primary.results[0] = &model.ProviderError{
		Code: model.ErrorCodeRateLimit, Message: "slow", Retryable: true, RetryAfter: &hint,
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := inv.Invoke(ctx, &model.GenerateRequest{}, mustChain(t, Pair{"gemini", "flash"}))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if primary.calls != 0 {
		t.Errorf("no attempt should run after cancellation, got %d calls", primary.calls)
	}
}

func TestInvokeAttemptsAreLogged(t *testing.T) {
	primary := &scriptedProvider{name: "gemini", results: []error{retryable("rate limit")}}
	log := session.NewEventLog()
	inv := New(fakeLookup{"gemini": primary}, log, 1, 0)

	_, attempts, err := inv.Invoke(context.Background(), &model.GenerateRequest{}, mustChain(t, Pair{"gemini", "flash"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(attempts) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(attempts))
	}
	if log.Len() < 2 {
		t.Errorf("expected one log event per attempt, log has %d", log.Len())
	}
}

func TestChainInvariants(t *testing.T) {
	t.Run("empty chain rejected", func(t *testing.T) {
		if _, err := NewChain(); err == nil {
			t.Fatal("expected error for empty chain")
		}
	})

	t.Run("consecutive duplicate rejected", func(t *testing.T) {
		_, err := NewChain(Pair{"gemini", "flash"}, Pair{"gemini", "flash"})
		if err == nil {
			t.Fatal("expected error for consecutive duplicate pair")
		}
	})

	t.Run("non-consecutive duplicate allowed", func(t *testing.T) {
		_, err := NewChain(Pair{"a", "1"}, Pair{"b", "2"}, Pair{"a", "1"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("incomplete pair rejected", func(t *testing.T) {
		if _, err := NewChain(Pair{Provider: "gemini"}); err == nil {
			t.Fatal("expected error for pair without model")
		}
	})
}

func TestChainFromConfig(t *testing.T) {
	t.Run("primary plus fallback", func(t *testing.T) {
		cfg := config.ModelConfig{
			DefaultProvider: "gemini", DefaultModel: "flash",
			FallbackProvider: "gemini", FallbackModel: "mini",
		}
		chain, err := ChainFromConfig(cfg)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if chain.Len() != 2 {
			t.Errorf("expected 2 pairs, got %d", chain.Len())
		}
	})

	t.Run("identical fallback collapses to primary only", func(t *testing.T) {
		cfg := config.ModelConfig{
			DefaultProvider: "gemini", DefaultModel: "flash",
			FallbackProvider: "gemini", FallbackModel: "flash",
		}
		chain, err := ChainFromConfig(cfg)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if chain.Len() != 1 {
			t.Errorf("expected 1 pair, got %d", chain.Len())
		}
	})

	t.Run("no fallback configured", func(t *testing.T) {
		cfg := config.ModelConfig{DefaultProvider: "gemini", DefaultModel: "flash"}
		chain, err := ChainFromConfig(cfg)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if chain.Len() != 1 {
			t.Errorf("expected 1 pair, got %d", chain.Len())
		}
	})
}

