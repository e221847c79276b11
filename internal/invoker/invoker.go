package invoker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Cyclone1070/aegis/internal/provider/model"
	"github.com/Cyclone1070/aegis/internal/session"
)

// Outcome classifies one model call attempt.
type Outcome string

const (
	OutcomeSuccess        Outcome = "success"
	OutcomeRetryableError Outcome = "retryable_error"
	OutcomeFatalError     Outcome = "fatal_error"
)

// Attempt records one model call: which pair, where in the overall sequence,
// how it ended, and how long it took. Attempts are appended in order and
// never rewritten.
type Attempt struct {
	Provider string
	Model    string
	Index    int
	Outcome  Outcome
	Reason   string
	Latency  time.Duration
}

// ChainExhaustedError is returned when every pair in the chain failed.
// It aggregates all attempts so the user sees every pair and its specific
// failure reason, not just the last one.
type ChainExhaustedError struct {
	Attempts []Attempt
}

func (e *ChainExhaustedError) Error() string {
	var sb strings.Builder
	sb.WriteString("all providers in fallback chain failed:")
	for _, a := range e.Attempts {
		fmt.Fprintf(&sb, "\n  attempt %d %s/%s: %s (%s)", a.Index+1, a.Provider, a.Model, a.Outcome, a.Reason)
	}
	return sb.String()
}

// ProviderLookup resolves a provider name to a live backend.
type ProviderLookup interface {
	Lookup(name string) (model.Provider, error)
}

// Invoker executes generation requests against a fallback chain.
//
// For each pair, up to retryCount+1 attempts run with the per-attempt
// timeout. Retryable failures (timeout, 5xx, rate limit) retry the same
// pair; fatal-for-pair failures (auth, invalid model) advance to the next
// pair immediately. Attempts within one request are strictly sequential;
// providers are never raced in parallel, so a request can never produce
// duplicate billable calls or duplicate tool-calling side effects.
type Invoker struct {
	providers  ProviderLookup
	log        *session.EventLog
	retryCount int
	timeout    time.Duration

	// sleep is injectable for tests; it honors ctx cancellation.
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates an Invoker. retryCount is the number of retries per pair in
// addition to the first attempt; timeout bounds each individual attempt
// (zero means no per-attempt timeout).
func New(providers ProviderLookup, log *session.EventLog, retryCount int, timeout time.Duration) *Invoker {
	if providers == nil {
		panic("providers is required")
	}
	if log == nil {
		panic("log is required")
	}
	if retryCount < 0 {
		panic("retryCount must be >= 0")
	}
	return &Invoker{
		providers:  providers,
		log:        log,
		retryCount: retryCount,
		timeout:    timeout,
		sleep:      sleepCtx,
	}
}

// Invoke runs req against the chain. On success the response is returned
// together with every attempt made so far; on exhaustion the error is a
// *ChainExhaustedError aggregating all attempts. A canceled parent context
// aborts immediately with the context error: cancellation is a caller
// decision, not a provider failure to be retried or masked.
func (inv *Invoker) Invoke(ctx context.Context, req *model.GenerateRequest, chain FallbackChain) (*model.GenerateResponse, []Attempt, error) {
	if chain.Len() == 0 {
		return nil, nil, fmt.Errorf("fallback chain is empty")
	}

	var attempts []Attempt

	for pairIdx, pair := range chain.Pairs() {
		if pairIdx > 0 {
			inv.log.Append(session.Event{
				Kind:    session.EventSystemMessage,
				Source:  "invoker",
				Content: fmt.Sprintf("falling back to %s", pair),
			})
		}

		backend, err := inv.providers.Lookup(pair.Provider)
		if err != nil {
			attempts = inv.record(attempts, pair, OutcomeFatalError, err.Error(), 0)
			continue
		}

		// The pair's model rides on the request itself; mutating the shared
		// provider would race concurrent invocations from other sessions.
		pairReq := *req
		pairReq.Model = pair.Model

		for try := 0; try <= inv.retryCount; try++ {
			if err := ctx.Err(); err != nil {
				return nil, attempts, err
			}

			resp, latency, err := inv.attempt(ctx, backend, &pairReq)
			if err == nil {
				attempts = inv.record(attempts, pair, OutcomeSuccess, "", latency)
				return resp, attempts, nil
			}

			// The parent being canceled mid-attempt is not a provider
			// failure; surface it verbatim.
			if ctx.Err() != nil {
				attempts = inv.record(attempts, pair, OutcomeFatalError, ctx.Err().Error(), latency)
				return nil, attempts, ctx.Err()
			}

			if !model.IsRetryable(err) {
				attempts = inv.record(attempts, pair, OutcomeFatalError, err.Error(), latency)
				break // fatal for this pair, advance down the chain
			}

			attempts = inv.record(attempts, pair, OutcomeRetryableError, err.Error(), latency)
			if try < inv.retryCount {
				if hint := model.GetRetryAfter(err); hint != nil {
					if err := inv.sleep(ctx, *hint); err != nil {
						return nil, attempts, err
					}
				}
			}
		}
	}

	exhausted := &ChainExhaustedError{Attempts: attempts}
	inv.log.AppendError("invoker", exhausted.Error())
	return nil, attempts, exhausted
}

// attempt runs a single generation call under the per-attempt timeout.
func (inv *Invoker) attempt(ctx context.Context, backend model.Provider, req *model.GenerateRequest) (*model.GenerateResponse, time.Duration, error) {
	attemptCtx := ctx
	if inv.timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, inv.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := backend.Generate(attemptCtx, req)
	latency := time.Since(start)

	if err != nil {
		// An attempt deadline is a classified transient failure.
		if attemptCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			return nil, latency, &model.ProviderError{
				Code:       model.ErrorCodeTimeout,
				Message:    "attempt timed out",
				Underlying: err,
				Retryable:  true,
			}
		}
		return nil, latency, err
	}
	return resp, latency, nil
}

// record appends the attempt to both the returned metadata and the session
// log, preserving ordering.
func (inv *Invoker) record(attempts []Attempt, pair Pair, outcome Outcome, reason string, latency time.Duration) []Attempt {
	a := Attempt{
		Provider: pair.Provider,
		Model:    pair.Model,
		Index:    len(attempts),
		Outcome:  outcome,
		Reason:   reason,
		Latency:  latency,
	}
	content := fmt.Sprintf("model attempt %d %s: %s", a.Index+1, pair, outcome)
	if reason != "" {
		content += ": " + reason
	}
	inv.log.Append(session.Event{
		Kind:    session.EventSystemMessage,
		Source:  "invoker",
		Content: content,
	})
	return append(attempts, a)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
