// Package invoker wraps model generation with bounded retries and an ordered
// fallback chain of (provider, model) pairs, recording structured metadata
// for every attempt so callers and auditors can reconstruct exactly which
// pairs were tried and why each failed.
package invoker

import (
	"errors"
	"fmt"

	"github.com/Cyclone1070/aegis/internal/config"
)

// Pair identifies one (provider, model) combination in a fallback chain.
type Pair struct {
	Provider string
	Model    string
}

func (p Pair) String() string {
	return p.Provider + "/" + p.Model
}

// FallbackChain is the ordered list of pairs to try; index 0 is the primary.
// Invariants: length >= 1 and no pair appears twice consecutively.
type FallbackChain struct {
	pairs []Pair
}

// NewChain validates and builds a fallback chain.
func NewChain(pairs ...Pair) (FallbackChain, error) {
	if len(pairs) == 0 {
		return FallbackChain{}, errors.New("fallback chain must contain at least one pair")
	}
	for i, p := range pairs {
		if p.Provider == "" || p.Model == "" {
			return FallbackChain{}, fmt.Errorf("fallback chain pair %d is incomplete: %q", i, p)
		}
		if i > 0 && pairs[i-1] == p {
			return FallbackChain{}, fmt.Errorf("fallback chain repeats pair %s consecutively", p)
		}
	}
	out := make([]Pair, len(pairs))
	copy(out, pairs)
	return FallbackChain{pairs: out}, nil
}

// ChainFromConfig builds the default chain: the configured primary pair,
// followed by the fallback pair when one is configured and distinct.
func ChainFromConfig(cfg config.ModelConfig) (FallbackChain, error) {
	primary := Pair{Provider: cfg.DefaultProvider, Model: cfg.DefaultModel}
	if cfg.FallbackProvider == "" || cfg.FallbackModel == "" {
		return NewChain(primary)
	}
	fallback := Pair{Provider: cfg.FallbackProvider, Model: cfg.FallbackModel}
	if fallback == primary {
		return NewChain(primary)
	}
	return NewChain(primary, fallback)
}

// Pairs returns a copy of the chain in order.
func (c FallbackChain) Pairs() []Pair {
	out := make([]Pair, len(c.pairs))
	copy(out, c.pairs)
	return out
}

// Len returns the chain length.
func (c FallbackChain) Len() int {
	return len(c.pairs)
}
