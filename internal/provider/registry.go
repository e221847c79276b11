// Package provider wires concrete LLM backends to the names used in
// configuration and fallback chains.
package provider

import (
	"fmt"
	"sort"
	"sync"

	"github.com/Cyclone1070/aegis/internal/provider/model"
)

// Registry maps provider names to live Provider instances. It is populated
// at startup and read-only afterwards; Lookup is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]model.Provider
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]model.Provider)}
}

// Register adds a provider under its Name(). Registering the same name twice
// is a programming error.
func (r *Registry) Register(p model.Provider) {
	if p == nil {
		panic("provider is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	name := p.Name()
	if _, exists := r.providers[name]; exists {
		panic(fmt.Sprintf("provider %q registered twice", name))
	}
	r.providers[name] = p
}

// Lookup returns the provider registered under name.
func (r *Registry) Lookup(name string) (model.Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("unknown provider %q (registered: %v)", name, r.names())
	}
	return p, nil
}

func (r *Registry) names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
