package provider

import (
	"fmt"
	"sort"
)

// Registry maps provider identifiers to adapter factories. The provider set
// is closed: everything is registered at startup, nothing is discovered at
// runtime.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry creates an empty provider registry
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// Register adds a factory for a provider identifier
func (r *Registry) Register(providerID string, factory Factory) {
	r.factories[providerID] = factory
}

// Known returns the sorted identifiers of all registered providers
func (r *Registry) Known() []string {
	ids := make([]string, 0, len(r.factories))
	for id := range r.factories {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Has reports whether a provider identifier is registered
func (r *Registry) Has(providerID string) bool {
	_, ok := r.factories[providerID]
	return ok
}

// Create builds a fresh adapter for one sync pass
func (r *Registry) Create(providerID string, deps Deps) (Provider, error) {
	factory, ok := r.factories[providerID]
	if !ok {
		return nil, fmt.Errorf("unknown provider %q", providerID)
	}
	return factory(deps)
}
