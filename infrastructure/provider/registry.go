// Package provider selects the hosting service adapter for a run.
package provider

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pinforge/actionpin/domain"
)

// Factory builds a Provider bound to an auth token.
type Factory func(token string) domain.Provider

// Registry maps provider type names to their factories. Adapters are
// registered once at wiring time; every Get hands out a fresh instance so
// tokens never leak between configurations.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: map[string]Factory{}}
}

// Register binds a factory to a provider type name such as "github".
// Registering a name twice replaces the earlier factory.
func (r *Registry) Register(name string, factory Factory) {
	r.factories[name] = factory
}

// Get builds a provider of the given type with the given token. The error
// for an unknown type names the registered ones.
func (r *Registry) Get(name, token string) (domain.Provider, error) {
	factory, ok := r.factories[name]
	if !ok {
		if len(r.factories) == 0 {
			return nil, fmt.Errorf("unknown provider type: %q", name)
		}
		return nil, fmt.Errorf(
			"unknown provider type: %q (registered: %s)",
			name, strings.Join(r.Names(), ", "),
		)
	}
	return factory(token), nil
}

// Names returns the registered provider type names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
