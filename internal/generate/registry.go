package generate

import (
	"fmt"
	"sort"

	"github.com/lumora-labs/paperask/internal/domain"
)

// ModelLister is implemented by backends that expose a selectable model list.
type ModelLister interface {
	Models() []string
}

// Provider describes one registered backend for the discovery endpoint.
type Provider struct {
	Name    string   `json:"name"`
	Models  []string `json:"models,omitempty"`
	Default bool     `json:"default"`
}

// Registry holds the configured generation backends keyed by name.
type Registry struct {
	backends    map[string]domain.Generator
	defaultName string
}

// NewRegistry creates a registry with the given default backend name.
func NewRegistry(defaultName string) *Registry {
	return &Registry{
		backends:    make(map[string]domain.Generator),
		defaultName: defaultName,
	}
}

// Register adds a backend under its own Name().
func (r *Registry) Register(g domain.Generator) {
	r.backends[g.Name()] = g
}

// Get resolves a backend by name. An empty name selects the default.
func (r *Registry) Get(name string) (domain.Generator, error) {
	if name == "" {
		name = r.defaultName
	}
	g, ok := r.backends[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownGenerator, name)
	}
	return g, nil
}

// DefaultName returns the name of the default backend.
func (r *Registry) DefaultName() string { return r.defaultName }

// Providers lists the registered backends sorted by name, default first.
func (r *Registry) Providers() []Provider {
	out := make([]Provider, 0, len(r.backends))
	for name, g := range r.backends {
		p := Provider{Name: name, Default: name == r.defaultName}
		if lister, ok := g.(ModelLister); ok {
			p.Models = lister.Models()
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Default != out[j].Default {
			return out[i].Default
		}
		return out[i].Name < out[j].Name
	})
	return out
}
