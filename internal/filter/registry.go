package filter

import (
	"fmt"
	"sort"
	"sync"

	"git.home.luguber.info/inful/sitecompiler/internal/foundation/errors"
)

// ErrUnknownFilter is returned by Lookup for an unregistered name.
var ErrUnknownFilter = errors.FilterError("unknown filter").Build()

// Registry maps filter names to implementations.
type Registry struct {
	mu      sync.RWMutex
	filters map[string]Filter
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{filters: make(map[string]Filter)}
}

// Register adds a filter under name.
// Returns an error if the name is empty, f is nil or the name is taken.
func (r *Registry) Register(name string, f Filter) error {
	if name == "" {
		return fmt.Errorf("cannot register filter with empty name")
	}
	if f == nil {
		return fmt.Errorf("cannot register nil filter %s", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.filters[name]; exists {
		return fmt.Errorf("filter %s already registered", name)
	}
	r.filters[name] = f
	return nil
}

// Lookup retrieves the filter registered under name.
func (r *Registry) Lookup(name string) (Filter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.filters[name]
	if !ok {
		return nil, ErrUnknownFilter.WithContext("filter", name)
	}
	return f, nil
}

// Names returns the registered filter names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.filters))
	for name := range r.filters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
