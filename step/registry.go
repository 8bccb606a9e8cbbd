package step

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Factory builds an implementer for one configured sub-step
type Factory func(opts Options) (Implementer, error)

// Registry maps implementer names to factories. Lookups are case-insensitive.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]registration
}

type registration struct {
	name    string
	factory Factory
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]registration)}
}

// Register adds a factory under name. Registering the same name twice is an error.
func (r *Registry) Register(name string, factory Factory) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("implementer name cannot be empty")
	}
	if factory == nil {
		return fmt.Errorf("implementer %s: factory cannot be nil", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	key := strings.ToLower(name)
	if existing, ok := r.factories[key]; ok {
		return fmt.Errorf("implementer %s is already registered as %s", name, existing.name)
	}
	r.factories[key] = registration{name: name, factory: factory}
	return nil
}

// New instantiates the implementer configured for opts.SubStep
func (r *Registry) New(opts Options) (Implementer, error) {
	if opts.SubStep == nil {
		return nil, fmt.Errorf("sub-step configuration is required")
	}

	r.mu.RLock()
	reg, ok := r.factories[strings.ToLower(opts.SubStep.Implementer)]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown implementer %q for step %s (available: %s)",
			opts.SubStep.Implementer, opts.SubStep.StepName, strings.Join(r.Names(), ", "))
	}

	impl, err := reg.factory(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create implementer %s: %w", reg.name, err)
	}
	return impl, nil
}

// Names returns the registered implementer names, sorted
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for _, reg := range r.factories {
		names = append(names, reg.name)
	}
	sort.Strings(names)
	return names
}
