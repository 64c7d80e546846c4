// Package extension keeps the named validator implementations that deployments
// can plug into the stock event validation pipeline.
package extension

import (
	"fmt"
	"sort"
	"sync"

	"github.com/prepacking/backend/internal/domain/shared"
	"github.com/prepacking/backend/internal/domain/stockledger"
)

// DefaultImplementation is the name the built-in validator of every point is registered under
const DefaultImplementation = "default"

// Registry maps extension point ids to named validator implementations.
// Each point has one active implementation; when none is activated, or the
// activated one is missing, the point's default implementation is used.
type Registry struct {
	mu       sync.RWMutex
	impls    map[stockledger.ExtensionPointID]map[string]stockledger.Validator
	active   map[stockledger.ExtensionPointID]string
	defaults map[stockledger.ExtensionPointID]string
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		impls:    make(map[stockledger.ExtensionPointID]map[string]stockledger.Validator),
		active:   make(map[stockledger.ExtensionPointID]string),
		defaults: make(map[stockledger.ExtensionPointID]string),
	}
}

// Register adds a named implementation for a point
func (r *Registry) Register(point stockledger.ExtensionPointID, name string, v stockledger.Validator) error {
	if name == "" {
		return fmt.Errorf("%w: implementation name cannot be empty", shared.ErrInvalidInput)
	}
	if v == nil {
		return fmt.Errorf("%w: implementation '%s' for %s is nil", shared.ErrInvalidInput, name, point)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	byName, ok := r.impls[point]
	if !ok {
		byName = make(map[string]stockledger.Validator)
		r.impls[point] = byName
	}
	if _, exists := byName[name]; exists {
		return fmt.Errorf("%w: implementation '%s' for %s already registered", shared.ErrAlreadyExists, name, point)
	}
	byName[name] = v
	return nil
}

// RegisterDefault registers the built-in implementation of a point and marks it as the fallback
func (r *Registry) RegisterDefault(point stockledger.ExtensionPointID, v stockledger.Validator) error {
	if err := r.Register(point, DefaultImplementation, v); err != nil {
		return err
	}
	r.mu.Lock()
	r.defaults[point] = DefaultImplementation
	r.mu.Unlock()
	return nil
}

// Activate selects which registered implementation a point resolves to
func (r *Registry) Activate(point stockledger.ExtensionPointID, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.impls[point][name]; !exists {
		return fmt.Errorf("%w: implementation '%s' for %s not found", shared.ErrNotFound, name, point)
	}
	r.active[point] = name
	return nil
}

// Deactivate reverts a point to its default implementation
func (r *Registry) Deactivate(point stockledger.ExtensionPointID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.active, point)
}

// Unregister removes a named implementation; the default cannot be removed
func (r *Registry) Unregister(point stockledger.ExtensionPointID, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.defaults[point] == name {
		return fmt.Errorf("%w: default implementation of %s cannot be removed", shared.ErrInvalidInput, point)
	}
	if _, exists := r.impls[point][name]; !exists {
		return fmt.Errorf("%w: implementation '%s' for %s not found", shared.ErrNotFound, name, point)
	}
	delete(r.impls[point], name)
	if r.active[point] == name {
		delete(r.active, point)
	}
	return nil
}

// Resolve returns the implementation currently serving a point
func (r *Registry) Resolve(point stockledger.ExtensionPointID) (stockledger.Validator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	byName := r.impls[point]
	if name, ok := r.active[point]; ok {
		if v, exists := byName[name]; exists {
			return v, nil
		}
	}
	if v, exists := byName[r.defaults[point]]; exists {
		return v, nil
	}
	return nil, fmt.Errorf("%w: no implementation registered for %s", shared.ErrNotFound, point)
}

// ActiveName returns the implementation name a point currently resolves to
func (r *Registry) ActiveName(point stockledger.ExtensionPointID) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if name, ok := r.active[point]; ok {
		if _, exists := r.impls[point][name]; exists {
			return name
		}
	}
	return r.defaults[point]
}

// List returns the registered implementation names of a point
func (r *Registry) List(point stockledger.ExtensionPointID) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.impls[point]))
	for name := range r.impls[point] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ApplyActivations activates implementations by point id, as read from configuration
func (r *Registry) ApplyActivations(activations map[string]string) error {
	for point, name := range activations {
		if name == "" || name == DefaultImplementation {
			r.Deactivate(stockledger.ExtensionPointID(point))
			continue
		}
		if err := r.Activate(stockledger.ExtensionPointID(point), name); err != nil {
			return err
		}
	}
	return nil
}
