package steps

import (
	"errors"
	"fmt"
	"slices"
	"sync"
)

var (
	// ErrStepNotFound is returned when no step is registered under an id.
	ErrStepNotFound = errors.New("no step found with id")

	// ErrDuplicateStep is returned when an id is registered twice.
	ErrDuplicateStep = errors.New("step already registered with id")
)

// Registry maps step ids to steps. Registration is expected to finish
// before flows read from it.
type Registry struct {
	mu    sync.RWMutex
	steps map[string]Step
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{steps: make(map[string]Step)}
}

var defaultRegistry = NewRegistry()

// Default returns the process-wide registry.
func Default() *Registry { return defaultRegistry }

// Register adds step under its id.
func (r *Registry) Register(step Step) error {
	if step == nil {
		return fmt.Errorf("registering step: nil step")
	}
	id := step.ID()
	if id == "" {
		return fmt.Errorf("registering step: empty id")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.steps[id]; exists {
		return fmt.Errorf("%w %q", ErrDuplicateStep, id)
	}
	r.steps[id] = step
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(list ...Step) {
	for _, s := range list {
		if err := r.Register(s); err != nil {
			panic(err)
		}
	}
}

// Get returns the step registered under id.
func (r *Registry) Get(id string) (Step, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	step, ok := r.steps[id]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrStepNotFound, id)
	}
	return step, nil
}

// IDs returns all registered ids, sorted.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.steps))
	for id := range r.steps {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Register adds step to the process-wide registry.
func Register(step Step) error { return defaultRegistry.Register(step) }

// Get looks id up in the process-wide registry.
func Get(id string) (Step, error) { return defaultRegistry.Get(id) }
