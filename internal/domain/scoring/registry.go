package scoring

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds engines by rule set name and tracks the active one.
// It is safe for concurrent use; swapping rule sets never affects an
// evaluation already in progress.
type Registry struct {
	mu      sync.RWMutex
	engines map[string]*Engine
	active  string
}

// NewRegistry creates a registry seeded with the built-in rule sets and
// activates active.
func NewRegistry(active string) (*Registry, error) {
	r := &Registry{engines: make(map[string]*Engine)}
	for _, rs := range Builtin() {
		if err := r.Register(rs); err != nil {
			return nil, err
		}
	}
	if err := r.Activate(active); err != nil {
		return nil, err
	}
	return r, nil
}

// Register validates rs and adds it, replacing any rule set with the same
// name.
func (r *Registry) Register(rs RuleSet) error {
	if err := rs.Validate(); err != nil {
		return err
	}
	e := NewEngine(WithRuleSet(rs))
	r.mu.Lock()
	r.engines[rs.Name] = e
	r.mu.Unlock()
	return nil
}

// Activate makes name the active rule set.
func (r *Registry) Activate(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.engines[name]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownRuleSet, name)
	}
	r.active = name
	return nil
}

// Active returns the engine of the active rule set.
func (r *Registry) Active() *Engine {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.engines[r.active]
}

// ActiveName returns the name of the active rule set.
func (r *Registry) ActiveName() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active
}

// Engine returns the engine for name. An empty name selects the active one.
func (r *Registry) Engine(name string) (*Engine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if name == "" {
		name = r.active
	}
	e, ok := r.engines[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRuleSet, name)
	}
	return e, nil
}

// Names lists registered rule sets in lexical order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.engines))
	for name := range r.engines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
