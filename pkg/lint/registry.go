package lint

import (
	"sort"
	"sync"
)

// globalRegistry is the single global registry for all lint rules.
var globalRegistry = &Registry{
	factories: make(map[string]Factory),
}

// Registry stores rule factories for discovery and construction.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// Register adds a rule factory to the global registry.
// Call this from init() functions in rule packages.
func Register(name string, factory Factory) {
	globalRegistry.mu.Lock()
	defer globalRegistry.mu.Unlock()
	globalRegistry.factories[name] = factory
}

// NewRule constructs a registered rule with the given kwargs. The
// second return is false when no rule is registered under name.
func NewRule(name string, kwargs map[string]any) (Rule, bool, error) {
	globalRegistry.mu.RLock()
	factory, ok := globalRegistry.factories[name]
	globalRegistry.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	rule, err := factory(kwargs)
	if err != nil {
		return nil, true, &RuleConfigError{Rule: name, Err: err}
	}
	return rule, true, nil
}

// RuleNames returns all registered rule names, sorted.
func RuleNames() []string {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()

	names := make([]string, 0, len(globalRegistry.factories))
	for name := range globalRegistry.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered rules.
func Count() int {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()
	return len(globalRegistry.factories)
}

// Clear removes all registered rules. Used for testing.
func Clear() {
	globalRegistry.mu.Lock()
	defer globalRegistry.mu.Unlock()
	globalRegistry.factories = make(map[string]Factory)
}
