package lint

import (
	"fmt"
	"sort"

	"github.com/santosr2/esguard/pkg/sdk"
)

// Registry holds the set of named rules an engine can run.
type Registry struct {
	rules map[string]sdk.Rule
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{rules: make(map[string]sdk.Rule)}
}

// Register adds a rule keyed by its Name. Names must be unique.
func (r *Registry) Register(rule sdk.Rule) error {
	name := rule.Name()
	if name == "" {
		return fmt.Errorf("rule has no name")
	}
	if _, exists := r.rules[name]; exists {
		return fmt.Errorf("rule %q already registered", name)
	}
	r.rules[name] = rule
	return nil
}

// Get retrieves a rule by name.
func (r *Registry) Get(name string) (sdk.Rule, bool) {
	rule, ok := r.rules[name]
	return rule, ok
}

// Names returns all registered rule names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.rules))
	for name := range r.rules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns all registered rules sorted by name.
func (r *Registry) All() []sdk.Rule {
	names := r.Names()
	rules := make([]sdk.Rule, len(names))
	for i, name := range names {
		rules[i] = r.rules[name]
	}
	return rules
}
