package policy

import (
	"errors"
	"fmt"
	"sort"

	"github.com/wordleapi/wordauth/claims"
)

// ErrUnknownPolicy is returned when a policy name was never registered.
// It signals a server configuration fault, not a client error.
var ErrUnknownPolicy = errors.New("unknown policy")

// Registry maps policy names to predicates. It has no mutators.
type Registry struct {
	policies map[string]Predicate
}

// NewRegistry copies policies into a new Registry. Empty names and nil
// predicates are rejected.
func NewRegistry(policies map[string]Predicate) (*Registry, error) {
	r := &Registry{policies: make(map[string]Predicate, len(policies))}
	for name, pred := range policies {
		if name == "" {
			return nil, errors.New("policy name cannot be empty")
		}
		if pred == nil {
			return nil, fmt.Errorf("policy %q has nil predicate", name)
		}
		r.policies[name] = pred
	}
	return r, nil
}

// Satisfies evaluates the named policy against set.
func (r *Registry) Satisfies(set claims.Set, name string) (bool, error) {
	if r == nil {
		return false, fmt.Errorf("%w: %q", ErrUnknownPolicy, name)
	}
	pred, ok := r.policies[name]
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrUnknownPolicy, name)
	}
	return pred(set), nil
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	if r == nil {
		return false
	}
	_, ok := r.policies[name]
	return ok
}

// Names returns the registered policy names in sorted order.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.policies))
	for name := range r.policies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
