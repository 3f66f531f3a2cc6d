package policy

import (
	"github.com/wordleapi/wordauth/claims"
)

// Predicate decides whether a claim set satisfies a requirement.
type Predicate func(set claims.Set) bool

// HasAnyRole reports whether set carries a role claim equal to one of required.
// Comparison is exact and case-sensitive. An empty required list never matches.
func HasAnyRole(set claims.Set, required ...string) bool {
	for _, c := range set {
		if c.Type != claims.TypeRole {
			continue
		}
		for _, r := range required {
			if c.Value == r {
				return true
			}
		}
	}
	return false
}

// RequireRole returns a predicate satisfied by any of roles.
func RequireRole(roles ...string) Predicate {
	roles = append([]string(nil), roles...)
	return func(set claims.Set) bool {
		return HasAnyRole(set, roles...)
	}
}

// RequireClaim returns a predicate satisfied when some claim of type t has value v.
func RequireClaim(t, v string) Predicate {
	return func(set claims.Set) bool {
		return set.Has(t, v)
	}
}

// All is satisfied when every predicate is. All() is always satisfied.
func All(preds ...Predicate) Predicate {
	preds = append([]Predicate(nil), preds...)
	return func(set claims.Set) bool {
		for _, p := range preds {
			if !p(set) {
				return false
			}
		}
		return true
	}
}

// Any is satisfied when at least one predicate is. Any() is never satisfied.
func Any(preds ...Predicate) Predicate {
	preds = append([]Predicate(nil), preds...)
	return func(set claims.Set) bool {
		for _, p := range preds {
			if p(set) {
				return true
			}
		}
		return false
	}
}
