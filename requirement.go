package wordauth

import (
	"strings"
)

type requirementKind uint8

const (
	requireAuthenticated requirementKind = iota
	requireAnyRole
	requirePolicy
)

// Requirement is what a caller's token must satisfy in Authorize. The zero
// value requires only a valid token.
type Requirement struct {
	kind   requirementKind
	roles  []string
	policy string
}

// RequireAuthenticated is satisfied by any valid token.
func RequireAuthenticated() Requirement {
	return Requirement{kind: requireAuthenticated}
}

// RequireAnyRole is satisfied when the token carries at least one of roles.
// Matching is exact and case-sensitive.
func RequireAnyRole(roles ...string) Requirement {
	return Requirement{kind: requireAnyRole, roles: append([]string(nil), roles...)}
}

// RequirePolicy is satisfied when the named registered policy accepts the
// token's enriched claims.
func RequirePolicy(name string) Requirement {
	return Requirement{kind: requirePolicy, policy: name}
}

// String renders the requirement for logs and audit records,
// e.g. "roles:RulerOfTheUniverse,Meg" or "policy:RandomAdmin".
func (r Requirement) String() string {
	switch r.kind {
	case requireAnyRole:
		return "roles:" + strings.Join(r.roles, ",")
	case requirePolicy:
		return "policy:" + r.policy
	default:
		return "authenticated"
	}
}
