package policy

import (
	"math/rand/v2"
	"strconv"

	"github.com/wordleapi/wordauth/claims"
)

// Built-in policy names.
const (
	NameRandomAdmin         = "RandomAdmin"
	NameMasterOfTheUniverse = "MasterOfTheUniverse"
)

// RoleAdmin is the role RandomAdmin requires.
const RoleAdmin = "Admin"

// randomBound is the exclusive upper bound of the random claim.
const randomBound = 100

// RandomAdmin is satisfied when the random claim is an integer in [0,100) that
// is at least 50 and the subject holds the Admin role. Without an enricher the
// claim is absent and the policy fails.
func RandomAdmin(set claims.Set) bool {
	raw, ok := set.First(claims.TypeRandom)
	if !ok {
		return false
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 || n >= randomBound {
		return false
	}
	return n >= randomBound/2 && HasAnyRole(set, RoleAdmin)
}

// MasterOfTheUniverse is satisfied when the privileged flag claim is "true".
func MasterOfTheUniverse(set claims.Set) bool {
	return set.Has(claims.TypeMasterOfTheUniverse, "true")
}

// Builtins returns a fresh map of the built-in policies, suitable for
// extending before NewRegistry.
func Builtins() map[string]Predicate {
	return map[string]Predicate{
		NameRandomAdmin:         RandomAdmin,
		NameMasterOfTheUniverse: MasterOfTheUniverse,
	}
}

// Enricher derives the claim set a policy sees from the verified one. It must
// return a new set and leave its input untouched.
type Enricher func(set claims.Set) claims.Set

// IntSource returns a value in [0,n).
type IntSource func(n int) int

// RandomEnricher appends a random claim drawn from src. A nil src uses
// math/rand/v2.
func RandomEnricher(src IntSource) Enricher {
	if src == nil {
		src = rand.IntN
	}
	return func(set claims.Set) claims.Set {
		return set.With(claims.TypeRandom, strconv.Itoa(src(randomBound)))
	}
}

// Chain applies enrichers in order.
func Chain(enrichers ...Enricher) Enricher {
	enrichers = append([]Enricher(nil), enrichers...)
	return func(set claims.Set) claims.Set {
		for _, e := range enrichers {
			if e != nil {
				set = e(set)
			}
		}
		return set
	}
}
