// Package policy evaluates role membership and named policies against a
// verified claims.Set.
//
// A [Registry] is built once from a name-to-predicate map and is read-only
// afterwards, so it can be shared across request goroutines without locking.
// Predicates are pure functions of the claim set; request-time inputs such as
// the "random" claim are attached beforehand by an [Enricher].
//
// # What this package must NOT do
//
//   - Verify tokens or talk to the credential store.
//   - Mutate the claim set it is given.
package policy
