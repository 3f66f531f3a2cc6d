// Package wordauth issues and verifies HS512 identity tokens for the word-game
// API and evaluates role and policy requirements against them.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build]. Configuration, signing secret, and policy registry are
// immutable once built.
//
// # Paths
//
// Issue: username and password are checked for presence, the account is read
// from a [credential.Store], the password is verified, roles are loaded, a
// [claims.Set] is assembled, and a token is signed.
//
// Authorize: the token is verified (signature first, then issuer and audience,
// then expiry) and the resulting claims are checked against a [Requirement].
//
// # What this package must NOT do
//
//   - Log or audit passwords, password hashes, tokens, or the signing secret.
//   - Write to the credential store on the issue or authorize paths.
//   - Revoke tokens before their natural expiry.
package wordauth
