// Package credential defines the credential-store contract consumed by the
// wordauth engine and the account record it returns.
//
// # Adapters
//
//   - memory: process-local maps, used by tests and the development server.
//   - redisstore: accounts and role lists stored in Redis hashes and lists.
//   - postgres: accounts and roles stored in PostgreSQL through pgx, with
//     goose-managed migrations.
//
// Every adapter verifies passwords through the password package, so stored
// hashes are interchangeable between backends.
//
// # What this package must NOT do
//
//   - Assemble claims or touch tokens.
//   - Log plaintext passwords or stored hashes.
package credential
