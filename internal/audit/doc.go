// Package audit implements async event dispatching for issue and access decisions.
//
// # Components
//
//   - [Sink]: interface for event consumers (channel, JSON writer, slog, no-op).
//   - [Dispatcher]: buffered async relay with a Block or Drop overflow policy.
//   - [Event]: structured audit record with timestamp, type, subject, IP, reason.
//   - [Classifier]: ordered error-to-reason rules applied at delivery.
//
// This package owns event buffering, the reason vocabulary, and sink delivery.
// It does NOT decide which events to emit or which errors map to which
// reason; the wordauth Engine does.
//
// # What this package must NOT do
//
//   - Carry passwords, password hashes, tokens, or the signing secret.
//   - Import wordauth or any sibling internal package.
package audit
