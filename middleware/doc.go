// Package middleware adapts wordauth.Engine authorization to net/http.
//
// # Guards
//
//   - [Guard] enforces an arbitrary wordauth.Requirement.
//   - [RequireAuthenticated] admits any valid bearer token.
//   - [RequireAnyRole] admits tokens carrying one of the listed roles.
//   - [RequirePolicy] admits tokens satisfying a registered policy.
//
// Each guard reads the Authorization header, calls Engine.Authorize and
// stores the resulting *wordauth.AuthResult in the request context, where
// [AuthResultFromContext] retrieves it.
//
// # Status codes
//
// 401 for missing or invalid tokens, 403 for unmet requirements, 500 for
// server faults such as an unregistered policy. The engine's distinction
// between token failures never reaches the response body.
//
// # What this package must NOT do
//
//   - Parse or create JWTs directly (delegates to Engine).
//   - Make authorization decisions beyond pass/reject from Engine.Authorize.
package middleware
