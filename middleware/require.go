package middleware

import (
	"net/http"

	"github.com/wordleapi/wordauth"
)

// RequireAnyRole admits tokens that carry at least one of roles.
func RequireAnyRole(engine Authorizer, roles ...string) func(http.Handler) http.Handler {
	return Guard(engine, wordauth.RequireAnyRole(roles...))
}

// RequirePolicy admits tokens whose claims satisfy the named policy.
func RequirePolicy(engine Authorizer, name string) func(http.Handler) http.Handler {
	return Guard(engine, wordauth.RequirePolicy(name))
}
