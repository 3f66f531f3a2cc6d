package middleware

import (
	"net/http"

	"github.com/wordleapi/wordauth"
)

// RequireAuthenticated admits any request carrying a valid token.
func RequireAuthenticated(engine Authorizer) func(http.Handler) http.Handler {
	return Guard(engine, wordauth.RequireAuthenticated())
}
