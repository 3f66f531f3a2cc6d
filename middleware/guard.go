package middleware

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/wordleapi/wordauth"
)

// Authorizer is the part of *wordauth.Engine the guards need.
type Authorizer interface {
	Authorize(ctx context.Context, token string, r wordauth.Requirement) (*wordauth.AuthResult, error)
}

type authResultContextKey struct{}

// AuthResultFromContext returns the result stored by a guard for this request.
func AuthResultFromContext(ctx context.Context) (*wordauth.AuthResult, bool) {
	res, ok := ctx.Value(authResultContextKey{}).(*wordauth.AuthResult)
	return res, ok
}

// Guard rejects requests whose bearer token does not satisfy requirement.
//
// Responses: 401 with a WWW-Authenticate challenge for missing or invalid
// tokens, 403 when the requirement is not met, 500 for server faults such as
// an unregistered policy.
func Guard(engine Authorizer, requirement wordauth.Requirement) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "internal server error", http.StatusInternalServerError)
				return
			}

			ctx := RequestContext(r)

			// A missing header reaches the engine as an empty token.
			token, _ := bearerToken(r.Header.Get("Authorization"))

			res, err := engine.Authorize(ctx, token, requirement)
			if err != nil {
				writeError(w, err)
				return
			}

			ctx = context.WithValue(ctx, authResultContextKey{}, res)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// StatusCode maps an engine error to its HTTP status.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, wordauth.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, wordauth.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, wordauth.ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := StatusCode(err)
	switch status {
	case http.StatusUnauthorized:
		w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
		http.Error(w, "unauthorized", status)
	case http.StatusForbidden:
		http.Error(w, "forbidden", status)
	default:
		http.Error(w, "internal server error", status)
	}
}

// RequestContext returns r.Context() carrying the caller's address and user
// agent for engine audit records.
func RequestContext(r *http.Request) context.Context {
	ctx := r.Context()
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		ctx = wordauth.WithClientIP(ctx, host)
	} else if r.RemoteAddr != "" {
		ctx = wordauth.WithClientIP(ctx, r.RemoteAddr)
	}
	if ua := r.UserAgent(); ua != "" {
		ctx = wordauth.WithUserAgent(ctx, ua)
	}
	return ctx
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}
