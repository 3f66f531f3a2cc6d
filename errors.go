package wordauth

import (
	"errors"

	"github.com/wordleapi/wordauth/claims"
	"github.com/wordleapi/wordauth/policy"
)

// categorized is a sentinel that also matches its category under errors.Is.
type categorized struct {
	msg      string
	category error
}

func (e *categorized) Error() string { return e.msg }
func (e *categorized) Unwrap() error { return e.category }

func newCategorized(msg string, category error) error {
	return &categorized{msg: msg, category: category}
}

// Categories. Every specific error below matches exactly one of these.
var (
	// ErrInvalidRequest marks caller input that is missing or unusable (HTTP 400).
	ErrInvalidRequest = errors.New("invalid request")
	// ErrUnauthenticated marks a failed authentication: bad credentials or a
	// missing, invalid, or expired token (HTTP 401).
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden is returned when a valid token does not meet the requirement (HTTP 403).
	ErrForbidden = errors.New("forbidden")
)

var (
	// ErrMissingUsername is returned by Issue before any store lookup.
	ErrMissingUsername = newCategorized("missing username", ErrInvalidRequest)
	// ErrMissingPassword is returned by Issue before any store lookup.
	ErrMissingPassword = newCategorized("missing password", ErrInvalidRequest)

	// ErrUserNotFound is returned by Issue when the store has no such account.
	ErrUserNotFound = newCategorized("user not found", ErrUnauthenticated)
	// ErrInvalidCredentials is returned by Issue when the password does not match.
	ErrInvalidCredentials = newCategorized("invalid credentials", ErrUnauthenticated)

	// ErrMissingToken is returned when no token was presented.
	ErrMissingToken = newCategorized("missing token", ErrUnauthenticated)
	// ErrInvalidSignature is returned when the token MAC does not match.
	ErrInvalidSignature = newCategorized("invalid token signature", ErrUnauthenticated)
	// ErrInvalidIssuerOrAudience is returned when iss or aud differ from configuration.
	ErrInvalidIssuerOrAudience = newCategorized("invalid token issuer or audience", ErrUnauthenticated)
	// ErrTokenExpired is returned at or after the token's expiry instant.
	ErrTokenExpired = newCategorized("token expired", ErrUnauthenticated)
	// ErrMalformedToken is returned for tokens that are not a decodable JWS.
	ErrMalformedToken = newCategorized("malformed token", ErrUnauthenticated)
)

var (
	// ErrUnknownPolicy is returned when a policy requirement names an
	// unregistered policy. It is a server fault.
	ErrUnknownPolicy = policy.ErrUnknownPolicy
	// ErrInvalidUserState is returned when a stored account cannot produce the
	// mandatory claims.
	ErrInvalidUserState = claims.ErrInvalidUserState
	// ErrConfiguration is returned for missing or invalid engine settings.
	ErrConfiguration = errors.New("configuration error")
	// ErrCredentialStore wraps unexpected credential-store failures.
	ErrCredentialStore = errors.New("credential store failure")
	// ErrEngineNotReady is returned when methods are called on a nil Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)
