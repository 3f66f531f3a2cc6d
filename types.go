package wordauth

import (
	"time"

	"github.com/wordleapi/wordauth/claims"
)

// IssueRequest carries the credentials presented to Issue.
type IssueRequest struct {
	Username string
	Password string
}

// IssueResult is returned by [Engine.Issue].
type IssueResult struct {
	Token     string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Claims    claims.Set
}

// AuthResult is returned by [Engine.Authorize]. Claims is the set the
// requirement was evaluated against, including request-time enrichment for
// policy requirements.
type AuthResult struct {
	Subject  string
	UserID   string
	UserName string
	Roles    []string
	Claims   claims.Set
}

func newAuthResult(set claims.Set) *AuthResult {
	res := &AuthResult{
		Roles:  set.Roles(),
		Claims: set,
	}
	res.Subject, _ = set.First(claims.TypeSubject)
	res.UserID, _ = set.First(claims.TypeUserID)
	res.UserName, _ = set.First(claims.TypeUserName)
	return res
}

// Claim returns the first value of claim type t.
func (r *AuthResult) Claim(t string) (string, bool) {
	if r == nil {
		return "", false
	}
	return r.Claims.First(t)
}
