package audit

import "errors"

// Reasons recorded on unsuccessful events. Issue failures keep not-found and
// bad-password apart here even though callers see the same category.
const (
	ReasonMissingUsername         = "missing_username"
	ReasonMissingPassword         = "missing_password"
	ReasonUserNotFound            = "user_not_found"
	ReasonInvalidCredentials      = "invalid_credentials"
	ReasonMissingToken            = "missing_token"
	ReasonInvalidSignature        = "invalid_signature"
	ReasonInvalidIssuerOrAudience = "invalid_issuer_or_audience"
	ReasonTokenExpired            = "token_expired"
	ReasonMalformedToken          = "malformed_token"
	ReasonForbidden               = "forbidden"
	ReasonUnknownPolicy           = "unknown_policy"
	ReasonInvalidUserState        = "invalid_user_state"
	ReasonStoreUnavailable        = "store_unavailable"
	ReasonConfiguration           = "configuration"
	ReasonInternal                = "internal_error"
)

// Rule maps every error matching Err under errors.Is to Reason.
type Rule struct {
	Err    error
	Reason string
}

// Classifier resolves an error to a reason. The first matching rule wins, so
// narrower sentinels go before the categories that wrap them.
type Classifier []Rule

// Reason returns "" for nil and ReasonInternal when no rule matches.
func (c Classifier) Reason(err error) string {
	if err == nil {
		return ""
	}
	for _, r := range c {
		if errors.Is(err, r.Err) {
			return r.Reason
		}
	}
	return ReasonInternal
}
