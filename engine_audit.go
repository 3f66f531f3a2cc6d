package wordauth

import (
	"context"

	"github.com/wordleapi/wordauth/internal/audit"
)

// auditReasons maps engine errors to audit reasons. Sentinels precede the
// categories that wrap them.
var auditReasons = audit.Classifier{
	{Err: ErrMissingUsername, Reason: audit.ReasonMissingUsername},
	{Err: ErrMissingPassword, Reason: audit.ReasonMissingPassword},
	{Err: ErrUserNotFound, Reason: audit.ReasonUserNotFound},
	{Err: ErrInvalidCredentials, Reason: audit.ReasonInvalidCredentials},
	{Err: ErrMissingToken, Reason: audit.ReasonMissingToken},
	{Err: ErrInvalidSignature, Reason: audit.ReasonInvalidSignature},
	{Err: ErrInvalidIssuerOrAudience, Reason: audit.ReasonInvalidIssuerOrAudience},
	{Err: ErrTokenExpired, Reason: audit.ReasonTokenExpired},
	{Err: ErrMalformedToken, Reason: audit.ReasonMalformedToken},
	{Err: ErrForbidden, Reason: audit.ReasonForbidden},
	{Err: ErrUnknownPolicy, Reason: audit.ReasonUnknownPolicy},
	{Err: ErrInvalidUserState, Reason: audit.ReasonInvalidUserState},
	{Err: ErrCredentialStore, Reason: audit.ReasonStoreUnavailable},
	{Err: ErrConfiguration, Reason: audit.ReasonConfiguration},
}

func auditReason(err error) string {
	return auditReasons.Reason(err)
}

// emitAudit records an event. Metadata is built lazily so disabled auditing
// costs nothing.
func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	subject string,
	userID string,
	requirement string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}
	if ua := userAgentFromContext(ctx); ua != "" {
		if metadata == nil {
			metadata = make(map[string]string, 1)
		}
		metadata["user_agent"] = ua
	}

	e.audit.Emit(ctx, AuditEvent{
		Timestamp:   e.now().UTC(),
		EventType:   eventType,
		Subject:     subject,
		UserID:      userID,
		IP:          clientIPFromContext(ctx),
		Requirement: requirement,
		Success:     success,
		Err:         err,
		Metadata:    metadata,
	})
}
