package wordauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/wordleapi/wordauth/claims"
	"github.com/wordleapi/wordauth/credential"
	"github.com/wordleapi/wordauth/internal/audit"
	"github.com/wordleapi/wordauth/jwt"
	"github.com/wordleapi/wordauth/policy"
)

// Engine issues and verifies access tokens and evaluates requirements against
// their claims. It is immutable after Build and safe for concurrent use.
type Engine struct {
	config   Config
	store    credential.Store
	tokens   *jwt.Manager
	policies *policy.Registry
	enricher policy.Enricher
	audit    *audit.Dispatcher
	metrics  *Metrics
	logger   *slog.Logger
	now      func() time.Time
}

// Close drains pending audit events. It is safe to call more than once.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.audit.Close()
}

// AuditDropped returns the number of audit events discarded so far.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a copy of the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil {
		return NewMetrics(MetricsConfig{}).Snapshot()
	}
	return e.metrics.Snapshot()
}

// PolicyNames lists the registered policies.
func (e *Engine) PolicyNames() []string {
	if e == nil {
		return nil
	}
	return e.policies.Names()
}

func (e *Engine) metricInc(id MetricID) {
	e.metrics.Inc(id)
}

// Issue authenticates req against the credential store and returns a signed
// token carrying the account's claims.
//
// Missing input is rejected before the store is consulted. An unknown
// username yields ErrUserNotFound and a wrong password ErrInvalidCredentials;
// both match ErrUnauthenticated.
func (e *Engine) Issue(ctx context.Context, req IssueRequest) (*IssueResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	if strings.TrimSpace(req.Username) == "" {
		e.failIssue(ctx, "", "", MetricIssueMissingInput, ErrMissingUsername)
		return nil, ErrMissingUsername
	}
	if req.Password == "" {
		e.failIssue(ctx, req.Username, "", MetricIssueMissingInput, ErrMissingPassword)
		return nil, ErrMissingPassword
	}

	user, err := e.store.FindByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, credential.ErrUserNotFound) {
			e.failIssue(ctx, req.Username, "", MetricIssueUserNotFound, ErrUserNotFound)
			return nil, ErrUserNotFound
		}
		err = fmt.Errorf("%w: %w", ErrCredentialStore, err)
		e.failIssue(ctx, req.Username, "", MetricIssueFailure, err)
		return nil, err
	}

	ok, err := e.store.CheckPassword(ctx, user, req.Password)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrCredentialStore, err)
		e.failIssue(ctx, req.Username, user.ID, MetricIssueFailure, err)
		return nil, err
	}
	if !ok {
		e.failIssue(ctx, req.Username, user.ID, MetricIssueInvalidCredentials, ErrInvalidCredentials)
		return nil, ErrInvalidCredentials
	}

	roles, err := e.store.GetRoles(ctx, user)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrCredentialStore, err)
		e.failIssue(ctx, req.Username, user.ID, MetricIssueFailure, err)
		return nil, err
	}

	set, err := claims.Build(user, roles)
	if err != nil {
		e.failIssue(ctx, req.Username, user.ID, MetricIssueFailure, err)
		return nil, err
	}

	issued, err := e.tokens.Sign(set)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrConfiguration):
			err = fmt.Errorf("%w: %w", ErrConfiguration, err)
		case errors.Is(err, jwt.ErrInvalidClaims):
			err = fmt.Errorf("%w: %w", ErrInvalidUserState, err)
		}
		e.failIssue(ctx, req.Username, user.ID, MetricIssueFailure, err)
		return nil, err
	}

	e.metricInc(MetricIssueSuccess)
	e.emitAudit(ctx, AuditEventTokenIssued, true, req.Username, user.ID, "", nil, func() map[string]string {
		return map[string]string{
			"roles":      strings.Join(roles, ","),
			"expires_at": issued.ExpiresAt.UTC().Format(time.RFC3339),
		}
	})
	e.logger.InfoContext(ctx, "token issued",
		slog.String("user_id", user.ID),
		slog.Int("roles", len(roles)),
		slog.Time("expires_at", issued.ExpiresAt),
	)

	return &IssueResult{
		Token:     issued.Token,
		IssuedAt:  issued.IssuedAt,
		ExpiresAt: issued.ExpiresAt,
		Claims:    issued.Claims,
	}, nil
}

func (e *Engine) failIssue(ctx context.Context, subject, userID string, id MetricID, err error) {
	if id != MetricIssueFailure {
		e.metricInc(id)
	}
	e.metricInc(MetricIssueFailure)
	e.emitAudit(ctx, AuditEventTokenIssueFailed, false, subject, userID, "", err, nil)

	level := slog.LevelInfo
	if !errors.Is(err, ErrInvalidRequest) && !errors.Is(err, ErrUnauthenticated) {
		level = slog.LevelError
	}
	e.logger.Log(ctx, level, "token issue rejected",
		slog.String("reason", auditReason(err)),
		slog.String("user_id", userID),
		slog.Any("error", err),
	)
}

// Verify checks token and returns its claims. Failures match
// ErrUnauthenticated and one of ErrMissingToken, ErrInvalidSignature,
// ErrInvalidIssuerOrAudience, ErrTokenExpired or ErrMalformedToken.
func (e *Engine) Verify(ctx context.Context, token string) (claims.Set, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	if token == "" {
		e.metricInc(MetricVerifyMalformed)
		return nil, ErrMissingToken
	}

	var start time.Time
	if e.metrics.LatencyEnabled() {
		start = time.Now()
	}
	set, err := e.tokens.Verify(token)
	if e.metrics.LatencyEnabled() {
		e.metrics.Observe(MetricVerifyLatency, time.Since(start))
	}
	if err != nil {
		err = e.tokenError(err)
		e.logger.DebugContext(ctx, "token rejected", slog.String("reason", auditReason(err)))
		return nil, err
	}

	e.metricInc(MetricVerifySuccess)
	return set, nil
}

func (e *Engine) tokenError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrInvalidSignature):
		e.metricInc(MetricVerifyInvalidSignature)
		return fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	case errors.Is(err, jwt.ErrInvalidIssuerOrAudience):
		e.metricInc(MetricVerifyInvalidIssuerOrAudience)
		return fmt.Errorf("%w: %w", ErrInvalidIssuerOrAudience, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		e.metricInc(MetricVerifyExpired)
		return fmt.Errorf("%w: %w", ErrTokenExpired, err)
	default:
		e.metricInc(MetricVerifyMalformed)
		return fmt.Errorf("%w: %w", ErrMalformedToken, err)
	}
}

// ValidateRequirement reports whether r can ever be evaluated by this engine:
// a role requirement needs at least one role and a policy requirement a
// registered policy.
func (e *Engine) ValidateRequirement(r Requirement) error {
	if e == nil {
		return ErrEngineNotReady
	}
	switch r.kind {
	case requireAnyRole:
		if len(r.roles) == 0 {
			return fmt.Errorf("%w: role requirement lists no roles", ErrConfiguration)
		}
	case requirePolicy:
		if !e.policies.Has(r.policy) {
			return fmt.Errorf("%w: %q", ErrUnknownPolicy, r.policy)
		}
	}
	return nil
}

// Authorize verifies token and evaluates r against its claims.
//
// An unregistered policy is a server fault and yields ErrUnknownPolicy before
// the token is inspected. Token failures match ErrUnauthenticated; an unmet
// requirement yields ErrForbidden.
func (e *Engine) Authorize(ctx context.Context, token string, r Requirement) (*AuthResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	if err := e.ValidateRequirement(r); err != nil {
		if errors.Is(err, ErrUnknownPolicy) {
			e.metricInc(MetricUnknownPolicy)
		}
		e.logger.ErrorContext(ctx, "unusable requirement",
			slog.String("requirement", r.String()),
			slog.Any("error", err),
		)
		e.emitAudit(ctx, AuditEventAccessDenied, false, "", "", r.String(), err, nil)
		return nil, err
	}

	set, err := e.Verify(ctx, token)
	if err != nil {
		e.emitAudit(ctx, AuditEventAccessDenied, false, "", "", r.String(), err, nil)
		return nil, err
	}

	var satisfied bool
	switch r.kind {
	case requireAnyRole:
		satisfied = policy.HasAnyRole(set, r.roles...)
	case requirePolicy:
		if e.enricher != nil {
			set = e.enricher(set)
		}
		satisfied, err = e.policies.Satisfies(set, r.policy)
		if err != nil {
			e.metricInc(MetricUnknownPolicy)
			return nil, err
		}
	default:
		satisfied = true
	}

	result := newAuthResult(set)

	if !satisfied {
		e.metricInc(MetricAccessForbidden)
		e.emitAudit(ctx, AuditEventAccessDenied, false, result.Subject, result.UserID, r.String(), ErrForbidden, nil)
		e.logger.InfoContext(ctx, "access forbidden",
			slog.String("user_id", result.UserID),
			slog.String("requirement", r.String()),
		)
		return nil, ErrForbidden
	}

	e.metricInc(MetricAccessGranted)
	e.emitAudit(ctx, AuditEventAccessGranted, true, result.Subject, result.UserID, r.String(), nil, nil)

	return result, nil
}

// HasAnyRole reports whether set carries one of roles.
func (e *Engine) HasAnyRole(set claims.Set, roles ...string) bool {
	return policy.HasAnyRole(set, roles...)
}

// SatisfiesPolicy evaluates a registered policy against set without
// enrichment. Unregistered names return ErrUnknownPolicy.
func (e *Engine) SatisfiesPolicy(set claims.Set, name string) (bool, error) {
	if e == nil {
		return false, ErrEngineNotReady
	}
	ok, err := e.policies.Satisfies(set, name)
	if err != nil {
		e.metricInc(MetricUnknownPolicy)
	}
	return ok, err
}
