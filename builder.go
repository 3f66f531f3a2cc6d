package wordauth

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/wordleapi/wordauth/credential"
	"github.com/wordleapi/wordauth/internal/audit"
	"github.com/wordleapi/wordauth/jwt"
	"github.com/wordleapi/wordauth/policy"
)

// Builder assembles an Engine. A Builder may be used for one Build only.
type Builder struct {
	config Config
	store  credential.Store

	policies map[string]policy.Predicate
	enricher policy.Enricher

	auditSink AuditSink
	logger    *slog.Logger
	now       func() time.Time

	built bool
}

// New returns a Builder seeded with DefaultConfig and the built-in policies.
func New() *Builder {
	return &Builder{
		config:   DefaultConfig(),
		policies: policy.Builtins(),
		enricher: policy.RandomEnricher(nil),
	}
}

// WithConfig replaces the configuration. cfg is cloned.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithCredentialStore sets the store consulted on the issue path. Required.
func (b *Builder) WithCredentialStore(store credential.Store) *Builder {
	b.store = store
	return b
}

// WithPolicy registers or replaces a named policy.
func (b *Builder) WithPolicy(name string, pred policy.Predicate) *Builder {
	if b.policies == nil {
		b.policies = make(map[string]policy.Predicate)
	}
	b.policies[name] = pred
	return b
}

// WithPolicies replaces the whole policy set, including the built-ins.
func (b *Builder) WithPolicies(policies map[string]policy.Predicate) *Builder {
	b.policies = make(map[string]policy.Predicate, len(policies))
	for name, pred := range policies {
		b.policies[name] = pred
	}
	return b
}

// WithEnricher sets the request-time claim enricher run before policy
// evaluation. The default appends the random claim RandomAdmin reads; nil
// disables enrichment.
func (b *Builder) WithEnricher(enricher policy.Enricher) *Builder {
	b.enricher = enricher
	return b
}

// WithAuditSink sets where audit events go when Config.Audit.Enabled is true.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the structured logger. The default discards output.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock overrides time.Now for token timestamps and expiry checks.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithMetricsEnabled toggles in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration and returns a ready Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.store == nil {
		return nil, fmt.Errorf("%w: credential store required", ErrConfiguration)
	}

	registry, err := policy.NewRegistry(b.policies)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	now := b.now
	if now == nil {
		now = time.Now
	}

	logger := b.logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	tokens, err := jwt.NewManager(jwt.Config{
		Secret:          cloneBytes(cfg.JWT.Secret),
		Issuer:          cfg.JWT.Issuer,
		Audience:        cfg.JWT.Audience,
		LifetimeMinutes: cfg.JWT.ExpirationInMinutes,
		Now:             now,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	engine := &Engine{
		config:   cfg,
		store:    b.store,
		tokens:   tokens,
		policies: registry,
		enricher: b.enricher,
		logger:   logger,
		now:      now,
	}
	if cfg.Audit.Enabled {
		overflow := audit.Block
		if cfg.Audit.DropIfFull {
			overflow = audit.Drop
		}
		engine.audit = audit.NewDispatcher(audit.Config{
			BufferSize: cfg.Audit.BufferSize,
			Overflow:   overflow,
			Classify:   auditReason,
		}, b.auditSink)
	}
	engine.metrics = NewMetrics(cfg.Metrics)

	logger.Info("auth engine ready",
		slog.Any("jwt", cfg.JWT),
		slog.Any("policies", registry.Names()),
		slog.Bool("audit", cfg.Audit.Enabled),
		slog.Bool("metrics", cfg.Metrics.Enabled),
	)

	b.built = true

	return engine, nil
}
