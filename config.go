package wordauth

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/wordleapi/wordauth/password"
)

// Config is the engine configuration. The Builder clones it, so later
// mutation by the caller has no effect on a built Engine.
type Config struct {
	JWT      JWTConfig
	Password PasswordConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig holds the token signing settings. Secret must be at least 64
// bytes for HS512.
type JWTConfig struct {
	Secret              []byte
	Issuer              string
	Audience            string
	ExpirationInMinutes int
}

// LogValue implements slog.LogValuer. The secret is never rendered.
func (c JWTConfig) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("issuer", c.Issuer),
		slog.String("audience", c.Audience),
		slog.Int("expiration_in_minutes", c.ExpirationInMinutes),
		slog.String("secret", redact(c.Secret)),
	)
}

func (c JWTConfig) String() string {
	return fmt.Sprintf("JWTConfig{Issuer:%q Audience:%q ExpirationInMinutes:%d Secret:%s}",
		c.Issuer, c.Audience, c.ExpirationInMinutes, redact(c.Secret))
}

func redact(secret []byte) string {
	if len(secret) == 0 {
		return "<unset>"
	}
	return fmt.Sprintf("<redacted:%d bytes>", len(secret))
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig carries the Argon2id parameters used by credential stores.
type PasswordConfig struct {
	Memory           uint32
	Time             uint32
	Parallelism      uint8
	SaltLength       uint32
	KeyLength        uint32
	MinPasswordBytes int
	MaxPasswordBytes int
}

// NewHasher builds a password.Hasher from c.
func (c PasswordConfig) NewHasher() (*password.Hasher, error) {
	return password.NewHasher(password.Config{
		Memory:           c.Memory,
		Time:             c.Time,
		Parallelism:      c.Parallelism,
		SaltLength:       c.SaltLength,
		KeyLength:        c.KeyLength,
		MinPasswordBytes: c.MinPasswordBytes,
		MaxPasswordBytes: c.MaxPasswordBytes,
	})
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the baseline configuration. The JWT section has no
// usable default: secret, issuer, audience and lifetime must all be set.
func DefaultConfig() Config {
	pw := password.DefaultConfig()
	return Config{
		Password: PasswordConfig{
			Memory:           pw.Memory,
			Time:             pw.Time,
			Parallelism:      pw.Parallelism,
			SaltLength:       pw.SaltLength,
			KeyLength:        pw.KeyLength,
			MinPasswordBytes: password.DefaultMinPasswordBytes,
			MaxPasswordBytes: password.DefaultMaxPasswordBytes,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
	}
}

func cloneConfig(c Config) Config {
	out := c
	out.JWT.Secret = cloneBytes(c.JWT.Secret)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Validate reports the first invalid setting, wrapped in ErrConfiguration.
func (c *Config) Validate() error {
	if err := c.validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	return nil
}

func (c *Config) validate() error {
	// JWT
	if len(c.JWT.Secret) == 0 {
		return errors.New("JWT Secret is required")
	}
	if len(c.JWT.Secret) < 64 {
		return errors.New("JWT Secret must be at least 64 bytes for HS512")
	}
	if strings.TrimSpace(c.JWT.Issuer) == "" {
		return errors.New("JWT Issuer is required")
	}
	if strings.TrimSpace(c.JWT.Audience) == "" {
		return errors.New("JWT Audience is required")
	}
	if c.JWT.ExpirationInMinutes <= 0 {
		return errors.New("JWT ExpirationInMinutes must be > 0")
	}

	// Password
	if _, err := c.Password.NewHasher(); err != nil {
		return err
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0")
	}

	return nil
}
