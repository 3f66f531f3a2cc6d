package jwt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/wordleapi/wordauth/claims"
)

var (
	// ErrConfiguration is returned when the manager lacks a setting needed for
	// the requested operation.
	ErrConfiguration = errors.New("token configuration error")
	// ErrInvalidClaims is returned by Sign when the claim set cannot be encoded.
	ErrInvalidClaims = errors.New("invalid claim set")
	// ErrInvalidSignature is returned when the HMAC does not match.
	ErrInvalidSignature = errors.New("invalid token signature")
	// ErrInvalidIssuerOrAudience is returned when iss or aud differ from configuration.
	ErrInvalidIssuerOrAudience = errors.New("invalid token issuer or audience")
	// ErrTokenExpired is returned at or after the exp instant.
	ErrTokenExpired = errors.New("token expired")
	// ErrMalformedToken is returned when the token is not a decodable three-part JWS.
	ErrMalformedToken = errors.New("malformed token")
)

// Config holds the signing secret and the expected issuer and audience.
//
// LifetimeMinutes may be zero on verify-only managers; Sign then fails with
// ErrConfiguration.
type Config struct {
	Secret          []byte
	Issuer          string
	Audience        string
	LifetimeMinutes int
	Now             func() time.Time
}

// Manager signs and verifies HS512 access tokens. It is immutable after
// NewManager and safe for concurrent use.
type Manager struct {
	config Config
	parser *jwt.Parser
}

// IssuedToken is the result of Sign.
type IssuedToken struct {
	Token     string
	Header    map[string]any
	Claims    claims.Set
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// accessClaims is the JSON payload. Optional custom claims are pointers so a
// present-but-empty value survives the round trip.
type accessClaims struct {
	UserID              string           `json:"userId"`
	UserName            string           `json:"userName"`
	MasterOfTheUniverse *string          `json:"masterOfTheUniverse,omitempty"`
	DateOfBirth         *string          `json:"dateOfBirth,omitempty"`
	Roles               jwt.ClaimStrings `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// NewManager validates cfg and returns a Manager.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.Secret) == 0 {
		return nil, fmt.Errorf("%w: secret is required", ErrConfiguration)
	}
	if len(cfg.Secret) < 64 {
		// HS512 keys shorter than the hash output weaken the MAC.
		return nil, fmt.Errorf("%w: secret must be at least 64 bytes for HS512", ErrConfiguration)
	}
	cfg.Issuer = strings.TrimSpace(cfg.Issuer)
	cfg.Audience = strings.TrimSpace(cfg.Audience)
	if cfg.Issuer == "" || cfg.Audience == "" {
		return nil, fmt.Errorf("%w: issuer and audience are required", ErrConfiguration)
	}
	if cfg.LifetimeMinutes < 0 {
		return nil, fmt.Errorf("%w: lifetime must not be negative", ErrConfiguration)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	cfg.Secret = append([]byte(nil), cfg.Secret...)

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithAudience(cfg.Audience),
		jwt.WithExpirationRequired(),
		// Signature bits past the last full byte must be zero, so every
		// encoding of the MAC is unique.
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(cfg.Now),
	)

	return &Manager{config: cfg, parser: parser}, nil
}

// Sign serializes set into a compact HS512 JWT that expires LifetimeMinutes
// after the current time.
//
// The set must carry non-empty sub, jti, userId and userName claims. Only the
// claim types produced by claims.Build are accepted.
func (m *Manager) Sign(set claims.Set) (IssuedToken, error) {
	if m.config.LifetimeMinutes <= 0 {
		return IssuedToken{}, fmt.Errorf("%w: lifetime minutes must be positive", ErrConfiguration)
	}

	payload, err := encodeClaims(set)
	if err != nil {
		return IssuedToken{}, err
	}

	issuedAt := m.config.Now().Truncate(time.Second)
	expiresAt := issuedAt.Add(time.Duration(m.config.LifetimeMinutes) * time.Minute)

	payload.Issuer = m.config.Issuer
	payload.Audience = jwt.ClaimStrings{m.config.Audience}
	payload.IssuedAt = jwt.NewNumericDate(issuedAt)
	payload.ExpiresAt = jwt.NewNumericDate(expiresAt)

	token := jwt.NewWithClaims(jwt.SigningMethodHS512, payload)
	signed, err := token.SignedString(m.config.Secret)
	if err != nil {
		return IssuedToken{}, fmt.Errorf("sign token: %w", err)
	}

	header := make(map[string]any, len(token.Header))
	for k, v := range token.Header {
		header[k] = v
	}

	return IssuedToken{
		Token:     signed,
		Header:    header,
		Claims:    decodeClaims(payload),
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}, nil
}

// Verify checks signature, issuer, audience and expiry, then returns the
// embedded claim set. The MAC is checked over everything before the last "."
// before any segment is counted or decoded, so a changed byte anywhere in the
// header or payload reports ErrInvalidSignature. The aud claim must hold exactly
// the configured audience.
func (m *Manager) Verify(tokenText string) (claims.Set, error) {
	dot := strings.LastIndexByte(tokenText, '.')
	if dot < 0 {
		return nil, ErrMalformedToken
	}
	signingInput := tokenText[:dot]

	sig, err := m.parser.DecodeSegment(tokenText[dot+1:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if err := jwt.SigningMethodHS512.Verify(signingInput, sig, m.config.Secret); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if strings.Count(signingInput, ".") != 1 {
		return nil, ErrMalformedToken
	}

	payload := &accessClaims{}
	_, err = m.parser.ParseWithClaims(tokenText, payload, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS512.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return m.config.Secret, nil
	})
	if err != nil {
		return nil, classify(err)
	}

	// The parser accepts any aud list that contains the audience.
	if len(payload.Audience) != 1 || payload.Audience[0] != m.config.Audience {
		return nil, fmt.Errorf("%w: aud must be exactly %q", ErrInvalidIssuerOrAudience, m.config.Audience)
	}

	if payload.Subject == "" || payload.ID == "" || payload.UserID == "" || payload.UserName == "" {
		return nil, fmt.Errorf("%w: missing identity claims", ErrMalformedToken)
	}

	return decodeClaims(payload), nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	case errors.Is(err, jwt.ErrTokenInvalidIssuer), errors.Is(err, jwt.ErrTokenInvalidAudience):
		return fmt.Errorf("%w: %v", ErrInvalidIssuerOrAudience, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrTokenExpired, err)
	default:
		return fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
}

func encodeClaims(set claims.Set) (*accessClaims, error) {
	out := &accessClaims{}
	seen := make(map[string]bool, 6)

	for _, c := range set {
		if c.Type != claims.TypeRole {
			if seen[c.Type] {
				return nil, fmt.Errorf("%w: duplicate %q claim", ErrInvalidClaims, c.Type)
			}
			seen[c.Type] = true
		}

		switch c.Type {
		case claims.TypeSubject:
			out.Subject = c.Value
		case claims.TypeTokenID:
			out.ID = c.Value
		case claims.TypeUserID:
			out.UserID = c.Value
		case claims.TypeUserName:
			out.UserName = c.Value
		case claims.TypeMasterOfTheUniverse:
			v := c.Value
			out.MasterOfTheUniverse = &v
		case claims.TypeDateOfBirth:
			v := c.Value
			out.DateOfBirth = &v
		case claims.TypeRole:
			out.Roles = append(out.Roles, c.Value)
		default:
			return nil, fmt.Errorf("%w: unsupported claim type %q", ErrInvalidClaims, c.Type)
		}
	}

	if out.Subject == "" || out.ID == "" || out.UserID == "" || out.UserName == "" {
		return nil, fmt.Errorf("%w: sub, jti, userId and userName are required", ErrInvalidClaims)
	}

	return out, nil
}

// decodeClaims rebuilds the set in claims.Build order.
func decodeClaims(p *accessClaims) claims.Set {
	set := make(claims.Set, 0, 6+len(p.Roles))
	set = append(set,
		claims.Claim{Type: claims.TypeSubject, Value: p.Subject},
		claims.Claim{Type: claims.TypeTokenID, Value: p.ID},
		claims.Claim{Type: claims.TypeUserID, Value: p.UserID},
		claims.Claim{Type: claims.TypeUserName, Value: p.UserName},
	)
	if p.MasterOfTheUniverse != nil {
		set = append(set, claims.Claim{Type: claims.TypeMasterOfTheUniverse, Value: *p.MasterOfTheUniverse})
	}
	if p.DateOfBirth != nil {
		set = append(set, claims.Claim{Type: claims.TypeDateOfBirth, Value: *p.DateOfBirth})
	}
	for _, role := range p.Roles {
		set = append(set, claims.Claim{Type: claims.TypeRole, Value: role})
	}
	return set
}
