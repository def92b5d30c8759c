package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenType discriminates access tokens from refresh tokens inside the
// signed claims. Verification rejects a token presented as the wrong type.
type TokenType string

const (
	// TypeAccess marks short-lived tokens accepted by resource endpoints.
	TypeAccess TokenType = "access"
	// TypeRefresh marks long-lived tokens accepted only by the refresh flow.
	TypeRefresh TokenType = "refresh"
)

// ErrInvalidToken covers bad signatures, malformed structure, wrong token
// type, missing subject, and expiry in the past. Callers get no finer
// distinction: the failure reason must not leak to the presenter.
var ErrInvalidToken = errors.New("invalid token")

// Config holds the process-wide signing configuration. The secret and TTLs
// are fixed at construction; there is no per-call key selection.
type Config struct {
	Secret     []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Issuer     string
	Leeway     time.Duration
}

// Claims is the payload carried by both token types.
type Claims struct {
	Type TokenType `json:"type"`
	jwt.RegisteredClaims
}

// JTI returns the unique token identifier used for rotation tracking.
func (c *Claims) JTI() string {
	return c.ID
}

// Expiry returns the token expiry instant.
func (c *Claims) Expiry() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// Manager signs and verifies claims tokens with a single HMAC-SHA256 key.
// It is stateless and safe for concurrent use.
type Manager struct {
	config Config
}

// NewManager validates cfg and returns a ready Manager.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.Secret) < 32 {
		return nil, errors.New("signing secret must be at least 32 bytes")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.RefreshTTL <= cfg.AccessTTL {
		return nil, errors.New("refresh TTL must exceed access TTL")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}

	return &Manager{config: cfg}, nil
}

// Issue creates a signed token for subject with a fresh random jti.
// Issued-at is now; expiry is now plus the TTL configured for typ.
func (m *Manager) Issue(subject string, typ TokenType) (string, *Claims, error) {
	if subject == "" {
		return "", nil, errors.New("subject required")
	}

	var ttl time.Duration
	switch typ {
	case TypeAccess:
		ttl = m.config.AccessTTL
	case TypeRefresh:
		ttl = m.config.RefreshTTL
	default:
		return "", nil, fmt.Errorf("unsupported token type %q", typ)
	}

	now := time.Now()
	claims := &Claims{
		Type: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    m.config.Issuer,
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.config.Secret)
	if err != nil {
		return "", nil, err
	}

	return token, claims, nil
}

// Parse verifies signature and expiry and enforces that the token carries
// the expected type and a non-empty subject. Every failure is ErrInvalidToken.
func (m *Manager) Parse(tokenStr string, expected TokenType) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return m.config.Secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Type != expected {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" || claims.ID == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
