package authcore

import (
	"errors"
	"time"

	"github.com/careerpilot/authcore/password"
)

// Config is the engine configuration. Zero-value sections are filled in by
// defaults; Validate runs during Build.
type Config struct {
	JWT           JWTConfig
	Guard         GuardConfig
	PasswordReset PasswordResetConfig
	Password      password.Params
	Audit         AuditConfig
}

// JWTConfig fixes the process-wide signing key and token lifetimes.
type JWTConfig struct {
	Secret     []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Issuer     string
	Leeway     time.Duration
}

// GuardConfig tunes the brute-force login guard.
type GuardConfig struct {
	// AttemptLimit is the failure count at which an identifier is locked
	// out: the AttemptLimit-th failure within the window sets the marker.
	AttemptLimit int
	// LockoutDuration is both the sliding counter window and the lifetime
	// of a lockout marker once set.
	LockoutDuration time.Duration
	// FailClosed makes guard-store failures deny logins instead of
	// degrading to unlimited attempts. Default false: a Redis outage
	// disables rate limiting rather than all authentication.
	FailClosed bool
}

// PasswordResetConfig tunes the single-use reset token flow.
type PasswordResetConfig struct {
	// TokenTTL is both the reset token lifetime and the request
	// rate-limiting window.
	TokenTTL time.Duration
	// RequestLimit caps reset requests per hashed email and per IP within
	// the window.
	RequestLimit int
	// MinLength is the minimum password length when composition rules
	// apply.
	MinLength int
	// PassphraseLength is the length at or above which composition rules
	// are waived.
	PassphraseLength int
}

// AuditConfig tunes the asynchronous audit dispatcher.
type AuditConfig struct {
	// BufferSize is the in-flight event queue length.
	BufferSize int
	// BlockWhenFull applies backpressure to the emitting operation when
	// the queue is saturated, bounded by the caller's context. Audit is
	// best-effort, so the zero value drops overflow instead: an auth
	// operation never waits on a slow sink unless explicitly asked to.
	BlockWhenFull bool
	// DrainTimeout bounds how long Close waits for queued events to
	// flush through the sink before giving up on it.
	DrainTimeout time.Duration
}

func defaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 15 * 24 * time.Hour,
		},
		Guard: GuardConfig{
			AttemptLimit:    5,
			LockoutDuration: 15 * time.Minute,
		},
		PasswordReset: PasswordResetConfig{
			TokenTTL:         30 * time.Minute,
			RequestLimit:     5,
			MinLength:        10,
			PassphraseLength: 16,
		},
		Audit: AuditConfig{
			BufferSize:   256,
			DrainTimeout: 5 * time.Second,
		},
	}
}

func (c *Config) applyDefaults() {
	def := defaultConfig()
	if c.JWT.AccessTTL == 0 {
		c.JWT.AccessTTL = def.JWT.AccessTTL
	}
	if c.JWT.RefreshTTL == 0 {
		c.JWT.RefreshTTL = def.JWT.RefreshTTL
	}
	if c.Guard.AttemptLimit == 0 {
		c.Guard.AttemptLimit = def.Guard.AttemptLimit
	}
	if c.Guard.LockoutDuration == 0 {
		c.Guard.LockoutDuration = def.Guard.LockoutDuration
	}
	if c.PasswordReset.TokenTTL == 0 {
		c.PasswordReset.TokenTTL = def.PasswordReset.TokenTTL
	}
	if c.PasswordReset.RequestLimit == 0 {
		c.PasswordReset.RequestLimit = def.PasswordReset.RequestLimit
	}
	if c.PasswordReset.MinLength == 0 {
		c.PasswordReset.MinLength = def.PasswordReset.MinLength
	}
	if c.PasswordReset.PassphraseLength == 0 {
		c.PasswordReset.PassphraseLength = def.PasswordReset.PassphraseLength
	}
	if c.Audit.BufferSize == 0 {
		c.Audit.BufferSize = def.Audit.BufferSize
	}
	if c.Audit.DrainTimeout == 0 {
		c.Audit.DrainTimeout = def.Audit.DrainTimeout
	}
}

// Validate rejects configurations the engine cannot run safely with.
func (c *Config) Validate() error {
	if len(c.JWT.Secret) < 32 {
		return errors.New("JWT secret must be at least 32 bytes")
	}
	if c.JWT.AccessTTL <= 0 || c.JWT.RefreshTTL <= c.JWT.AccessTTL {
		return errors.New("refresh TTL must exceed access TTL")
	}
	if c.Guard.AttemptLimit < 1 {
		return errors.New("guard attempt limit must be >= 1")
	}
	if c.Guard.LockoutDuration < time.Second {
		return errors.New("guard lockout duration must be >= 1s")
	}
	if c.PasswordReset.TokenTTL < time.Minute {
		return errors.New("reset token TTL must be >= 1m")
	}
	if c.PasswordReset.RequestLimit < 1 {
		return errors.New("reset request limit must be >= 1")
	}
	if c.PasswordReset.PassphraseLength < c.PasswordReset.MinLength {
		return errors.New("passphrase length must be >= minimum password length")
	}
	return nil
}
