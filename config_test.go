package authcore

import (
	"testing"
	"time"
)

func validConfig() Config {
	cfg := defaultConfig()
	cfg.JWT.Secret = []byte("0123456789abcdef0123456789abcdef")
	return cfg
}

func TestConfigValidate_AcceptsDefaults(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestConfigValidate_Rejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"short secret", func(c *Config) { c.JWT.Secret = []byte("short") }},
		{"no secret", func(c *Config) { c.JWT.Secret = nil }},
		{"refresh not above access", func(c *Config) { c.JWT.RefreshTTL = c.JWT.AccessTTL }},
		{"negative attempt limit", func(c *Config) { c.Guard.AttemptLimit = -1 }},
		{"tiny lockout", func(c *Config) { c.Guard.LockoutDuration = time.Millisecond }},
		{"tiny reset ttl", func(c *Config) { c.PasswordReset.TokenTTL = time.Second }},
		{"passphrase below minimum", func(c *Config) {
			c.PasswordReset.MinLength = 20
			c.PasswordReset.PassphraseLength = 16
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestApplyDefaults_PreservesExplicitValues(t *testing.T) {
	cfg := Config{}
	cfg.JWT.Secret = []byte("0123456789abcdef0123456789abcdef")
	cfg.Guard.AttemptLimit = 10

	cfg.applyDefaults()

	if cfg.Guard.AttemptLimit != 10 {
		t.Fatalf("explicit attempt limit overwritten: %d", cfg.Guard.AttemptLimit)
	}
	if cfg.JWT.AccessTTL != 15*time.Minute {
		t.Fatalf("access TTL default missing: %v", cfg.JWT.AccessTTL)
	}
	if cfg.JWT.RefreshTTL != 15*24*time.Hour {
		t.Fatalf("refresh TTL default missing: %v", cfg.JWT.RefreshTTL)
	}
	if cfg.PasswordReset.MinLength != 10 || cfg.PasswordReset.PassphraseLength != 16 {
		t.Fatalf("reset policy defaults missing: %+v", cfg.PasswordReset)
	}
	if cfg.Audit.BufferSize == 0 {
		t.Fatal("audit defaults missing")
	}

	// Sizing the audit buffer must still pull the remaining audit defaults.
	sized := Config{Audit: AuditConfig{BufferSize: 8}}
	sized.applyDefaults()
	if sized.Audit.BufferSize != 8 {
		t.Fatalf("explicit audit buffer overwritten: %d", sized.Audit.BufferSize)
	}
	if sized.Audit.DrainTimeout == 0 {
		t.Fatal("drain timeout default missing with explicit buffer size")
	}
	if sized.Audit.BlockWhenFull {
		t.Fatal("audit must stay non-blocking unless explicitly enabled")
	}
}

func TestBuilder_RequiresDependencies(t *testing.T) {
	if _, err := New().Build(); err == nil {
		t.Fatal("Build without redis must fail")
	}

	_, rdb := newTestRedis(t)
	if _, err := New().WithRedis(rdb).Build(); err == nil {
		t.Fatal("Build without credential store must fail")
	}

	if _, err := New().
		WithRedis(rdb).
		WithCredentialStore(newMemoryCredentialStore()).
		Build(); err == nil {
		t.Fatal("Build without secret must fail")
	}
}

func TestBuilder_SingleUse(t *testing.T) {
	_, rdb := newTestRedis(t)

	b := New().
		WithSecret([]byte("0123456789abcdef0123456789abcdef")).
		WithRedis(rdb).
		WithCredentialStore(newMemoryCredentialStore())

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	if _, err := b.Build(); err == nil {
		t.Fatal("second Build on the same builder must fail")
	}
}
