package jwt

import (
	"errors"
	"strings"
	"testing"
	"time"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newTestManager(t *testing.T, mutate func(*Config)) *Manager {
	t.Helper()

	cfg := Config{
		Secret:     testSecret,
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 24 * time.Hour,
		Issuer:     "test",
	}
	if mutate != nil {
		mutate(&cfg)
	}

	m, err := NewManager(cfg)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	return m
}

func TestNewManager_RejectsBadConfig(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
	}{
		{"short secret", Config{Secret: []byte("short"), AccessTTL: time.Minute, RefreshTTL: time.Hour}},
		{"no access ttl", Config{Secret: testSecret, RefreshTTL: time.Hour}},
		{"refresh not above access", Config{Secret: testSecret, AccessTTL: time.Hour, RefreshTTL: time.Hour}},
		{"huge leeway", Config{Secret: testSecret, AccessTTL: time.Minute, RefreshTTL: time.Hour, Leeway: time.Hour}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewManager(tc.cfg); err == nil {
				t.Fatal("expected config rejection")
			}
		})
	}
}

func TestIssueParse_Roundtrip(t *testing.T) {
	m := newTestManager(t, nil)

	for _, typ := range []TokenType{TypeAccess, TypeRefresh} {
		token, claims, err := m.Issue("u1", typ)
		if err != nil {
			t.Fatalf("Issue(%s) failed: %v", typ, err)
		}
		if claims.JTI() == "" {
			t.Fatalf("Issue(%s): empty jti", typ)
		}

		parsed, err := m.Parse(token, typ)
		if err != nil {
			t.Fatalf("Parse(%s) failed: %v", typ, err)
		}
		if parsed.Subject != "u1" {
			t.Fatalf("subject: got %q", parsed.Subject)
		}
		if parsed.JTI() != claims.JTI() {
			t.Fatalf("jti mismatch: %q vs %q", parsed.JTI(), claims.JTI())
		}
		if parsed.Type != typ {
			t.Fatalf("type: got %q, want %q", parsed.Type, typ)
		}
	}
}

func TestIssue_UniqueJTIs(t *testing.T) {
	m := newTestManager(t, nil)

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		_, claims, err := m.Issue("u1", TypeAccess)
		if err != nil {
			t.Fatalf("Issue failed: %v", err)
		}
		if seen[claims.JTI()] {
			t.Fatalf("duplicate jti %q", claims.JTI())
		}
		seen[claims.JTI()] = true
	}
}

func TestIssue_LifetimesPerType(t *testing.T) {
	m := newTestManager(t, nil)

	_, access, err := m.Issue("u1", TypeAccess)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	_, refresh, err := m.Issue("u1", TypeRefresh)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	if !refresh.Expiry().After(access.Expiry()) {
		t.Fatal("refresh token must outlive access token")
	}
}

func TestParse_WrongTypeRejected(t *testing.T) {
	m := newTestManager(t, nil)

	token, _, err := m.Issue("u1", TypeAccess)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	if _, err := m.Parse(token, TypeRefresh); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestParse_TamperedSignatureRejected(t *testing.T) {
	m := newTestManager(t, nil)

	token, _, err := m.Issue("u1", TypeAccess)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape: %d parts", len(parts))
	}
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))

	if _, err := m.Parse(tampered, TypeAccess); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestParse_ForeignKeyRejected(t *testing.T) {
	m := newTestManager(t, nil)
	other := newTestManager(t, func(cfg *Config) {
		cfg.Secret = []byte("ffffffffffffffffffffffffffffffff")
	})

	token, _, err := other.Issue("u1", TypeAccess)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	if _, err := m.Parse(token, TypeAccess); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestParse_ExpiredRejected(t *testing.T) {
	m := newTestManager(t, func(cfg *Config) {
		cfg.AccessTTL = time.Nanosecond
	})

	token, _, err := m.Issue("u1", TypeAccess)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	time.Sleep(10 * time.Millisecond)

	if _, err := m.Parse(token, TypeAccess); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestParse_GarbageRejected(t *testing.T) {
	m := newTestManager(t, nil)

	for _, input := range []string{"", "x", "a.b.c", "Bearer whatever"} {
		if _, err := m.Parse(input, TypeAccess); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("Parse(%q): expected ErrInvalidToken, got %v", input, err)
		}
	}
}
