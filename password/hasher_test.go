package password

import (
	"errors"
	"strings"
	"testing"
)

func testParams() Params {
	return Params{
		MemoryKB:    8192,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func TestNewHasher_FillsDefaults(t *testing.T) {
	h, err := NewHasher(Params{})
	if err != nil {
		t.Fatalf("NewHasher with zero params failed: %v", err)
	}

	hash, err := h.Hash("some password")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$") {
		t.Fatalf("expected argon2id PHC string, got %q", hash)
	}
}

func TestNewHasher_RejectsWeakParams(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Params)
	}{
		{"low memory", func(p *Params) { p.MemoryKB = 1024 }},
		{"short salt", func(p *Params) { p.SaltLength = 8 }},
		{"short key", func(p *Params) { p.KeyLength = 8 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := testParams()
			tc.mutate(&p)
			if _, err := NewHasher(p); err == nil {
				t.Fatal("expected parameter rejection")
			}
		})
	}
}

func TestHashVerify_Roundtrip(t *testing.T) {
	h, err := NewHasher(testParams())
	if err != nil {
		t.Fatalf("NewHasher failed: %v", err)
	}

	hash, err := h.Hash("correct horse battery staple")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}

	ok, err := h.Verify("correct horse battery staple", hash)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if !ok {
		t.Fatal("correct password must verify")
	}

	ok, err = h.Verify("wrong password", hash)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if ok {
		t.Fatal("wrong password must not verify")
	}
}

func TestHash_SaltsDiffer(t *testing.T) {
	h, err := NewHasher(testParams())
	if err != nil {
		t.Fatalf("NewHasher failed: %v", err)
	}

	a, err := h.Hash("same password")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	b, err := h.Hash("same password")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if a == b {
		t.Fatal("two hashes of the same password must differ")
	}
}

func TestVerify_ParamsFromHashNotHasher(t *testing.T) {
	// A hash minted with one parameter set must verify through a hasher
	// configured with another, so parameter upgrades never lock users out.
	old, err := NewHasher(testParams())
	if err != nil {
		t.Fatalf("NewHasher failed: %v", err)
	}
	hash, err := old.Hash("correct horse battery staple")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}

	upgraded, err := NewHasher(Params{})
	if err != nil {
		t.Fatalf("NewHasher failed: %v", err)
	}
	ok, err := upgraded.Verify("correct horse battery staple", hash)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if !ok {
		t.Fatal("hash must verify under a hasher with different params")
	}
}

func TestVerify_MalformedHash(t *testing.T) {
	h, err := NewHasher(testParams())
	if err != nil {
		t.Fatalf("NewHasher failed: %v", err)
	}

	for _, bad := range []string{
		"",
		"plaintext",
		"$argon2id$v=19$garbage",
		"$bcrypt$whatever",
	} {
		if _, err := h.Verify("password", bad); !errors.Is(err, ErrMalformedHash) {
			t.Fatalf("Verify(%q): expected ErrMalformedHash, got %v", bad, err)
		}
	}
}
