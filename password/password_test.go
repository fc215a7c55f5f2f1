package password

import (
	"errors"
	"strings"
	"testing"
)

func fastParams() Params {
	// Minimum legal costs keep the test suite quick.
	return Params{
		MemoryKB:    8 * 1024,
		Iterations:  1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   16,
	}
}

func TestHashVerifyRoundTrip(t *testing.T) {
	h, err := NewHasher(fastParams())
	if err != nil {
		t.Fatalf("hasher init failed: %v", err)
	}

	encoded, err := h.Hash("correct-horse-battery")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	if !strings.HasPrefix(encoded, "$argon2id$") {
		t.Fatalf("unexpected hash format: %q", encoded)
	}

	ok, err := h.Verify("correct-horse-battery", encoded)
	if err != nil || !ok {
		t.Fatalf("verify of correct secret: ok=%v err=%v", ok, err)
	}

	ok, err = h.Verify("wrong-secret", encoded)
	if err != nil {
		t.Fatalf("verify of wrong secret errored: %v", err)
	}
	if ok {
		t.Fatal("wrong secret verified")
	}
}

func TestHashIsSalted(t *testing.T) {
	h, err := NewHasher(fastParams())
	if err != nil {
		t.Fatalf("hasher init failed: %v", err)
	}

	a, err := h.Hash("same-secret-here")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	b, err := h.Hash("same-secret-here")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	if a == b {
		t.Fatal("two hashes of the same secret must differ")
	}
}

func TestVerifyUsesEmbeddedParams(t *testing.T) {
	weak, err := NewHasher(fastParams())
	if err != nil {
		t.Fatalf("hasher init failed: %v", err)
	}
	encoded, err := weak.Hash("portable-secret-1")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}

	strong, err := NewHasher(DefaultParams())
	if err != nil {
		t.Fatalf("hasher init failed: %v", err)
	}
	ok, err := strong.Verify("portable-secret-1", encoded)
	if err != nil || !ok {
		t.Fatalf("hash from other params did not verify: ok=%v err=%v", ok, err)
	}
}

func TestVerifyRejectsMalformedHash(t *testing.T) {
	h, err := NewHasher(fastParams())
	if err != nil {
		t.Fatalf("hasher init failed: %v", err)
	}

	for _, encoded := range []string{
		"",
		"plaintext",
		"$bcrypt$v=19$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$a2V5a2V5a2V5a2V5a2V5",
		"$argon2id$v=19$m=0,t=0,p=0$c2FsdA$a2V5",
		"$argon2id$v=19$m=8192,t=1,p=1$!!!$a2V5",
	} {
		if _, err := h.Verify("whatever", encoded); !errors.Is(err, ErrHashMalformed) {
			t.Fatalf("hash %q: expected ErrHashMalformed, got %v", encoded, err)
		}
	}
}

func TestNewHasherRejectsWeakParams(t *testing.T) {
	cases := map[string]func(*Params){
		"low memory":      func(p *Params) { p.MemoryKB = 1024 },
		"zero iterations": func(p *Params) { p.Iterations = 0 },
		"zero lanes":      func(p *Params) { p.Parallelism = 0 },
		"short salt":      func(p *Params) { p.SaltLength = 8 },
		"short key":       func(p *Params) { p.KeyLength = 8 },
	}

	for name, mutate := range cases {
		p := fastParams()
		mutate(&p)
		if _, err := NewHasher(p); err == nil {
			t.Fatalf("%s: expected rejection", name)
		}
	}
}
