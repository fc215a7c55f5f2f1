// Package password hashes and verifies account secrets with argon2id, encoded
// in the standard PHC string format so parameters travel with each hash.
package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/argon2"
)

const phcAlgorithm = "argon2id"

// ErrHashMalformed is returned when a stored hash cannot be parsed.
var ErrHashMalformed = errors.New("malformed password hash")

// Params are the argon2id cost parameters. Zero values fall back to the
// package defaults via DefaultParams.
type Params struct {
	MemoryKB    uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultParams returns interactive-login cost parameters.
func DefaultParams() Params {
	return Params{
		MemoryKB:    64 * 1024,
		Iterations:  2,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// Hasher derives and verifies argon2id hashes with fixed parameters.
type Hasher struct {
	params Params
}

// NewHasher validates params and returns a Hasher.
func NewHasher(params Params) (*Hasher, error) {
	if params == (Params{}) {
		params = DefaultParams()
	}
	if params.MemoryKB < 8*1024 {
		return nil, errors.New("argon2 memory below 8 MiB")
	}
	if params.Iterations < 1 {
		return nil, errors.New("argon2 iterations below 1")
	}
	if params.Parallelism < 1 {
		return nil, errors.New("argon2 parallelism below 1")
	}
	if params.SaltLength < 16 || params.KeyLength < 16 {
		return nil, errors.New("argon2 salt and key must be at least 16 bytes")
	}
	return &Hasher{params: params}, nil
}

// Hash derives a fresh salted hash for the secret.
func (h *Hasher) Hash(secret string) (string, error) {
	salt := make([]byte, h.params.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}

	key := argon2.IDKey(
		[]byte(secret),
		salt,
		h.params.Iterations,
		h.params.MemoryKB,
		h.params.Parallelism,
		h.params.KeyLength,
	)

	return fmt.Sprintf(
		"$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		phcAlgorithm,
		argon2.Version,
		h.params.MemoryKB,
		h.params.Iterations,
		h.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether secret matches the encoded hash. The comparison is
// constant time; parameters come from the hash itself, so old hashes verify
// even after the configured costs change.
func (h *Hasher) Verify(secret, encoded string) (bool, error) {
	params, salt, want, err := decodePHC(encoded)
	if err != nil {
		return false, err
	}

	got := argon2.IDKey(
		[]byte(secret),
		salt,
		params.Iterations,
		params.MemoryKB,
		params.Parallelism,
		uint32(len(want)),
	)

	return subtle.ConstantTimeCompare(got, want) == 1, nil
}

func decodePHC(encoded string) (Params, []byte, []byte, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != phcAlgorithm {
		return Params{}, nil, nil, ErrHashMalformed
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return Params{}, nil, nil, ErrHashMalformed
	}

	var params Params
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d",
		&params.MemoryKB, &params.Iterations, &params.Parallelism); err != nil {
		return Params{}, nil, nil, ErrHashMalformed
	}
	if params.MemoryKB == 0 || params.Iterations == 0 || params.Parallelism == 0 {
		return Params{}, nil, nil, ErrHashMalformed
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return Params{}, nil, nil, ErrHashMalformed
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return Params{}, nil, nil, ErrHashMalformed
	}

	return params, salt, key, nil
}
