package rotor

import (
	"github.com/rotor-auth/rotor/password"
	"github.com/rotor-auth/rotor/token"
)

// Config is the engine configuration. Construct it once, pass it to
// [Builder.WithConfig], and treat it as immutable afterwards.
type Config struct {
	// Token configures the access/refresh issuer: the two distinct signing
	// secrets and the two lifetimes. The refresh lifetime doubles as the
	// session record TTL.
	Token token.Config

	// SessionPrefix namespaces session keys in Redis. Empty means the
	// package default.
	SessionPrefix string

	// Password sets the argon2id cost parameters for account secrets.
	Password password.Params

	// MinSecretLength is the minimum accepted password length at
	// registration. Zero means 6.
	MinSecretLength int
}

// DefaultConfig returns a Config with production lifetimes (15 minute access,
// 7 day refresh) and default argon2id costs. Signing secrets have no default
// and must be filled in by the caller.
func DefaultConfig() Config {
	return Config{
		Token: token.Config{
			AccessTTL:  token.DefaultAccessTTL,
			RefreshTTL: token.DefaultRefreshTTL,
			Issuer:     "rotor",
		},
		Password:        password.DefaultParams(),
		MinSecretLength: 6,
	}
}
