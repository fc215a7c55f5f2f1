// Package token mints and verifies the access/refresh JWT pair. The two
// tokens are signed with distinct HMAC secrets and distinct expiries, and the
// audience claim pins each token to its kind so one can never be presented as
// the other.
package token

import (
	"crypto/sha256"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	// AudienceAccess marks an access token.
	AudienceAccess = "rotor:access"
	// AudienceRefresh marks a refresh token.
	AudienceRefresh = "rotor:refresh"

	// DefaultAccessTTL is the access token lifetime when Config leaves it zero.
	DefaultAccessTTL = 15 * time.Minute
	// DefaultRefreshTTL is the refresh token lifetime when Config leaves it zero.
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

// ErrTokenInvalid is returned for any token that fails signature, expiry,
// audience, or issuer checks.
var ErrTokenInvalid = errors.New("invalid token")

// Config configures an Issuer. AccessSecret and RefreshSecret must be set and
// must differ; a shared secret would collapse the two token kinds into one.
type Config struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
	Leeway        time.Duration
}

// Claims is the claim set carried by both token kinds: subject is the user ID,
// plus the account email and the registered timestamps.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Pair holds one freshly signed access/refresh pair.
type Pair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// Issuer signs and parses token pairs.
type Issuer struct {
	config Config
}

// NewIssuer validates cfg and returns an Issuer. The access lifetime must be
// strictly shorter than the refresh lifetime.
func NewIssuer(cfg Config) (*Issuer, error) {
	if len(cfg.AccessSecret) == 0 || len(cfg.RefreshSecret) == 0 {
		return nil, errors.New("both signing secrets are required")
	}
	if string(cfg.AccessSecret) == string(cfg.RefreshSecret) {
		return nil, errors.New("access and refresh secrets must differ")
	}
	if cfg.AccessTTL == 0 {
		cfg.AccessTTL = DefaultAccessTTL
	}
	if cfg.RefreshTTL == 0 {
		cfg.RefreshTTL = DefaultRefreshTTL
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("token lifetimes must be positive")
	}
	if cfg.AccessTTL >= cfg.RefreshTTL {
		return nil, errors.New("access lifetime must be shorter than refresh lifetime")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}

	return &Issuer{config: cfg}, nil
}

// RefreshTTL returns the configured refresh lifetime; the session store's TTL
// is derived from it.
func (i *Issuer) RefreshTTL() time.Duration {
	return i.config.RefreshTTL
}

// IssuePair signs a new access/refresh pair for the principal. The two signing
// operations have no data dependency on each other and run concurrently; the
// call returns when both complete, and fails whole if either fails.
func (i *Issuer) IssuePair(userID, email string) (Pair, error) {
	now := time.Now()
	pair := Pair{
		AccessExpiresAt:  now.Add(i.config.AccessTTL),
		RefreshExpiresAt: now.Add(i.config.RefreshTTL),
	}

	var g errgroup.Group
	g.Go(func() error {
		signed, err := i.sign(userID, email, AudienceAccess, i.config.AccessSecret, now, pair.AccessExpiresAt)
		pair.AccessToken = signed
		return err
	})
	g.Go(func() error {
		signed, err := i.sign(userID, email, AudienceRefresh, i.config.RefreshSecret, now, pair.RefreshExpiresAt)
		pair.RefreshToken = signed
		return err
	})
	if err := g.Wait(); err != nil {
		return Pair{}, err
	}

	return pair, nil
}

func (i *Issuer) sign(userID, email, audience string, secret []byte, now, expiresAt time.Time) (string, error) {
	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Audience:  jwt.ClaimStrings{audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
			Issuer:    i.config.Issuer,
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// ParseAccess verifies an access token and returns its claims.
func (i *Issuer) ParseAccess(tokenStr string) (*Claims, error) {
	return i.parse(tokenStr, AudienceAccess, i.config.AccessSecret)
}

// ParseRefresh verifies a refresh token and returns its claims.
func (i *Issuer) ParseRefresh(tokenStr string) (*Claims, error) {
	return i.parse(tokenStr, AudienceRefresh, i.config.RefreshSecret)
}

func (i *Issuer) parse(tokenStr, audience string, secret []byte) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
	}
	if i.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(i.config.Issuer))
	}
	if i.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(i.config.Leeway))
	}

	parser := jwt.NewParser(options...)
	parsed, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil {
		return nil, ErrTokenInvalid
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}

// Fingerprint computes the SHA-256 digest of a raw refresh token. The digest,
// never the token, is what the session store persists. It is deterministic so
// the store can compare it inside its atomic rotation.
func Fingerprint(raw string) [sha256.Size]byte {
	return sha256.Sum256([]byte(raw))
}
