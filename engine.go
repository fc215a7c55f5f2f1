package rotor

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/rotor-auth/rotor/events"
	"github.com/rotor-auth/rotor/password"
	"github.com/rotor-auth/rotor/session"
	"github.com/rotor-auth/rotor/token"
)

// Engine orchestrates credential validation, token issuance, refresh rotation,
// and session termination. Build one through [Builder.Build]; it is immutable
// and safe for concurrent use afterwards.
type Engine struct {
	config   Config
	sessions session.Store
	tokens   *token.Issuer
	hasher   *password.Hasher
	users    UserProvider
	emitter  *events.Emitter
	metrics  *Metrics
	logger   *slog.Logger
}

func (e *Engine) ready() error {
	if e == nil || e.sessions == nil || e.tokens == nil || e.hasher == nil || e.users == nil {
		return ErrEngineNotReady
	}
	return nil
}

// MetricsSnapshot returns a point-in-time copy of the engine counters.
func (e *Engine) MetricsSnapshot() map[MetricID]uint64 {
	if e == nil {
		return map[MetricID]uint64{}
	}
	return e.metrics.Snapshot()
}

// Metrics exposes the engine counters for an exposition handler.
func (e *Engine) Metrics() *Metrics {
	if e == nil {
		return nil
	}
	return e.metrics
}

// Register creates an account: normalizes and validates the email, enforces
// the minimum secret length, hashes the secret, and hands the record to the
// user provider. Returns [ErrValidation] for malformed input and
// [ErrEmailTaken] for a duplicate email.
func (e *Engine) Register(ctx context.Context, email, secret, displayName string) (UserRecord, error) {
	if err := e.ready(); err != nil {
		return UserRecord{}, err
	}

	email = normalizeEmail(email)
	// ParseAddress accepts display-name forms like `Bob <bob@x.com>`; only a
	// bare address, parsing to exactly itself, is a valid account email.
	addr, err := mail.ParseAddress(email)
	if email == "" || err != nil || addr.Address != email {
		return UserRecord{}, fmt.Errorf("%w: malformed email", ErrValidation)
	}
	minLen := e.config.MinSecretLength
	if minLen <= 0 {
		minLen = 6
	}
	if len(secret) < minLen {
		return UserRecord{}, fmt.Errorf("%w: secret shorter than %d bytes", ErrValidation, minLen)
	}
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return UserRecord{}, fmt.Errorf("%w: display name required", ErrValidation)
	}

	hash, err := e.hasher.Hash(secret)
	if err != nil {
		return UserRecord{}, err
	}

	user, err := e.users.CreateUser(ctx, CreateUserInput{
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			e.metrics.Inc(MetricRegisterConflict)
		}
		return UserRecord{}, err
	}

	e.metrics.Inc(MetricRegisterSuccess)
	return user, nil
}

// Login validates the credentials and, on success, issues a token pair and
// installs the session record, overwriting any previous one for the same
// principal. Every credential failure is [ErrInvalidCredentials], with no way
// to tell an unknown email from a wrong secret, and no side effects.
func (e *Engine) Login(ctx context.Context, email, secret string) (token.Pair, error) {
	if err := e.ready(); err != nil {
		return token.Pair{}, err
	}

	user, err := e.users.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			e.metrics.Inc(MetricLoginFailure)
			return token.Pair{}, ErrInvalidCredentials
		}
		return token.Pair{}, err
	}

	ok, err := e.hasher.Verify(secret, user.PasswordHash)
	if err != nil || !ok {
		e.metrics.Inc(MetricLoginFailure)
		return token.Pair{}, ErrInvalidCredentials
	}

	pair, err := e.openSession(ctx, user)
	if err != nil {
		return token.Pair{}, err
	}

	e.metrics.Inc(MetricLoginSuccess)
	e.emit(events.TopicLogin, user.UserID, user.Email)
	return pair, nil
}

// openSession signs a fresh pair and overwrites the principal's session record
// with the new refresh fingerprint, TTL pinned to the refresh lifetime.
func (e *Engine) openSession(ctx context.Context, user UserRecord) (token.Pair, error) {
	pair, err := e.tokens.IssuePair(user.UserID, user.Email)
	if err != nil {
		return token.Pair{}, err
	}

	now := time.Now()
	ttl := e.tokens.RefreshTTL()
	rec := &session.Record{
		UserID:      user.UserID,
		RefreshHash: token.Fingerprint(pair.RefreshToken),
		CreatedAt:   now.Unix(),
		ExpiresAt:   now.Add(ttl).Unix(),
	}
	if err := e.sessions.Save(ctx, rec, ttl); err != nil {
		e.logStoreFailure(ctx, "session save failed", err)
		return token.Pair{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return pair, nil
}

// Refresh exchanges a still-valid refresh token for a new pair. The checks run
// in the documented order: signature, stored record, fingerprint, principal
// re-confirmation, then the atomic rotation. A failed refresh never deletes or
// rewrites the existing record, so a token that was not the one rejected keeps
// working.
func (e *Engine) Refresh(ctx context.Context, presented string) (token.Pair, error) {
	if err := e.ready(); err != nil {
		return token.Pair{}, err
	}

	claims, err := e.tokens.ParseRefresh(presented)
	if err != nil {
		e.metrics.Inc(MetricRefreshDenied)
		return token.Pair{}, ErrAccessDenied
	}
	userID := claims.Subject

	rec, err := e.sessions.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			e.metrics.Inc(MetricRefreshExpired)
			return token.Pair{}, ErrSessionExpired
		}
		e.logStoreFailure(ctx, "session read failed", err)
		return token.Pair{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	provided := token.Fingerprint(presented)
	if subtle.ConstantTimeCompare(provided[:], rec.RefreshHash[:]) != 1 {
		e.metrics.Inc(MetricRefreshDenied)
		return token.Pair{}, ErrAccessDenied
	}

	// The principal may have been deleted since the token was issued.
	user, err := e.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			e.metrics.Inc(MetricRefreshDenied)
			return token.Pair{}, ErrAccessDenied
		}
		return token.Pair{}, err
	}

	pair, err := e.tokens.IssuePair(user.UserID, user.Email)
	if err != nil {
		return token.Pair{}, err
	}

	// The store re-verifies the fingerprint inside the swap. Losing the race
	// to a concurrent rotation surfaces as a mismatch here, not a lost update.
	_, err = e.sessions.Rotate(ctx, userID, provided, token.Fingerprint(pair.RefreshToken), e.tokens.RefreshTTL())
	switch {
	case err == nil:
	case errors.Is(err, session.ErrNotFound):
		e.metrics.Inc(MetricRefreshExpired)
		return token.Pair{}, ErrSessionExpired
	case errors.Is(err, session.ErrHashMismatch):
		e.metrics.Inc(MetricRefreshDenied)
		return token.Pair{}, ErrAccessDenied
	default:
		e.logStoreFailure(ctx, "session rotate failed", err)
		return token.Pair{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	e.metrics.Inc(MetricRefreshSuccess)
	e.emit(events.TopicRefreshed, user.UserID, user.Email)
	return pair, nil
}

// Logout deletes the principal's session record. The delete itself is
// idempotent; Logout reports [ErrNoActiveSession] when there was nothing to
// end so the boundary can answer 404.
func (e *Engine) Logout(ctx context.Context, userID string) error {
	if err := e.ready(); err != nil {
		return err
	}

	existed, err := e.sessions.Delete(ctx, userID)
	if err != nil {
		e.logStoreFailure(ctx, "session delete failed", err)
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if !existed {
		e.metrics.Inc(MetricLogoutNoSession)
		return ErrNoActiveSession
	}

	e.metrics.Inc(MetricLogoutSuccess)
	e.emit(events.TopicLogout, userID, "")
	return nil
}

// LogoutByAccessToken verifies the bearer token and ends that principal's
// session.
func (e *Engine) LogoutByAccessToken(ctx context.Context, tokenStr string) error {
	result, err := e.ValidateAccess(ctx, tokenStr)
	if err != nil {
		return err
	}
	return e.Logout(ctx, result.UserID)
}

// ValidateAccess verifies an access token by signature and expiry alone; no
// store round-trip. Protected requests ride on this.
func (e *Engine) ValidateAccess(_ context.Context, tokenStr string) (*AuthResult, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	claims, err := e.tokens.ParseAccess(tokenStr)
	if err != nil {
		return nil, ErrAccessDenied
	}

	return &AuthResult{UserID: claims.Subject, Email: claims.Email}, nil
}

// UserByID resolves a principal through the user provider.
func (e *Engine) UserByID(ctx context.Context, userID string) (UserRecord, error) {
	if err := e.ready(); err != nil {
		return UserRecord{}, err
	}
	return e.users.GetUserByID(ctx, userID)
}

func (e *Engine) emit(topic, userID, email string) {
	if err := e.emitter.Emit(topic, events.SessionEvent{UserID: userID, Email: email}); err != nil && e.logger != nil {
		e.logger.Warn("session event publish failed", "topic", topic, "error", err)
	}
}

func (e *Engine) logStoreFailure(ctx context.Context, msg string, err error) {
	if e.logger != nil {
		e.logger.ErrorContext(ctx, msg, "error", err)
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
