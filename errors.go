package rotor

import "errors"

var (
	// ErrValidation is returned for malformed registration or login input.
	ErrValidation = errors.New("invalid request")
	// ErrEmailTaken is returned when registering an email that already has an account.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidCredentials is returned for any login failure. It deliberately
	// does not distinguish an unknown email from a wrong secret.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrSessionExpired is returned when no session record exists for the
	// principal, either never created or lapsed.
	ErrSessionExpired = errors.New("session expired")
	// ErrAccessDenied is returned when a presented refresh token does not match
	// the stored fingerprint (stale, already rotated, or stolen), or when the
	// principal no longer exists.
	ErrAccessDenied = errors.New("access denied")
	// ErrUserNotFound is returned on read paths for an absent principal.
	ErrUserNotFound = errors.New("user not found")
	// ErrNoActiveSession is returned by Logout when there was nothing to end.
	ErrNoActiveSession = errors.New("no active session")
	// ErrStoreUnavailable wraps session-store transport failures.
	ErrStoreUnavailable = errors.New("session store unavailable")
	// ErrEngineNotReady is returned when an Engine is used before Build wired
	// its dependencies.
	ErrEngineNotReady = errors.New("engine not ready")
)
