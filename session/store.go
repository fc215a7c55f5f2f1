package session

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no session record exists for the principal,
// either because none was ever created or because the record's TTL lapsed.
var ErrNotFound = errors.New("session record not found")

// ErrHashMismatch is returned by Rotate when the provided fingerprint does not
// match the stored one. The stored record is left untouched.
var ErrHashMismatch = errors.New("refresh fingerprint mismatch")

// ErrCorrupt is returned when a stored record blob cannot be decoded.
var ErrCorrupt = errors.New("session record corrupt")

// ErrUnavailable wraps backend transport failures.
var ErrUnavailable = errors.New("session store unavailable")

// Store is the capability contract for session persistence. All components
// depend on this interface, never on a concrete backing technology; the store
// is constructed at startup and torn down at shutdown.
type Store interface {
	// Get returns the record for a principal, or ErrNotFound when absent or
	// lapsed. Get never mutates the stored fingerprint.
	Get(ctx context.Context, userID string) (*Record, error)

	// Save writes a record with the given TTL, unconditionally overwriting
	// any prior record for the same principal.
	Save(ctx context.Context, rec *Record, ttl time.Duration) error

	// Rotate atomically replaces the stored fingerprint: it verifies that the
	// current fingerprint equals provided and, only then, installs a fresh
	// record carrying next with a full TTL. Returns ErrNotFound when no live
	// record exists and ErrHashMismatch when provided does not match. On any
	// failure the stored record is not modified (expiry cleanup aside).
	Rotate(ctx context.Context, userID string, provided, next [HashSize]byte, ttl time.Duration) (*Record, error)

	// Delete removes the record for a principal. It is idempotent and reports
	// whether a record existed.
	Delete(ctx context.Context, userID string) (bool, error)
}
