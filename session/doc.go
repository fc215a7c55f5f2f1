// Package session persists the per-principal session record: the SHA-256
// fingerprint of the currently valid refresh token, keyed by user ID with a
// TTL equal to the refresh window.
//
// # Single active session
//
// Exactly one record may exist per principal. Save performs an unconditional
// overwrite, which is how a fresh login invalidates whatever refresh token was
// issued before. Rotate replaces the fingerprint only when the caller proves
// knowledge of the current one; the compare-and-swap runs inside the store
// (a Lua script on Redis, a mutex in process) so two concurrent rotations of
// the same token produce exactly one winner.
//
// # Binary encoding
//
// Records are stored as a compact binary blob (version, user ID, fingerprint,
// created-at, expires-at). The layout is shared with the Redis rotation script,
// which locates the fingerprint by offset without a round trip.
//
// # Architecture boundaries
//
// This package owns persistence only. It does not parse tokens, verify
// signatures, or decide authentication policy — those belong to the engine.
package session
