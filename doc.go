// Package rotor is a session and token-rotation engine: short-lived JWT access
// tokens, long-lived JWT refresh tokens, and a TTL-backed store holding the
// SHA-256 fingerprint of each principal's one active refresh token.
//
// A refresh request proves knowledge of the current refresh token; on success
// the engine mints a new pair and atomically swaps the stored fingerprint, so
// the old token dies the moment its replacement is born. The swap is a
// compare-and-swap inside the session store, which makes concurrent refreshes
// of the same token linearizable: exactly one wins, the rest are rejected.
//
// # Architecture boundaries
//
// rotor is the public surface: [Engine], [Builder], [Config], the sentinel
// errors, and [UserProvider] (the caller-supplied account collaborator).
// Session persistence lives in the session sub-package, signing in token,
// secret hashing in password, and the HTTP binding in httpapi. Engine methods
// are safe for concurrent use after [Builder.Build].
//
// # Single active session
//
// One refresh token is valid per principal at any time. A new login overwrites
// the session record and silently invalidates whatever refresh token the
// principal held before.
package rotor
