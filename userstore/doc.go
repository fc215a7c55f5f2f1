// Package userstore ships two ready-made rotor.UserProvider implementations:
// a PostgreSQL store for production and an in-memory store for tests and
// single-binary dev runs. Both return the rotor sentinel errors
// (rotor.ErrUserNotFound, rotor.ErrEmailTaken) so the engine's error mapping
// holds regardless of backing.
package userstore
