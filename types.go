package rotor

import (
	"context"
	"time"
)

// UserRecord is the account record returned by [UserProvider]. The engine
// treats it as read-only.
type UserRecord struct {
	UserID       string
	Email        string
	DisplayName  string
	PasswordHash string
	CreatedAt    time.Time
}

// CreateUserInput carries a new account into [UserProvider.CreateUser]. The
// password arrives already hashed; providers never see the raw secret.
type CreateUserInput struct {
	Email        string
	DisplayName  string
	PasswordHash string
}

// UserProvider is the interface callers implement to connect the engine to
// their user storage. Lookups return [ErrUserNotFound] (or an error wrapping
// it) for absent principals; CreateUser returns [ErrEmailTaken] on a duplicate
// email.
type UserProvider interface {
	GetUserByEmail(ctx context.Context, email string) (UserRecord, error)
	GetUserByID(ctx context.Context, userID string) (UserRecord, error)
	CreateUser(ctx context.Context, input CreateUserInput) (UserRecord, error)
}

// AuthResult identifies the principal behind a verified access token.
type AuthResult struct {
	UserID string
	Email  string
}
