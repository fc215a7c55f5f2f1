package userstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rotor-auth/rotor"
)

// uniqueViolation is the PostgreSQL error code raised by the users_email_key
// constraint.
const uniqueViolation = "23505"

// Schema is the DDL the Postgres store expects. Apply it with your migration
// tool of choice.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
    id            UUID PRIMARY KEY,
    email         TEXT NOT NULL UNIQUE,
    display_name  TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Postgres is a pgx-backed UserProvider. The pool is owned by the caller;
// this store never closes it.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres wraps an existing pgx pool.
func NewPostgres(pool *pgxpool.Pool) (*Postgres, error) {
	if pool == nil {
		return nil, errors.New("userstore: nil pgx pool")
	}
	return &Postgres{pool: pool}, nil
}

// GetUserByEmail implements rotor.UserProvider.
func (p *Postgres) GetUserByEmail(ctx context.Context, email string) (rotor.UserRecord, error) {
	return p.getUser(ctx,
		`SELECT id, email, display_name, password_hash, created_at FROM users WHERE email = $1`,
		email,
	)
}

// GetUserByID implements rotor.UserProvider.
func (p *Postgres) GetUserByID(ctx context.Context, userID string) (rotor.UserRecord, error) {
	return p.getUser(ctx,
		`SELECT id, email, display_name, password_hash, created_at FROM users WHERE id = $1`,
		userID,
	)
}

func (p *Postgres) getUser(ctx context.Context, query, arg string) (rotor.UserRecord, error) {
	var user rotor.UserRecord
	err := p.pool.QueryRow(ctx, query, arg).Scan(
		&user.UserID,
		&user.Email,
		&user.DisplayName,
		&user.PasswordHash,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return rotor.UserRecord{}, rotor.ErrUserNotFound
		}
		return rotor.UserRecord{}, fmt.Errorf("userstore: query user: %w", err)
	}
	return user, nil
}

// CreateUser implements rotor.UserProvider. A duplicate email surfaces as
// rotor.ErrEmailTaken via the unique constraint, not a pre-read, so two
// concurrent registrations cannot both succeed.
func (p *Postgres) CreateUser(ctx context.Context, input rotor.CreateUserInput) (rotor.UserRecord, error) {
	user := rotor.UserRecord{
		UserID:       uuid.NewString(),
		Email:        input.Email,
		DisplayName:  input.DisplayName,
		PasswordHash: input.PasswordHash,
	}

	err := p.pool.QueryRow(ctx,
		`INSERT INTO users (id, email, display_name, password_hash)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at`,
		user.UserID, user.Email, user.DisplayName, user.PasswordHash,
	).Scan(&user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return rotor.UserRecord{}, rotor.ErrEmailTaken
		}
		return rotor.UserRecord{}, fmt.Errorf("userstore: insert user: %w", err)
	}

	return user, nil
}

// Ping verifies connectivity.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}
