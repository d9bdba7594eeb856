package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// UserStore defines persistence operations for user accounts.
type UserStore interface {
	GetByUsername(ctx context.Context, username string) (User, error)
	// GetByLogin matches the username first and the email second.
	GetByLogin(ctx context.Context, login string) (User, error)
	Create(ctx context.Context, user NewUser) (User, error)
	// Activate sets active=true and replaces the secret token on the inactive user
	// holding token. It reports the number of affected users.
	Activate(ctx context.Context, token, newToken string) (int64, error)
	// ResetPassword replaces the password hash and the secret token on the active
	// user holding token. It reports the number of affected users.
	ResetPassword(ctx context.Context, token, passwordHash, newToken string) (int64, error)
}

// RoleAssigner grants roles to existing accounts. Role grants are an operator
// action performed against the store directly; no request path calls it. Tokens
// minted after a grant carry the new roles, including those from a refresh.
type RoleAssigner interface {
	AssignRoles(ctx context.Context, userID uuid.UUID, roles ...string) error
}

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	// Compare returns ErrPasswordMismatch when password does not match hash.
	Compare(hash, password string) error
}

// User represents a stored account with its assigned roles.
type User struct {
	ID           uuid.UUID
	Username     string
	Email        *string
	PasswordHash string
	Active       bool
	DefaultRole  string
	Roles        []string
	SecretToken  string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewUser contains the fields needed to insert an account.
type NewUser struct {
	Username     string
	Email        *string
	PasswordHash string
	SecretToken  string
	Active       bool
	DefaultRole  string
}

// Registration is the outcome of a successful sign-up. ActivationToken must reach
// the account owner out of band.
type Registration struct {
	UserID          uuid.UUID
	ActivationToken string
	Active          bool
}

// RegisterParams is the sign-up input. Email is optional.
type RegisterParams struct {
	Username string
	Password string
	Email    *string
}
