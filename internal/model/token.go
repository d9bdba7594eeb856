package model

import (
	"time"

	"github.com/google/uuid"
)

// TokenMinter signs and verifies access tokens.
type TokenMinter interface {
	Mint(user User) (token string, expiresAt time.Time, err error)
	Parse(token string) (AccessClaims, error)
}

// AccessClaims is the verified content of an access token.
type AccessClaims struct {
	UserID       uuid.UUID
	AllowedRoles []string
	DefaultRole  string
	ExpiresAt    time.Time
}
