package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RefreshTokenStore persists refresh tokens by the hash of their value.
type RefreshTokenStore interface {
	Create(ctx context.Context, token RefreshToken) error
	// FindValid returns the owner of an unexpired token held by an active user,
	// or ErrNotFound.
	FindValid(ctx context.Context, tokenHash []byte, userID uuid.UUID, now time.Time) (User, error)
	// Rotate deletes the unexpired token oldHash owned by next.UserID and inserts next
	// in one atomic step. Zero affected rows means nothing was rotated.
	Rotate(ctx context.Context, oldHash []byte, next RefreshToken, now time.Time) (int64, error)
	Revoke(ctx context.Context, tokenHash []byte, userID uuid.UUID) (int64, error)
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// RefreshToken is the stored form of a refresh token.
type RefreshToken struct {
	TokenHash []byte
	UserID    uuid.UUID
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Session is a freshly issued credential pair.
type Session struct {
	UserID           uuid.UUID
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}
