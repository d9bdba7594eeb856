package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/authkeeper/internal/model"
)

var _ model.RefreshTokenStore = (*RefreshTokenRepository)(nil)

type RefreshTokenRepository struct {
	db            *Connection
	refreshTokens string
	users         string
	userRoles     string
}

func NewRefreshTokenRepository(db *Connection) *RefreshTokenRepository {
	return &RefreshTokenRepository{
		db:            db,
		refreshTokens: db.table("refresh_tokens"),
		users:         db.table("users"),
		userRoles:     db.table("user_roles"),
	}
}

func (r *RefreshTokenRepository) Create(ctx context.Context, token model.RefreshToken) error {
	query := `INSERT INTO ` + r.refreshTokens + ` (token_hash, user_id, expires_at, created_at)
			  VALUES ($1, $2, $3, $4)`

	if _, err := r.db.Exec(ctx, query, token.TokenHash, token.UserID, token.ExpiresAt, token.CreatedAt); err != nil {
		return fmt.Errorf("failed to create refresh token: %w", err)
	}
	return nil
}

func (r *RefreshTokenRepository) FindValid(ctx context.Context, tokenHash []byte, userID uuid.UUID, now time.Time) (model.User, error) {
	from := r.refreshTokens + ` rt
			  JOIN ` + r.users + ` u ON u.id = rt.user_id`
	query := userSelect(from, r.userRoles) + `
			 WHERE rt.token_hash = $1 AND rt.user_id = $2 AND u.active AND rt.expires_at >= $3
			 GROUP BY u.id`

	user, err := scanUser(r.db.QueryRow(ctx, query, tokenHash, userID, now))
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.User{}, err
		}
		return model.User{}, fmt.Errorf("failed to find refresh token: %w", err)
	}
	return user, nil
}

// Rotate runs the delete and the insert as a single statement, so two concurrent
// rotations of the same token cannot both insert a successor.
func (r *RefreshTokenRepository) Rotate(ctx context.Context, oldHash []byte, next model.RefreshToken, now time.Time) (int64, error) {
	query := `WITH consumed AS (
			      DELETE FROM ` + r.refreshTokens + `
			       WHERE token_hash = $1 AND user_id = $2 AND expires_at >= $5
			   RETURNING user_id
			  )
			  INSERT INTO ` + r.refreshTokens + ` (token_hash, user_id, expires_at, created_at)
			  SELECT $3::bytea, user_id, $4::timestamptz, $6::timestamptz FROM consumed`

	tag, err := r.db.Exec(ctx, query, oldHash, next.UserID, next.TokenHash, next.ExpiresAt, now, next.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to rotate refresh token: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *RefreshTokenRepository) Revoke(ctx context.Context, tokenHash []byte, userID uuid.UUID) (int64, error) {
	query := `DELETE FROM ` + r.refreshTokens + ` WHERE token_hash = $1 AND user_id = $2`

	tag, err := r.db.Exec(ctx, query, tokenHash, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *RefreshTokenRepository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `DELETE FROM ` + r.refreshTokens + ` WHERE expires_at < $1`

	tag, err := r.db.Exec(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired refresh tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}
