package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/authkeeper/internal/model"
)

var _ model.RefreshTokenStore = (*RefreshTokenRepository)(nil)

type RefreshTokenRepository struct {
	db *DB
}

func NewRefreshTokenRepository(db *DB) *RefreshTokenRepository {
	return &RefreshTokenRepository{db: db}
}

func (r *RefreshTokenRepository) Create(_ context.Context, token model.RefreshToken) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	key := string(token.TokenHash)
	if _, ok := r.db.refreshTokens[key]; ok {
		return model.ErrConflict
	}
	if _, ok := r.db.users[token.UserID]; !ok {
		return model.ErrNotFound
	}
	r.db.refreshTokens[key] = token
	return nil
}

func (r *RefreshTokenRepository) FindValid(_ context.Context, tokenHash []byte, userID uuid.UUID, now time.Time) (model.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if !r.valid(tokenHash, userID, now) {
		return model.User{}, model.ErrNotFound
	}
	u, ok := r.db.users[userID]
	if !ok || !u.Active {
		return model.User{}, model.ErrNotFound
	}
	return cloneUser(u), nil
}

func (r *RefreshTokenRepository) Rotate(_ context.Context, oldHash []byte, next model.RefreshToken, now time.Time) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if !r.valid(oldHash, next.UserID, now) {
		return 0, nil
	}
	delete(r.db.refreshTokens, string(oldHash))
	r.db.refreshTokens[string(next.TokenHash)] = next
	return 1, nil
}

func (r *RefreshTokenRepository) Revoke(_ context.Context, tokenHash []byte, userID uuid.UUID) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	stored, ok := r.db.refreshTokens[string(tokenHash)]
	if !ok || stored.UserID != userID {
		return 0, nil
	}
	delete(r.db.refreshTokens, string(tokenHash))
	return 1, nil
}

func (r *RefreshTokenRepository) PurgeExpired(_ context.Context, now time.Time) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var purged int64
	for key, stored := range r.db.refreshTokens {
		if stored.ExpiresAt.Before(now) {
			delete(r.db.refreshTokens, key)
			purged++
		}
	}
	return purged, nil
}

// valid must be called with the lock held.
func (r *RefreshTokenRepository) valid(tokenHash []byte, userID uuid.UUID, now time.Time) bool {
	stored, ok := r.db.refreshTokens[string(tokenHash)]
	return ok && stored.UserID == userID && !stored.ExpiresAt.Before(now)
}
