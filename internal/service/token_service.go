package service

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/authkeeper/internal/logger"
	"github.com/dtroode/authkeeper/internal/metrics"
	"github.com/dtroode/authkeeper/internal/model"
)

// TokenService issues, rotates and revokes refresh tokens and mints the access
// tokens that go with them. It composes the TokenMinter and RefreshTokenStore.
type TokenService struct {
	minter     model.TokenMinter
	store      model.RefreshTokenStore
	refreshTTL time.Duration
	metrics    *metrics.Recorder
	logger     *logger.Logger
	now        func() time.Time
}

// NewTokenService creates a new TokenService instance.
// It initializes the service that issues, rotates and revokes refresh tokens.
//
// Parameters:
//   - minter: The access token minter
//   - store: The refresh token store
//   - refreshTTL: Lifetime of every issued refresh token
//   - metrics: The operation recorder, may be nil
//   - logger: The logger for service events
//
// Returns a pointer to the newly created TokenService instance.
func NewTokenService(
	minter model.TokenMinter,
	store model.RefreshTokenStore,
	refreshTTL time.Duration,
	metrics *metrics.Recorder,
	logger *logger.Logger,
) *TokenService {
	return &TokenService{
		minter:     minter,
		store:      store,
		refreshTTL: refreshTTL,
		metrics:    metrics,
		logger:     logger,
		now:        time.Now,
	}
}

// Issue starts a new refresh lineage for user and returns the first session.
func (s *TokenService) Issue(ctx context.Context, user model.User) (session model.Session, err error) {
	defer func() { s.metrics.Observe(metrics.OpIssue, err) }()

	access, accessExpiresAt, err := s.mint(user)
	if err != nil {
		return model.Session{}, err
	}

	refresh, err := newSecret()
	if err != nil {
		return model.Session{}, err
	}

	now := s.now()
	rt := model.RefreshToken{
		TokenHash: hashRefresh(refresh),
		UserID:    user.ID,
		ExpiresAt: now.Add(s.refreshTTL),
		CreatedAt: now,
	}

	if err := s.store.Create(ctx, rt); err != nil {
		s.logger.Error("Token service: failed to persist refresh token",
			"user_id", user.ID,
			"error", err.Error())
		return model.Session{}, fmt.Errorf("%w: failed to persist refresh token: %w", model.ErrStore, err)
	}

	s.logger.Debug("Token service: session issued",
		"user_id", user.ID)

	return model.Session{
		UserID:           user.ID,
		AccessToken:      access,
		AccessExpiresAt:  accessExpiresAt,
		RefreshToken:     refresh,
		RefreshExpiresAt: rt.ExpiresAt,
	}, nil
}

// Refresh consumes presented and returns a session carrying its successor. The
// access token is minted from the user as currently stored, so role changes since
// the previous session take effect.
func (s *TokenService) Refresh(ctx context.Context, presented string, userID uuid.UUID) (session model.Session, err error) {
	defer func() { s.metrics.Observe(metrics.OpRefresh, err) }()

	if presented == "" || userID == uuid.Nil {
		return model.Session{}, model.ErrInvalidCredential
	}

	now := s.now()
	oldHash := hashRefresh(presented)

	user, err := s.store.FindValid(ctx, oldHash, userID, now)
	if errors.Is(err, model.ErrNotFound) {
		s.logger.Info("Token service: refresh token rejected",
			"user_id", userID)
		return model.Session{}, model.ErrInvalidCredential
	}
	if err != nil {
		s.logger.Error("Token service: failed to look up refresh token",
			"user_id", userID,
			"error", err.Error())
		return model.Session{}, fmt.Errorf("%w: failed to look up refresh token: %w", model.ErrStore, err)
	}

	expiresAt := now.Add(s.refreshTTL)
	next, err := consumeAndReplace(ctx, func(ctx context.Context, next string) (int64, error) {
		return s.store.Rotate(ctx, oldHash, model.RefreshToken{
			TokenHash: hashRefresh(next),
			UserID:    userID,
			ExpiresAt: expiresAt,
			CreatedAt: now,
		}, now)
	})
	if err != nil {
		if errors.Is(err, model.ErrInvalidCredential) {
			s.logger.Info("Token service: refresh token already rotated",
				"user_id", userID)
		} else {
			s.logger.Error("Token service: failed to rotate refresh token",
				"user_id", userID,
				"error", err.Error())
		}
		return model.Session{}, err
	}

	access, accessExpiresAt, err := s.mint(user)
	if err != nil {
		return model.Session{}, err
	}

	s.logger.Debug("Token service: refresh token rotated",
		"user_id", userID)

	return model.Session{
		UserID:           userID,
		AccessToken:      access,
		AccessExpiresAt:  accessExpiresAt,
		RefreshToken:     next,
		RefreshExpiresAt: expiresAt,
	}, nil
}

// Revoke deletes presented so it can no longer be rotated.
func (s *TokenService) Revoke(ctx context.Context, presented string, userID uuid.UUID) (err error) {
	defer func() { s.metrics.Observe(metrics.OpRevoke, err) }()

	if presented == "" || userID == uuid.Nil {
		return model.ErrInvalidCredential
	}

	affected, err := s.store.Revoke(ctx, hashRefresh(presented), userID)
	if err != nil {
		s.logger.Error("Token service: failed to revoke refresh token",
			"user_id", userID,
			"error", err.Error())
		return fmt.Errorf("%w: failed to revoke refresh token: %w", model.ErrStore, err)
	}
	if affected == 0 {
		return model.ErrInvalidCredential
	}

	s.logger.Debug("Token service: refresh token revoked",
		"user_id", userID)

	return nil
}

// GetClaims verifies an access token.
func (s *TokenService) GetClaims(_ context.Context, accessToken string) (model.AccessClaims, error) {
	claims, err := s.minter.Parse(accessToken)
	if err != nil {
		return model.AccessClaims{}, fmt.Errorf("%w: %w", model.ErrInvalidCredential, err)
	}
	return claims, nil
}

// PurgeExpired deletes refresh tokens that can no longer be rotated.
func (s *TokenService) PurgeExpired(ctx context.Context) (purged int64, err error) {
	defer func() {
		s.metrics.Observe(metrics.OpPurge, err)
		s.metrics.Purged(purged)
	}()

	purged, err = s.store.PurgeExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("%w: failed to purge refresh tokens: %w", model.ErrStore, err)
	}
	return purged, nil
}

func (s *TokenService) mint(user model.User) (string, time.Time, error) {
	access, expiresAt, err := s.minter.Mint(user)
	if err != nil {
		s.logger.Error("Token service: failed to mint access token",
			"user_id", user.ID,
			"error", err.Error())
		return "", time.Time{}, fmt.Errorf("failed to mint access token: %w", err)
	}
	return access, expiresAt, nil
}

func hashRefresh(token string) []byte {
	h := sha256.Sum256([]byte(token))
	return h[:]
}
