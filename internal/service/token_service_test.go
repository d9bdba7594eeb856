package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/authkeeper/internal/mocks"
	"github.com/dtroode/authkeeper/internal/model"
	"github.com/dtroode/authkeeper/internal/testutil"
)

const testRefreshTTL = 30 * time.Minute

func newTestTokenService(t *testing.T) (*TokenService, *mocks.TokenMinter, *mocks.RefreshTokenStore, time.Time) {
	t.Helper()

	minter := mocks.NewTokenMinter(t)
	store := mocks.NewRefreshTokenStore(t)
	svc := NewTokenService(minter, store, testRefreshTTL, nil, testutil.MakeNoopLogger())

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	svc.now = func() time.Time { return now }

	return svc, minter, store, now
}

func TestTokenService_Issue(t *testing.T) {
	ctx := context.Background()
	svc, minter, store, now := newTestTokenService(t)
	user := model.User{ID: uuid.New(), DefaultRole: "user"}
	accessExp := now.Add(15 * time.Minute)

	minter.On("Mint", user).Return("access", accessExp, nil).Once()

	var stored model.RefreshToken
	store.On("Create", ctx, mock.MatchedBy(func(rt model.RefreshToken) bool {
		stored = rt
		return rt.UserID == user.ID && rt.ExpiresAt.Equal(now.Add(testRefreshTTL)) && rt.CreatedAt.Equal(now)
	})).Return(nil).Once()

	session, err := svc.Issue(ctx, user)
	require.NoError(t, err)

	assert.Equal(t, user.ID, session.UserID)
	assert.Equal(t, "access", session.AccessToken)
	assert.Equal(t, accessExp, session.AccessExpiresAt)
	assert.Equal(t, now.Add(testRefreshTTL), session.RefreshExpiresAt)
	assert.True(t, isSecretShape(session.RefreshToken))
	assert.Equal(t, hashRefresh(session.RefreshToken), stored.TokenHash, "only the hash is persisted")
}

func TestTokenService_Issue_MintError(t *testing.T) {
	ctx := context.Background()
	svc, minter, _, _ := newTestTokenService(t)
	user := model.User{ID: uuid.New()}

	minter.On("Mint", user).Return("", time.Time{}, assert.AnError).Once()

	_, err := svc.Issue(ctx, user)
	require.ErrorIs(t, err, assert.AnError)
}

func TestTokenService_Issue_StoreError(t *testing.T) {
	ctx := context.Background()
	svc, minter, store, now := newTestTokenService(t)
	user := model.User{ID: uuid.New()}

	minter.On("Mint", user).Return("access", now, nil).Once()
	store.On("Create", ctx, mock.Anything).Return(assert.AnError).Once()

	_, err := svc.Issue(ctx, user)
	require.ErrorIs(t, err, model.ErrStore)
	require.ErrorIs(t, err, assert.AnError)
}

func TestTokenService_Refresh_Success(t *testing.T) {
	ctx := context.Background()
	svc, minter, store, now := newTestTokenService(t)
	presented := uuid.NewString()
	user := model.User{ID: uuid.New(), DefaultRole: "user", Roles: []string{"editor"}, Active: true}

	store.On("FindValid", ctx, hashRefresh(presented), user.ID, now).Return(user, nil).Once()

	var rotated model.RefreshToken
	store.On("Rotate", ctx, hashRefresh(presented), mock.MatchedBy(func(rt model.RefreshToken) bool {
		rotated = rt
		return rt.UserID == user.ID && rt.ExpiresAt.Equal(now.Add(testRefreshTTL))
	}), now).Return(int64(1), nil).Once()
	minter.On("Mint", user).Return("access-new", now.Add(time.Minute), nil).Once()

	session, err := svc.Refresh(ctx, presented, user.ID)
	require.NoError(t, err)

	assert.Equal(t, "access-new", session.AccessToken)
	assert.Equal(t, user.ID, session.UserID)
	assert.NotEqual(t, presented, session.RefreshToken)
	assert.Equal(t, hashRefresh(session.RefreshToken), rotated.TokenHash)
}

func TestTokenService_Refresh_Rejected(t *testing.T) {
	ctx := context.Background()
	svc, _, store, now := newTestTokenService(t)
	presented := uuid.NewString()
	userID := uuid.New()

	store.On("FindValid", ctx, hashRefresh(presented), userID, now).Return(model.User{}, model.ErrNotFound).Once()

	_, err := svc.Refresh(ctx, presented, userID)
	require.ErrorIs(t, err, model.ErrInvalidCredential)
}

func TestTokenService_Refresh_LostRace(t *testing.T) {
	ctx := context.Background()
	svc, _, store, now := newTestTokenService(t)
	presented := uuid.NewString()
	user := model.User{ID: uuid.New(), Active: true}

	store.On("FindValid", ctx, hashRefresh(presented), user.ID, now).Return(user, nil).Once()
	store.On("Rotate", ctx, hashRefresh(presented), mock.Anything, now).Return(int64(0), nil).Once()

	_, err := svc.Refresh(ctx, presented, user.ID)
	require.ErrorIs(t, err, model.ErrInvalidCredential)
}

func TestTokenService_Refresh_StoreErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("lookup", func(t *testing.T) {
		svc, _, store, _ := newTestTokenService(t)
		store.On("FindValid", ctx, mock.Anything, mock.Anything, mock.Anything).Return(model.User{}, assert.AnError).Once()

		_, err := svc.Refresh(ctx, uuid.NewString(), uuid.New())
		require.ErrorIs(t, err, model.ErrStore)
	})

	t.Run("rotate", func(t *testing.T) {
		svc, _, store, _ := newTestTokenService(t)
		store.On("FindValid", ctx, mock.Anything, mock.Anything, mock.Anything).Return(model.User{ID: uuid.New()}, nil).Once()
		store.On("Rotate", ctx, mock.Anything, mock.Anything, mock.Anything).Return(int64(0), assert.AnError).Once()

		_, err := svc.Refresh(ctx, uuid.NewString(), uuid.New())
		require.ErrorIs(t, err, model.ErrStore)
		require.NotErrorIs(t, err, model.ErrInvalidCredential)
	})
}

func TestTokenService_Refresh_EmptyInput(t *testing.T) {
	svc, _, _, _ := newTestTokenService(t)

	_, err := svc.Refresh(context.Background(), "", uuid.New())
	require.ErrorIs(t, err, model.ErrInvalidCredential)

	_, err = svc.Refresh(context.Background(), uuid.NewString(), uuid.Nil)
	require.ErrorIs(t, err, model.ErrInvalidCredential)
}

func TestTokenService_Revoke(t *testing.T) {
	ctx := context.Background()
	presented := uuid.NewString()
	userID := uuid.New()

	tests := []struct {
		name     string
		affected int64
		storeErr error
		wantErr  error
	}{
		{name: "revoked", affected: 1},
		{name: "unknown token", affected: 0, wantErr: model.ErrInvalidCredential},
		{name: "store failure", storeErr: assert.AnError, wantErr: model.ErrStore},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, store, _ := newTestTokenService(t)
			store.On("Revoke", ctx, hashRefresh(presented), userID).Return(tt.affected, tt.storeErr).Once()

			err := svc.Revoke(ctx, presented, userID)
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestTokenService_GetClaims(t *testing.T) {
	svc, minter, _, now := newTestTokenService(t)
	claims := model.AccessClaims{UserID: uuid.New(), DefaultRole: "user", AllowedRoles: []string{"user"}, ExpiresAt: now}

	minter.On("Parse", "good").Return(claims, nil).Once()
	minter.On("Parse", "bad").Return(model.AccessClaims{}, assert.AnError).Once()

	got, err := svc.GetClaims(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, claims, got)

	_, err = svc.GetClaims(context.Background(), "bad")
	require.ErrorIs(t, err, model.ErrInvalidCredential)
}

func TestTokenService_PurgeExpired(t *testing.T) {
	ctx := context.Background()
	svc, _, store, now := newTestTokenService(t)

	store.On("PurgeExpired", ctx, now).Return(int64(4), nil).Once()
	store.On("PurgeExpired", ctx, now).Return(int64(0), assert.AnError).Once()

	purged, err := svc.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 4, purged)

	_, err = svc.PurgeExpired(ctx)
	require.ErrorIs(t, err, model.ErrStore)
}
