package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dtroode/authkeeper/internal/hash"
	"github.com/dtroode/authkeeper/internal/logger"
	"github.com/dtroode/authkeeper/internal/metrics"
	"github.com/dtroode/authkeeper/internal/model"
	"github.com/dtroode/authkeeper/internal/repository/memory"
	"github.com/dtroode/authkeeper/internal/testutil"
	"github.com/dtroode/authkeeper/internal/token"
)

type lifecycle struct {
	auth   *Auth
	tokens *TokenService
	users  *memory.UserRepository
	minter *token.Minter
}

func newLifecycle(t *testing.T, log *logger.Logger, cfg AuthConfig) lifecycle {
	t.Helper()

	db := memory.NewDB()
	users := memory.NewUserRepository(db)
	minter, err := token.NewMinter(token.Config{Algorithm: "HS256", Key: "test-secret", TTL: 15 * time.Minute})
	require.NoError(t, err)

	rec := metrics.New()
	tokens := NewTokenService(minter, memory.NewRefreshTokenRepository(db), time.Hour, rec, log)
	auth := NewAuth(users, hash.NewBcrypt(bcrypt.MinCost), tokens, cfg, rec, log)

	return lifecycle{auth: auth, tokens: tokens, users: users, minter: minter}
}

func TestLifecycle_EndToEnd(t *testing.T) {
	ctx := context.Background()
	l := newLifecycle(t, testutil.MakeNoopLogger(), AuthConfig{})

	reg, err := l.auth.Register(ctx, model.RegisterParams{Username: "alice", Password: "pw1"})
	require.NoError(t, err)
	assert.False(t, reg.Active)

	_, err = l.auth.Login(ctx, "alice", "pw1")
	require.ErrorIs(t, err, model.ErrInvalidCredential, "not activated yet")

	require.NoError(t, l.auth.Activate(ctx, reg.ActivationToken))
	require.ErrorIs(t, l.auth.Activate(ctx, reg.ActivationToken), model.ErrInvalidCredential, "activation is single use")

	session, err := l.auth.Login(ctx, "alice", "pw1")
	require.NoError(t, err)
	assert.Equal(t, reg.UserID, session.UserID)

	claims, err := l.tokens.GetClaims(ctx, session.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, reg.UserID, claims.UserID)
	assert.Equal(t, []string{"user"}, claims.AllowedRoles)

	rotated, err := l.tokens.Refresh(ctx, session.RefreshToken, session.UserID)
	require.NoError(t, err)
	assert.NotEqual(t, session.RefreshToken, rotated.RefreshToken)

	_, err = l.tokens.Refresh(ctx, session.RefreshToken, session.UserID)
	require.ErrorIs(t, err, model.ErrInvalidCredential, "rotated token cannot be reused")

	_, err = l.tokens.Refresh(ctx, rotated.RefreshToken, session.UserID)
	require.NoError(t, err)
}

func TestLifecycle_DuplicateRegistration(t *testing.T) {
	ctx := context.Background()
	l := newLifecycle(t, testutil.MakeNoopLogger(), AuthConfig{})

	_, err := l.auth.Register(ctx, model.RegisterParams{Username: "alice", Password: "pw1"})
	require.NoError(t, err)

	_, err = l.auth.Register(ctx, model.RegisterParams{Username: "alice", Password: "pw2"})
	require.ErrorIs(t, err, model.ErrConflict)

	_, err = l.auth.Register(ctx, model.RegisterParams{Username: "Alice", Password: "pw2"})
	require.NoError(t, err, "usernames are matched exactly")
}

func TestLifecycle_RefreshWrongOwner(t *testing.T) {
	ctx := context.Background()
	l := newLifecycle(t, testutil.MakeNoopLogger(), AuthConfig{AutoActivate: true})

	_, err := l.auth.Register(ctx, model.RegisterParams{Username: "alice", Password: "pw1"})
	require.NoError(t, err)
	other, err := l.auth.Register(ctx, model.RegisterParams{Username: "bob", Password: "pw2"})
	require.NoError(t, err)

	session, err := l.auth.Login(ctx, "alice", "pw1")
	require.NoError(t, err)

	_, err = l.tokens.Refresh(ctx, session.RefreshToken, other.UserID)
	require.ErrorIs(t, err, model.ErrInvalidCredential)

	_, err = l.tokens.Refresh(ctx, session.RefreshToken, session.UserID)
	require.NoError(t, err, "a rejected attempt does not consume the token")
}

func TestLifecycle_RefreshExpired(t *testing.T) {
	ctx := context.Background()
	l := newLifecycle(t, testutil.MakeNoopLogger(), AuthConfig{AutoActivate: true})

	_, err := l.auth.Register(ctx, model.RegisterParams{Username: "alice", Password: "pw1"})
	require.NoError(t, err)
	session, err := l.auth.Login(ctx, "alice", "pw1")
	require.NoError(t, err)

	later := time.Now().Add(2 * time.Hour)
	l.tokens.now = func() time.Time { return later }

	_, err = l.tokens.Refresh(ctx, session.RefreshToken, session.UserID)
	require.ErrorIs(t, err, model.ErrInvalidCredential)

	purged, err := l.tokens.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, purged)
}

func TestLifecycle_RefreshPicksUpRoleChanges(t *testing.T) {
	ctx := context.Background()
	l := newLifecycle(t, testutil.MakeNoopLogger(), AuthConfig{AutoActivate: true})

	reg, err := l.auth.Register(ctx, model.RegisterParams{Username: "alice", Password: "pw1"})
	require.NoError(t, err)
	session, err := l.auth.Login(ctx, "alice", "pw1")
	require.NoError(t, err)

	var grants model.RoleAssigner = l.users
	require.NoError(t, grants.AssignRoles(ctx, reg.UserID, "editor"))

	rotated, err := l.tokens.Refresh(ctx, session.RefreshToken, session.UserID)
	require.NoError(t, err)

	claims, err := l.minter.Parse(rotated.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, []string{"editor", "user"}, claims.AllowedRoles)
}

func TestLifecycle_ConcurrentRefresh(t *testing.T) {
	ctx := context.Background()
	l := newLifecycle(t, testutil.MakeNoopLogger(), AuthConfig{AutoActivate: true})

	_, err := l.auth.Register(ctx, model.RegisterParams{Username: "alice", Password: "pw1"})
	require.NoError(t, err)
	session, err := l.auth.Login(ctx, "alice", "pw1")
	require.NoError(t, err)

	var wins, rejected atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.tokens.Refresh(ctx, session.RefreshToken, session.UserID)
			switch {
			case err == nil:
				wins.Add(1)
			case assert.ErrorIs(t, err, model.ErrInvalidCredential):
				rejected.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, wins.Load())
	assert.EqualValues(t, 15, rejected.Load())
}

func TestLifecycle_PasswordReset(t *testing.T) {
	ctx := context.Background()
	l := newLifecycle(t, testutil.MakeNoopLogger(), AuthConfig{})

	reg, err := l.auth.Register(ctx, model.RegisterParams{Username: "alice", Password: "pw1"})
	require.NoError(t, err)

	require.ErrorIs(t, l.auth.ResetPassword(ctx, reg.ActivationToken, "pw2"), model.ErrInvalidCredential,
		"an inactive account cannot reset its password")

	require.NoError(t, l.auth.Activate(ctx, reg.ActivationToken))

	user, err := l.users.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	resetToken := user.SecretToken

	require.NoError(t, l.auth.ResetPassword(ctx, resetToken, "pw2"))
	require.ErrorIs(t, l.auth.ResetPassword(ctx, resetToken, "pw3"), model.ErrInvalidCredential)

	_, err = l.auth.Login(ctx, "alice", "pw1")
	require.ErrorIs(t, err, model.ErrInvalidCredential)
	_, err = l.auth.Login(ctx, "alice", "pw2")
	require.NoError(t, err)
}

func TestLifecycle_ConcurrentActivation(t *testing.T) {
	ctx := context.Background()
	l := newLifecycle(t, testutil.MakeNoopLogger(), AuthConfig{})

	reg, err := l.auth.Register(ctx, model.RegisterParams{Username: "alice", Password: "pw1"})
	require.NoError(t, err)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.auth.Activate(ctx, reg.ActivationToken) == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, wins.Load())
}

func TestLifecycle_SecretsStayOutOfLogs(t *testing.T) {
	ctx := context.Background()
	log, buf := testutil.MakeBufferLogger()
	l := newLifecycle(t, log, AuthConfig{})

	reg, err := l.auth.Register(ctx, model.RegisterParams{Username: "alice", Password: "s3cret-pw"})
	require.NoError(t, err)
	require.NoError(t, l.auth.Activate(ctx, reg.ActivationToken))
	_, err = l.auth.Login(ctx, "alice", "wrong-pw")
	require.Error(t, err)
	session, err := l.auth.Login(ctx, "alice", "s3cret-pw")
	require.NoError(t, err)
	_, err = l.tokens.Refresh(ctx, session.RefreshToken, session.UserID)
	require.NoError(t, err)
	_, err = l.tokens.Refresh(ctx, session.RefreshToken, session.UserID)
	require.Error(t, err)

	out := buf.String()
	require.NotEmpty(t, out)
	for _, secret := range []string{"s3cret-pw", "wrong-pw", reg.ActivationToken, session.RefreshToken, session.AccessToken} {
		assert.NotContains(t, out, secret)
	}
}
