package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"

	"github.com/dtroode/authkeeper/internal/logger"
	"github.com/dtroode/authkeeper/internal/metrics"
	"github.com/dtroode/authkeeper/internal/model"
)

// AuthConfig holds the registration policy.
type AuthConfig struct {
	// AutoActivate makes new accounts usable without an activation step.
	AutoActivate bool
	// DefaultRole is assigned to every new account.
	DefaultRole string
}

// Auth implements the account lifecycle: registration, activation, password
// reset and login.
type Auth struct {
	userStore    model.UserStore
	hasher       model.PasswordHasher
	tokenService *TokenService
	config       AuthConfig
	metrics      *metrics.Recorder
	logger       *logger.Logger

	dummyOnce sync.Once
	dummyHash string
}

// NewAuth creates a new Auth service instance.
// An empty config.DefaultRole falls back to "user".
//
// Parameters:
//   - userStore: The user account store
//   - hasher: The password hasher
//   - tokenService: The service issuing sessions on login
//   - config: The registration policy
//   - metrics: The operation recorder, may be nil
//   - logger: The logger for service events
//
// Returns a pointer to the newly created Auth instance.
func NewAuth(
	userStore model.UserStore,
	hasher model.PasswordHasher,
	tokenService *TokenService,
	config AuthConfig,
	metrics *metrics.Recorder,
	logger *logger.Logger,
) *Auth {
	if config.DefaultRole == "" {
		config.DefaultRole = "user"
	}
	return &Auth{
		userStore:    userStore,
		hasher:       hasher,
		tokenService: tokenService,
		config:       config,
		metrics:      metrics,
		logger:       logger,
	}
}

// Register creates an account. The returned activation token must be delivered
// to the owner out of band.
func (a *Auth) Register(ctx context.Context, params model.RegisterParams) (reg model.Registration, err error) {
	defer func() { a.metrics.Observe(metrics.OpRegister, err) }()

	a.logger.Debug("Auth service: starting user registration",
		"username", params.Username)

	if err := validateRegistration(params); err != nil {
		return model.Registration{}, err
	}

	_, err = a.userStore.GetByUsername(ctx, params.Username)
	switch {
	case err == nil:
		a.logger.Info("Auth service: username already taken",
			"username", params.Username)
		return model.Registration{}, model.ErrConflict
	case !errors.Is(err, model.ErrNotFound):
		a.logger.Error("Auth service: failed to get user by username",
			"username", params.Username,
			"error", err.Error())
		return model.Registration{}, fmt.Errorf("%w: failed to get user by username: %w", model.ErrStore, err)
	}

	passwordHash, err := a.hasher.Hash(params.Password)
	if err != nil {
		return model.Registration{}, fmt.Errorf("failed to hash password: %w", err)
	}

	secretToken, err := newSecret()
	if err != nil {
		return model.Registration{}, err
	}

	user, err := a.userStore.Create(ctx, model.NewUser{
		Username:     params.Username,
		Email:        params.Email,
		PasswordHash: passwordHash,
		SecretToken:  secretToken,
		Active:       a.config.AutoActivate,
		DefaultRole:  a.config.DefaultRole,
	})
	if errors.Is(err, model.ErrConflict) {
		a.logger.Info("Auth service: account already exists",
			"username", params.Username)
		return model.Registration{}, model.ErrConflict
	}
	if err != nil {
		a.logger.Error("Auth service: failed to create user",
			"username", params.Username,
			"error", err.Error())
		return model.Registration{}, fmt.Errorf("%w: failed to create user: %w", model.ErrStore, err)
	}

	a.logger.Info("Auth service: user registration completed successfully",
		"username", params.Username,
		"user_id", user.ID,
		"active", user.Active)

	return model.Registration{
		UserID:          user.ID,
		ActivationToken: secretToken,
		Active:          user.Active,
	}, nil
}

// Activate marks the inactive account holding token as active and replaces the
// token.
func (a *Auth) Activate(ctx context.Context, token string) (err error) {
	defer func() { a.metrics.Observe(metrics.OpActivate, err) }()

	if !isSecretShape(token) {
		return fmt.Errorf("%w: secret token must be a uuid v4", model.ErrValidation)
	}

	_, err = consumeAndReplace(ctx, func(ctx context.Context, next string) (int64, error) {
		return a.userStore.Activate(ctx, token, next)
	})
	if err != nil {
		a.logSingleUseFailure("activation", err)
		return err
	}

	a.logger.Info("Auth service: account activated")
	return nil
}

// ResetPassword sets a new password on the active account holding token and
// replaces the token.
func (a *Auth) ResetPassword(ctx context.Context, token, password string) (err error) {
	defer func() { a.metrics.Observe(metrics.OpResetPassword, err) }()

	if !isSecretShape(token) {
		return fmt.Errorf("%w: secret token must be a uuid v4", model.ErrValidation)
	}
	if password == "" {
		return fmt.Errorf("%w: password is required", model.ErrValidation)
	}

	passwordHash, err := a.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	_, err = consumeAndReplace(ctx, func(ctx context.Context, next string) (int64, error) {
		return a.userStore.ResetPassword(ctx, token, passwordHash, next)
	})
	if err != nil {
		a.logSingleUseFailure("password reset", err)
		return err
	}

	a.logger.Info("Auth service: password reset")
	return nil
}

// Login checks login (a username or an email) and password and starts a
// session. Every rejection is model.ErrInvalidCredential.
func (a *Auth) Login(ctx context.Context, login, password string) (session model.Session, err error) {
	defer func() { a.metrics.Observe(metrics.OpLogin, err) }()

	a.logger.Debug("Auth service: starting user login",
		"login", login)

	if login == "" || password == "" {
		return model.Session{}, fmt.Errorf("%w: login and password are required", model.ErrValidation)
	}

	user, err := a.userStore.GetByLogin(ctx, login)
	if errors.Is(err, model.ErrNotFound) {
		a.burnCompare(password)
		a.logger.Info("Auth service: login rejected",
			"login", login,
			"reason", "unknown account")
		return model.Session{}, model.ErrInvalidCredential
	}
	if err != nil {
		a.logger.Error("Auth service: failed to get user by login",
			"login", login,
			"error", err.Error())
		return model.Session{}, fmt.Errorf("%w: failed to get user by login: %w", model.ErrStore, err)
	}

	if err := a.hasher.Compare(user.PasswordHash, password); err != nil {
		if !errors.Is(err, model.ErrPasswordMismatch) {
			a.logger.Error("Auth service: failed to compare password",
				"user_id", user.ID,
				"error", err.Error())
		}
		a.logger.Info("Auth service: login rejected",
			"user_id", user.ID,
			"reason", "wrong password")
		return model.Session{}, model.ErrInvalidCredential
	}

	if !user.Active {
		a.logger.Info("Auth service: login rejected",
			"user_id", user.ID,
			"reason", "account not activated")
		return model.Session{}, model.ErrInvalidCredential
	}

	session, err = a.tokenService.Issue(ctx, user)
	if err != nil {
		return model.Session{}, fmt.Errorf("failed to issue session: %w", err)
	}

	a.logger.Info("Auth service: login completed successfully",
		"user_id", user.ID)

	return session, nil
}

// burnCompare spends the time of a real password comparison so unknown accounts
// answer as slowly as known ones.
func (a *Auth) burnCompare(password string) {
	a.dummyOnce.Do(func() {
		secret, err := newSecret()
		if err != nil {
			return
		}
		hash, err := a.hasher.Hash(secret)
		if err != nil {
			a.logger.Error("Auth service: failed to prepare dummy hash",
				"error", err.Error())
			return
		}
		a.dummyHash = hash
	})
	if a.dummyHash != "" {
		_ = a.hasher.Compare(a.dummyHash, password)
	}
}

func (a *Auth) logSingleUseFailure(workflow string, err error) {
	if errors.Is(err, model.ErrInvalidCredential) {
		a.logger.Info("Auth service: secret token rejected",
			"workflow", workflow)
		return
	}
	a.logger.Error("Auth service: secret token workflow failed",
		"workflow", workflow,
		"error", err.Error())
}

func validateRegistration(params model.RegisterParams) error {
	if strings.TrimSpace(params.Username) == "" {
		return fmt.Errorf("%w: username is required", model.ErrValidation)
	}
	if params.Password == "" {
		return fmt.Errorf("%w: password is required", model.ErrValidation)
	}
	if params.Email != nil {
		addr, err := mail.ParseAddress(*params.Email)
		if err != nil || addr.Address != *params.Email {
			return fmt.Errorf("%w: email is malformed", model.ErrValidation)
		}
	}
	return nil
}
