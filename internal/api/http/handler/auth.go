package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/dtroode/authkeeper/internal/logger"
	"github.com/dtroode/authkeeper/internal/model"
)

// AccessTokenCookie is the name of the http-only cookie carrying the access token.
const AccessTokenCookie = "jwt_token"

// AuthService defines the account lifecycle operations.
type AuthService interface {
	Register(ctx context.Context, params model.RegisterParams) (model.Registration, error)
	Activate(ctx context.Context, token string) error
	ResetPassword(ctx context.Context, token, password string) error
	Login(ctx context.Context, login, password string) (model.Session, error)
}

// TokenService defines refresh token rotation and revocation.
type TokenService interface {
	Refresh(ctx context.Context, refreshToken string, userID uuid.UUID) (model.Session, error)
	Revoke(ctx context.Context, refreshToken string, userID uuid.UUID) error
}

// CookieConfig controls the access token cookie.
type CookieConfig struct {
	Secure bool
}

// Auth handles the /auth endpoints.
type Auth struct {
	authService    AuthService
	tokenService   TokenService
	contextManager model.ContextManager
	cookie         CookieConfig
	logger         *logger.Logger
}

// NewAuth creates a new Auth handler.
func NewAuth(
	authService AuthService,
	tokenService TokenService,
	contextManager model.ContextManager,
	cookie CookieConfig,
	logger *logger.Logger,
) *Auth {
	return &Auth{
		authService:    authService,
		tokenService:   tokenService,
		contextManager: contextManager,
		cookie:         cookie,
		logger:         logger,
	}
}

type statusResponse struct {
	Status string `json:"status"`
}

var statusOK = statusResponse{Status: "OK"}

type registerRequest struct {
	Username string  `json:"username" binding:"required"`
	Password string  `json:"password" binding:"required"`
	Email    *string `json:"email" binding:"omitempty,email"`
}

type secretTokenRequest struct {
	SecretToken string `json:"secret_token" binding:"required,uuid4"`
}

type newPasswordRequest struct {
	SecretToken string `json:"secret_token" binding:"required,uuid4"`
	Password    string `json:"password" binding:"required"`
}

type loginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refetch_token" binding:"required,uuid4"`
	UserID       string `json:"userId" binding:"required,uuid"`
}

type sessionResponse struct {
	AccessToken       string    `json:"jwt_token"`
	AccessTokenExpiry time.Time `json:"jwt_token_expiry"`
	RefreshToken      string    `json:"refetch_token"`
	UserID            uuid.UUID `json:"userId"`
}

type meResponse struct {
	UserID       uuid.UUID `json:"userId"`
	AllowedRoles []string  `json:"allowed_roles"`
	DefaultRole  string    `json:"default_role"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Register creates an inactive (or auto-activated) account.
func (h *Auth) Register(c *gin.Context) {
	var req registerRequest
	if !h.bind(c, &req) {
		return
	}

	h.logger.Debug("Auth handler: processing registration request",
		"username", req.Username)

	reg, err := h.authService.Register(c.Request.Context(), model.RegisterParams{
		Username: req.Username,
		Password: req.Password,
		Email:    req.Email,
	})
	if err != nil {
		h.fail(c, "registration", err)
		return
	}

	h.logger.Info("Auth handler: registration completed",
		"user_id", reg.UserID)

	c.JSON(http.StatusCreated, statusOK)
}

// ActivateAccount consumes an activation token.
func (h *Auth) ActivateAccount(c *gin.Context) {
	var req secretTokenRequest
	if !h.bind(c, &req) {
		return
	}

	if err := h.authService.Activate(c.Request.Context(), req.SecretToken); err != nil {
		h.fail(c, "activation", err)
		return
	}

	c.JSON(http.StatusOK, statusOK)
}

// NewPassword consumes a password reset token and sets a new password.
func (h *Auth) NewPassword(c *gin.Context) {
	var req newPasswordRequest
	if !h.bind(c, &req) {
		return
	}

	if err := h.authService.ResetPassword(c.Request.Context(), req.SecretToken, req.Password); err != nil {
		h.fail(c, "password reset", err)
		return
	}

	c.JSON(http.StatusOK, statusOK)
}

// Login starts a session from a username or email and a password.
func (h *Auth) Login(c *gin.Context) {
	var req loginRequest
	if !h.bind(c, &req) {
		return
	}

	login := req.Username
	if login == "" {
		login = req.Email
	}
	if login == "" {
		abortWithError(c, fmt.Errorf("%w: username or email is required", model.ErrValidation))
		return
	}

	session, err := h.authService.Login(c.Request.Context(), login, req.Password)
	if err != nil {
		h.fail(c, "login", err)
		return
	}

	h.writeSession(c, session)
}

// RefetchToken rotates a refresh token and returns a fresh session.
func (h *Auth) RefetchToken(c *gin.Context) {
	var req refreshRequest
	if !h.bind(c, &req) {
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		abortWithError(c, fmt.Errorf("%w: userId must be a uuid", model.ErrValidation))
		return
	}

	session, err := h.tokenService.Refresh(c.Request.Context(), req.RefreshToken, userID)
	if err != nil {
		h.fail(c, "refresh", err)
		return
	}

	h.writeSession(c, session)
}

// Logout revokes a refresh token and clears the access token cookie.
func (h *Auth) Logout(c *gin.Context) {
	var req refreshRequest
	if !h.bind(c, &req) {
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		abortWithError(c, fmt.Errorf("%w: userId must be a uuid", model.ErrValidation))
		return
	}

	if err := h.tokenService.Revoke(c.Request.Context(), req.RefreshToken, userID); err != nil {
		h.fail(c, "logout", err)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(AccessTokenCookie, "", -1, "/", "", h.cookie.Secure, true)
	c.JSON(http.StatusOK, statusOK)
}

// Me returns the claims of the authenticated caller.
func (h *Auth) Me(c *gin.Context) {
	claims, ok := h.contextManager.GetClaimsFromContext(c.Request.Context())
	if !ok {
		abortWithError(c, model.ErrInvalidCredential)
		return
	}

	c.JSON(http.StatusOK, meResponse{
		UserID:       claims.UserID,
		AllowedRoles: claims.AllowedRoles,
		DefaultRole:  claims.DefaultRole,
		ExpiresAt:    claims.ExpiresAt,
	})
}

func (h *Auth) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		abortWithError(c, fmt.Errorf("%w: %w", model.ErrValidation, err))
		return false
	}
	return true
}

func (h *Auth) fail(c *gin.Context, operation string, err error) {
	code, _ := statusFor(err)
	if code == http.StatusInternalServerError {
		h.logger.Error("Auth handler: request failed",
			"operation", operation,
			"error", err.Error())
	} else {
		h.logger.Debug("Auth handler: request rejected",
			"operation", operation,
			"status", code)
	}
	abortWithError(c, err)
}

func (h *Auth) writeSession(c *gin.Context, session model.Session) {
	maxAge := int(time.Until(session.AccessExpiresAt).Seconds())
	if maxAge < 0 {
		maxAge = 0
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(AccessTokenCookie, session.AccessToken, maxAge, "/", "", h.cookie.Secure, true)
	c.JSON(http.StatusOK, sessionResponse{
		AccessToken:       session.AccessToken,
		AccessTokenExpiry: session.AccessExpiresAt,
		RefreshToken:      session.RefreshToken,
		UserID:            session.UserID,
	})
}
