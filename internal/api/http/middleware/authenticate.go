package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dtroode/authkeeper/internal/logger"
	"github.com/dtroode/authkeeper/internal/model"
)

// AccessTokenCookie is read when no Authorization header is present.
const AccessTokenCookie = "jwt_token"

// TokenService verifies access tokens.
type TokenService interface {
	GetClaims(ctx context.Context, token string) (model.AccessClaims, error)
}

// Authenticate validates access tokens and injects their claims into the request
// context.
type Authenticate struct {
	tokenService   TokenService
	contextManager model.ContextManager
	logger         *logger.Logger
}

// NewAuthenticate creates a new Authenticate middleware instance.
func NewAuthenticate(tokenService TokenService, contextManager model.ContextManager, logger *logger.Logger) *Authenticate {
	return &Authenticate{tokenService: tokenService, contextManager: contextManager, logger: logger}
}

// Handle reads a bearer token from the Authorization header, falling back to the
// access token cookie.
func (m *Authenticate) Handle(c *gin.Context) {
	tokenString := bearerToken(c.GetHeader("Authorization"))
	if tokenString == "" {
		tokenString, _ = c.Cookie(AccessTokenCookie)
	}

	if tokenString == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization token"})
		return
	}

	claims, err := m.tokenService.GetClaims(c.Request.Context(), tokenString)
	if err != nil {
		m.logger.Debug("Authenticate: access token rejected",
			"error", err.Error())
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization token"})
		return
	}

	c.Request = c.Request.WithContext(m.contextManager.SetClaimsToContext(c.Request.Context(), claims))
	c.Next()
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
