package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dtroode/authkeeper/internal/api/http/handler"
	"github.com/dtroode/authkeeper/internal/api/http/middleware"
	"github.com/dtroode/authkeeper/internal/logger"
	"github.com/dtroode/authkeeper/internal/model"
)

// TokenService is the token surface used by the HTTP API.
type TokenService interface {
	handler.TokenService
	middleware.TokenService
}

// Router wires the public HTTP API.
type Router struct {
	authService    handler.AuthService
	tokenService   TokenService
	contextManager model.ContextManager
	store          model.Pinger
	metrics        http.Handler
	cookie         handler.CookieConfig
	logger         *logger.Logger
}

// New creates new HTTP Router instance.
func New(
	authService handler.AuthService,
	tokenService TokenService,
	contextManager model.ContextManager,
	store model.Pinger,
	metrics http.Handler,
	cookie handler.CookieConfig,
	logger *logger.Logger,
) *Router {
	return &Router{
		authService:    authService,
		tokenService:   tokenService,
		contextManager: contextManager,
		store:          store,
		metrics:        metrics,
		cookie:         cookie,
		logger:         logger,
	}
}

// Register builds the gin engine with request logging and panic recovery.
func (r *Router) Register() *gin.Engine {
	logging := middleware.NewLogging(r.logger)
	authenticate := middleware.NewAuthenticate(r.tokenService, r.contextManager, r.logger)

	engine := gin.New()
	engine.Use(gin.Recovery(), logging.Handle)

	authHandler := handler.NewAuth(r.authService, r.tokenService, r.contextManager, r.cookie, r.logger)
	auth := engine.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/activate-account", authHandler.ActivateAccount)
	auth.POST("/new-password", authHandler.NewPassword)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refetch-token", authHandler.RefetchToken)
	auth.POST("/logout", authHandler.Logout)
	auth.GET("/me", authenticate.Handle, authHandler.Me)

	engine.GET("/healthz", handler.NewHealth(r.store, r.logger).Check)
	if r.metrics != nil {
		engine.GET("/metrics", gin.WrapH(r.metrics))
	}

	return engine
}
