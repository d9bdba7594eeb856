package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dtroode/authkeeper/internal/logger"
)

// Logging logs HTTP requests and results.
type Logging struct {
	logger *logger.Logger
}

// NewLogging creates a new Logging middleware.
func NewLogging(logger *logger.Logger) *Logging {
	return &Logging{logger: logger}
}

// Handle logs method, route, duration and status for each request.
func (l *Logging) Handle(c *gin.Context) {
	start := time.Now()

	l.logger.Debug("HTTP request started",
		"method", c.Request.Method,
		"path", c.Request.URL.Path)

	c.Next()

	route := c.FullPath()
	if route == "" {
		route = c.Request.URL.Path
	}
	status := c.Writer.Status()

	args := []any{
		"method", c.Request.Method,
		"route", route,
		"duration_ms", time.Since(start).Milliseconds(),
		"status", status,
	}
	switch {
	case status >= 500:
		l.logger.Error("HTTP request completed", args...)
	case status >= 400:
		l.logger.Warn("HTTP request completed", args...)
	default:
		l.logger.Info("HTTP request completed", args...)
	}
}
