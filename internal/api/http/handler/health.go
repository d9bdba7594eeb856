package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dtroode/authkeeper/internal/logger"
	"github.com/dtroode/authkeeper/internal/model"
)

const pingTimeout = 2 * time.Second

// Health reports whether the credential store is reachable.
type Health struct {
	store  model.Pinger
	logger *logger.Logger
}

func NewHealth(store model.Pinger, logger *logger.Logger) *Health {
	return &Health{store: store, logger: logger}
}

func (h *Health) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), pingTimeout)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		h.logger.Error("Health handler: store ping failed",
			"error", err.Error())
		c.JSON(http.StatusServiceUnavailable, statusResponse{Status: "unavailable"})
		return
	}

	c.JSON(http.StatusOK, statusOK)
}
