package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"scratch-card.backend/pkg/logger"
)

const healthPingTimeout = 2 * time.Second

// HealthHandler reports process and database liveness.
type HealthHandler struct {
	ping func(ctx context.Context) error
}

// NewHealthHandler takes the database ping. A nil ping reports the database as unconfigured.
func NewHealthHandler(ping func(ctx context.Context) error) *HealthHandler {
	return &HealthHandler{ping: ping}
}

// Health
// GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	if h.ping == nil {
		c.JSON(http.StatusOK, gin.H{"ok": true, "status": "ok", "database": "unconfigured"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), healthPingTimeout)
	defer cancel()
	if err := h.ping(ctx); err != nil {
		logger.Warn(c.Request.Context(), "Database ping failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false, "status": "degraded", "database": "down"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "status": "ok", "database": "up"})
}
