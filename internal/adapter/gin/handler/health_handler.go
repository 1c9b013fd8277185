package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Pinger is anything whose liveness can be checked, such as the database.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports whether the service can reach its database.
type HealthHandler struct {
	db      Pinger
	service string
	log     *zap.Logger
}

// NewHealthHandler creates a new HealthHandler instance
func NewHealthHandler(db Pinger, service string, log *zap.Logger) *HealthHandler {
	return &HealthHandler{db: db, service: service, log: log}
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		h.log.Warn("health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "unhealthy",
			"service": h.service,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": h.service,
	})
}
