package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"activity-signup-service/cmd/api/di"
	ginrouter "activity-signup-service/internal/adapter/gin/router"
)

// SetupGinServer creates and configures the Gin REST API server
func SetupGinServer(c *di.Container, ginAddr string, l *zap.Logger) *http.Server {
	gin.SetMode(gin.ReleaseMode)

	// Setup Gin router with all middleware and routes
	router := ginrouter.SetupRouter(ginrouter.Options{
		ActivityHandler: c.ActivityHandler,
		HealthHandler:   c.HealthHandler,
		RateLimiter:     c.RateLimiter,
		StaticDir:       c.Config.App.StaticDir,
		Logger:          l,
	})

	l.Info("Gin REST API configured",
		zap.String("address", ginAddr),
		zap.String("static_dir", c.Config.App.StaticDir),
	)

	return &http.Server{
		Addr:              ginAddr,
		Handler:           router,
		ReadHeaderTimeout: 2 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
