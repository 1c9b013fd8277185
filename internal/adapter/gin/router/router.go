package router

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"

	"activity-signup-service/api"
	"activity-signup-service/internal/adapter/gin/handler"
	"activity-signup-service/internal/adapter/gin/middleware"
	"activity-signup-service/pkg/logger"
)

// Options carries everything SetupRouter wires into the engine.
// RateLimiter may be nil.
type Options struct {
	ActivityHandler *handler.ActivityHandler
	HealthHandler   *handler.HealthHandler
	RateLimiter     *middleware.RateLimiter
	StaticDir       string
	Logger          *zap.Logger
}

// SetupRouter configures and returns a Gin router with all routes and middleware
func SetupRouter(opts Options) *gin.Engine {
	router := gin.New()

	// Activity names travel URL-encoded; match on the raw path so that an
	// encoded slash stays part of the name
	router.UseRawPath = true
	router.UnescapePathValues = true

	// Global middleware. Logger wraps Recovery so panics still get an
	// access log line and a metrics sample.
	router.Use(logger.RequestIDMiddleware())
	router.Use(middleware.Logger(opts.Logger))
	router.Use(middleware.Recovery(opts.Logger))

	router.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/static/index.html")
	})
	static := serveStatic(opts.StaticDir)
	router.GET("/static/*filepath", static)
	router.HEAD("/static/*filepath", static)

	// Operational endpoints
	router.GET("/health", opts.HealthHandler.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/openapi.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", api.OpenAPI)
	})
	router.GET("/swagger/*any", gin.WrapH(httpSwagger.Handler(httpSwagger.URL("/openapi.json"))))

	activities := router.Group("/activities")
	activities.Use(opts.RateLimiter.Middleware())
	{
		activities.GET("", opts.ActivityHandler.ListActivities)
		activities.POST("/:activity_name/signup", opts.ActivityHandler.SignUp)
		activities.DELETE("/:activity_name/unregister", opts.ActivityHandler.Unregister)
	}

	return router
}

// serveStatic serves files from dir without directory listings. Unlike
// http.FileServer it answers /index.html directly instead of redirecting
// to the directory.
func serveStatic(dir string) gin.HandlerFunc {
	root := gin.Dir(dir, false)
	return func(c *gin.Context) {
		name := c.Param("filepath")
		if strings.HasSuffix(name, "/") {
			name += "index.html"
		}

		f, err := root.Open(name)
		if err != nil {
			c.Status(http.StatusNotFound)
			return
		}
		defer func() { _ = f.Close() }()

		info, err := f.Stat()
		if err != nil || info.IsDir() {
			c.Status(http.StatusNotFound)
			return
		}
		http.ServeContent(c.Writer, c.Request, info.Name(), info.ModTime(), f)
	}
}
