package di

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"activity-signup-service/cmd/api/infrastructure"
	"activity-signup-service/internal/adapter/cache"
	"activity-signup-service/internal/adapter/db/postgres"
	ginhandler "activity-signup-service/internal/adapter/gin/handler"
	"activity-signup-service/internal/adapter/gin/middleware"
	grpcadapter "activity-signup-service/internal/adapter/grpc"
	"activity-signup-service/internal/adapter/repository/cached"
	"activity-signup-service/internal/config"
	"activity-signup-service/internal/usecase/activity"
	"activity-signup-service/internal/usecase/seed"
	redisclient "activity-signup-service/pkg/redis"
)

// Container holds all application dependencies
type Container struct {
	Config          *config.Config
	Logger          *zap.Logger
	DB              *gorm.DB
	RedisClient     *redisclient.Client // nil when Redis is disabled
	Repository      *cached.ActivityRepository
	Seeder          *seed.Seeder
	ActivityUC      *activity.Usecase
	RateLimiter     *middleware.RateLimiter // nil when Redis is disabled
	ActivityHandler *ginhandler.ActivityHandler
	HealthHandler   *ginhandler.HealthHandler
	Health          *grpcadapter.HealthService
}

// NewContainer creates and initializes all application dependencies
func NewContainer(ctx context.Context, cfg *config.Config, l *zap.Logger) (*Container, error) {
	// Validate configuration before initializing any dependencies
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	// Initialize database
	db, err := infrastructure.NewDatabase(cfg, l)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Initialize Redis client
	rdb, err := infrastructure.NewRedisClient(ctx, cfg, l)
	if err != nil {
		_ = infrastructure.CloseDatabase(db)
		return nil, fmt.Errorf("failed to initialize Redis: %w", err)
	}

	// Initialize repository with the optional listing cache
	dbRepo := postgres.NewActivityRepoPG(db, l)
	var listingCache cache.ActivityCache
	var rateLimiter *middleware.RateLimiter
	if rdb != nil {
		listingCache = cache.NewRedisActivityCache(
			rdb.Client,
			time.Duration(cfg.Redis.CacheTTL)*time.Second,
			l,
		)
		rateLimiter = middleware.NewRateLimiter(
			rdb.Client,
			middleware.RateLimiterConfig{
				RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
				BurstCapacity:     cfg.RateLimit.BurstCapacity,
				Enabled:           cfg.RateLimit.Enabled,
			},
			l,
		)
	}
	repo := cached.NewActivityRepository(dbRepo, listingCache, l)

	// Initialize use cases
	activityUC := activity.New(repo, l)
	seeder := seed.New(dbRepo, l.Named("seed"), seed.DefaultCatalog)

	return &Container{
		Config:          cfg,
		Logger:          l,
		DB:              db,
		RedisClient:     rdb,
		Repository:      repo,
		Seeder:          seeder,
		ActivityUC:      activityUC,
		RateLimiter:     rateLimiter,
		ActivityHandler: ginhandler.NewActivityHandler(activityUC, l),
		HealthHandler:   ginhandler.NewHealthHandler(dbRepo, cfg.Logger.ServiceName, l),
		Health: grpcadapter.NewHealthService(
			dbRepo,
			time.Duration(cfg.App.HealthIntervalSeconds)*time.Second,
			l.Named("health"),
		),
	}, nil
}

// Close closes all resources held by the container
func (c *Container) Close() error {
	var errs []error

	// Close Redis connection
	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close Redis: %w", err))
		}
	}

	// Close database connection
	if c.DB != nil {
		if err := infrastructure.CloseDatabase(c.DB); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("container close errors: %v", errs)
	}

	return nil
}
