package infrastructure

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"activity-signup-service/internal/config"
	redisclient "activity-signup-service/pkg/redis"
)

// NewRedisClient connects to Redis when it is enabled. It returns a nil
// client and no error when REDIS_ENABLED is false.
func NewRedisClient(ctx context.Context, cfg *config.Config, l *zap.Logger) (*redisclient.Client, error) {
	if !cfg.Redis.Enabled {
		l.Info("Redis disabled, listing cache and rate limiter are off")
		return nil, nil
	}

	redisConfig := redisclient.Config{
		Host:        cfg.Redis.Host,
		Port:        cfg.Redis.Port,
		Password:    cfg.Redis.Password,
		DB:          cfg.Redis.DB,
		MaxRetries:  cfg.Redis.MaxRetries,
		PoolSize:    cfg.Redis.PoolSize,
		MinIdleConn: cfg.Redis.MinIdleConn,
	}

	rdb, err := redisclient.NewClient(ctx, redisConfig, l)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return rdb, nil
}
