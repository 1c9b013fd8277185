// Command seed creates the schema and loads the initial activity catalog
// into an empty database. It exits non-zero when anything fails.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"activity-signup-service/cmd/api/infrastructure"
	"activity-signup-service/internal/adapter/cache"
	"activity-signup-service/internal/adapter/db/postgres"
	"activity-signup-service/internal/config"
	"activity-signup-service/internal/usecase/seed"
	"activity-signup-service/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error initializing database: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "."
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	l, err := logger.NewWithConfig(logger.Config{
		Level:          cfg.Logger.Level,
		Format:         cfg.Logger.Format,
		OutputPath:     cfg.Logger.OutputPath,
		ServiceName:    cfg.Logger.ServiceName + "-seed",
		ServiceVersion: cfg.Logger.ServiceVersion,
		Environment:    os.Getenv("APP_ENV"),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = l.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := infrastructure.NewDatabase(cfg, l)
	if err != nil {
		return err
	}
	defer func() { _ = infrastructure.CloseDatabase(db) }()
	l.Info("tables created")

	repo := postgres.NewActivityRepoPG(db, l)
	res, err := seed.New(repo, l, seed.DefaultCatalog).Run(ctx)
	if err != nil {
		l.Error("seeding failed", zap.Error(err))
		return err
	}

	if res.Skipped {
		l.Info("seed skipped", zap.Int64("existing_activities", res.ExistingActivities))
		return nil
	}
	l.Info("seed complete",
		zap.Int("users_created", res.UsersCreated),
		zap.Int("activities_created", res.ActivitiesCreated),
	)

	// A running API with Redis may hold a listing from before this seed
	rdb, err := infrastructure.NewRedisClient(ctx, cfg, l)
	if err != nil {
		l.Warn("could not reach Redis to invalidate the listing cache", zap.Error(err))
		return nil
	}
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
		if err := cache.NewRedisActivityCache(rdb.Client, 0, l).Invalidate(ctx); err != nil {
			l.Warn("failed to invalidate listing cache", zap.Error(err))
		}
	}

	return nil
}
