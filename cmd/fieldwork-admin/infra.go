package main

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"github.com/tidyops/fieldwork/config"
	"github.com/tidyops/fieldwork/internal/bootstrap"
)

// connectInfra wires up infrastructure dependencies for CLI commands. Redis
// connection failures are non-fatal when wantRedis is false.
//
//nolint:ireturn // returning redis.UniversalClient keeps sentinel/cluster support flexible.
func connectInfra(logger *slog.Logger, cfg *config.AppConfig, wantRedis bool) (*sql.DB, redis.UniversalClient, error) {
	db, err := bootstrap.ConnectDB(bootstrap.DatabaseConfig{
		DBConfig: cfg.Postgres,
		Logger:   logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("connect db: %w", err)
	}

	if !wantRedis {
		return db, nil, nil
	}

	redisClient, err := bootstrap.ConnectRedis(bootstrap.DatabaseConfig{
		RedisConfig: cfg.Redis,
		Logger:      logger,
	})
	if err != nil {
		// CLI commands work without the cross-instance guard cache.
		logger.Warn("redis unavailable, continuing without cache", "error", err)
		return db, nil, nil
	}
	return db, redisClient, nil
}

// wireServices connects infrastructure and builds the service container.
// The returned cleanup closes the connections.
func wireServices(ctx *commandContext, cfg *config.AppConfig) (*bootstrap.Services, func(), error) {
	db, redisClient, err := connectInfra(ctx.Logger, cfg, true)
	if err != nil {
		return nil, nil, err
	}

	services, err := bootstrap.NewServices(&bootstrap.ServiceDeps{
		Config:      cfg,
		DB:          db,
		RedisClient: redisClient,
		Logger:      ctx.Logger,
	})
	if err != nil {
		closeQuietly(ctx.Logger, db, redisClient)
		return nil, nil, fmt.Errorf("wire services: %w", err)
	}

	return services, func() { closeQuietly(ctx.Logger, db, redisClient) }, nil
}

func closeQuietly(logger *slog.Logger, db *sql.DB, redisClient redis.UniversalClient) {
	if db != nil {
		if err := db.Close(); err != nil {
			logger.Error("close database failed", "error", err)
		}
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error("close redis failed", "error", err)
		}
	}
}
