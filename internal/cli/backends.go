package cli

import (
	"context"
	"fmt"
	"time"

	"llm-stock-prediction/internal/common/config"
	"llm-stock-prediction/internal/common/database"
	"llm-stock-prediction/internal/common/errors"
	"llm-stock-prediction/internal/common/logger"
)

var (
	connectAttempts = 10
	connectDelay    = 2 * time.Second
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(ctx context.Context, operation func() error, maxRetries int, initialDelay time.Duration, log logger.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName), map[string]interface{}{
				"error":       err.Error(),
				"attempt":     i + 1,
				"maxRetries":  maxRetries,
				"nextRetryIn": delay.String(),
			})
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func connectPostgres(ctx context.Context, cfg *config.Config, log logger.Logger) (*database.PostgresClient, error) {
	var pg *database.PostgresClient
	err := retryWithBackoff(ctx, func() error {
		client, err := database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		if err := client.Ping(ctx); err != nil {
			client.Close()
			return err
		}
		pg = client
		return nil
	}, connectAttempts, connectDelay, log, "PostgreSQL connection")
	if err != nil {
		return nil, errors.NewDatabaseConnectionFailedError(err)
	}
	log.Info("PostgreSQL connected successfully", map[string]interface{}{
		"host":     cfg.Database.Postgres.Host,
		"database": cfg.Database.Postgres.Database,
	})
	return pg, nil
}

func connectRedis(ctx context.Context, cfg *config.Config, log logger.Logger) (*database.RedisClient, error) {
	var rdb *database.RedisClient
	err := retryWithBackoff(ctx, func() error {
		client, err := database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		if err := client.Ping(ctx); err != nil {
			client.Close()
			return err
		}
		rdb = client
		return nil
	}, connectAttempts, connectDelay, log, "Redis connection")
	if err != nil {
		return nil, errors.NewDatabaseConnectionFailedError(err)
	}
	log.Info("Redis connected successfully", map[string]interface{}{"address": cfg.Database.Redis.Address})
	return rdb, nil
}
