// Package redis provides the cache client and a JSON object cache used to
// shield the registry API and the scoring pipeline from repeated work.
package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/trialsync/trialsync/internal/config"
	"github.com/trialsync/trialsync/internal/infrastructure/monitoring/logging"
	apperrors "github.com/trialsync/trialsync/pkg/errors"
)

// NewClient opens a go-redis client from configuration and verifies
// connectivity with a ping before returning it.
func NewClient(ctx context.Context, cfg config.RedisConfig, logger logging.Logger) (*redis.Client, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, apperrors.Wrap(err, apperrors.ErrCodeCacheError, "pinging redis")
	}

	logger.Info("redis client ready", logging.String("addr", cfg.Addr))
	return rdb, nil
}
