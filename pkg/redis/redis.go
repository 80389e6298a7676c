package redis

import (
	"context"
	"fmt"
	"time"

	"lookbook-compensation/pkg/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	pingTimeout = 2 * time.Second
	retryWait   = 3 * time.Second
)

var Module = fx.Module("redis",
	fx.Provide(New),
)

func Options(c *config.Config) *redis.Options {
	return &redis.Options{
		Addr:        c.Redis.Addr,
		Password:    c.Redis.Password,
		DB:          c.Redis.DB,
		PoolSize:    c.Redis.PoolSize,
		PoolTimeout: c.Redis.PoolTimeout,
	}
}

// New connects to REDIS.ADDR. The payout lock and the readiness check depend on
// it, so startup fails once REDIS.DIAL_RETRIES pings have failed.
func New(lc fx.Lifecycle, c *config.Config) (*redis.Client, error) {
	rdb := redis.NewClient(Options(c))

	attempts := c.Redis.DialRetries
	if attempts <= 0 {
		attempts = 1
	}
	if err := connect(context.Background(), rdb, attempts, retryWait); err != nil {
		_ = rdb.Close()
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return rdb.Close()
		},
	})
	return rdb, nil
}

func connect(ctx context.Context, rdb *redis.Client, attempts int, wait time.Duration) error {
	log := zap.L().With(
		zap.String("addr", rdb.Options().Addr),
		zap.Int("db", rdb.Options().DB),
		zap.Int("pool_size", rdb.Options().PoolSize),
	)

	var err error
	for i := 1; i <= attempts; i++ {
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		err = rdb.Ping(pingCtx).Err()
		cancel()
		if err == nil {
			log.Info("[Redis] connected")
			return nil
		}
		if i == attempts {
			break
		}
		log.Warn("[Redis] not ready, retrying", zap.Int("attempt", i), zap.Duration("wait", wait), zap.Error(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return fmt.Errorf("redis %s unreachable after %d attempts: %w", rdb.Options().Addr, attempts, err)
}
