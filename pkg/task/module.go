package task

import (
	"context"
	"os"
	"time"

	"lookbook-compensation/pkg/config"
	"lookbook-compensation/pkg/taskname"

	"github.com/hibiken/asynq"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	defaultConcurrency     = 10
	defaultShutdownTimeout = 30 * time.Second
)

var Client = fx.Module("asynq:client",
	fx.Provide(registerClient, NewEnqueuer),
)

func redisOpt(cfg *config.Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	}
}

func registerClient(lc fx.Lifecycle, cfg *config.Config) *asynq.Client {
	client := asynq.NewClient(redisOpt(cfg))

	if err := client.Ping(); err != nil {
		zap.L().Error("task queue unreachable", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		os.Exit(1)
	}
	zap.L().Info("task queue client ready", zap.String("addr", cfg.Redis.Addr))

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})
	return client
}

var Server = fx.Module("asynq:server",
	fx.Provide(registerServerMux),
	fx.Invoke(registerAsynqServer),
)

func registerServerMux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.Use(logTask)
	return mux
}

// logTask records how long each task ran and which attempt it was.
func logTask(next asynq.Handler) asynq.Handler {
	return asynq.HandlerFunc(func(ctx context.Context, t *asynq.Task) error {
		log := zap.L().With(zap.String("task_type", t.Type()))
		if id, ok := asynq.GetTaskID(ctx); ok {
			log = log.With(zap.String("task_id", id))
		}
		retry, _ := asynq.GetRetryCount(ctx)

		start := time.Now()
		err := next.ProcessTask(ctx, t)
		fields := []zap.Field{zap.Int("retry", retry), zap.Duration("took", time.Since(start))}
		if err != nil {
			log.Warn("task failed", append(fields, zap.Error(err))...)
			return err
		}
		log.Debug("task done", fields...)
		return nil
	})
}

func serverConfig(cfg *config.Config) asynq.Config {
	concurrency := cfg.Worker.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	shutdown := cfg.Worker.ShutdownTimeout
	if shutdown <= 0 {
		shutdown = defaultShutdownTimeout
	}
	return asynq.Config{
		Concurrency:     concurrency,
		ShutdownTimeout: shutdown,
		RetryDelayFunc:  asynq.DefaultRetryDelayFunc,
		Queues: map[string]int{
			taskname.QueueCritical: 6,
			taskname.QueueDefault:  3,
			taskname.QueueLow:      1,
		},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, t *asynq.Task, err error) {
			retry, _ := asynq.GetRetryCount(ctx)
			maxRetry, _ := asynq.GetMaxRetry(ctx)
			if retry < maxRetry {
				return
			}
			zap.L().Error("task exhausted its retries",
				zap.String("task_type", t.Type()),
				zap.Int("max_retry", maxRetry),
				zap.Error(err),
			)
		}),
	}
}

func registerAsynqServer(lc fx.Lifecycle, cfg *config.Config, mux *asynq.ServeMux) {
	server := asynq.NewServer(redisOpt(cfg), serverConfig(cfg))

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := server.Start(mux); err != nil {
				return err
			}
			zap.L().Info("task worker started",
				zap.String("addr", cfg.Redis.Addr),
				zap.Int("concurrency", serverConfig(cfg).Concurrency),
			)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			server.Shutdown()
			return nil
		},
	})
}
