package main

import (
	"log"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"lookbook-compensation/pkg/config"
	"lookbook-compensation/pkg/db"
	"lookbook-compensation/pkg/gen"
	"lookbook-compensation/pkg/hashistack/secretmanager"
	"lookbook-compensation/pkg/lock"
	"lookbook-compensation/pkg/logger"
	"lookbook-compensation/pkg/otelcol"
	"lookbook-compensation/pkg/redis"
	"lookbook-compensation/pkg/task"
	"lookbook-compensation/services/compensation"
	"lookbook-compensation/services/earning"
	"lookbook-compensation/services/notification"
	jobs "lookbook-compensation/services/task"
	"lookbook-compensation/services/upload"
)

func main() {
	opts := []fx.Option{
		secretmanager.Module,
		config.Module,
		logger.Module,
		otelcol.Module,
		db.Module,
		redis.Module,
		lock.Module,
		task.Client,
		task.Server,
		gen.Module,

		upload.Module,
		notification.Module,
		earning.Module,
		compensation.Module,
		compensation.Worker,
		jobs.Module,
		jobs.Worker,

		fxLogger,
	}

	if err := fx.ValidateApp(opts...); err != nil {
		log.Fatalf("fx validation failed: %v", err)
	}

	app := fx.New(opts...)

	app.Run()
}

var fxLogger = fx.WithLogger(func(cfg *config.Config, logger *zap.Logger) fxevent.Logger {
	if cfg.AppEnv == "production" {
		return fxevent.NopLogger
	}
	return &fxevent.ZapLogger{Logger: logger}
})
