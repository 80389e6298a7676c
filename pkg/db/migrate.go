package db

import (
	"os"

	"lookbook-compensation/pkg/config"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AsModel registers a gorm model for auto-migration at startup.
func AsModel(model any) fx.Option {
	return fx.Provide(fx.Annotate(
		func() any { return model },
		fx.ResultTags(`group:"models"`),
	))
}

type migrationParams struct {
	fx.In
	DB     *gorm.DB
	Config *config.Config
	Models []any `group:"models"`
}

func registerMigrations(p migrationParams) {
	if !p.Config.Database.AutoMigrate {
		return
	}

	if err := Migrate(p.DB, p.Models...); err != nil {
		zap.L().Error("[DB] Failed to migrate schema", zap.Error(err))
		os.Exit(1)
	}
}

func Migrate(db *gorm.DB, models ...any) error {
	if len(models) == 0 {
		return nil
	}

	zap.L().Info("[DB] Migrating schema", zap.Int("models", len(models)))
	return db.AutoMigrate(models...)
}
