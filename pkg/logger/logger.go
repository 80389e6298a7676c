package logger

import (
	"lookbook-compensation/pkg/config"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var Module = fx.Module("zap",
	fx.Provide(New),
)

type ConfigParams struct {
	fx.In
	Cfg *config.Config
}

// New builds the process logger and installs it as the zap global. Production
// emits JSON with severity/timestamp keys; everything else is the console
// development encoder.
func New(p ConfigParams) *zap.Logger {
	cfg := p.Cfg
	if cfg == nil {
		cfg = &config.Config{}
	}

	log, err := build(cfg)
	if err != nil {
		panic(err)
	}

	log = log.With(serviceFields(cfg)...)
	zap.ReplaceGlobals(log)
	return log
}

func build(cfg *config.Config) (*zap.Logger, error) {
	zc := zap.NewDevelopmentConfig()
	if cfg.AppEnv == "production" {
		zc = zap.NewProductionConfig()
		zc.EncoderConfig.TimeKey = "timestamp"
		zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		zc.EncoderConfig.LevelKey = "severity"
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		zc.EncoderConfig.StacktraceKey = "stacktrace"
		zc.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder
		zc.OutputPaths = []string{"stdout"}
		zc.ErrorOutputPaths = []string{"stderr"}
	}

	if cfg.LogLevel != "" {
		lvl, err := zap.ParseAtomicLevel(cfg.LogLevel)
		if err != nil {
			return nil, err
		}
		zc.Level = lvl
	}
	return zc.Build()
}

func serviceFields(cfg *config.Config) []zap.Field {
	fields := []zap.Field{
		zap.String("env", cfg.AppEnv),
		zap.String("service_name", cfg.AppName),
	}
	if cfg.AppVersion != "" {
		fields = append(fields, zap.String("app_version", cfg.AppVersion))
	}
	if cfg.NodeID != 0 {
		fields = append(fields, zap.Int64("node_id", cfg.NodeID))
	}
	return fields
}
