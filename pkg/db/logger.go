package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lookbook-compensation/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/gorm/utils"
)

const defaultSlowThreshold = 200 * time.Millisecond

// QueryLogger routes gorm's logging through zap, tagged with the trace of
// the request that issued the query.
type QueryLogger struct {
	zap           *zap.Logger
	level         gormlogger.LogLevel
	slowThreshold time.Duration
	showSQL       bool
}

func NewQueryLogger(z *zap.Logger, level gormlogger.LogLevel, slowThreshold time.Duration, showSQL bool) *QueryLogger {
	if slowThreshold <= 0 {
		slowThreshold = defaultSlowThreshold
	}
	return &QueryLogger{zap: z, level: level, slowThreshold: slowThreshold, showSQL: showSQL}
}

func (l *QueryLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	cp := *l
	cp.level = level
	return &cp
}

func (l *QueryLogger) with(ctx context.Context) *zap.Logger {
	return l.zap.With(logger.TraceFields(ctx)...)
}

func (l *QueryLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= gormlogger.Info {
		l.with(ctx).Info(fmt.Sprintf(msg, data...))
	}
}

func (l *QueryLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= gormlogger.Warn {
		l.with(ctx).Warn(fmt.Sprintf(msg, data...))
	}
}

func (l *QueryLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= gormlogger.Error {
		l.with(ctx).Error(fmt.Sprintf(msg, data...))
	}
}

// Trace logs failed and slow statements. Missing rows and unique violations
// are how the ledger detects duplicates, so they stay at debug.
func (l *QueryLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()
	fields := []zap.Field{
		zap.String("file", utils.FileWithLineNum()),
		zap.String("sql", sql),
		zap.Int64("rows", rows),
		zap.Float64("duration_ms", float64(elapsed.Microseconds())/1000),
	}
	log := l.with(ctx)

	switch {
	case err != nil && (errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, gorm.ErrDuplicatedKey)):
		log.Debug("db.query", append(fields, zap.Error(err))...)
	case err != nil && l.level >= gormlogger.Error:
		log.Error("db.query", append(fields, zap.Error(err))...)
	case elapsed > l.slowThreshold && l.level >= gormlogger.Warn:
		log.Warn("db.slow_query", append(fields, zap.Duration("threshold", l.slowThreshold))...)
	case l.showSQL && l.level >= gormlogger.Info:
		log.Info("db.query", fields...)
	}
}
