package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func tracedContext() context.Context {
	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	return trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID,
		SpanID:  spanID,
	}))
}

func TestQueryLoggerTrace(t *testing.T) {
	stmt := func() (string, int64) { return "UPDATE member_earnings SET payed = true", 2 }

	t.Run("error carries trace id", func(t *testing.T) {
		core, logs := observer.New(zapcore.DebugLevel)
		l := NewQueryLogger(zap.New(core), gormlogger.Warn, time.Second, false)

		l.Trace(tracedContext(), time.Now(), stmt, errors.New("disk I/O error"))

		require.Equal(t, 1, logs.Len())
		entry := logs.All()[0]
		require.Equal(t, zapcore.ErrorLevel, entry.Level)
		require.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", entry.ContextMap()["trace_id"])
		require.Equal(t, "UPDATE member_earnings SET payed = true", entry.ContextMap()["sql"])
	})

	t.Run("duplicate key is debug", func(t *testing.T) {
		core, logs := observer.New(zapcore.DebugLevel)
		l := NewQueryLogger(zap.New(core), gormlogger.Warn, time.Second, false)

		l.Trace(context.Background(), time.Now(), stmt, gorm.ErrDuplicatedKey)

		require.Equal(t, 1, logs.Len())
		require.Equal(t, zapcore.DebugLevel, logs.All()[0].Level)
	})

	t.Run("slow query", func(t *testing.T) {
		core, logs := observer.New(zapcore.DebugLevel)
		l := NewQueryLogger(zap.New(core), gormlogger.Warn, time.Millisecond, false)

		l.Trace(context.Background(), time.Now().Add(-time.Second), stmt, nil)

		require.Equal(t, 1, logs.Len())
		require.Equal(t, "db.slow_query", logs.All()[0].Message)
	})

	t.Run("silent", func(t *testing.T) {
		core, logs := observer.New(zapcore.DebugLevel)
		l := NewQueryLogger(zap.New(core), gormlogger.Warn, time.Second, true).LogMode(gormlogger.Silent)

		l.Trace(context.Background(), time.Now(), stmt, errors.New("boom"))
		require.Zero(t, logs.Len())
	})
}
