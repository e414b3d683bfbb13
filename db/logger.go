package db

import (
	"context"
	"errors"
	"strconv"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var _ gormlogger.Interface = (*queryLogger)(nil)

// queryLogger routes gorm's log output through the shared zap logger, so
// query traces honor the same atomic level as the rest of the process.
type queryLogger struct {
	zl    *zap.Logger
	level *zap.AtomicLevel
}

func newLogger(zl *zap.Logger, level *zap.AtomicLevel) *queryLogger {
	return &queryLogger{zl: zl, level: level}
}

func (l queryLogger) LogMode(mode gormlogger.LogLevel) gormlogger.Interface {
	l.level.SetLevel(gormLevelToZap(mode))
	return l
}

func (l queryLogger) Info(_ context.Context, msg string, args ...interface{}) {
	l.zl.Info(msg, argsToFields(args...)...)
}

func (l queryLogger) Warn(_ context.Context, msg string, args ...interface{}) {
	l.zl.Warn(msg, argsToFields(args...)...)
}

func (l queryLogger) Error(_ context.Context, msg string, args ...interface{}) {
	l.zl.Error(msg, argsToFields(args...)...)
}

// Trace emits executed statements at debug level. Record-not-found is an
// ordinary outcome for lookups and is never logged.
func (l queryLogger) Trace(_ context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.level.Level() > zap.DebugLevel {
		return
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return
	}

	sql, rowsAffected := fc()
	fields := []zap.Field{
		zap.String("sql", sql),
		zap.Int64("rows_affected", rowsAffected),
		zap.Duration("elapsed", time.Since(begin)),
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}

	l.zl.Debug("query", fields...)
}

func gormLevelToZap(mode gormlogger.LogLevel) zapcore.Level {
	switch mode {
	case gormlogger.Error:
		return zap.ErrorLevel
	case gormlogger.Warn:
		return zap.WarnLevel
	default:
		return zap.InfoLevel
	}
}

func argsToFields(args ...interface{}) []zap.Field {
	fields := make([]zap.Field, 0, len(args))
	for i, arg := range args {
		fields = append(fields, zap.Any(strconv.Itoa(i), arg))
	}
	return fields
}
