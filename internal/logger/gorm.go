package logger

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// GormLogger routes gorm's query log into the global zap logger
type GormLogger struct {
	Level         gormlogger.LogLevel
	SlowThreshold time.Duration
}

// NewGormLogger returns a gorm logger that reports warnings and slow queries
func NewGormLogger(level gormlogger.LogLevel) *GormLogger {
	return &GormLogger{Level: level, SlowThreshold: 200 * time.Millisecond}
}

// LogMode implements gormlogger.Interface
func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.Level = level
	return &clone
}

func (l *GormLogger) Info(_ context.Context, msg string, args ...interface{}) {
	if l.Level >= gormlogger.Info {
		Log.Sugar().Infof(msg, args...)
	}
}

func (l *GormLogger) Warn(_ context.Context, msg string, args ...interface{}) {
	if l.Level >= gormlogger.Warn {
		Log.Sugar().Warnf(msg, args...)
	}
}

func (l *GormLogger) Error(_ context.Context, msg string, args ...interface{}) {
	if l.Level >= gormlogger.Error {
		Log.Sugar().Errorf(msg, args...)
	}
}

// Trace logs each executed statement according to level and duration
func (l *GormLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.Level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && l.Level >= gormlogger.Error:
		sql, rows := fc()
		Log.Error("gorm query failed",
			zap.Error(err),
			zap.Duration("elapsed", elapsed),
			zap.Int64("rows", rows),
			zap.String("sql", sql),
		)
	case l.SlowThreshold > 0 && elapsed > l.SlowThreshold && l.Level >= gormlogger.Warn:
		sql, rows := fc()
		Log.Warn("gorm slow query",
			zap.Duration("elapsed", elapsed),
			zap.Int64("rows", rows),
			zap.String("sql", sql),
		)
	case l.Level >= gormlogger.Info:
		sql, rows := fc()
		Log.Debug("gorm query",
			zap.Duration("elapsed", elapsed),
			zap.Int64("rows", rows),
			zap.String("sql", sql),
		)
	}
}
