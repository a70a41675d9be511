package logger

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	gormlogger "gorm.io/gorm/logger"
)

func TestParseLogLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"INFO":    zapcore.InfoLevel,
		"warning": zapcore.WarnLevel,
		"warn":    zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"bogus":   zapcore.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLogLevel(in), in)
	}
}

func TestInitializeWritesToFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "test.log")
	require.NoError(t, Initialize("debug", file))
	defer InitializeForTest()

	assert.True(t, Log.Core().Enabled(zapcore.DebugLevel))
	Log.Info("hello")
	assert.FileExists(t, file)
}

func TestGormLoggerLogMode(t *testing.T) {
	l := NewGormLogger(gormlogger.Warn)
	silent := l.LogMode(gormlogger.Silent).(*GormLogger)

	assert.Equal(t, gormlogger.Silent, silent.Level)
	assert.Equal(t, gormlogger.Warn, l.Level, "LogMode must not mutate the receiver")
}
