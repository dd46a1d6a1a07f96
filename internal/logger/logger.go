// Package logger wraps zap.SugaredLogger with the conventions the rest of
// the engine relies on: constructor injection everywhere except a handful
// of entrypoints that need a global accessor.
package logger

import (
	"context"

	"github.com/fourgeeks/accrual-engine/internal/types"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap.SugaredLogger.
type Logger struct {
	*zap.SugaredLogger
}

// L is the global logger, available for code paths that cannot take a
// constructor argument (e.g. migration scripts). Everywhere else should
// receive a *Logger through dependency injection.
var L *Logger

func init() {
	L, _ = NewLogger(LevelInfo)
}

// Level controls the minimum severity emitted by NewLogger.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
)

// NewLogger builds a production zap config with an ISO8601 timestamp key,
// matching the teacher's logger.NewLogger.
func NewLogger(level Level) (*Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	switch level {
	case LevelDebug:
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	case LevelWarn:
		cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	default:
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	zapLogger, err := cfg.Build()
	if err != nil {
		return nil, err
	}

	return &Logger{SugaredLogger: zapLogger.Sugar()}, nil
}

// GetLogger returns the global logger, initializing it if necessary.
func GetLogger() *Logger {
	if L == nil {
		L, _ = NewLogger(LevelInfo)
	}
	return L
}

// WithContext enriches the logger with request/run identifiers pulled from
// ctx, mirroring the teacher's tenant/request enrichment.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	return &Logger{
		SugaredLogger: l.SugaredLogger.With(
			"request_id", types.GetRequestID(ctx),
			"run_id", types.GetRunID(ctx),
		),
	}
}
