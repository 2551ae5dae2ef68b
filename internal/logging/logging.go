// Package logging wraps zap with the request-scoped context convention the
// rest of the engine relies on: a logger tagged with "component" is built
// once per package, stashed into the request context by the API middleware,
// and retrieved deeper in the call stack via Context(ctx) instead of being
// threaded through every function signature.
package logging

import (
	"context"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/hachrisjordan/award-itin-engine/internal/config"
)

type ctxKey struct{}

// Logger is the structured logging interface every package in this module
// depends on instead of *zap.Logger directly.
type Logger interface {
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
	With(fields ...interface{}) Logger
	SetIntoContext(ctx context.Context) context.Context
}

// Context returns the logger stashed in ctx, or a no-op logger if none was
// set (e.g. in unit tests that don't go through the HTTP middleware).
func Context(ctx context.Context) Logger {
	if l, ok := ctx.Value(ctxKey{}).(Logger); ok {
		return l
	}
	return &logger{logger: zap.NewNop()}
}

type logger struct {
	logger *zap.Logger
}

// New builds the process logger from the log section of Config.
func New(cfg config.Config) (Logger, error) {
	var level zapcore.Level
	switch cfg.Log.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var encoderConfig zapcore.EncoderConfig
	if cfg.Log.Format == "json" {
		encoderConfig = zap.NewProductionEncoderConfig()
	} else {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
	}
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if cfg.Log.Format == "json" {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	} else {
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), level)

	return &logger{logger: zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))}, nil
}

func (l *logger) SetIntoContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

func (l *logger) Debug(msg string, fields ...interface{}) { l.logger.Debug(msg, l.convert(fields...)...) }
func (l *logger) Info(msg string, fields ...interface{})  { l.logger.Info(msg, l.convert(fields...)...) }
func (l *logger) Warn(msg string, fields ...interface{})  { l.logger.Warn(msg, l.convert(fields...)...) }
func (l *logger) Error(msg string, fields ...interface{}) { l.logger.Error(msg, l.convert(fields...)...) }

func (l *logger) With(fields ...interface{}) Logger {
	return &logger{logger: l.logger.With(l.convert(fields...)...)}
}

func (l *logger) convert(fields ...interface{}) []zap.Field {
	if len(fields)%2 != 0 {
		fields = append(fields, nil)
	}
	zapFields := make([]zap.Field, 0, len(fields)/2)
	for i := 0; i < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			continue
		}
		zapFields = append(zapFields, zap.Any(key, fields[i+1]))
	}
	return zapFields
}
