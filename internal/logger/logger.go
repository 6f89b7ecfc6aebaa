// Package logger provides context-carried structured logging for the
// dispatch engine.
package logger

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const loggerKey contextKey = "logger"

// PrepareLogger creates a new ZAP logger and stores it in the context.
// It returns a new context with the logger and the logger itself.
//
// Usage:
//
//	ctx, log := logger.PrepareLogger(ctx)
//	log.Info("engine starting")
func PrepareLogger(ctx context.Context) (context.Context, *zap.Logger) {
	log := NewLoggerFromEnv()
	return context.WithValue(ctx, loggerKey, log), log
}

// PrepareLoggerWithConfig creates a new ZAP logger with a custom config and
// stores it in the context.
func PrepareLoggerWithConfig(ctx context.Context, config zap.Config) (context.Context, *zap.Logger) {
	log, err := config.Build()
	if err != nil {
		log = NewProductionLogger()
		log.Error("failed to build logger from config, using production logger", zap.Error(err))
	}
	return context.WithValue(ctx, loggerKey, log), log
}

// GetLogger retrieves the logger from the context.
// If no logger is found, it creates a new production logger and returns it.
// This ensures GetLogger never returns nil.
func GetLogger(ctx context.Context) *zap.Logger {
	if ctx == nil {
		return NewProductionLogger()
	}

	if log, ok := ctx.Value(loggerKey).(*zap.Logger); ok && log != nil {
		return log
	}

	return NewProductionLogger()
}

// WithFields creates a sub-logger with additional fields from the parent
// logger in context. The sub-logger is stored back in the context.
func WithFields(ctx context.Context, fields ...zap.Field) context.Context {
	log := GetLogger(ctx)
	sub := log.With(fields...)
	return context.WithValue(ctx, loggerKey, sub)
}

// WithComponent creates a sub-logger with a "component" field. Useful for
// organizing logs by component (dispatch, lifecycle, scheduler, pushbus).
func WithComponent(ctx context.Context, component string) context.Context {
	return WithFields(ctx, zap.String("component", component))
}

// WithAlert adds the alert id to the logger in context.
func WithAlert(ctx context.Context, alertID string) context.Context {
	return WithFields(ctx, zap.String("alert_id", alertID))
}

// WithTree adds the tree id to the logger in context.
func WithTree(ctx context.Context, treeID string) context.Context {
	return WithFields(ctx, zap.String("tree_id", treeID))
}

// WithVolunteer adds the volunteer id to the logger in context.
func WithVolunteer(ctx context.Context, volunteerID string) context.Context {
	return WithFields(ctx, zap.String("volunteer_id", volunteerID))
}

// NewProductionLogger creates a new production-ready ZAP logger.
// It logs at INFO level and above to stderr in JSON format.
func NewProductionLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	log, err := config.Build()
	if err != nil {
		return zap.NewNop()
	}

	return log
}

// NewDevelopmentLogger creates a new development-friendly ZAP logger.
// It logs at DEBUG level and above to stderr in human-readable console format.
func NewDevelopmentLogger() *zap.Logger {
	config := zap.NewDevelopmentConfig()
	config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder

	log, err := config.Build()
	if err != nil {
		return zap.NewNop()
	}

	return log
}

// NewLoggerFromEnv creates a logger based on the TREEWATCH_ENV environment
// variable. If TREEWATCH_ENV=development, it creates a development logger.
// Otherwise, it creates a production logger.
func NewLoggerFromEnv() *zap.Logger {
	env := os.Getenv("TREEWATCH_ENV")
	if env == "development" || env == "dev" {
		return NewDevelopmentLogger()
	}
	return NewProductionLogger()
}

// Sync flushes any buffered log entries from the logger in the context.
// This should be called before application shutdown.
func Sync(ctx context.Context) error {
	log := GetLogger(ctx)
	return log.Sync()
}

// Fatal logs a fatal message and exits the application.
func Fatal(ctx context.Context, msg string, fields ...zap.Field) {
	log := GetLogger(ctx)
	log.Fatal(msg, fields...)
}

// Fatalf logs a fatal message with fmt.Sprintf formatting and exits the
// application.
func Fatalf(ctx context.Context, format string, args ...interface{}) {
	log := GetLogger(ctx)
	log.Fatal(fmt.Sprintf(format, args...))
}

// WithLogger stores an existing logger in the context. Useful when you
// already have a logger instance you want to propagate.
func WithLogger(ctx context.Context, log *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, log)
}
