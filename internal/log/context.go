package log

import (
	"context"
	"log/slog"
)

// ContextKey type for context keys
type ContextKey string

const (
	// LoggerContextKey is the context key for the logger
	LoggerContextKey ContextKey = "logger"
)

// NewContext stores logger in ctx
func NewContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, LoggerContextKey, logger)
}

// FromContext extracts a logger from the request context
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(LoggerContextKey).(*Logger); ok {
		return logger
	}
	return &Logger{
		Logger:    slog.Default(),
		component: "unknown",
	}
}

// StructuredLogger provides domain-level logging helpers
type StructuredLogger struct {
	logger *Logger
}

// NewStructuredLogger creates a new structured logger
func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{
		logger: logger,
	}
}

// LogAllocation logs a ledger write and the resulting aggregate
func (sl *StructuredLogger) LogAllocation(ctx context.Context, scorecardID string, revision int64, key string, pct, budget, allocated float64, balanced bool) {
	fields := NewFields().
		WithScorecard(scorecardID, revision).
		WithAllocation(key, pct, budget, allocated, balanced).
		WithOperation(OpAllocate)

	level := slog.LevelInfo
	if allocated > 100 {
		level = slog.LevelWarn
	}
	sl.logger.Fields(ctx, level, "Allocation updated", fields)
}

// LogExport logs a completed export
func (sl *StructuredLogger) LogExport(ctx context.Context, scorecardID string, revision int64, exporter, ref string) {
	fields := NewFields().
		WithScorecard(scorecardID, revision).
		WithOperation(OpExport)
	fields[FieldExporter] = exporter
	fields[FieldExportRef] = ref

	sl.logger.Fields(ctx, slog.LevelInfo, "Scorecard exported", fields)
}

// LogError logs an error with structured context
func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, operation string, fields LogFields) {
	if fields == nil {
		fields = NewFields()
	}
	sl.logger.Fields(ctx, slog.LevelError, msg, fields.WithError(err).WithOperation(operation))
}
