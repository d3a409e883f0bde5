package log

import (
	"context"
	"log/slog"
)

type ContextKey string

// LoggerContextKey carries the request-scoped *Logger.
const LoggerContextKey ContextKey = "logger"

// NewContext returns a copy of ctx carrying logger.
func NewContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, LoggerContextKey, logger)
}

// FromContext returns the logger stored by NewContext, or a logger over
// slog.Default tagged "unknown".
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(LoggerContextKey).(*Logger); ok {
		return logger
	}
	return &Logger{Logger: slog.Default(), component: "unknown"}
}

// StructuredLogger writes the ledger-level audit lines of the dashboard API.
type StructuredLogger struct {
	logger *Logger
}

func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{logger: logger}
}

// LogMutation records a voucher or expense change accepted by the remote
// service. amountCents is zero for deletions.
func (sl *StructuredLogger) LogMutation(ctx context.Context, kind, op, id string, amountCents int64) {
	fields := NewFields().
		WithComponent(ComponentLedger).
		WithOperation(op).
		WithRecord(kind, id)
	if amountCents != 0 {
		fields[FieldAmountCents] = amountCents
	}
	sl.logger.InfoContext(ctx, "Ledger record saved", fields.ToSlice()...)
}

func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, component, operation string, fields LogFields) {
	fields = fields.
		WithError(err).
		WithOperation(operation).
		WithComponent(component)
	sl.logger.ErrorContext(ctx, msg, fields.ToSlice()...)
}
