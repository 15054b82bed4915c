package log

import (
	"context"
	"log/slog"
)

// StructuredLogger provides domain-aware logging methods on top of Logger.
// Services use it for the ledger audit trail so every write is logged
// with the same field names.
type StructuredLogger struct {
	logger *Logger
}

// NewStructuredLogger creates a new structured logger
func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{
		logger: logger,
	}
}

// Default returns a structured logger for the given component backed by
// the process-wide slog handler.
func Default(component string) *StructuredLogger {
	return NewStructuredLogger(&Logger{
		Logger:    slog.Default(),
		component: component,
	})
}

// LogTransactionRecorded logs a successful transaction write
func (sl *StructuredLogger) LogTransactionRecorded(ctx context.Context, id, walletID int64, txType string, amountCents int64) {
	fields := NewFields().
		WithTransaction(id, walletID, txType, amountCents).
		WithOperation(OpCreate).
		WithComponent(ComponentLedger)

	sl.logger.Logger.InfoContext(ctx, "Transaction recorded", fields.ToSlice()...)
}

// LogTransactionRemoved logs a transaction delete and its balance rollback
func (sl *StructuredLogger) LogTransactionRemoved(ctx context.Context, id int64) {
	fields := NewFields().
		WithOperation(OpDelete).
		WithComponent(ComponentLedger)
	fields[FieldTransactionID] = id

	sl.logger.Logger.InfoContext(ctx, "Transaction removed", fields.ToSlice()...)
}

// LogTransactionExported logs a row landing in the export sheet
func (sl *StructuredLogger) LogTransactionExported(ctx context.Context, id int64, rowRef string) {
	fields := NewFields().
		WithSheetsRef(rowRef).
		WithOperation(OpAppend).
		WithComponent(ComponentWorker)
	fields[FieldTransactionID] = id

	sl.logger.Logger.InfoContext(ctx, "Transaction exported", fields.ToSlice()...)
}

// LogError logs an error with structured context
func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, component string, operation string, fields LogFields) {
	allFields := fields.
		WithError(err).
		WithOperation(operation).
		WithComponent(component)

	sl.logger.Logger.ErrorContext(ctx, msg, allFields.ToSlice()...)
}
