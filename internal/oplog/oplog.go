// Package oplog adapts zap to the ledger operation logger.
package oplog

import (
	"context"

	"github.com/arhaval/yonetim-sub000/pkg/ledger"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	statusError    = "error"
	statusDegraded = "degraded"
)

// Logger writes one structured line per service operation.
type Logger struct {
	logger *zap.Logger
}

var _ ledger.OperationLogger = (*Logger)(nil)

// New wraps logger. A nil logger discards every entry.
func New(logger *zap.Logger) *Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Logger{logger: logger.Named("ledger")}
}

// LogOperation logs failures at error, degraded reads at warn, and the rest at debug.
func (l *Logger) LogOperation(ctx context.Context, entry ledger.OperationLog) {
	fields := []zap.Field{
		zap.String("operation", entry.Operation),
		zap.String("status", entry.Status),
	}
	fields = appendNonEmpty(fields, "record_id", entry.RecordID)
	fields = appendNonEmpty(fields, "payment_id", entry.PaymentID)
	fields = appendNonEmpty(fields, "script_id", entry.ScriptID)
	fields = appendNonEmpty(fields, "actor_id", entry.ActorID)
	fields = appendNonEmpty(fields, "source", string(entry.Source))
	if !entry.Amount.IsZero() {
		fields = append(fields, zap.String("amount", entry.Amount.String()))
	}
	if entry.Error != nil {
		fields = append(fields, zap.Error(entry.Error))
	}

	level := zapcore.DebugLevel
	switch entry.Status {
	case statusError:
		level = zapcore.ErrorLevel
	case statusDegraded:
		level = zapcore.WarnLevel
	}
	if checked := l.logger.Check(level, "ledger operation"); checked != nil {
		checked.Write(fields...)
	}
}

func appendNonEmpty(fields []zap.Field, key string, value string) []zap.Field {
	if value == "" {
		return fields
	}
	return append(fields, zap.String(key, value))
}
