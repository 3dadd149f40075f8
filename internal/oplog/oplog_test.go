package oplog

import (
	"context"
	"errors"
	"testing"

	"github.com/arhaval/yonetim-sub000/pkg/ledger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogOperationLevels(test *testing.T) {
	test.Parallel()
	core, logs := observer.New(zapcore.DebugLevel)
	logger := New(zap.New(core))
	ctx := context.Background()

	logger.LogOperation(ctx, ledger.OperationLog{Operation: "assign_script", ScriptID: "script-1", ActorID: "actor-a", Status: "ok"})
	logger.LogOperation(ctx, ledger.OperationLog{Operation: "ledger", Source: ledger.SourceTeamPayment, Status: "degraded", Error: errors.New("timeout")})
	logger.LogOperation(ctx, ledger.OperationLog{Operation: "create_record", Amount: decimal.RequireFromString("5000"), Status: "error", Error: errors.New("boom")})

	entries := logs.All()
	require.Len(test, entries, 3)
	assert.Equal(test, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(test, "actor-a", entries[0].ContextMap()["actor_id"])
	assert.NotContains(test, entries[0].ContextMap(), "record_id")
	assert.Equal(test, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(test, "team-payment", entries[1].ContextMap()["source"])
	assert.Equal(test, zapcore.ErrorLevel, entries[2].Level)
	assert.Equal(test, "5000", entries[2].ContextMap()["amount"])
	assert.Equal(test, "boom", entries[2].ContextMap()["error"])
	assert.Equal(test, "ledger", entries[2].LoggerName)
}

func TestLogOperationFiltersByField(test *testing.T) {
	test.Parallel()
	core, logs := observer.New(zapcore.DebugLevel)
	logger := New(zap.New(core))
	logger.LogOperation(context.Background(), ledger.OperationLog{Operation: "mark_payment_paid", PaymentID: "payment-1", Status: "ok"})
	logger.LogOperation(context.Background(), ledger.OperationLog{Operation: "mark_payment_paid", PaymentID: "payment-2", Status: "ok"})
	assert.Equal(test, 1, logs.FilterField(zap.String("payment_id", "payment-1")).Len())
}

func TestNewWithNilLogger(test *testing.T) {
	test.Parallel()
	New(nil).LogOperation(context.Background(), ledger.OperationLog{Operation: "ledger", Status: "ok"})
}
