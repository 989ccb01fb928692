package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Somnusochi/auto-novel/sym"
)

func TestInitialize(t *testing.T) {
	for _, jsonOutput := range []bool{true, false} {
		require.NoError(t, Initialize(jsonOutput))
		assert.NotNil(t, Logger)
		assert.Equal(t, jsonOutput, JSONOutput)
	}
	t.Cleanup(func() { Logger = zap.NewNop().Sugar() })
}

func TestVerbosityToLevel(t *testing.T) {
	assert.Equal(t, zapcore.WarnLevel, VerbosityToLevel(0))
	assert.Equal(t, zapcore.InfoLevel, VerbosityToLevel(1))
	assert.Equal(t, zapcore.DebugLevel, VerbosityToLevel(2))
	assert.Equal(t, zapcore.DebugLevel, VerbosityToLevel(7))
	assert.Equal(t, "Info (-v)", LevelName(1))
}

func TestFieldsFromContext(t *testing.T) {
	ctx := WithJobID(context.Background(), "job-1")
	ctx = WithWorkerID(ctx, "worker-1")

	fields := FieldsFromContext(ctx)
	assert.Equal(t, []interface{}{FieldJobID, "job-1", FieldWorkerID, "worker-1"}, fields)
	assert.Empty(t, FieldsFromContext(context.Background()))
}

func TestSymbolWrappersTagEntries(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	base := zap.New(core).Sugar()

	AddSakuraSymbol(base).Infow("job submitted")
	AddDispatchOpenSymbol(base).Infow("dispatcher started")
	AddDispatchCloseSymbol(base).Infow("dispatcher stopped")

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, sym.Sakura, entries[0].ContextMap()[FieldSymbol])
	assert.Equal(t, sym.DispatchOpen, entries[1].ContextMap()[FieldSymbol])
	assert.Equal(t, sym.DispatchClose, entries[2].ContextMap()[FieldSymbol])
}

func TestLoggerFromContext(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	base := zap.New(core).Sugar()

	LoggerFromContext(WithJobID(context.Background(), "job-9"), base).Infow("claimed")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "job-9", logs.All()[0].ContextMap()[FieldJobID])
}
