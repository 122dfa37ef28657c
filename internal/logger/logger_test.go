package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogger_KeyValues(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	log := New(zap.New(core)).With("component", "market")

	log.Debug("tx rejected", "op", "mint", "kind", "OutputMismatch")
	log.Info("tx committed", "op", "burn", "seq", uint64(7))

	entries := logs.All()
	require.Len(t, entries, 2)

	assert.Equal(t, "tx rejected", entries[0].Message)
	assert.Equal(t, zap.DebugLevel, entries[0].Level)
	fields := entries[0].ContextMap()
	assert.Equal(t, "market", fields["component"])
	assert.Equal(t, "OutputMismatch", fields["kind"])

	assert.Equal(t, uint64(7), entries[1].ContextMap()["seq"])
}

func TestNewLogger_Level(t *testing.T) {
	log, err := NewLogger(false, "warn")
	require.NoError(t, err)
	assert.False(t, log.SugaredLogger.Desugar().Core().Enabled(zap.InfoLevel))
	assert.True(t, log.SugaredLogger.Desugar().Core().Enabled(zap.WarnLevel))

	_, err = NewLogger(false, "loud")
	assert.Error(t, err)
}

func TestNewNop(t *testing.T) {
	assert.NotPanics(t, func() {
		NewNop().Error("ignored", "k", 1)
	})
}
