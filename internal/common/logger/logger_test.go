package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapAdapter_FieldsAndLevels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewZapAdapter(zap.New(core)).With(map[string]interface{}{"component": "runner"})

	log.Info("source scraped", map[string]interface{}{"source": "PE Hub", "chars": 1200})
	log.WithError(errors.New("boom")).Warn("extraction failed", nil)
	log.Debug("debug line", map[string]interface{}{"err": errors.New("wrapped")})

	entries := logs.All()
	require.Len(t, entries, 3)

	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	ctx := entries[0].ContextMap()
	assert.Equal(t, "runner", ctx["component"])
	assert.Equal(t, "PE Hub", ctx["source"])
	assert.EqualValues(t, 1200, ctx["chars"])

	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, "boom", entries[1].ContextMap()["error"])

	assert.Equal(t, "wrapped", entries[2].ContextMap()["err"])
}

func TestNew_UnknownLevelFallsBackToInfo(t *testing.T) {
	l := New("loud", "json")
	assert.False(t, l.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, l.Core().Enabled(zapcore.InfoLevel))
}

func TestNoOpLogger(t *testing.T) {
	log := NewNoOpLogger()
	assert.NotPanics(t, func() {
		log.WithFields(map[string]interface{}{"a": 1}).Error("ignored", nil)
	})
}
