package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestInitialize(t *testing.T) {
	tests := []struct {
		name       string
		jsonOutput bool
	}{
		{name: "JSON output mode", jsonOutput: true},
		{name: "Console output mode", jsonOutput: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Logger = nil
			JSONOutput = false

			err := Initialize(tt.jsonOutput)
			require.NoError(t, err)
			require.NotNil(t, Logger)
			assert.Equal(t, tt.jsonOutput, JSONOutput)

			Cleanup()
		})
	}
}

func TestSetLevel(t *testing.T) {
	require.NoError(t, Initialize(false))
	defer SetLevel(zapcore.InfoLevel)

	SetLevel(zapcore.WarnLevel)
	assert.False(t, Logger.Desugar().Core().Enabled(zapcore.InfoLevel))
	assert.True(t, Logger.Desugar().Core().Enabled(zapcore.WarnLevel))

	SetLevel(zapcore.DebugLevel)
	assert.True(t, Logger.Desugar().Core().Enabled(zapcore.DebugLevel))
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"", zapcore.InfoLevel},
		{"shouting", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestVerbosityToLevel(t *testing.T) {
	tests := []struct {
		verbosity int
		want      zapcore.Level
	}{
		{0, zapcore.WarnLevel},
		{1, zapcore.InfoLevel},
		{2, zapcore.DebugLevel},
		{5, zapcore.DebugLevel},
		{-1, zapcore.WarnLevel},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, VerbosityToLevel(tt.verbosity), "verbosity %d", tt.verbosity)
	}
}

func TestFieldsFromContext(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, FieldsFromContext(ctx))

	ctx = WithOwner(ctx, "npc-7")
	ctx = WithComponent(ctx, "driver")

	fields := FieldsFromContext(ctx)
	assert.Equal(t, []interface{}{FieldOwner, "npc-7", FieldComponent, "driver"}, fields)
}

func TestLoggerFromContext(t *testing.T) {
	require.NoError(t, Initialize(false))

	// No fields means the global logger is returned unchanged
	assert.Same(t, Logger, LoggerFromContext(context.Background()))

	ctx := WithOwner(context.Background(), "npc-7")
	assert.NotSame(t, Logger, LoggerFromContext(ctx))
}

func TestHelpersWithNilLogger(t *testing.T) {
	saved := Logger
	defer func() { Logger = saved }()

	Logger = nil
	assert.NotPanics(t, func() {
		Infow("a")
		Warnw("b")
		Errorw("c")
		Debugw("d")
		Cleanup()
	})
}
