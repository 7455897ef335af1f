package logger

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"nftmarket/internal/config"
)

func TestNew_FallsBackToInfoOnUnknownLevel(t *testing.T) {
	l, err := New(config.LogConfig{Level: "loud", Encoding: "json"})
	require.NoError(t, err)
	require.True(t, l.Core().Enabled(zapcore.InfoLevel))
	require.False(t, l.Core().Enabled(zapcore.DebugLevel))
}

func TestNew_DebugConsole(t *testing.T) {
	l, err := New(config.LogConfig{Level: "DEBUG", Encoding: "console", Development: true})
	require.NoError(t, err)
	require.True(t, l.Core().Enabled(zapcore.DebugLevel))
}

func TestOrNop(t *testing.T) {
	require.NotNil(t, OrNop(nil))
}
