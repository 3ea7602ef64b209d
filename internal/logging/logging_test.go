package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNew_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "signin.log")

	logger, err := New("debug", "development", path)
	require.NoError(t, err)
	logger.Info("hello", zap.String("k", "v"))
	require.NoError(t, logger.Sync())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "hello")
}

func TestNew_UnknownLevelFallsBackToInfo(t *testing.T) {
	logger, err := New("chatty", "production", filepath.Join(t.TempDir(), "x.log"))
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))
}

func TestNew_BadPath(t *testing.T) {
	_, err := New("info", "development", filepath.Join(t.TempDir(), "missing", "dir", "x.log"))
	assert.Error(t, err)
}

func TestComponent_NilLogger(t *testing.T) {
	assert.NotNil(t, Component(nil, "x"))
}
