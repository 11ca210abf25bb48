package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_WritesJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "waveview.logs")

	logger, err := NewLogger(path, "warn", false)
	require.NoError(t, err)

	logger.Info("[test] hidden")
	logger.Warn("[test] shown")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hidden")
	assert.Contains(t, string(data), `"msg":"[test] shown"`)
}

func TestNewLogger_UnknownLevelFallsBackToInfo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "waveview.logs")

	logger, err := NewLogger(path, "loud", false)
	require.NoError(t, err)

	logger.Debug("[test] debug")
	logger.Info("[test] info")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "debug")
	assert.Contains(t, string(data), "[test] info")
}
