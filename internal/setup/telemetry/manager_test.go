package telemetry_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/robalyx/apachemgr/internal/setup/config"
	"github.com/robalyx/apachemgr/internal/setup/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestGetLoggerLevels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		level     string
		verbosity int
		enabled   zapcore.Level
		disabled  zapcore.Level
	}{
		{name: "configured", level: "info", enabled: zapcore.InfoLevel, disabled: zapcore.DebugLevel},
		{name: "verbose", level: "info", verbosity: 1, enabled: zapcore.DebugLevel, disabled: zapcore.DebugLevel - 1},
		{name: "quiet", level: "info", verbosity: -2, enabled: zapcore.ErrorLevel, disabled: zapcore.WarnLevel},
		{name: "clamped", level: "debug", verbosity: 5, enabled: zapcore.DebugLevel, disabled: zapcore.DebugLevel - 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			lm := telemetry.NewManager(&config.Debug{LogLevel: tt.level}, tt.verbosity)

			log, err := lm.GetLogger()
			require.NoError(t, err)

			assert.True(t, log.Core().Enabled(tt.enabled))
			assert.False(t, log.Core().Enabled(tt.disabled))
			assert.Empty(t, lm.SessionDir())
		})
	}
}

func TestGetLoggerInvalidLevel(t *testing.T) {
	t.Parallel()

	_, err := telemetry.NewManager(&config.Debug{LogLevel: "loud"}, 0).GetLogger()
	require.Error(t, err)
}

func TestGetLoggerWritesSessionFile(t *testing.T) {
	t.Parallel()

	logDir := t.TempDir()
	for _, old := range []string{"2020-01-01_00-00-00", "2020-01-02_00-00-00", "2020-01-03_00-00-00"} {
		require.NoError(t, os.Mkdir(filepath.Join(logDir, old), 0o755))
	}

	lm := telemetry.NewManager(&config.Debug{
		LogLevel:      "info",
		LogDir:        logDir,
		MaxLogsToKeep: 2,
		MaxLogLines:   100,
	}, 0)

	log, err := lm.GetLogger()
	require.NoError(t, err)

	log.Info("Killed workers")
	require.NoError(t, lm.Close())

	data, err := os.ReadFile(filepath.Join(lm.SessionDir(), "main.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Killed workers")
	assert.Contains(t, string(data), lm.InstanceID())

	sessions, err := os.ReadDir(logDir)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "2020-01-03_00-00-00", sessions[0].Name())
}
