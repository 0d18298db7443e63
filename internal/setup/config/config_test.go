package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/robalyx/apachemgr/internal/setup/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), config.FileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `version = 1

[server]
status_url = "http://127.0.0.1:8080/server-status"
request_timeout = "3s"

[thresholds]
max_memory_active = "512MiB"
max_time = "2m"

[watch]
interval = "30s"
`)

	cfg, used, err := config.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, path, used)

	assert.Equal(t, "http://127.0.0.1:8080/server-status", cfg.Server.StatusURL)
	assert.Equal(t, 3*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, 2*time.Minute, cfg.Thresholds.MaxTime)
	assert.Equal(t, 30*time.Second, cfg.Watch.Interval)

	// Untouched keys keep their defaults
	assert.Equal(t, "info", cfg.Debug.LogLevel)
	assert.Equal(t, 5*time.Minute, cfg.Thresholds.HangingWorker)
	assert.Equal(t, "/tmp/apachemgr.txt", cfg.Metrics.DataFile)

	active, idle, err := cfg.Thresholds.MemoryLimits()
	require.NoError(t, err)
	assert.Equal(t, uint64(512*1024*1024), active)
	assert.Zero(t, idle)
}

func TestLoadConfigVersion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{name: "missing", content: "[debug]\nlog_level = \"debug\"\n", wantErr: config.ErrConfigVersionMissing},
		{name: "mismatch", content: "version = 7\n", wantErr: config.ErrConfigVersionMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, _, err := config.LoadConfig(writeConfig(t, tt.content))
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	t.Parallel()

	_, _, err := config.LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	require.ErrorIs(t, err, config.ErrConfigFileNotFound)
}

func TestDefault(t *testing.T) {
	t.Parallel()

	cfg := config.Default()

	assert.Equal(t, config.CurrentVersion, cfg.Version)
	assert.Equal(t, []string{"apache2", "httpd"}, cfg.Server.ProcessNames)
	assert.Equal(t, "/etc/apache2/ports.conf", cfg.Server.PortsConfig)
	assert.Equal(t, 10*time.Second, cfg.Watch.Interval)
}

func TestParseSize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    uint64
		wantErr bool
	}{
		{in: "", want: 0},
		{in: "1024", want: 1024},
		{in: "500MiB", want: 500 * 1024 * 1024},
		{in: "1.5GB", want: 1500 * 1000 * 1000},
		{in: "42M", want: 42 * 1000 * 1000},
		{in: "lots", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()

			got, err := config.ParseSize(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, config.ErrInvalidSize)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
