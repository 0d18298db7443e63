package metrics_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/robalyx/apachemgr/internal/metrics"
	"github.com/robalyx/apachemgr/internal/status"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport() metrics.Report {
	return metrics.Report{
		Server: status.ServerMetrics{BusyWorkers: 1, CPULoad: 1.5, Uptime: 60}.Metrics(),
		Internal: []status.Metric{
			{Name: "status_response", Value: "0"},
			{Name: "workers_hanging", Value: "2"},
		},
		Memory: metrics.MemoryUsage{
			Native: metrics.StatsList{100, 300},
			Groups: map[string]metrics.StatsList{"example": {50}},
		},
	}
}

func TestWriteReport(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, metrics.WriteReport(&buf, sampleReport()))

	want := "# Global Apache server metrics.\n" +
		"busy-workers\t1\n" +
		"bytes-per-request\t0\n" +
		"bytes-per-second\t0\n" +
		"cpu-load\t1.5\n" +
		"idle-workers\t0\n" +
		"requests-per-second\t0\n" +
		"total-accesses\t0\n" +
		"total-traffic\t0\n" +
		"uptime\t60\n" +
		"\n# Metrics internal to apachemgr.\n" +
		"status-response\t0\n" +
		"workers-hanging\t2\n" +
		"\n# Memory usage of native Apache worker processes.\n" +
		"memory-usage\tnative\tcount\t2\n" +
		"memory-usage\tnative\tmin\t100\n" +
		"memory-usage\tnative\tmax\t300\n" +
		"memory-usage\tnative\taverage\t200\n" +
		"memory-usage\tnative\tmedian\t200\n" +
		"\n# Memory usage of \"example\" WSGI worker processes.\n" +
		"memory-usage\texample\tcount\t1\n" +
		"memory-usage\texample\tmin\t50\n" +
		"memory-usage\texample\tmax\t50\n" +
		"memory-usage\texample\taverage\t50\n" +
		"memory-usage\texample\tmedian\t50\n"

	assert.Equal(t, want, buf.String())
}

func TestWriteDataFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "apachemgr.txt")
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0o600))

	require.NoError(t, metrics.WriteDataFile(path, sampleReport()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "memory-usage\tnative\tcount\t2\n")

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestWriteDataFileMissingDirectory(t *testing.T) {
	t.Parallel()

	err := metrics.WriteDataFile(filepath.Join(t.TempDir(), "missing", "data.txt"), sampleReport())
	require.Error(t, err)
}

func TestZabbixDiscovery(t *testing.T) {
	t.Parallel()

	out, err := metrics.ZabbixDiscovery(metrics.MemoryUsage{
		Groups: map[string]metrics.StatsList{"group-two": nil, "group-one": nil},
	})
	require.NoError(t, err)

	assert.JSONEq(t,
		`{"data":[{"{#NAME}":"native"},{"{#NAME}":"group-one"},{"{#NAME}":"group-two"}]}`,
		string(out))
}

func TestFormatSummary(t *testing.T) {
	t.Parallel()

	lines := metrics.FormatSummary(
		status.ServerMetrics{BusyWorkers: 3, CPULoad: 0.5, Uptime: 90},
		metrics.MemoryUsage{
			Native: metrics.StatsList{1000, 3000},
			Groups: map[string]metrics.StatsList{"app": {2000}},
		},
	)

	assert.Equal(t, "Server metrics:", lines[0])
	assert.Contains(t, lines, " - Busy workers: 3")
	assert.Contains(t, lines, " - Cpu load: 0.5%")
	assert.Contains(t, lines, " - Uptime: 1m30s")
	assert.Contains(t, lines, "Memory usage of main Apache workers (2 workers):")
	assert.Contains(t, lines, " - Average: 2.0 kB")
	assert.Contains(t, lines, "Memory usage of WSGI process group 'app' (1 worker):")
}
