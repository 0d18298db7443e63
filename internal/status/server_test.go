package status_test

import (
	"testing"

	"github.com/robalyx/apachemgr/internal/status"
	"github.com/stretchr/testify/assert"
)

func TestParseServerMetrics(t *testing.T) {
	t.Parallel()

	metrics, missing := status.ParseServerMetrics(readFixture(t, "status.txt"))

	assert.Empty(t, missing)
	assert.Equal(t, status.ServerMetrics{
		TotalAccesses:     49038,
		TotalTraffic:      169318 * 1024,
		CPULoad:           7.03642,
		Uptime:            85017,
		RequestsPerSecond: 0.576802,
		BytesPerSecond:    2039.38,
		BytesPerRequest:   3535.66,
		BusyWorkers:       2,
		IdleWorkers:       6,
	}, metrics)
}

func TestParseServerMetricsDefaults(t *testing.T) {
	t.Parallel()

	metrics, missing := status.ParseServerMetrics([]byte("uptime:   12\nbusy workers: 3\n"))

	assert.Equal(t, 12, metrics.Uptime)
	assert.Zero(t, metrics.BusyWorkers)
	assert.Zero(t, metrics.TotalAccesses)
	assert.Len(t, missing, 8)
	assert.Contains(t, missing, "busy_workers")
}

func TestServerMetricsAreSortedByName(t *testing.T) {
	t.Parallel()

	list := status.ServerMetrics{CPULoad: 0.5, TotalTraffic: 2048}.Metrics()

	assert.Len(t, list, 9)
	for i := 1; i < len(list); i++ {
		assert.Less(t, list[i-1].Name, list[i].Name)
	}

	assert.Contains(t, list, status.Metric{Name: "cpu_load", Value: "0.5"})
	assert.Contains(t, list, status.Metric{Name: "total_traffic", Value: "2048"})
}
