package reaper_test

import (
	"context"
	"errors"
	"testing"

	"github.com/robalyx/apachemgr/internal/process"
	"github.com/robalyx/apachemgr/internal/reaper"
	"github.com/robalyx/apachemgr/internal/status"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const megabyte = 1000 * 1000

// fakeResolver reports fixed memory usage per pid; unknown pids are gone.
type fakeResolver map[int]uint64

func (f fakeResolver) Resolve(_ context.Context, pid int) (process.Info, bool) {
	rss, ok := f[pid]
	if !ok {
		return process.Info{}, false
	}

	return process.Info{RSS: rss, Alive: true}, true
}

// fakeTerminator records termination attempts.
type fakeTerminator struct {
	calls    []int
	outcomes map[int]process.Outcome
}

func (f *fakeTerminator) Terminate(_ context.Context, pid int) (process.Outcome, error) {
	f.calls = append(f.calls, pid)

	outcome := f.outcomes[pid]
	if outcome == process.OutcomeFailed {
		return outcome, errors.New("operation not permitted")
	}

	return outcome, nil
}

func worker(fields map[string]string) *status.Worker {
	return status.NewWorker(fields)
}

func TestBuildMergesAndSorts(t *testing.T) {
	t.Parallel()

	records := []*status.Worker{
		worker(map[string]string{"pid": "300", "m": "_"}),
		worker(map[string]string{"pid": "-", "m": "."}),
		worker(map[string]string{"pid": "100", "m": "W"}),
	}
	foreign := []process.Process{
		{PID: 250, Group: "app"},
		{PID: 50},
	}

	registry := reaper.Build(context.Background(), records, foreign, fakeResolver{100: 5})

	assert.Equal(t, []int{50, 100, 250, 300}, registry.PIDs())

	memory, ok := registry[1].MemoryUsage()
	assert.True(t, ok)
	assert.Equal(t, uint64(5), memory)

	_, ok = registry[0].MemoryUsage()
	assert.False(t, ok)

	assert.Equal(t, "non-native worker 250 (app)", registry[2].String())
	assert.Equal(t, "native worker 300 (idle)", registry[3].String())
}

func TestBuildNativeWinsOverForeign(t *testing.T) {
	t.Parallel()

	records := []*status.Worker{worker(map[string]string{"pid": "222", "m": "_"})}
	foreign := []process.Process{{PID: 222}, {PID: 333}, {PID: 333}}

	registry := reaper.Build(context.Background(), records, foreign, fakeResolver{})

	require.Equal(t, []int{222, 333}, registry.PIDs())
	assert.IsType(t, &reaper.Native{}, registry[0])
	assert.IsType(t, &reaper.Foreign{}, registry[1])
}

func TestBuildKeepsThreadRows(t *testing.T) {
	t.Parallel()

	records := []*status.Worker{
		worker(map[string]string{"pid": "10", "m": "_", "ss": "900"}),
		worker(map[string]string{"pid": "20", "m": "_"}),
		worker(map[string]string{"pid": "10", "m": "W", "ss": "5"}),
		worker(map[string]string{"pid": "10", "m": "R", "ss": "50"}),
	}

	registry := reaper.Build(context.Background(), records, nil, fakeResolver{10: 7})

	require.Equal(t, []int{10, 20}, registry.PIDs())
	native, ok := registry[0].(*reaper.Native)
	require.True(t, ok)

	assert.Equal(t, status.ModeWaiting, native.Worker.Mode)
	require.Len(t, native.Threads, 3)
	assert.Equal(t, status.ModeSending, native.Threads[1].Mode)
	assert.Equal(t, status.ModeReading, native.Threads[2].Mode)

	memory, ok := native.MemoryUsage()
	assert.True(t, ok)
	assert.Equal(t, uint64(7), memory)
}

func TestBuildIsDeterministic(t *testing.T) {
	t.Parallel()

	records := []*status.Worker{
		worker(map[string]string{"pid": "7", "m": "K"}),
		worker(map[string]string{"pid": "3", "m": "_"}),
	}
	foreign := []process.Process{{PID: 5}, {PID: 3}, {PID: 1}}

	first := reaper.Build(context.Background(), records, foreign, fakeResolver{})
	second := reaper.Build(context.Background(), records, foreign, fakeResolver{})

	assert.Equal(t, first.PIDs(), second.PIDs())

	seen := make(map[int]bool)
	for _, pid := range first.PIDs() {
		assert.False(t, seen[pid], "pid %d appears twice", pid)
		seen[pid] = true
	}
}

func TestForeignWorker(t *testing.T) {
	t.Parallel()

	foreign := reaper.NewForeign(process.Process{PID: 9}, process.Info{RSS: 1, Alive: true}, true)

	assert.True(t, foreign.IsActive())
	assert.Empty(t, foreign.LastRequest())
	_, ok := foreign.RequestAge()
	assert.False(t, ok)
	assert.Equal(t, "non-native worker 9", foreign.String())
}
