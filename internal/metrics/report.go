package metrics

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/robalyx/apachemgr/internal/status"
)

// FormatSummary renders a human readable summary of the server metrics and the
// memory usage of each worker group.
func FormatSummary(server status.ServerMetrics, usage MemoryUsage) []string {
	lines := []string{
		"Server metrics:",
		" - Busy workers: " + humanize.Comma(int64(server.BusyWorkers)),
		" - Bytes per request: " + humanize.Bytes(uint64(server.BytesPerRequest)),
		" - Bytes per second: " + humanize.Bytes(uint64(server.BytesPerSecond)),
		fmt.Sprintf(" - Cpu load: %.1f%%", server.CPULoad),
		" - Idle workers: " + humanize.Comma(int64(server.IdleWorkers)),
		fmt.Sprintf(" - Requests per second: %g", server.RequestsPerSecond),
		" - Total accesses: " + humanize.Comma(int64(server.TotalAccesses)),
		" - Total traffic: " + humanize.Bytes(uint64(server.TotalTraffic)), //nolint:gosec // non-negative
		" - Uptime: " + (time.Duration(server.Uptime) * time.Second).String(),
	}

	label := "Apache workers"
	if len(usage.Groups) > 0 {
		label = "main Apache workers"
	}

	for _, group := range usage.GroupNames() {
		if group != NativeLabel {
			label = fmt.Sprintf("WSGI process group '%s'", group)
		}

		stats := usage.Group(group)
		lines = append(lines,
			"",
			fmt.Sprintf("Memory usage of %s (%s):", label, pluralize(stats.Count(), "worker")),
			" - Minimum: "+humanize.Bytes(stats.Min()),
			" - Average: "+humanize.Bytes(uint64(stats.Average())),
			" - Maximum: "+humanize.Bytes(stats.Max()),
		)
	}

	return lines
}

// WriteSummary writes the summary lines to w.
func WriteSummary(w io.Writer, server status.ServerMetrics, usage MemoryUsage) error {
	_, err := io.WriteString(w, strings.Join(FormatSummary(server, usage), "\n")+"\n")
	return err
}

func pluralize(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}

	return fmt.Sprintf("%d %ss", n, noun)
}
