package metrics

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/robalyx/apachemgr/internal/status"
)

// Report is everything written to the metrics data file.
type Report struct {
	Server   []status.Metric
	Internal []status.Metric
	Memory   MemoryUsage
}

// WriteDataFile stores the report as tab delimited name/value lines. The file is
// written next to path and renamed into place. A path of "-" writes to stdout.
func WriteDataFile(path string, report Report) error {
	if path == "-" {
		return WriteReport(os.Stdout, report)
	}

	tmp := path + ".tmp"

	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create data file: %w", err)
	}

	if err := WriteReport(file, report); err != nil {
		file.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to write data file: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write data file: %w", err)
	}

	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace data file: %w", err)
	}

	return nil
}

// WriteReport renders the report in the data file format.
func WriteReport(w io.Writer, report Report) error {
	var b strings.Builder

	b.WriteString("# Global Apache server metrics.\n")
	writeMetrics(&b, report.Server)

	b.WriteString("\n# Metrics internal to apachemgr.\n")
	writeMetrics(&b, report.Internal)

	for _, group := range report.Memory.GroupNames() {
		if group == NativeLabel {
			b.WriteString("\n# Memory usage of native Apache worker processes.\n")
		} else {
			fmt.Fprintf(&b, "\n# Memory usage of %q WSGI worker processes.\n", group)
		}

		stats := report.Memory.Group(group)
		for _, line := range [][2]string{
			{"count", strconv.Itoa(stats.Count())},
			{"min", strconv.FormatUint(stats.Min(), 10)},
			{"max", strconv.FormatUint(stats.Max(), 10)},
			{"average", strconv.FormatFloat(stats.Average(), 'f', -1, 64)},
			{"median", strconv.FormatFloat(stats.Median(), 'f', -1, 64)},
		} {
			fmt.Fprintf(&b, "memory-usage\t%s\t%s\t%s\n", group, line[0], line[1])
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func writeMetrics(b *strings.Builder, metrics []status.Metric) {
	for _, m := range metrics {
		fmt.Fprintf(b, "%s\t%s\n", strings.ReplaceAll(m.Name, "_", "-"), m.Value)
	}
}
