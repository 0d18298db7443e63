package status

import (
	"regexp"
	"strconv"
)

// ServerMetrics holds the global counters of the machine readable status page.
type ServerMetrics struct {
	TotalAccesses     int
	TotalTraffic      int // Bytes, the page reports kilobytes
	CPULoad           float64
	Uptime            int // Seconds
	RequestsPerSecond float64
	BytesPerSecond    float64
	BytesPerRequest   float64
	BusyWorkers       int
	IdleWorkers       int
}

// Metric is a named server metric rendered as text.
type Metric struct {
	Name  string
	Value string
}

// serverMetricPatterns match "Name: value" lines of the ?auto page.
var serverMetricPatterns = map[string]*regexp.Regexp{
	"total_accesses":      regexp.MustCompile(`(?im)^Total\s+Accesses:\s+(\d+)`),
	"total_traffic":       regexp.MustCompile(`(?im)^Total\s+kBytes:\s+(\d+)`),
	"cpu_load":            regexp.MustCompile(`(?im)^CPULoad:\s+([0-9.]+)`),
	"uptime":              regexp.MustCompile(`(?im)^Uptime:\s+(\d+)`),
	"requests_per_second": regexp.MustCompile(`(?im)^ReqPerSec:\s+([0-9.]+)`),
	"bytes_per_second":    regexp.MustCompile(`(?im)^BytesPerSec:\s+([0-9.]+)`),
	"bytes_per_request":   regexp.MustCompile(`(?im)^BytesPerReq:\s+([0-9.]+)`),
	"busy_workers":        regexp.MustCompile(`(?im)^BusyWorkers:\s+(\d+)`),
	"idle_workers":        regexp.MustCompile(`(?im)^IdleWorkers:\s+(\d+)`),
}

// ParseServerMetrics extracts the server metrics from the plain text status page.
// Metrics that are not on the page default to zero and their names are returned in missing.
func ParseServerMetrics(text []byte) (metrics ServerMetrics, missing []string) {
	extract := func(name string) string {
		match := serverMetricPatterns[name].FindSubmatch(text)
		if match == nil {
			missing = append(missing, name)
			return "0"
		}

		return string(match[1])
	}

	metrics = ServerMetrics{
		TotalAccesses:     coerceInt(extract("total_accesses")),
		TotalTraffic:      coerceInt(extract("total_traffic")) * 1024,
		CPULoad:           coerceFloat(extract("cpu_load")),
		Uptime:            coerceInt(extract("uptime")),
		RequestsPerSecond: coerceFloat(extract("requests_per_second")),
		BytesPerSecond:    coerceFloat(extract("bytes_per_second")),
		BytesPerRequest:   coerceFloat(extract("bytes_per_request")),
		BusyWorkers:       coerceInt(extract("busy_workers")),
		IdleWorkers:       coerceInt(extract("idle_workers")),
	}

	return metrics, missing
}

// Metrics returns the metrics sorted by name.
func (m ServerMetrics) Metrics() []Metric {
	return []Metric{
		{"busy_workers", strconv.Itoa(m.BusyWorkers)},
		{"bytes_per_request", formatFloat(m.BytesPerRequest)},
		{"bytes_per_second", formatFloat(m.BytesPerSecond)},
		{"cpu_load", formatFloat(m.CPULoad)},
		{"idle_workers", strconv.Itoa(m.IdleWorkers)},
		{"requests_per_second", formatFloat(m.RequestsPerSecond)},
		{"total_accesses", strconv.Itoa(m.TotalAccesses)},
		{"total_traffic", strconv.Itoa(m.TotalTraffic)},
		{"uptime", strconv.Itoa(m.Uptime)},
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
