package manager

import (
	"strconv"

	"github.com/robalyx/apachemgr/internal/status"
)

// StatusResponse records whether the last status page request succeeded.
type StatusResponse int

const (
	// StatusUnknown means no status page was requested yet.
	StatusUnknown StatusResponse = iota
	// StatusOK means the last status page was retrieved.
	StatusOK
	// StatusFailed means the last status page could not be retrieved.
	StatusFailed
)

func (s StatusResponse) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusFailed:
		return "failed"
	case StatusUnknown:
		return "unknown"
	default:
		return "unknown"
	}
}

// Metrics describes the interaction between the manager and the web server.
type Metrics struct {
	WorkersHanging      int
	WorkersKilledActive int
	WorkersKilledIdle   int
	StatusResponse      StatusResponse
}

// List returns the metrics sorted by name. The status response is written as 0 when
// the last request succeeded and 1 when it failed, and left out while unknown.
func (m Metrics) List() []status.Metric {
	var list []status.Metric

	switch m.StatusResponse {
	case StatusOK:
		list = append(list, status.Metric{Name: "status_response", Value: "0"})
	case StatusFailed:
		list = append(list, status.Metric{Name: "status_response", Value: "1"})
	case StatusUnknown:
	}

	return append(list,
		status.Metric{Name: "workers_hanging", Value: strconv.Itoa(m.WorkersHanging)},
		status.Metric{Name: "workers_killed_active", Value: strconv.Itoa(m.WorkersKilledActive)},
		status.Metric{Name: "workers_killed_idle", Value: strconv.Itoa(m.WorkersKilledIdle)},
	)
}
