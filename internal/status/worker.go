package status

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Normalized column keys of the worker table.
const (
	ColumnServer  = "srv"
	ColumnPID     = "pid"
	ColumnAccess  = "acc"
	ColumnMode    = "m"
	ColumnCPU     = "cpu"
	ColumnSS      = "ss"
	ColumnReq     = "req"
	ColumnConn    = "conn"
	ColumnChild   = "child"
	ColumnSlot    = "slot"
	ColumnClient  = "client"
	ColumnVHost   = "vhost"
	ColumnRequest = "request"
)

// Columns are the column headings expected in the worker table of the status page.
var Columns = []string{
	"Srv", "PID", "Acc", "M", "CPU", "SS", "Req", "Conn", "Child", "Slot",
	"Client", "VHost", "Request",
}

// unsetValue is how the status page renders a request line that was never set.
const unsetValue = "NULL"

// Worker is the typed state of one worker slot on the status page.
// All fields are coerced once at construction; unparsable values fall back to zero.
type Worker struct {
	PID    int
	HasPID bool
	Mode   Mode

	CPUSeconds          float64 // CPU usage in seconds
	SecondsSinceRequest int     // Seconds since the beginning of the most recent request
	RequestMillis       int     // Milliseconds required to process the most recent request

	Accesses       [3]int  // Accesses this connection / this child / this slot
	ConnKilobytes  float64 // Kilobytes transferred this connection
	ChildMegabytes float64 // Megabytes transferred this child
	SlotMegabytes  float64 // Total megabytes transferred this slot

	Server [2]int // Child server number and generation

	Client  string // Client address that was last served (empty if absent)
	VHost   string // Virtual host that served the last request (empty if absent)
	Request string // Most recent request line (empty if absent)
}

// NewWorker builds a Worker from a row of normalized column names to raw cell values.
// It never fails: every field that cannot be converted keeps its zero value.
func NewWorker(fields map[string]string) *Worker {
	w := &Worker{
		Mode:                ParseMode(cell(fields, ColumnMode)),
		CPUSeconds:          coerceFloat(cell(fields, ColumnCPU)),
		SecondsSinceRequest: max(coerceInt(cell(fields, ColumnSS)), 0),
		RequestMillis:       coerceInt(cell(fields, ColumnReq)),
		ConnKilobytes:       coerceFloat(cell(fields, ColumnConn)),
		ChildMegabytes:      coerceFloat(cell(fields, ColumnChild)),
		SlotMegabytes:       coerceFloat(cell(fields, ColumnSlot)),
		Client:              optional(cell(fields, ColumnClient)),
		VHost:               optional(cell(fields, ColumnVHost)),
		Request:             optional(cell(fields, ColumnRequest)),
	}

	if pid, ok := parsePID(cell(fields, ColumnPID)); ok {
		w.PID = pid
		w.HasPID = true
	}

	copy(w.Accesses[:], coerceTuple(cell(fields, ColumnAccess), "/", len(w.Accesses)))
	copy(w.Server[:], coerceTuple(cell(fields, ColumnServer), "-", len(w.Server)))

	return w
}

// IsIdle reports whether the worker is waiting, cleaning up or an empty slot.
func (w *Worker) IsIdle() bool {
	return w.Mode.IsIdle()
}

// IsActive reports whether the worker is processing a request.
func (w *Worker) IsActive() bool {
	return !w.IsIdle()
}

// IsEmptySlot reports whether the slot has no process assigned.
func (w *Worker) IsEmptySlot() bool {
	return w.Mode == ModeEmptySlot
}

// RequestAge returns the time since the beginning of the most recent request.
func (w *Worker) RequestAge() time.Duration {
	return time.Duration(w.SecondsSinceRequest) * time.Second
}

// ChildServerNumber returns the first half of the Srv column.
func (w *Worker) ChildServerNumber() int {
	return w.Server[0]
}

// ChildGeneration returns the second half of the Srv column.
func (w *Worker) ChildGeneration() int {
	return w.Server[1]
}

func (w *Worker) String() string {
	state := "idle"
	if w.IsActive() {
		state = "active"
	}

	if !w.HasPID {
		return fmt.Sprintf("empty slot %d-%d", w.Server[0], w.Server[1])
	}

	return fmt.Sprintf("native worker %d (%s)", w.PID, state)
}

// cell returns a trimmed cell value, or "" if the column is absent.
func cell(fields map[string]string, column string) string {
	return strings.TrimSpace(fields[column])
}

// optional normalizes the "unset" sentinel to an absent value.
func optional(raw string) string {
	if raw == unsetValue {
		return ""
	}

	return raw
}

// parsePID returns the pid if the cell holds one. Empty cells and "-" mean no process.
func parsePID(raw string) (int, bool) {
	if isAbsentPID(raw) {
		return 0, false
	}

	pid, err := strconv.Atoi(raw)
	if err != nil || pid <= 0 {
		return 0, false
	}

	return pid, true
}

func isAbsentPID(raw string) bool {
	return raw == "" || raw == "-"
}

func coerceInt(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}

	return n
}

func coerceFloat(raw string) float64 {
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}

	return f
}

// coerceTuple splits raw on sep and coerces each of the first n parts independently.
func coerceTuple(raw, sep string, n int) []int {
	values := make([]int, n)
	if raw == "" {
		return values
	}

	for i, part := range strings.SplitN(raw, sep, n) {
		values[i] = coerceInt(strings.TrimSpace(part))
	}

	return values
}
