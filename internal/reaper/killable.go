package reaper

import (
	"fmt"
	"time"

	"github.com/robalyx/apachemgr/internal/process"
	"github.com/robalyx/apachemgr/internal/status"
)

// Killable is a worker process that may be terminated for exceeding a threshold.
type Killable interface {
	// PID returns the operating system process id.
	PID() int
	// IsActive reports whether the worker is processing a request.
	IsActive() bool
	// MemoryUsage returns the resident memory in bytes, or false if the process is gone.
	MemoryUsage() (uint64, bool)
	// LastRequest returns the most recent request line, or "" if unknown.
	LastRequest() string
	// RequestAge returns the time since the most recent request started,
	// or false when the worker has no such measure.
	RequestAge() (time.Duration, bool)
	String() string
}

// Native is a worker listed on the status page. Threaded servers list one row per
// thread; Threads holds every row of the process in page order and Worker is the first.
type Native struct {
	Worker    *status.Worker
	Threads   []*status.Worker
	memory    uint64
	hasMemory bool
}

// NewNative creates a native worker with its memory usage already resolved. Further
// rows of the same process are passed as threads.
func NewNative(w *status.Worker, info process.Info, ok bool, threads ...*status.Worker) *Native {
	return &Native{
		Worker:    w,
		Threads:   append([]*status.Worker{w}, threads...),
		memory:    info.RSS,
		hasMemory: ok && info.Alive,
	}
}

// rows returns one killable per thread, all sharing the memory of the process.
func (n *Native) rows() []Killable {
	if len(n.Threads) < 2 {
		return []Killable{n}
	}

	rows := make([]Killable, len(n.Threads))
	for i, w := range n.Threads {
		rows[i] = &Native{Worker: w, memory: n.memory, hasMemory: n.hasMemory}
	}

	return rows
}

func (n *Native) PID() int                    { return n.Worker.PID }
func (n *Native) IsActive() bool              { return n.Worker.IsActive() }
func (n *Native) MemoryUsage() (uint64, bool) { return n.memory, n.hasMemory }
func (n *Native) LastRequest() string         { return n.Worker.Request }

func (n *Native) RequestAge() (time.Duration, bool) {
	return n.Worker.RequestAge(), true
}

func (n *Native) String() string {
	state := "idle"
	if n.IsActive() {
		state = "active"
	}

	return fmt.Sprintf("native worker %d (%s)", n.PID(), state)
}

// Foreign is a descendant of the master process that the status page does not list,
// such as a mod_wsgi daemon. It is always considered active and has no request age.
type Foreign struct {
	Process   process.Process
	memory    uint64
	hasMemory bool
}

// NewForeign creates a foreign worker with its memory usage already resolved.
func NewForeign(p process.Process, info process.Info, ok bool) *Foreign {
	return &Foreign{Process: p, memory: info.RSS, hasMemory: ok && info.Alive}
}

func (f *Foreign) PID() int                          { return f.Process.PID }
func (f *Foreign) IsActive() bool                    { return true }
func (f *Foreign) MemoryUsage() (uint64, bool)       { return f.memory, f.hasMemory }
func (f *Foreign) LastRequest() string               { return "" }
func (f *Foreign) RequestAge() (time.Duration, bool) { return 0, false }

func (f *Foreign) String() string {
	if f.Process.Group != "" {
		return fmt.Sprintf("non-native worker %d (%s)", f.PID(), f.Process.Group)
	}

	return fmt.Sprintf("non-native worker %d", f.PID())
}
