package reaper

import (
	"context"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/robalyx/apachemgr/internal/process"
	"go.uber.org/zap"
)

// Terminator kills a process.
type Terminator interface {
	Terminate(ctx context.Context, pid int) (process.Outcome, error)
}

// Reason is the threshold a worker exceeded.
type Reason int

const (
	// ReasonMemoryExceeded means the worker used more memory than its ceiling.
	ReasonMemoryExceeded Reason = iota
	// ReasonDurationExceeded means the current request has been running too long.
	ReasonDurationExceeded
)

func (r Reason) String() string {
	switch r {
	case ReasonMemoryExceeded:
		return "memory exceeded"
	case ReasonDurationExceeded:
		return "duration exceeded"
	default:
		return "unknown"
	}
}

// Thresholds are the resource ceilings enforced by the engine. Zero disables a ceiling.
type Thresholds struct {
	MaxMemoryActive uint64 // Bytes
	MaxMemoryIdle   uint64 // Bytes
	MaxDuration     time.Duration
}

// IsZero reports whether every ceiling is disabled.
func (t Thresholds) IsZero() bool {
	return t.MaxMemoryActive == 0 && t.MaxMemoryIdle == 0 && t.MaxDuration == 0
}

// Decision describes why a worker was killed.
type Decision struct {
	PID       int
	Worker    string
	Reason    Reason
	Threshold uint64 // Bytes or nanoseconds, depending on Reason
	Observed  uint64 // Bytes or nanoseconds, depending on Reason
	Active    bool
	Outcome   process.Outcome
	Err       error // Set when the termination failed
}

// Result is the outcome of one pass over a registry.
type Result struct {
	PIDs         []int
	ActiveKilled int
	IdleKilled   int
	Checked      int
	Decisions    []Decision
	Failed       []int // Pids whose termination failed
}

// Engine applies thresholds to registries and kills the workers that exceed them.
// The kill counters accumulate across passes until Reset is called.
type Engine struct {
	terminator   Terminator
	logger       *zap.Logger
	activeKilled int
	idleKilled   int
}

// NewEngine creates a new threshold engine.
func NewEngine(terminator Terminator, logger *zap.Logger) *Engine {
	return &Engine{
		terminator: terminator,
		logger:     logger.Named("reaper"),
	}
}

// ActiveKilled returns the number of active workers killed since the last Reset.
func (e *Engine) ActiveKilled() int {
	return e.activeKilled
}

// IdleKilled returns the number of idle workers killed since the last Reset.
func (e *Engine) IdleKilled() int {
	return e.idleKilled
}

// Reset clears the kill counters.
func (e *Engine) Reset() {
	e.activeKilled = 0
	e.idleKilled = 0
}

// Apply checks every worker of the registry in order and kills those exceeding a
// threshold. In dry run mode nothing is signalled but the result is the same.
// Termination failures are logged and recorded without stopping the pass.
func (e *Engine) Apply(ctx context.Context, registry Registry, thresholds Thresholds, dryRun bool) *Result {
	result := &Result{}
	killed := make(map[int]struct{})

	for _, worker := range registry {
		result.Checked++

		if _, ok := killed[worker.PID()]; ok {
			continue
		}

		decision, ok := e.evaluate(worker, thresholds)
		if !ok {
			continue
		}

		if !dryRun {
			outcome, err := e.terminator.Terminate(ctx, worker.PID())
			decision.Outcome = outcome
			if outcome == process.OutcomeFailed {
				decision.Err = err
				result.Failed = append(result.Failed, worker.PID())
				e.logger.Warn("Failed to kill worker",
					zap.String("worker", decision.Worker),
					zap.Error(err))
			}
		}

		killed[worker.PID()] = struct{}{}
		result.PIDs = append(result.PIDs, worker.PID())
		result.Decisions = append(result.Decisions, decision)

		if decision.Active {
			result.ActiveKilled++
			e.activeKilled++
		} else {
			result.IdleKilled++
			e.idleKilled++
		}
	}

	if len(result.PIDs) > 0 {
		e.logger.Info("Killed workers",
			zap.Int("killed", len(result.PIDs)),
			zap.Int("checked", result.Checked),
			zap.Bool("dryRun", dryRun))
	} else {
		e.logger.Info("No workers killed, all within resource usage limits",
			zap.Int("checked", result.Checked))
	}

	return result
}

// evaluate decides whether the worker exceeds a threshold. A native worker of a
// threaded server is checked once per status row and the first row over a limit
// decides.
func (e *Engine) evaluate(worker Killable, thresholds Thresholds) (Decision, bool) {
	rows := []Killable{worker}
	if native, ok := worker.(*Native); ok {
		rows = native.rows()
	}

	for _, row := range rows {
		if decision, ok := e.evaluateRow(row, thresholds); ok {
			return decision, true
		}
	}

	return Decision{}, false
}

// evaluateRow checks memory first against the ceiling for the row's state; the request
// duration only applies to active workers that report one.
func (e *Engine) evaluateRow(worker Killable, thresholds Thresholds) (Decision, bool) {
	decision := Decision{
		PID:    worker.PID(),
		Worker: worker.String(),
		Active: worker.IsActive(),
	}

	request := worker.LastRequest()
	if request == "" {
		request = "last request unknown"
	}

	ceiling := thresholds.MaxMemoryIdle
	if decision.Active {
		ceiling = thresholds.MaxMemoryActive
	}

	if memory, ok := worker.MemoryUsage(); ceiling > 0 && ok && memory > ceiling {
		decision.Reason = ReasonMemoryExceeded
		decision.Threshold = ceiling
		decision.Observed = memory

		e.logger.Info("Killing worker",
			zap.String("worker", decision.Worker),
			zap.String("memory", humanize.IBytes(memory)),
			zap.String("limit", humanize.IBytes(ceiling)),
			zap.String("request", request))
		return decision, true
	}

	if thresholds.MaxDuration > 0 && decision.Active {
		if age, ok := worker.RequestAge(); ok && age > thresholds.MaxDuration {
			decision.Reason = ReasonDurationExceeded
			decision.Threshold = uint64(thresholds.MaxDuration) //nolint:gosec // positive
			decision.Observed = uint64(age)                     //nolint:gosec // positive

			e.logger.Info("Killing hanging worker",
				zap.String("worker", decision.Worker),
				zap.Duration("age", age),
				zap.Duration("limit", thresholds.MaxDuration),
				zap.String("request", request))
			return decision, true
		}
	}

	return Decision{}, false
}
