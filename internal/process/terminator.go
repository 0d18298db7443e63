package process

import (
	"context"
	"errors"
	"syscall"

	"github.com/shirou/gopsutil/v4/process"
	"go.uber.org/zap"
)

// Outcome is the result of a termination attempt.
type Outcome int

const (
	// OutcomeSuccess means the process was signalled.
	OutcomeSuccess Outcome = iota
	// OutcomeAlreadyGone means the process had exited before it could be signalled.
	OutcomeAlreadyGone
	// OutcomeFailed means the signal could not be delivered.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeAlreadyGone:
		return "already gone"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminator kills processes with SIGKILL.
type Terminator struct {
	logger *zap.Logger
}

// NewTerminator creates a new process terminator.
func NewTerminator(logger *zap.Logger) *Terminator {
	return &Terminator{
		logger: logger.Named("process_terminator"),
	}
}

// Terminate sends SIGKILL to the process. A process that does not exist, either
// before or after the attempt, is reported as OutcomeAlreadyGone.
func (t *Terminator) Terminate(ctx context.Context, pid int) (Outcome, error) {
	proc, err := process.NewProcessWithContext(ctx, int32(pid)) //nolint:gosec // pids fit in int32
	if err != nil {
		if errors.Is(err, process.ErrorProcessNotRunning) {
			return OutcomeAlreadyGone, nil
		}
		return OutcomeFailed, err
	}

	if err := proc.KillWithContext(ctx); err != nil {
		if errors.Is(err, syscall.ESRCH) {
			return OutcomeAlreadyGone, nil
		}

		if exists, existsErr := process.PidExistsWithContext(ctx, proc.Pid); existsErr == nil && !exists {
			return OutcomeAlreadyGone, nil
		}

		return OutcomeFailed, err
	}

	t.logger.Debug("Sent SIGKILL", zap.Int("pid", pid))
	return OutcomeSuccess, nil
}
