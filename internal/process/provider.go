package process

import (
	"context"

	"github.com/shirou/gopsutil/v4/process"
	"go.uber.org/zap"
)

// Info is what the operating system reports about a running process.
type Info struct {
	RSS   uint64 // Resident set size in bytes
	Alive bool
}

// Provider looks up process information through gopsutil.
type Provider struct {
	logger *zap.Logger
}

// NewProvider creates a new process information provider.
func NewProvider(logger *zap.Logger) *Provider {
	return &Provider{
		logger: logger.Named("process_provider"),
	}
}

// Resolve returns the memory usage of the process with the given pid.
// The second return value is false when the process no longer exists or
// its memory usage cannot be read.
func (p *Provider) Resolve(ctx context.Context, pid int) (Info, bool) {
	proc, err := process.NewProcessWithContext(ctx, int32(pid)) //nolint:gosec // pids fit in int32
	if err != nil {
		p.logger.Debug("Process not found", zap.Int("pid", pid), zap.Error(err))
		return Info{}, false
	}

	mem, err := proc.MemoryInfoWithContext(ctx)
	if err != nil {
		p.logger.Debug("Failed to read memory usage", zap.Int("pid", pid), zap.Error(err))
		return Info{}, false
	}

	return Info{RSS: mem.RSS, Alive: true}, true
}
