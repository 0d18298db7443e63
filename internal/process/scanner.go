package process

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v4/process"
	"go.uber.org/zap"
)

// ErrMasterNotFound indicates that no master process of the web server could be located.
var ErrMasterNotFound = errors.New("master process not found")

// wsgiTitle matches the process title mod_wsgi gives its daemon processes.
var wsgiTitle = regexp.MustCompile(`^\(wsgi:([^)]+)\)`)

// Process is a descendant of the master process.
type Process struct {
	PID   int
	Group string // WSGI process group, empty for other processes
}

// Scanner locates the master process and walks its process tree.
type Scanner struct {
	pidFile string
	names   []string
	logger  *zap.Logger
}

// NewScanner creates a new process tree scanner. The pid file is consulted first,
// then the process table is searched for one of the given executable names.
func NewScanner(pidFile string, names []string, logger *zap.Logger) *Scanner {
	return &Scanner{
		pidFile: pidFile,
		names:   names,
		logger:  logger.Named("process_scanner"),
	}
}

// FindMaster returns the pid of the master process.
func (s *Scanner) FindMaster(ctx context.Context) (int, error) {
	if pid, ok := s.readPIDFile(ctx); ok {
		return pid, nil
	}

	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list processes: %w", err)
	}

	var (
		master  int32
		created int64
	)

	for _, proc := range procs {
		if !s.isServerProcess(ctx, proc) {
			continue
		}

		// Workers are forked from the master so their parent carries the same name
		ppid, err := proc.PpidWithContext(ctx)
		if err == nil && ppid > 0 {
			if parent, err := process.NewProcessWithContext(ctx, ppid); err == nil && s.isServerProcess(ctx, parent) {
				continue
			}
		}

		createTime, err := proc.CreateTimeWithContext(ctx)
		if err != nil {
			continue
		}

		if master == 0 || createTime < created {
			master, created = proc.Pid, createTime
		}
	}

	if master == 0 {
		return 0, fmt.Errorf("%w: no process named %v", ErrMasterNotFound, s.names)
	}

	s.logger.Debug("Found master process", zap.Int32("pid", master))
	return int(master), nil
}

// ListDescendants returns every descendant of the master process sorted by pid.
func (s *Scanner) ListDescendants(ctx context.Context, master int) ([]Process, error) {
	root, err := process.NewProcessWithContext(ctx, int32(master)) //nolint:gosec // pids fit in int32
	if err != nil {
		return nil, fmt.Errorf("failed to open master process %d: %w", master, err)
	}

	var descendants []Process

	queue := []*process.Process{root}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		children, err := current.ChildrenWithContext(ctx)
		if err != nil {
			if !errors.Is(err, process.ErrorNoChildren) {
				s.logger.Debug("Failed to list children",
					zap.Int32("pid", current.Pid),
					zap.Error(err))
			}
			continue
		}

		for _, child := range children {
			cmdline, _ := child.CmdlineWithContext(ctx)
			descendants = append(descendants, Process{
				PID:   int(child.Pid),
				Group: GroupLabel(cmdline),
			})
			queue = append(queue, child)
		}
	}

	slices.SortFunc(descendants, func(a, b Process) int {
		return a.PID - b.PID
	})

	return descendants, nil
}

// GroupLabel extracts the WSGI process group from a process title.
func GroupLabel(title string) string {
	if match := wsgiTitle.FindStringSubmatch(strings.TrimSpace(title)); match != nil {
		return match[1]
	}

	return ""
}

// readPIDFile returns the pid stored in the pid file if that process is running.
func (s *Scanner) readPIDFile(ctx context.Context) (int, bool) {
	if s.pidFile == "" {
		return 0, false
	}

	data, err := os.ReadFile(s.pidFile)
	if err != nil {
		s.logger.Debug("Pid file not readable", zap.String("path", s.pidFile), zap.Error(err))
		return 0, false
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		s.logger.Warn("Pid file holds no pid", zap.String("path", s.pidFile))
		return 0, false
	}

	exists, err := process.PidExistsWithContext(ctx, int32(pid)) //nolint:gosec // pids fit in int32
	if err != nil || !exists {
		s.logger.Warn("Pid file is stale", zap.String("path", s.pidFile), zap.Int("pid", pid))
		return 0, false
	}

	return pid, true
}

func (s *Scanner) isServerProcess(ctx context.Context, proc *process.Process) bool {
	name, err := proc.NameWithContext(ctx)
	if err != nil {
		return false
	}

	return slices.Contains(s.names, name)
}
