package telemetry

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/robalyx/apachemgr/internal/setup/config"
	"github.com/robalyx/apachemgr/internal/setup/telemetry/logger"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// sessionLayout names session directories after their start time.
const sessionLayout = "2006-01-02_15-04-05"

// Manager creates the application logger. Log lines always go to stderr and, when a
// log directory is configured, to a line capped file in a per run session directory.
type Manager struct {
	instanceID    string // Unique identifier for this program run
	sessionDir    string // Path to the current session's log directory
	logDir        string // Base directory for all sessions
	level         string // Configured logging level
	verbosity     int    // Levels below the configured one to enable
	maxLogsToKeep int    // Maximum number of sessions to retain
	maxLogLines   int    // Maximum number of lines to keep in each log file
	files         []*logger.CappedFile
}

// NewManager creates a new Manager. Positive verbosity lowers the configured level by
// that many steps and negative verbosity raises it.
func NewManager(debugCfg *config.Debug, verbosity int) *Manager {
	return &Manager{
		instanceID:    uuid.New().String(),
		logDir:        debugCfg.LogDir,
		level:         debugCfg.LogLevel,
		verbosity:     verbosity,
		maxLogsToKeep: debugCfg.MaxLogsToKeep,
		maxLogLines:   debugCfg.MaxLogLines,
	}
}

// InstanceID returns the unique identifier of this program run.
func (lm *Manager) InstanceID() string {
	return lm.instanceID
}

// SessionDir returns the log directory of this run, empty when file logging is off.
func (lm *Manager) SessionDir() string {
	return lm.sessionDir
}

// GetLogger builds the application logger.
func (lm *Manager) GetLogger() (*zap.Logger, error) {
	level, err := lm.effectiveLevel()
	if err != nil {
		return nil, err
	}

	consoleConfig := zap.NewDevelopmentEncoderConfig()
	consoleConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	consoleConfig.CallerKey = ""
	consoleConfig.TimeKey = ""

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleConfig), zapcore.Lock(os.Stderr), level),
	}

	if lm.logDir != "" {
		if err := lm.setupLogDirectories(); err != nil {
			return nil, err
		}

		file, err := logger.OpenCappedFile(filepath.Join(lm.sessionDir, "main.log"), lm.maxLogLines)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize file logger: %w", err)
		}
		lm.files = append(lm.files, file)

		fileConfig := zap.NewDevelopmentEncoderConfig()
		fileConfig.EncodeCaller = zapcore.ShortCallerEncoder

		fileCore := zapcore.NewCore(zapcore.NewConsoleEncoder(fileConfig), file, level).
			With([]zapcore.Field{zap.String("instance", lm.instanceID)})
		cores = append(cores, fileCore)
	}

	return zap.New(
		zapcore.NewTee(cores...),
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	), nil
}

// Close closes the log files.
func (lm *Manager) Close() error {
	var firstErr error
	for _, file := range lm.files {
		if err := file.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	lm.files = nil
	return firstErr
}

// effectiveLevel applies the verbosity to the configured level.
func (lm *Manager) effectiveLevel() (zapcore.Level, error) {
	level, err := zapcore.ParseLevel(lm.level)
	if err != nil {
		return level, fmt.Errorf("invalid log level: %w", err)
	}

	shifted := int(level) - lm.verbosity
	shifted = max(shifted, int(zapcore.DebugLevel))
	shifted = min(shifted, int(zapcore.FatalLevel))

	return zapcore.Level(shifted), nil
}

// setupLogDirectories creates the base directory, rotates old sessions and creates
// the session directory of this run.
func (lm *Manager) setupLogDirectories() error {
	if err := os.MkdirAll(lm.logDir, os.ModePerm); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}

	if err := lm.rotateLogSessions(); err != nil {
		return fmt.Errorf("failed to rotate log sessions: %w", err)
	}

	lm.sessionDir = filepath.Join(lm.logDir, time.Now().Format(sessionLayout))
	if err := os.MkdirAll(lm.sessionDir, os.ModePerm); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	return nil
}

// rotateLogSessions removes the oldest sessions so that a new one fits within
// maxLogsToKeep.
func (lm *Manager) rotateLogSessions() error {
	sessions, err := filepath.Glob(filepath.Join(lm.logDir, "*"))
	if err != nil {
		return err
	}

	keep := max(lm.maxLogsToKeep-1, 0)
	if len(sessions) <= keep {
		return nil
	}

	// Session names sort chronologically
	sort.Strings(sessions)

	for _, session := range sessions[:len(sessions)-keep] {
		if err := os.RemoveAll(session); err != nil {
			return err
		}
	}

	return nil
}
