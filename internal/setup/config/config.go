package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

var (
	ErrConfigFileNotFound    = errors.New("config file not found")
	ErrConfigVersionMissing  = errors.New("config file is missing version field")
	ErrConfigVersionMismatch = errors.New("config file version mismatch")
	ErrInvalidSize           = errors.New("invalid memory size")
)

// FileName is the name of the configuration file looked up in the search paths.
const FileName = "apachemgr.toml"

// CurrentVersion is the version of the config file format.
const CurrentVersion = 1

// Config represents the entire application configuration.
type Config struct {
	// Version of the config file.
	Version    int        `koanf:"version"`
	Debug      Debug      `koanf:"debug"`
	Server     Server     `koanf:"server"`
	Thresholds Thresholds `koanf:"thresholds"`
	Metrics    Metrics    `koanf:"metrics"`
	Watch      Watch      `koanf:"watch"`
}

// Debug contains logging and debugging configuration.
type Debug struct {
	// Log level (debug, info, warn, error).
	LogLevel string `koanf:"log_level"`
	// Directory for session log files. Empty logs to the console only.
	LogDir string `koanf:"log_dir"`
	// Maximum log sessions to keep.
	MaxLogsToKeep int `koanf:"max_logs_to_keep"`
	// Maximum lines per log file.
	MaxLogLines int `koanf:"max_log_lines"`
	// Enable pprof debugging.
	EnablePprof bool `koanf:"enable_pprof"`
	// pprof server port.
	PprofPort int `koanf:"pprof_port"`
}

// Server describes how to reach and inspect the web server.
type Server struct {
	// HTML status page URL. Discovered from PortsConfig when empty.
	StatusURL string `koanf:"status_url"`
	// File holding the Listen directives.
	PortsConfig string `koanf:"ports_config"`
	// Pid file of the master process.
	PIDFile string `koanf:"pid_file"`
	// Executable names of the server processes.
	ProcessNames []string `koanf:"process_names"`
	// Timeout of a status page request.
	RequestTimeout time.Duration `koanf:"request_timeout"`
}

// Thresholds are the resource limits enforced on workers. Zero disables a limit.
type Thresholds struct {
	// Memory limit of active workers, e.g. "512MiB".
	MaxMemoryActive string `koanf:"max_memory_active"`
	// Memory limit of idle workers.
	MaxMemoryIdle string `koanf:"max_memory_idle"`
	// Limit on the time since the current request started.
	MaxTime time.Duration `koanf:"max_time"`
	// Age of the current request after which an active worker counts as hanging.
	HangingWorker time.Duration `koanf:"hanging_worker"`
}

// Metrics configures the metrics data file.
type Metrics struct {
	// Path of the data file, "-" for stdout.
	DataFile string `koanf:"data_file"`
}

// Watch configures the periodic driver.
type Watch struct {
	// Time between two cycles.
	Interval time.Duration `koanf:"interval"`
	// Longest wait between retries of a failing cycle.
	MaxBackoff time.Duration `koanf:"max_backoff"`
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	return &Config{
		Version: CurrentVersion,
		Debug: Debug{
			LogLevel:      "info",
			MaxLogsToKeep: 10,
			MaxLogLines:   10000,
			PprofPort:     6060,
		},
		Server: Server{
			PortsConfig:    "/etc/apache2/ports.conf",
			PIDFile:        "/var/run/apache2/apache2.pid",
			ProcessNames:   []string{"apache2", "httpd"},
			RequestTimeout: 10 * time.Second,
		},
		Thresholds: Thresholds{
			HangingWorker: 5 * time.Minute,
		},
		Metrics: Metrics{
			DataFile: "/tmp/apachemgr.txt",
		},
		Watch: Watch{
			Interval:   10 * time.Second,
			MaxBackoff: 5 * time.Minute,
		},
	}
}

// MemoryLimits parses the active and idle memory limits into bytes.
func (t Thresholds) MemoryLimits() (active, idle uint64, err error) {
	if active, err = ParseSize(t.MaxMemoryActive); err != nil {
		return 0, 0, err
	}

	if idle, err = ParseSize(t.MaxMemoryIdle); err != nil {
		return 0, 0, err
	}

	return active, idle, nil
}

// ParseSize parses a human readable size such as "500MiB", "1.5GB" or "1024".
// An empty string means zero.
func ParseSize(s string) (uint64, error) {
	if s == "" {
		return 0, nil
	}

	size, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("%w %q: %w", ErrInvalidSize, s, err)
	}

	return size, nil
}

// LoadConfig loads the configuration from path, or from the first search path holding
// a config file when path is empty. Defaults are used when no file is found.
// Returns the config along with the used config file, empty when none was loaded.
func LoadConfig(path string) (*Config, string, error) {
	k := koanf.New(".")

	usedPath := path
	if path != "" {
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, "", fmt.Errorf("%w: %s: %w", ErrConfigFileNotFound, path, err)
		}
	} else {
		found, err := findConfig(k)
		if err != nil {
			return nil, "", err
		}
		usedPath = found
	}

	config := Default()
	if usedPath == "" {
		return config, "", nil
	}

	config.Version = 0
	if err := k.Unmarshal("", config); err != nil {
		return nil, "", fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := checkConfigVersion(usedPath, config.Version, CurrentVersion); err != nil {
		return nil, "", err
	}

	return config, usedPath, nil
}

// findConfig loads the first config file found in the search paths.
func findConfig(k *koanf.Koanf) (string, error) {
	configPaths := []string{".apachemgr"}

	if homeDir, err := os.UserHomeDir(); err == nil {
		configPaths = append(configPaths, filepath.Join(homeDir, ".apachemgr"))
	}

	configPaths = append(configPaths, "/etc/apachemgr", "config", ".")

	for _, dir := range configPaths {
		configPath := filepath.Join(dir, FileName)
		if _, err := os.Stat(configPath); err != nil {
			continue
		}

		if err := k.Load(file.Provider(configPath), toml.Parser()); err != nil {
			return "", fmt.Errorf("failed to load %s: %w", configPath, err)
		}

		return configPath, nil
	}

	return "", nil
}

// checkConfigVersion checks if the config file version is correct.
func checkConfigVersion(path string, current, expected int) error {
	if current == 0 {
		return fmt.Errorf("%w: %s", ErrConfigVersionMissing, path)
	}

	if current != expected {
		return fmt.Errorf("%w: %s (got: %d, expected: %d)",
			ErrConfigVersionMismatch, path, current, expected)
	}

	return nil
}
