package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/robalyx/apachemgr/internal/reaper"
	"github.com/robalyx/apachemgr/internal/setup"
	"github.com/robalyx/apachemgr/internal/setup/config"
	"github.com/urfave/cli/v3"
)

// Flag names shared by the commands.
const (
	FlagConfig          = "config"
	FlagVerbose         = "verbose"
	FlagQuiet           = "quiet"
	FlagDryRun          = "dry-run"
	FlagDataFile        = "data-file"
	FlagHangingWorker   = "hanging-worker"
	FlagMaxMemoryActive = "max-memory-active"
	FlagMaxMemoryIdle   = "max-memory-idle"
	FlagMaxTime         = "max-time"
	FlagInterval        = "interval"
	FlagCollect         = "collect"
)

var (
	ErrNoThresholds    = errors.New("no worker thresholds configured")
	ErrInvalidInterval = errors.New("watch interval must be positive")
	ErrKillFailed      = errors.New("failed to kill workers")
)

// ActionFunc is a command action that runs with an initialized application.
type ActionFunc func(ctx context.Context, c *cli.Command, app *setup.App) error

// GlobalFlags returns the flags accepted by every command.
func GlobalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    FlagConfig,
			Aliases: []string{"C"},
			Usage:   "Load configuration from `FILE`",
		},
		&cli.BoolFlag{
			Name:    FlagVerbose,
			Aliases: []string{"v"},
			Usage:   "Increase logging verbosity (can be repeated)",
		},
		&cli.BoolFlag{
			Name:    FlagQuiet,
			Aliases: []string{"q"},
			Usage:   "Decrease logging verbosity (can be repeated)",
		},
		&cli.BoolFlag{
			Name:    FlagDryRun,
			Aliases: []string{"n", "simulate"},
			Usage:   "Report what would be done without killing workers or writing files",
		},
		&cli.StringFlag{
			Name:    FlagDataFile,
			Aliases: []string{"f"},
			Usage:   "Write metrics to `PATH` (- for standard output)",
		},
		&cli.DurationFlag{
			Name:    FlagHangingWorker,
			Aliases: []string{"T"},
			Usage:   "Age of the current request after which an active worker counts as hanging",
		},
	}
}

// KillFlags returns the threshold flags of the kill and watch commands.
func KillFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    FlagMaxMemoryActive,
			Aliases: []string{"a"},
			Usage:   "Kill active workers using more than `SIZE` of memory (e.g. 512MiB)",
		},
		&cli.StringFlag{
			Name:    FlagMaxMemoryIdle,
			Aliases: []string{"i"},
			Usage:   "Kill idle workers using more than `SIZE` of memory",
		},
		&cli.DurationFlag{
			Name:    FlagMaxTime,
			Aliases: []string{"t"},
			Usage:   "Kill active workers whose current request runs longer than `DURATION`",
		},
	}
}

// ApplyFlags overrides configuration values with the flags set on the command line.
func ApplyFlags(c *cli.Command, cfg *config.Config) error {
	if c.IsSet(FlagDataFile) {
		cfg.Metrics.DataFile = c.String(FlagDataFile)
	}
	if c.IsSet(FlagHangingWorker) {
		cfg.Thresholds.HangingWorker = c.Duration(FlagHangingWorker)
	}
	if c.IsSet(FlagMaxMemoryActive) {
		cfg.Thresholds.MaxMemoryActive = c.String(FlagMaxMemoryActive)
	}
	if c.IsSet(FlagMaxMemoryIdle) {
		cfg.Thresholds.MaxMemoryIdle = c.String(FlagMaxMemoryIdle)
	}
	if c.IsSet(FlagMaxTime) {
		cfg.Thresholds.MaxTime = c.Duration(FlagMaxTime)
	}
	if c.IsSet(FlagInterval) {
		cfg.Watch.Interval = c.Duration(FlagInterval)
	}

	// Sizes are validated here so a typo fails before anything is polled
	if _, _, err := cfg.Thresholds.MemoryLimits(); err != nil {
		return err
	}

	return nil
}

// Thresholds converts the configured limits into engine thresholds.
func Thresholds(cfg *config.Config) (reaper.Thresholds, error) {
	active, idle, err := cfg.Thresholds.MemoryLimits()
	if err != nil {
		return reaper.Thresholds{}, err
	}

	return reaper.Thresholds{
		MaxMemoryActive: active,
		MaxMemoryIdle:   idle,
		MaxDuration:     cfg.Thresholds.MaxTime,
	}, nil
}

// WithApp wraps an action so it receives an application built from the global flags.
func WithApp(action ActionFunc) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		app, err := setup.InitializeApp(ctx, setup.Options{
			ConfigPath: c.String(FlagConfig),
			Verbosity:  c.Count(FlagVerbose) - c.Count(FlagQuiet),
			Configure: func(cfg *config.Config) error {
				return ApplyFlags(c, cfg)
			},
		})
		if err != nil {
			return fmt.Errorf("failed to initialize application: %w", err)
		}
		defer app.Cleanup(context.WithoutCancel(ctx))

		return action(ctx, c, app)
	}
}
