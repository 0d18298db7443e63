package commands

import (
	"context"
	"fmt"

	"github.com/robalyx/apachemgr/internal/manager"
	"github.com/robalyx/apachemgr/internal/reaper"
	"github.com/robalyx/apachemgr/internal/setup"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

// KillCommand returns the command running a single poll-decide-act cycle.
func KillCommand() *cli.Command {
	return &cli.Command{
		Name:  "kill",
		Usage: "Kill workers exceeding the memory or request time limits",
		Description: `Poll the status page once and kill every worker over one of its limits.
Memory limits apply to native workers and WSGI daemon processes alike. The
request time limit only applies to active native workers.

Examples:
  apachemgr kill -a 1GiB -i 512MiB    # Memory limits for active and idle workers
  apachemgr kill -t 5m                # Kill requests running longer than 5 minutes
  apachemgr -n kill -a 1GiB           # Show what would be killed
  apachemgr kill -c -i 512MiB         # Kill, then record the kill counts in the data file`,
		Flags: append(KillFlags(),
			&cli.BoolFlag{
				Name:    FlagCollect,
				Aliases: []string{"c"},
				Usage:   "Write the metrics data file after killing",
			},
		),
		Action: WithApp(runKill),
	}
}

// KillOptions configures a single kill run.
type KillOptions struct {
	Thresholds reaper.Thresholds
	DryRun     bool
	Collect    bool   // Write the data file after killing
	DataFile   string // Data file written when Collect is set
}

// Kill runs one poll-decide-act cycle and, when asked, writes the data file in the same
// run so the kill counters end up in it.
func Kill(ctx context.Context, mgr *manager.Manager, opts KillOptions, logger *zap.Logger) error {
	if opts.Thresholds.IsZero() {
		return fmt.Errorf("%w: use --%s, --%s or --%s",
			ErrNoThresholds, FlagMaxMemoryActive, FlagMaxMemoryIdle, FlagMaxTime)
	}

	if opts.Collect {
		if err := mgr.Prefetch(ctx); err != nil {
			logger.Debug("Prefetching status pages failed", zap.Error(err))
		}
	}

	result, err := mgr.KillWorkers(ctx, opts.Thresholds, opts.DryRun)
	if err != nil {
		if opts.Collect {
			if collectErr := Collect(ctx, mgr, opts.DataFile, opts.DryRun, logger); collectErr != nil {
				logger.Error("Failed to collect metrics", zap.Error(collectErr))
			}
		}
		return err
	}

	if opts.Collect {
		if err := Collect(ctx, mgr, opts.DataFile, opts.DryRun, logger); err != nil {
			return err
		}
	}

	if len(result.Failed) > 0 {
		return fmt.Errorf("%w: pids %v", ErrKillFailed, result.Failed)
	}

	return nil
}

func runKill(ctx context.Context, c *cli.Command, app *setup.App) error {
	thresholds, err := Thresholds(app.Config)
	if err != nil {
		return err
	}

	return Kill(ctx, app.Manager, KillOptions{
		Thresholds: thresholds,
		DryRun:     c.Bool(FlagDryRun),
		Collect:    c.Bool(FlagCollect),
		DataFile:   app.Config.Metrics.DataFile,
	}, app.Logger)
}
