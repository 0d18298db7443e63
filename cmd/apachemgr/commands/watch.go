package commands

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/robalyx/apachemgr/internal/manager"
	"github.com/robalyx/apachemgr/internal/reaper"
	"github.com/robalyx/apachemgr/internal/setup"
	"github.com/robalyx/apachemgr/pkg/utils"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

// WatchCommand returns the command running the poll-decide-act cycle periodically.
func WatchCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Periodically kill workers over their limits and collect metrics",
		Flags: append(KillFlags(),
			&cli.DurationFlag{
				Name:  FlagInterval,
				Usage: "Time between two cycles",
			},
		),
		Action: WithApp(runWatch),
	}
}

// Cycle is one pass of the watch loop.
type Cycle struct {
	Manager    *manager.Manager
	Thresholds reaper.Thresholds
	DataFile   string
	DryRun     bool
	Logger     *zap.Logger
}

// Run polls the server, kills the workers over their limits when thresholds are
// configured and writes the metrics data file. The data file is written even when the
// status page is unavailable so the failed response is recorded.
func (c *Cycle) Run(ctx context.Context) error {
	c.Manager.Refresh()

	fetchErr := c.Manager.Prefetch(ctx)
	if fetchErr == nil && !c.Thresholds.IsZero() {
		if _, err := c.Manager.KillWorkers(ctx, c.Thresholds, c.DryRun); err != nil {
			return err
		}
	}

	if err := Collect(ctx, c.Manager, c.DataFile, c.DryRun, c.Logger); err != nil {
		return err
	}

	return fetchErr
}

func runWatch(ctx context.Context, c *cli.Command, app *setup.App) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	interval := app.Config.Watch.Interval
	if interval <= 0 {
		return ErrInvalidInterval
	}

	thresholds, err := Thresholds(app.Config)
	if err != nil {
		return err
	}

	cycle := &Cycle{
		Manager:    app.Manager,
		Thresholds: thresholds,
		DataFile:   app.Config.Metrics.DataFile,
		DryRun:     c.Bool(FlagDryRun),
		Logger:     app.Logger,
	}

	logger := app.Logger.Named("watch")
	logger.Info("Watching web server",
		zap.Duration("interval", interval),
		zap.Bool("killing", !thresholds.IsZero()),
		zap.Bool("dryRun", cycle.DryRun))

	retry := utils.NewBackOff(utils.GetPollRetryOptions(interval, app.Config.Watch.MaxBackoff))

	for {
		if err := cycle.Run(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}

			wait := retry.NextBackOff()
			logger.Error("Watch cycle failed", zap.Error(err), zap.Duration("retryIn", wait))

			if !utils.ErrorSleep(ctx, wait, logger, "watch loop") {
				return nil
			}
			continue
		}

		retry.Reset()

		if !utils.IntervalSleep(ctx, interval, logger, "watch loop") {
			return nil
		}
	}
}
