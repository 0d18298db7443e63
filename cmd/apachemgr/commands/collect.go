package commands

import (
	"context"

	"github.com/robalyx/apachemgr/internal/manager"
	"github.com/robalyx/apachemgr/internal/metrics"
	"github.com/robalyx/apachemgr/internal/setup"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

// CollectCommand returns the command writing the metrics data file.
func CollectCommand() *cli.Command {
	return &cli.Command{
		Name:  "collect",
		Usage: "Write server and worker metrics to the data file",
		Action: WithApp(func(ctx context.Context, c *cli.Command, app *setup.App) error {
			if err := app.Manager.Prefetch(ctx); err != nil {
				app.Logger.Debug("Prefetching status pages failed", zap.Error(err))
			}

			return Collect(ctx, app.Manager, app.Config.Metrics.DataFile, c.Bool(FlagDryRun), app.Logger)
		}),
	}
}

// Collect writes the metrics report of the manager to dataFile. Nothing is written in
// dry run mode unless the report goes to standard output. Server metrics that cannot
// be retrieved are left out of the file without failing the collection.
func Collect(ctx context.Context, mgr *manager.Manager, dataFile string, dryRun bool, logger *zap.Logger) error {
	if dryRun && dataFile != "-" {
		logger.Info("Skipping metrics data file in dry run mode", zap.String("path", dataFile))
		return nil
	}

	report, err := mgr.Report(ctx)
	if err != nil {
		logger.Warn("Server metrics unavailable", zap.Error(err))
	}

	if err := metrics.WriteDataFile(dataFile, report); err != nil {
		return err
	}

	logger.Debug("Wrote metrics data file", zap.String("path", dataFile))
	return nil
}
