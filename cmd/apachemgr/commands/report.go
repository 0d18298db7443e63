package commands

import (
	"context"
	"os"

	"github.com/robalyx/apachemgr/internal/metrics"
	"github.com/robalyx/apachemgr/internal/setup"
	"github.com/urfave/cli/v3"
)

// ReportCommand returns the command printing a human readable summary.
func ReportCommand() *cli.Command {
	return &cli.Command{
		Name:   "report",
		Usage:  "Print server metrics and worker memory usage",
		Action: WithApp(runReport),
	}
}

// DiscoveryCommand returns the command printing the Zabbix low-level discovery document.
func DiscoveryCommand() *cli.Command {
	return &cli.Command{
		Name:   "discovery",
		Usage:  "Print the worker groups as Zabbix discovery JSON",
		Action: WithApp(runDiscovery),
	}
}

func runReport(ctx context.Context, _ *cli.Command, app *setup.App) error {
	if err := app.Manager.Prefetch(ctx); err != nil {
		return err
	}

	server, err := app.Manager.ServerMetrics(ctx)
	if err != nil {
		return err
	}

	return metrics.WriteSummary(os.Stdout, server, app.Manager.MemoryUsage(ctx))
}

func runDiscovery(ctx context.Context, _ *cli.Command, app *setup.App) error {
	data, err := metrics.ZabbixDiscovery(app.Manager.MemoryUsage(ctx))
	if err != nil {
		return err
	}

	_, err = os.Stdout.Write(append(data, '\n'))
	return err
}
