package main

import (
	"context"
	"log"
	"os"

	"github.com/robalyx/apachemgr/cmd/apachemgr/commands"
	"github.com/urfave/cli/v3"
)

func main() {
	if err := run(); err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}

func run() error {
	report := commands.ReportCommand()

	app := &cli.Command{
		Name:                   "apachemgr",
		Usage:                  "Monitor and control Apache web server workers",
		UseShortOptionHandling: true,
		Flags:                  commands.GlobalFlags(),
		Commands: []*cli.Command{
			commands.KillCommand(),
			commands.CollectCommand(),
			report,
			commands.DiscoveryCommand(),
			commands.WatchCommand(),
		},
		Action: report.Action,
	}

	return app.Run(context.Background(), os.Args)
}
