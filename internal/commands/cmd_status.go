package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/tracksync/internal/app"
	"github.com/colonyops/tracksync/pkg/iojson"
)

type StatusCmd struct {
	flags *Flags
	app   *app.App

	jsonOutput bool
}

// NewStatusCmd creates a new status command
func NewStatusCmd(flags *Flags, a *app.App) *StatusCmd {
	return &StatusCmd{flags: flags, app: a}
}

// Register adds the status command to the application
func (cmd *StatusCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "status",
		Usage:     "Show tracking record counts",
		UsageText: "tracksync status [--json]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "output as JSON",
				Destination: &cmd.jsonOutput,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *StatusCmd) run(ctx context.Context, c *cli.Command) error {
	if err := cmd.app.Records.Load(); err != nil {
		return fmt.Errorf("load tracking file: %w", err)
	}

	stats := cmd.app.Records.Statistics()
	if cmd.jsonOutput {
		return iojson.WriteWith(c.Root().Writer, c.Root().ErrWriter, stats)
	}

	printStatistics(c.Root().Writer, stats)
	return nil
}
