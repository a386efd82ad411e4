package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/tracksync/internal/app"
	"github.com/colonyops/tracksync/internal/printer"
	"github.com/colonyops/tracksync/pkg/iojson"
)

type HistoryCmd struct {
	flags *Flags
	app   *app.App

	limit      int
	jsonOutput bool
}

// NewHistoryCmd creates a new history command
func NewHistoryCmd(flags *Flags, a *app.App) *HistoryCmd {
	return &HistoryCmd{flags: flags, app: a}
}

// Register adds the history command to the application
func (cmd *HistoryCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "history",
		Usage:     "Show past sync runs",
		UsageText: "tracksync history [--limit N] [--json]",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:        "limit",
				Aliases:     []string{"n"},
				Usage:       "number of runs to show",
				Value:       10,
				Destination: &cmd.limit,
			},
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "output as JSON lines",
				Destination: &cmd.jsonOutput,
			},
		},
		Action: cmd.runList,
		Commands: []*cli.Command{
			{
				Name:      "show",
				Usage:     "Show one run as JSON, including its failures",
				UsageText: "tracksync history show <id>",
				Action:    cmd.runShow,
			},
			{
				Name:      "clear",
				Usage:     "Delete the run history",
				UsageText: "tracksync history clear",
				Action:    cmd.runClear,
			},
		},
	})

	return app
}

func (cmd *HistoryCmd) runList(ctx context.Context, c *cli.Command) error {
	entries, err := cmd.app.History.Recent(ctx, cmd.limit)
	if err != nil {
		return err
	}

	if cmd.jsonOutput {
		return iojson.WriteLines(c.Root().Writer, entries)
	}
	if len(entries) == 0 {
		printer.Ctx(ctx).Infof("No sync runs recorded")
		return nil
	}
	printHistory(c.Root().Writer, entries)
	return nil
}

func (cmd *HistoryCmd) runShow(ctx context.Context, c *cli.Command) error {
	if c.Args().Len() != 1 {
		return fmt.Errorf("expected exactly one run id")
	}

	entry, err := cmd.app.History.Get(ctx, c.Args().First())
	if err != nil {
		return err
	}
	return iojson.WriteWith(c.Root().Writer, c.Root().ErrWriter, entry)
}

func (cmd *HistoryCmd) runClear(ctx context.Context, c *cli.Command) error {
	if err := cmd.app.History.Clear(ctx); err != nil {
		return err
	}
	printer.Ctx(ctx).Successf("Cleared sync history")
	return nil
}
