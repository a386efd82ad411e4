package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/tracksync/internal/app"
	"github.com/colonyops/tracksync/internal/core/workitem"
	"github.com/colonyops/tracksync/pkg/iojson"
)

type PushCmd struct {
	flags *Flags
	app   *app.App
	fr    *iojson.FileReader[[]workitem.Item]

	dryRun     bool
	jsonOutput bool
}

// NewPushCmd creates a new push command
func NewPushCmd(flags *Flags, a *app.App) *PushCmd {
	return &PushCmd{
		flags: flags,
		app:   a,
		fr:    &iojson.FileReader[[]workitem.Item]{},
	}
}

// Register adds the push command to the application
func (cmd *PushCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "push",
		Usage:     "Sync work items supplied as JSON",
		UsageText: "tracksync push [-f items.json] [--dry-run]",
		Description: `Syncs work items produced by another tool.

Input is a JSON array. Each element holds either a "task" or a "comment":

  [
    {"task": {"session_id": "P-1", "task_id": "T-1", "title": "Add login"}},
    {"comment": {"comment_id": "TODO-1", "marker": "TODO", "text": "retry",
                 "file_path": "api/client.go", "line_number": 42}}
  ]

Reads from stdin when -f is not given.`,
		Flags: []cli.Flag{
			cmd.fr.Flag(),
			&cli.BoolFlag{
				Name:        "dry-run",
				Usage:       "show what would be sent without contacting the tracker or saving",
				Destination: &cmd.dryRun,
			},
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "print the run summary as JSON",
				Destination: &cmd.jsonOutput,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *PushCmd) run(ctx context.Context, c *cli.Command) error {
	items, err := cmd.fr.Read()
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	if len(items) == 0 {
		return fmt.Errorf("read input: no work items")
	}

	return runSync(ctx, c, cmd.app, app.SyncRequest{Items: items, DryRun: cmd.dryRun}, cmd.jsonOutput)
}
