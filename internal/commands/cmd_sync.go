package commands

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/tracksync/internal/app"
	"github.com/colonyops/tracksync/internal/printer"
	"github.com/colonyops/tracksync/pkg/iojson"
)

type SyncCmd struct {
	flags *Flags
	app   *app.App

	// flags
	sessions    []string
	comments    bool
	all         bool
	dryRun      bool
	concurrency int
	jsonOutput  bool
}

// NewSyncCmd creates a new sync command
func NewSyncCmd(flags *Flags, a *app.App) *SyncCmd {
	return &SyncCmd{flags: flags, app: a}
}

// Register adds the sync command to the application
func (cmd *SyncCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "sync",
		Usage:     "Create and update tracker issues for planning tasks and code comments",
		UsageText: "tracksync sync [--session ID]... [--comments] [--all] [--dry-run]",
		Description: `Reconciles local work items with the issue tracker.

New items get an issue, changed items get their issue updated, and unchanged
items are skipped. Items that fail are recorded and retried on the next run;
they do not make the command fail. With no selection flags everything is synced.`,
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:        "session",
				Aliases:     []string{"s"},
				Usage:       "sync the planning session with this id (repeatable)",
				Destination: &cmd.sessions,
			},
			&cli.BoolFlag{
				Name:        "comments",
				Usage:       "sync marker comments found in the source tree",
				Destination: &cmd.comments,
			},
			&cli.BoolFlag{
				Name:        "all",
				Usage:       "sync every planning session and all comments",
				Destination: &cmd.all,
			},
			&cli.BoolFlag{
				Name:        "dry-run",
				Usage:       "show what would be sent without contacting the tracker or saving",
				Destination: &cmd.dryRun,
			},
			&cli.IntFlag{
				Name:        "concurrency",
				Usage:       "items synced in parallel (defaults to sync.concurrency)",
				Destination: &cmd.concurrency,
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

func (cmd *SyncCmd) run(ctx context.Context, c *cli.Command) error {
	req := app.SyncRequest{
		Sessions:    cmd.sessions,
		AllSessions: cmd.all,
		Comments:    cmd.comments || cmd.all,
		DryRun:      cmd.dryRun,
		Concurrency: cmd.concurrency,
	}
	if req.Empty() {
		req.AllSessions = true
		req.Comments = true
	}

	return runSync(ctx, c, cmd.app, req, cmd.jsonOutput)
}

// runSync executes req and prints the result. The summary is printed even
// when the run aborted so partial progress is visible.
func runSync(ctx context.Context, c *cli.Command, a *app.App, req app.SyncRequest, jsonOutput bool) error {
	res, err := a.Sync(ctx, req)

	if jsonOutput {
		if werr := iojson.WriteWith(c.Root().Writer, c.Root().ErrWriter, res); werr != nil {
			return werr
		}
	} else {
		printSyncResult(printer.Ctx(ctx), res)
	}

	return err
}
