package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/tracksync/internal/app"
	"github.com/colonyops/tracksync/internal/printer"
)

type ResetCmd struct {
	flags *Flags
	app   *app.App
}

// NewResetCmd creates a new reset command
func NewResetCmd(flags *Flags, a *app.App) *ResetCmd {
	return &ResetCmd{flags: flags, app: a}
}

// Register adds the reset command to the application
func (cmd *ResetCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "reset",
		Usage:     "Move failed records back to pending",
		UsageText: "tracksync reset",
		Description: `Clears the last error of every failed record and marks it pending.

Attempt counters are kept; use 'tracksync records reset-attempts' for that.
Synced and updated records are not touched.`,
		Action: cmd.run,
	})

	return app
}

func (cmd *ResetCmd) run(ctx context.Context, c *cli.Command) error {
	p := printer.Ctx(ctx)

	if err := cmd.app.Records.Load(); err != nil {
		return fmt.Errorf("load tracking file: %w", err)
	}

	changed := cmd.app.Records.ResetPending()
	if len(changed) == 0 {
		p.Infof("No failed records")
		return nil
	}

	if err := cmd.app.Records.Save(); err != nil {
		return err
	}

	for _, r := range changed {
		p.Printf("  %s %s", r.ID, r.Source.Key())
	}
	p.Successf("Reset %d record(s) to pending", len(changed))
	return nil
}
