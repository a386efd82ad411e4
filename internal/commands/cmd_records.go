package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/tracksync/internal/app"
	"github.com/colonyops/tracksync/internal/core/tracking"
	"github.com/colonyops/tracksync/internal/printer"
	"github.com/colonyops/tracksync/pkg/iojson"
)

type RecordsCmd struct {
	flags *Flags
	app   *app.App

	status     string
	session    string
	jsonOutput bool
}

// NewRecordsCmd creates a new records command
func NewRecordsCmd(flags *Flags, a *app.App) *RecordsCmd {
	return &RecordsCmd{flags: flags, app: a}
}

// Register adds the records command to the application
func (cmd *RecordsCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "records",
		Usage: "Inspect and repair tracking records",
		Commands: []*cli.Command{
			{
				Name:      "list",
				Usage:     "List tracking records",
				UsageText: "tracksync records list [--status S] [--session ID] [--json]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:        "status",
						Usage:       "only records with this status (pending, synced, updated, failed)",
						Destination: &cmd.status,
					},
					&cli.StringFlag{
						Name:        "session",
						Usage:       "only tasks of this planning session",
						Destination: &cmd.session,
					},
					&cli.BoolFlag{
						Name:        "json",
						Usage:       "output as JSON lines",
						Destination: &cmd.jsonOutput,
					},
				},
				Action: cmd.runList,
			},
			{
				Name:      "show",
				Usage:     "Show one record as JSON",
				UsageText: "tracksync records show <id>",
				Action:    cmd.runShow,
			},
			{
				Name:      "delete",
				Usage:     "Forget a record; the next sync creates a new issue for its item",
				UsageText: "tracksync records delete <id>",
				Action:    cmd.runDelete,
			},
			{
				Name:      "reset-attempts",
				Usage:     "Zero the sync attempt counter of a record",
				UsageText: "tracksync records reset-attempts <id>",
				Action:    cmd.runResetAttempts,
			},
		},
	})

	return app
}

func (cmd *RecordsCmd) load() error {
	if err := cmd.app.Records.Load(); err != nil {
		return fmt.Errorf("load tracking file: %w", err)
	}
	return nil
}

func (cmd *RecordsCmd) runList(ctx context.Context, c *cli.Command) error {
	if err := cmd.load(); err != nil {
		return err
	}

	store := cmd.app.Records
	var records []tracking.Record
	switch {
	case cmd.session != "":
		records = store.RecordsBySession(cmd.session)
	default:
		records = store.All()
	}

	if cmd.status != "" {
		status := tracking.Status(cmd.status)
		if !status.IsValid() {
			return fmt.Errorf("unknown status %q (valid: %v)", cmd.status, tracking.AllStatuses)
		}
		filtered := records[:0]
		for _, r := range records {
			if r.Status == status {
				filtered = append(filtered, r)
			}
		}
		records = filtered
	}

	if cmd.jsonOutput {
		return iojson.WriteLines(c.Root().Writer, records)
	}
	if len(records) == 0 {
		printer.Ctx(ctx).Infof("No records")
		return nil
	}
	printRecords(c.Root().Writer, records)
	return nil
}

func (cmd *RecordsCmd) runShow(ctx context.Context, c *cli.Command) error {
	id, err := recordArg(c)
	if err != nil {
		return err
	}
	if err := cmd.load(); err != nil {
		return err
	}

	rec, ok := cmd.app.Records.FindByID(id)
	if !ok {
		return fmt.Errorf("%w: %s", tracking.ErrNotFound, id)
	}
	return iojson.WriteWith(c.Root().Writer, c.Root().ErrWriter, rec)
}

func (cmd *RecordsCmd) runDelete(ctx context.Context, c *cli.Command) error {
	id, err := recordArg(c)
	if err != nil {
		return err
	}
	if err := cmd.load(); err != nil {
		return err
	}

	if !cmd.app.Records.DeleteRecord(id) {
		return fmt.Errorf("%w: %s", tracking.ErrNotFound, id)
	}
	if err := cmd.app.Records.Save(); err != nil {
		return err
	}

	printer.Ctx(ctx).Successf("Deleted record %s", id)
	return nil
}

func (cmd *RecordsCmd) runResetAttempts(ctx context.Context, c *cli.Command) error {
	id, err := recordArg(c)
	if err != nil {
		return err
	}
	if err := cmd.load(); err != nil {
		return err
	}

	if _, err := cmd.app.Records.ResetAttempts(id); err != nil {
		return err
	}
	if err := cmd.app.Records.Save(); err != nil {
		return err
	}

	printer.Ctx(ctx).Successf("Reset attempts of record %s", id)
	return nil
}

func recordArg(c *cli.Command) (string, error) {
	if c.Args().Len() != 1 {
		return "", fmt.Errorf("expected exactly one record id")
	}
	return c.Args().First(), nil
}
