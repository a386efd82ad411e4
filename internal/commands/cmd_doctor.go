package commands

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/tracksync/internal/app"
	"github.com/colonyops/tracksync/internal/core/doctor"
	"github.com/colonyops/tracksync/internal/core/styles"
	"github.com/colonyops/tracksync/pkg/iojson"
)

type DoctorCmd struct {
	flags   *Flags
	app     *app.App
	format  string
	autofix bool
}

func NewDoctorCmd(flags *Flags, a *app.App) *DoctorCmd {
	return &DoctorCmd{flags: flags, app: a}
}

func (cmd *DoctorCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:        "doctor",
		Usage:       "Run health checks on your tracksync setup",
		UsageText:   "tracksync doctor [options]",
		Description: "Checks tracker access, the tracking file, and the planning documents.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "format",
				Usage:       "output format (text, json)",
				Value:       "text",
				Destination: &cmd.format,
			},
			&cli.BoolFlag{
				Name:        "autofix",
				Usage:       "reset failed records to pending",
				Destination: &cmd.autofix,
			},
		},
		Action: cmd.run,
	})
	return app
}

func (cmd *DoctorCmd) run(ctx context.Context, c *cli.Command) error {
	results := cmd.app.Doctor(ctx, cmd.autofix)

	if cmd.format == "json" {
		return cmd.outputJSON(c, results)
	}

	return cmd.outputText(c.Root().Writer, results)
}

type summaryJSON struct {
	Passed int `json:"passed"`
	Warned int `json:"warned"`
	Failed int `json:"failed"`
}

func (cmd *DoctorCmd) outputJSON(c *cli.Command, results []doctor.Result) error {
	passed, warned, failed := doctor.Summary(results)

	out := struct {
		Healthy bool            `json:"healthy"`
		Summary summaryJSON     `json:"summary"`
		Checks  []doctor.Result `json:"checks"`
	}{
		Healthy: failed == 0,
		Summary: summaryJSON{Passed: passed, Warned: warned, Failed: failed},
		Checks:  results,
	}

	if err := iojson.WriteWith(c.Root().Writer, c.Root().ErrWriter, out); err != nil {
		return err
	}
	if failed > 0 {
		return cli.Exit("", 1)
	}
	return nil
}

func (cmd *DoctorCmd) outputText(w io.Writer, results []doctor.Result) error {
	_, _ = fmt.Fprintln(w, styles.HeaderStyle.Render("tracksync doctor"))
	_, _ = fmt.Fprintln(w, styles.MutedStyle.Render(strings.Repeat("─", 40)))

	for _, result := range results {
		_, _ = fmt.Fprintln(w)
		_, _ = fmt.Fprintln(w, styles.TextStyle.Bold(true).Render(result.Name))

		for _, item := range result.Items {
			var detail string
			if item.Detail != "" {
				detail = " " + styles.MutedStyle.Render(item.Detail)
			}

			var icon string
			switch item.Status {
			case doctor.StatusPass:
				icon = styles.SuccessStyle.Render(styles.IconSuccess)
			case doctor.StatusWarn:
				icon = styles.WarningStyle.Render(styles.IconWarning)
			case doctor.StatusFail:
				icon = styles.ErrorStyle.Render(styles.IconError)
			}

			_, _ = fmt.Fprintf(w, "  %s %s%s\n", icon, item.Label, detail)
		}
	}

	passed, warned, failed := doctor.Summary(results)
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintf(w, "%s  %s  %s\n",
		styles.SuccessStyle.Render(fmt.Sprintf("%d passed", passed)),
		styles.WarningStyle.Render(fmt.Sprintf("%d warnings", warned)),
		styles.ErrorStyle.Render(fmt.Sprintf("%d failed", failed)),
	)

	if fixable := doctor.CountFixable(results); !cmd.autofix && fixable > 0 {
		_, _ = fmt.Fprintln(w, styles.MutedStyle.Render(fmt.Sprintf("Run 'tracksync doctor --autofix' to fix %d issue(s)", fixable)))
	}

	if failed > 0 {
		return cli.Exit("", 1)
	}
	return nil
}
