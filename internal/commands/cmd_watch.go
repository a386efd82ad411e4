package commands

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/tracksync/internal/app"
	"github.com/colonyops/tracksync/internal/core/logging"
	"github.com/colonyops/tracksync/internal/printer"
	"github.com/colonyops/tracksync/internal/source/planning"
)

type WatchCmd struct {
	flags *Flags
	app   *app.App

	initial bool
	dryRun  bool
}

// NewWatchCmd creates a new watch command
func NewWatchCmd(flags *Flags, a *app.App) *WatchCmd {
	return &WatchCmd{flags: flags, app: a}
}

// Register adds the watch command to the application
func (cmd *WatchCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "watch",
		Usage:     "Sync planning sessions as their documents change",
		UsageText: "tracksync watch [--initial] [--dry-run]",
		Description: `Watches the planning directory and syncs a session each time its
document is saved. Changes are debounced by sync.debounce. Stop with Ctrl-C.`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "initial",
				Usage:       "sync every session once before watching",
				Destination: &cmd.initial,
			},
			&cli.BoolFlag{
				Name:        "dry-run",
				Usage:       "show what would be sent without contacting the tracker or saving",
				Destination: &cmd.dryRun,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *WatchCmd) run(ctx context.Context, c *cli.Command) error {
	cfg := cmd.app.Config
	logger := logging.Component("watch")
	p := printer.Ctx(ctx)

	if cmd.initial {
		if err := runSync(ctx, c, cmd.app, app.SyncRequest{AllSessions: true, DryRun: cmd.dryRun}, false); err != nil {
			return err
		}
	}

	w, err := planning.NewWatcher(cfg.PlanningDir(), cfg.Sync.Debounce, logger)
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()

	p.Infof("Watching %s", cfg.PlanningDir())

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events():
			if !ok {
				return nil
			}
			if ev.Removed {
				logger.Info().Str("path", ev.Path).Msg("planning document removed; its records are kept")
				continue
			}

			s, err := planning.ParseFile(ev.Path)
			if err != nil {
				if errors.Is(err, planning.ErrNoSession) {
					logger.Debug().Str("path", ev.Path).Msg("no session id, ignoring")
				} else {
					p.Warnf("%s: %v", ev.Path, err)
				}
				continue
			}

			err = runSync(ctx, c, cmd.app, app.SyncRequest{Sessions: []string{s.ID}, DryRun: cmd.dryRun}, false)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				// a broken document must not stop the watcher
				log.Error().Err(err).Str("session_id", s.ID).Msg("sync failed")
			}
		}
	}
}
