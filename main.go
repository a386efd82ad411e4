package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/tracksync/internal/app"
	"github.com/colonyops/tracksync/internal/commands"
	"github.com/colonyops/tracksync/internal/core/config"
	"github.com/colonyops/tracksync/internal/core/logging"
	"github.com/colonyops/tracksync/internal/core/styles"
	"github.com/colonyops/tracksync/internal/printer"
	"github.com/colonyops/tracksync/pkg/executil"
	"github.com/colonyops/tracksync/pkg/logutils"
)

var (
	// Build information. Populated at build-time via -ldflags flag.
	// When installed via `go install module@version`, build() falls back
	// to runtime/debug.BuildInfo.
	version = "dev"
	commit  = "HEAD"
	date    = "now"
)

func build() string {
	v, c, d := version, commit, date

	if v == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok {
			if mv := info.Main.Version; mv != "" && mv != "(devel)" {
				v = mv
			}
			for _, s := range info.Settings {
				switch s.Key {
				case "vcs.revision":
					c = s.Value
				case "vcs.time":
					d = s.Value
				}
			}
		}
	}

	short := c
	if len(c) > 7 {
		short = c[:7]
	}

	return fmt.Sprintf("%s (%s) %s", v, short, d)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	var (
		logCloser func()
		tsApp     = &app.App{}
	)

	flags := &commands.Flags{}

	root := &cli.Command{
		Name:      "tracksync",
		Usage:     "Mirror planning tasks and code comments to your issue tracker",
		UsageText: "tracksync [global options] command [command options]",
		Description: `tracksync keeps a local record of every planning task and TODO-style
comment it has turned into an issue, so running it again only creates what is
new and updates what changed.

Run 'tracksync sync --dry-run' to preview what would be sent.`,
		Version: build(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error, fatal, panic)",
				Sources:     cli.EnvVars("TRACKSYNC_LOG_LEVEL"),
				Value:       "warn",
				Destination: &flags.LogLevel,
			},
			&cli.StringFlag{
				Name:        "log-file",
				Usage:       "write JSON logs to this file instead of stderr (rotated)",
				Sources:     cli.EnvVars("TRACKSYNC_LOG_FILE"),
				Destination: &flags.LogFile,
			},
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "path to config file",
				Sources:     cli.EnvVars("TRACKSYNC_CONFIG"),
				Value:       commands.DefaultConfigPath(),
				Destination: &flags.ConfigPath,
			},
			&cli.StringFlag{
				Name:        "data-dir",
				Usage:       "path to data directory",
				Sources:     cli.EnvVars("TRACKSYNC_DATA_DIR"),
				Value:       commands.DefaultDataDir(),
				Destination: &flags.DataDir,
			},
			&cli.StringFlag{
				Name:        "root",
				Usage:       "repository root that relative paths resolve against",
				Sources:     cli.EnvVars("TRACKSYNC_ROOT"),
				Value:       commands.DefaultRootDir(),
				Destination: &flags.RootDir,
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			logger, closer, err := logutils.New(flags.LogLevel, flags.LogFile)
			if err != nil {
				return ctx, fmt.Errorf("setup logger: %w", err)
			}
			log.Logger = logger.Hook(logging.ContextHook{})
			logCloser = closer

			cfg, err := config.Load(flags.ConfigPath, flags.DataDir, flags.RootDir)
			if err != nil {
				return ctx, fmt.Errorf("load config: %w", err)
			}
			flags.Config = cfg

			// Validate ensures the theme exists.
			palette, _ := styles.GetPalette(cfg.Theme)
			styles.SetTheme(palette)

			// Commands already hold a pointer to the App.
			*tsApp = *app.New(cfg, &executil.RealExecutor{}, log.With().Str("cmp", "tracksync").Logger())

			return printer.NewContext(ctx, printer.New(c.Root().Writer)), nil
		},
		After: func(ctx context.Context, c *cli.Command) error {
			if logCloser != nil {
				logCloser()
			}
			return nil
		},
	}

	root = commands.NewSyncCmd(flags, tsApp).Register(root)
	root = commands.NewPushCmd(flags, tsApp).Register(root)
	root = commands.NewWatchCmd(flags, tsApp).Register(root)
	root = commands.NewStatusCmd(flags, tsApp).Register(root)
	root = commands.NewRecordsCmd(flags, tsApp).Register(root)
	root = commands.NewResetCmd(flags, tsApp).Register(root)
	root = commands.NewHistoryCmd(flags, tsApp).Register(root)
	root = commands.NewDoctorCmd(flags, tsApp).Register(root)
	root = commands.NewConfigValidateCmd(flags).Register(root)

	exitCode := 0
	if err := root.Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		exitCode = 1
	}

	stop()
	os.Exit(exitCode)
}
