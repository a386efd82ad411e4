// Package app wires configuration, storage, sources and trackers into the
// operations exposed by the CLI.
package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/colonyops/tracksync/internal/core/config"
	"github.com/colonyops/tracksync/internal/core/issuecontent"
	"github.com/colonyops/tracksync/internal/core/labels"
	"github.com/colonyops/tracksync/internal/core/workitem"
	"github.com/colonyops/tracksync/internal/source/comments"
	"github.com/colonyops/tracksync/internal/source/planning"
	"github.com/colonyops/tracksync/internal/store/jsonfile"
	"github.com/colonyops/tracksync/internal/tracker"
	"github.com/colonyops/tracksync/internal/tracker/dryrun"
	"github.com/colonyops/tracksync/internal/tracker/github"
	"github.com/colonyops/tracksync/internal/tracker/gitlab"
	"github.com/colonyops/tracksync/pkg/executil"
)

// App is the central entry point for tracksync operations. Commands consume
// App instead of cherry-picking raw dependencies.
type App struct {
	Config  *config.Config
	Records *jsonfile.RecordStore
	History *jsonfile.HistoryStore
	Exec    executil.Executor
	Logger  zerolog.Logger

	// TrackerFactory, when set, replaces construction of the configured
	// provider's tracker. Dry runs ignore it.
	TrackerFactory func() (tracker.Tracker, error)
}

// New constructs an App. The record store is not loaded until an operation
// needs it.
func New(cfg *config.Config, exec executil.Executor, logger zerolog.Logger) *App {
	return &App{
		Config:  cfg,
		Records: jsonfile.NewRecordStore(cfg.TrackingPath()),
		History: jsonfile.NewHistoryStore(cfg.HistoryPath(), cfg.HistoryMax),
		Exec:    exec,
		Logger:  logger,
	}
}

// Tracker builds the configured remote tracker. In dry-run mode a dryrun
// tracker is returned regardless of the provider.
func (a *App) Tracker(dryRun bool) (tracker.Tracker, error) {
	if dryRun || a.Config.Tracker.Provider == config.ProviderDryRun {
		return dryrun.New(a.Logger), nil
	}
	if a.TrackerFactory != nil {
		return a.TrackerFactory()
	}

	switch a.Config.Tracker.Provider {
	case config.ProviderGitHub:
		gh := a.Config.Tracker.GitHub
		return github.New(a.Exec, gh.GhPath, gh.Repo, a.Logger), nil
	case config.ProviderGitLab:
		creds := a.Config.Credentials
		if creds.GitLabToken == "" {
			return nil, fmt.Errorf("GITLAB_TOKEN is not set: %w", tracker.ErrUnavailable)
		}
		return gitlab.New(creds.GitLabURL, creds.GitLabToken, a.Config.Tracker.GitLab.Project, a.Logger)
	default:
		return nil, fmt.Errorf("unknown tracker provider %q", a.Config.Tracker.Provider)
	}
}

// Builder returns the issue content builder for the configured templates.
func (a *App) Builder() *issuecontent.Builder {
	return issuecontent.NewBuilder(a.Config.Templates, labels.NewComputer(a.Config.Labels), a.Config.Vars)
}

// Sessions loads the planning sessions. With ids set only those sessions
// are returned and a missing id is an error.
func (a *App) Sessions(ids ...string) ([]planning.Session, error) {
	all, err := planning.LoadDir(a.Config.PlanningDir())
	if err != nil {
		return nil, fmt.Errorf("load planning sessions: %w", err)
	}
	if len(ids) == 0 {
		return all, nil
	}

	out := make([]planning.Session, 0, len(ids))
	for _, id := range ids {
		s, ok := planning.Find(all, id)
		if !ok {
			return nil, fmt.Errorf("planning session %q not found in %s", id, a.Config.PlanningDir())
		}
		out = append(out, s)
	}
	return out, nil
}

// Comments scans the source tree for marker comments.
func (a *App) Comments(ctx context.Context) ([]workitem.Item, error) {
	cc := a.Config.Comments
	s := &comments.Scanner{
		Root:         a.Config.CommentsRoot(),
		Include:      cc.Include,
		Exclude:      cc.Exclude,
		Markers:      cc.Markers,
		ContextLines: cc.ContextLines,
		Logger:       a.Logger,
	}

	found, err := s.Scan(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]workitem.Item, 0, len(found))
	for _, c := range found {
		items = append(items, workitem.FromComment(c))
	}
	return items, nil
}
