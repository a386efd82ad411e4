package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/colonyops/tracksync/internal/core/config"
	"github.com/colonyops/tracksync/internal/core/history"
	"github.com/colonyops/tracksync/internal/core/logging"
	"github.com/colonyops/tracksync/internal/core/workitem"
	"github.com/colonyops/tracksync/internal/syncer"
	"github.com/colonyops/tracksync/internal/tracker/dryrun"
)

// SyncRequest selects what a sync run covers.
type SyncRequest struct {
	// Sessions limits planning sync to these ids. Ignored when AllSessions
	// is set.
	Sessions    []string
	AllSessions bool
	Comments    bool
	// Items are synced as given, after sessions and comments.
	Items []workitem.Item

	DryRun bool
	// Concurrency overrides sync.concurrency when positive.
	Concurrency int
}

// Empty reports whether the request selects nothing.
func (r SyncRequest) Empty() bool {
	return len(r.Sessions) == 0 && !r.AllSessions && !r.Comments && len(r.Items) == 0
}

// SyncResult is the outcome of a sync run.
type SyncResult struct {
	Entry   history.Entry
	Stats   syncer.Statistics
	Actions []dryrun.Action // dry runs only
}

// Sync runs one sync over the selected work. The tracking file is saved
// after the run, including runs cut short by cancellation, because records
// mutated so far reflect issues that now exist remotely. Dry runs never save.
func (a *App) Sync(ctx context.Context, req SyncRequest) (SyncResult, error) {
	dryRun := req.DryRun || a.Config.Tracker.Provider == config.ProviderDryRun
	entry := history.Entry{
		Provider:  a.Config.Tracker.Provider,
		DryRun:    dryRun,
		StartedAt: time.Now(),
	}

	if err := a.Records.Load(); err != nil {
		return SyncResult{}, fmt.Errorf("load tracking file: %w", err)
	}

	tr, err := a.Tracker(dryRun)
	if err != nil {
		return SyncResult{}, err
	}

	concurrency := a.Config.Sync.Concurrency
	if req.Concurrency > 0 {
		concurrency = req.Concurrency
	}
	orch := syncer.New(a.Records, tr, a.Builder(), a.Logger, syncer.Options{
		Concurrency:   concurrency,
		AdoptExisting: a.Config.Sync.AdoptExistingEnabled() && !dryRun,
	})

	stats, runErr := a.run(ctx, orch, req, &entry)

	if !dryRun {
		if err := a.Records.Save(); err != nil {
			runErr = errors.Join(runErr, fmt.Errorf("save tracking file: %w", err))
		}
	}

	entry.FinishedAt = time.Now()
	entry.Created = stats.Created
	entry.Adopted = stats.Adopted
	entry.Updated = stats.Updated
	entry.Skipped = stats.Skipped
	entry.FailedN = stats.Failed
	for _, f := range stats.Failures {
		entry.Failures = append(entry.Failures, history.Failure(f))
	}
	if runErr != nil {
		entry.Error = runErr.Error()
	}

	// History is best effort; losing a log line must not fail the run.
	saved, err := a.History.Append(context.WithoutCancel(ctx), entry)
	if err != nil {
		a.Logger.Warn().Err(err).Msg("failed to append run history")
	} else {
		entry = saved
	}

	result := SyncResult{Entry: entry, Stats: stats}
	if dt, ok := tr.(*dryrun.Tracker); ok {
		result.Actions = dt.Actions()
	}
	return result, runErr
}

func (a *App) run(ctx context.Context, orch *syncer.Orchestrator, req SyncRequest, entry *history.Entry) (syncer.Statistics, error) {
	var total syncer.Statistics

	if req.AllSessions || len(req.Sessions) > 0 {
		var ids []string
		if !req.AllSessions {
			ids = req.Sessions
		}
		sessions, err := a.Sessions(ids...)
		if err != nil {
			return total, err
		}

		for _, s := range sessions {
			entry.Scope = append(entry.Scope, "session:"+s.ID)
			stats, err := orch.SyncSession(logging.WithSessionID(ctx, s.ID), s.ID, s.Items())
			total.Merge(stats)
			if err != nil {
				return total, fmt.Errorf("sync session %s: %w", s.ID, err)
			}
		}
	}

	if req.Comments {
		entry.Scope = append(entry.Scope, "comments")
		items, err := a.Comments(ctx)
		if err != nil {
			return total, fmt.Errorf("scan comments: %w", err)
		}
		stats, err := orch.SyncComments(ctx, items)
		total.Merge(stats)
		if err != nil {
			return total, fmt.Errorf("sync comments: %w", err)
		}
	}

	if len(req.Items) > 0 {
		entry.Scope = append(entry.Scope, "items")
		stats, err := orch.SyncItems(ctx, req.Items)
		total.Merge(stats)
		if err != nil {
			return total, fmt.Errorf("sync items: %w", err)
		}
	}

	return total, nil
}
