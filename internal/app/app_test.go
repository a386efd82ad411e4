package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/tracksync/internal/core/config"
	"github.com/colonyops/tracksync/internal/core/tracking"
	"github.com/colonyops/tracksync/internal/core/workitem"
	"github.com/colonyops/tracksync/internal/tracker"
	"github.com/colonyops/tracksync/internal/tracker/dryrun"
	"github.com/colonyops/tracksync/internal/tracker/github"
	"github.com/colonyops/tracksync/internal/tracker/trackertest"
	"github.com/colonyops/tracksync/pkg/executil"
)

const sessionDoc = `---
session_id: P-1
title: Launch
---
- [ ] T-1: Write docs
- [x] T-2: Ship it
  priority: high
`

const sourceFile = `package main

// TODO: handle shutdown signals
func main() {}
`

type fixture struct {
	app  *App
	fake *trackertest.Fake
	root string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()

	cfg := config.DefaultConfig()
	cfg.Tracker.GitHub.Repo = "colonyops/tracksync"
	cfg.RootDir = root
	cfg.DataDir = t.TempDir()

	writeFile(t, filepath.Join(cfg.PlanningDir(), "p1.md"), sessionDoc)
	writeFile(t, filepath.Join(root, "main.go"), sourceFile)

	fake := trackertest.New()
	a := New(&cfg, &executil.RecordingExecutor{}, zerolog.Nop())
	a.TrackerFactory = func() (tracker.Tracker, error) { return fake, nil }

	return &fixture{app: a, fake: fake, root: root}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestApp_Tracker(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Tracker.GitHub.Repo = "colonyops/tracksync"
	cfg.DataDir = t.TempDir()
	a := New(&cfg, &executil.RecordingExecutor{}, zerolog.Nop())

	tr, err := a.Tracker(false)
	require.NoError(t, err)
	assert.IsType(t, &github.Tracker{}, tr)

	tr, err = a.Tracker(true)
	require.NoError(t, err)
	assert.IsType(t, &dryrun.Tracker{}, tr)

	cfg.Tracker.Provider = config.ProviderGitLab
	cfg.Credentials.GitLabToken = ""
	_, err = a.Tracker(false)
	require.ErrorIs(t, err, tracker.ErrUnavailable)
}

func TestApp_Sessions(t *testing.T) {
	f := newFixture(t)

	all, err := f.app.Sessions()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "P-1", all[0].ID)
	assert.Len(t, all[0].Tasks, 2)

	_, err = f.app.Sessions("P-9")
	require.ErrorContains(t, err, "P-9")
}

func TestApp_Comments(t *testing.T) {
	f := newFixture(t)

	items, err := f.app.Comments(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "main.go", items[0].Comment.FilePath)
	assert.Equal(t, 3, items[0].Comment.LineNumber)
	assert.Equal(t, "handle shutdown signals", items[0].Comment.Text)
}

func TestApp_Sync(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	res, err := f.app.Sync(ctx, SyncRequest{AllSessions: true, Comments: true})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Stats.Created)
	assert.Equal(t, []string{"session:P-1", "comments"}, res.Entry.Scope)
	assert.NotEmpty(t, res.Entry.ID)
	assert.False(t, res.Entry.DryRun)

	// tracking file was saved
	fresh := New(f.app.Config, f.app.Exec, zerolog.Nop())
	require.NoError(t, fresh.Records.Load())
	assert.Equal(t, 3, fresh.Records.Len())
	stats := fresh.Records.Statistics()
	assert.Equal(t, 3, stats.ByStatus[tracking.StatusSynced])

	res, err = f.app.Sync(ctx, SyncRequest{AllSessions: true, Comments: true})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Stats.Skipped)
	assert.Equal(t, 3, f.fake.Creates)

	runs, err := f.app.History.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestApp_Sync_DryRunDoesNotSave(t *testing.T) {
	f := newFixture(t)

	res, err := f.app.Sync(context.Background(), SyncRequest{Sessions: []string{"P-1"}, DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Stats.Created)
	assert.True(t, res.Entry.DryRun)
	require.Len(t, res.Actions, 2)
	assert.Equal(t, 0, f.fake.Creates)

	_, err = os.Stat(f.app.Config.TrackingPath())
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestApp_Sync_Items(t *testing.T) {
	f := newFixture(t)

	item := workitem.FromTask(workitem.Task{SessionID: "EXT", TaskID: "1", Title: "From another tool"})
	res, err := f.app.Sync(context.Background(), SyncRequest{Items: []workitem.Item{item}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Stats.Created)
	assert.Equal(t, []string{"items"}, res.Entry.Scope)
}

func TestApp_Sync_FailuresRecordedInHistory(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fake.FailCreate["[P-1] T-1: Write docs"] = true

	res, err := f.app.Sync(ctx, SyncRequest{AllSessions: true})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Stats.Failed)

	last, err := f.app.History.LastFailed(ctx)
	require.NoError(t, err)
	assert.Equal(t, res.Entry.ID, last.ID)
	require.Len(t, last.Failures, 1)
	assert.Equal(t, "task:P-1/T-1", last.Failures[0].Key)
}

func TestApp_Sync_UnknownSession(t *testing.T) {
	f := newFixture(t)

	res, err := f.app.Sync(context.Background(), SyncRequest{Sessions: []string{"nope"}})
	require.Error(t, err)
	assert.NotEmpty(t, res.Entry.Error)
}
