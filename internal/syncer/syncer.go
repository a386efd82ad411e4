// Package syncer reconciles local work items with the remote issue tracker.
//
// For every item the orchestrator looks up the tracking record by source key
// and decides between create, retry, update and skip. Remote failures never
// abort a run: they are recorded on the item's record and counted. Store
// errors that indicate a broken invariant (duplicate or missing records)
// abort the run because continuing would corrupt the tracking file.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/colonyops/tracksync/internal/core/logging"
	"github.com/colonyops/tracksync/internal/core/snapshot"
	"github.com/colonyops/tracksync/internal/core/tracking"
	"github.com/colonyops/tracksync/internal/core/workitem"
	"github.com/colonyops/tracksync/internal/tracker"
)

// Action names used in failures and logs.
const (
	ActionCreate = "create"
	ActionRetry  = "retry"
	ActionUpdate = "update"
	ActionBuild  = "build"
	ActionFind   = "find"
)

// Store is the subset of the record store the orchestrator mutates.
type Store interface {
	FindBySource(src tracking.Source) (tracking.Record, bool)
	AddRecord(draft tracking.Draft) (tracking.Record, error)
	UpdateRecord(id string, patch tracking.Patch) (tracking.Record, error)
	MarkAsSynced(id string, issueNumber int, issueURL string) (tracking.Record, error)
	MarkAsUpdated(id string) (tracking.Record, error)
	MarkAsFailed(id string, errorMessage string) (tracking.Record, error)
}

// Builder renders a work item into issue input and its snapshot.
type Builder interface {
	Build(item workitem.Item) (tracker.IssueInput, snapshot.Snapshot, error)
}

// Options tune an Orchestrator.
type Options struct {
	// Concurrency bounds the number of items in flight. Values below 2 process
	// items one at a time in input order.
	Concurrency int
	// AdoptExisting searches the tracker for an issue carrying the item's
	// source marker before creating one. Requires a tracker.Finder.
	AdoptExisting bool
}

// Failure describes one item that could not be synced.
type Failure struct {
	Key    string `json:"key"`
	Action string `json:"action"`
	Error  string `json:"error"`
}

// Statistics summarizes a sync run.
type Statistics struct {
	Created  int       `json:"created"`
	Adopted  int       `json:"adopted"`
	Updated  int       `json:"updated"`
	Skipped  int       `json:"skipped"`
	Failed   int       `json:"failed"`
	Failures []Failure `json:"failures,omitempty"`
}

// Total returns the number of items accounted for.
func (s Statistics) Total() int {
	return s.Created + s.Adopted + s.Updated + s.Skipped + s.Failed
}

// Merge adds other into s.
func (s *Statistics) Merge(other Statistics) {
	s.Created += other.Created
	s.Adopted += other.Adopted
	s.Updated += other.Updated
	s.Skipped += other.Skipped
	s.Failed += other.Failed
	s.Failures = append(s.Failures, other.Failures...)
}

// Orchestrator drives the per-item sync procedure.
type Orchestrator struct {
	store   Store
	tracker tracker.Tracker
	finder  tracker.Finder
	builder Builder
	logger  zerolog.Logger
	opts    Options

	// mu serializes store access and statistics.
	mu sync.Mutex
}

// New creates an Orchestrator.
func New(store Store, tr tracker.Tracker, builder Builder, logger zerolog.Logger, opts Options) *Orchestrator {
	o := &Orchestrator{
		store:   store,
		tracker: tr,
		builder: builder,
		logger:  logger.With().Str("cmp", "syncer").Logger(),
		opts:    opts,
	}
	if f, ok := tr.(tracker.Finder); ok && opts.AdoptExisting {
		o.finder = f
	}
	return o
}

// SyncSession syncs the tasks of one planning session. Items that do not
// belong to the session are rejected before anything is sent.
func (o *Orchestrator) SyncSession(ctx context.Context, sessionID string, items []workitem.Item) (Statistics, error) {
	for _, it := range items {
		if it.Task == nil || it.Task.SessionID != sessionID {
			return Statistics{}, fmt.Errorf("item %s is not a task of session %s", it, sessionID)
		}
	}
	ctx = logging.WithSessionID(ctx, sessionID)
	return o.SyncItems(ctx, items)
}

// SyncComments syncs code comment items.
func (o *Orchestrator) SyncComments(ctx context.Context, items []workitem.Item) (Statistics, error) {
	for _, it := range items {
		if it.Comment == nil {
			return Statistics{}, fmt.Errorf("item %s is not a code comment", it)
		}
	}
	return o.SyncItems(ctx, items)
}

// SyncItems runs the sync procedure over items. On context cancellation it
// stops dispatching, waits for items in flight and returns ctx.Err() together
// with the statistics so far. The caller decides whether to save the store.
func (o *Orchestrator) SyncItems(ctx context.Context, items []workitem.Item) (Statistics, error) {
	var stats Statistics

	// Duplicate source keys would race on the same record.
	unique := make([]workitem.Item, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, it := range items {
		key := it.Source().Key()
		if seen[key] {
			o.logger.Warn().Str("source", key).Msg("duplicate item in batch, skipping")
			stats.Skipped++
			continue
		}
		seen[key] = true
		unique = append(unique, it)
	}

	if o.opts.Concurrency < 2 {
		for _, it := range unique {
			if err := ctx.Err(); err != nil {
				return stats, err
			}
			if err := o.syncItem(ctx, it, &stats); err != nil {
				return stats, err
			}
		}
		return stats, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.opts.Concurrency)
	for _, it := range unique {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			return o.syncItem(gctx, it, &stats)
		})
	}
	if err := g.Wait(); err != nil {
		return stats, err
	}
	return stats, ctx.Err()
}

// syncItem processes one item. Only structural store errors are returned.
func (o *Orchestrator) syncItem(ctx context.Context, item workitem.Item, stats *Statistics) error {
	src := item.Source()
	key := src.Key()
	ctx = logging.WithSource(ctx, key)
	if item.Task != nil {
		ctx = logging.WithSessionID(ctx, item.Task.SessionID)
	}

	o.mu.Lock()
	rec, exists := o.store.FindBySource(src)
	o.mu.Unlock()

	if exists {
		ctx = logging.WithRecordID(ctx, rec.ID)
	}

	input, snap, err := o.builder.Build(item)
	if err != nil {
		return o.fail(ctx, stats, item, rec, exists, ActionBuild, nil, err)
	}

	switch {
	case !exists:
		return o.create(ctx, stats, item, nil, input, snap)
	case !rec.HasIssue():
		return o.create(ctx, stats, item, &rec, input, snap)
	case !snapshot.HasChanged(rec.Snapshot, snap) && settled(rec.Status):
		o.mu.Lock()
		stats.Skipped++
		o.mu.Unlock()
		o.logger.Debug().Ctx(ctx).Int("issue", rec.GitHub.IssueNumber).Msg("unchanged, skipping")
		return nil
	default:
		return o.update(ctx, stats, item, rec, input, snap)
	}
}

// create creates (or adopts) the issue for an item. rec is nil for items
// seen for the first time.
func (o *Orchestrator) create(ctx context.Context, stats *Statistics, item workitem.Item, rec *tracking.Record, input tracker.IssueInput, snap snapshot.Snapshot) error {
	action := ActionCreate
	if rec != nil {
		action = ActionRetry
	}
	var existing tracking.Record
	if rec != nil {
		existing = *rec
	}

	issue, adopted, err := o.adopt(ctx, item, input)
	if err != nil {
		return o.fail(ctx, stats, item, existing, rec != nil, ActionFind, nil, err)
	}
	if !adopted {
		issue, err = o.tracker.CreateIssue(ctx, input)
		if err != nil {
			// A returned number means the issue exists even though a follow-up
			// step failed. Link it so the next run updates instead of creating.
			var ref *tracking.IssueRef
			if issue.Number > 0 {
				ref = &tracking.IssueRef{IssueNumber: issue.Number, IssueURL: issue.URL}
			}
			return o.fail(ctx, stats, item, existing, rec != nil, action, ref, err)
		}
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if rec == nil {
		added, err := o.store.AddRecord(tracking.Draft{Type: item.Type(), Source: item.Source()})
		if err != nil {
			return fmt.Errorf("add record for %s: %w", item, err)
		}
		existing = added
	}

	if _, err := o.store.UpdateRecord(existing.ID, tracking.Patch{Snapshot: &snap}); err != nil {
		return fmt.Errorf("store snapshot for %s: %w", item, err)
	}
	if _, err := o.store.MarkAsSynced(existing.ID, issue.Number, issue.URL); err != nil {
		return fmt.Errorf("mark %s synced: %w", item, err)
	}

	ev := o.logger.Info().Ctx(logging.WithRecordID(ctx, existing.ID)).Int("issue", issue.Number)
	if adopted {
		stats.Adopted++
		ev.Msg("adopted existing issue")
	} else {
		stats.Created++
		ev.Str("action", action).Msg("issue created")
	}
	return nil
}

// adopt looks for an issue created by an earlier run whose record never made
// it to disk. A found issue is brought up to date with input.
func (o *Orchestrator) adopt(ctx context.Context, item workitem.Item, input tracker.IssueInput) (tracker.Issue, bool, error) {
	if o.finder == nil {
		return tracker.Issue{}, false, nil
	}

	issue, found, err := o.finder.FindByMarker(ctx, tracker.Marker(item.Source().Key()))
	if err != nil || !found {
		return tracker.Issue{}, false, err
	}

	if err := o.tracker.UpdateIssue(ctx, issue.Number, input); err != nil {
		return tracker.Issue{}, false, err
	}
	return issue, true, nil
}

func (o *Orchestrator) update(ctx context.Context, stats *Statistics, item workitem.Item, rec tracking.Record, input tracker.IssueInput, snap snapshot.Snapshot) error {
	changed := snapshot.Diff(rec.Snapshot, snap)
	if rec.Snapshot != nil {
		input.RemoveLabels = removedLabels(rec.Snapshot.Labels, snap.Labels)
	}

	if err := o.tracker.UpdateIssue(ctx, rec.GitHub.IssueNumber, input); err != nil {
		return o.fail(ctx, stats, item, rec, true, ActionUpdate, nil, err)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if _, err := o.store.UpdateRecord(rec.ID, tracking.Patch{Snapshot: &snap}); err != nil {
		return fmt.Errorf("store snapshot for %s: %w", item, err)
	}
	if _, err := o.store.MarkAsUpdated(rec.ID); err != nil {
		return fmt.Errorf("mark %s updated: %w", item, err)
	}

	stats.Updated++
	o.logger.Info().Ctx(ctx).
		Int("issue", rec.GitHub.IssueNumber).
		Strs("changed", changed).
		Str("digest", snap.Digest()).
		Msg("issue updated")
	return nil
}

// fail records a failed attempt. Items without a record get a pending one
// first so the failure is visible and retried on the next run. A non-nil ref
// is attached to the record before it is marked failed.
func (o *Orchestrator) fail(ctx context.Context, stats *Statistics, item workitem.Item, rec tracking.Record, exists bool, action string, ref *tracking.IssueRef, cause error) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !exists {
		added, err := o.store.AddRecord(tracking.Draft{Type: item.Type(), Source: item.Source()})
		if err != nil {
			if errors.Is(err, tracking.ErrInvalidDraft) {
				// nothing to attach the failure to
				o.countFailure(stats, item, action, cause)
				return nil
			}
			return fmt.Errorf("add record for %s: %w", item, err)
		}
		rec = added
	}

	if ref != nil {
		if _, err := o.store.UpdateRecord(rec.ID, tracking.Patch{GitHub: ref}); err != nil {
			return fmt.Errorf("link issue for %s: %w", item, err)
		}
	}

	if _, err := o.store.MarkAsFailed(rec.ID, cause.Error()); err != nil {
		return fmt.Errorf("mark %s failed: %w", item, err)
	}

	o.countFailure(stats, item, action, cause)
	o.logger.Warn().Ctx(logging.WithRecordID(ctx, rec.ID)).Err(cause).Str("action", action).Msg("sync failed")
	return nil
}

// countFailure must be called with o.mu held.
func (o *Orchestrator) countFailure(stats *Statistics, item workitem.Item, action string, cause error) {
	stats.Failed++
	stats.Failures = append(stats.Failures, Failure{
		Key:    item.Source().Key(),
		Action: action,
		Error:  cause.Error(),
	})
}

// settled reports whether a record with an issue reflects its last push.
// Failed and pending records are pushed again even when unchanged.
func settled(st tracking.Status) bool {
	return st == tracking.StatusSynced || st == tracking.StatusUpdated
}

// removedLabels returns the labels in prev that cur no longer carries.
func removedLabels(prev, cur []string) []string {
	var out []string
	for _, l := range prev {
		if !slices.Contains(cur, l) {
			out = append(out, l)
		}
	}
	return out
}
