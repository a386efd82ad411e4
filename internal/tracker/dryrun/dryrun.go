// Package dryrun provides a tracker that performs no network calls.
package dryrun

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/colonyops/tracksync/internal/tracker"
)

// Action is an operation the tracker would have performed.
type Action struct {
	Op     string `json:"op"`
	Number int    `json:"number"`
	Title  string `json:"title"`
}

// Tracker logs intent and returns synthetic issue numbers. Numbers start
// after Offset so they do not collide with real issues in output.
type Tracker struct {
	logger zerolog.Logger

	mu      sync.Mutex
	next    int
	actions []Action
}

var _ tracker.Tracker = (*Tracker)(nil)

// Offset is added to synthetic issue numbers.
const Offset = 900000

// New creates a dry-run tracker.
func New(logger zerolog.Logger) *Tracker {
	return &Tracker{
		logger: logger.With().Str("cmp", "dryrun").Logger(),
		next:   Offset,
	}
}

// CreateIssue records a create and returns a synthetic issue.
func (t *Tracker) CreateIssue(_ context.Context, in tracker.IssueInput) (tracker.Issue, error) {
	t.mu.Lock()
	t.next++
	n := t.next
	t.actions = append(t.actions, Action{Op: "create", Number: n, Title: in.Title})
	t.mu.Unlock()

	t.logger.Info().Int("number", n).Str("title", in.Title).Strs("labels", in.Labels).Msg("would create issue")
	return tracker.Issue{Number: n, URL: fmt.Sprintf("dryrun://issues/%d", n)}, nil
}

// UpdateIssue records an update.
func (t *Tracker) UpdateIssue(_ context.Context, number int, in tracker.IssueInput) error {
	t.mu.Lock()
	t.actions = append(t.actions, Action{Op: "update", Number: number, Title: in.Title})
	t.mu.Unlock()

	t.logger.Info().Int("number", number).Str("title", in.Title).Bool("closed", in.Closed).Msg("would update issue")
	return nil
}

// Actions returns the recorded operations in call order.
func (t *Tracker) Actions() []Action {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Action, len(t.actions))
	copy(out, t.actions)
	return out
}
