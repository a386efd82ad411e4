// Package history defines the sync run log.
package history

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no history entry matches.
var ErrNotFound = errors.New("history entry not found")

// Failure is a single item that failed during a run.
type Failure struct {
	Key    string `json:"key"`
	Action string `json:"action"`
	Error  string `json:"error"`
}

// Entry records the outcome of one sync run.
type Entry struct {
	ID         string    `json:"id"`
	Scope      []string  `json:"scope"` // e.g. "session:P-1", "comments", "items"
	Provider   string    `json:"provider"`
	DryRun     bool      `json:"dry_run,omitempty"`
	Created    int       `json:"created"`
	Adopted    int       `json:"adopted,omitempty"`
	Updated    int       `json:"updated"`
	Skipped    int       `json:"skipped"`
	FailedN    int       `json:"failed"`
	Failures   []Failure `json:"failures,omitempty"`
	Error      string    `json:"error,omitempty"` // set when the run aborted
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Failed reports whether any item failed or the run aborted.
func (e Entry) Failed() bool {
	return e.FailedN > 0 || e.Error != ""
}

// Duration returns how long the run took.
func (e Entry) Duration() time.Duration {
	return e.FinishedAt.Sub(e.StartedAt)
}

// Store persists run history.
type Store interface {
	// Append assigns an ID when the entry has none and stores it.
	Append(ctx context.Context, entry Entry) (Entry, error)
	// Recent returns up to limit entries, newest first. limit <= 0 returns all.
	Recent(ctx context.Context, limit int) ([]Entry, error)
	Get(ctx context.Context, id string) (Entry, error)
	LastFailed(ctx context.Context) (Entry, error)
	Clear(ctx context.Context) error
}
