// Package tracker defines the remote issue tracker used by the sync engine.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrUnavailable is returned when a tracker backend cannot be reached at all
// (missing binary, bad credentials). Per-issue failures wrap it only when the
// root cause is the same.
var ErrUnavailable = errors.New("tracker unavailable")

// IssueInput is the content pushed to the tracker.
type IssueInput struct {
	Title  string
	Body   string
	Labels []string
	// Closed requests the issue be closed. Trackers that cannot close on
	// create apply it on the following update.
	Closed bool
	// RemoveLabels lists labels applied by an earlier push that no longer
	// apply. Trackers that replace the whole label set ignore it.
	RemoveLabels []string
}

// Issue identifies a remote issue.
type Issue struct {
	Number int
	URL    string
}

// Tracker creates and updates remote issues.
type Tracker interface {
	CreateIssue(ctx context.Context, in IssueInput) (Issue, error)
	UpdateIssue(ctx context.Context, number int, in IssueInput) error
}

// Finder is implemented by trackers that can search issue bodies. The
// orchestrator uses it to adopt an issue created by an earlier run whose
// record was lost before it reached disk.
type Finder interface {
	FindByMarker(ctx context.Context, marker string) (Issue, bool, error)
}

const (
	markerPrefix = "<!-- tracksync:source="
	markerSuffix = " -->"
)

// Marker returns the hidden body marker for a source key.
func Marker(sourceKey string) string {
	return markerPrefix + sourceKey + markerSuffix
}

// ParseMarker extracts the source key from a body containing a marker.
func ParseMarker(body string) (string, bool) {
	_, rest, ok := strings.Cut(body, markerPrefix)
	if !ok {
		return "", false
	}
	key, _, ok := strings.Cut(rest, markerSuffix)
	if !ok || key == "" {
		return "", false
	}
	return key, true
}

// Error describes a failed tracker operation.
type Error struct {
	Op     string // create, update, find
	Number int
	Err    error
}

func (e *Error) Error() string {
	if e.Number > 0 {
		return fmt.Sprintf("%s issue #%d: %v", e.Op, e.Number, e.Err)
	}
	return fmt.Sprintf("%s issue: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
