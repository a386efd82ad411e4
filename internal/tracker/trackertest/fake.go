// Package trackertest provides an in-memory tracker for tests.
package trackertest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/colonyops/tracksync/internal/tracker"
)

// ErrInjected is returned by calls configured to fail.
var ErrInjected = errors.New("injected failure")

// Issue is the fake's view of a remote issue.
type Issue struct {
	tracker.IssueInput
	Number int
}

// Fake is an in-memory tracker. Failures are injected per title via FailCreate
// and FailUpdate. Calls are counted so tests can assert that nothing hit the
// remote.
type Fake struct {
	mu sync.Mutex

	issues map[int]*Issue
	next   int

	FailCreate map[string]bool // by title
	FailUpdate map[string]bool // by title
	// FailClose creates the issue but fails the close that follows, like a
	// tracker whose create and close are separate calls.
	FailClose map[string]bool // by title
	FailFind  bool

	Creates int
	Updates int
	Finds   int
}

var (
	_ tracker.Tracker = (*Fake)(nil)
	_ tracker.Finder  = (*Fake)(nil)
)

// New returns an empty Fake whose first issue number is 1.
func New() *Fake {
	return &Fake{
		issues:     make(map[int]*Issue),
		FailCreate: make(map[string]bool),
		FailUpdate: make(map[string]bool),
		FailClose:  make(map[string]bool),
	}
}

// CreateIssue stores the issue unless the title is configured to fail.
func (f *Fake) CreateIssue(ctx context.Context, in tracker.IssueInput) (tracker.Issue, error) {
	if err := ctx.Err(); err != nil {
		return tracker.Issue{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.Creates++
	if f.FailCreate[in.Title] {
		return tracker.Issue{}, &tracker.Error{Op: "create", Err: ErrInjected}
	}

	f.next++
	issue := tracker.Issue{Number: f.next, URL: url(f.next)}
	if in.Closed && f.FailClose[in.Title] {
		open := in
		open.Closed = false
		f.issues[f.next] = &Issue{IssueInput: open, Number: f.next}
		return issue, &tracker.Error{Op: "close", Number: f.next, Err: ErrInjected}
	}
	f.issues[f.next] = &Issue{IssueInput: in, Number: f.next}
	return issue, nil
}

// UpdateIssue replaces the stored content.
func (f *Fake) UpdateIssue(ctx context.Context, number int, in tracker.IssueInput) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.Updates++
	if f.FailUpdate[in.Title] {
		return &tracker.Error{Op: "update", Number: number, Err: ErrInjected}
	}
	is, ok := f.issues[number]
	if !ok {
		return &tracker.Error{Op: "update", Number: number, Err: fmt.Errorf("no such issue")}
	}
	is.IssueInput = in
	return nil
}

// FindByMarker returns the lowest numbered issue whose body contains marker.
func (f *Fake) FindByMarker(ctx context.Context, marker string) (tracker.Issue, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Finds++
	if f.FailFind {
		return tracker.Issue{}, false, &tracker.Error{Op: "find", Err: ErrInjected}
	}
	for n := 1; n <= f.next; n++ {
		if is, ok := f.issues[n]; ok && strings.Contains(is.Body, marker) {
			return tracker.Issue{Number: n, URL: url(n)}, true, nil
		}
	}
	return tracker.Issue{}, false, nil
}

// Seed inserts an issue as if created by an earlier run.
func (f *Fake) Seed(in tracker.IssueInput) tracker.Issue {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	f.issues[f.next] = &Issue{IssueInput: in, Number: f.next}
	return tracker.Issue{Number: f.next, URL: url(f.next)}
}

// Get returns a copy of an issue.
func (f *Fake) Get(number int) (Issue, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	is, ok := f.issues[number]
	if !ok {
		return Issue{}, false
	}
	return *is, true
}

// Len returns the number of stored issues.
func (f *Fake) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.issues)
}

func url(n int) string {
	return fmt.Sprintf("https://tracker.test/issues/%d", n)
}

// WithoutFinder hides the Finder implementation of t.
func WithoutFinder(t tracker.Tracker) tracker.Tracker {
	return struct{ tracker.Tracker }{t}
}
