// Package github implements the issue tracker on top of the gh CLI.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/colonyops/tracksync/internal/tracker"
	"github.com/colonyops/tracksync/pkg/executil"
)

var issueURLRe = regexp.MustCompile(`https?://\S+/issues/(\d+)`)

// Tracker talks to GitHub Issues through gh.
type Tracker struct {
	exec   executil.Executor
	gh     string
	repo   string
	logger zerolog.Logger

	mu     sync.Mutex
	labels map[string]bool // labels known to exist in the repo
}

var (
	_ tracker.Tracker = (*Tracker)(nil)
	_ tracker.Finder  = (*Tracker)(nil)
)

// New creates a Tracker for repo (owner/name). ghPath defaults to "gh".
func New(exec executil.Executor, ghPath, repo string, logger zerolog.Logger) *Tracker {
	if ghPath == "" {
		ghPath = "gh"
	}
	return &Tracker{
		exec:   exec,
		gh:     ghPath,
		repo:   repo,
		labels: make(map[string]bool),
		logger: logger.With().Str("cmp", "github").Str("repo", repo).Logger(),
	}
}

// CreateIssue creates an issue and returns its number parsed from the URL gh
// prints on success.
func (t *Tracker) CreateIssue(ctx context.Context, in tracker.IssueInput) (tracker.Issue, error) {
	if err := t.ensureLabels(ctx, in.Labels); err != nil {
		return tracker.Issue{}, &tracker.Error{Op: "create", Err: err}
	}

	args := []string{"issue", "create", "--repo", t.repo, "--title", in.Title, "--body-file", "-"}
	for _, l := range in.Labels {
		args = append(args, "--label", l)
	}

	out, err := t.exec.RunInput(ctx, []byte(in.Body), t.gh, args...)
	if err != nil {
		return tracker.Issue{}, &tracker.Error{Op: "create", Err: err}
	}

	issue, err := ParseIssueURL(string(out))
	if err != nil {
		return tracker.Issue{}, &tracker.Error{Op: "create", Err: err}
	}

	if in.Closed {
		if err := t.setState(ctx, issue.Number, true); err != nil {
			return issue, &tracker.Error{Op: "close", Number: issue.Number, Err: err}
		}
	}

	t.logger.Debug().Int("number", issue.Number).Msg("issue created")
	return issue, nil
}

// UpdateIssue replaces title and body, adds missing labels, removes the
// labels listed in RemoveLabels and applies the open/closed state. Labels
// added by hand on GitHub are left alone.
func (t *Tracker) UpdateIssue(ctx context.Context, number int, in tracker.IssueInput) error {
	if err := t.ensureLabels(ctx, in.Labels); err != nil {
		return &tracker.Error{Op: "update", Number: number, Err: err}
	}

	args := []string{"issue", "edit", strconv.Itoa(number), "--repo", t.repo, "--title", in.Title, "--body-file", "-"}
	if len(in.Labels) > 0 {
		args = append(args, "--add-label", strings.Join(in.Labels, ","))
	}
	if len(in.RemoveLabels) > 0 {
		args = append(args, "--remove-label", strings.Join(in.RemoveLabels, ","))
	}

	if _, err := t.exec.RunInput(ctx, []byte(in.Body), t.gh, args...); err != nil {
		return &tracker.Error{Op: "update", Number: number, Err: err}
	}

	if err := t.setState(ctx, number, in.Closed); err != nil {
		return &tracker.Error{Op: "update", Number: number, Err: err}
	}

	t.logger.Debug().Int("number", number).Msg("issue updated")
	return nil
}

type listedIssue struct {
	Number int    `json:"number"`
	URL    string `json:"url"`
	Body   string `json:"body"`
}

// FindByMarker searches open and closed issues for one whose body contains marker.
func (t *Tracker) FindByMarker(ctx context.Context, marker string) (tracker.Issue, bool, error) {
	out, err := t.exec.Run(ctx, t.gh, "issue", "list",
		"--repo", t.repo,
		"--state", "all",
		"--search", fmt.Sprintf("%q in:body", marker),
		"--json", "number,url,body",
	)
	if err != nil {
		return tracker.Issue{}, false, &tracker.Error{Op: "find", Err: err}
	}

	var issues []listedIssue
	if err := json.Unmarshal(out, &issues); err != nil {
		return tracker.Issue{}, false, &tracker.Error{Op: "find", Err: fmt.Errorf("decode gh output: %w", err)}
	}

	// search is fuzzy, confirm the exact marker
	for _, is := range issues {
		if strings.Contains(is.Body, marker) {
			return tracker.Issue{Number: is.Number, URL: is.URL}, true, nil
		}
	}
	return tracker.Issue{}, false, nil
}

// ensureLabels creates labels gh would otherwise reject as unknown. Results are
// cached for the lifetime of the Tracker.
func (t *Tracker) ensureLabels(ctx context.Context, labels []string) error {
	for _, l := range labels {
		t.mu.Lock()
		known := t.labels[l]
		t.mu.Unlock()
		if known {
			continue
		}

		_, err := t.exec.Run(ctx, t.gh, "label", "create", l, "--repo", t.repo)
		if err != nil && !strings.Contains(err.Error(), "already exists") {
			return fmt.Errorf("create label %q: %w", l, err)
		}

		t.mu.Lock()
		t.labels[l] = true
		t.mu.Unlock()
	}
	return nil
}

func (t *Tracker) setState(ctx context.Context, number int, closed bool) error {
	verb := "reopen"
	if closed {
		verb = "close"
	}
	_, err := t.exec.Run(ctx, t.gh, "issue", verb, strconv.Itoa(number), "--repo", t.repo)
	return err
}

// ParseIssueURL extracts the issue from gh output containing an issue URL.
func ParseIssueURL(out string) (tracker.Issue, error) {
	m := issueURLRe.FindStringSubmatch(out)
	if m == nil {
		return tracker.Issue{}, fmt.Errorf("no issue url in gh output: %q", strings.TrimSpace(out))
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return tracker.Issue{}, fmt.Errorf("parse issue number %q: %w", m[1], err)
	}
	return tracker.Issue{Number: n, URL: m[0]}, nil
}
