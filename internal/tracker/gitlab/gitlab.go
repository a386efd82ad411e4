// Package gitlab implements the issue tracker on top of the GitLab REST API.
package gitlab

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	gitlab "gitlab.com/gitlab-org/api/client-go"

	"github.com/colonyops/tracksync/internal/tracker"
)

// Tracker talks to GitLab issues of a single project.
type Tracker struct {
	client  *gitlab.Client
	project string
	logger  zerolog.Logger
}

var (
	_ tracker.Tracker = (*Tracker)(nil)
	_ tracker.Finder  = (*Tracker)(nil)
)

// New creates a Tracker. instanceURL is the GitLab root (e.g. https://gitlab.com);
// project is a numeric id or a group/project path.
func New(instanceURL, token, project string, logger zerolog.Logger) (*Tracker, error) {
	client, err := newClient(instanceURL, token)
	if err != nil {
		return nil, fmt.Errorf("%w: creating gitlab client: %w", tracker.ErrUnavailable, err)
	}
	return &Tracker{
		client:  client,
		project: project,
		logger:  logger.With().Str("cmp", "gitlab").Str("project", project).Logger(),
	}, nil
}

func newClient(instanceURL, token string) (*gitlab.Client, error) {
	if instanceURL == "" {
		return gitlab.NewClient(token)
	}
	apiURL := strings.TrimSuffix(instanceURL, "/") + "/api/v4"
	return gitlab.NewClient(token, gitlab.WithBaseURL(apiURL))
}

// CreateIssue creates an issue, closing it right away when requested.
func (t *Tracker) CreateIssue(ctx context.Context, in tracker.IssueInput) (tracker.Issue, error) {
	opts := &gitlab.CreateIssueOptions{
		Title:       gitlab.Ptr(in.Title),
		Description: gitlab.Ptr(in.Body),
	}
	if len(in.Labels) > 0 {
		opts.Labels = gitlab.Ptr(gitlab.LabelOptions(in.Labels))
	}

	created, _, err := t.client.Issues.CreateIssue(t.project, opts, gitlab.WithContext(ctx))
	if err != nil {
		return tracker.Issue{}, &tracker.Error{Op: "create", Err: err}
	}

	issue := tracker.Issue{Number: int(created.IID), URL: created.WebURL}

	if in.Closed {
		_, _, err := t.client.Issues.UpdateIssue(t.project, created.IID, &gitlab.UpdateIssueOptions{
			StateEvent: gitlab.Ptr("close"),
		}, gitlab.WithContext(ctx))
		if err != nil {
			return issue, &tracker.Error{Op: "close", Number: issue.Number, Err: err}
		}
	}

	t.logger.Debug().Int("number", issue.Number).Msg("issue created")
	return issue, nil
}

// UpdateIssue replaces title, description and labels and applies the state.
func (t *Tracker) UpdateIssue(ctx context.Context, number int, in tracker.IssueInput) error {
	state := "reopen"
	if in.Closed {
		state = "close"
	}

	labels := gitlab.LabelOptions(in.Labels)
	if labels == nil {
		labels = gitlab.LabelOptions{}
	}

	_, _, err := t.client.Issues.UpdateIssue(t.project, int64(number), &gitlab.UpdateIssueOptions{
		Title:       gitlab.Ptr(in.Title),
		Description: gitlab.Ptr(in.Body),
		Labels:      &labels,
		StateEvent:  gitlab.Ptr(state),
	}, gitlab.WithContext(ctx))
	if err != nil {
		return &tracker.Error{Op: "update", Number: number, Err: err}
	}

	t.logger.Debug().Int("number", number).Msg("issue updated")
	return nil
}

// FindByMarker searches issue descriptions in all states for marker.
func (t *Tracker) FindByMarker(ctx context.Context, marker string) (tracker.Issue, bool, error) {
	issues, _, err := t.client.Issues.ListProjectIssues(t.project, &gitlab.ListProjectIssuesOptions{
		ListOptions: gitlab.ListOptions{PerPage: 20},
		Search:      gitlab.Ptr(marker),
		In:          gitlab.Ptr("description"),
		State:       gitlab.Ptr("all"),
	}, gitlab.WithContext(ctx))
	if err != nil {
		return tracker.Issue{}, false, &tracker.Error{Op: "find", Err: err}
	}

	for _, is := range issues {
		if is != nil && strings.Contains(is.Description, marker) {
			return tracker.Issue{Number: int(is.IID), URL: is.WebURL}, true, nil
		}
	}
	return tracker.Issue{}, false, nil
}
