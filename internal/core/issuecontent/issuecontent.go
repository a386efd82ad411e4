// Package issuecontent renders work items into tracker issue content.
package issuecontent

import (
	"errors"
	"fmt"
	"maps"
	"strings"

	"github.com/colonyops/tracksync/internal/core/config"
	"github.com/colonyops/tracksync/internal/core/labels"
	"github.com/colonyops/tracksync/internal/core/snapshot"
	"github.com/colonyops/tracksync/internal/core/workitem"
	"github.com/colonyops/tracksync/internal/tracker"
	"github.com/colonyops/tracksync/pkg/tmpl"
)

// ErrEmptyTitle is returned when a template renders to a blank title.
var ErrEmptyTitle = errors.New("rendered title is empty")

// Default templates used when the config does not override them.
const (
	DefaultTaskTitle = "[{{ .SessionID }}] {{ .TaskID }}: {{ .Title }}"
	DefaultTaskBody  = `{{ if .Description }}{{ .Description }}

{{ end }}**Planning session:** {{ .SessionID }}{{ if .SessionTitle }} ({{ .SessionTitle }}){{ end }}
**Task:** {{ .TaskID }}
{{- if .Priority }}
**Priority:** {{ .Priority }}
{{- end }}
{{- if .DocPath }}
**Document:** ` + "`{{ .DocPath }}`" + `
{{- end }}`

	DefaultCommentTitle = "{{ .Marker }}: {{ .Text }}"
	DefaultCommentBody  = "Found in `{{ .FilePath }}` at line {{ .LineNumber }}:\n\n" +
		"> {{ .Marker }}: {{ .Text }}\n" +
		"{{ if .Context }}\n{{ fence \"\" .Context }}\n{{ end }}"
)

// Builder turns work items into issue input plus the snapshot used for change
// detection.
type Builder struct {
	templates config.TemplatesConfig
	labels    *labels.Computer
	vars      map[string]any
}

// NewBuilder creates a Builder. Empty templates fall back to the defaults.
func NewBuilder(templates config.TemplatesConfig, lc *labels.Computer, vars map[string]any) *Builder {
	if templates.PlanningTask.Title == "" {
		templates.PlanningTask.Title = DefaultTaskTitle
	}
	if templates.PlanningTask.Body == "" {
		templates.PlanningTask.Body = DefaultTaskBody
	}
	if templates.CodeComment.Title == "" {
		templates.CodeComment.Title = DefaultCommentTitle
	}
	if templates.CodeComment.Body == "" {
		templates.CodeComment.Body = DefaultCommentBody
	}
	if vars == nil {
		vars = map[string]any{}
	}
	return &Builder{templates: templates, labels: lc, vars: vars}
}

// Build renders the item. The returned snapshot is computed from exactly the
// content in the returned input.
func (b *Builder) Build(item workitem.Item) (tracker.IssueInput, snapshot.Snapshot, error) {
	if err := item.Validate(); err != nil {
		return tracker.IssueInput{}, snapshot.Snapshot{}, err
	}

	var (
		tpl    config.IssueTemplate
		data   map[string]any
		closed bool
	)
	switch {
	case item.Task != nil:
		tpl = b.templates.PlanningTask
		data = b.taskData(item.Task)
		closed = item.Task.Done
	default:
		tpl = b.templates.CodeComment
		data = b.commentData(item.Comment)
	}

	title, err := tmpl.Render(tpl.Title, data)
	if err != nil {
		return tracker.IssueInput{}, snapshot.Snapshot{}, fmt.Errorf("render title for %s: %w", item, err)
	}
	body, err := tmpl.Render(tpl.Body, data)
	if err != nil {
		return tracker.IssueInput{}, snapshot.Snapshot{}, fmt.Errorf("render body for %s: %w", item, err)
	}

	state := "open"
	if closed {
		state = "closed"
	}

	snap := snapshot.Create(snapshot.Content{
		Title:  title,
		Body:   body,
		Labels: b.labels.Labels(item),
		State:  state,
	})
	if snap.Title == "" {
		return tracker.IssueInput{}, snapshot.Snapshot{}, fmt.Errorf("%w: %s", ErrEmptyTitle, item)
	}

	input := tracker.IssueInput{
		Title:  snap.Title,
		Body:   withMarker(snap.Body, item.Source().Key()),
		Labels: snap.Labels,
		Closed: closed,
	}
	return input, snap, nil
}

func withMarker(body, key string) string {
	marker := tracker.Marker(key)
	if body == "" {
		return marker
	}
	return strings.TrimRight(body, "\n") + "\n\n" + marker
}

func (b *Builder) taskData(t *workitem.Task) map[string]any {
	data := config.TaskTemplateSample(maps.Clone(b.vars))
	data["SessionID"] = t.SessionID
	data["SessionTitle"] = t.SessionTitle
	data["TaskID"] = t.TaskID
	data["Title"] = t.Title
	data["Description"] = t.Description
	data["Priority"] = t.Priority
	data["Done"] = t.Done
	data["DocPath"] = t.DocPath
	data["Labels"] = t.Labels
	return data
}

func (b *Builder) commentData(c *workitem.Comment) map[string]any {
	data := config.CommentTemplateSample(maps.Clone(b.vars))
	data["CommentID"] = c.CommentID
	data["Marker"] = c.Marker
	data["Text"] = c.Text
	data["FilePath"] = c.FilePath
	data["LineNumber"] = c.LineNumber
	data["Context"] = c.Context
	return data
}
