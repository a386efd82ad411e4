// Package workitem defines the local work items that are mirrored to the
// issue tracker: tasks from planning sessions and marker comments in code.
package workitem

import (
	"fmt"

	"github.com/colonyops/tracksync/internal/core/tracking"
)

// Task is a task parsed from a planning session document.
type Task struct {
	SessionID    string   `json:"session_id"`
	SessionTitle string   `json:"session_title,omitempty"`
	TaskID       string   `json:"task_id"`
	Title        string   `json:"title"`
	Description  string   `json:"description,omitempty"`
	Priority     string   `json:"priority,omitempty"`
	Done         bool     `json:"done,omitempty"`
	Labels       []string `json:"labels,omitempty"`
	DocPath      string   `json:"doc_path,omitempty"`
}

// Comment is a marker comment found in a source file.
type Comment struct {
	CommentID  string   `json:"comment_id"`
	Marker     string   `json:"marker"` // TODO, FIXME, ...
	Text       string   `json:"text"`
	FilePath   string   `json:"file_path"` // slash separated, relative to the scan root
	LineNumber int      `json:"line_number"`
	Context    []string `json:"context,omitempty"` // surrounding source lines
}

// Item is a tagged union over Task and Comment. Exactly one is set.
type Item struct {
	Task    *Task    `json:"task,omitempty"`
	Comment *Comment `json:"comment,omitempty"`
}

// FromTask wraps a planning task.
func FromTask(t Task) Item { return Item{Task: &t} }

// FromComment wraps a code comment.
func FromComment(c Comment) Item { return Item{Comment: &c} }

// Type returns the tracking record type for the item.
func (i Item) Type() tracking.Type {
	switch {
	case i.Task != nil:
		return tracking.TypePlanningTask
	case i.Comment != nil:
		return tracking.TypeCodeComment
	default:
		return ""
	}
}

// Source returns the tracking source key for the item.
func (i Item) Source() tracking.Source {
	switch {
	case i.Task != nil:
		return tracking.NewPlanningSource(i.Task.SessionID, i.Task.TaskID)
	case i.Comment != nil:
		return tracking.NewCommentSource(i.Comment.CommentID, i.Comment.FilePath, i.Comment.LineNumber)
	default:
		return tracking.Source{}
	}
}

// Validate reports whether the item can be tracked.
func (i Item) Validate() error {
	if (i.Task == nil) == (i.Comment == nil) {
		return fmt.Errorf("work item must be exactly one of task or comment")
	}
	return i.Source().Validate(i.Type())
}

// String returns a short human readable identifier.
func (i Item) String() string {
	switch {
	case i.Task != nil:
		return i.Task.SessionID + "/" + i.Task.TaskID
	case i.Comment != nil:
		return fmt.Sprintf("%s:%d (%s)", i.Comment.FilePath, i.Comment.LineNumber, i.Comment.CommentID)
	default:
		return "<empty>"
	}
}
