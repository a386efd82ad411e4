// Package tracking defines the tracking record domain model that links local
// work items to issues in a remote tracker.
package tracking

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/colonyops/tracksync/internal/core/snapshot"
)

// Type distinguishes the kind of work item a record tracks.
type Type string

const (
	TypePlanningTask Type = "planning-task"
	TypeCodeComment  Type = "code-comment"
)

// IsValid reports whether t is a known record type.
func (t Type) IsValid() bool {
	switch t {
	case TypePlanningTask, TypeCodeComment:
		return true
	default:
		return false
	}
}

// Status is the synchronization state of a record.
type Status string

const (
	StatusPending Status = "pending"
	StatusSynced  Status = "synced"
	StatusUpdated Status = "updated"
	StatusFailed  Status = "failed"
)

// AllStatuses lists every status in display order.
var AllStatuses = []Status{StatusPending, StatusSynced, StatusUpdated, StatusFailed}

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusSynced, StatusUpdated, StatusFailed:
		return true
	default:
		return false
	}
}

// PlanningSource identifies a task within a planning session.
type PlanningSource struct {
	SessionID string `json:"sessionId"`
	TaskID    string `json:"taskId"`
}

// CommentSource identifies a marker comment at a file position.
type CommentSource struct {
	CommentID  string `json:"commentId"`
	FilePath   string `json:"filePath"`
	LineNumber int    `json:"lineNumber"`
}

// Source is a tagged union over the two source shapes. Exactly one of the
// pointers is set, and it must agree with the record's Type.
type Source struct {
	PlanningTask *PlanningSource `json:"planningTask,omitempty"`
	CodeComment  *CommentSource  `json:"codeComment,omitempty"`
}

// NewPlanningSource builds a planning-task source.
func NewPlanningSource(sessionID, taskID string) Source {
	return Source{PlanningTask: &PlanningSource{SessionID: sessionID, TaskID: taskID}}
}

// NewCommentSource builds a code-comment source.
func NewCommentSource(commentID, filePath string, line int) Source {
	return Source{CodeComment: &CommentSource{CommentID: commentID, FilePath: filePath, LineNumber: line}}
}

// Type returns the record type implied by the populated variant, or "" when
// the source is empty or ambiguous.
func (s Source) Type() Type {
	switch {
	case s.PlanningTask != nil && s.CodeComment == nil:
		return TypePlanningTask
	case s.CodeComment != nil && s.PlanningTask == nil:
		return TypeCodeComment
	default:
		return ""
	}
}

// Field escapers for Key. Each escapes '%' and the separators of its key
// form so distinct sources never share a key, and '>' so a key cannot end
// the HTML comment it is embedded in.
var (
	taskKeyEscaper    = strings.NewReplacer("%", "%25", "/", "%2F", ">", "%3E")
	commentKeyEscaper = strings.NewReplacer("%", "%25", "@", "%40", ":", "%3A", ">", "%3E")
)

// Key returns the canonical identity string of the source. Two sources with
// the same key track the same work item. Fields are escaped, so ids holding
// separator characters do not collide.
func (s Source) Key() string {
	switch s.Type() {
	case TypePlanningTask:
		t := s.PlanningTask
		return "task:" + taskKeyEscaper.Replace(t.SessionID) + "/" + taskKeyEscaper.Replace(t.TaskID)
	case TypeCodeComment:
		c := s.CodeComment
		return "comment:" + commentKeyEscaper.Replace(c.CommentID) + "@" +
			commentKeyEscaper.Replace(c.FilePath) + ":" + strconv.Itoa(c.LineNumber)
	default:
		return ""
	}
}

// SessionID returns the planning session id, or "" for comment sources.
func (s Source) SessionID() string {
	if s.PlanningTask != nil {
		return s.PlanningTask.SessionID
	}
	return ""
}

// Validate checks that the source is well formed for the given type.
func (s Source) Validate(t Type) error {
	if s.Type() != t {
		return fmt.Errorf("source shape does not match type %q", t)
	}

	switch t {
	case TypePlanningTask:
		if s.PlanningTask.SessionID == "" || s.PlanningTask.TaskID == "" {
			return fmt.Errorf("planning task source requires sessionId and taskId")
		}
	case TypeCodeComment:
		c := s.CodeComment
		if c.CommentID == "" || c.FilePath == "" {
			return fmt.Errorf("code comment source requires commentId and filePath")
		}
		if c.LineNumber < 1 {
			return fmt.Errorf("code comment line number must be >= 1, got %d", c.LineNumber)
		}
	default:
		return fmt.Errorf("unknown record type %q", t)
	}

	return nil
}

// IssueRef points at an issue in the remote tracker. For GitLab the number is
// the project scoped IID.
type IssueRef struct {
	IssueNumber int    `json:"issueNumber"`
	IssueURL    string `json:"issueUrl"`
}

// Record is the durable synchronization state for one work item.
type Record struct {
	ID           string             `json:"id"`
	Type         Type               `json:"type"`
	Source       Source             `json:"source"`
	Status       Status             `json:"status"`
	SyncAttempts int                `json:"syncAttempts"`
	LastError    string             `json:"lastError,omitempty"`
	GitHub       *IssueRef          `json:"github,omitempty"`
	Snapshot     *snapshot.Snapshot `json:"snapshot,omitempty"`
	LastSyncedAt *time.Time         `json:"lastSyncedAt,omitempty"`
	CreatedAt    time.Time          `json:"createdAt"`
	UpdatedAt    time.Time          `json:"updatedAt"`
}

// HasIssue reports whether an issue has been created for the record.
func (r Record) HasIssue() bool {
	return r.GitHub != nil
}

// Clone returns a deep copy so callers cannot mutate store internals.
func (r Record) Clone() Record {
	out := r
	if r.Source.PlanningTask != nil {
		ps := *r.Source.PlanningTask
		out.Source.PlanningTask = &ps
	}
	if r.Source.CodeComment != nil {
		cs := *r.Source.CodeComment
		out.Source.CodeComment = &cs
	}
	if r.GitHub != nil {
		ref := *r.GitHub
		out.GitHub = &ref
	}
	if r.Snapshot != nil {
		snap := r.Snapshot.Clone()
		out.Snapshot = &snap
	}
	if r.LastSyncedAt != nil {
		ts := *r.LastSyncedAt
		out.LastSyncedAt = &ts
	}
	return out
}

// Validate checks the structural invariants of a persisted record.
func (r Record) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("record id is empty")
	}
	if !r.Type.IsValid() {
		return fmt.Errorf("record %s: unknown type %q", r.ID, r.Type)
	}
	if err := r.Source.Validate(r.Type); err != nil {
		return fmt.Errorf("record %s: %w", r.ID, err)
	}
	if !r.Status.IsValid() {
		return fmt.Errorf("record %s: unknown status %q", r.ID, r.Status)
	}
	if r.SyncAttempts < 0 {
		return fmt.Errorf("record %s: negative sync attempts", r.ID)
	}
	if r.GitHub != nil && r.GitHub.IssueNumber < 1 {
		return fmt.Errorf("record %s: issue number must be positive", r.ID)
	}
	return nil
}

// Draft holds the caller supplied fields of a new record. The store assigns
// everything else.
type Draft struct {
	Type   Type
	Source Source
}

// Patch describes a partial update. Nil fields are left unchanged; there is
// deliberately no way to clear the issue reference.
type Patch struct {
	Status    *Status
	LastError *string
	GitHub    *IssueRef
	Snapshot  *snapshot.Snapshot
}
