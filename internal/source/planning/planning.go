// Package planning reads planning session documents: markdown files with YAML
// front matter and a checklist of tasks.
//
//	---
//	session_id: P-003
//	title: Auth rework
//	labels: [backend]
//	---
//	- [ ] T-1: Add login endpoint
//	  Accept email and password, return a session token.
//	  priority: high
//	- [x] T-2: Remove legacy cookie auth
package planning

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/colonyops/tracksync/internal/core/workitem"
)

var (
	// ErrNoSession is returned for documents without a session_id.
	ErrNoSession = errors.New("document has no session_id")
	// ErrDuplicateTask is returned when a task id repeats within a session.
	ErrDuplicateTask = errors.New("duplicate task id")
)

var (
	taskRe     = regexp.MustCompile(`^[-*]\s+\[([ xX])\]\s+([A-Za-z0-9][A-Za-z0-9._-]*):\s*(.*?)\s*$`)
	priorityRe = regexp.MustCompile(`^(?i:priority):\s*(\S.*?)\s*$`)
)

// Session is a parsed planning document.
type Session struct {
	ID     string
	Title  string
	Labels []string
	Path   string
	Tasks  []workitem.Task
}

// Items returns the session's tasks as work items in document order.
func (s Session) Items() []workitem.Item {
	items := make([]workitem.Item, 0, len(s.Tasks))
	for _, t := range s.Tasks {
		items = append(items, workitem.FromTask(t))
	}
	return items
}

// Parse parses a session document. path is recorded on every task as DocPath.
func Parse(content, path string) (Session, error) {
	fm, body := ParseFrontmatter(content)
	if strings.TrimSpace(fm.SessionID) == "" {
		return Session{}, fmt.Errorf("%s: %w", path, ErrNoSession)
	}

	s := Session{
		ID:     strings.TrimSpace(fm.SessionID),
		Title:  strings.TrimSpace(fm.Title),
		Labels: fm.Labels,
		Path:   path,
	}

	// line numbers for error messages
	offset := len(splitLines(content)) - len(body)
	seen := make(map[string]int)
	var (
		cur  *workitem.Task
		desc []string
	)
	flush := func() {
		if cur == nil {
			return
		}
		cur.Description = dedent(desc)
		s.Tasks = append(s.Tasks, *cur)
		cur, desc = nil, nil
	}

	for i, line := range body {
		if m := taskRe.FindStringSubmatch(line); m != nil {
			flush()
			id := m[2]
			if prev, dup := seen[id]; dup {
				return Session{}, fmt.Errorf("%s: %w %q (lines %d and %d)", path, ErrDuplicateTask, id, prev, offset+i+1)
			}
			seen[id] = offset + i + 1
			cur = &workitem.Task{
				SessionID:    s.ID,
				SessionTitle: s.Title,
				TaskID:       id,
				Title:        m[3],
				Done:         m[1] != " ",
				Labels:       slices.Clone(s.Labels),
				DocPath:      path,
			}
			continue
		}

		if cur == nil {
			continue
		}

		// Continuation lines are indented; anything else ends the task.
		if line != "" && !startsIndented(line) {
			flush()
			continue
		}

		if m := priorityRe.FindStringSubmatch(strings.TrimSpace(line)); m != nil && cur.Priority == "" {
			cur.Priority = strings.ToLower(m[1])
			continue
		}
		desc = append(desc, line)
	}
	flush()

	return s, nil
}

// ParseFile reads and parses a session document.
func ParseFile(path string) (Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Session{}, fmt.Errorf("read %s: %w", path, err)
	}
	return Parse(string(data), path)
}

// LoadDir parses every *.md file in dir that declares a session_id. Files
// without one are skipped; other parse errors abort. Sessions are returned
// sorted by id.
func LoadDir(dir string) ([]Session, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read planning dir: %w", err)
	}

	var sessions []Session
	ids := make(map[string]string)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
			continue
		}

		path := filepath.Join(dir, e.Name())
		s, err := ParseFile(path)
		if errors.Is(err, ErrNoSession) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if other, dup := ids[s.ID]; dup {
			return nil, fmt.Errorf("session %q declared in both %s and %s", s.ID, other, path)
		}
		ids[s.ID] = path
		sessions = append(sessions, s)
	}

	slices.SortFunc(sessions, func(a, b Session) int { return strings.Compare(a.ID, b.ID) })
	return sessions, nil
}

// Find returns the session with the given id from sessions.
func Find(sessions []Session, id string) (Session, bool) {
	for _, s := range sessions {
		if s.ID == id {
			return s, true
		}
	}
	return Session{}, false
}

func startsIndented(line string) bool {
	return strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t")
}

// dedent removes the common leading indentation and surrounding blank lines.
func dedent(lines []string) string {
	start, end := 0, len(lines)
	for start < end && strings.TrimSpace(lines[start]) == "" {
		start++
	}
	for end > start && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	lines = lines[start:end]
	if len(lines) == 0 {
		return ""
	}

	indent := -1
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		n := len(l) - len(strings.TrimLeft(l, " \t"))
		if indent < 0 || n < indent {
			indent = n
		}
	}

	out := make([]string, len(lines))
	for i, l := range lines {
		if len(l) >= indent {
			out[i] = strings.TrimRight(l[indent:], " \t")
		}
	}
	return strings.Join(out, "\n")
}
