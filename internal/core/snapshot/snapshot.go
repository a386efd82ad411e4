// Package snapshot normalizes issue content and detects drift between what
// was last pushed to the tracker and what the work item looks like now.
//
// All functions are pure. Running Create twice over the same input yields
// equal snapshots, which is what makes repeated syncs converge on "skip".
package snapshot

import (
	"fmt"
	"slices"
	"strings"

	"github.com/mitchellh/hashstructure/v2"
)

// Content is the raw issue content derived from a work item.
type Content struct {
	Title  string
	Body   string
	Labels []string
	State  string
}

// Snapshot is the normalized form of Content stored alongside a record.
type Snapshot struct {
	Title  string   `json:"title"`
	Body   string   `json:"body"`
	Labels []string `json:"labels,omitempty"`
	State  string   `json:"state,omitempty"`
}

// Create normalizes content into a Snapshot.
func Create(c Content) Snapshot {
	return Snapshot{
		Title:  normalizeTitle(c.Title),
		Body:   normalizeBody(c.Body),
		Labels: normalizeLabels(c.Labels),
		State:  strings.ToLower(strings.TrimSpace(c.State)),
	}
}

// HasChanged reports whether cur differs from prev in any tracked field.
// A missing previous snapshot always counts as changed.
func HasChanged(prev *Snapshot, cur Snapshot) bool {
	return len(Diff(prev, cur)) > 0
}

// Diff returns the names of the fields that differ between prev and cur.
func Diff(prev *Snapshot, cur Snapshot) []string {
	if prev == nil {
		return []string{"title", "body", "labels", "state"}
	}

	var fields []string
	if prev.Title != cur.Title {
		fields = append(fields, "title")
	}
	if prev.Body != cur.Body {
		fields = append(fields, "body")
	}
	if !slices.Equal(normalizeLabels(prev.Labels), cur.Labels) {
		fields = append(fields, "labels")
	}
	if prev.State != cur.State {
		fields = append(fields, "state")
	}
	return fields
}

// Clone returns a copy that does not share the label slice.
func (s Snapshot) Clone() Snapshot {
	out := s
	out.Labels = slices.Clone(s.Labels)
	return out
}

// Digest returns a short stable hash of the snapshot, used in logs.
func (s Snapshot) Digest() string {
	h, err := hashstructure.Hash(s, hashstructure.FormatV2, nil)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%016x", h)
}

func normalizeTitle(title string) string {
	return strings.Join(strings.Fields(title), " ")
}

func normalizeBody(body string) string {
	body = strings.ReplaceAll(body, "\r\n", "\n")
	lines := strings.Split(body, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}

	// Drop leading and trailing blank lines
	start, end := 0, len(lines)
	for start < end && lines[start] == "" {
		start++
	}
	for end > start && lines[end-1] == "" {
		end--
	}

	return strings.Join(lines[start:end], "\n")
}

func normalizeLabels(labels []string) []string {
	if len(labels) == 0 {
		return nil
	}

	out := make([]string, 0, len(labels))
	for _, l := range labels {
		l = strings.TrimSpace(l)
		if l != "" {
			out = append(out, l)
		}
	}
	slices.Sort(out)
	out = slices.Compact(out)
	if len(out) == 0 {
		return nil
	}
	return out
}
