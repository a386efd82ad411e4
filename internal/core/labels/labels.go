// Package labels computes the tracker labels attached to a work item.
package labels

import (
	"slices"
	"strings"

	"github.com/colonyops/tracksync/internal/core/config"
	"github.com/colonyops/tracksync/internal/core/workitem"
)

// Computer derives labels from item metadata and the labels config.
type Computer struct {
	cfg config.LabelsConfig
}

// NewComputer returns a Computer for the given config.
func NewComputer(cfg config.LabelsConfig) *Computer {
	return &Computer{cfg: cfg}
}

// Labels returns the sorted, de-duplicated labels for the item.
func (c *Computer) Labels(item workitem.Item) []string {
	out := slices.Clone(c.cfg.Base)

	switch {
	case item.Task != nil:
		t := item.Task
		out = append(out, c.cfg.PlanningTask)
		out = append(out, t.Labels...)
		if t.Priority != "" {
			out = append(out, c.priority(t.Priority))
		}
		if t.Done {
			out = append(out, c.cfg.Done)
		}
	case item.Comment != nil:
		out = append(out, c.cfg.CodeComment, c.marker(item.Comment.Marker))
	}

	return normalize(out)
}

func (c *Computer) priority(p string) string {
	p = strings.ToLower(strings.TrimSpace(p))
	if l, ok := c.cfg.Priority[p]; ok {
		return l
	}
	return "priority:" + p
}

func (c *Computer) marker(m string) string {
	if l, ok := c.cfg.Markers[m]; ok {
		return l
	}
	return strings.ToLower(m)
}

func normalize(in []string) []string {
	out := in[:0]
	for _, l := range in {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
