package doctor

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/colonyops/tracksync/internal/core/tracking"
	"github.com/colonyops/tracksync/internal/source/planning"
)

// SourcesCheck verifies that the planning documents and the comment scan
// root are readable, and flags tracked sessions whose document is gone.
type SourcesCheck struct {
	planningDir  string
	commentsRoot string
	stats        func() tracking.Statistics
}

// NewSourcesCheck creates a new sources check. stats is consulted after the
// planning directory loads to find orphaned sessions.
func NewSourcesCheck(planningDir, commentsRoot string, stats func() tracking.Statistics) *SourcesCheck {
	return &SourcesCheck{planningDir: planningDir, commentsRoot: commentsRoot, stats: stats}
}

func (c *SourcesCheck) Name() string {
	return "Sources"
}

func (c *SourcesCheck) Run(_ context.Context) Result {
	result := Result{Name: c.Name()}

	switch info, err := os.Stat(c.commentsRoot); {
	case err != nil:
		result.add(StatusFail, "comments root", err.Error())
	case !info.IsDir():
		result.add(StatusFail, "comments root", c.commentsRoot+" is not a directory")
	default:
		result.add(StatusPass, "comments root", c.commentsRoot)
	}

	if _, err := os.Stat(c.planningDir); os.IsNotExist(err) {
		result.add(StatusWarn, "planning", c.planningDir+" does not exist")
		return result
	}

	sessions, err := planning.LoadDir(c.planningDir)
	if err != nil {
		result.add(StatusFail, "planning", err.Error())
		return result
	}

	tasks := 0
	for _, s := range sessions {
		tasks += len(s.Tasks)
	}
	result.add(StatusPass, "planning", fmt.Sprintf("%d sessions, %d tasks", len(sessions), tasks))

	var orphaned []string
	for id := range c.stats().BySession {
		if _, ok := planning.Find(sessions, id); !ok {
			orphaned = append(orphaned, id)
		}
	}
	if len(orphaned) > 0 {
		slices.Sort(orphaned)
		result.add(StatusWarn, "orphaned sessions", "records without a planning document: "+strings.Join(orphaned, ", "))
	}

	return result
}
