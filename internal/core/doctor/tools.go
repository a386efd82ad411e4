package doctor

import (
	"context"
	"os/exec"
	"strings"

	"github.com/colonyops/tracksync/internal/core/config"
	"github.com/colonyops/tracksync/pkg/executil"
)

// lookPathFunc is the function used to find executables on PATH.
// Package-level variable to allow test overrides.
var lookPathFunc = exec.LookPath

// TrackerCheck verifies that the configured tracker can be reached with the
// tools and credentials at hand. It does not create or modify issues.
type TrackerCheck struct {
	cfg  *config.Config
	exec executil.Executor
}

// NewTrackerCheck creates a new tracker check.
func NewTrackerCheck(cfg *config.Config, exec executil.Executor) *TrackerCheck {
	return &TrackerCheck{cfg: cfg, exec: exec}
}

func (c *TrackerCheck) Name() string {
	return "Tracker"
}

func (c *TrackerCheck) Run(ctx context.Context) Result {
	result := Result{Name: c.Name()}

	switch c.cfg.Tracker.Provider {
	case config.ProviderDryRun:
		result.add(StatusPass, "provider", "dryrun (no issues are sent)")
	case config.ProviderGitLab:
		result.add(StatusPass, "provider", "gitlab "+c.cfg.Tracker.GitLab.Project)
		if c.cfg.Credentials.GitLabToken == "" {
			result.add(StatusFail, "GITLAB_TOKEN", "not set")
		} else {
			result.add(StatusPass, "GITLAB_TOKEN", "set, "+c.cfg.Credentials.GitLabURL)
		}
	case config.ProviderGitHub:
		result.add(StatusPass, "provider", "github "+c.cfg.Tracker.GitHub.Repo)
		c.checkGh(ctx, &result)
	}

	return result
}

func (c *TrackerCheck) checkGh(ctx context.Context, result *Result) {
	ghPath := c.cfg.Tracker.GitHub.GhPath

	path, err := lookPathFunc(ghPath)
	if err != nil {
		result.add(StatusFail, "gh", "not found on PATH (install the GitHub CLI)")
		return
	}
	result.add(StatusPass, "gh", path)

	if _, err := c.exec.Run(ctx, ghPath, "auth", "status"); err != nil {
		detail := "not logged in; run 'gh auth login'"
		if c.cfg.Credentials.GitHubToken != "" {
			detail = "GITHUB_TOKEN is set but gh rejects it"
		}
		result.add(StatusFail, "gh auth", detail)
		return
	}
	result.add(StatusPass, "gh auth", "authenticated")

	if _, err := c.exec.Run(ctx, ghPath, "repo", "view", c.cfg.Tracker.GitHub.Repo, "--json", "name"); err != nil {
		result.add(StatusFail, "repository", firstLine(err.Error()))
		return
	}
	result.add(StatusPass, "repository", c.cfg.Tracker.GitHub.Repo)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
