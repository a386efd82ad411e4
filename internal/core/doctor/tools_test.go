package doctor

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/tracksync/internal/core/config"
	"github.com/colonyops/tracksync/pkg/executil"
)

func githubConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Tracker.GitHub.Repo = "colonyops/tracksync"
	return &cfg
}

func stubLookPath(t *testing.T, missing ...string) {
	t.Helper()
	orig := lookPathFunc
	t.Cleanup(func() { lookPathFunc = orig })

	lookPathFunc = func(file string) (string, error) {
		for _, m := range missing {
			if m == file {
				return "", &exec.Error{Name: file, Err: fmt.Errorf("not found")}
			}
		}
		return "/usr/bin/" + file, nil
	}
}

func labels(r Result) map[string]Status {
	out := make(map[string]Status, len(r.Items))
	for _, it := range r.Items {
		out[it.Label] = it.Status
	}
	return out
}

func TestTrackerCheck_GitHubHealthy(t *testing.T) {
	stubLookPath(t)
	rec := &executil.RecordingExecutor{}

	result := NewTrackerCheck(githubConfig(), rec).Run(context.Background())

	assert.Equal(t, "Tracker", result.Name)
	assert.Equal(t, map[string]Status{
		"provider":   StatusPass,
		"gh":         StatusPass,
		"gh auth":    StatusPass,
		"repository": StatusPass,
	}, labels(result))

	require.Len(t, rec.Commands, 2)
	assert.Equal(t, []string{"auth", "status"}, rec.Commands[0].Args)
	assert.Equal(t, []string{"repo", "view", "colonyops/tracksync", "--json", "name"}, rec.Commands[1].Args)
}

func TestTrackerCheck_GhMissing(t *testing.T) {
	stubLookPath(t, "gh")
	rec := &executil.RecordingExecutor{}

	result := NewTrackerCheck(githubConfig(), rec).Run(context.Background())

	assert.Equal(t, StatusFail, labels(result)["gh"])
	assert.Empty(t, rec.Commands)
}

func TestTrackerCheck_NotLoggedIn(t *testing.T) {
	stubLookPath(t)
	rec := &executil.RecordingExecutor{
		Errors: map[string]error{"gh auth": errors.New("exit status 1")},
	}

	result := NewTrackerCheck(githubConfig(), rec).Run(context.Background())

	assert.Equal(t, StatusFail, labels(result)["gh auth"])
	assert.NotContains(t, labels(result), "repository")
}

func TestTrackerCheck_GitLabToken(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Tracker.Provider = config.ProviderGitLab
	cfg.Tracker.GitLab.Project = "group/project"

	result := NewTrackerCheck(&cfg, &executil.RecordingExecutor{}).Run(context.Background())
	assert.Equal(t, StatusFail, labels(result)["GITLAB_TOKEN"])

	cfg.Credentials.GitLabToken = "glpat-test"
	result = NewTrackerCheck(&cfg, &executil.RecordingExecutor{}).Run(context.Background())
	assert.Equal(t, StatusPass, labels(result)["GITLAB_TOKEN"])
}

func TestTrackerCheck_DryRun(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Tracker.Provider = config.ProviderDryRun

	result := NewTrackerCheck(&cfg, &executil.RecordingExecutor{}).Run(context.Background())
	require.Len(t, result.Items, 1)
	assert.Equal(t, StatusPass, result.Items[0].Status)
}
