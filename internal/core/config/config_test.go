package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWhenFileMissing(t *testing.T) {
	root := t.TempDir()
	t.Setenv("GITHUB_TOKEN", "")

	_, err := Load(filepath.Join(root, "missing.yaml"), filepath.Join(root, "data"), root)
	require.Error(t, err, "github provider without repo must fail validation")
	assert.Contains(t, err.Error(), "tracker.github.repo")
}

func TestLoad_ParsesFileAndAppliesDefaults(t *testing.T) {
	root := t.TempDir()
	cfgPath := filepath.Join(root, "tracksync.yaml")
	require.NoError(t, writeTestFile(cfgPath, `
tracker:
  provider: github
  github:
    repo: colonyops/tracksync
comments:
  markers: [TODO]
labels:
  base: [tracksync]
sync:
  concurrency: 4
  adopt_existing: false
`))

	cfg, err := Load(cfgPath, filepath.Join(root, "data"), root)
	require.NoError(t, err)

	assert.Equal(t, "colonyops/tracksync", cfg.Tracker.GitHub.Repo)
	assert.Equal(t, "gh", cfg.Tracker.GitHub.GhPath)
	assert.Equal(t, []string{"TODO"}, cfg.Comments.Markers)
	assert.Equal(t, []string{"**/*"}, cfg.Comments.Include)
	assert.Equal(t, []string{"tracksync"}, cfg.Labels.Base)
	assert.Equal(t, 4, cfg.Sync.Concurrency)
	assert.False(t, cfg.Sync.AdoptExistingEnabled())
	assert.Equal(t, 500*time.Millisecond, cfg.Sync.Debounce)
	assert.Equal(t, 100, cfg.HistoryMax)

	assert.Equal(t, filepath.Join(root, ".tracksync", "tracking.json"), cfg.TrackingPath())
	assert.Equal(t, filepath.Join(root, "data", "history.jsonl"), cfg.HistoryPath())
	assert.Equal(t, filepath.Join(root, ".tracksync", "planning"), cfg.PlanningDir())
	assert.Equal(t, root, cfg.CommentsRoot())
}

func TestLoad_InvalidYAML(t *testing.T) {
	root := t.TempDir()
	cfgPath := filepath.Join(root, "tracksync.yaml")
	require.NoError(t, writeTestFile(cfgPath, "tracker: [\n"))

	_, err := Load(cfgPath, root, root)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config file")
}

func TestLoad_VarsFilesMergeWithInline(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, writeTestFile(filepath.Join(root, "vars.yaml"), "milestone: v1.0\nowner: alice\n"))
	cfgPath := filepath.Join(root, "tracksync.yaml")
	require.NoError(t, writeTestFile(cfgPath, `
tracker:
  provider: dryrun
vars_files: [vars.yaml]
vars:
  milestone: v2.0
`))

	cfg, err := Load(cfgPath, root, root)
	require.NoError(t, err)
	assert.Equal(t, "v2.0", cfg.Vars["milestone"])
	assert.Equal(t, "alice", cfg.Vars["owner"])
}

func TestLoad_CredentialsFromDotEnv(t *testing.T) {
	root := t.TempDir()
	t.Setenv("GITLAB_TOKEN", "")
	require.NoError(t, os.Unsetenv("GITLAB_TOKEN"))
	t.Setenv("GITLAB_URL", "")
	require.NoError(t, os.Unsetenv("GITLAB_URL"))

	require.NoError(t, writeTestFile(filepath.Join(root, ".env"), "GITLAB_TOKEN=glpat-test\n"))
	cfgPath := filepath.Join(root, "tracksync.yaml")
	require.NoError(t, writeTestFile(cfgPath, "tracker:\n  provider: gitlab\n  gitlab:\n    project: group/app\n"))

	cfg, err := Load(cfgPath, root, root)
	require.NoError(t, err)
	assert.Equal(t, "glpat-test", cfg.Credentials.GitLabToken)
	assert.Equal(t, "https://gitlab.com", cfg.Credentials.GitLabURL)

	// godotenv writes into the process environment
	require.NoError(t, os.Unsetenv("GITLAB_TOKEN"))
}

func TestLoad_EnvironmentWinsOverDotEnv(t *testing.T) {
	root := t.TempDir()
	t.Setenv("GITHUB_TOKEN", "from-env")
	require.NoError(t, writeTestFile(filepath.Join(root, ".env"), "GITHUB_TOKEN=from-file\n"))

	creds, err := LoadCredentials(root)
	require.NoError(t, err)
	assert.Equal(t, "from-env", creds.GitHubToken)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		cfg := DefaultConfig()
		cfg.Tracker.GitHub.Repo = "colonyops/tracksync"
		cfg.DataDir = "/tmp/data"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{
			name:    "unknown provider",
			mutate:  func(c *Config) { c.Tracker.Provider = "jira" },
			wantErr: "tracker.provider",
		},
		{
			name:    "github without repo",
			mutate:  func(c *Config) { c.Tracker.GitHub.Repo = "" },
			wantErr: "tracker.github.repo",
		},
		{
			name:    "gitlab without project",
			mutate:  func(c *Config) { c.Tracker.Provider = ProviderGitLab },
			wantErr: "tracker.gitlab.project",
		},
		{
			name: "dryrun needs nothing",
			mutate: func(c *Config) {
				c.Tracker.Provider = ProviderDryRun
				c.Tracker.GitHub.Repo = ""
			},
		},
		{
			name:    "empty tracking file",
			mutate:  func(c *Config) { c.TrackingFile = "" },
			wantErr: "tracking_file",
		},
		{
			name:    "empty data dir",
			mutate:  func(c *Config) { c.DataDir = "" },
			wantErr: "data directory",
		},
		{
			name:    "zero concurrency",
			mutate:  func(c *Config) { c.Sync.Concurrency = 0 },
			wantErr: "sync.concurrency",
		},
		{
			name:    "zero history",
			mutate:  func(c *Config) { c.HistoryMax = 0 },
			wantErr: "history_max",
		},
		{
			name:    "unknown theme",
			mutate:  func(c *Config) { c.Theme = "solarized" },
			wantErr: "theme",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestAdoptExistingEnabled(t *testing.T) {
	yes, no := true, false
	assert.True(t, SyncConfig{}.AdoptExistingEnabled())
	assert.True(t, SyncConfig{AdoptExisting: &yes}.AdoptExistingEnabled())
	assert.False(t, SyncConfig{AdoptExisting: &no}.AdoptExistingEnabled())
}

func TestPathsKeepAbsolute(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RootDir = "/repo"
	cfg.DataDir = "/data"
	cfg.TrackingFile = "/elsewhere/tracking.json"
	cfg.HistoryFile = "/elsewhere/history.json"

	assert.Equal(t, "/elsewhere/tracking.json", cfg.TrackingPath())
	assert.Equal(t, "/elsewhere/history.json", cfg.HistoryPath())
	assert.Equal(t, "/repo/.tracksync/planning", cfg.PlanningDir())
}
