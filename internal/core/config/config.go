// Package config handles configuration loading and validation for tracksync.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/colonyops/tracksync/internal/core/styles"
)

// Supported tracker providers.
const (
	ProviderGitHub = "github"
	ProviderGitLab = "gitlab"
	ProviderDryRun = "dryrun"
)

// Config holds the application configuration.
type Config struct {
	Tracker      TrackerConfig   `yaml:"tracker"`
	TrackingFile string          `yaml:"tracking_file"`
	HistoryFile  string          `yaml:"history_file"`
	HistoryMax   int             `yaml:"history_max"`
	Planning     PlanningConfig  `yaml:"planning"`
	Comments     CommentsConfig  `yaml:"comments"`
	Labels       LabelsConfig    `yaml:"labels"`
	Templates    TemplatesConfig `yaml:"templates"`
	Sync         SyncConfig      `yaml:"sync"`
	VarsFiles    []string        `yaml:"vars_files"`
	Vars         map[string]any  `yaml:"vars"`
	Theme        string          `yaml:"theme"`

	// Credentials are read from the environment, never from the config file.
	Credentials Credentials `yaml:"-"`
	// DataDir is set by the caller, not from the config file.
	DataDir string `yaml:"-"`
	// RootDir is the repository root that relative paths resolve against.
	RootDir string `yaml:"-"`
}

// TrackerConfig selects and configures the remote issue tracker.
type TrackerConfig struct {
	Provider string              `yaml:"provider"`
	GitHub   GitHubTrackerConfig `yaml:"github"`
	GitLab   GitLabTrackerConfig `yaml:"gitlab"`
}

// GitHubTrackerConfig configures the gh CLI backed tracker.
type GitHubTrackerConfig struct {
	Repo   string `yaml:"repo"` // owner/name
	GhPath string `yaml:"gh_path"`
}

// GitLabTrackerConfig configures the GitLab API backed tracker.
type GitLabTrackerConfig struct {
	Project string `yaml:"project"` // numeric id or group/project path
}

// PlanningConfig locates planning session documents.
type PlanningConfig struct {
	Dir string `yaml:"dir"`
}

// CommentsConfig controls the source comment scanner.
type CommentsConfig struct {
	Root         string   `yaml:"root"`
	Include      []string `yaml:"include"`
	Exclude      []string `yaml:"exclude"`
	Markers      []string `yaml:"markers"`
	ContextLines int      `yaml:"context_lines"`
}

// LabelsConfig controls label computation.
type LabelsConfig struct {
	Base         []string          `yaml:"base"`
	PlanningTask string            `yaml:"planning_task"`
	CodeComment  string            `yaml:"code_comment"`
	Done         string            `yaml:"done"`
	Priority     map[string]string `yaml:"priority"` // priority value -> label; empty uses "priority:<value>"
	Markers      map[string]string `yaml:"markers"`  // marker -> label; empty uses lowercase marker
}

// IssueTemplate holds the title and body templates for one item type.
type IssueTemplate struct {
	Title string `yaml:"title"`
	Body  string `yaml:"body"`
}

// TemplatesConfig overrides the default issue templates.
type TemplatesConfig struct {
	PlanningTask IssueTemplate `yaml:"planning_task"`
	CodeComment  IssueTemplate `yaml:"code_comment"`
}

// SyncConfig tunes the orchestrator.
type SyncConfig struct {
	Concurrency   int           `yaml:"concurrency"`
	AdoptExisting *bool         `yaml:"adopt_existing"` // nil = true
	Debounce      time.Duration `yaml:"debounce"`
}

// AdoptExistingEnabled reports whether existing issues carrying a source
// marker should be adopted instead of creating duplicates.
func (s SyncConfig) AdoptExistingEnabled() bool {
	return s.AdoptExisting == nil || *s.AdoptExisting
}

// DefaultMarkers are the comment markers scanned when none are configured.
var DefaultMarkers = []string{"TODO", "FIXME", "HACK", "XXX"}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Tracker: TrackerConfig{
			Provider: ProviderGitHub,
			GitHub:   GitHubTrackerConfig{GhPath: "gh"},
		},
		TrackingFile: filepath.Join(".tracksync", "tracking.json"),
		HistoryFile:  "history.jsonl",
		HistoryMax:   100,
		Planning:     PlanningConfig{Dir: filepath.Join(".tracksync", "planning")},
		Comments: CommentsConfig{
			Root:         ".",
			Include:      []string{"**/*"},
			Exclude:      []string{".git/**", "vendor/**", "node_modules/**", ".tracksync/**"},
			Markers:      DefaultMarkers,
			ContextLines: 2,
		},
		Labels: LabelsConfig{
			PlanningTask: "planning",
			CodeComment:  "code-comment",
			Done:         "done",
		},
		Sync: SyncConfig{
			Concurrency: 1,
			Debounce:    500 * time.Millisecond,
		},
		Theme: styles.DefaultTheme,
	}
}

// Load reads configuration from the given path, resolves relative paths
// against rootDir, and loads credentials from the environment.
// If configPath is empty or doesn't exist, returns defaults.
func Load(configPath, dataDir, rootDir string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}

			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}
		}
	}

	cfg.DataDir = dataDir
	cfg.RootDir = rootDir

	if err := cfg.resolveVars(filepath.Dir(configPath)); err != nil {
		return nil, err
	}

	creds, err := LoadCredentials(rootDir)
	if err != nil {
		return nil, err
	}
	cfg.Credentials = creds

	// Apply defaults for zero values
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for any unset configuration options.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.Tracker.Provider == "" {
		c.Tracker.Provider = defaults.Tracker.Provider
	}
	if c.Tracker.GitHub.GhPath == "" {
		c.Tracker.GitHub.GhPath = defaults.Tracker.GitHub.GhPath
	}
	if c.TrackingFile == "" {
		c.TrackingFile = defaults.TrackingFile
	}
	if c.HistoryFile == "" {
		c.HistoryFile = defaults.HistoryFile
	}
	if c.HistoryMax == 0 {
		c.HistoryMax = defaults.HistoryMax
	}
	if c.Planning.Dir == "" {
		c.Planning.Dir = defaults.Planning.Dir
	}
	if c.Comments.Root == "" {
		c.Comments.Root = defaults.Comments.Root
	}
	if len(c.Comments.Include) == 0 {
		c.Comments.Include = defaults.Comments.Include
	}
	if len(c.Comments.Markers) == 0 {
		c.Comments.Markers = defaults.Comments.Markers
	}
	if c.Sync.Concurrency == 0 {
		c.Sync.Concurrency = defaults.Sync.Concurrency
	}
	if c.Sync.Debounce == 0 {
		c.Sync.Debounce = defaults.Sync.Debounce
	}
	if c.Theme == "" {
		c.Theme = defaults.Theme
	}
}

// Validate checks that the configuration is structurally valid.
func (c *Config) Validate() error {
	switch c.Tracker.Provider {
	case ProviderGitHub:
		if c.Tracker.GitHub.Repo == "" {
			return fmt.Errorf("tracker.github.repo is required for the github provider")
		}
	case ProviderGitLab:
		if c.Tracker.GitLab.Project == "" {
			return fmt.Errorf("tracker.gitlab.project is required for the gitlab provider")
		}
	case ProviderDryRun:
	default:
		return fmt.Errorf("tracker.provider %q is not one of github, gitlab, dryrun", c.Tracker.Provider)
	}

	if c.TrackingFile == "" {
		return fmt.Errorf("tracking_file cannot be empty")
	}

	if c.DataDir == "" {
		return fmt.Errorf("data directory cannot be empty")
	}

	if c.Sync.Concurrency < 1 {
		return fmt.Errorf("sync.concurrency must be at least 1")
	}

	if c.HistoryMax < 1 {
		return fmt.Errorf("history_max must be at least 1")
	}

	if _, ok := styles.GetPalette(c.Theme); !ok {
		return fmt.Errorf("theme %q is not one of %v", c.Theme, styles.ThemeNames())
	}

	return nil
}

// resolve joins a relative path onto the root directory.
func (c *Config) resolve(p string) string {
	if filepath.IsAbs(p) || c.RootDir == "" {
		return p
	}
	return filepath.Join(c.RootDir, p)
}

// TrackingPath returns the absolute path to the tracking file.
func (c *Config) TrackingPath() string {
	return c.resolve(c.TrackingFile)
}

// HistoryPath returns the path of the run history file inside the data dir.
func (c *Config) HistoryPath() string {
	if filepath.IsAbs(c.HistoryFile) {
		return c.HistoryFile
	}
	return filepath.Join(c.DataDir, c.HistoryFile)
}

// PlanningDir returns the absolute path to the planning documents.
func (c *Config) PlanningDir() string {
	return c.resolve(c.Planning.Dir)
}

// CommentsRoot returns the absolute root of the comment scan.
func (c *Config) CommentsRoot() string {
	return c.resolve(c.Comments.Root)
}
