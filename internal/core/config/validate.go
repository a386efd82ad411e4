package config

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hay-kot/criterio"

	"github.com/colonyops/tracksync/pkg/tmpl"
)

// ValidationWarning represents a non-fatal configuration issue.
type ValidationWarning struct {
	Category string `json:"category"`
	Item     string `json:"item,omitempty"`
	Message  string `json:"message"`
}

// ValidateDeep performs comprehensive validation of the configuration including
// glob syntax, template syntax, and file accessibility. The configPath argument
// specifies the config file location to validate (empty string skips config file check).
// This calls Validate() first for basic structural validation, then adds I/O checks.
func (c *Config) ValidateDeep(configPath string) error {
	if err := c.Validate(); err != nil {
		return err
	}

	return criterio.ValidateStruct(
		c.validateFileAccess(configPath),
		c.validateTracker(),
		c.validateGlobs(),
		c.validateTemplates(),
	)
}

// Warnings returns non-fatal configuration issues.
func (c *Config) Warnings() []ValidationWarning {
	var warnings []ValidationWarning

	if c.Tracker.Provider == ProviderGitHub && c.Credentials.GitHubToken == "" {
		warnings = append(warnings, ValidationWarning{
			Category: "Credentials",
			Item:     "GITHUB_TOKEN",
			Message:  "not set; relying on gh's own authentication",
		})
	}

	if info, err := os.Stat(c.PlanningDir()); err != nil || !info.IsDir() {
		warnings = append(warnings, ValidationWarning{
			Category: "Planning",
			Item:     c.Planning.Dir,
			Message:  "planning directory does not exist; no planning sessions will be synced",
		})
	}

	for _, m := range c.Comments.Markers {
		if strings.ToUpper(m) != m {
			warnings = append(warnings, ValidationWarning{
				Category: "Comments",
				Item:     m,
				Message:  "markers are matched case sensitively; lowercase markers are unusual",
			})
		}
	}

	return warnings
}

// validateFileAccess checks config file, data directory, and tracking file location.
func (c *Config) validateFileAccess(configPath string) error {
	return criterio.ValidateStruct(
		validateConfigFile(configPath),
		criterio.Run("data_dir", c.DataDir, isDirectoryOrNotExist),
		criterio.Run("tracking_file", c.TrackingPath(), isFileOrNotExist),
		criterio.Run("comments.root", c.CommentsRoot(), isDirectoryOrNotExist),
	)
}

func validateConfigFile(configPath string) error {
	if configPath == "" {
		return nil
	}

	info, err := os.Stat(configPath)
	if os.IsNotExist(err) {
		return nil // not found is fine, using defaults
	}
	if err != nil {
		return criterio.NewFieldErrors("config_file", fmt.Errorf("cannot access: %w", err))
	}
	if info.IsDir() {
		return criterio.NewFieldErrors("config_file", fmt.Errorf("%s is a directory, not a file", configPath))
	}
	return nil
}

func (c *Config) validateTracker() error {
	switch c.Tracker.Provider {
	case ProviderGitHub:
		return criterio.ValidateStruct(
			criterio.Run("tracker.github.gh_path", c.Tracker.GitHub.GhPath, executableExists),
			criterio.Run("tracker.github.repo", c.Tracker.GitHub.Repo, isOwnerRepo),
		)
	case ProviderGitLab:
		if c.Credentials.GitLabToken == "" {
			return criterio.NewFieldErrors("GITLAB_TOKEN", fmt.Errorf("required for the gitlab provider"))
		}
	}
	return nil
}

// validateGlobs checks the include and exclude patterns of the comment scanner.
func (c *Config) validateGlobs() error {
	var errs criterio.FieldErrorsBuilder
	for i, p := range c.Comments.Include {
		if !doublestar.ValidatePattern(p) {
			errs = errs.Append(fmt.Sprintf("comments.include[%d]", i), fmt.Errorf("invalid glob %q", p))
		}
	}
	for i, p := range c.Comments.Exclude {
		if !doublestar.ValidatePattern(p) {
			errs = errs.Append(fmt.Sprintf("comments.exclude[%d]", i), fmt.Errorf("invalid glob %q", p))
		}
	}
	for i, m := range c.Comments.Markers {
		if strings.TrimSpace(m) == "" || strings.ContainsAny(m, " \t():") {
			errs = errs.Append(fmt.Sprintf("comments.markers[%d]", i), fmt.Errorf("invalid marker %q", m))
		}
	}
	return errs.ToError()
}

// validateTemplates checks the syntax of user supplied issue templates.
func (c *Config) validateTemplates() error {
	var errs criterio.FieldErrorsBuilder

	taskData := TaskTemplateSample(c.Vars)
	commentData := CommentTemplateSample(c.Vars)

	for field, tmplStr := range map[string]string{
		"templates.planning_task.title": c.Templates.PlanningTask.Title,
		"templates.planning_task.body":  c.Templates.PlanningTask.Body,
	} {
		if tmplStr == "" {
			continue
		}
		if _, err := tmpl.Render(tmplStr, taskData); err != nil {
			errs = errs.Append(field, fmt.Errorf("template error: %w", err))
		}
	}

	for field, tmplStr := range map[string]string{
		"templates.code_comment.title": c.Templates.CodeComment.Title,
		"templates.code_comment.body":  c.Templates.CodeComment.Body,
	} {
		if tmplStr == "" {
			continue
		}
		if _, err := tmpl.Render(tmplStr, commentData); err != nil {
			errs = errs.Append(field, fmt.Errorf("template error: %w", err))
		}
	}

	return errs.ToError()
}

// TaskTemplateSample returns placeholder data with every key available to
// planning task templates.
func TaskTemplateSample(vars map[string]any) map[string]any {
	return map[string]any{
		"SessionID":    "P-001",
		"SessionTitle": "Sample session",
		"TaskID":       "T-1",
		"Title":        "Sample task",
		"Description":  "Sample description",
		"Priority":     "high",
		"Done":         false,
		"DocPath":      "planning/P-001.md",
		"Labels":       []string{"sample"},
		"Vars":         vars,
	}
}

// CommentTemplateSample returns placeholder data with every key available to
// code comment templates.
func CommentTemplateSample(vars map[string]any) map[string]any {
	return map[string]any{
		"CommentID":  "TODO-abc12345",
		"Marker":     "TODO",
		"Text":       "sample comment",
		"FilePath":   "pkg/sample.go",
		"LineNumber": 1,
		"Context":    []string{"func sample() {}"},
		"Vars":       vars,
	}
}

// executableExists validates that the path resolves to an executable.
func executableExists(path string) error {
	if path == "" {
		return nil
	}
	if _, err := exec.LookPath(path); err != nil {
		return fmt.Errorf("executable not found: %s", path)
	}
	return nil
}

func isOwnerRepo(repo string) error {
	owner, name, ok := strings.Cut(repo, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return fmt.Errorf("must be in owner/name form, got %q", repo)
	}
	return nil
}

// isDirectoryOrNotExist validates that a path is a directory or doesn't exist.
func isDirectoryOrNotExist(path string) error {
	if path == "" {
		return nil
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil // will be created
	}
	if err != nil {
		return fmt.Errorf("cannot access: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("exists but is not a directory")
	}
	return nil
}

// isFileOrNotExist validates that a path is a regular file or doesn't exist.
func isFileOrNotExist(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("cannot access: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("exists but is a directory")
	}
	return nil
}
