package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

// resolveVars builds the template vars exposed to issue templates as .Vars.
// Entries of vars_files are paths or glob patterns relative to configDir;
// matches are merged in order and the inline vars block wins over all files.
func (c *Config) resolveVars(configDir string) error {
	if len(c.VarsFiles) == 0 {
		return nil
	}

	fileVars, err := loadVarsFiles(configDir, c.VarsFiles)
	if err != nil {
		return err
	}
	mergeVars(fileVars, c.Vars)
	c.Vars = fileVars
	return nil
}

// loadVarsFiles reads the YAML files named by patterns and merges them.
// Later files override earlier ones for the same keys.
func loadVarsFiles(configDir string, patterns []string) (map[string]any, error) {
	merged := make(map[string]any)

	for _, pattern := range patterns {
		paths, err := expandVarsPattern(configDir, pattern)
		if err != nil {
			return nil, err
		}

		for _, path := range paths {
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("read vars file %q: %w", path, err)
			}

			var vars map[string]any
			if err := yaml.Unmarshal(data, &vars); err != nil {
				return nil, fmt.Errorf("parse vars file %q: %w", path, err)
			}
			mergeVars(merged, vars)
		}
	}

	return merged, nil
}

// expandVarsPattern returns the files matched by pattern in lexical order. A
// glob matching nothing is fine; a plain path must exist.
func expandVarsPattern(configDir, pattern string) ([]string, error) {
	path := pattern
	if !filepath.IsAbs(path) {
		path = filepath.Join(configDir, path)
	}

	if !strings.ContainsAny(pattern, "*?[{") {
		return []string{path}, nil
	}

	matches, err := doublestar.FilepathGlob(path, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("vars file pattern %q: %w", pattern, err)
	}
	slices.Sort(matches)
	return matches, nil
}

// mergeVars recursively merges src into dst. Nested maps merge key by key;
// any other value replaces what dst held.
func mergeVars(dst, src map[string]any) {
	for key, srcVal := range src {
		srcMap, ok := srcVal.(map[string]any)
		if !ok {
			dst[key] = srcVal
			continue
		}

		if dstMap, ok := dst[key].(map[string]any); ok {
			mergeVars(dstMap, srcMap)
			continue
		}
		dst[key] = srcMap
	}
}
