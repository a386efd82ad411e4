package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadVarsFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "vars", "team"), 0o755))
	require.NoError(t, writeTestFile(filepath.Join(dir, "base.yaml"), "milestone: v1.0\norg: colonyops\n"))
	require.NoError(t, writeTestFile(filepath.Join(dir, "vars", "10-release.yaml"), "milestone: v2.0\n"))
	require.NoError(t, writeTestFile(filepath.Join(dir, "vars", "20-owner.yaml"), "github:\n  assignee: alice\n"))
	require.NoError(t, writeTestFile(filepath.Join(dir, "vars", "team", "30-owner.yaml"), "github:\n  assignee: bob\n  team: infra\n"))
	require.NoError(t, writeTestFile(filepath.Join(dir, "bad.yaml"), "milestone: [\n"))

	tests := []struct {
		name     string
		patterns []string
		want     map[string]any
		wantErr  string
	}{
		{
			name:     "single file",
			patterns: []string{"base.yaml"},
			want:     map[string]any{"milestone": "v1.0", "org": "colonyops"},
		},
		{
			name:     "later files win",
			patterns: []string{"base.yaml", "vars/10-release.yaml"},
			want:     map[string]any{"milestone": "v2.0", "org": "colonyops"},
		},
		{
			name:     "glob merges matches in lexical order",
			patterns: []string{"vars/**/*.yaml"},
			want: map[string]any{
				"milestone": "v2.0",
				"github":    map[string]any{"assignee": "bob", "team": "infra"},
			},
		},
		{
			name:     "glob without matches is empty",
			patterns: []string{"missing/*.yaml"},
			want:     map[string]any{},
		},
		{
			name:     "absolute path ignores config dir",
			patterns: []string{filepath.Join(dir, "base.yaml")},
			want:     map[string]any{"milestone": "v1.0", "org": "colonyops"},
		},
		{
			name:     "plain path must exist",
			patterns: []string{"missing.yaml"},
			wantErr:  "read vars file",
		},
		{
			name:     "invalid yaml",
			patterns: []string{"bad.yaml"},
			wantErr:  "parse vars file",
		},
		{
			name:     "invalid pattern",
			patterns: []string{"vars/[.yaml"},
			wantErr:  "vars file pattern",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configDir := dir
			if filepath.IsAbs(tt.patterns[0]) {
				configDir = "ignored"
			}

			got, err := loadVarsFiles(configDir, tt.patterns)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveVars_InlineWins(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, writeTestFile(filepath.Join(dir, "vars.yaml"), "milestone: v1.0\ngithub:\n  org: colonyops\n  assignee: alice\n"))

	cfg := DefaultConfig()
	cfg.VarsFiles = []string{"vars.yaml"}
	cfg.Vars = map[string]any{
		"milestone": "v2.0",
		"github":    map[string]any{"assignee": "bob"},
	}

	require.NoError(t, cfg.resolveVars(dir))

	assert.Equal(t, "v2.0", cfg.Vars["milestone"])
	github := cfg.Vars["github"].(map[string]any)
	assert.Equal(t, "colonyops", github["org"])
	assert.Equal(t, "bob", github["assignee"])
}

func TestResolveVars_NoFilesKeepsInline(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Vars = map[string]any{"milestone": "v2.0"}

	require.NoError(t, cfg.resolveVars("unused"))
	assert.Equal(t, map[string]any{"milestone": "v2.0"}, cfg.Vars)
}

func writeTestFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}
