package planning

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseFrontmatter(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		want     Frontmatter
		wantBody []string
	}{
		{
			name: "valid frontmatter with all fields",
			content: `---
session_id: P-003
title: Auth rework
labels: [backend, auth]
---
# Document body
`,
			want:     Frontmatter{SessionID: "P-003", Title: "Auth rework", Labels: []string{"backend", "auth"}},
			wantBody: []string{"# Document body"},
		},
		{
			name: "valid frontmatter with session_id only",
			content: `---
session_id: sess-xyz
---
content here
`,
			want:     Frontmatter{SessionID: "sess-xyz"},
			wantBody: []string{"content here"},
		},
		{
			name:     "no frontmatter",
			content:  "# Just a heading\nSome content\n",
			want:     Frontmatter{},
			wantBody: []string{"# Just a heading", "Some content"},
		},
		{
			name:    "empty content",
			content: "",
			want:    Frontmatter{},
		},
		{
			name: "frontmatter without closing delimiter",
			content: `---
session_id: orphaned
`,
			want: Frontmatter{SessionID: "orphaned"},
		},
		{
			name: "frontmatter with extra fields ignored",
			content: `---
session_id: s1
title: Title
author: someone
---
body
`,
			want:     Frontmatter{SessionID: "s1", Title: "Title"},
			wantBody: []string{"body"},
		},
		{
			name:     "delimiter not on first line",
			content:  "\n---\nsession_id: nope\n---\n",
			want:     Frontmatter{},
			wantBody: []string{"", "---", "session_id: nope", "---"},
		},
		{
			name: "empty frontmatter block",
			content: `---
---
content
`,
			want:     Frontmatter{},
			wantBody: []string{"content"},
		},
		{
			name:     "crlf line endings",
			content:  "---\r\nsession_id: win\r\n---\r\nbody\r\n",
			want:     Frontmatter{SessionID: "win"},
			wantBody: []string{"body"},
		},
		{
			name: "frontmatter with whitespace around delimiters",
			content: `  ---
session_id: ws
  ---
body
`,
			want:     Frontmatter{SessionID: "ws"},
			wantBody: []string{"body"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, body := ParseFrontmatter(tt.content)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantBody, body)
		})
	}
}
