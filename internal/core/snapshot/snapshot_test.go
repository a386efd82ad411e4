package snapshot

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCreate_Normalizes(t *testing.T) {
	got := Create(Content{
		Title:  "  Fix   the\tparser  ",
		Body:   "\r\n\nline one   \r\nline two\t\n\n\n",
		Labels: []string{"b", " a ", "b", ""},
		State:  " Open ",
	})

	assert.Equal(t, Snapshot{
		Title:  "Fix the parser",
		Body:   "line one\nline two",
		Labels: []string{"a", "b"},
		State:  "open",
	}, got)
}

func TestHasChanged(t *testing.T) {
	base := Content{Title: "Title", Body: "Body", Labels: []string{"x"}, State: "open"}
	prev := Create(base)

	tests := []struct {
		name    string
		prev    *Snapshot
		cur     Content
		want    bool
		changed []string
	}{
		{
			name:    "nil previous snapshot",
			prev:    nil,
			cur:     base,
			want:    true,
			changed: []string{"title", "body", "labels", "state"},
		},
		{
			name: "identical content",
			prev: &prev,
			cur:  base,
			want: false,
		},
		{
			name: "trailing whitespace only",
			prev: &prev,
			cur:  Content{Title: "Title  ", Body: "Body   \n\n", Labels: []string{"x", "x"}, State: "OPEN"},
			want: false,
		},
		{
			name:    "title changed",
			prev:    &prev,
			cur:     Content{Title: "Other", Body: "Body", Labels: []string{"x"}, State: "open"},
			want:    true,
			changed: []string{"title"},
		},
		{
			name:    "labels changed",
			prev:    &prev,
			cur:     Content{Title: "Title", Body: "Body", Labels: []string{"x", "y"}, State: "open"},
			want:    true,
			changed: []string{"labels"},
		},
		{
			name:    "state changed",
			prev:    &prev,
			cur:     Content{Title: "Title", Body: "Body", Labels: []string{"x"}, State: "done"},
			want:    true,
			changed: []string{"state"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cur := Create(tt.cur)
			assert.Equal(t, tt.want, HasChanged(tt.prev, cur))
			assert.Equal(t, tt.changed, Diff(tt.prev, cur))
		})
	}
}

func TestCreate_Idempotent(t *testing.T) {
	first := Create(Content{Title: " a  b ", Body: "x  \n", Labels: []string{"z", "y"}})
	second := Create(Content{Title: first.Title, Body: first.Body, Labels: first.Labels, State: first.State})

	assert.Equal(t, first, second)
	assert.False(t, HasChanged(&first, second))
	assert.Equal(t, first.Digest(), second.Digest())
}

func TestDigest_DiffersOnContent(t *testing.T) {
	a := Create(Content{Title: "a"})
	b := Create(Content{Title: "b"})

	assert.NotEmpty(t, a.Digest())
	assert.NotEqual(t, a.Digest(), b.Digest())
}

func TestClone_DoesNotShareLabels(t *testing.T) {
	s := Create(Content{Labels: []string{"a"}})
	c := s.Clone()
	c.Labels[0] = "changed"

	assert.Equal(t, "a", s.Labels[0])
}
