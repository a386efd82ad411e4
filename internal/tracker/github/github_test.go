package github

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/tracksync/internal/tracker"
	"github.com/colonyops/tracksync/pkg/executil"
)

func newTracker(exec *executil.RecordingExecutor) *Tracker {
	return New(exec, "", "colonyops/tracksync", zerolog.Nop())
}

func commandsWith(exec *executil.RecordingExecutor, sub string) []executil.RecordedCommand {
	var out []executil.RecordedCommand
	for _, c := range exec.Commands {
		if len(c.Args) > 1 && c.Args[0]+" "+c.Args[1] == sub {
			out = append(out, c)
		}
	}
	return out
}

func TestCreateIssue(t *testing.T) {
	exec := &executil.RecordingExecutor{
		Outputs: map[string][]byte{
			"gh issue create": []byte("Creating issue in colonyops/tracksync\n\nhttps://github.com/colonyops/tracksync/issues/42\n"),
		},
	}
	tr := newTracker(exec)

	issue, err := tr.CreateIssue(context.Background(), tracker.IssueInput{
		Title:  "Add login",
		Body:   "body text",
		Labels: []string{"planning", "priority:high"},
	})
	require.NoError(t, err)
	assert.Equal(t, 42, issue.Number)
	assert.Equal(t, "https://github.com/colonyops/tracksync/issues/42", issue.URL)

	assert.Len(t, commandsWith(exec, "label create"), 2)

	creates := commandsWith(exec, "issue create")
	require.Len(t, creates, 1)
	assert.Equal(t, "gh", creates[0].Cmd)
	assert.Equal(t, []string{
		"issue", "create", "--repo", "colonyops/tracksync",
		"--title", "Add login", "--body-file", "-",
		"--label", "planning", "--label", "priority:high",
	}, creates[0].Args)
	assert.Equal(t, []byte("body text"), creates[0].Input)
	assert.Empty(t, commandsWith(exec, "issue close"))
}

func TestCreateIssue_LabelsCached(t *testing.T) {
	exec := &executil.RecordingExecutor{
		Outputs: map[string][]byte{"gh issue create": []byte("https://github.com/o/r/issues/1")},
		Errors:  map[string]error{"gh label create": errors.New("label \"planning\" already exists")},
	}
	tr := newTracker(exec)

	for range 3 {
		_, err := tr.CreateIssue(context.Background(), tracker.IssueInput{Title: "t", Labels: []string{"planning"}})
		require.NoError(t, err)
	}
	assert.Len(t, commandsWith(exec, "label create"), 1)
}

func TestCreateIssue_Closed(t *testing.T) {
	exec := &executil.RecordingExecutor{
		Outputs: map[string][]byte{"gh issue create": []byte("https://github.com/o/r/issues/5")},
	}
	tr := newTracker(exec)

	issue, err := tr.CreateIssue(context.Background(), tracker.IssueInput{Title: "t", Closed: true})
	require.NoError(t, err)
	assert.Equal(t, 5, issue.Number)

	closes := commandsWith(exec, "issue close")
	require.Len(t, closes, 1)
	assert.Equal(t, []string{"issue", "close", "5", "--repo", "colonyops/tracksync"}, closes[0].Args)
}

func TestCreateIssue_Errors(t *testing.T) {
	tests := []struct {
		name string
		exec *executil.RecordingExecutor
	}{
		{
			name: "gh fails",
			exec: &executil.RecordingExecutor{Errors: map[string]error{"gh issue create": errors.New("HTTP 502")}},
		},
		{
			name: "no url in output",
			exec: &executil.RecordingExecutor{Outputs: map[string][]byte{"gh issue create": []byte("something odd")}},
		},
		{
			name: "label create fails",
			exec: &executil.RecordingExecutor{Errors: map[string]error{"gh label create": errors.New("HTTP 403")}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTracker(tt.exec).CreateIssue(context.Background(), tracker.IssueInput{Title: "t", Labels: []string{"x"}})
			require.Error(t, err)

			var terr *tracker.Error
			require.ErrorAs(t, err, &terr)
			assert.Equal(t, "create", terr.Op)
		})
	}
}

func TestUpdateIssue(t *testing.T) {
	exec := &executil.RecordingExecutor{}
	tr := newTracker(exec)

	err := tr.UpdateIssue(context.Background(), 42, tracker.IssueInput{
		Title:  "New title",
		Body:   "new body",
		Labels: []string{"planning", "done"},
		Closed: true,
	})
	require.NoError(t, err)

	edits := commandsWith(exec, "issue edit")
	require.Len(t, edits, 1)
	assert.Equal(t, []string{
		"issue", "edit", "42", "--repo", "colonyops/tracksync",
		"--title", "New title", "--body-file", "-",
		"--add-label", "planning,done",
	}, edits[0].Args)
	assert.Equal(t, []byte("new body"), edits[0].Input)
	assert.Len(t, commandsWith(exec, "issue close"), 1)
}

func TestUpdateIssue_ReopensOpenItems(t *testing.T) {
	exec := &executil.RecordingExecutor{}
	require.NoError(t, newTracker(exec).UpdateIssue(context.Background(), 7, tracker.IssueInput{Title: "t"}))
	assert.Len(t, commandsWith(exec, "issue reopen"), 1)
}

func TestUpdateIssue_RemovesStaleLabels(t *testing.T) {
	exec := &executil.RecordingExecutor{}

	err := newTracker(exec).UpdateIssue(context.Background(), 42, tracker.IssueInput{
		Title:        "t",
		Labels:       []string{"planning", "priority:low"},
		RemoveLabels: []string{"done", "priority:high"},
	})
	require.NoError(t, err)

	edits := commandsWith(exec, "issue edit")
	require.Len(t, edits, 1)
	assert.Equal(t, []string{
		"--add-label", "planning,priority:low",
		"--remove-label", "done,priority:high",
	}, edits[0].Args[len(edits[0].Args)-4:])
}

func TestUpdateIssue_Error(t *testing.T) {
	exec := &executil.RecordingExecutor{Errors: map[string]error{"gh issue edit": errors.New("not found")}}

	err := newTracker(exec).UpdateIssue(context.Background(), 42, tracker.IssueInput{Title: "t"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "update issue #42")
}

func TestFindByMarker(t *testing.T) {
	marker := tracker.Marker("task:P-003/T-1")

	tests := []struct {
		name      string
		output    string
		wantFound bool
		wantNum   int
	}{
		{
			name:      "exact match",
			output:    `[{"number":3,"url":"u3","body":"other"},{"number":9,"url":"u9","body":"text\n\n` + `<!-- tracksync:source=task:P-003/T-1 -->"}]`,
			wantFound: true,
			wantNum:   9,
		},
		{
			name:   "fuzzy hit without marker",
			output: `[{"number":3,"url":"u3","body":"task P-003 T-1"}]`,
		},
		{
			name:   "no results",
			output: `[]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := &executil.RecordingExecutor{Outputs: map[string][]byte{"gh issue list": []byte(tt.output)}}

			issue, found, err := newTracker(exec).FindByMarker(context.Background(), marker)
			require.NoError(t, err)
			assert.Equal(t, tt.wantFound, found)
			assert.Equal(t, tt.wantNum, issue.Number)

			require.Len(t, exec.Commands, 1)
			assert.Contains(t, exec.Commands[0].Args, "--state")
			assert.Contains(t, exec.Commands[0].Args, "all")
		})
	}
}

func TestFindByMarker_BadJSON(t *testing.T) {
	exec := &executil.RecordingExecutor{Outputs: map[string][]byte{"gh issue list": []byte("not json")}}

	_, _, err := newTracker(exec).FindByMarker(context.Background(), "m")
	require.Error(t, err)
}

func TestParseIssueURL(t *testing.T) {
	tests := []struct {
		out     string
		want    tracker.Issue
		wantErr bool
	}{
		{
			out:  "https://github.com/o/r/issues/12\n",
			want: tracker.Issue{Number: 12, URL: "https://github.com/o/r/issues/12"},
		},
		{
			out:  "Creating issue in o/r\n\nhttps://ghe.example.com/o/r/issues/3",
			want: tracker.Issue{Number: 3, URL: "https://ghe.example.com/o/r/issues/3"},
		},
		{out: "https://github.com/o/r/pull/12", wantErr: true},
		{out: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.out, func(t *testing.T) {
			got, err := ParseIssueURL(tt.out)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
