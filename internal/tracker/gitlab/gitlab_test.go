package gitlab

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/tracksync/internal/tracker"
)

type apiCall struct {
	Method string
	Path   string
	Query  string
	Body   map[string]any
}

type apiMock struct {
	server *httptest.Server

	mu     sync.Mutex
	calls  []apiCall
	issues []map[string]any
	fail   int
}

func newAPIMock(t *testing.T) *apiMock {
	t.Helper()
	m := &apiMock{}
	m.server = httptest.NewServer(http.HandlerFunc(m.handle))
	t.Cleanup(m.server.Close)
	return m
}

func (m *apiMock) handle(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	call := apiCall{Method: r.Method, Path: r.URL.EscapedPath(), Query: r.URL.RawQuery}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&call.Body)
	}
	m.calls = append(m.calls, call)

	if m.fail != 0 {
		w.WriteHeader(m.fail)
		_, _ = w.Write([]byte(`{"message":"boom"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodPost && strings.HasSuffix(call.Path, "/issues"):
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      1001,
			"iid":     17,
			"title":   call.Body["title"],
			"web_url": "https://gitlab.example.com/group/app/-/issues/17",
		})
	case r.Method == http.MethodPut:
		_ = json.NewEncoder(w).Encode(map[string]any{"id": 1001, "iid": 17})
	case r.Method == http.MethodGet:
		_ = json.NewEncoder(w).Encode(m.issues)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (m *apiMock) tracker(t *testing.T) *Tracker {
	t.Helper()
	tr, err := New(m.server.URL, "glpat-test", "group/app", zerolog.Nop())
	require.NoError(t, err)
	return tr
}

func TestCreateIssue(t *testing.T) {
	mock := newAPIMock(t)

	issue, err := mock.tracker(t).CreateIssue(context.Background(), tracker.IssueInput{
		Title:  "Add login",
		Body:   "body",
		Labels: []string{"planning", "priority:high"},
	})
	require.NoError(t, err)
	assert.Equal(t, 17, issue.Number)
	assert.Equal(t, "https://gitlab.example.com/group/app/-/issues/17", issue.URL)

	require.Len(t, mock.calls, 1)
	call := mock.calls[0]
	assert.Equal(t, http.MethodPost, call.Method)
	assert.Equal(t, "/api/v4/projects/group%2Fapp/issues", call.Path)
	assert.Equal(t, "Add login", call.Body["title"])
	assert.Equal(t, "body", call.Body["description"])
	assert.Equal(t, "planning,priority:high", call.Body["labels"])
}

func TestCreateIssue_ClosedFollowsUp(t *testing.T) {
	mock := newAPIMock(t)

	_, err := mock.tracker(t).CreateIssue(context.Background(), tracker.IssueInput{Title: "t", Closed: true})
	require.NoError(t, err)

	require.Len(t, mock.calls, 2)
	assert.Equal(t, http.MethodPut, mock.calls[1].Method)
	assert.Equal(t, "/api/v4/projects/group%2Fapp/issues/17", mock.calls[1].Path)
	assert.Equal(t, "close", mock.calls[1].Body["state_event"])
}

func TestUpdateIssue(t *testing.T) {
	mock := newAPIMock(t)

	err := mock.tracker(t).UpdateIssue(context.Background(), 17, tracker.IssueInput{
		Title:  "New",
		Body:   "new body",
		Labels: []string{"planning"},
	})
	require.NoError(t, err)

	require.Len(t, mock.calls, 1)
	call := mock.calls[0]
	assert.Equal(t, http.MethodPut, call.Method)
	assert.Equal(t, "/api/v4/projects/group%2Fapp/issues/17", call.Path)
	assert.Equal(t, "New", call.Body["title"])
	assert.Equal(t, "reopen", call.Body["state_event"])
}

func TestTrackerErrors(t *testing.T) {
	mock := newAPIMock(t)
	mock.fail = http.StatusUnprocessableEntity
	tr := mock.tracker(t)

	_, err := tr.CreateIssue(context.Background(), tracker.IssueInput{Title: "t"})
	var terr *tracker.Error
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "create", terr.Op)

	err = tr.UpdateIssue(context.Background(), 3, tracker.IssueInput{Title: "t"})
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "update", terr.Op)
	assert.Equal(t, 3, terr.Number)

	_, _, err = tr.FindByMarker(context.Background(), "m")
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "find", terr.Op)
}

func TestFindByMarker(t *testing.T) {
	marker := tracker.Marker("comment:TODO-1@a.go:3")
	mock := newAPIMock(t)
	mock.issues = []map[string]any{
		{"id": 1, "iid": 4, "description": "mentions TODO-1 loosely", "web_url": "u4"},
		{"id": 2, "iid": 9, "description": "text\n\n" + marker, "web_url": "u9"},
	}

	issue, found, err := mock.tracker(t).FindByMarker(context.Background(), marker)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, tracker.Issue{Number: 9, URL: "u9"}, issue)

	require.Len(t, mock.calls, 1)
	assert.Contains(t, mock.calls[0].Query, "state=all")
	assert.Contains(t, mock.calls[0].Query, "in=description")
}

func TestFindByMarker_NotFound(t *testing.T) {
	mock := newAPIMock(t)
	mock.issues = []map[string]any{}

	_, found, err := mock.tracker(t).FindByMarker(context.Background(), "m")
	require.NoError(t, err)
	assert.False(t, found)
}
