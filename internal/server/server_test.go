package server

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"codereport/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	commits []model.CommitRecord
	err     error
	gotDays int
	gotUser string
	fetches int
}

func (f *fakeSource) FetchCommits(ctx context.Context, days int, username string) ([]model.CommitRecord, error) {
	f.fetches++
	f.gotDays = days
	f.gotUser = username
	return f.commits, f.err
}

type fakeElaborator struct {
	report *model.Report
	err    error
}

func (f *fakeElaborator) GenerateReport(ctx context.Context, commits []model.CommitRecord) (*model.Report, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.report, nil
}

func newTestServer(t *testing.T, source CommitSource, elaborator Elaborator) *Server {
	t.Helper()
	s, err := New(Config{JWTSecret: "test-secret"}, source, elaborator)
	require.NoError(t, err)
	return s
}

func TestHandleGetCommits(t *testing.T) {
	source := &fakeSource{commits: []model.CommitRecord{
		{Message: "fix bug", Repo: "r1", Date: "2024-01-01", Additions: 10, Deletions: 2},
	}}
	s := newTestServer(t, source, &fakeElaborator{})

	rec := httptest.NewRecorder()
	s.handleGetCommits(rec, httptest.NewRequest(http.MethodGet, "/report/commit?duration=7&username=alice", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 7, source.gotDays)
	assert.Equal(t, "alice", source.gotUser)

	var commits []model.CommitRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &commits))
	require.Len(t, commits, 1)
	assert.Equal(t, "fix bug", commits[0].Message)
}

func TestHandleGetCommitsEmptyWindow(t *testing.T) {
	s := newTestServer(t, &fakeSource{}, &fakeElaborator{})

	rec := httptest.NewRecorder()
	s.handleGetCommits(rec, httptest.NewRequest(http.MethodGet, "/report/commit?duration=7&username=alice", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String(), "empty window is still a JSON array")
}

func TestHandleGetCommitsValidation(t *testing.T) {
	source := &fakeSource{}
	s := newTestServer(t, source, &fakeElaborator{})

	for _, target := range []string{
		"/report/commit",
		"/report/commit?duration=abc",
		"/report/commit?duration=-3",
		"/report/commit?duration=0",
	} {
		rec := httptest.NewRecorder()
		s.handleGetCommits(rec, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
	assert.Equal(t, 0, source.fetches, "invalid durations must not reach the source")
}

func TestHandleGenerateReport(t *testing.T) {
	elaborator := &fakeElaborator{report: &model.Report{
		ElaboratedCommits: []model.ElaboratedCommit{
			{Original: "fix bug", Elaboration: "Fixed a bug causing..."},
		},
		Summary: "1 commit this week",
	}}
	s := newTestServer(t, &fakeSource{}, elaborator)

	body, _ := json.Marshal(map[string]any{
		"commits": []model.CommitRecord{{Message: "fix bug", Repo: "r1"}},
	})
	rec := httptest.NewRecorder()
	s.handleGenerateReport(rec, httptest.NewRequest(http.MethodPost, "/report/generate", bytes.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)

	var report model.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	require.Len(t, report.ElaboratedCommits, 1)
	assert.Equal(t, "Fixed a bug causing...", report.ElaboratedCommits[0].Elaboration)
	assert.Equal(t, "1 commit this week", report.Summary)
}

func TestHandleGenerateReportRejectsEmpty(t *testing.T) {
	s := newTestServer(t, &fakeSource{}, &fakeElaborator{})

	rec := httptest.NewRecorder()
	s.handleGenerateReport(rec, httptest.NewRequest(http.MethodPost, "/report/generate", bytes.NewReader([]byte(`{"commits":[]}`))))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	s.handleGenerateReport(rec, httptest.NewRequest(http.MethodGet, "/report/generate", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandleStatus(t *testing.T) {
	s := newTestServer(t, &fakeSource{}, &fakeElaborator{})

	session, err := s.mintSession("alice", "https://example.com/a.png", "gh-token")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/auth/status", nil)
	req.Header.Set("Authorization", "Bearer "+session)
	rec := httptest.NewRecorder()
	s.handleStatus(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp statusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.User)
	assert.Equal(t, "alice", resp.User.Username)
	assert.Equal(t, "https://example.com/a.png", resp.User.AvatarURL)
}

func TestHandleStatusRejectsBadTokens(t *testing.T) {
	s := newTestServer(t, &fakeSource{}, &fakeElaborator{})

	rec := httptest.NewRecorder()
	s.handleStatus(rec, httptest.NewRequest(http.MethodGet, "/auth/status", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/auth/status", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rec = httptest.NewRecorder()
	s.handleStatus(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	var resp statusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Nil(t, resp.User)
}
