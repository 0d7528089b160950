package handler_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/devcompass/internal/apperror"
	"github.com/sakif/devcompass/internal/auth"
	"github.com/sakif/devcompass/internal/handler"
	"github.com/sakif/devcompass/internal/model"
	"github.com/sakif/devcompass/internal/service"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// =========================================================================
// MOCKS
// =========================================================================

type mockHandles struct {
	list         func(ctx context.Context, userID string) ([]model.PlatformHandle, error)
	link         func(ctx context.Context, userID string, p model.Platform, handle string) (*model.PlatformHandle, error)
	issueToken   func(ctx context.Context, userID string, p model.Platform) (string, error)
	verify       func(ctx context.Context, userID string, p model.Platform) (*model.PlatformHandle, error)
	markVerified func(ctx context.Context, userID string, p model.Platform) error
}

func (m *mockHandles) List(ctx context.Context, userID string) ([]model.PlatformHandle, error) {
	return m.list(ctx, userID)
}

func (m *mockHandles) Link(ctx context.Context, userID string, p model.Platform, handle string) (*model.PlatformHandle, error) {
	return m.link(ctx, userID, p, handle)
}

func (m *mockHandles) IssueToken(ctx context.Context, userID string, p model.Platform) (string, error) {
	return m.issueToken(ctx, userID, p)
}

func (m *mockHandles) Verify(ctx context.Context, userID string, p model.Platform) (*model.PlatformHandle, error) {
	return m.verify(ctx, userID, p)
}

func (m *mockHandles) MarkVerified(ctx context.Context, userID string, p model.Platform) error {
	return m.markVerified(ctx, userID, p)
}

type mockRecommender struct {
	cf  *service.CodeforcesRecommendations
	lc  *service.LeetCodeRecommendations
	err error
}

func (m *mockRecommender) Codeforces(context.Context, string) (*service.CodeforcesRecommendations, error) {
	return m.cf, m.err
}

func (m *mockRecommender) LeetCode(context.Context, string) (*service.LeetCodeRecommendations, error) {
	return m.lc, m.err
}

type mockImporter struct {
	gotUser string
	gotReq  service.BulkImportRequest
	result  *service.BulkImportResult
	err     error
}

func (m *mockImporter) BulkImport(_ context.Context, userID string, req service.BulkImportRequest) (*service.BulkImportResult, error) {
	m.gotUser = userID
	m.gotReq = req
	return m.result, m.err
}

type mockDashboard struct {
	d   *service.Dashboard
	err error
}

func (m *mockDashboard) Build(_ context.Context, userID string) (*service.Dashboard, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.d.UserID = userID
	return m.d, nil
}

type mockGithub struct {
	gotToken  string
	report    *service.GithubReport
	active    []model.GithubRecommendation
	closed    map[string]string
	closeErr  error
	reportErr error
}

func (m *mockGithub) Run(_ context.Context, _ string, token string) (*service.GithubReport, error) {
	m.gotToken = token
	return m.report, m.reportErr
}

func (m *mockGithub) Active(context.Context, string) ([]model.GithubRecommendation, error) {
	return m.active, nil
}

func (m *mockGithub) Dismiss(_ context.Context, _ string, id string) error {
	return m.record(id, "dismissed")
}

func (m *mockGithub) Complete(_ context.Context, _ string, id string) error {
	return m.record(id, "completed")
}

func (m *mockGithub) record(id, how string) error {
	if m.closeErr != nil {
		return m.closeErr
	}
	if m.closed == nil {
		m.closed = map[string]string{}
	}
	m.closed[id] = how
	return nil
}

type mockInsights struct {
	gotForce bool
	insight  *model.Insight
	err      error
}

func (m *mockInsights) Refresh(_ context.Context, _ string, force bool) (*model.Insight, error) {
	m.gotForce = force
	return m.insight, m.err
}

func (m *mockInsights) Latest(context.Context, string) (*model.Insight, error) {
	return m.insight, m.err
}

// =========================================================================
// HELPERS
// =========================================================================

// asUser mimics auth.RequireAuth for a fixed user.
func asUser(userID string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(auth.ContextWithUserID(r.Context(), userID)))
		})
	}
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), dst), rr.Body.String())
}

// =========================================================================
// ERROR MAPPING
// =========================================================================

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
		retryAfter string
	}{
		{"validation", apperror.ValidationFailed("handle", "handle is required"), http.StatusBadRequest, "validation_error", ""},
		{"forbidden", apperror.Forbidden("verify your leetcode handle first"), http.StatusForbidden, "forbidden", ""},
		{"not found", apperror.NotFound("handle", "u1"), http.StatusNotFound, "not_found", ""},
		{"cooldown", apperror.Cooldown(90 * time.Second), http.StatusTooManyRequests, "cooldown", "90"},
		{"rate limited", apperror.RateLimited("leetcode", 2500*time.Millisecond), http.StatusServiceUnavailable, "upstream_rate_limited", "3"},
		{"unavailable", apperror.Unavailable("codeforces", errors.New("HTTP 502")), http.StatusServiceUnavailable, "upstream_unavailable", ""},
		{"raw error", errors.New("sqlite: disk I/O error"), http.StatusInternalServerError, "internal_error", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := handler.NewInsightHandler(&mockInsights{err: tt.err}, testLogger())
			r := chi.NewRouter()
			r.Use(asUser("u1"))
			r.Get("/api/insights", h.HandleLatest)

			rr := do(t, r, http.MethodGet, "/api/insights", "")

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
			assert.Equal(t, tt.retryAfter, rr.Header().Get("Retry-After"))

			var body handler.ErrorResponse
			decodeBody(t, rr, &body)
			assert.Equal(t, tt.wantType, body.Error)
			if tt.wantStatus == http.StatusInternalServerError {
				assert.NotContains(t, body.Message, "sqlite")
			}
		})
	}
}

func TestRequireUser(t *testing.T) {
	h := handler.NewDashboardHandler(&mockDashboard{}, testLogger())
	r := chi.NewRouter()
	r.Get("/api/dashboard", h.HandleDashboard)

	rr := do(t, r, http.MethodGet, "/api/dashboard", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
