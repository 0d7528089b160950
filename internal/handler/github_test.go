package handler_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"github.com/sakif/devcompass/internal/apperror"
	"github.com/sakif/devcompass/internal/handler"
	"github.com/sakif/devcompass/internal/model"
	"github.com/sakif/devcompass/internal/service"
)

func githubRouter(m *mockGithub) http.Handler {
	h := handler.NewGithubHandler(m, testLogger())
	r := chi.NewRouter()
	r.Use(asUser("u1"))
	r.Get("/api/github/report", h.HandleReport)
	r.Get("/api/github/recommendations", h.HandleActive)
	r.Post("/api/github/recommendations/{id}/dismiss", h.HandleDismiss)
	r.Post("/api/github/recommendations/{id}/complete", h.HandleComplete)
	return r
}

func TestGithubHandler_ReportForwardsToken(t *testing.T) {
	m := &mockGithub{report: &service.GithubReport{Login: "octocat"}}
	req := httptest.NewRequest(http.MethodGet, "/api/github/report", nil)
	req.Header.Set(handler.GithubTokenHeader, " ghp_abc ")
	rr := httptest.NewRecorder()

	githubRouter(m).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ghp_abc", m.gotToken)
}

func TestGithubHandler_ReportNotVerified(t *testing.T) {
	m := &mockGithub{reportErr: apperror.Forbidden("verify your github handle first")}
	rr := do(t, githubRouter(m), http.MethodGet, "/api/github/report", "")
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestGithubHandler_Active(t *testing.T) {
	rr := do(t, githubRouter(&mockGithub{}), http.MethodGet, "/api/github/recommendations", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())

	m := &mockGithub{active: []model.GithubRecommendation{{ID: "r1"}}}
	rr = do(t, githubRouter(m), http.MethodGet, "/api/github/recommendations", "")
	var got []model.GithubRecommendation
	decodeBody(t, rr, &got)
	assert.Len(t, got, 1)
}

func TestGithubHandler_Close(t *testing.T) {
	m := &mockGithub{}
	r := githubRouter(m)

	rr := do(t, r, http.MethodPost, "/api/github/recommendations/r1/dismiss", "")
	assert.Equal(t, http.StatusNoContent, rr.Code)
	rr = do(t, r, http.MethodPost, "/api/github/recommendations/r2/complete", "")
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, map[string]string{"r1": "dismissed", "r2": "completed"}, m.closed)

	m.closeErr = apperror.NotFound("github recommendation", "r3")
	rr = do(t, r, http.MethodPost, "/api/github/recommendations/r3/dismiss", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
