package server

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/devcompass/internal/auth"
	"github.com/sakif/devcompass/internal/config"
)

const testSecret = "server-test-secret-0123456789"

func newTestServer(t *testing.T, mutate func(*config.Config)) *Server {
	t.Helper()
	cfg := config.Default()
	cfg.Database.Path = ":memory:"
	cfg.Auth.JWTSecret = testSecret
	if mutate != nil {
		mutate(&cfg)
	}
	srv, err := New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })
	return srv
}

func get(t *testing.T, srv *Server, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)
	return rr
}

func TestServer_HealthAndMetrics(t *testing.T) {
	srv := newTestServer(t, nil)

	rr := get(t, srv, "/healthz", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())

	rr = get(t, srv, "/metrics", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "devcompass_circuit_breaker_state")
}

func TestServer_APIRequiresAuth(t *testing.T) {
	srv := newTestServer(t, nil)

	rr := get(t, srv, "/api/handles", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	tokens, err := auth.NewTokenService(testSecret, 0)
	require.NoError(t, err)
	token, err := tokens.Generate("github:1")
	require.NoError(t, err)

	rr = get(t, srv, "/api/handles", token)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())

	rr = get(t, srv, "/api/recommendations/codeforces", token)
	assert.Equal(t, http.StatusForbidden, rr.Code, "no verified handle")

	rr = get(t, srv, "/api/profile", token)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"userId":"github:1"`)

	rr = get(t, srv, "/api/stats/hackerrank/someone", token)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestServer_SignInRoutesOnlyWhenConfigured(t *testing.T) {
	srv := newTestServer(t, nil)
	assert.Equal(t, http.StatusNotFound, get(t, srv, "/auth/github/login", "").Code)

	srv = newTestServer(t, func(c *config.Config) {
		c.Auth.GithubClientID = "client"
		c.Auth.GithubClientSecret = "secret"
	})
	assert.Equal(t, http.StatusTemporaryRedirect, get(t, srv, "/auth/github/login", "").Code)
}

func TestServer_BadgerBackend(t *testing.T) {
	srv := newTestServer(t, func(c *config.Config) {
		c.Cache.Backend = config.CacheBackendBadger
		c.Cache.BadgerPath = t.TempDir()
	})
	assert.NotNil(t, srv.badger)
	assert.Equal(t, http.StatusOK, get(t, srv, "/healthz", "").Code)
}
