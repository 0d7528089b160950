package handler_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/devcompass/internal/auth"
	"github.com/sakif/devcompass/internal/handler"
	"github.com/sakif/devcompass/internal/model"
)

type fakeSignIn struct {
	user *auth.GitHubUser
	err  error
}

func (f *fakeSignIn) AuthURL(state string) string {
	return "https://github.com/login/oauth/authorize?state=" + state
}

func (f *fakeSignIn) Exchange(context.Context, string) (*auth.GitHubUser, error) {
	return f.user, f.err
}

type signInRecorder struct {
	linked   map[string]string
	verified map[string]bool
}

func newSignInHandles() (*mockHandles, *signInRecorder) {
	rec := &signInRecorder{linked: map[string]string{}, verified: map[string]bool{}}
	m := &mockHandles{
		link: func(_ context.Context, userID string, p model.Platform, handle string) (*model.PlatformHandle, error) {
			rec.linked[userID] = handle
			return &model.PlatformHandle{UserID: userID, Platform: p, Handle: handle}, nil
		},
		markVerified: func(_ context.Context, userID string, _ model.Platform) error {
			rec.verified[userID] = true
			return nil
		},
		list: func(_ context.Context, userID string) ([]model.PlatformHandle, error) {
			return []model.PlatformHandle{{UserID: userID, Platform: model.PlatformGitHub, Handle: rec.linked[userID]}}, nil
		},
	}
	return m, rec
}

func newAuthHandler(t *testing.T, signIn *fakeSignIn, handles *mockHandles) (*handler.AuthHandler, *auth.TokenService) {
	t.Helper()
	tokens, err := auth.NewTokenService("test-secret-at-least-16-chars!!", 0)
	require.NoError(t, err)
	return handler.NewAuthHandler(signIn, tokens, handles, false, testLogger()), tokens
}

func cookieNamed(rr *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestAuthHandler_LoginSetsState(t *testing.T) {
	h, _ := newAuthHandler(t, &fakeSignIn{}, &mockHandles{})
	rr := httptest.NewRecorder()

	h.HandleGitHubLogin(rr, httptest.NewRequest(http.MethodGet, "/auth/github/login", nil))

	assert.Equal(t, http.StatusTemporaryRedirect, rr.Code)
	state := cookieNamed(rr, "oauth_state")
	require.NotNil(t, state)
	assert.True(t, state.HttpOnly)
	assert.Contains(t, rr.Header().Get("Location"), "state="+state.Value)
}

func TestAuthHandler_CallbackSignsInAndVerifiesGithub(t *testing.T) {
	handles, rec := newSignInHandles()
	h, tokens := newAuthHandler(t, &fakeSignIn{user: &auth.GitHubUser{ID: 42, Login: "octocat"}}, handles)

	req := httptest.NewRequest(http.MethodGet, "/auth/github/callback?code=c1&state=s1", nil)
	req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "s1"})
	rr := httptest.NewRecorder()
	h.HandleGitHubCallback(rr, req)

	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "octocat", rec.linked["github:42"])
	assert.True(t, rec.verified["github:42"])

	session := cookieNamed(rr, auth.CookieName)
	require.NotNil(t, session)
	userID, err := tokens.Validate(session.Value)
	require.NoError(t, err)
	assert.Equal(t, "github:42", userID)
}

func TestAuthHandler_CallbackRejects(t *testing.T) {
	tests := []struct {
		name       string
		url        string
		cookie     string
		signIn     *fakeSignIn
		wantStatus int
	}{
		{"missing state cookie", "/auth/github/callback?code=c&state=s", "", &fakeSignIn{}, http.StatusBadRequest},
		{"state mismatch", "/auth/github/callback?code=c&state=evil", "s", &fakeSignIn{}, http.StatusBadRequest},
		{"missing code", "/auth/github/callback?state=s", "s", &fakeSignIn{}, http.StatusBadRequest},
		{"user denied", "/auth/github/callback?state=s&error=access_denied", "s", &fakeSignIn{}, http.StatusSeeOther},
		{"exchange fails", "/auth/github/callback?code=c&state=s", "s", &fakeSignIn{err: errors.New("bad code")}, http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handles, rec := newSignInHandles()
			h, _ := newAuthHandler(t, tt.signIn, handles)
			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "oauth_state", Value: tt.cookie})
			}
			rr := httptest.NewRecorder()

			h.HandleGitHubCallback(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Empty(t, rec.linked)
			assert.Nil(t, cookieNamed(rr, auth.CookieName))
		})
	}
}

func TestAuthHandler_LogoutAndMe(t *testing.T) {
	handles, rec := newSignInHandles()
	rec.linked["github:42"] = "octocat"
	h, _ := newAuthHandler(t, &fakeSignIn{}, handles)

	rr := httptest.NewRecorder()
	h.HandleLogout(rr, httptest.NewRequest(http.MethodPost, "/auth/logout", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	cleared := cookieNamed(rr, auth.CookieName)
	require.NotNil(t, cleared)
	assert.Negative(t, cleared.MaxAge)

	r := chi.NewRouter()
	r.Use(asUser("github:42"))
	r.Get("/api/me", h.HandleMe)
	rr = do(t, r, http.MethodGet, "/api/me", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"userId":"github:42"`)
	assert.Contains(t, rr.Body.String(), "octocat")
}
