package auth

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

// newOAuthServer fakes GitHub's token endpoint and GET /user.
func newOAuthServer(t *testing.T, userStatus int, userBody string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/login/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"gho_test","token_type":"bearer"}`))
	})
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer gho_test" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(userStatus)
		_, _ = w.Write([]byte(userBody))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testProvider(srv *httptest.Server) *GitHubProvider {
	p := NewGitHubProvider("client", "secret", "http://localhost/auth/github/callback")
	p.config.Endpoint = oauth2.Endpoint{
		AuthURL:  srv.URL + "/login/oauth/authorize",
		TokenURL: srv.URL + "/login/oauth/access_token",
	}
	p.userURL = srv.URL + "/user"
	return p
}

func TestGitHubProvider_AuthURL(t *testing.T) {
	p := NewGitHubProvider("client-id", "secret", "http://localhost/cb")

	u, err := url.Parse(p.AuthURL("state-123"))
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "github.com", u.Host)
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Equal(t, "state-123", q.Get("state"))
	assert.Equal(t, "read:user", q.Get("scope"))
}

func TestGitHubProvider_Exchange(t *testing.T) {
	srv := newOAuthServer(t, http.StatusOK, `{"id":42,"login":"octocat","bio":"ignored"}`)

	user, err := testProvider(srv).Exchange(t.Context(), "code-1")
	require.NoError(t, err)
	assert.Equal(t, int64(42), user.ID)
	assert.Equal(t, "octocat", user.Login)
	assert.Equal(t, "github:42", user.UserID())
}

func TestGitHubProvider_ExchangeFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"user api error", http.StatusInternalServerError, `{}`},
		{"zero id", http.StatusOK, `{"id":0,"login":"ghost"}`},
		{"bad json", http.StatusOK, `{`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newOAuthServer(t, tt.status, tt.body)
			_, err := testProvider(srv).Exchange(t.Context(), "code-1")
			assert.Error(t, err)
		})
	}
}
