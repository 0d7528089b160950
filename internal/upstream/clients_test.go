package upstream

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/devcompass/internal/apperror"
	"github.com/sakif/devcompass/internal/config"
)

func TestNewClients_FromConfig(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"OK","result":[{"handle":"tourist","rating":3800}]}`))
	}))
	t.Cleanup(srv.Close)

	cfg := config.Default()
	cfg.Upstream.CodeforcesURL = srv.URL
	clients := NewClients(cfg.Upstream, cfg.Insight, testLogger())

	require.NotNil(t, clients.LeetCode)
	require.NotNil(t, clients.Github)
	require.NotNil(t, clients.AtCoder)
	assert.Equal(t, ProviderCodeforces, clients.Codeforces.caller.Provider())

	_, err := clients.Codeforces.ProfileText(t.Context(), "tourist")
	require.NoError(t, err, "the configured base URL is used")

	_, err = clients.Insight.Generate(t.Context(), "u1", map[string]string{})
	assert.ErrorIs(t, err, apperror.ErrUnavailable, "no webhook configured")
}
