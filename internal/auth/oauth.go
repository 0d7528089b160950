package auth

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/goccy/go-json"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

// DefaultGitHubUserURL is the REST endpoint for the signed-in user.
const DefaultGitHubUserURL = "https://api.github.com/user"

// GitHubUser is the part of GET /user that sign-in needs.
type GitHubUser struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
}

// GitHubProvider runs the GitHub OAuth authorization code flow.
//
// A completed sign-in proves the user controls the GitHub login it
// returns, so the callback can link that login as an already verified
// handle.
type GitHubProvider struct {
	config  *oauth2.Config
	userURL string
}

// NewGitHubProvider configures the flow. callbackURL must match the OAuth
// app's registered callback exactly. Only "read:user" is requested.
func NewGitHubProvider(clientID, clientSecret, callbackURL string) *GitHubProvider {
	return &GitHubProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"read:user"},
			Endpoint:     github.Endpoint,
		},
		userURL: DefaultGitHubUserURL,
	}
}

// AuthURL is where the browser is sent to approve the sign-in. state is
// echoed back to the callback and must match the state cookie.
func (p *GitHubProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange trades an authorization code for the GitHub user it belongs to.
func (p *GitHubProvider) Exchange(ctx context.Context, code string) (*GitHubUser, error) {
	oauthToken, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("auth: exchanging OAuth code: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userURL, nil)
	if err != nil {
		return nil, fmt.Errorf("auth: building GitHub user request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := p.config.Client(ctx, oauthToken).Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth: calling GitHub user API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("auth: GitHub user API returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("auth: reading GitHub user response: %w", err)
	}
	var u GitHubUser
	if err := json.Unmarshal(body, &u); err != nil {
		return nil, fmt.Errorf("auth: decoding GitHub user response: %w", err)
	}
	if u.ID == 0 || u.Login == "" {
		return nil, fmt.Errorf("auth: GitHub returned an invalid user (id %d)", u.ID)
	}
	return &u, nil
}

// UserID is the DevCompass user id for a GitHub account.
func (u *GitHubUser) UserID() string {
	return fmt.Sprintf("github:%d", u.ID)
}
