package upstream

import (
	"context"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/sakif/devcompass/internal/apperror"
	"github.com/sakif/devcompass/internal/model"
)

const DefaultGithubEndpoint = "https://api.github.com/graphql"

const githubUserQuery = `
query userProfile($login: String!) {
  user(login: $login) {
    login
    bio
    followers { totalCount }
    repositories(first: 100, ownerAffiliations: OWNER, orderBy: {field: PUSHED_AT, direction: DESC}) {
      nodes {
        name
        stargazerCount
        isArchived
        isFork
        createdAt
        pushedAt
        languages(first: 10, orderBy: {field: SIZE, direction: DESC}) {
          edges { size node { name } }
        }
        defaultBranchRef {
          target { ... on Commit { history { totalCount } } }
        }
      }
    }
    contributionsCollection {
      totalPullRequestContributions
      totalPullRequestReviewContributions
      totalIssueContributions
      contributionCalendar {
        totalContributions
        weeks { contributionDays { date contributionCount } }
      }
    }
  }
}`

const githubBioQuery = `
query userBio($login: String!) {
  user(login: $login) { bio }
}`

// GithubClient reads GitHub's GraphQL API. Requests are authenticated with
// the server token unless the caller supplies its own.
type GithubClient struct {
	caller   *Caller
	endpoint string
	client   *http.Client
	base     http.RoundTripper
	timeout  time.Duration
}

// NewGithubClient builds a client authenticating with token. An empty token
// sends unauthenticated requests, which GitHub's GraphQL API rejects; that
// is surfaced as Unavailable.
func NewGithubClient(caller *Caller, endpoint, token string, timeout time.Duration) *GithubClient {
	if endpoint == "" {
		endpoint = DefaultGithubEndpoint
	}
	c := &GithubClient{caller: caller, endpoint: endpoint, base: http.DefaultTransport, timeout: timeout}
	c.client = c.clientFor(token)
	return c
}

func (c *GithubClient) clientFor(token string) *http.Client {
	if token == "" {
		return &http.Client{Transport: c.base, Timeout: c.timeout}
	}
	return &http.Client{
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}),
			Base:   c.base,
		},
		Timeout: c.timeout,
	}
}

type ghUser struct {
	Login     string `json:"login"`
	Bio       string `json:"bio"`
	Followers struct {
		TotalCount int `json:"totalCount"`
	} `json:"followers"`
	Repositories struct {
		Nodes []struct {
			Name       string    `json:"name"`
			Stars      int       `json:"stargazerCount"`
			IsArchived bool      `json:"isArchived"`
			IsFork     bool      `json:"isFork"`
			CreatedAt  time.Time `json:"createdAt"`
			PushedAt   time.Time `json:"pushedAt"`
			Languages  struct {
				Edges []struct {
					Size int64 `json:"size"`
					Node struct {
						Name string `json:"name"`
					} `json:"node"`
				} `json:"edges"`
			} `json:"languages"`
			DefaultBranchRef *struct {
				Target struct {
					History struct {
						TotalCount int `json:"totalCount"`
					} `json:"history"`
				} `json:"target"`
			} `json:"defaultBranchRef"`
		} `json:"nodes"`
	} `json:"repositories"`
	Contributions struct {
		PullRequests int `json:"totalPullRequestContributions"`
		Reviews      int `json:"totalPullRequestReviewContributions"`
		Issues       int `json:"totalIssueContributions"`
		Calendar     struct {
			Total int `json:"totalContributions"`
			Weeks []struct {
				Days []struct {
					Date  string `json:"date"`
					Count int    `json:"contributionCount"`
				} `json:"contributionDays"`
			} `json:"weeks"`
		} `json:"contributionCalendar"`
	} `json:"contributionsCollection"`
}

// FetchStats loads login's profile with the server token.
func (c *GithubClient) FetchStats(ctx context.Context, login string) (*model.GithubStats, error) {
	return c.FetchStatsWithToken(ctx, login, "")
}

// FetchStatsWithToken loads login's profile, authenticating with token when
// it is non-empty.
func (c *GithubClient) FetchStatsWithToken(ctx context.Context, login, token string) (*model.GithubStats, error) {
	client := c.client
	if token != "" {
		client = c.clientFor(token)
	}

	var data struct {
		User *ghUser `json:"user"`
	}
	gqlErrs, err := graphQL(ctx, c.caller, client, c.endpoint, nil, githubUserQuery, map[string]any{"login": login}, &data)
	if err != nil && !ghNotFound(gqlErrs) {
		return nil, err
	}
	if data.User == nil {
		return nil, apperror.NotFound("github user", login)
	}
	return data.User.stats(), nil
}

func (u *ghUser) stats() *model.GithubStats {
	s := &model.GithubStats{
		Login:              u.Login,
		Bio:                u.Bio,
		Followers:          u.Followers.TotalCount,
		Repos:              make([]model.GithubRepo, 0, len(u.Repositories.Nodes)),
		TotalContributions: u.Contributions.Calendar.Total,
		PullRequests:       u.Contributions.PullRequests,
		Reviews:            u.Contributions.Reviews,
		Issues:             u.Contributions.Issues,
	}
	for _, n := range u.Repositories.Nodes {
		repo := model.GithubRepo{
			Name:       n.Name,
			Stars:      n.Stars,
			IsArchived: n.IsArchived,
			IsFork:     n.IsFork,
			CreatedAt:  n.CreatedAt,
			PushedAt:   n.PushedAt,
			Languages:  make([]model.LanguageEdge, 0, len(n.Languages.Edges)),
		}
		if n.DefaultBranchRef != nil {
			repo.Commits = n.DefaultBranchRef.Target.History.TotalCount
		}
		for _, e := range n.Languages.Edges {
			repo.Languages = append(repo.Languages, model.LanguageEdge{Name: e.Node.Name, Size: e.Size})
		}
		s.TotalCommits += repo.Commits
		s.Repos = append(s.Repos, repo)
	}
	for _, w := range u.Contributions.Calendar.Weeks {
		for _, d := range w.Days {
			s.Calendar = append(s.Calendar, model.ContributionDay{Date: d.Date, Count: d.Count})
		}
	}
	return s
}

// ProfileText returns login's bio.
func (c *GithubClient) ProfileText(ctx context.Context, login string) (string, error) {
	var data struct {
		User *struct {
			Bio string `json:"bio"`
		} `json:"user"`
	}
	gqlErrs, err := graphQL(ctx, c.caller, c.client, c.endpoint, nil, githubBioQuery, map[string]any{"login": login}, &data)
	if err != nil && !ghNotFound(gqlErrs) {
		return "", err
	}
	if data.User == nil {
		return "", apperror.NotFound("github user", login)
	}
	return data.User.Bio, nil
}

func ghNotFound(errs []graphQLError) bool {
	for _, e := range errs {
		if e.Type == "NOT_FOUND" || strings.Contains(strings.ToLower(e.Message), "could not resolve to a user") {
			return true
		}
	}
	return false
}
