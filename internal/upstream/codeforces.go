package upstream

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/sakif/devcompass/internal/apperror"
	"github.com/sakif/devcompass/internal/model"
	"github.com/sakif/devcompass/internal/tags"
)

const (
	DefaultCodeforcesBaseURL = "https://codeforces.com/api"

	// codeforcesStatusCount is how many submissions user.status returns.
	codeforcesStatusCount = 5000
)

// CodeforcesClient reads the public Codeforces API.
type CodeforcesClient struct {
	caller  *Caller
	baseURL string
	logger  *slog.Logger
}

func NewCodeforcesClient(caller *Caller, baseURL string, logger *slog.Logger) *CodeforcesClient {
	if baseURL == "" {
		baseURL = DefaultCodeforcesBaseURL
	}
	return &CodeforcesClient{caller: caller, baseURL: strings.TrimRight(baseURL, "/"), logger: logger}
}

// cfEnvelope is the wrapper of every Codeforces API response.
type cfEnvelope struct {
	Status  string          `json:"status"`
	Comment string          `json:"comment"`
	Result  json.RawMessage `json:"result"`
}

type cfUser struct {
	Handle       string `json:"handle"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Organization string `json:"organization"`
	Rating       *int   `json:"rating"`
	MaxRating    *int   `json:"maxRating"`
	Rank         string `json:"rank"`
}

type cfProblem struct {
	ContestID int      `json:"contestId"`
	Index     string   `json:"index"`
	Name      string   `json:"name"`
	Rating    *int     `json:"rating"`
	Tags      []string `json:"tags"`
}

type cfSubmission struct {
	Problem             cfProblem `json:"problem"`
	Verdict             string    `json:"verdict"`
	CreationTimeSeconds int64     `json:"creationTimeSeconds"`
}

// call performs one API method and decodes its result.
//
// Codeforces answers a missing handle with HTTP 400 and
// {"status":"FAILED","comment":"handles: User with handle x not found"},
// which is mapped to NotFound. Other FAILED answers are Unavailable.
func (c *CodeforcesClient) call(ctx context.Context, method string, params url.Values, out any) error {
	endpoint := c.baseURL + "/" + method
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}
	resp, err := c.caller.Do(ctx, getRequest(endpoint, nil))
	if err != nil {
		return err
	}

	var env cfEnvelope
	if err := decode(c.caller.Provider(), resp, &env); err != nil {
		return err
	}
	if env.Status != "OK" {
		if strings.Contains(strings.ToLower(env.Comment), "not found") {
			handle := params.Get("handle")
			if handle == "" {
				handle = params.Get("handles")
			}
			return apperror.NotFound("codeforces user", handle)
		}
		return apperror.Unavailable(c.caller.Provider(), fmt.Errorf("%s: %s", method, env.Comment))
	}
	if resp.StatusCode != http.StatusOK {
		return apperror.Unavailable(c.caller.Provider(), fmt.Errorf("%s: HTTP %d", method, resp.StatusCode))
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return apperror.Unavailable(c.caller.Provider(), fmt.Errorf("decoding %s: %w", method, err))
	}
	return nil
}

func (c *CodeforcesClient) userInfo(ctx context.Context, handle string) (*cfUser, error) {
	var users []cfUser
	if err := c.call(ctx, "user.info", url.Values{"handles": {handle}}, &users); err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, apperror.NotFound("codeforces user", handle)
	}
	return &users[0], nil
}

// FetchStats returns the profile, contest count and submission history of
// handle. Only user.info is required; when the rating or status calls fail
// for another reason the stats come back with those parts empty.
func (c *CodeforcesClient) FetchStats(ctx context.Context, handle string) (*model.CodeforcesStats, error) {
	user, err := c.userInfo(ctx, handle)
	if err != nil {
		return nil, err
	}

	stats := &model.CodeforcesStats{
		Handle:       user.Handle,
		FirstName:    user.FirstName,
		LastName:     user.LastName,
		Organization: user.Organization,
		Rating:       user.Rating,
		MaxRating:    user.MaxRating,
		Rank:         user.Rank,
		Submissions:  []model.CodeforcesSubmission{},
	}

	var changes []json.RawMessage
	if err := c.call(ctx, "user.rating", url.Values{"handle": {handle}}, &changes); err != nil {
		c.logger.Warn("codeforces rating history unavailable",
			slog.String("handle", handle), slog.String("error", err.Error()))
	}
	stats.Contests = len(changes)

	var subs []cfSubmission
	params := url.Values{
		"handle": {handle},
		"from":   {"1"},
		"count":  {strconv.Itoa(codeforcesStatusCount)},
	}
	if err := c.call(ctx, "user.status", params, &subs); err != nil {
		c.logger.Warn("codeforces submissions unavailable",
			slog.String("handle", handle), slog.String("error", err.Error()))
	}

	solved := make(map[string]struct{})
	for _, s := range subs {
		sub := model.CodeforcesSubmission{
			ContestID:    s.Problem.ContestID,
			Index:        s.Problem.Index,
			ProblemName:  s.Problem.Name,
			Rating:       s.Problem.Rating,
			Tags:         s.Problem.Tags,
			Verdict:      s.Verdict,
			CreationTime: s.CreationTimeSeconds,
		}
		if sub.Tags == nil {
			sub.Tags = []string{}
		}
		if sub.Verdict == model.VerdictOK {
			solved[sub.ProblemKey()] = struct{}{}
		}
		stats.Submissions = append(stats.Submissions, sub)
	}
	stats.Solved = len(solved)
	return stats, nil
}

// ProfileText returns the free-text profile fields a user can edit:
// first name, last name and organization.
func (c *CodeforcesClient) ProfileText(ctx context.Context, handle string) (string, error) {
	user, err := c.userInfo(ctx, handle)
	if err != nil {
		return "", err
	}
	return strings.Join([]string{user.FirstName, user.LastName, user.Organization}, " "), nil
}

// Problemset returns every rated problem of the Codeforces problemset as
// catalog entries. Unrated problems are skipped.
func (c *CodeforcesClient) Problemset(ctx context.Context) ([]model.Problem, error) {
	var result struct {
		Problems []cfProblem `json:"problems"`
	}
	if err := c.call(ctx, "problemset.problems", nil, &result); err != nil {
		return nil, err
	}

	problems := make([]model.Problem, 0, len(result.Problems))
	for _, p := range result.Problems {
		if p.Rating == nil || *p.Rating == 0 {
			continue
		}
		id := model.CodeforcesProblemKey(p.ContestID, p.Index)
		difficulty := model.DifficultyFromRating(*p.Rating)
		rating := *p.Rating
		problems = append(problems, model.Problem{
			Platform:   model.PlatformCodeforces,
			ExternalID: id,
			Title:      p.Name,
			Slug:       id,
			URL:        fmt.Sprintf("https://codeforces.com/problemset/problem/%d/%s", p.ContestID, p.Index),
			Difficulty: &difficulty,
			Rating:     &rating,
			Tags:       tags.NormalizeAll(p.Tags),
		})
	}
	return problems, nil
}
