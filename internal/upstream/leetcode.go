package upstream

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sakif/devcompass/internal/apperror"
	"github.com/sakif/devcompass/internal/model"
	"github.com/sakif/devcompass/internal/tags"
)

const (
	DefaultLeetCodeEndpoint = "https://leetcode.com/graphql"

	// RecentWindow is how many recent accepted submissions are requested.
	// Ledger gap detection depends on this exact size.
	RecentWindow = 20

	// DefaultProblemPageSize is the page size used when listing the catalog.
	DefaultProblemPageSize = 100
)

const leetCodeUserQuery = `
query userStats($username: String!, $limit: Int!) {
  matchedUser(username: $username) {
    username
    profile { ranking aboutMe }
    submitStatsGlobal { acSubmissionNum { difficulty count } }
    tagProblemCounts {
      advanced { tagName tagSlug problemsSolved }
      intermediate { tagName tagSlug problemsSolved }
      fundamental { tagName tagSlug problemsSolved }
    }
    languageProblemCount { languageName problemsSolved }
  }
  recentAcSubmissionList(username: $username, limit: $limit) {
    title
    titleSlug
    timestamp
  }
}`

const leetCodeProfileQuery = `
query userProfile($username: String!) {
  matchedUser(username: $username) {
    profile { aboutMe }
  }
}`

const leetCodeProblemListQuery = `
query problemsetQuestionList($categorySlug: String, $limit: Int, $skip: Int, $filters: QuestionListFilterInput) {
  problemsetQuestionList: questionList(categorySlug: $categorySlug, limit: $limit, skip: $skip, filters: $filters) {
    total: totalNum
    questions: data {
      questionFrontendId
      title
      titleSlug
      difficulty
      paidOnly: isPaidOnly
      topicTags { slug }
    }
  }
}`

// LeetCodeClient reads LeetCode's GraphQL API.
type LeetCodeClient struct {
	caller   *Caller
	endpoint string
	header   http.Header
}

func NewLeetCodeClient(caller *Caller, endpoint string) *LeetCodeClient {
	if endpoint == "" {
		endpoint = DefaultLeetCodeEndpoint
	}
	origin := "https://leetcode.com"
	if i := strings.Index(endpoint, "/graphql"); i > 0 {
		origin = endpoint[:i]
	}
	header := http.Header{}
	header.Set("Referer", origin)
	header.Set("Origin", origin)
	return &LeetCodeClient{caller: caller, endpoint: endpoint, header: header}
}

type lcCount struct {
	Difficulty string `json:"difficulty"`
	Count      int    `json:"count"`
}

type lcUser struct {
	Username string `json:"username"`
	Profile  struct {
		Ranking int    `json:"ranking"`
		AboutMe string `json:"aboutMe"`
	} `json:"profile"`
	SubmitStatsGlobal struct {
		AcSubmissionNum []lcCount `json:"acSubmissionNum"`
	} `json:"submitStatsGlobal"`
	TagProblemCounts *model.SkillTags `json:"tagProblemCounts"`
	Languages        []struct {
		LanguageName   string `json:"languageName"`
		ProblemsSolved int    `json:"problemsSolved"`
	} `json:"languageProblemCount"`
}

type lcRecent struct {
	Title     string `json:"title"`
	TitleSlug string `json:"titleSlug"`
	Timestamp string `json:"timestamp"`
}

func countFor(list []lcCount, difficulty string) int {
	for _, c := range list {
		if c.Difficulty == difficulty {
			return c.Count
		}
	}
	return 0
}

// FetchStats returns solve counts, skill tags, languages and the latest
// RecentWindow accepted submissions of username. A null matchedUser is
// NotFound.
func (c *LeetCodeClient) FetchStats(ctx context.Context, username string) (*model.LeetCodeStats, error) {
	var data struct {
		MatchedUser *lcUser    `json:"matchedUser"`
		Recent      []lcRecent `json:"recentAcSubmissionList"`
	}
	vars := map[string]any{"username": username, "limit": RecentWindow}
	gqlErrs, err := graphQL(ctx, c.caller, c.caller.client, c.endpoint, c.header, leetCodeUserQuery, vars, &data)
	if err != nil && !userMissing(gqlErrs) {
		return nil, err
	}
	if data.MatchedUser == nil {
		return nil, apperror.NotFound("leetcode user", username)
	}

	u := data.MatchedUser
	ac := u.SubmitStatsGlobal.AcSubmissionNum
	stats := &model.LeetCodeStats{
		Username:       u.Username,
		AboutMe:        u.Profile.AboutMe,
		Ranking:        u.Profile.Ranking,
		TotalSolved:    countFor(ac, "All"),
		EasySolved:     countFor(ac, "Easy"),
		MediumSolved:   countFor(ac, "Medium"),
		HardSolved:     countFor(ac, "Hard"),
		Languages:      make(map[string]int, len(u.Languages)),
		RecentAccepted: make([]model.RecentSubmission, 0, len(data.Recent)),
	}
	if stats.Username == "" {
		stats.Username = username
	}
	if u.TagProblemCounts != nil {
		stats.SkillTags = *u.TagProblemCounts
	}
	for _, l := range u.Languages {
		stats.Languages[l.LanguageName] = l.ProblemsSolved
	}
	for _, r := range data.Recent {
		sub := model.RecentSubmission{Slug: r.TitleSlug, Title: r.Title}
		if secs, err := strconv.ParseInt(r.Timestamp, 10, 64); err == nil {
			sub.Timestamp = time.Unix(secs, 0).UTC()
		}
		stats.RecentAccepted = append(stats.RecentAccepted, sub)
	}
	return stats, nil
}

// ProfileText returns the "About me" text of username.
func (c *LeetCodeClient) ProfileText(ctx context.Context, username string) (string, error) {
	var data struct {
		MatchedUser *struct {
			Profile struct {
				AboutMe string `json:"aboutMe"`
			} `json:"profile"`
		} `json:"matchedUser"`
	}
	gqlErrs, err := graphQL(ctx, c.caller, c.caller.client, c.endpoint, c.header,
		leetCodeProfileQuery, map[string]any{"username": username}, &data)
	if err != nil && !userMissing(gqlErrs) {
		return "", err
	}
	if data.MatchedUser == nil {
		return "", apperror.NotFound("leetcode user", username)
	}
	return data.MatchedUser.Profile.AboutMe, nil
}

// ProblemPage is one page of the LeetCode problem list.
type ProblemPage struct {
	Total    int
	Problems []model.Problem
}

// ProblemList returns one page of the public problem list as catalog
// entries. Tags are normalized topic slugs.
func (c *LeetCodeClient) ProblemList(ctx context.Context, skip, limit int) (*ProblemPage, error) {
	if limit <= 0 {
		limit = DefaultProblemPageSize
	}
	var data struct {
		List *struct {
			Total     int `json:"total"`
			Questions []struct {
				FrontendID string `json:"questionFrontendId"`
				Title      string `json:"title"`
				TitleSlug  string `json:"titleSlug"`
				Difficulty string `json:"difficulty"`
				PaidOnly   bool   `json:"paidOnly"`
				TopicTags  []struct {
					Slug string `json:"slug"`
				} `json:"topicTags"`
			} `json:"questions"`
		} `json:"problemsetQuestionList"`
	}
	vars := map[string]any{"categorySlug": "", "limit": limit, "skip": skip, "filters": map[string]any{}}
	if _, err := graphQL(ctx, c.caller, c.caller.client, c.endpoint, c.header, leetCodeProblemListQuery, vars, &data); err != nil {
		return nil, err
	}
	if data.List == nil {
		return nil, apperror.Unavailable(c.caller.Provider(), fmt.Errorf("problem list missing from response"))
	}

	page := &ProblemPage{Total: data.List.Total, Problems: make([]model.Problem, 0, len(data.List.Questions))}
	for _, q := range data.List.Questions {
		topic := make([]string, 0, len(q.TopicTags))
		for _, t := range q.TopicTags {
			topic = append(topic, t.Slug)
		}
		p := model.Problem{
			Platform:   model.PlatformLeetCode,
			ExternalID: q.FrontendID,
			Title:      q.Title,
			Slug:       q.TitleSlug,
			URL:        "https://leetcode.com/problems/" + q.TitleSlug + "/",
			Tags:       tags.NormalizeAll(topic),
			IsPaid:     q.PaidOnly,
		}
		if d := model.Difficulty(strings.ToLower(q.Difficulty)); d != "" {
			p.Difficulty = &d
		}
		page.Problems = append(page.Problems, p)
	}
	return page, nil
}

// userMissing reports whether GraphQL errors only say the user does not
// exist, which LeetCode sends together with a null matchedUser.
func userMissing(errs []graphQLError) bool {
	for _, e := range errs {
		if strings.Contains(strings.ToLower(e.Message), "does not exist") {
			return true
		}
	}
	return false
}
