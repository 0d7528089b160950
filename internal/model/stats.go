package model

import (
	"strconv"
	"time"
)

// Stats is implemented by every typed per-platform stats payload.
type Stats interface {
	Platform() Platform
}

// CodeforcesSubmission is one entry of a user's submission history.
type CodeforcesSubmission struct {
	ContestID    int      `json:"contestId"`
	Index        string   `json:"index"`
	ProblemName  string   `json:"problemName"`
	Rating       *int     `json:"rating,omitempty"`
	Tags         []string `json:"tags"`
	Verdict      string   `json:"verdict"`
	CreationTime int64    `json:"creationTime"`
}

// VerdictOK is the Codeforces verdict of an accepted submission.
const VerdictOK = "OK"

// ProblemKey is the catalog external id of the submitted problem.
func (s CodeforcesSubmission) ProblemKey() string {
	return CodeforcesProblemKey(s.ContestID, s.Index)
}

// CodeforcesProblemKey builds the "contestId-index" external id.
func CodeforcesProblemKey(contestID int, index string) string {
	return strconv.Itoa(contestID) + "-" + index
}

type CodeforcesStats struct {
	Handle       string                 `json:"handle"`
	FirstName    string                 `json:"firstName,omitempty"`
	LastName     string                 `json:"lastName,omitempty"`
	Organization string                 `json:"organization,omitempty"`
	Rating       *int                   `json:"rating,omitempty"`
	MaxRating    *int                   `json:"maxRating,omitempty"`
	Rank         string                 `json:"rank,omitempty"`
	Contests     int                    `json:"contests"`
	Solved       int                    `json:"solved"`
	Submissions  []CodeforcesSubmission `json:"submissions"`
}

func (*CodeforcesStats) Platform() Platform { return PlatformCodeforces }

// TagCount is a LeetCode skill tag with the number of problems solved in it.
type TagCount struct {
	TagName        string `json:"tagName"`
	TagSlug        string `json:"tagSlug"`
	ProblemsSolved int    `json:"problemsSolved"`
}

// SkillTags groups LeetCode tag counts by tier.
type SkillTags struct {
	Fundamental  []TagCount `json:"fundamental"`
	Intermediate []TagCount `json:"intermediate"`
	Advanced     []TagCount `json:"advanced"`
}

// RecentSubmission is one accepted submission from the recent window.
type RecentSubmission struct {
	Slug      string    `json:"slug"`
	Title     string    `json:"title"`
	Timestamp time.Time `json:"timestamp"`
}

type LeetCodeStats struct {
	Username       string             `json:"username"`
	AboutMe        string             `json:"aboutMe,omitempty"`
	Ranking        int                `json:"ranking"`
	TotalSolved    int                `json:"totalSolved"`
	EasySolved     int                `json:"easySolved"`
	MediumSolved   int                `json:"mediumSolved"`
	HardSolved     int                `json:"hardSolved"`
	SkillTags      SkillTags          `json:"skillTags"`
	Languages      map[string]int     `json:"languages,omitempty"`
	RecentAccepted []RecentSubmission `json:"recentAccepted"`
}

func (*LeetCodeStats) Platform() Platform { return PlatformLeetCode }

// LanguageEdge is one language of a repository with its byte size.
type LanguageEdge struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// GithubRepo is the typed form of one repository from the GitHub API.
type GithubRepo struct {
	Name       string         `json:"name"`
	Stars      int            `json:"stars"`
	IsArchived bool           `json:"isArchived"`
	IsFork     bool           `json:"isFork"`
	Commits    int            `json:"commits"`
	Languages  []LanguageEdge `json:"languages"`
	CreatedAt  time.Time      `json:"createdAt"`
	PushedAt   time.Time      `json:"pushedAt"`
}

// ContributionDay is one day of the contribution calendar.
type ContributionDay struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type GithubStats struct {
	Login              string            `json:"login"`
	Bio                string            `json:"bio,omitempty"`
	Followers          int               `json:"followers"`
	Repos              []GithubRepo      `json:"repos"`
	TotalCommits       int               `json:"totalCommits"`
	TotalContributions int               `json:"totalContributions"`
	PullRequests       int               `json:"pullRequests"`
	Reviews            int               `json:"reviews"`
	Issues             int               `json:"issues"`
	Calendar           []ContributionDay `json:"calendar"`
}

func (*GithubStats) Platform() Platform { return PlatformGitHub }

// TotalStars sums stars over all repositories.
func (s *GithubStats) TotalStars() int {
	total := 0
	for _, r := range s.Repos {
		total += r.Stars
	}
	return total
}

type AtCoderStats struct {
	Handle          string `json:"handle"`
	Rating          int    `json:"rating"`
	HighestRating   int    `json:"highestRating"`
	Contests        int    `json:"contests"`
	AcceptedCount   int    `json:"acceptedCount"`
	SubmissionCount int    `json:"submissionCount"`
}

func (*AtCoderStats) Platform() Platform { return PlatformAtCoder }
