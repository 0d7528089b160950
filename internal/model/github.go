package model

import "time"

// RepoMeta holds the per-repository facts kept in a snapshot.
type RepoMeta struct {
	Name            string    `json:"name"`
	Stars           int       `json:"stars"`
	Commits         int       `json:"commits"`
	PrimaryLanguage string    `json:"primaryLanguage,omitempty"`
	IsFork          bool      `json:"isFork"`
	CreatedAt       time.Time `json:"createdAt"`
	PushedAt        time.Time `json:"pushedAt"`
}

// ContributionStats summarizes the contribution calendar of a profile.
type ContributionStats struct {
	TotalContributions int `json:"totalContributions"`
	PullRequests       int `json:"pullRequests"`
	Reviews            int `json:"reviews"`
	Issues             int `json:"issues"`
	ActiveDays         int `json:"activeDays"`
}

// GithubProfileSnapshot is one immutable ingestion of a GitHub profile.
// Only non-archived repositories are kept in ReposMetadata.
type GithubProfileSnapshot struct {
	ID                string            `json:"id"`
	UserID            string            `json:"userId"`
	Login             string            `json:"login"`
	RepoCount         int               `json:"repoCount"`
	TotalCommits      int               `json:"totalCommits"`
	TotalStars        int               `json:"totalStars"`
	Languages         map[string]int64  `json:"languages"`
	ReposMetadata     []RepoMeta        `json:"reposMetadata"`
	ContributionStats ContributionStats `json:"contributionStats"`
	CreatedAt         time.Time         `json:"createdAt"`
}

// Persona is the dominant working style derived from a snapshot.
type Persona string

const (
	PersonaExplorer   Persona = "Explorer"
	PersonaBuilder    Persona = "Builder"
	PersonaMaintainer Persona = "Maintainer"
)

// Maturity is the overall experience level derived from a snapshot.
type Maturity string

const (
	MaturityEarly       Maturity = "Early"
	MaturityGrowing     Maturity = "Growing"
	MaturityEstablished Maturity = "Established"
)

// Level grades a single analysis axis.
type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

// Axis names used both in Axes and as GithubRecommendation.AxisTargeted.
const (
	AxisConsistency   = "consistency"
	AxisCollaboration = "collaboration"
	AxisProjectDepth  = "projectDepth"
)

type Axes struct {
	Consistency   Level `json:"consistency"`
	Collaboration Level `json:"collaboration"`
	ProjectDepth  Level `json:"projectDepth"`
}

// GithubAnalysis is derived once per snapshot and never recomputed.
type GithubAnalysis struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	SnapshotID string    `json:"snapshotId"`
	Persona    Persona   `json:"persona"`
	Maturity   Maturity  `json:"maturity"`
	Axes       Axes      `json:"axes"`
	FocusAreas []string  `json:"focusAreas"`
	Strengths  []string  `json:"strengths"`
	Gaps       []string  `json:"gaps"`
	CreatedAt  time.Time `json:"createdAt"`
}

// GithubRecommendation is a persisted rule-engine suggestion. It is active
// while both DismissedAt and CompletedAt are nil.
type GithubRecommendation struct {
	ID           string     `json:"id"`
	UserID       string     `json:"userId"`
	AnalysisID   string     `json:"analysisId"`
	Category     string     `json:"category"`
	AxisTargeted string     `json:"axisTargeted"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Priority     int        `json:"priority"`
	DismissedAt  *time.Time `json:"dismissedAt,omitempty"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

func (r *GithubRecommendation) Active() bool {
	return r.DismissedAt == nil && r.CompletedAt == nil
}
