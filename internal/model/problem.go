package model

import "time"

// Difficulty is the coarse difficulty bucket of a catalog problem.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Problem is one entry of the problem catalog.
//
// Identity is the (Platform, ExternalID) pair. Tags are always normalized
// and never nil once loaded from storage. Rating is set for Codeforces only;
// the LeetCode-only flags are false elsewhere.
type Problem struct {
	ID         string      `json:"id"`
	Platform   Platform    `json:"platform"`
	ExternalID string      `json:"externalId"`
	Title      string      `json:"title"`
	Slug       string      `json:"slug"`
	URL        string      `json:"url"`
	Difficulty *Difficulty `json:"difficulty,omitempty"`
	Rating     *int        `json:"rating,omitempty"`
	Tags       []string    `json:"tags"`
	IsPaid     bool        `json:"isPaid"`
	IsNeetcode bool        `json:"isNeetcode"`
	IsStriver  bool        `json:"isStriver"`
	IsActive   bool        `json:"isActive"`
	CreatedAt  time.Time   `json:"createdAt"`
	UpdatedAt  time.Time   `json:"updatedAt"`
}

// ScoredProblem is a Problem with its recommendation score and the weak
// tags that contributed to it.
type ScoredProblem struct {
	Problem
	Score       float64  `json:"score"`
	MatchedTags []string `json:"matchedTags"`
}

// DifficultyFromRating buckets a Codeforces rating.
func DifficultyFromRating(rating int) Difficulty {
	switch {
	case rating < 1200:
		return DifficultyEasy
	case rating < 1800:
		return DifficultyMedium
	default:
		return DifficultyHard
	}
}
