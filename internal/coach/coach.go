// Package coach turns LeetCode stats into a short coaching report: where
// the user stands, how active they have been lately, and which skills to
// work on next. Everything here is a pure function of its input.
package coach

import (
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/sakif/devcompass/internal/model"
)

type Momentum string

const (
	MomentumHigh       Momentum = "high"
	MomentumConsistent Momentum = "consistent"
	MomentumSporadic   Momentum = "sporadic"
	MomentumInactive   Momentum = "inactive"
)

const (
	// ActivityWindow is how far back momentum looks.
	ActivityWindow = 14 * 24 * time.Hour
	activityDays   = 14

	highActivityRatio  = 0.7
	consistentRatio    = 0.5
	easyRatioWarning   = 0.6
	hardRatioAdvanced  = 0.1
	hardRatioLowSpread = 0.05
	earlyStageSolved   = 50
)

// Skill priority limits and thresholds.
const (
	maxStrengths         = 5
	maxGaps              = 3
	maxROI               = 5
	gapThreshold         = 10
	intermediateMastered = 30
)

// Note is a single flagged observation with a suggested action.
type Note struct {
	Type        string `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Action      string `json:"action,omitempty"`
}

type Summary struct {
	LevelSummary        string   `json:"levelSummary"`
	FocusRecommendation string   `json:"focusRecommendation"`
	Momentum            Momentum `json:"momentum"`
	Imbalance           *Note    `json:"imbalance,omitempty"`
}

// Skill is a LeetCode tag count with the tier it was reported under.
type Skill struct {
	model.TagCount
	Tier string `json:"tier"`
}

// Priorities orders the user's skills three ways: the most practiced
// tags, fundamental tags with very few solves, and intermediate tags that
// are not yet mastered.
type Priorities struct {
	Strengths []Skill `json:"strengths"`
	Gaps      []Skill `json:"gaps"`
	ROI       []Skill `json:"roi"`
}

type Report struct {
	Summary Summary    `json:"summary"`
	Skills  Priorities `json:"skills"`
}

// Analyze builds the full report for stats as of now.
func Analyze(stats *model.LeetCodeStats, now time.Time) Report {
	return Report{
		Summary: Summarize(stats, now),
		Skills:  Prioritize(stats.SkillTags),
	}
}

// Summarize classifies the difficulty mix of the solved problems and the
// recent momentum.
func Summarize(stats *model.LeetCodeStats, now time.Time) Summary {
	out := Summary{
		LevelSummary:        "You have a balanced profile.",
		FocusRecommendation: "Maintain your current practice routine.",
		Momentum:            MomentumOf(stats.RecentAccepted, now),
	}

	total := stats.TotalSolved
	if total <= 0 {
		total = 1
	}
	easy := float64(stats.EasySolved) / float64(total)
	medium := float64(stats.MediumSolved) / float64(total)
	hard := float64(stats.HardSolved) / float64(total)

	switch {
	case total < earlyStageSolved:
		out.LevelSummary = "You are in the early stages of your preparation."
		out.FocusRecommendation = "Focus on solving more Easy problems to build syntax muscle memory."
	case easy > easyRatioWarning:
		out.LevelSummary = "You have a good grasp of basics, but might be staying in your comfort zone."
		out.FocusRecommendation = "Prioritize Medium difficulty problems daily."
		out.Imbalance = &Note{
			Type:        "warning",
			Title:       "Difficulty Imbalance",
			Description: fmt.Sprintf("Your solved problems are %d%% Easy.", int(math.Round(easy*100))),
			Action:      "Shift focus to Medium problems to improve interview readiness.",
		}
	case medium > 0.5 && hard < hardRatioLowSpread:
		out.LevelSummary = "You are solid on standard interview questions."
		out.FocusRecommendation = "Start sprinkling in Hard problems to push your limits."
	case hard > hardRatioAdvanced:
		out.LevelSummary = "You have an advanced profile suitable for top-tier tech interviews."
		out.FocusRecommendation = "Focus on contest performance and speed."
	}
	return out
}

// MomentumOf rates activity over the ActivityWindow before now by the
// number of distinct UTC days with an accepted submission.
func MomentumOf(recent []model.RecentSubmission, now time.Time) Momentum {
	if len(recent) == 0 {
		return MomentumInactive
	}
	since := now.Add(-ActivityWindow)
	days := make(map[string]struct{})
	for _, sub := range recent {
		if sub.Timestamp.Before(since) {
			continue
		}
		days[sub.Timestamp.UTC().Format(time.DateOnly)] = struct{}{}
	}

	ratio := float64(len(days)) / activityDays
	switch {
	case ratio > highActivityRatio:
		return MomentumHigh
	case ratio >= consistentRatio:
		return MomentumConsistent
	case len(days) > 0:
		return MomentumSporadic
	}
	return MomentumInactive
}

// Prioritize ranks skills across all three tiers. Ties keep the order the
// platform reported them in.
func Prioritize(skills model.SkillTags) Priorities {
	var all []Skill
	add := func(tier string, counts []model.TagCount) {
		for _, c := range counts {
			all = append(all, Skill{TagCount: c, Tier: tier})
		}
	}
	add("fundamental", skills.Fundamental)
	add("intermediate", skills.Intermediate)
	add("advanced", skills.Advanced)

	strengths := slices.Clone(all)
	slices.SortStableFunc(strengths, func(a, b Skill) int { return b.ProblemsSolved - a.ProblemsSolved })

	var gaps, roi []Skill
	for _, s := range all {
		switch {
		case s.Tier == "fundamental" && s.ProblemsSolved < gapThreshold:
			gaps = append(gaps, s)
		case s.Tier == "intermediate" && s.ProblemsSolved < intermediateMastered:
			roi = append(roi, s)
		}
	}
	ascending := func(a, b Skill) int { return a.ProblemsSolved - b.ProblemsSolved }
	slices.SortStableFunc(gaps, ascending)
	slices.SortStableFunc(roi, ascending)

	return Priorities{
		Strengths: head(strengths, maxStrengths),
		Gaps:      head(gaps, maxGaps),
		ROI:       head(roi, maxROI),
	}
}

// head returns at most n leading elements, never nil.
func head(s []Skill, n int) []Skill {
	if len(s) > n {
		s = s[:n]
	}
	if s == nil {
		return []Skill{}
	}
	return s
}
