// Package scoring ranks candidate problems against a user's weak tags.
//
// Two strategies exist. Codeforces candidates are ranked here in Go by tag
// overlap and rating distance. LeetCode candidates are pre-scored by the
// repository query (see LeetCodeScore for the formula) and this package only
// draws the final random sample from that pool.
package scoring

import (
	"math"
	"math/rand/v2"
	"sort"

	"github.com/sakif/devcompass/internal/model"
)

const (
	// DefaultLimit is the number of recommendations returned per platform.
	DefaultLimit = 3

	// BandHalfWidth is the rating distance around the target that the
	// Codeforces candidate query accepts.
	BandHalfWidth = 100

	// CandidatePoolSize bounds the LeetCode pre-scored pool.
	CandidatePoolSize = 20

	tagWeight = 3.0

	// missingRatingGap is the rating distance assumed for unrated problems.
	missingRatingGap = 300.0
)

// Score ranks problems by 3·(weak tags matched) − |rating − target|/100 and
// returns the first limit entries (DefaultLimit when limit <= 0). The sort
// is stable, so equal scores keep input order.
func Score(problems []model.Problem, weakTags []string, target, limit int) []model.ScoredProblem {
	if limit <= 0 {
		limit = DefaultLimit
	}

	weak := toSet(weakTags)
	scored := make([]model.ScoredProblem, 0, len(problems))
	for _, p := range problems {
		matched := matchTags(p.Tags, weak)
		gap := missingRatingGap
		if p.Rating != nil {
			gap = math.Abs(float64(*p.Rating - target))
		}
		scored = append(scored, model.ScoredProblem{
			Problem:     p,
			Score:       tagWeight*float64(len(matched)) - gap/100,
			MatchedTags: matched,
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored
}

// TargetRating is the rating a user should practice at: slightly above the
// current rating, with a larger step the higher the rating is.
func TargetRating(rating int) int {
	switch {
	case rating < 1200:
		return rating + 100
	case rating < 1600:
		return rating + 150
	case rating < 2000:
		return rating + 200
	default:
		return rating + 250
	}
}

// RatingBand returns the inclusive candidate rating range around target.
func RatingBand(target int) (lo, hi int) {
	return target - BandHalfWidth, target + BandHalfWidth
}

// LeetCodeScore mirrors the repository's candidate score:
// 5·(weak tags matched) + difficulty bonus (hard 2, medium 1, easy 0).
func LeetCodeScore(problemTags, weakTags []string, difficulty *model.Difficulty) int {
	score := 5 * len(matchTags(problemTags, toSet(weakTags)))
	if difficulty != nil {
		switch *difficulty {
		case model.DifficultyHard:
			score += 2
		case model.DifficultyMedium:
			score++
		}
	}
	return score
}

// MatchedTags returns the problem tags that appear in weakTags, in problem
// tag order.
func MatchedTags(problemTags, weakTags []string) []string {
	return matchTags(problemTags, toSet(weakTags))
}

// Sample draws up to n elements of pool uniformly at random without
// replacement. pool is not modified.
func Sample[T any](pool []T, n int, rng *rand.Rand) []T {
	if n <= 0 {
		return []T{}
	}
	out := make([]T, len(pool))
	copy(out, pool)
	if n >= len(out) {
		return out
	}
	// Partial Fisher-Yates: only the first n slots need to be settled.
	for i := 0; i < n; i++ {
		j := i + rng.IntN(len(out)-i)
		out[i], out[j] = out[j], out[i]
	}
	return out[:n]
}

// TargetDifficulties suggests which LeetCode difficulties to practice given
// the total number of solved problems.
func TargetDifficulties(totalSolved int) []model.Difficulty {
	switch {
	case totalSolved < 80:
		return []model.Difficulty{model.DifficultyEasy, model.DifficultyMedium}
	case totalSolved < 200:
		return []model.Difficulty{model.DifficultyMedium, model.DifficultyHard}
	default:
		return []model.Difficulty{model.DifficultyHard}
	}
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, it := range items {
		set[it] = struct{}{}
	}
	return set
}

func matchTags(problemTags []string, weak map[string]struct{}) []string {
	matched := make([]string, 0)
	for _, t := range problemTags {
		if _, ok := weak[t]; ok {
			matched = append(matched, t)
		}
	}
	return matched
}
