package scoring

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/devcompass/internal/model"
)

func intPtr(n int) *int { return &n }

func diffPtr(d model.Difficulty) *model.Difficulty { return &d }

func problem(id string, rating *int, tags ...string) model.Problem {
	return model.Problem{ExternalID: id, Rating: rating, Tags: tags}
}

// =========================================================================
// SCORE TESTS
// =========================================================================

func TestScore_Example(t *testing.T) {
	problems := []model.Problem{
		problem("2", intPtr(1300), "a"),
		problem("1", intPtr(1500), "a", "b"),
	}

	got := Score(problems, []string{"a", "b"}, 1400, 3)

	require.Len(t, got, 2)
	assert.Equal(t, "1", got[0].ExternalID)
	assert.InDelta(t, 5.0, got[0].Score, 1e-9)
	assert.Equal(t, []string{"a", "b"}, got[0].MatchedTags)
	assert.Equal(t, "2", got[1].ExternalID)
	assert.InDelta(t, 2.0, got[1].Score, 1e-9)
}

func TestScore_MissingRatingPenalty(t *testing.T) {
	got := Score([]model.Problem{problem("x", nil, "a")}, []string{"a"}, 1400, 1)
	require.Len(t, got, 1)
	assert.InDelta(t, 0.0, got[0].Score, 1e-9) // 3*1 - 300/100
}

func TestScore_DefaultLimit(t *testing.T) {
	var problems []model.Problem
	for i := 0; i < 10; i++ {
		problems = append(problems, problem(string(rune('a'+i)), intPtr(1400)))
	}
	assert.Len(t, Score(problems, nil, 1400, 0), DefaultLimit)
}

func TestScore_StableTies(t *testing.T) {
	problems := []model.Problem{
		problem("first", intPtr(1400), "x"),
		problem("second", intPtr(1400), "x"),
		problem("third", intPtr(1400), "x"),
	}
	got := Score(problems, []string{"x"}, 1400, 3)
	assert.Equal(t, "first", got[0].ExternalID)
	assert.Equal(t, "second", got[1].ExternalID)
	assert.Equal(t, "third", got[2].ExternalID)
}

func TestScore_Deterministic(t *testing.T) {
	problems := []model.Problem{
		problem("1", intPtr(1500), "dp"),
		problem("2", intPtr(1450), "greedy", "dp"),
		problem("3", nil, "math"),
		problem("4", intPtr(1350), "graphs"),
	}
	weak := []string{"dp", "graphs"}
	first := Score(problems, weak, 1400, 3)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, Score(problems, weak, 1400, 3))
	}
}

func TestScore_EmptyInput(t *testing.T) {
	got := Score(nil, []string{"a"}, 1000, 3)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

// =========================================================================
// TARGET RATING TESTS
// =========================================================================

func TestTargetRating(t *testing.T) {
	tests := []struct {
		rating, want int
	}{
		{800, 900},
		{1199, 1299},
		{1200, 1350},
		{1599, 1749},
		{1600, 1800},
		{1999, 2199},
		{2000, 2250},
		{3000, 3250},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TargetRating(tt.rating), "rating %d", tt.rating)
	}
}

func TestRatingBand(t *testing.T) {
	lo, hi := RatingBand(1500)
	assert.Equal(t, 1400, lo)
	assert.Equal(t, 1600, hi)
}

// =========================================================================
// LEETCODE TESTS
// =========================================================================

func TestLeetCodeScore(t *testing.T) {
	weak := []string{"array", "dp"}
	assert.Equal(t, 12, LeetCodeScore([]string{"array", "dp"}, weak, diffPtr(model.DifficultyHard)))
	assert.Equal(t, 6, LeetCodeScore([]string{"array", "math"}, weak, diffPtr(model.DifficultyMedium)))
	assert.Equal(t, 5, LeetCodeScore([]string{"dp"}, weak, diffPtr(model.DifficultyEasy)))
	assert.Equal(t, 0, LeetCodeScore([]string{"math"}, weak, nil))
}

func TestSample(t *testing.T) {
	pool := []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	rng := rand.New(rand.NewPCG(1, 2))

	got := Sample(pool, 3, rng)

	require.Len(t, got, 3)
	seen := map[int]bool{}
	for _, v := range got {
		assert.Contains(t, pool, v)
		assert.False(t, seen[v], "duplicate %d", v)
		seen[v] = true
	}
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, pool, "pool must not be modified")
}

func TestSample_SmallPool(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	assert.ElementsMatch(t, []string{"a", "b"}, Sample([]string{"a", "b"}, 3, rng))
	assert.Empty(t, Sample([]string{"a"}, 0, rng))
	assert.Empty(t, Sample([]string{}, 3, rng))
}

func TestSample_SameSeedSameResult(t *testing.T) {
	pool := []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20}
	a := Sample(pool, 3, rand.New(rand.NewPCG(7, 7)))
	b := Sample(pool, 3, rand.New(rand.NewPCG(7, 7)))
	assert.Equal(t, a, b)
}

func TestTargetDifficulties(t *testing.T) {
	assert.Equal(t, []model.Difficulty{model.DifficultyEasy, model.DifficultyMedium}, TargetDifficulties(0))
	assert.Equal(t, []model.Difficulty{model.DifficultyMedium, model.DifficultyHard}, TargetDifficulties(80))
	assert.Equal(t, []model.Difficulty{model.DifficultyHard}, TargetDifficulties(200))
}
