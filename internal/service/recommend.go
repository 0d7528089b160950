package service

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/sakif/devcompass/internal/apperror"
	"github.com/sakif/devcompass/internal/metrics"
	"github.com/sakif/devcompass/internal/model"
	"github.com/sakif/devcompass/internal/repository"
	"github.com/sakif/devcompass/internal/scoring"
	"github.com/sakif/devcompass/internal/tags"
	"github.com/sakif/devcompass/internal/weakness"
)

// UnratedRating stands in for the rating of a Codeforces user with no
// rated contests.
const UnratedRating = 800

type CodeforcesRecommendations struct {
	Handle       string                `json:"handle"`
	Rating       *int                  `json:"rating,omitempty"`
	TargetRating int                   `json:"targetRating"`
	Weaknesses   []weakness.Weakness   `json:"weaknesses"`
	Problems     []model.ScoredProblem `json:"problems"`
}

type LeetCodeRecommendations struct {
	Username           string                `json:"username"`
	TotalSolved        int                   `json:"totalSolved"`
	Weaknesses         []weakness.Weakness   `json:"weaknesses"`
	WeakTags           []string              `json:"weakTags"`
	TargetDifficulties []model.Difficulty    `json:"targetDifficulties"`
	Problems           []model.ScoredProblem `json:"problems"`
	Sync               *SyncResult           `json:"sync"`
}

// RecommendationService builds per-platform problem recommendations for
// verified handles.
type RecommendationService struct {
	handles  repository.HandleRepository
	problems repository.ProblemRepository
	solved   repository.SolvedRepository
	stats    *StatsFetcher
	ledger   *LedgerService
	logger   *slog.Logger

	mu  sync.Mutex // guards rng
	rng *rand.Rand
}

// NewRecommendationService builds the service. rng drives the LeetCode
// sample; nil seeds one from the clock.
func NewRecommendationService(
	handles repository.HandleRepository,
	problems repository.ProblemRepository,
	solved repository.SolvedRepository,
	stats *StatsFetcher,
	ledger *LedgerService,
	rng *rand.Rand,
	logger *slog.Logger,
) *RecommendationService {
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>1|1))
	}
	return &RecommendationService{
		handles:  handles,
		problems: problems,
		solved:   solved,
		stats:    stats,
		ledger:   ledger,
		rng:      rng,
		logger:   logger,
	}
}

// Codeforces recommends unattempted problems just above the user's rating
// that exercise their weakest tags.
func (s *RecommendationService) Codeforces(ctx context.Context, userID string) (*CodeforcesRecommendations, error) {
	h, err := verifiedHandle(ctx, s.handles, userID, model.PlatformCodeforces)
	if err != nil {
		return nil, err
	}
	stats, err := s.stats.Codeforces(ctx, h.Handle)
	if err != nil {
		return nil, err
	}
	if stats == nil {
		return nil, apperror.NotFound("codeforces stats", h.Handle)
	}

	ws := weakness.Codeforces(stats.Submissions)
	weakTags := weakness.Tags(ws)

	rating := UnratedRating
	if stats.Rating != nil {
		rating = *stats.Rating
	}
	target := scoring.TargetRating(rating)

	attempted := make([]string, 0, len(stats.Submissions))
	seen := make(map[string]struct{}, len(stats.Submissions))
	for _, sub := range stats.Submissions {
		key := sub.ProblemKey()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		attempted = append(attempted, key)
	}

	lo, hi := scoring.RatingBand(target)
	candidates, err := s.problems.ByRatingBand(ctx, repository.RatingBandQuery{
		Platform:          model.PlatformCodeforces,
		MinRating:         lo,
		MaxRating:         hi,
		ExcludeIDs:        attempted,
		RequiredTagsAnyOf: weakTags,
		Limit:             repository.DefaultBandLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("querying codeforces candidates: %w", err)
	}

	top := scoring.Score(candidates, weakTags, target, scoring.DefaultLimit)
	metrics.RecommendationsGenerated.WithLabelValues(string(model.PlatformCodeforces)).Add(float64(len(top)))

	return &CodeforcesRecommendations{
		Handle:       h.Handle,
		Rating:       stats.Rating,
		TargetRating: target,
		Weaknesses:   ws,
		Problems:     top,
	}, nil
}

// LeetCode syncs the solved ledger from the recent window, then samples
// DefaultLimit problems from the best-scored unsolved candidates.
func (s *RecommendationService) LeetCode(ctx context.Context, userID string) (*LeetCodeRecommendations, error) {
	h, err := verifiedHandle(ctx, s.handles, userID, model.PlatformLeetCode)
	if err != nil {
		return nil, err
	}
	stats, err := s.stats.LeetCode(ctx, h.Handle)
	if err != nil {
		return nil, err
	}
	if stats == nil {
		return nil, apperror.NotFound("leetcode stats", h.Handle)
	}

	ws := weakness.LeetCode(stats.SkillTags)
	weakTags := tags.NormalizeAll(weakness.Tags(ws))

	syncResult, err := s.ledger.Reconcile(ctx, userID, stats.RecentAccepted)
	if err != nil {
		return nil, err
	}
	solved, err := s.solved.ListSlugs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("reading solved ledger: %w", err)
	}

	pool, err := s.problems.ScoredCandidates(ctx, repository.CandidateQuery{
		Platform:     model.PlatformLeetCode,
		ExcludeSlugs: solved,
		WeakTags:     weakTags,
		Limit:        scoring.CandidatePoolSize,
	})
	if err != nil {
		return nil, fmt.Errorf("querying leetcode candidates: %w", err)
	}

	s.mu.Lock()
	picks := scoring.Sample(pool, scoring.DefaultLimit, s.rng)
	s.mu.Unlock()
	metrics.RecommendationsGenerated.WithLabelValues(string(model.PlatformLeetCode)).Add(float64(len(picks)))

	return &LeetCodeRecommendations{
		Username:           h.Handle,
		TotalSolved:        stats.TotalSolved,
		Weaknesses:         ws,
		WeakTags:           weakTags,
		TargetDifficulties: scoring.TargetDifficulties(stats.TotalSolved),
		Problems:           picks,
		Sync:               syncResult,
	}, nil
}
