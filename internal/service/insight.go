package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sakif/devcompass/internal/apperror"
	"github.com/sakif/devcompass/internal/cache"
	"github.com/sakif/devcompass/internal/metrics"
	"github.com/sakif/devcompass/internal/model"
	"github.com/sakif/devcompass/internal/repository"
)

// goalNotSpecified is sent when the user never set a career goal.
const goalNotSpecified = "Not specified"

// UserContext tells the insight generator who it is coaching.
type UserContext struct {
	Username    string `json:"username"`
	CurrentGoal string `json:"current_goal"`
}

// InsightPayload is the stats document sent for generation. Platforms
// without a verified handle or whose fetch failed are null.
type InsightPayload struct {
	UserContext UserContext         `json:"user_context"`
	DSAStats    map[string]*Section `json:"dsa_stats"`
	CPStats     map[string]*Section `json:"cp_stats"`
	DevProfile  map[string]*Section `json:"dev_profile"`
}

// NewInsightPayload groups the dashboard sections by kind of practice.
// The username is the GitHub login when one is verified, else the user id.
func NewInsightPayload(d *Dashboard, goal string) *InsightPayload {
	section := func(p model.Platform) *Section {
		sec, ok := d.Sections[p]
		if !ok {
			return nil
		}
		return &sec
	}
	if goal == "" {
		goal = goalNotSpecified
	}
	username := d.UserID
	if gh := section(model.PlatformGitHub); gh != nil {
		username = gh.Handle
	}
	return &InsightPayload{
		UserContext: UserContext{Username: username, CurrentGoal: goal},
		DSAStats:    map[string]*Section{"leetcode": section(model.PlatformLeetCode)},
		CPStats: map[string]*Section{
			"codeforces": section(model.PlatformCodeforces),
			"atcoder":    section(model.PlatformAtCoder),
		},
		DevProfile: map[string]*Section{"github": section(model.PlatformGitHub)},
	}
}

// InsightService produces AI coaching text from the dashboard, at most
// once per cooldown window per user.
type InsightService struct {
	repo      repository.InsightRepository
	handles   repository.HandleRepository
	profiles  repository.ProfileRepository
	dashboard *DashboardService
	stats     *StatsFetcher
	generator InsightGenerator
	cooldown  *cache.Cooldown
	logger    *slog.Logger
	now       func() time.Time
}

func NewInsightService(
	repo repository.InsightRepository,
	handles repository.HandleRepository,
	profiles repository.ProfileRepository,
	dashboard *DashboardService,
	stats *StatsFetcher,
	generator InsightGenerator,
	cooldown *cache.Cooldown,
	logger *slog.Logger,
) *InsightService {
	return &InsightService{
		repo:      repo,
		handles:   handles,
		profiles:  profiles,
		dashboard: dashboard,
		stats:     stats,
		generator: generator,
		cooldown:  cooldown,
		logger:    logger,
		now:       time.Now,
	}
}

// Refresh generates and stores a new insight. A call inside the cooldown
// window is rejected with apperror.ErrCooldown and the remaining wait.
// force drops the cached stats of the user's verified handles first, so the
// insight reflects live data.
//
// A failed generation releases the gate so the user can retry at once.
func (s *InsightService) Refresh(ctx context.Context, userID string, force bool) (*model.Insight, error) {
	ok, remaining, err := s.cooldown.Acquire(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("checking cooldown: %w", err)
	}
	if !ok {
		metrics.CooldownRejections.Inc()
		return nil, apperror.Cooldown(remaining)
	}

	in, err := s.generate(ctx, userID, force)
	if err != nil {
		if relErr := s.cooldown.Release(ctx, userID); relErr != nil {
			s.logger.Warn("failed to release cooldown",
				slog.String("user_id", userID), slog.String("error", relErr.Error()))
		}
		return nil, err
	}
	return in, nil
}

func (s *InsightService) generate(ctx context.Context, userID string, force bool) (*model.Insight, error) {
	if force {
		s.invalidate(ctx, userID)
	}

	d, err := s.dashboard.Build(ctx, userID)
	if err != nil {
		return nil, err
	}
	text, err := s.generator.Generate(ctx, userID, NewInsightPayload(d, s.goal(ctx, userID)))
	if err != nil {
		s.logger.Error("insight generation failed",
			slog.String("user_id", userID), slog.String("error", err.Error()))
		return nil, err
	}

	in := &model.Insight{UserID: userID, Content: text, GeneratedAt: s.now().UTC()}
	if err := s.repo.UpsertInsight(ctx, in); err != nil {
		return nil, fmt.Errorf("storing insight: %w", err)
	}
	s.logger.Info("insight refreshed", slog.String("user_id", userID))
	return in, nil
}

// goal returns the user's career goal, or "" when none is stored or it
// cannot be read.
func (s *InsightService) goal(ctx context.Context, userID string) string {
	p, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		if !errors.Is(err, apperror.ErrNotFound) {
			s.logger.Warn("career goal unavailable",
				slog.String("user_id", userID), slog.String("error", err.Error()))
		}
		return ""
	}
	return p.Goal
}

func (s *InsightService) invalidate(ctx context.Context, userID string) {
	handles, err := s.handles.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Warn("skipping stats invalidation",
			slog.String("user_id", userID), slog.String("error", err.Error()))
		return
	}
	for _, h := range handles {
		if !h.Verified() {
			continue
		}
		if err := s.stats.Invalidate(ctx, h.Platform, h.Handle); err != nil {
			s.logger.Warn("stats invalidation failed",
				slog.String("platform", string(h.Platform)), slog.String("error", err.Error()))
		}
	}
}

// Latest returns the stored insight of the user.
func (s *InsightService) Latest(ctx context.Context, userID string) (*model.Insight, error) {
	return s.repo.LatestInsight(ctx, userID)
}
