package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sakif/devcompass/internal/apperror"
	"github.com/sakif/devcompass/internal/ghinsight"
	"github.com/sakif/devcompass/internal/model"
	"github.com/sakif/devcompass/internal/repository"
)

// GithubReport is the output of one run of the GitHub pipeline.
type GithubReport struct {
	Login       string                       `json:"login"`
	Snapshot    *model.GithubProfileSnapshot `json:"snapshot"`
	Analysis    *model.GithubAnalysis        `json:"analysis"`
	Suggestions []ghinsight.Suggestion       `json:"suggestions"`
	Rating      ghinsight.Rating             `json:"rating"`
}

// GithubService runs the snapshot → analyze → recommend pipeline.
//
// Each stage is memoized in storage: a snapshot younger than
// ghinsight.SnapshotTTL is reused, an analysis is computed once per
// snapshot, and a recommendation is only stored when its (category, axis)
// slot is free.
type GithubService struct {
	repo    repository.GithubRepository
	handles repository.HandleRepository
	stats   *StatsFetcher
	rules   []ghinsight.Rule
	logger  *slog.Logger
	now     func() time.Time
}

func NewGithubService(repo repository.GithubRepository, handles repository.HandleRepository, stats *StatsFetcher, logger *slog.Logger) *GithubService {
	return &GithubService{
		repo:    repo,
		handles: handles,
		stats:   stats,
		rules:   ghinsight.DefaultRules,
		logger:  logger,
		now:     time.Now,
	}
}

// Run executes the whole pipeline for the user's verified GitHub handle.
// token, when set, authenticates a live fetch instead of the server token.
func (s *GithubService) Run(ctx context.Context, userID, token string) (*GithubReport, error) {
	h, err := verifiedHandle(ctx, s.handles, userID, model.PlatformGitHub)
	if err != nil {
		return nil, err
	}

	snap, err := s.Snapshot(ctx, userID, h.Handle, token)
	if err != nil {
		return nil, err
	}
	analysis, err := s.Analyze(ctx, snap)
	if err != nil {
		return nil, err
	}
	suggestions, err := s.Recommend(ctx, analysis)
	if err != nil {
		return nil, err
	}

	return &GithubReport{
		Login:       h.Handle,
		Snapshot:    snap,
		Analysis:    analysis,
		Suggestions: suggestions,
		Rating:      ghinsight.RateSnapshot(snap),
	}, nil
}

// Snapshot returns the user's latest snapshot while it is fresh, otherwise
// fetches the live profile and stores a new one.
func (s *GithubService) Snapshot(ctx context.Context, userID, login, token string) (*model.GithubProfileSnapshot, error) {
	latest, err := s.repo.LatestSnapshot(ctx, userID)
	if err != nil && !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("loading snapshot: %w", err)
	}
	if ghinsight.Fresh(latest, s.now()) {
		return latest, nil
	}

	stats, err := s.stats.Github(ctx, login, token)
	if err != nil {
		return nil, err
	}
	if stats == nil {
		return nil, apperror.NotFound("github user", login)
	}

	snap := ghinsight.BuildSnapshot(userID, stats)
	if err := s.repo.CreateSnapshot(ctx, snap); err != nil {
		return nil, fmt.Errorf("storing snapshot: %w", err)
	}
	s.logger.Info("github snapshot created",
		slog.String("user_id", userID),
		slog.String("snapshot_id", snap.ID),
		slog.Int("repos", snap.RepoCount),
	)
	return snap, nil
}

// Analyze returns the analysis stored for snap, deriving and storing it on
// first use.
func (s *GithubService) Analyze(ctx context.Context, snap *model.GithubProfileSnapshot) (*model.GithubAnalysis, error) {
	existing, err := s.repo.AnalysisForSnapshot(ctx, snap.UserID, snap.ID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("loading analysis: %w", err)
	}

	stored, err := s.repo.CreateAnalysis(ctx, ghinsight.Analyze(snap))
	if err != nil {
		return nil, fmt.Errorf("storing analysis: %w", err)
	}
	return stored, nil
}

// Recommend evaluates the rule set against a and stores the suggestions
// whose slot is free. It returns every triggered suggestion, stored or not.
func (s *GithubService) Recommend(ctx context.Context, a *model.GithubAnalysis) ([]ghinsight.Suggestion, error) {
	suggestions := ghinsight.Evaluate(s.rules, a)

	active, err := s.repo.ActiveRecommendations(ctx, a.UserID)
	if err != nil {
		return nil, fmt.Errorf("loading active recommendations: %w", err)
	}
	taken := make(map[string]struct{}, len(active))
	for _, r := range active {
		taken[ghinsight.Suggestion{Category: r.Category, AxisTargeted: r.AxisTargeted}.Key()] = struct{}{}
	}

	for _, sg := range suggestions {
		if _, ok := taken[sg.Key()]; ok {
			continue
		}
		created, err := s.repo.CreateRecommendation(ctx, &model.GithubRecommendation{
			UserID:       a.UserID,
			AnalysisID:   a.ID,
			Category:     sg.Category,
			AxisTargeted: sg.AxisTargeted,
			Title:        sg.Title,
			Description:  sg.Description,
			Priority:     sg.Priority,
		})
		if err != nil {
			return nil, fmt.Errorf("storing recommendation: %w", err)
		}
		if created {
			taken[sg.Key()] = struct{}{}
		}
	}
	return suggestions, nil
}

// Active lists the user's open recommendations.
func (s *GithubService) Active(ctx context.Context, userID string) ([]model.GithubRecommendation, error) {
	return s.repo.ActiveRecommendations(ctx, userID)
}

// Dismiss closes an active recommendation the user does not want.
func (s *GithubService) Dismiss(ctx context.Context, userID, id string) error {
	return s.repo.CloseRecommendation(ctx, userID, id, repository.CloseDismissed, s.now())
}

// Complete closes an active recommendation the user acted on.
func (s *GithubService) Complete(ctx context.Context, userID, id string) error {
	return s.repo.CloseRecommendation(ctx, userID, id, repository.CloseCompleted, s.now())
}
