package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sakif/devcompass/internal/coach"
	"github.com/sakif/devcompass/internal/model"
	"github.com/sakif/devcompass/internal/repository"
)

// Section is one platform's part of the dashboard. Recommendations is
// nil when they could not be built; the stats are still shown. Coach is
// set for LeetCode only.
type Section struct {
	Platform        model.Platform `json:"platform"`
	Handle          string         `json:"handle"`
	Stats           model.Stats    `json:"stats"`
	Coach           *coach.Report  `json:"coach,omitempty"`
	Recommendations any            `json:"recommendations,omitempty"`
}

type Dashboard struct {
	UserID      string                     `json:"userId"`
	GeneratedAt time.Time                  `json:"generatedAt"`
	Sections    map[model.Platform]Section `json:"sections"`
}

// DashboardService aggregates every verified platform of a user.
type DashboardService struct {
	handles         repository.HandleRepository
	stats           *StatsFetcher
	recommendations *RecommendationService
	github          *GithubService
	logger          *slog.Logger
	now             func() time.Time
}

func NewDashboardService(
	handles repository.HandleRepository,
	stats *StatsFetcher,
	recommendations *RecommendationService,
	github *GithubService,
	logger *slog.Logger,
) *DashboardService {
	return &DashboardService{
		handles:         handles,
		stats:           stats,
		recommendations: recommendations,
		github:          github,
		logger:          logger,
		now:             time.Now,
	}
}

// Build fetches all verified platforms concurrently. A platform that fails
// is logged and left out; it never fails the dashboard. Only the handle
// lookup itself can return an error.
func (s *DashboardService) Build(ctx context.Context, userID string) (*Dashboard, error) {
	handles, err := s.handles.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing handles: %w", err)
	}

	d := &Dashboard{
		UserID:      userID,
		GeneratedAt: s.now().UTC(),
		Sections:    make(map[model.Platform]Section, len(handles)),
	}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, h := range handles {
		if !h.Verified() {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			section, err := s.section(ctx, userID, h)
			if err != nil {
				s.logger.Warn("dashboard section omitted",
					slog.String("user_id", userID),
					slog.String("platform", string(h.Platform)),
					slog.String("error", err.Error()),
				)
				return
			}
			mu.Lock()
			d.Sections[h.Platform] = *section
			mu.Unlock()
		}()
	}
	wg.Wait()

	return d, nil
}

func (s *DashboardService) section(ctx context.Context, userID string, h model.PlatformHandle) (*Section, error) {
	stats, err := s.stats.Fetch(ctx, h.Platform, h.Handle)
	if err != nil {
		return nil, err
	}
	if stats == nil {
		return nil, fmt.Errorf("no %s stats for %q", h.Platform, h.Handle)
	}
	section := &Section{Platform: h.Platform, Handle: h.Handle, Stats: stats}
	if lc, ok := stats.(*model.LeetCodeStats); ok {
		report := coach.Analyze(lc, s.now())
		section.Coach = &report
	}

	var recs any
	switch h.Platform {
	case model.PlatformCodeforces:
		recs, err = s.recommendations.Codeforces(ctx, userID)
	case model.PlatformLeetCode:
		recs, err = s.recommendations.LeetCode(ctx, userID)
	case model.PlatformGitHub:
		recs, err = s.github.Run(ctx, userID, "")
	}
	if err != nil {
		s.logger.Warn("recommendations unavailable",
			slog.String("user_id", userID),
			slog.String("platform", string(h.Platform)),
			slog.String("error", err.Error()),
		)
		return section, nil
	}
	section.Recommendations = recs
	return section, nil
}
