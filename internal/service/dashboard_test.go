package service

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/devcompass/internal/apperror"
	"github.com/sakif/devcompass/internal/coach"
	"github.com/sakif/devcompass/internal/model"
)

type dashboardFixture struct {
	svc      *DashboardService
	handles  *mockHandleRepo
	prov     *providers
	problems *mockProblemRepo
	stats    *StatsFetcher
}

func newDashboardFixture() *dashboardFixture {
	f := &dashboardFixture{
		handles:  newMockHandleRepo(),
		prov:     newProviders(),
		problems: &mockProblemRepo{},
	}
	f.stats = f.prov.fetcher()
	solved := newMockSolvedRepo()
	ledger := NewLedgerService(solved, f.handles, testLogger())
	recs := NewRecommendationService(f.handles, f.problems, solved, f.stats, ledger,
		rand.New(rand.NewPCG(3, 4)), testLogger())
	gh := NewGithubService(newMockGithubRepo(newFakeClock().Now), f.handles, f.stats, testLogger())
	f.svc = NewDashboardService(f.handles, f.stats, recs, gh, testLogger())
	return f
}

func TestDashboardService_Build(t *testing.T) {
	f := newDashboardFixture()
	f.handles.add("u1", model.PlatformCodeforces, "tourist", true)
	f.handles.add("u1", model.PlatformGitHub, "octo", true)
	f.handles.add("u1", model.PlatformAtCoder, "chokudai", true)

	d, err := f.svc.Build(context.Background(), "u1")
	require.NoError(t, err)

	assert.Equal(t, "u1", d.UserID)
	assert.False(t, d.GeneratedAt.IsZero())
	require.Len(t, d.Sections, 3)

	cf := d.Sections[model.PlatformCodeforces]
	assert.Equal(t, "tourist", cf.Handle)
	assert.IsType(t, &model.CodeforcesStats{}, cf.Stats)
	assert.IsType(t, &CodeforcesRecommendations{}, cf.Recommendations)

	gh := d.Sections[model.PlatformGitHub]
	assert.IsType(t, &GithubReport{}, gh.Recommendations)

	ac := d.Sections[model.PlatformAtCoder]
	assert.IsType(t, &model.AtCoderStats{}, ac.Stats)
	assert.Nil(t, ac.Recommendations)
}

func TestDashboardService_LeetCodeCoaching(t *testing.T) {
	f := newDashboardFixture()
	f.handles.add("u1", model.PlatformLeetCode, "alice", true)
	f.handles.add("u1", model.PlatformCodeforces, "tourist", true)
	clock := newFakeClock()
	f.svc.now = clock.Now
	f.prov.lc.stats = &model.LeetCodeStats{
		Username:       "alice",
		TotalSolved:    100,
		EasySolved:     80,
		MediumSolved:   20,
		SkillTags:      model.SkillTags{Fundamental: []model.TagCount{{TagSlug: "sorting", ProblemsSolved: 2}}},
		RecentAccepted: []model.RecentSubmission{{Slug: "two-sum", Timestamp: clock.Now().Add(-time.Hour)}},
	}

	d, err := f.svc.Build(context.Background(), "u1")
	require.NoError(t, err)

	lc := d.Sections[model.PlatformLeetCode]
	require.NotNil(t, lc.Coach)
	assert.Equal(t, coach.MomentumSporadic, lc.Coach.Summary.Momentum)
	require.NotNil(t, lc.Coach.Summary.Imbalance)
	require.Len(t, lc.Coach.Skills.Gaps, 1)
	assert.Equal(t, "sorting", lc.Coach.Skills.Gaps[0].TagSlug)

	assert.Nil(t, d.Sections[model.PlatformCodeforces].Coach)
}

func TestDashboardService_SkipsUnverifiedAndFailing(t *testing.T) {
	f := newDashboardFixture()
	f.handles.add("u1", model.PlatformCodeforces, "tourist", true)
	f.handles.add("u1", model.PlatformLeetCode, "alice", true)
	f.handles.add("u1", model.PlatformGitHub, "octo", false)
	f.prov.lc.err = apperror.Unavailable("leetcode", errors.New("timeout"))

	d, err := f.svc.Build(context.Background(), "u1")
	require.NoError(t, err)

	require.Len(t, d.Sections, 1)
	_, ok := d.Sections[model.PlatformCodeforces]
	assert.True(t, ok)
	assert.Zero(t, f.prov.gh.calls.Load(), "unverified handles are never fetched")
}

func TestDashboardService_NoHandles(t *testing.T) {
	f := newDashboardFixture()

	d, err := f.svc.Build(context.Background(), "nobody")
	require.NoError(t, err)
	assert.NotNil(t, d.Sections)
	assert.Empty(t, d.Sections)
}
