package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sakif/devcompass/internal/apperror"
	"github.com/sakif/devcompass/internal/cache"
	"github.com/sakif/devcompass/internal/model"
	"github.com/sakif/devcompass/internal/repository"
)

// =========================================================================
// MOCK REPOSITORIES
// =========================================================================
//
// Hand-written in-memory implementations of the repository interfaces.
// Each one guards its state with a mutex because the dashboard calls them
// from several goroutines at once.

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type mockHandleRepo struct {
	mu      sync.Mutex
	handles map[string]*model.PlatformHandle
}

func newMockHandleRepo() *mockHandleRepo {
	return &mockHandleRepo{handles: make(map[string]*model.PlatformHandle)}
}

func handleKey(userID string, p model.Platform) string { return userID + "/" + string(p) }

// add stores a handle directly, verified or not.
func (m *mockHandleRepo) add(userID string, p model.Platform, handle string, verified bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h := &model.PlatformHandle{
		ID:       "h-" + handleKey(userID, p),
		UserID:   userID,
		Platform: p,
		Handle:   handle,
		URL:      p.ProfileURL(handle),
	}
	if verified {
		at := time.Now()
		h.VerifiedAt = &at
	}
	m.handles[handleKey(userID, p)] = h
}

func (m *mockHandleRepo) Upsert(_ context.Context, h *model.PlatformHandle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := handleKey(h.UserID, h.Platform)
	if existing, ok := m.handles[key]; ok && existing.Handle == h.Handle {
		h.VerificationToken = existing.VerificationToken
		h.VerifiedAt = existing.VerifiedAt
	} else {
		h.VerificationToken = nil
		h.VerifiedAt = nil
	}
	h.ID = "h-" + key
	stored := *h
	m.handles[key] = &stored
	return nil
}

func (m *mockHandleRepo) Get(_ context.Context, userID string, p model.Platform) (*model.PlatformHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.handles[handleKey(userID, p)]
	if !ok {
		return nil, apperror.NotFound(string(p)+" handle", userID)
	}
	out := *h
	return &out, nil
}

func (m *mockHandleRepo) ListByUser(_ context.Context, userID string) ([]model.PlatformHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.PlatformHandle, 0)
	for _, h := range m.handles {
		if h.UserID == userID {
			out = append(out, *h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Platform < out[j].Platform })
	return out, nil
}

func (m *mockHandleRepo) update(userID string, p model.Platform, fn func(h *model.PlatformHandle)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.handles[handleKey(userID, p)]
	if !ok {
		return apperror.NotFound(string(p)+" handle", userID)
	}
	fn(h)
	return nil
}

func (m *mockHandleRepo) SetVerificationToken(_ context.Context, userID string, p model.Platform, token string) error {
	return m.update(userID, p, func(h *model.PlatformHandle) {
		h.VerificationToken = &token
		h.VerifiedAt = nil
	})
}

func (m *mockHandleRepo) MarkVerified(_ context.Context, userID string, p model.Platform, at time.Time) error {
	return m.update(userID, p, func(h *model.PlatformHandle) {
		h.VerifiedAt = &at
		h.VerificationToken = nil
	})
}

func (m *mockHandleRepo) TouchLastSynced(_ context.Context, userID string, p model.Platform, at time.Time) error {
	return m.update(userID, p, func(h *model.PlatformHandle) { h.LastSyncedAt = &at })
}

type mockSolvedRepo struct {
	mu          sync.Mutex
	slugs       map[string][]string
	insertCalls int
	insertErr   error
}

func newMockSolvedRepo() *mockSolvedRepo {
	return &mockSolvedRepo{slugs: make(map[string][]string)}
}

func (m *mockSolvedRepo) has(userID, slug string) bool {
	for _, s := range m.slugs[userID] {
		if s == slug {
			return true
		}
	}
	return false
}

func (m *mockSolvedRepo) ExistingSlugs(_ context.Context, userID string, slugs []string) (map[string]struct{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]struct{})
	for _, s := range slugs {
		if m.has(userID, s) {
			out[s] = struct{}{}
		}
	}
	return out, nil
}

func (m *mockSolvedRepo) InsertSlugs(_ context.Context, userID string, slugs []string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.insertCalls++
	if m.insertErr != nil {
		return 0, m.insertErr
	}
	n := 0
	for _, s := range slugs {
		if !m.has(userID, s) {
			m.slugs[userID] = append(m.slugs[userID], s)
			n++
		}
	}
	return n, nil
}

func (m *mockSolvedRepo) ListSlugs(_ context.Context, userID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string{}, m.slugs[userID]...), nil
}

// mockProblemRepo returns canned query results and records the queries.
type mockProblemRepo struct {
	mu         sync.Mutex
	band       []model.Problem
	candidates []model.ScoredProblem
	lastBand   repository.RatingBandQuery
	lastCand   repository.CandidateQuery
}

func (m *mockProblemRepo) ByPlatform(_ context.Context, p model.Platform) ([]model.Problem, error) {
	return nil, nil
}

func (m *mockProblemRepo) ByRatingBand(_ context.Context, q repository.RatingBandQuery) ([]model.Problem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastBand = q
	return m.band, nil
}

func (m *mockProblemRepo) ScoredCandidates(_ context.Context, q repository.CandidateQuery) ([]model.ScoredProblem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastCand = q
	return m.candidates, nil
}

func (m *mockProblemRepo) UpsertBatch(_ context.Context, problems []model.Problem) (int, error) {
	return len(problems), nil
}

func (m *mockProblemRepo) UpdateTags(_ context.Context, updates []repository.TagUpdate) (int, error) {
	return len(updates), nil
}

type mockGithubRepo struct {
	mu                  sync.Mutex
	now                 func() time.Time
	snapshots           []*model.GithubProfileSnapshot
	analyses            map[string]*model.GithubAnalysis
	recs                []*model.GithubRecommendation
	createAnalysisCalls int
}

func newMockGithubRepo(now func() time.Time) *mockGithubRepo {
	return &mockGithubRepo{now: now, analyses: make(map[string]*model.GithubAnalysis)}
}

func (m *mockGithubRepo) LatestSnapshot(_ context.Context, userID string) (*model.GithubProfileSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.snapshots) - 1; i >= 0; i-- {
		if m.snapshots[i].UserID == userID {
			return m.snapshots[i], nil
		}
	}
	return nil, apperror.NotFound("github snapshot", userID)
}

func (m *mockGithubRepo) CreateSnapshot(_ context.Context, s *model.GithubProfileSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = fmt.Sprintf("snap-%d", len(m.snapshots)+1)
	s.CreatedAt = m.now()
	m.snapshots = append(m.snapshots, s)
	return nil
}

func (m *mockGithubRepo) AnalysisForSnapshot(_ context.Context, userID, snapshotID string) (*model.GithubAnalysis, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.analyses[snapshotID]
	if !ok || a.UserID != userID {
		return nil, apperror.NotFound("github analysis", snapshotID)
	}
	return a, nil
}

func (m *mockGithubRepo) CreateAnalysis(_ context.Context, a *model.GithubAnalysis) (*model.GithubAnalysis, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createAnalysisCalls++
	if existing, ok := m.analyses[a.SnapshotID]; ok {
		return existing, nil
	}
	a.ID = "analysis-" + a.SnapshotID
	a.CreatedAt = m.now()
	m.analyses[a.SnapshotID] = a
	return a, nil
}

func (m *mockGithubRepo) ActiveRecommendations(_ context.Context, userID string) ([]model.GithubRecommendation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.GithubRecommendation, 0)
	for _, r := range m.recs {
		if r.UserID == userID && r.Active() {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *mockGithubRepo) CreateRecommendation(_ context.Context, r *model.GithubRecommendation) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.recs {
		if existing.UserID == r.UserID && existing.Active() &&
			existing.Category == r.Category && existing.AxisTargeted == r.AxisTargeted {
			return false, nil
		}
	}
	r.ID = fmt.Sprintf("rec-%d", len(m.recs)+1)
	r.CreatedAt = m.now()
	stored := *r
	m.recs = append(m.recs, &stored)
	return true, nil
}

func (m *mockGithubRepo) CloseRecommendation(_ context.Context, userID, id string, kind repository.CloseKind, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.recs {
		if r.ID == id && r.UserID == userID && r.Active() {
			if kind == repository.CloseDismissed {
				r.DismissedAt = &at
			} else {
				r.CompletedAt = &at
			}
			return nil
		}
	}
	return apperror.NotFound("recommendation", id)
}

type mockInsightRepo struct {
	mu       sync.Mutex
	insights map[string]model.Insight
}

func newMockInsightRepo() *mockInsightRepo {
	return &mockInsightRepo{insights: make(map[string]model.Insight)}
}

func (m *mockInsightRepo) UpsertInsight(_ context.Context, in *model.Insight) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.insights[in.UserID] = *in
	return nil
}

func (m *mockInsightRepo) LatestInsight(_ context.Context, userID string) (*model.Insight, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	in, ok := m.insights[userID]
	if !ok {
		return nil, apperror.NotFound("insight", userID)
	}
	return &in, nil
}

// =========================================================================
// FAKE PROVIDERS
// =========================================================================

type fakeCodeforces struct {
	stats *model.CodeforcesStats
	err   error
	calls atomic.Int32
}

func (f *fakeCodeforces) FetchStats(_ context.Context, handle string) (*model.CodeforcesStats, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	if f.stats == nil {
		return nil, nil
	}
	out := *f.stats
	return &out, nil
}

type fakeLeetCode struct {
	stats *model.LeetCodeStats
	err   error
	calls atomic.Int32
}

func (f *fakeLeetCode) FetchStats(_ context.Context, username string) (*model.LeetCodeStats, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	if f.stats == nil {
		return nil, nil
	}
	out := *f.stats
	return &out, nil
}

type fakeGithub struct {
	stats *model.GithubStats
	err   error
	calls atomic.Int32
}

func (f *fakeGithub) FetchStatsWithToken(_ context.Context, login, token string) (*model.GithubStats, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	if f.stats == nil {
		return nil, nil
	}
	out := *f.stats
	return &out, nil
}

type fakeAtCoder struct {
	stats *model.AtCoderStats
	err   error
}

func (f *fakeAtCoder) FetchStats(_ context.Context, handle string) (*model.AtCoderStats, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.stats == nil {
		return nil, nil
	}
	out := *f.stats
	return &out, nil
}

type fakeProfile struct {
	text string
	err  error
}

func (f *fakeProfile) ProfileText(_ context.Context, handle string) (string, error) {
	return f.text, f.err
}

type fakeGenerator struct {
	text  string
	err   error
	calls atomic.Int32

	mu      sync.Mutex
	userID  string
	payload any
}

func (f *fakeGenerator) Generate(_ context.Context, userID string, payload any) (string, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.userID, f.payload = userID, payload
	f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

// fakeClock is a settable time source.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// providers bundles the fakes behind a StatsFetcher with an in-memory cache.
type providers struct {
	cf *fakeCodeforces
	lc *fakeLeetCode
	gh *fakeGithub
	ac *fakeAtCoder
}

func (p *providers) fetcher() *StatsFetcher {
	sc := cache.NewStatsCache(cache.NewMemoryStore(100), nil, testLogger())
	return NewStatsFetcher(sc, p.cf, p.lc, p.gh, p.ac)
}

func newProviders() *providers {
	rating := 1500
	return &providers{
		cf: &fakeCodeforces{stats: &model.CodeforcesStats{Handle: "tourist", Rating: &rating, Submissions: []model.CodeforcesSubmission{}}},
		lc: &fakeLeetCode{stats: &model.LeetCodeStats{Username: "alice"}},
		gh: &fakeGithub{stats: sampleGithubStats()},
		ac: &fakeAtCoder{stats: &model.AtCoderStats{Handle: "chokudai", Rating: 1200}},
	}
}

// sampleGithubStats describes a small, quiet profile: low consistency, no
// collaboration and no stars, which triggers three rules.
func sampleGithubStats() *model.GithubStats {
	return &model.GithubStats{
		Login: "octo",
		Repos: []model.GithubRepo{
			{Name: "dotfiles", Commits: 40, Languages: []model.LanguageEdge{{Name: "Shell", Size: 100}}},
			{Name: "api", Commits: 60, Languages: []model.LanguageEdge{{Name: "Go", Size: 5000}}},
		},
		TotalContributions: 30,
		Calendar: []model.ContributionDay{
			{Date: "2024-05-01", Count: 3},
			{Date: "2024-05-02", Count: 0},
		},
	}
}

type mockProfileRepo struct {
	mu       sync.Mutex
	profiles map[string]model.Profile
	err      error
}

func newMockProfileRepo() *mockProfileRepo {
	return &mockProfileRepo{profiles: make(map[string]model.Profile)}
}

func (m *mockProfileRepo) GetProfile(_ context.Context, userID string) (*model.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.profiles[userID]
	if !ok {
		return nil, apperror.NotFound("profile", userID)
	}
	return &p, nil
}

func (m *mockProfileRepo) UpsertGoal(_ context.Context, userID, goal string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.profiles[userID] = model.Profile{UserID: userID, Goal: goal, UpdatedAt: at}
	return nil
}
