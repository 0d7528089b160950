// Package repository declares the persistence contracts used by the
// service layer. Implementations live in subpackages (see sqlite).
//
// Every write is an upsert or a conflict-skipping insert keyed by the
// entity's unique constraint, so retrying any operation after a failure is
// safe.
package repository

import (
	"context"
	"time"

	"github.com/sakif/devcompass/internal/model"
)

// Default query bounds.
const (
	DefaultBandLimit      = 10
	DefaultCandidateLimit = 20
)

// RatingBandQuery selects active problems of one platform whose rating lies
// in [MinRating, MaxRating].
//
// An empty ExcludeIDs excludes nothing. An empty RequiredTagsAnyOf applies
// no tag constraint; otherwise a problem must share at least one tag with it.
type RatingBandQuery struct {
	Platform          model.Platform
	MinRating         int
	MaxRating         int
	ExcludeIDs        []string
	RequiredTagsAnyOf []string
	Limit             int
}

// CandidateQuery selects pre-scored active problems of one platform whose
// slug is not in ExcludeSlugs.
type CandidateQuery struct {
	Platform     model.Platform
	ExcludeSlugs []string
	WeakTags     []string
	Limit        int
}

// TagUpdate replaces the tag list of one problem.
type TagUpdate struct {
	ProblemID string
	Tags      []string
}

type ProblemRepository interface {
	ByPlatform(ctx context.Context, platform model.Platform) ([]model.Problem, error)
	ByRatingBand(ctx context.Context, q RatingBandQuery) ([]model.Problem, error)
	ScoredCandidates(ctx context.Context, q CandidateQuery) ([]model.ScoredProblem, error)
	// UpsertBatch inserts or updates problems keyed by (platform, external id).
	// Existing tags survive when the incoming tag list is empty.
	UpsertBatch(ctx context.Context, problems []model.Problem) (int, error)
	UpdateTags(ctx context.Context, updates []TagUpdate) (int, error)
}

type HandleRepository interface {
	// Upsert links a handle. Changing the handle string clears the
	// verification token and verification timestamp.
	Upsert(ctx context.Context, h *model.PlatformHandle) error
	Get(ctx context.Context, userID string, platform model.Platform) (*model.PlatformHandle, error)
	ListByUser(ctx context.Context, userID string) ([]model.PlatformHandle, error)
	SetVerificationToken(ctx context.Context, userID string, platform model.Platform, token string) error
	MarkVerified(ctx context.Context, userID string, platform model.Platform, at time.Time) error
	TouchLastSynced(ctx context.Context, userID string, platform model.Platform, at time.Time) error
}

type SolvedRepository interface {
	ExistingSlugs(ctx context.Context, userID string, slugs []string) (map[string]struct{}, error)
	// InsertSlugs skips slugs already in the ledger and returns how many
	// rows were actually created.
	InsertSlugs(ctx context.Context, userID string, slugs []string) (int, error)
	ListSlugs(ctx context.Context, userID string) ([]string, error)
}

// CloseKind selects which lifecycle marker closes a recommendation.
type CloseKind int

const (
	CloseDismissed CloseKind = iota
	CloseCompleted
)

type GithubRepository interface {
	LatestSnapshot(ctx context.Context, userID string) (*model.GithubProfileSnapshot, error)
	CreateSnapshot(ctx context.Context, snap *model.GithubProfileSnapshot) error
	AnalysisForSnapshot(ctx context.Context, userID, snapshotID string) (*model.GithubAnalysis, error)
	// CreateAnalysis stores a unless an analysis already exists for its
	// snapshot, and returns whichever row is persisted.
	CreateAnalysis(ctx context.Context, a *model.GithubAnalysis) (*model.GithubAnalysis, error)
	ActiveRecommendations(ctx context.Context, userID string) ([]model.GithubRecommendation, error)
	// CreateRecommendation returns false without error when an active
	// recommendation already holds the (category, axis) slot.
	CreateRecommendation(ctx context.Context, r *model.GithubRecommendation) (bool, error)
	CloseRecommendation(ctx context.Context, userID, id string, kind CloseKind, at time.Time) error
}

type InsightRepository interface {
	UpsertInsight(ctx context.Context, in *model.Insight) error
	LatestInsight(ctx context.Context, userID string) (*model.Insight, error)
}

type ProfileRepository interface {
	// GetProfile returns apperror.ErrNotFound until the user saves a setting.
	GetProfile(ctx context.Context, userID string) (*model.Profile, error)
	UpsertGoal(ctx context.Context, userID, goal string, at time.Time) error
}
