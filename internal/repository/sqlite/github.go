package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/devcompass/internal/apperror"
	"github.com/sakif/devcompass/internal/model"
	"github.com/sakif/devcompass/internal/repository"
)

var _ repository.GithubRepository = (*DB)(nil)

const snapshotColumns = `id, user_id, login, repo_count, total_commits, total_stars,
	languages, repos_metadata, contribution_stats, created_at`

const analysisColumns = `id, user_id, snapshot_id, persona, maturity, axes,
	focus_areas, strengths, gaps, created_at`

const recommendationColumns = `id, user_id, analysis_id, category, axis_targeted, title,
	description, priority, dismissed_at, completed_at, created_at`

// ===== SNAPSHOTS =====

// LatestSnapshot returns the most recent snapshot of a user.
func (db *DB) LatestSnapshot(ctx context.Context, userID string) (*model.GithubProfileSnapshot, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+snapshotColumns+` FROM github_profile_snapshots
		 WHERE user_id = ? ORDER BY created_at DESC, rowid DESC LIMIT 1`,
		userID,
	)

	var (
		s                         model.GithubProfileSnapshot
		languages, repos, contrib string
	)
	err := row.Scan(&s.ID, &s.UserID, &s.Login, &s.RepoCount, &s.TotalCommits, &s.TotalStars,
		&languages, &repos, &contrib, &s.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("github snapshot", userID)
		}
		return nil, fmt.Errorf("sqlite: getting latest snapshot for %s: %w", userID, err)
	}

	if err := fromJSONText(languages, &s.Languages); err != nil {
		return nil, fmt.Errorf("sqlite: decoding snapshot languages: %w", err)
	}
	if err := fromJSONText(repos, &s.ReposMetadata); err != nil {
		return nil, fmt.Errorf("sqlite: decoding snapshot repos: %w", err)
	}
	if err := fromJSONText(contrib, &s.ContributionStats); err != nil {
		return nil, fmt.Errorf("sqlite: decoding contribution stats: %w", err)
	}
	if s.Languages == nil {
		s.Languages = map[string]int64{}
	}
	if s.ReposMetadata == nil {
		s.ReposMetadata = []model.RepoMeta{}
	}
	return &s, nil
}

// CreateSnapshot stores a new immutable snapshot. ID and CreatedAt are
// assigned when unset.
func (db *DB) CreateSnapshot(ctx context.Context, s *model.GithubProfileSnapshot) error {
	if s.ID == "" {
		s.ID = xid.New().String()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}

	languages := s.Languages
	if languages == nil {
		languages = map[string]int64{}
	}
	repos := s.ReposMetadata
	if repos == nil {
		repos = []model.RepoMeta{}
	}
	langText, err := jsonText(languages)
	if err != nil {
		return fmt.Errorf("sqlite: encoding snapshot languages: %w", err)
	}
	repoText, err := jsonText(repos)
	if err != nil {
		return fmt.Errorf("sqlite: encoding snapshot repos: %w", err)
	}
	contribText, err := jsonText(s.ContributionStats)
	if err != nil {
		return fmt.Errorf("sqlite: encoding contribution stats: %w", err)
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO github_profile_snapshots (`+snapshotColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.UserID, s.Login, s.RepoCount, s.TotalCommits, s.TotalStars,
		langText, repoText, contribText, s.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating snapshot for %s: %w", s.UserID, err)
	}
	return nil
}

// ===== ANALYSIS =====

func (db *DB) AnalysisForSnapshot(ctx context.Context, userID, snapshotID string) (*model.GithubAnalysis, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+analysisColumns+` FROM github_analysis WHERE user_id = ? AND snapshot_id = ?`,
		userID, snapshotID,
	)

	var (
		a                          model.GithubAnalysis
		persona, maturity, axes    string
		focus, strengths, gapsText string
	)
	err := row.Scan(&a.ID, &a.UserID, &a.SnapshotID, &persona, &maturity, &axes,
		&focus, &strengths, &gapsText, &a.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("github analysis", snapshotID)
		}
		return nil, fmt.Errorf("sqlite: getting analysis for snapshot %s: %w", snapshotID, err)
	}

	a.Persona = model.Persona(persona)
	a.Maturity = model.Maturity(maturity)
	if err := fromJSONText(axes, &a.Axes); err != nil {
		return nil, fmt.Errorf("sqlite: decoding axes: %w", err)
	}
	for _, f := range []struct {
		text string
		dst  *[]string
	}{{focus, &a.FocusAreas}, {strengths, &a.Strengths}, {gapsText, &a.Gaps}} {
		if err := fromJSONText(f.text, f.dst); err != nil {
			return nil, fmt.Errorf("sqlite: decoding analysis lists: %w", err)
		}
		if *f.dst == nil {
			*f.dst = []string{}
		}
	}
	return &a, nil
}

// CreateAnalysis inserts a unless its snapshot already has an analysis, then
// returns the stored row. Two concurrent callers therefore agree on a single
// analysis per snapshot.
func (db *DB) CreateAnalysis(ctx context.Context, a *model.GithubAnalysis) (*model.GithubAnalysis, error) {
	if a.ID == "" {
		a.ID = xid.New().String()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	axes, err := jsonText(a.Axes)
	if err != nil {
		return nil, fmt.Errorf("sqlite: encoding axes: %w", err)
	}
	focus, err := jsonText(a.FocusAreas)
	if err != nil {
		return nil, fmt.Errorf("sqlite: encoding focus areas: %w", err)
	}
	strengths, err := jsonText(a.Strengths)
	if err != nil {
		return nil, fmt.Errorf("sqlite: encoding strengths: %w", err)
	}
	gapsText, err := jsonText(a.Gaps)
	if err != nil {
		return nil, fmt.Errorf("sqlite: encoding gaps: %w", err)
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO github_analysis (`+analysisColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (user_id, snapshot_id) DO NOTHING`,
		a.ID, a.UserID, a.SnapshotID, string(a.Persona), string(a.Maturity), axes,
		focus, strengths, gapsText, a.CreatedAt.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: creating analysis for snapshot %s: %w", a.SnapshotID, err)
	}
	return db.AnalysisForSnapshot(ctx, a.UserID, a.SnapshotID)
}

// ===== RECOMMENDATIONS =====

// ActiveRecommendations lists open recommendations, most urgent first.
func (db *DB) ActiveRecommendations(ctx context.Context, userID string) ([]model.GithubRecommendation, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+recommendationColumns+` FROM github_recommendations
		 WHERE user_id = ? AND dismissed_at IS NULL AND completed_at IS NULL
		 ORDER BY priority ASC, created_at ASC, rowid ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing recommendations: %w", err)
	}
	defer rows.Close()

	recs := make([]model.GithubRecommendation, 0)
	for rows.Next() {
		var (
			r                    model.GithubRecommendation
			dismissed, completed sql.NullTime
		)
		if err := rows.Scan(&r.ID, &r.UserID, &r.AnalysisID, &r.Category, &r.AxisTargeted, &r.Title,
			&r.Description, &r.Priority, &dismissed, &completed, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning recommendation: %w", err)
		}
		if dismissed.Valid {
			t := dismissed.Time
			r.DismissedAt = &t
		}
		if completed.Valid {
			t := completed.Time
			r.CompletedAt = &t
		}
		recs = append(recs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating recommendations: %w", err)
	}
	return recs, nil
}

// CreateRecommendation inserts r unless an active recommendation already
// holds its (category, axis) slot. The partial unique index decides, so
// the check holds across concurrent writers.
func (db *DB) CreateRecommendation(ctx context.Context, r *model.GithubRecommendation) (bool, error) {
	if r.ID == "" {
		r.ID = xid.New().String()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}

	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO github_recommendations (`+recommendationColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, NULL, NULL, ?)
		 ON CONFLICT DO NOTHING`,
		r.ID, r.UserID, r.AnalysisID, r.Category, r.AxisTargeted, r.Title,
		r.Description, r.Priority, r.CreatedAt.UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("sqlite: creating recommendation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	return n == 1, nil
}

// CloseRecommendation dismisses or completes an active recommendation owned
// by userID. Closed, missing and foreign recommendations all report
// NotFound.
func (db *DB) CloseRecommendation(ctx context.Context, userID, id string, kind repository.CloseKind, at time.Time) error {
	column := "dismissed_at"
	if kind == repository.CloseCompleted {
		column = "completed_at"
	}

	res, err := db.conn.ExecContext(ctx,
		`UPDATE github_recommendations SET `+column+` = ?
		 WHERE id = ? AND user_id = ? AND dismissed_at IS NULL AND completed_at IS NULL`,
		at.UTC(), id, userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: closing recommendation %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("recommendation", id)
	}
	return nil
}
