package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/devcompass/internal/model"
	"github.com/sakif/devcompass/internal/repository"
	"github.com/sakif/devcompass/internal/scoring"
)

var _ repository.ProblemRepository = (*DB)(nil)

const problemColumns = `p.id, p.platform, p.external_id, p.title, p.slug, p.url, p.difficulty,
	p.rating, p.tags, p.is_paid, p.is_neetcode, p.is_striver, p.is_active, p.created_at, p.updated_at`

// ByPlatform returns every active problem of a platform.
func (db *DB) ByPlatform(ctx context.Context, platform model.Platform) ([]model.Problem, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+problemColumns+` FROM problems p
		 WHERE p.platform = ? AND p.is_active = 1
		 ORDER BY p.external_id`,
		string(platform),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing %s problems: %w", platform, err)
	}
	defer rows.Close()

	problems := make([]model.Problem, 0)
	for rows.Next() {
		p, err := scanProblem(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning problem row: %w", err)
		}
		problems = append(problems, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating problems: %w", err)
	}
	return problems, nil
}

// ByRatingBand returns up to q.Limit active problems inside the rating band.
//
// Both list filters are bound as JSON arrays. The exclusion test is
// NOT IN over json_each, which is vacuously true for "[]". The tag test
// is skipped entirely for "[]" and is otherwise a non-empty intersection,
// not containment.
//
// Rows are ordered by tag overlap, then closeness to the band centre, then
// external id, so identical inputs give identical output.
func (db *DB) ByRatingBand(ctx context.Context, q repository.RatingBandQuery) ([]model.Problem, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = repository.DefaultBandLimit
	}
	exclude, err := jsonText(q.ExcludeIDs)
	if err != nil {
		return nil, fmt.Errorf("sqlite: encoding exclusions: %w", err)
	}
	required, err := jsonText(q.RequiredTagsAnyOf)
	if err != nil {
		return nil, fmt.Errorf("sqlite: encoding required tags: %w", err)
	}
	centre := (q.MinRating + q.MaxRating) / 2

	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+problemColumns+`
		 FROM problems p
		 WHERE p.platform = ?
		   AND p.is_active = 1
		   AND p.rating BETWEEN ? AND ?
		   AND p.external_id NOT IN (SELECT value FROM json_each(?))
		   AND (json_array_length(?) = 0 OR EXISTS (
				SELECT 1 FROM json_each(p.tags) t
				WHERE t.value IN (SELECT value FROM json_each(?))))
		 ORDER BY
			(SELECT COUNT(DISTINCT t.value) FROM json_each(p.tags) t
			 WHERE t.value IN (SELECT value FROM json_each(?))) DESC,
			ABS(p.rating - ?) ASC,
			p.external_id ASC
		 LIMIT ?`,
		string(q.Platform), q.MinRating, q.MaxRating, exclude, required, required, required, centre, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: querying rating band: %w", err)
	}
	defer rows.Close()

	problems := make([]model.Problem, 0, limit)
	for rows.Next() {
		p, err := scanProblem(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning problem row: %w", err)
		}
		problems = append(problems, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating rating band: %w", err)
	}
	return problems, nil
}

// ScoredCandidates computes 5·|tags ∩ weak| + difficulty bonus in SQL and
// returns the top q.Limit rows. Ties are broken randomly so repeated calls
// rotate through equally good problems.
func (db *DB) ScoredCandidates(ctx context.Context, q repository.CandidateQuery) ([]model.ScoredProblem, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = repository.DefaultCandidateLimit
	}
	exclude, err := jsonText(q.ExcludeSlugs)
	if err != nil {
		return nil, fmt.Errorf("sqlite: encoding exclusions: %w", err)
	}
	weak, err := jsonText(q.WeakTags)
	if err != nil {
		return nil, fmt.Errorf("sqlite: encoding weak tags: %w", err)
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+problemColumns+`,
			5 * (SELECT COUNT(DISTINCT t.value) FROM json_each(p.tags) t
			     WHERE t.value IN (SELECT value FROM json_each(?)))
			+ CASE p.difficulty WHEN 'hard' THEN 2 WHEN 'medium' THEN 1 ELSE 0 END AS score
		 FROM problems p
		 WHERE p.platform = ?
		   AND p.is_active = 1
		   AND p.slug NOT IN (SELECT value FROM json_each(?))
		 ORDER BY score DESC, RANDOM()
		 LIMIT ?`,
		weak, string(q.Platform), exclude, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: querying scored candidates: %w", err)
	}
	defer rows.Close()

	out := make([]model.ScoredProblem, 0, limit)
	for rows.Next() {
		var score int
		p, err := scanProblem(rows, &score)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning candidate row: %w", err)
		}
		out = append(out, model.ScoredProblem{
			Problem:     *p,
			Score:       float64(score),
			MatchedTags: scoring.MatchedTags(p.Tags, q.WeakTags),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating candidates: %w", err)
	}
	return out, nil
}

// UpsertBatch writes one batch of catalog problems inside a single
// transaction. A refreshed record replaces every listed field and
// reactivates the problem, except that an empty incoming tag list keeps
// the stored tags.
func (db *DB) UpsertBatch(ctx context.Context, problems []model.Problem) (int, error) {
	if len(problems) == 0 {
		return 0, nil
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("sqlite: beginning problem batch: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO problems (id, platform, external_id, title, slug, url, difficulty, rating, tags,
			is_paid, is_neetcode, is_striver, is_active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)
		 ON CONFLICT (platform, external_id) DO UPDATE SET
			title = excluded.title,
			slug = excluded.slug,
			url = excluded.url,
			difficulty = excluded.difficulty,
			rating = excluded.rating,
			tags = CASE WHEN json_array_length(excluded.tags) = 0 THEN problems.tags ELSE excluded.tags END,
			is_paid = excluded.is_paid,
			is_neetcode = excluded.is_neetcode,
			is_striver = excluded.is_striver,
			is_active = 1,
			updated_at = excluded.updated_at`)
	if err != nil {
		return 0, fmt.Errorf("sqlite: preparing problem upsert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	written := 0
	for i := range problems {
		p := &problems[i]
		tags, err := jsonText(p.Tags)
		if err != nil {
			return 0, fmt.Errorf("sqlite: encoding tags of %s: %w", p.ExternalID, err)
		}
		var difficulty sql.NullString
		if p.Difficulty != nil {
			difficulty = sql.NullString{String: string(*p.Difficulty), Valid: true}
		}
		res, err := stmt.ExecContext(ctx,
			xid.New().String(), string(p.Platform), p.ExternalID, p.Title, p.Slug, p.URL,
			difficulty, nullInt(p.Rating), tags,
			boolInt(p.IsPaid), boolInt(p.IsNeetcode), boolInt(p.IsStriver),
			now, now,
		)
		if err != nil {
			return 0, fmt.Errorf("sqlite: upserting problem %s/%s: %w", p.Platform, p.ExternalID, err)
		}
		n, _ := res.RowsAffected()
		written += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("sqlite: committing problem batch: %w", err)
	}
	return written, nil
}

// UpdateTags rewrites the tag lists of the given problems in one
// transaction and returns how many rows changed.
func (db *DB) UpdateTags(ctx context.Context, updates []repository.TagUpdate) (int, error) {
	if len(updates) == 0 {
		return 0, nil
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("sqlite: beginning tag update: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `UPDATE problems SET tags = ?, updated_at = ? WHERE id = ?`)
	if err != nil {
		return 0, fmt.Errorf("sqlite: preparing tag update: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	updated := 0
	for _, u := range updates {
		tags, err := jsonText(u.Tags)
		if err != nil {
			return 0, fmt.Errorf("sqlite: encoding tags of %s: %w", u.ProblemID, err)
		}
		res, err := stmt.ExecContext(ctx, tags, now, u.ProblemID)
		if err != nil {
			return 0, fmt.Errorf("sqlite: updating tags of %s: %w", u.ProblemID, err)
		}
		n, _ := res.RowsAffected()
		updated += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("sqlite: committing tag update: %w", err)
	}
	return updated, nil
}

// scanProblem reads the problemColumns of the current row followed by any
// extra destinations.
func scanProblem(s rowScanner, extra ...any) (*model.Problem, error) {
	var (
		p          model.Problem
		platform   string
		difficulty sql.NullString
		rating     sql.NullInt64
		tags       string
	)
	dest := []any{&p.ID, &platform, &p.ExternalID, &p.Title, &p.Slug, &p.URL, &difficulty,
		&rating, &tags, &p.IsPaid, &p.IsNeetcode, &p.IsStriver, &p.IsActive, &p.CreatedAt, &p.UpdatedAt}
	dest = append(dest, extra...)
	if err := s.Scan(dest...); err != nil {
		return nil, err
	}

	p.Platform = model.Platform(platform)
	if difficulty.Valid {
		d := model.Difficulty(difficulty.String)
		p.Difficulty = &d
	}
	if rating.Valid {
		r := int(rating.Int64)
		p.Rating = &r
	}
	p.Tags = make([]string, 0)
	if err := fromJSONText(tags, &p.Tags); err != nil {
		return nil, fmt.Errorf("decoding tags of %s: %w", p.ID, err)
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	return &p, nil
}
