package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sakif/devcompass/internal/apperror"
	"github.com/sakif/devcompass/internal/model"
	"github.com/sakif/devcompass/internal/repository"
)

var _ repository.InsightRepository = (*DB)(nil)

// UpsertInsight replaces the stored insight of in.UserID.
func (db *DB) UpsertInsight(ctx context.Context, in *model.Insight) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO ai_insights (user_id, content, generated_at) VALUES (?, ?, ?)
		 ON CONFLICT (user_id) DO UPDATE SET
			content = excluded.content,
			generated_at = excluded.generated_at`,
		in.UserID, in.Content, in.GeneratedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: upserting insight for %s: %w", in.UserID, err)
	}
	return nil
}

func (db *DB) LatestInsight(ctx context.Context, userID string) (*model.Insight, error) {
	var in model.Insight
	err := db.conn.QueryRowContext(ctx,
		`SELECT user_id, content, generated_at FROM ai_insights WHERE user_id = ?`, userID,
	).Scan(&in.UserID, &in.Content, &in.GeneratedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("insight", userID)
		}
		return nil, fmt.Errorf("sqlite: getting insight for %s: %w", userID, err)
	}
	return &in, nil
}
