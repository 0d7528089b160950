package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sakif/devcompass/internal/apperror"
	"github.com/sakif/devcompass/internal/model"
	"github.com/sakif/devcompass/internal/repository"
)

var _ repository.ProfileRepository = (*DB)(nil)

func (db *DB) GetProfile(ctx context.Context, userID string) (*model.Profile, error) {
	var p model.Profile
	err := db.conn.QueryRowContext(ctx,
		`SELECT user_id, goal, updated_at FROM user_profiles WHERE user_id = ?`, userID,
	).Scan(&p.UserID, &p.Goal, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("profile", userID)
		}
		return nil, fmt.Errorf("sqlite: getting profile for %s: %w", userID, err)
	}
	return &p, nil
}

// UpsertGoal creates the profile row on first use.
func (db *DB) UpsertGoal(ctx context.Context, userID, goal string, at time.Time) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO user_profiles (user_id, goal, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT (user_id) DO UPDATE SET
			goal = excluded.goal,
			updated_at = excluded.updated_at`,
		userID, goal, at.UTC(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: saving goal for %s: %w", userID, err)
	}
	return nil
}
