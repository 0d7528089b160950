package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/devcompass/internal/repository"
)

var _ repository.SolvedRepository = (*DB)(nil)

// ExistingSlugs returns the subset of slugs already in the user's ledger.
func (db *DB) ExistingSlugs(ctx context.Context, userID string, slugs []string) (map[string]struct{}, error) {
	found := make(map[string]struct{}, len(slugs))
	if len(slugs) == 0 {
		return found, nil
	}
	list, err := jsonText(slugs)
	if err != nil {
		return nil, fmt.Errorf("sqlite: encoding slugs: %w", err)
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT problem_slug FROM solved_problems
		 WHERE user_id = ? AND problem_slug IN (SELECT value FROM json_each(?))`,
		userID, list,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: querying solved slugs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var slug string
		if err := rows.Scan(&slug); err != nil {
			return nil, fmt.Errorf("sqlite: scanning solved slug: %w", err)
		}
		found[slug] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating solved slugs: %w", err)
	}
	return found, nil
}

// InsertSlugs adds slugs to the ledger in one transaction. Duplicates,
// whether already stored or repeated in the input, are skipped and do not
// count toward the result.
func (db *DB) InsertSlugs(ctx context.Context, userID string, slugs []string) (int, error) {
	if len(slugs) == 0 {
		return 0, nil
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("sqlite: beginning ledger insert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO solved_problems (id, user_id, problem_slug, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (user_id, problem_slug) DO NOTHING`)
	if err != nil {
		return 0, fmt.Errorf("sqlite: preparing ledger insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	inserted := 0
	for _, slug := range slugs {
		res, err := stmt.ExecContext(ctx, xid.New().String(), userID, slug, now, now)
		if err != nil {
			return 0, fmt.Errorf("sqlite: inserting solved slug %q: %w", slug, err)
		}
		n, _ := res.RowsAffected()
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("sqlite: committing ledger insert: %w", err)
	}
	return inserted, nil
}

// ListSlugs returns every solved slug of a user in insertion order.
func (db *DB) ListSlugs(ctx context.Context, userID string) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT problem_slug FROM solved_problems WHERE user_id = ? ORDER BY created_at, rowid`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing solved slugs: %w", err)
	}
	defer rows.Close()

	slugs := make([]string, 0)
	for rows.Next() {
		var slug string
		if err := rows.Scan(&slug); err != nil {
			return nil, fmt.Errorf("sqlite: scanning solved slug: %w", err)
		}
		slugs = append(slugs, slug)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating solved slugs: %w", err)
	}
	return slugs, nil
}
