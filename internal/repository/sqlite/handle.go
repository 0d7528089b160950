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

var _ repository.HandleRepository = (*DB)(nil)

const handleColumns = `id, user_id, platform, handle, url, verification_token,
	verified_at, last_synced_at, created_at, updated_at`

// Upsert links h.Handle to (h.UserID, h.Platform).
//
// The existing row is looked up first so that the generated id and
// created_at survive. When the handle string changes, both verification
// fields are cleared: proof of ownership of one account says nothing about
// another. Re-linking the same handle keeps its verification.
func (db *DB) Upsert(ctx context.Context, h *model.PlatformHandle) error {
	existing, err := db.Get(ctx, h.UserID, h.Platform)
	if err != nil && !isNotFound(err) {
		return err
	}

	now := time.Now().UTC()
	if existing != nil {
		h.ID = existing.ID
		h.CreatedAt = existing.CreatedAt
		h.UpdatedAt = now
		h.LastSyncedAt = existing.LastSyncedAt
		if existing.Handle == h.Handle {
			h.VerificationToken = existing.VerificationToken
			h.VerifiedAt = existing.VerifiedAt
		} else {
			h.VerificationToken = nil
			h.VerifiedAt = nil
		}

		_, err = db.conn.ExecContext(ctx,
			`UPDATE platform_handles
			 SET handle = ?, url = ?, verification_token = ?, verified_at = ?, updated_at = ?
			 WHERE id = ?`,
			h.Handle, h.URL, nullString(h.VerificationToken), nullTime(h.VerifiedAt), h.UpdatedAt, h.ID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: updating handle %s: %w", h.ID, err)
		}
		return nil
	}

	h.ID = xid.New().String()
	h.CreatedAt = now
	h.UpdatedAt = now
	h.VerificationToken = nil
	h.VerifiedAt = nil
	h.LastSyncedAt = nil

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO platform_handles (id, user_id, platform, handle, url, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (user_id, platform) DO UPDATE SET
			handle = excluded.handle,
			url = excluded.url,
			verification_token = NULL,
			verified_at = NULL,
			updated_at = excluded.updated_at`,
		h.ID, h.UserID, string(h.Platform), h.Handle, h.URL, h.CreatedAt, h.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting handle (user=%s platform=%s): %w", h.UserID, h.Platform, err)
	}
	return nil
}

// Get returns the handle a user linked on platform.
func (db *DB) Get(ctx context.Context, userID string, platform model.Platform) (*model.PlatformHandle, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+handleColumns+` FROM platform_handles WHERE user_id = ? AND platform = ?`,
		userID, string(platform),
	)
	h, err := scanHandle(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound(string(platform)+" handle", userID)
		}
		return nil, fmt.Errorf("sqlite: getting %s handle for %s: %w", platform, userID, err)
	}
	return h, nil
}

// ListByUser returns every handle of a user ordered by platform.
func (db *DB) ListByUser(ctx context.Context, userID string) ([]model.PlatformHandle, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+handleColumns+` FROM platform_handles WHERE user_id = ? ORDER BY platform`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing handles: %w", err)
	}
	defer rows.Close()

	handles := make([]model.PlatformHandle, 0, len(model.Platforms))
	for rows.Next() {
		h, err := scanHandle(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning handle row: %w", err)
		}
		handles = append(handles, *h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating handles: %w", err)
	}
	return handles, nil
}

// SetVerificationToken stores a fresh token and revokes any previous
// verification.
func (db *DB) SetVerificationToken(ctx context.Context, userID string, platform model.Platform, token string) error {
	return db.updateHandle(ctx, userID, platform, "setting verification token",
		`UPDATE platform_handles SET verification_token = ?, verified_at = NULL, updated_at = ?
		 WHERE user_id = ? AND platform = ?`,
		token, time.Now().UTC(), userID, string(platform),
	)
}

// MarkVerified sets verified_at and consumes the token.
func (db *DB) MarkVerified(ctx context.Context, userID string, platform model.Platform, at time.Time) error {
	return db.updateHandle(ctx, userID, platform, "marking handle verified",
		`UPDATE platform_handles SET verified_at = ?, verification_token = NULL, updated_at = ?
		 WHERE user_id = ? AND platform = ?`,
		at.UTC(), time.Now().UTC(), userID, string(platform),
	)
}

func (db *DB) TouchLastSynced(ctx context.Context, userID string, platform model.Platform, at time.Time) error {
	return db.updateHandle(ctx, userID, platform, "updating last_synced_at",
		`UPDATE platform_handles SET last_synced_at = ?, updated_at = ?
		 WHERE user_id = ? AND platform = ?`,
		at.UTC(), time.Now().UTC(), userID, string(platform),
	)
}

func (db *DB) updateHandle(ctx context.Context, userID string, platform model.Platform, what, query string, args ...any) error {
	result, err := db.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("sqlite: %s: %w", what, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound(string(platform)+" handle", userID)
	}
	return nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanHandle(s rowScanner) (*model.PlatformHandle, error) {
	var (
		h        model.PlatformHandle
		platform string
		token    sql.NullString
		verified sql.NullTime
		synced   sql.NullTime
	)
	if err := s.Scan(&h.ID, &h.UserID, &platform, &h.Handle, &h.URL, &token,
		&verified, &synced, &h.CreatedAt, &h.UpdatedAt); err != nil {
		return nil, err
	}
	h.Platform = model.Platform(platform)
	if token.Valid {
		h.VerificationToken = &token.String
	}
	if verified.Valid {
		t := verified.Time
		h.VerifiedAt = &t
	}
	if synced.Valid {
		t := synced.Time
		h.LastSyncedAt = &t
	}
	return &h, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func nullInt(n *int) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*n), Valid: true}
}
