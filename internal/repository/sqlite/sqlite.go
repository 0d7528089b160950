// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// WHY modernc.org/sqlite?
// It is a pure Go translation of SQLite: no CGo, no C compiler, and cross
// compilation keeps working. The JSON1 functions ship with it, which is what
// lets tag sets live in a TEXT column and still be intersected in SQL
// (json_each).
//
// TAG SETS AS JSON:
// SQLite has no array type. Problem tags and the GitHub snapshot/analysis
// collections are stored as JSON text. Queries that need set semantics
// (exclusion lists, tag overlap) bind the Go slice as one JSON array
// parameter and expand it with json_each, so an empty list is simply
// "[]" and never needs special-cased SQL.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"github.com/sakif/devcompass/internal/apperror"

	// Registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and implements every repository
// interface in internal/repository.
type DB struct {
	conn *sql.DB
}

// New opens the database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/devcompass.db" → file-based database (persistent)
//   - ":memory:"           → in-memory database (tests)
//
// Each pooled connection to ":memory:" would see its own empty database, so
// the in-memory pool is pinned to a single connection. File databases get
// their pragmas through the DSN so that every pooled connection has them,
// not only the first.
func New(dbPath string) (*DB, error) {
	dsn := dbPath
	inMemory := dbPath == ":memory:"
	if !inMemory {
		dsn = "file:" + dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}
	if inMemory {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	if inMemory {
		if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
			conn.Close()
			return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
		}
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Ping checks that the database still answers.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates every table and index. Each statement is idempotent.
func (db *DB) migrate() error {
	steps := []struct {
		name string
		sql  string
	}{
		{"problems", `
			CREATE TABLE IF NOT EXISTS problems (
				id          TEXT PRIMARY KEY,
				platform    TEXT NOT NULL,
				external_id TEXT NOT NULL,
				title       TEXT NOT NULL,
				slug        TEXT NOT NULL,
				url         TEXT NOT NULL DEFAULT '',
				difficulty  TEXT,
				rating      INTEGER,
				tags        TEXT NOT NULL DEFAULT '[]',
				is_paid     INTEGER NOT NULL DEFAULT 0,
				is_neetcode INTEGER NOT NULL DEFAULT 0,
				is_striver  INTEGER NOT NULL DEFAULT 0,
				is_active   INTEGER NOT NULL DEFAULT 1,
				created_at  DATETIME NOT NULL,
				updated_at  DATETIME NOT NULL,
				UNIQUE (platform, external_id)
			);
			CREATE INDEX IF NOT EXISTS idx_problems_platform_rating ON problems(platform, rating);
			CREATE INDEX IF NOT EXISTS idx_problems_platform_slug ON problems(platform, slug);
		`},
		{"platform_handles", `
			CREATE TABLE IF NOT EXISTS platform_handles (
				id                 TEXT PRIMARY KEY,
				user_id            TEXT NOT NULL,
				platform           TEXT NOT NULL,
				handle             TEXT NOT NULL,
				url                TEXT NOT NULL DEFAULT '',
				verification_token TEXT,
				verified_at        DATETIME,
				last_synced_at     DATETIME,
				created_at         DATETIME NOT NULL,
				updated_at         DATETIME NOT NULL,
				UNIQUE (user_id, platform)
			);
		`},
		{"solved_problems", `
			CREATE TABLE IF NOT EXISTS solved_problems (
				id           TEXT PRIMARY KEY,
				user_id      TEXT NOT NULL,
				problem_slug TEXT NOT NULL,
				created_at   DATETIME NOT NULL,
				updated_at   DATETIME NOT NULL,
				UNIQUE (user_id, problem_slug)
			);
		`},
		{"github_profile_snapshots", `
			CREATE TABLE IF NOT EXISTS github_profile_snapshots (
				id                 TEXT PRIMARY KEY,
				user_id            TEXT NOT NULL,
				login              TEXT NOT NULL,
				repo_count         INTEGER NOT NULL,
				total_commits      INTEGER NOT NULL,
				total_stars        INTEGER NOT NULL DEFAULT 0,
				languages          TEXT NOT NULL DEFAULT '{}',
				repos_metadata     TEXT NOT NULL DEFAULT '[]',
				contribution_stats TEXT NOT NULL DEFAULT '{}',
				created_at         DATETIME NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_snapshots_user_created ON github_profile_snapshots(user_id, created_at);
		`},
		{"github_analysis", `
			CREATE TABLE IF NOT EXISTS github_analysis (
				id          TEXT PRIMARY KEY,
				user_id     TEXT NOT NULL,
				snapshot_id TEXT NOT NULL REFERENCES github_profile_snapshots(id),
				persona     TEXT NOT NULL,
				maturity    TEXT NOT NULL,
				axes        TEXT NOT NULL,
				focus_areas TEXT NOT NULL DEFAULT '[]',
				strengths   TEXT NOT NULL DEFAULT '[]',
				gaps        TEXT NOT NULL DEFAULT '[]',
				created_at  DATETIME NOT NULL,
				UNIQUE (user_id, snapshot_id)
			);
		`},
		// The partial unique index is what makes "one active recommendation
		// per (user, category, axis)" hold under concurrent generators.
		{"github_recommendations", `
			CREATE TABLE IF NOT EXISTS github_recommendations (
				id            TEXT PRIMARY KEY,
				user_id       TEXT NOT NULL,
				analysis_id   TEXT NOT NULL,
				category      TEXT NOT NULL,
				axis_targeted TEXT NOT NULL,
				title         TEXT NOT NULL,
				description   TEXT NOT NULL,
				priority      INTEGER NOT NULL DEFAULT 0,
				dismissed_at  DATETIME,
				completed_at  DATETIME,
				created_at    DATETIME NOT NULL
			);
			CREATE UNIQUE INDEX IF NOT EXISTS idx_github_recs_active_slot
				ON github_recommendations(user_id, category, axis_targeted)
				WHERE dismissed_at IS NULL AND completed_at IS NULL;
		`},
		{"ai_insights", `
			CREATE TABLE IF NOT EXISTS ai_insights (
				user_id      TEXT PRIMARY KEY,
				content      TEXT NOT NULL,
				generated_at DATETIME NOT NULL
			);
		`},
		{"user_profiles", `
			CREATE TABLE IF NOT EXISTS user_profiles (
				user_id    TEXT PRIMARY KEY,
				goal       TEXT NOT NULL DEFAULT '',
				updated_at DATETIME NOT NULL
			);
		`},
	}

	for _, step := range steps {
		if _, err := db.conn.Exec(step.sql); err != nil {
			return fmt.Errorf("creating %s table: %w", step.name, err)
		}
	}
	return nil
}

// jsonText marshals v for a JSON TEXT column. Nil slices become "[]".
func jsonText(v any) (string, error) {
	if s, ok := v.([]string); ok && s == nil {
		return "[]", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// fromJSONText unmarshals a JSON TEXT column into dst.
func fromJSONText(text string, dst any) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return json.Unmarshal([]byte(text), dst)
}

// boolInt converts a bool to SQLite's 0/1 integer representation.
func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isNotFound(err error) bool {
	return errors.Is(err, apperror.ErrNotFound)
}
