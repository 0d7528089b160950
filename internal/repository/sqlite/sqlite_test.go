package sqlite

import (
	"context"
	"testing"

	"github.com/sakif/devcompass/internal/model"
)

// newTestDB returns an in-memory database that is closed when the test ends.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func intPtr(n int) *int { return &n }

func diffPtr(d model.Difficulty) *model.Difficulty { return &d }

func cfProblem(id string, rating int, tags ...string) model.Problem {
	return model.Problem{
		Platform:   model.PlatformCodeforces,
		ExternalID: id,
		Title:      "Problem " + id,
		Slug:       id,
		URL:        "https://codeforces.com/problemset/problem/" + id,
		Rating:     intPtr(rating),
		Difficulty: diffPtr(model.DifficultyFromRating(rating)),
		Tags:       tags,
	}
}

func lcProblem(slug string, d model.Difficulty, tags ...string) model.Problem {
	return model.Problem{
		Platform:   model.PlatformLeetCode,
		ExternalID: slug,
		Title:      slug,
		Slug:       slug,
		URL:        "https://leetcode.com/problems/" + slug,
		Difficulty: diffPtr(d),
		Tags:       tags,
	}
}

func seedProblems(t *testing.T, db *DB, problems ...model.Problem) {
	t.Helper()
	if _, err := db.UpsertBatch(context.Background(), problems); err != nil {
		t.Fatalf("seeding problems: %v", err)
	}
}

func TestNew_MigrationsAreIdempotent(t *testing.T) {
	db := newTestDB(t)
	if err := db.migrate(); err != nil {
		t.Fatalf("second migrate() error = %v", err)
	}
}
