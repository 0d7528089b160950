// Package ghinsight turns a GitHub profile into a snapshot, derives an
// analysis from the snapshot, and evaluates the recommendation rules
// against the analysis. Everything here is a pure function; persistence
// and memoization live in the service layer.
package ghinsight

import (
	"time"

	"github.com/sakif/devcompass/internal/model"
)

// SnapshotTTL is how long a snapshot is reused before a fresh ingestion.
const SnapshotTTL = 24 * time.Hour

// Fresh reports whether snap is recent enough to be reused at now.
func Fresh(snap *model.GithubProfileSnapshot, now time.Time) bool {
	return snap != nil && now.Sub(snap.CreatedAt) < SnapshotTTL
}

// BuildSnapshot normalizes live profile data into snapshot shape.
//
// Archived repositories are left out of RepoCount and ReposMetadata but
// still count toward TotalCommits, TotalStars and Languages, which describe
// everything the user ever wrote.
func BuildSnapshot(userID string, stats *model.GithubStats) *model.GithubProfileSnapshot {
	snap := &model.GithubProfileSnapshot{
		UserID:        userID,
		Login:         stats.Login,
		TotalStars:    stats.TotalStars(),
		Languages:     make(map[string]int64),
		ReposMetadata: make([]model.RepoMeta, 0, len(stats.Repos)),
	}

	for _, repo := range stats.Repos {
		snap.TotalCommits += repo.Commits
		for _, edge := range repo.Languages {
			snap.Languages[edge.Name] += edge.Size
		}
		if repo.IsArchived {
			continue
		}
		snap.ReposMetadata = append(snap.ReposMetadata, model.RepoMeta{
			Name:            repo.Name,
			Stars:           repo.Stars,
			Commits:         repo.Commits,
			PrimaryLanguage: PrimaryLanguage(repo.Languages),
			IsFork:          repo.IsFork,
			CreatedAt:       repo.CreatedAt,
			PushedAt:        repo.PushedAt,
		})
	}
	snap.RepoCount = len(snap.ReposMetadata)

	snap.ContributionStats = model.ContributionStats{
		TotalContributions: stats.TotalContributions,
		PullRequests:       stats.PullRequests,
		Reviews:            stats.Reviews,
		Issues:             stats.Issues,
		ActiveDays:         ActiveDays(stats.Calendar),
	}
	return snap
}

// PrimaryLanguage is the language edge with the most bytes. The first edge
// wins a tie. Empty when the repository reports no languages.
func PrimaryLanguage(edges []model.LanguageEdge) string {
	best := ""
	var bestSize int64 = -1
	for _, e := range edges {
		if e.Size > bestSize {
			best, bestSize = e.Name, e.Size
		}
	}
	return best
}

// ActiveDays counts distinct calendar days with at least one contribution.
func ActiveDays(days []model.ContributionDay) int {
	seen := make(map[string]struct{}, len(days))
	for _, d := range days {
		if d.Count > 0 {
			seen[d.Date] = struct{}{}
		}
	}
	return len(seen)
}
