package ghinsight

import (
	"strings"

	"github.com/sakif/devcompass/internal/model"
)

// Focus, gap and strength tags.
const (
	FocusWebDev         = "web_dev"
	FocusDataOrBackend  = "data_or_backend"
	FocusSystems        = "systems"
	FocusCompetitive    = "competitive_programming"
	FocusBackend        = "backend"
	FocusFrontend       = "frontend"
	FocusPublicProjects = "public_projects"
	FocusLongLived      = "long_lived_projects"

	GapLowCollaboration = "low_collaboration"
	GapShallowProjects  = "shallow_projects"
	GapLowVisibility    = "low_visibility"
	GapNoCodeReviews    = "no_code_reviews"

	StrengthConsistent      = "consistent_contributor"
	StrengthDeepOwnership   = "deep_project_ownership"
	StrengthActiveCollab    = "active_collaborator"
	StrengthLanguageBreadth = "language_breadth"
)

// Analyze derives persona, maturity, axes and tag sets from a snapshot.
// The returned analysis carries the snapshot and user ids but no id of its
// own.
func Analyze(snap *model.GithubProfileSnapshot) *model.GithubAnalysis {
	commits := snap.TotalCommits
	activeDays := snap.ContributionStats.ActiveDays
	prs := snap.ContributionStats.PullRequests

	persona := model.PersonaExplorer
	if snap.RepoCount >= 5 && commits > 500 {
		persona = model.PersonaBuilder
	}
	if anyRepo(snap.ReposMetadata, func(r model.RepoMeta) bool { return r.Stars > 50 }) {
		persona = model.PersonaMaintainer
	}

	maturity := model.MaturityEarly
	if commits > 300 {
		maturity = model.MaturityGrowing
	}
	if commits > 1000 && activeDays > 150 {
		maturity = model.MaturityEstablished
	}

	axes := model.Axes{
		Consistency:   model.LevelLow,
		Collaboration: model.LevelLow,
		ProjectDepth:  model.LevelMedium,
	}
	switch {
	case activeDays > 150:
		axes.Consistency = model.LevelHigh
	case activeDays > 60:
		axes.Consistency = model.LevelMedium
	}
	if prs > 20 {
		axes.Collaboration = model.LevelMedium
	}
	if anyRepo(snap.ReposMetadata, func(r model.RepoMeta) bool { return r.Commits > 300 }) {
		axes.ProjectDepth = model.LevelHigh
	}

	focus := union(focusFromLanguages(snap.Languages), focusFromRepos(snap.ReposMetadata))

	return &model.GithubAnalysis{
		UserID:     snap.UserID,
		SnapshotID: snap.ID,
		Persona:    persona,
		Maturity:   maturity,
		Axes:       axes,
		FocusAreas: focus,
		Gaps:       gaps(snap, axes),
		Strengths:  strengths(snap, axes),
	}
}

func focusFromLanguages(langs map[string]int64) []string {
	var total int64
	for _, size := range langs {
		total += size
	}
	out := make([]string, 0)
	if total == 0 {
		return out
	}
	share := func(names ...string) float64 {
		var sum int64
		for _, n := range names {
			sum += langs[n]
		}
		return float64(sum) / float64(total)
	}

	if share("TypeScript", "JavaScript") > 0.4 {
		out = append(out, FocusWebDev)
	}
	if share("Python") > 0.3 {
		out = append(out, FocusDataOrBackend)
	}
	if share("Go", "Rust", "C") > 0.25 {
		out = append(out, FocusSystems)
	}
	if share("C++") > 0.3 {
		out = append(out, FocusCompetitive)
	}
	return out
}

func focusFromRepos(repos []model.RepoMeta) []string {
	out := make([]string, 0)
	nameHas := func(words ...string) func(model.RepoMeta) bool {
		return func(r model.RepoMeta) bool {
			name := strings.ToLower(r.Name)
			for _, w := range words {
				if strings.Contains(name, w) {
					return true
				}
			}
			return false
		}
	}

	if anyRepo(repos, nameHas("api", "backend")) {
		out = append(out, FocusBackend)
	}
	if anyRepo(repos, nameHas("frontend", "ui")) {
		out = append(out, FocusFrontend)
	}
	if anyRepo(repos, func(r model.RepoMeta) bool { return r.Stars > 20 }) {
		out = append(out, FocusPublicProjects)
	}
	if anyRepo(repos, func(r model.RepoMeta) bool { return r.Commits > 200 }) {
		out = append(out, FocusLongLived)
	}
	return out
}

func gaps(snap *model.GithubProfileSnapshot, axes model.Axes) []string {
	out := make([]string, 0)
	if axes.Collaboration == model.LevelLow && snap.RepoCount > 3 {
		out = append(out, GapLowCollaboration)
	}
	if axes.ProjectDepth != model.LevelHigh && snap.RepoCount > 5 {
		out = append(out, GapShallowProjects)
	}
	if !anyRepo(snap.ReposMetadata, func(r model.RepoMeta) bool { return r.Stars > 0 }) {
		out = append(out, GapLowVisibility)
	}
	if snap.ContributionStats.Reviews == 0 && snap.ContributionStats.PullRequests > 10 {
		out = append(out, GapNoCodeReviews)
	}
	return out
}

func strengths(snap *model.GithubProfileSnapshot, axes model.Axes) []string {
	out := make([]string, 0)
	if axes.Consistency == model.LevelHigh {
		out = append(out, StrengthConsistent)
	}
	if axes.ProjectDepth == model.LevelHigh {
		out = append(out, StrengthDeepOwnership)
	}
	if snap.ContributionStats.PullRequests > 20 {
		out = append(out, StrengthActiveCollab)
	}
	if len(snap.Languages) >= 4 {
		out = append(out, StrengthLanguageBreadth)
	}
	return out
}

func anyRepo(repos []model.RepoMeta, pred func(model.RepoMeta) bool) bool {
	for _, r := range repos {
		if pred(r) {
			return true
		}
	}
	return false
}

func union(lists ...[]string) []string {
	out := make([]string, 0)
	seen := make(map[string]struct{})
	for _, l := range lists {
		for _, s := range l {
			if _, ok := seen[s]; ok {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}
