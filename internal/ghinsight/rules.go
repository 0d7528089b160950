package ghinsight

import (
	"slices"
	"sort"

	"github.com/sakif/devcompass/internal/model"
)

// MaxSuggestions is how many triggered rules are surfaced per evaluation.
const MaxSuggestions = 3

// Suggestion is the output of a rule before it is persisted.
type Suggestion struct {
	Priority     int    `json:"priority"`
	Category     string `json:"category"`
	AxisTargeted string `json:"axisTargeted"`
	Title        string `json:"title"`
	Description  string `json:"description"`
}

// Key identifies the (category, axis) slot a suggestion occupies. At most
// one active recommendation per user may hold a slot.
func (s Suggestion) Key() string {
	return s.Category + "/" + s.AxisTargeted
}

// Rule pairs a predicate over an analysis with the suggestion it yields.
// Lower Priority values are surfaced first.
type Rule struct {
	Priority int
	When     func(a *model.GithubAnalysis) bool
	Build    func() Suggestion
}

// Recommendation categories.
const (
	CategoryReinforcement      = "reinforcement"
	CategoryDepth              = "depth"
	CategoryMicroCollaboration = "micro_collaboration"
	CategoryMaintenance        = "maintenance"
)

// DefaultRules is the rule set evaluated by the GitHub pipeline.
var DefaultRules = []Rule{
	{
		Priority: 1,
		When:     func(a *model.GithubAnalysis) bool { return a.Axes.Consistency == model.LevelLow },
		Build: suggest(CategoryReinforcement, model.AxisConsistency,
			"Build a steady contribution rhythm",
			"Aim for a few small contributions each week. A sustainable pace beats occasional bursts."),
	},
	{
		Priority: 1,
		When:     func(a *model.GithubAnalysis) bool { return slices.Contains(a.Gaps, GapShallowProjects) },
		Build: suggest(CategoryDepth, model.AxisProjectDepth,
			"Take one repository to a v1 release",
			"Choose a single repository and finish it properly: a README, setup steps, stated goals and a short roadmap."),
	},
	{
		Priority: 2,
		When: func(a *model.GithubAnalysis) bool {
			return slices.Contains(a.FocusAreas, FocusWebDev) && a.Axes.Collaboration == model.LevelLow
		},
		Build: suggest(CategoryMicroCollaboration, model.AxisCollaboration,
			"Contribute to a web project you already use",
			"Open a small documentation fix or a well-described issue on a web library you depend on. No code required."),
	},
	{
		Priority: 3,
		When:     func(a *model.GithubAnalysis) bool { return a.Axes.Collaboration == model.LevelLow },
		Build: suggest(CategoryMicroCollaboration, model.AxisCollaboration,
			"Start with a small collaborative contribution",
			"Review a pull request, report a bug or tidy up docs in a repository you follow."),
	},
	{
		Priority: 3,
		When:     func(a *model.GithubAnalysis) bool { return slices.Contains(a.Gaps, GapLowVisibility) },
		Build: suggest(CategoryMaintenance, "visibility",
			"Make one project easy to discover",
			"Give one repository a clear description, topics and a demo link so visitors understand it at a glance."),
	},
	{
		Priority: 4,
		When:     func(a *model.GithubAnalysis) bool { return slices.Contains(a.Strengths, StrengthConsistent) },
		Build: suggest(CategoryReinforcement, model.AxisConsistency,
			"Keep your streak alive",
			"Your rhythm is working. Small regular improvements keep compounding."),
	},
	{
		Priority: 4,
		When:     func(a *model.GithubAnalysis) bool { return slices.Contains(a.Strengths, StrengthLanguageBreadth) },
		Build: suggest(CategoryReinforcement, "breadth",
			"Show off your language range",
			"Write a short note on why each project uses the language it does."),
	},
}

func suggest(category, axis, title, description string) func() Suggestion {
	return func() Suggestion {
		return Suggestion{Category: category, AxisTargeted: axis, Title: title, Description: description}
	}
}

// Evaluate returns the MaxSuggestions highest-priority suggestions whose
// rule matches a. Rules of equal priority keep their declaration order.
func Evaluate(rules []Rule, a *model.GithubAnalysis) []Suggestion {
	matched := make([]Rule, 0, len(rules))
	for _, r := range rules {
		if r.When(a) {
			matched = append(matched, r)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Priority < matched[j].Priority
	})
	if len(matched) > MaxSuggestions {
		matched = matched[:MaxSuggestions]
	}

	out := make([]Suggestion, 0, len(matched))
	for _, r := range matched {
		s := r.Build()
		s.Priority = r.Priority
		out = append(out, s)
	}
	return out
}
