// Package weakness ranks the topic tags a user struggles with, one analyzer
// per platform. Empty or missing input always yields an empty result.
package weakness

import (
	"sort"

	"github.com/sakif/devcompass/internal/model"
	"github.com/sakif/devcompass/internal/tags"
)

// Weakness is one weak tag plus the numbers that made it weak.
type Weakness struct {
	Tag string `json:"tag"`

	// Codeforces evidence.
	Failed int     `json:"failed,omitempty"`
	Total  int     `json:"total,omitempty"`
	Rate   float64 `json:"rate,omitempty"`

	// LeetCode evidence.
	Tier      string `json:"tier,omitempty"`
	Solved    int    `json:"solved,omitempty"`
	Threshold int    `json:"threshold,omitempty"`
}

const (
	// MinSamples is the number of attempts a tag needs before its failure
	// rate is trusted. A tag must have strictly more attempts than this.
	MinSamples = 5

	// MaxCodeforces caps the Codeforces weakness list.
	MaxCodeforces = 5

	excludedTag = "implementation"
)

// LeetCode tier thresholds: a tag is weak while its solved count is below.
const (
	FundamentalThreshold  = 10
	IntermediateThreshold = 8
	AdvancedThreshold     = 5
)

// Codeforces computes per-tag failure rates over a submission history and
// returns the MaxCodeforces tags with the highest rate. Tags are normalized
// before counting and "implementation" is ignored.
func Codeforces(subs []model.CodeforcesSubmission) []Weakness {
	type counter struct{ total, failed int }
	counts := make(map[string]*counter)

	for _, s := range subs {
		for _, raw := range s.Tags {
			tag := tags.Normalize(raw)
			if tag == "" || tag == excludedTag {
				continue
			}
			c, ok := counts[tag]
			if !ok {
				c = &counter{}
				counts[tag] = c
			}
			c.total++
			if s.Verdict != model.VerdictOK {
				c.failed++
			}
		}
	}

	out := make([]Weakness, 0, len(counts))
	for tag, c := range counts {
		if c.total <= MinSamples {
			continue
		}
		out = append(out, Weakness{
			Tag:    tag,
			Failed: c.failed,
			Total:  c.total,
			Rate:   float64(c.failed) / float64(c.total),
		})
	}

	// Map iteration is random; break rate ties on sample size then name so
	// the output is reproducible.
	sort.Slice(out, func(i, j int) bool {
		if out[i].Rate != out[j].Rate {
			return out[i].Rate > out[j].Rate
		}
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].Tag < out[j].Tag
	})

	if len(out) > MaxCodeforces {
		out = out[:MaxCodeforces]
	}
	return out
}

// LeetCode flags every skill tag whose solved count is below its tier's
// threshold. Tags are returned as reported by LeetCode (tag slugs); pass
// them through Tags and tags.NormalizeAll before scoring.
func LeetCode(skills model.SkillTags) []Weakness {
	out := make([]Weakness, 0)
	collect := func(tier string, threshold int, counts []model.TagCount) {
		for _, tc := range counts {
			if tc.ProblemsSolved >= threshold {
				continue
			}
			slug := tc.TagSlug
			if slug == "" {
				slug = tc.TagName
			}
			out = append(out, Weakness{
				Tag:       slug,
				Tier:      tier,
				Solved:    tc.ProblemsSolved,
				Threshold: threshold,
			})
		}
	}
	collect("fundamental", FundamentalThreshold, skills.Fundamental)
	collect("intermediate", IntermediateThreshold, skills.Intermediate)
	collect("advanced", AdvancedThreshold, skills.Advanced)
	return out
}

// Tags extracts the tag names in order.
func Tags(ws []Weakness) []string {
	out := make([]string, 0, len(ws))
	for _, w := range ws {
		out = append(out, w.Tag)
	}
	return out
}
