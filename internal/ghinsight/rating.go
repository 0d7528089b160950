package ghinsight

import (
	"math"

	"github.com/sakif/devcompass/internal/model"
)

// Rating places a GitHub profile on the same 0–3000 scale used by
// competitive programming sites so that it can sit next to them on the
// dashboard.
//
// Three components are each capped at 100:
//
//	consistency = totalContributions / 365 · 5
//	impact      = totalStars / 2
//	oss         = pullRequests · 5
//
// The weighted mean 0.3·consistency + 0.4·impact + 0.3·oss (0–100) is
// multiplied by 30 and floored.
type Rating struct {
	Value       int     `json:"value"`
	Tier        string  `json:"tier"`
	Consistency float64 `json:"consistency"`
	Impact      float64 `json:"impact"`
	OSS         float64 `json:"oss"`
}

const ratingScale = 30

var tiers = []struct {
	below int
	name  string
}{
	{1200, "Newbie"},
	{1400, "Pupil"},
	{1600, "Specialist"},
	{1900, "Expert"},
	{2100, "Candidate Master"},
	{2300, "Master"},
	{2400, "International Master"},
	{2600, "Grandmaster"},
}

// RateSnapshot computes the rating of a snapshot.
func RateSnapshot(snap *model.GithubProfileSnapshot) Rating {
	c := snap.ContributionStats
	consistency := math.Min(100, float64(c.TotalContributions)/365*5)
	impact := math.Min(100, float64(snap.TotalStars)/2)
	oss := math.Min(100, float64(c.PullRequests)*5)

	weighted := 0.3*consistency + 0.4*impact + 0.3*oss
	// The epsilon keeps float noise such as 28.999999 from losing a point.
	value := int(math.Floor(weighted*ratingScale + 1e-9))

	return Rating{
		Value:       value,
		Tier:        Tier(value),
		Consistency: consistency,
		Impact:      impact,
		OSS:         oss,
	}
}

// Tier names the band a 0–3000 rating falls into.
func Tier(rating int) string {
	for _, t := range tiers {
		if rating < t.below {
			return t.name
		}
	}
	return "Legendary Grandmaster"
}
