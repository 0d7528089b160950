package upstream

import (
	"context"
	"net/http"
	"net/url"

	"github.com/sakif/devcompass/internal/apperror"
	"github.com/sakif/devcompass/internal/model"
)

const (
	DefaultAtCoderBaseURL  = "https://atcoder.jp"
	DefaultKenkooooBaseURL = "https://kenkoooo.com/atcoder/atcoder-api"
)

// AtCoderClient combines the official contest history with the community
// problems API for solve counts.
type AtCoderClient struct {
	caller   *Caller
	baseURL  string
	statsURL string
}

func NewAtCoderClient(caller *Caller, baseURL, statsURL string) *AtCoderClient {
	if baseURL == "" {
		baseURL = DefaultAtCoderBaseURL
	}
	if statsURL == "" {
		statsURL = DefaultKenkooooBaseURL
	}
	return &AtCoderClient{caller: caller, baseURL: baseURL, statsURL: statsURL}
}

type acHistoryEntry struct {
	IsRated   bool `json:"IsRated"`
	NewRating int  `json:"NewRating"`
}

// FetchStats returns rating, contest and solve counts for handle. A user
// with no contest history who is also unknown to the stats API is NotFound.
func (c *AtCoderClient) FetchStats(ctx context.Context, handle string) (*model.AtCoderStats, error) {
	esc := url.PathEscape(handle)
	resp, err := c.caller.Do(ctx, getRequest(c.baseURL+"/users/"+esc+"/history/json", nil))
	if err != nil {
		return nil, err
	}
	historyMissing := resp.StatusCode == http.StatusNotFound
	var history []acHistoryEntry
	if !historyMissing {
		if resp.StatusCode != http.StatusOK {
			return nil, apperror.Unavailable(c.caller.Provider(), httpStatusError(resp.StatusCode))
		}
		if err := decode(c.caller.Provider(), resp, &history); err != nil {
			return nil, err
		}
	}

	stats := &model.AtCoderStats{Handle: handle}
	for _, h := range history {
		if !h.IsRated {
			continue
		}
		stats.Contests++
		stats.Rating = h.NewRating
		stats.HighestRating = max(stats.HighestRating, h.NewRating)
	}

	q := url.Values{"user": {handle}}
	resp, err = c.caller.Do(ctx, getRequest(c.statsURL+"/v3/user/ac_rank?"+q.Encode(), nil))
	if err != nil {
		return nil, err
	}
	switch resp.StatusCode {
	case http.StatusOK:
		var rank struct {
			Count int `json:"count"`
		}
		if err := decode(c.caller.Provider(), resp, &rank); err != nil {
			return nil, err
		}
		stats.AcceptedCount = rank.Count
	case http.StatusNotFound, http.StatusBadRequest:
		if len(history) == 0 {
			return nil, apperror.NotFound("atcoder user", handle)
		}
	default:
		return nil, apperror.Unavailable(c.caller.Provider(), httpStatusError(resp.StatusCode))
	}

	q.Set("from_second", "0")
	resp, err = c.caller.Do(ctx, getRequest(c.statsURL+"/v3/user/submissions?"+q.Encode(), nil))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusOK {
		var subs []struct {
			ID int64 `json:"id"`
		}
		if err := decode(c.caller.Provider(), resp, &subs); err != nil {
			return nil, err
		}
		stats.SubmissionCount = len(subs)
	}
	return stats, nil
}
