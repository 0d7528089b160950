package upstream

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/sakif/devcompass/internal/apperror"
)

// InsightSecretHeader carries the shared webhook secret.
const InsightSecretHeader = "x-secret-key"

// InsightClient posts a user's stats to the insight generation webhook and
// returns the generated text.
type InsightClient struct {
	caller *Caller
	url    string
	secret string
}

func NewInsightClient(caller *Caller, url, secret string) *InsightClient {
	return &InsightClient{caller: caller, url: url, secret: secret}
}

type insightRequest struct {
	UserID string `json:"userId"`
	Stats  any    `json:"stats"`
}

// Generate sends {"userId", "stats"} as JSON.
//
// Workflow engines usually answer with a one-element array such as
// [{"summary": "..."}]; the first element is used. An object's "insight",
// "summary" or "output" string wins, a JSON string is taken as is, any
// other JSON value is kept as its compact text, and a non-JSON body is
// taken as plain text.
func (c *InsightClient) Generate(ctx context.Context, userID string, stats any) (string, error) {
	if c.url == "" {
		return "", apperror.Unavailable(c.caller.Provider(), errors.New("insight webhook not configured"))
	}
	var header http.Header
	if c.secret != "" {
		header = http.Header{}
		header.Set(InsightSecretHeader, c.secret)
	}
	build, err := postJSONRequest(c.url, insightRequest{UserID: userID, Stats: stats}, header)
	if err != nil {
		return "", err
	}
	resp, err := c.caller.Do(ctx, build)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", apperror.Unavailable(c.caller.Provider(), httpStatusError(resp.StatusCode))
	}

	text := insightText(resp.Body)
	if text == "" {
		return "", apperror.Unavailable(c.caller.Provider(), errors.New("empty insight"))
	}
	return text, nil
}

func insightText(body []byte) string {
	raw := bytes.TrimSpace(body)
	if !json.Valid(raw) {
		return strings.TrimSpace(string(raw))
	}

	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil {
		if len(list) == 0 {
			return ""
		}
		raw = bytes.TrimSpace(list[0])
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err == nil {
		for _, key := range []string{"insight", "summary", "output"} {
			if err := json.Unmarshal(obj[key], &s); err == nil && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
	}
	if string(raw) == "null" {
		return ""
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, raw); err != nil {
		return string(raw)
	}
	return compact.String()
}
