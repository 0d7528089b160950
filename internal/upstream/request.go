package upstream

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/sakif/devcompass/internal/apperror"
)

func getRequest(url string, header http.Header) RequestFunc {
	return func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		for k, vs := range header {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}
		return req, nil
	}
}

// postJSONRequest encodes payload once and replays it on every attempt.
func postJSONRequest(url string, payload any, header http.Header) (RequestFunc, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("upstream: encoding request: %w", err)
	}
	return func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		for k, vs := range header {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}
		return req, nil
	}, nil
}

// decode unmarshals a response body, mapping malformed payloads to
// Unavailable.
func decode(provider string, resp *Response, v any) error {
	if err := json.Unmarshal(resp.Body, v); err != nil {
		return apperror.Unavailable(provider, fmt.Errorf("decoding response (HTTP %d): %w", resp.StatusCode, err))
	}
	return nil
}

// graphQLRequest is the standard GraphQL POST body.
type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLError struct {
	Message string `json:"message"`
	Type    string `json:"type,omitempty"`
}

// graphQL posts a query and decodes its data member into out. GraphQL
// errors are returned alongside whatever data arrived so the caller can
// decide whether a null field means "not found".
func graphQL(ctx context.Context, c *Caller, client *http.Client, endpoint string, header http.Header,
	query string, vars map[string]any, out any) ([]graphQLError, error) {

	build, err := postJSONRequest(endpoint, graphQLRequest{Query: query, Variables: vars}, header)
	if err != nil {
		return nil, err
	}
	resp, err := c.DoWith(ctx, client, build)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apperror.Unavailable(c.Provider(), fmt.Errorf("graphql HTTP %d", resp.StatusCode))
	}

	envelope := struct {
		Data   json.RawMessage `json:"data"`
		Errors []graphQLError  `json:"errors"`
	}{}
	if err := decode(c.Provider(), resp, &envelope); err != nil {
		return nil, err
	}
	if len(envelope.Data) == 0 || string(envelope.Data) == "null" {
		if len(envelope.Errors) > 0 {
			return envelope.Errors, apperror.Unavailable(c.Provider(), fmt.Errorf("graphql: %s", envelope.Errors[0].Message))
		}
		return nil, apperror.Unavailable(c.Provider(), fmt.Errorf("graphql: empty data"))
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return envelope.Errors, apperror.Unavailable(c.Provider(), fmt.Errorf("decoding graphql data: %w", err))
	}
	return envelope.Errors, nil
}

func httpStatusError(code int) error {
	return fmt.Errorf("unexpected HTTP %d", code)
}
