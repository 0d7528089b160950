package handler_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"github.com/sakif/devcompass/internal/apperror"
	"github.com/sakif/devcompass/internal/handler"
	"github.com/sakif/devcompass/internal/model"
)

func handleRouter(m *mockHandles) http.Handler {
	h := handler.NewHandleHandler(m, testLogger())
	r := chi.NewRouter()
	r.Use(asUser("u1"))
	r.Get("/api/handles", h.HandleList)
	r.Put("/api/handles/{platform}", h.HandleLink)
	r.Post("/api/handles/{platform}/token", h.HandleIssueToken)
	r.Post("/api/handles/{platform}/verify", h.HandleVerify)
	return r
}

func TestHandleHandler_List(t *testing.T) {
	t.Run("no handles is an empty array", func(t *testing.T) {
		m := &mockHandles{list: func(context.Context, string) ([]model.PlatformHandle, error) { return nil, nil }}
		rr := do(t, handleRouter(m), http.MethodGet, "/api/handles", "")

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `[]`, rr.Body.String())
	})

	t.Run("lists the caller's handles", func(t *testing.T) {
		var gotUser string
		m := &mockHandles{list: func(_ context.Context, userID string) ([]model.PlatformHandle, error) {
			gotUser = userID
			return []model.PlatformHandle{{Platform: model.PlatformCodeforces, Handle: "tourist"}}, nil
		}}
		rr := do(t, handleRouter(m), http.MethodGet, "/api/handles", "")

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "u1", gotUser)
		var got []model.PlatformHandle
		decodeBody(t, rr, &got)
		assert.Equal(t, "tourist", got[0].Handle)
	})
}

func TestHandleHandler_Link(t *testing.T) {
	var gotPlatform model.Platform
	var gotHandle string
	m := &mockHandles{link: func(_ context.Context, _ string, p model.Platform, handle string) (*model.PlatformHandle, error) {
		gotPlatform, gotHandle = p, handle
		if handle == "" {
			return nil, apperror.ValidationFailed("handle", "handle is required")
		}
		return &model.PlatformHandle{Platform: p, Handle: handle}, nil
	}}
	r := handleRouter(m)

	tests := []struct {
		name       string
		path       string
		body       string
		wantStatus int
	}{
		{"links", "/api/handles/LeetCode", `{"handle":"neal"}`, http.StatusOK},
		{"unknown platform", "/api/handles/topcoder", `{"handle":"neal"}`, http.StatusBadRequest},
		{"bad json", "/api/handles/leetcode", `{"handle":`, http.StatusBadRequest},
		{"empty body", "/api/handles/leetcode", ``, http.StatusBadRequest},
		{"service validation", "/api/handles/leetcode", `{"handle":""}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, r, http.MethodPut, tt.path, tt.body)
			assert.Equal(t, tt.wantStatus, rr.Code, rr.Body.String())
		})
	}

	do(t, r, http.MethodPut, "/api/handles/LeetCode", `{"handle":"neal"}`)
	assert.Equal(t, model.PlatformLeetCode, gotPlatform, "platform parsing ignores case")
	assert.Equal(t, "neal", gotHandle)
}

func TestHandleHandler_IssueTokenAndVerify(t *testing.T) {
	m := &mockHandles{
		issueToken: func(_ context.Context, _ string, p model.Platform) (string, error) {
			if p == model.PlatformAtCoder {
				return "", apperror.ValidationFailed("platform", "atcoder cannot be verified with a token")
			}
			return "DEVCOMPASS-ABCD1234", nil
		},
		verify: func(_ context.Context, _ string, p model.Platform) (*model.PlatformHandle, error) {
			return nil, apperror.ValidationFailed("token", "verification token not found on profile")
		},
	}
	r := handleRouter(m)

	rr := do(t, r, http.MethodPost, "/api/handles/codeforces/token", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	var tok struct {
		Platform     string `json:"platform"`
		Token        string `json:"token"`
		Instructions string `json:"instructions"`
	}
	decodeBody(t, rr, &tok)
	assert.Equal(t, "DEVCOMPASS-ABCD1234", tok.Token)
	assert.Contains(t, tok.Instructions, "Organization")

	rr = do(t, r, http.MethodPost, "/api/handles/atcoder/token", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, r, http.MethodPost, "/api/handles/codeforces/verify", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
