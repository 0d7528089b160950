package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/devcompass/internal/model"
)

// HandleManager links and verifies platform accounts.
// *service.HandleService implements it.
type HandleManager interface {
	List(ctx context.Context, userID string) ([]model.PlatformHandle, error)
	Link(ctx context.Context, userID string, platform model.Platform, handle string) (*model.PlatformHandle, error)
	IssueToken(ctx context.Context, userID string, platform model.Platform) (string, error)
	Verify(ctx context.Context, userID string, platform model.Platform) (*model.PlatformHandle, error)
	MarkVerified(ctx context.Context, userID string, platform model.Platform) error
}

type HandleHandler struct {
	handles HandleManager
	logger  *slog.Logger
}

func NewHandleHandler(handles HandleManager, logger *slog.Logger) *HandleHandler {
	return &HandleHandler{handles: handles, logger: logger}
}

type linkHandleRequest struct {
	Handle string `json:"handle"`
}

type tokenResponse struct {
	Platform model.Platform `json:"platform"`
	Token    string         `json:"token"`
	// Instructions tells the user where on their profile to put Token.
	Instructions string `json:"instructions"`
}

// HandleList returns every linked handle of the caller.
//
// HTTP: GET /api/handles
func (h *HandleHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	handles, err := h.handles.List(r.Context(), userID)
	if err != nil {
		h.logger.Error("listing handles", slog.String("user_id", userID), slog.String("error", err.Error()))
		writeError(w, err)
		return
	}
	if handles == nil {
		handles = []model.PlatformHandle{}
	}
	writeJSON(w, http.StatusOK, handles)
}

// HandleLink links (or re-links) the caller's account on a platform.
//
// HTTP: PUT /api/handles/{platform}   body: {"handle": "tourist"}
func (h *HandleHandler) HandleLink(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	platform, err := platformParam(chi.URLParam(r, "platform"))
	if err != nil {
		writeError(w, err)
		return
	}
	var req linkHandleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	handle, err := h.handles.Link(r.Context(), userID, platform, req.Handle)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, handle)
}

// HandleIssueToken issues a fresh verification token.
//
// HTTP: POST /api/handles/{platform}/token
func (h *HandleHandler) HandleIssueToken(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	platform, err := platformParam(chi.URLParam(r, "platform"))
	if err != nil {
		writeError(w, err)
		return
	}

	token, err := h.handles.IssueToken(r.Context(), userID, platform)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{
		Platform:     platform,
		Token:        token,
		Instructions: instructions(platform),
	})
}

// HandleVerify checks the profile for the issued token.
//
// HTTP: POST /api/handles/{platform}/verify
func (h *HandleHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	platform, err := platformParam(chi.URLParam(r, "platform"))
	if err != nil {
		writeError(w, err)
		return
	}

	handle, err := h.handles.Verify(r.Context(), userID, platform)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, handle)
}

func instructions(p model.Platform) string {
	switch p {
	case model.PlatformCodeforces:
		return "Put the token in the First name, Last name or Organization field of your Codeforces profile, then verify."
	case model.PlatformLeetCode:
		return "Put the token in the Summary (About me) of your LeetCode profile, then verify."
	case model.PlatformGitHub:
		return "Put the token in your GitHub bio, then verify. Signing in with GitHub verifies automatically."
	}
	return "Place the token on your public profile, then verify."
}
