package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/devcompass/internal/model"
	"github.com/sakif/devcompass/internal/service"
)

// ProfileManager reads and updates the caller's settings.
// *service.ProfileService implements it.
type ProfileManager interface {
	Get(ctx context.Context, userID string) (*model.Profile, error)
	SetGoal(ctx context.Context, userID string, req service.GoalRequest) (*model.Profile, error)
}

// StatsLookup returns the public stats of any handle.
// *service.LookupService implements it.
type StatsLookup interface {
	Lookup(ctx context.Context, platform model.Platform, handle string) (*service.LookupResult, error)
}

type ProfileHandler struct {
	profiles ProfileManager
	lookup   StatsLookup
	logger   *slog.Logger
}

func NewProfileHandler(profiles ProfileManager, lookup StatsLookup, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, lookup: lookup, logger: logger}
}

// HTTP: GET /api/profile
func (h *ProfileHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	p, err := h.profiles.Get(r.Context(), userID)
	if err != nil {
		h.logger.Error("loading profile", slog.String("user_id", userID), slog.String("error", err.Error()))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HandleSetGoal stores the caller's career goal.
//
// HTTP: PUT /api/profile/goal   body: {"goal": "Backend engineer"}
func (h *ProfileHandler) HandleSetGoal(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req service.GoalRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	p, err := h.profiles.SetGoal(r.Context(), userID, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HandleLookup returns the stats of someone else's handle, for comparison.
//
// HTTP: GET /api/stats/{platform}/{handle}
func (h *ProfileHandler) HandleLookup(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}
	platform, err := platformParam(chi.URLParam(r, "platform"))
	if err != nil {
		writeError(w, err)
		return
	}
	result, err := h.lookup.Lookup(r.Context(), platform, chi.URLParam(r, "handle"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
