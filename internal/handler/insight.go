package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sakif/devcompass/internal/model"
)

// InsightProvider refreshes and reads AI coaching text.
// *service.InsightService implements it.
type InsightProvider interface {
	Refresh(ctx context.Context, userID string, force bool) (*model.Insight, error)
	Latest(ctx context.Context, userID string) (*model.Insight, error)
}

type InsightHandler struct {
	insights InsightProvider
	logger   *slog.Logger
}

func NewInsightHandler(insights InsightProvider, logger *slog.Logger) *InsightHandler {
	return &InsightHandler{insights: insights, logger: logger}
}

// HandleRefresh regenerates the caller's insight. ?force=true also drops
// cached stats first. Inside the cooldown window the answer is 429 with
// Retry-After.
//
// HTTP: POST /api/insights/refresh
func (h *InsightHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	force, _ := strconv.ParseBool(r.URL.Query().Get("force"))

	in, err := h.insights.Refresh(r.Context(), userID, force)
	if err != nil {
		h.logger.Warn("insight refresh failed", slog.String("user_id", userID), slog.String("error", err.Error()))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, in)
}

// HandleLatest
//
// HTTP: GET /api/insights
func (h *InsightHandler) HandleLatest(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	in, err := h.insights.Latest(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, in)
}
