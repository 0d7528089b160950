package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/devcompass/internal/model"
	"github.com/sakif/devcompass/internal/service"
)

// GithubTokenHeader optionally carries the caller's own GitHub token for
// the profile report, raising the upstream rate limit and exposing
// private contribution counts.
const GithubTokenHeader = "X-Github-Token"

// GithubAdvisor runs the GitHub profile pipeline.
// *service.GithubService implements it.
type GithubAdvisor interface {
	Run(ctx context.Context, userID, token string) (*service.GithubReport, error)
	Active(ctx context.Context, userID string) ([]model.GithubRecommendation, error)
	Dismiss(ctx context.Context, userID, id string) error
	Complete(ctx context.Context, userID, id string) error
}

type GithubHandler struct {
	github GithubAdvisor
	logger *slog.Logger
}

func NewGithubHandler(github GithubAdvisor, logger *slog.Logger) *GithubHandler {
	return &GithubHandler{github: github, logger: logger}
}

// HandleReport runs the snapshot → analysis → recommendation pipeline.
//
// HTTP: GET /api/github/report
func (h *GithubHandler) HandleReport(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	token := strings.TrimSpace(r.Header.Get(GithubTokenHeader))

	report, err := h.github.Run(r.Context(), userID, token)
	if err != nil {
		h.logger.Warn("github report failed", slog.String("user_id", userID), slog.String("error", err.Error()))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// HandleActive
//
// HTTP: GET /api/github/recommendations
func (h *GithubHandler) HandleActive(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	recs, err := h.github.Active(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	if recs == nil {
		recs = []model.GithubRecommendation{}
	}
	writeJSON(w, http.StatusOK, recs)
}

// HandleDismiss
//
// HTTP: POST /api/github/recommendations/{id}/dismiss
func (h *GithubHandler) HandleDismiss(w http.ResponseWriter, r *http.Request) {
	h.close(w, r, h.github.Dismiss)
}

// HandleComplete
//
// HTTP: POST /api/github/recommendations/{id}/complete
func (h *GithubHandler) HandleComplete(w http.ResponseWriter, r *http.Request) {
	h.close(w, r, h.github.Complete)
}

func (h *GithubHandler) close(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, userID, id string) error) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	if err := fn(r.Context(), userID, id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
