package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sakif/devcompass/internal/service"
)

type DashboardBuilder interface {
	Build(ctx context.Context, userID string) (*service.Dashboard, error)
}

type DashboardHandler struct {
	dashboard DashboardBuilder
	logger    *slog.Logger
}

func NewDashboardHandler(dashboard DashboardBuilder, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard, logger: logger}
}

// HandleDashboard returns stats and recommendations for every verified
// platform. Platforms that fail upstream are left out, not reported as
// errors.
//
// HTTP: GET /api/dashboard
func (h *DashboardHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	d, err := h.dashboard.Build(r.Context(), userID)
	if err != nil {
		h.logger.Error("building dashboard", slog.String("user_id", userID), slog.String("error", err.Error()))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}
