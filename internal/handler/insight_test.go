package handler_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"github.com/sakif/devcompass/internal/apperror"
	"github.com/sakif/devcompass/internal/handler"
	"github.com/sakif/devcompass/internal/model"
	"github.com/sakif/devcompass/internal/service"
)

func insightRouter(m *mockInsights) http.Handler {
	h := handler.NewInsightHandler(m, testLogger())
	r := chi.NewRouter()
	r.Use(asUser("u1"))
	r.Post("/api/insights/refresh", h.HandleRefresh)
	r.Get("/api/insights", h.HandleLatest)
	return r
}

func TestInsightHandler_Refresh(t *testing.T) {
	m := &mockInsights{insight: &model.Insight{UserID: "u1", Content: "Practice graphs."}}

	rr := do(t, insightRouter(m), http.MethodPost, "/api/insights/refresh?force=true", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, m.gotForce)

	var got model.Insight
	decodeBody(t, rr, &got)
	assert.Equal(t, "Practice graphs.", got.Content)

	do(t, insightRouter(m), http.MethodPost, "/api/insights/refresh", "")
	assert.False(t, m.gotForce)
}

func TestInsightHandler_RefreshCooldown(t *testing.T) {
	m := &mockInsights{err: apperror.Cooldown(42 * time.Minute)}

	rr := do(t, insightRouter(m), http.MethodPost, "/api/insights/refresh", "")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "2520", rr.Header().Get("Retry-After"))
}

func TestDashboardHandler(t *testing.T) {
	t.Run("builds for the caller", func(t *testing.T) {
		d := &service.Dashboard{Sections: map[model.Platform]service.Section{}}
		h := handler.NewDashboardHandler(&mockDashboard{d: d}, testLogger())
		r := chi.NewRouter()
		r.Use(asUser("u7"))
		r.Get("/api/dashboard", h.HandleDashboard)

		rr := do(t, r, http.MethodGet, "/api/dashboard", "")
		assert.Equal(t, http.StatusOK, rr.Code)
		var got service.Dashboard
		decodeBody(t, rr, &got)
		assert.Equal(t, "u7", got.UserID)
	})

	t.Run("storage failure", func(t *testing.T) {
		h := handler.NewDashboardHandler(&mockDashboard{err: assert.AnError}, testLogger())
		r := chi.NewRouter()
		r.Use(asUser("u7"))
		r.Get("/api/dashboard", h.HandleDashboard)

		rr := do(t, r, http.MethodGet, "/api/dashboard", "")
		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})
}
