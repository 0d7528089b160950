package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/sakif/devcompass/internal/apperror"
	"github.com/sakif/devcompass/internal/service"
)

// Recommender builds per-platform problem recommendations.
// *service.RecommendationService implements it.
type Recommender interface {
	Codeforces(ctx context.Context, userID string) (*service.CodeforcesRecommendations, error)
	LeetCode(ctx context.Context, userID string) (*service.LeetCodeRecommendations, error)
}

// BulkImporter adds already solved problems to the LeetCode ledger.
// *service.LedgerService implements it.
type BulkImporter interface {
	BulkImport(ctx context.Context, userID string, req service.BulkImportRequest) (*service.BulkImportResult, error)
}

type RecommendationHandler struct {
	recs   Recommender
	ledger BulkImporter
	logger *slog.Logger
}

func NewRecommendationHandler(recs Recommender, ledger BulkImporter, logger *slog.Logger) *RecommendationHandler {
	return &RecommendationHandler{recs: recs, ledger: ledger, logger: logger}
}

// HandleCodeforces
//
// HTTP: GET /api/recommendations/codeforces
func (h *RecommendationHandler) HandleCodeforces(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	recs, err := h.recs.Codeforces(r.Context(), userID)
	if err != nil {
		h.logger.Warn("codeforces recommendations failed",
			slog.String("user_id", userID), slog.String("error", err.Error()))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

// HandleLeetCode also reconciles the solved ledger; the response carries
// the sync result.
//
// HTTP: GET /api/recommendations/leetcode
func (h *RecommendationHandler) HandleLeetCode(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	recs, err := h.recs.LeetCode(r.Context(), userID)
	if err != nil {
		h.logger.Warn("leetcode recommendations failed",
			slog.String("user_id", userID), slog.String("error", err.Error()))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

// bulkImportBody accepts any JSON values in slugs; entries that are not
// strings are dropped before validation.
type bulkImportBody struct {
	Slugs []any `json:"slugs"`
}

func (b bulkImportBody) request() (service.BulkImportRequest, error) {
	if len(b.Slugs) > service.MaxBulkSlugs {
		return service.BulkImportRequest{}, apperror.ValidationFailed("slugs",
			fmt.Sprintf("at most %d slugs per import", service.MaxBulkSlugs))
	}
	slugs := make([]string, 0, len(b.Slugs))
	for _, v := range b.Slugs {
		if s, ok := v.(string); ok {
			slugs = append(slugs, s)
		}
	}
	return service.BulkImportRequest{Slugs: slugs}, nil
}

// HandleBulkImport
//
// HTTP: POST /api/leetcode/bulk-import   body: {"slugs": ["two-sum", ...]}
func (h *RecommendationHandler) HandleBulkImport(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var body bulkImportBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}
	req, err := body.request()
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := h.ledger.BulkImport(r.Context(), userID, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
