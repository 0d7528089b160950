package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/devcompass/internal/apperror"
	"github.com/sakif/devcompass/internal/batch"
	"github.com/sakif/devcompass/internal/metrics"
	"github.com/sakif/devcompass/internal/model"
	"github.com/sakif/devcompass/internal/repository"
	"github.com/sakif/devcompass/internal/upstream"
)

const (
	// MaxBulkSlugs caps a bulk import request.
	MaxBulkSlugs = 5000

	// MaxSlugLength is the longest slug accepted by bulk import.
	MaxSlugLength = 100

	// ImportBatchSize is how many slugs one insert batch carries.
	ImportBatchSize = 500

	slugRule = "min=1,max=100"
)

// SyncResult reports what one reconciliation did.
//
// GapDetected is a heuristic: the recent window was full and none of it was
// already in the ledger, so solves older than the window were probably
// missed. Window is the window size the heuristic assumed.
type SyncResult struct {
	Observed    int  `json:"observed"`
	Inserted    int  `json:"inserted"`
	GapDetected bool `json:"gapDetected"`
	Window      int  `json:"window"`
}

// BulkImportRequest is the body of a bulk import.
type BulkImportRequest struct {
	Slugs []string `json:"slugs" validate:"required,max=5000"`
}

// BulkImportResult reports actual inserts against the deduplicated request.
type BulkImportResult struct {
	Success  bool `json:"success"`
	Imported int  `json:"imported"`
	Total    int  `json:"total"`
}

// LedgerService keeps the LeetCode solved-problem ledger in step with what
// the platform reports. Every write is a conflict-skipping insert, so any
// operation may be retried in full.
type LedgerService struct {
	solved   repository.SolvedRepository
	handles  repository.HandleRepository
	validate *validator.Validate
	logger   *slog.Logger
	now      func() time.Time
}

func NewLedgerService(solved repository.SolvedRepository, handles repository.HandleRepository, logger *slog.Logger) *LedgerService {
	return &LedgerService{
		solved:   solved,
		handles:  handles,
		validate: newValidator(),
		logger:   logger,
		now:      time.Now,
	}
}

// Reconcile records the unseen slugs of a recent-submissions window and
// stamps the handle's lastSyncedAt.
func (s *LedgerService) Reconcile(ctx context.Context, userID string, recent []model.RecentSubmission) (*SyncResult, error) {
	slugs := make([]string, 0, len(recent))
	seen := make(map[string]struct{}, len(recent))
	for _, sub := range recent {
		if sub.Slug == "" {
			continue
		}
		if _, ok := seen[sub.Slug]; ok {
			continue
		}
		seen[sub.Slug] = struct{}{}
		slugs = append(slugs, sub.Slug)
	}

	result := &SyncResult{Observed: len(recent), Window: upstream.RecentWindow}
	if len(slugs) == 0 {
		return result, s.touch(ctx, userID)
	}

	existing, err := s.solved.ExistingSlugs(ctx, userID, slugs)
	if err != nil {
		return nil, fmt.Errorf("reading ledger: %w", err)
	}
	unseen := make([]string, 0, len(slugs))
	for _, slug := range slugs {
		if _, ok := existing[slug]; !ok {
			unseen = append(unseen, slug)
		}
	}

	if len(unseen) > 0 {
		n, err := s.solved.InsertSlugs(ctx, userID, unseen)
		if err != nil {
			return nil, fmt.Errorf("updating ledger: %w", err)
		}
		result.Inserted = n
		metrics.LedgerInserted.WithLabelValues("sync").Add(float64(n))
	}

	result.GapDetected = len(recent) >= upstream.RecentWindow && len(existing) == 0
	if result.GapDetected {
		s.logger.Warn("solved ledger gap detected",
			slog.String("user_id", userID),
			slog.Int("window", upstream.RecentWindow),
		)
	}

	if err := s.touch(ctx, userID); err != nil {
		return nil, err
	}
	return result, nil
}

// touch stamps lastSyncedAt. A user without a LeetCode handle has nothing
// to stamp.
func (s *LedgerService) touch(ctx context.Context, userID string) error {
	err := s.handles.TouchLastSynced(ctx, userID, model.PlatformLeetCode, s.now())
	if err != nil && !errors.Is(err, apperror.ErrNotFound) {
		return fmt.Errorf("updating last sync time: %w", err)
	}
	return nil
}

// BulkImport adds a user-supplied list of solved slugs to the ledger.
//
// The whole request is rejected before any insert when it holds more than
// MaxBulkSlugs entries or no valid slug at all. Invalid slugs (empty after
// trimming or longer than MaxSlugLength) are dropped and duplicates count
// once toward Total. Inserts run in concurrent batches; a failed batch
// leaves earlier ones applied, which a retry completes.
func (s *LedgerService) BulkImport(ctx context.Context, userID string, req BulkImportRequest) (*BulkImportResult, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, validationError(err)
	}
	if _, err := verifiedHandle(ctx, s.handles, userID, model.PlatformLeetCode); err != nil {
		return nil, err
	}

	slugs := make([]string, 0, len(req.Slugs))
	seen := make(map[string]struct{}, len(req.Slugs))
	for _, raw := range req.Slugs {
		slug := strings.TrimSpace(raw)
		if err := s.validate.Var(slug, slugRule); err != nil {
			continue
		}
		if _, ok := seen[slug]; ok {
			continue
		}
		seen[slug] = struct{}{}
		slugs = append(slugs, slug)
	}
	if len(slugs) == 0 {
		return nil, apperror.ValidationFailed("slugs", "no valid slugs provided")
	}

	imported, err := batch.Run(ctx, slugs, ImportBatchSize, batch.DefaultWorkers,
		func(ctx context.Context, chunk []string) (int, error) {
			return s.solved.InsertSlugs(ctx, userID, chunk)
		})
	metrics.LedgerInserted.WithLabelValues("bulk_import").Add(float64(imported))
	if err != nil {
		s.logger.Error("bulk import failed",
			slog.String("user_id", userID),
			slog.Int("imported", imported),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("importing solved slugs: %w", err)
	}

	if err := s.touch(ctx, userID); err != nil {
		return nil, err
	}

	s.logger.Info("bulk import finished",
		slog.String("user_id", userID),
		slog.Int("imported", imported),
		slog.Int("total", len(slugs)),
	)
	return &BulkImportResult{Success: true, Imported: imported, Total: len(slugs)}, nil
}
