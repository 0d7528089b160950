package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/devcompass/internal/apperror"
	"github.com/sakif/devcompass/internal/model"
	"github.com/sakif/devcompass/internal/upstream"
)

func newTestLedger() (*LedgerService, *mockSolvedRepo, *mockHandleRepo) {
	solved := newMockSolvedRepo()
	handles := newMockHandleRepo()
	handles.add("u1", model.PlatformLeetCode, "alice", true)
	return NewLedgerService(solved, handles, testLogger()), solved, handles
}

func window(n int, prefix string) []model.RecentSubmission {
	out := make([]model.RecentSubmission, n)
	for i := range out {
		out[i] = model.RecentSubmission{Slug: fmt.Sprintf("%s-%d", prefix, i)}
	}
	return out
}

// =========================================================================
// Reconcile
// =========================================================================

func TestLedgerService_ReconcileGapDetection(t *testing.T) {
	tests := []struct {
		name    string
		recent  []model.RecentSubmission
		known   []string
		wantGap bool
		wantIns int
	}{
		{"full window all unseen", window(upstream.RecentWindow, "new"), nil, true, 20},
		{"full window one seen", window(upstream.RecentWindow, "new"), []string{"new-7"}, false, 19},
		{"short window all unseen", window(upstream.RecentWindow-1, "new"), nil, false, 19},
		{"empty window", nil, nil, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, solved, _ := newTestLedger()
			if len(tt.known) > 0 {
				_, err := solved.InsertSlugs(context.Background(), "u1", tt.known)
				require.NoError(t, err)
			}

			res, err := svc.Reconcile(context.Background(), "u1", tt.recent)
			require.NoError(t, err)
			assert.Equal(t, tt.wantGap, res.GapDetected)
			assert.Equal(t, tt.wantIns, res.Inserted)
			assert.Equal(t, upstream.RecentWindow, res.Window)
		})
	}
}

func TestLedgerService_ReconcileIsIdempotent(t *testing.T) {
	svc, solved, _ := newTestLedger()
	recent := []model.RecentSubmission{{Slug: "two-sum"}, {Slug: "two-sum"}}

	first, err := svc.Reconcile(context.Background(), "u1", recent)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Inserted)

	second, err := svc.Reconcile(context.Background(), "u1", recent)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Inserted)

	slugs, _ := solved.ListSlugs(context.Background(), "u1")
	assert.Equal(t, []string{"two-sum"}, slugs)
}

func TestLedgerService_ReconcileTouchesLastSynced(t *testing.T) {
	svc, _, handles := newTestLedger()

	_, err := svc.Reconcile(context.Background(), "u1", window(3, "p"))
	require.NoError(t, err)

	h, _ := handles.Get(context.Background(), "u1", model.PlatformLeetCode)
	assert.NotNil(t, h.LastSyncedAt)
}

func TestLedgerService_ReconcileWithoutHandle(t *testing.T) {
	svc, _, _ := newTestLedger()
	_, err := svc.Reconcile(context.Background(), "stranger", window(2, "p"))
	assert.NoError(t, err)
}

func TestLedgerService_ReconcileInsertError(t *testing.T) {
	svc, solved, _ := newTestLedger()
	solved.insertErr = errors.New("disk full")

	_, err := svc.Reconcile(context.Background(), "u1", window(2, "p"))
	assert.Error(t, err)
}

// =========================================================================
// BulkImport
// =========================================================================

func TestLedgerService_BulkImport(t *testing.T) {
	svc, solved, handles := newTestLedger()
	_, err := solved.InsertSlugs(context.Background(), "u1", []string{"two-sum"})
	require.NoError(t, err)

	res, err := svc.BulkImport(context.Background(), "u1", BulkImportRequest{
		Slugs: []string{"two-sum", "add-two-numbers", " add-two-numbers ", "", strings.Repeat("x", 101), "lru-cache"},
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 3, res.Total, "duplicates and invalid slugs do not count")
	assert.Equal(t, 2, res.Imported, "already known slugs are not imported again")

	h, _ := handles.Get(context.Background(), "u1", model.PlatformLeetCode)
	assert.NotNil(t, h.LastSyncedAt)
}

func TestLedgerService_BulkImportBatches(t *testing.T) {
	svc, solved, _ := newTestLedger()

	slugs := make([]string, 1200)
	for i := range slugs {
		slugs[i] = fmt.Sprintf("problem-%d", i)
	}
	res, err := svc.BulkImport(context.Background(), "u1", BulkImportRequest{Slugs: slugs})
	require.NoError(t, err)
	assert.Equal(t, 1200, res.Imported)
	assert.Equal(t, 1200, res.Total)
	assert.Equal(t, 3, solved.insertCalls)
}

func TestLedgerService_BulkImportRejections(t *testing.T) {
	tooMany := make([]string, MaxBulkSlugs+1)
	for i := range tooMany {
		tooMany[i] = fmt.Sprintf("p-%d", i)
	}

	tests := []struct {
		name    string
		userID  string
		slugs   []string
		wantErr error
	}{
		{"over the limit", "u1", tooMany, apperror.ErrValidation},
		{"no valid slug", "u1", []string{"", "  ", strings.Repeat("y", 101)}, apperror.ErrValidation},
		{"missing slugs", "u1", nil, apperror.ErrValidation},
		{"no verified handle", "stranger", []string{"two-sum"}, apperror.ErrForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, solved, _ := newTestLedger()

			_, err := svc.BulkImport(context.Background(), tt.userID, BulkImportRequest{Slugs: tt.slugs})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Zero(t, solved.insertCalls, "nothing may be inserted")
		})
	}
}

func TestLedgerService_BulkImportUnverified(t *testing.T) {
	svc, _, handles := newTestLedger()
	handles.add("u2", model.PlatformLeetCode, "bob", false)

	_, err := svc.BulkImport(context.Background(), "u2", BulkImportRequest{Slugs: []string{"two-sum"}})
	assert.ErrorIs(t, err, apperror.ErrForbidden)
}
