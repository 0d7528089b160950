package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/devcompass/internal/apperror"
)

func TestProfileService_GetWithoutProfile(t *testing.T) {
	svc := NewProfileService(newMockProfileRepo(), testLogger())

	p, err := svc.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", p.UserID)
	assert.Empty(t, p.Goal)
}

func TestProfileService_SetGoal(t *testing.T) {
	repo := newMockProfileRepo()
	svc := NewProfileService(repo, testLogger())
	clock := newFakeClock()
	svc.now = clock.Now

	p, err := svc.SetGoal(context.Background(), "u1", GoalRequest{Goal: "  Land a backend role  "})
	require.NoError(t, err)
	assert.Equal(t, "Land a backend role", p.Goal)
	assert.Equal(t, clock.Now(), p.UpdatedAt)

	got, err := svc.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "Land a backend role", got.Goal)
}

func TestProfileService_SetGoalValidation(t *testing.T) {
	tests := []struct {
		name    string
		goal    string
		wantErr bool
	}{
		{"empty clears", "", false},
		{"at the limit", strings.Repeat("é", 500), false},
		{"too long", strings.Repeat("a", 501), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewProfileService(newMockProfileRepo(), testLogger())
			_, err := svc.SetGoal(context.Background(), "u1", GoalRequest{Goal: tt.goal})
			if tt.wantErr {
				assert.ErrorIs(t, err, apperror.ErrValidation)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestProfileService_RepoError(t *testing.T) {
	repo := newMockProfileRepo()
	repo.err = errors.New("disk full")
	svc := NewProfileService(repo, testLogger())

	_, err := svc.Get(context.Background(), "u1")
	assert.Error(t, err)
	_, err = svc.SetGoal(context.Background(), "u1", GoalRequest{Goal: "x"})
	assert.Error(t, err)
}
