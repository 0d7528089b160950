package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/devcompass/internal/apperror"
	"github.com/sakif/devcompass/internal/model"
	"github.com/sakif/devcompass/internal/repository"
)

// GoalRequest is the body of a goal update. An empty goal clears it; the
// goal is at most 500 characters.
type GoalRequest struct {
	Goal string `json:"goal" validate:"max=500"`
}

// ProfileService manages the per-user settings, currently the career goal
// that is sent along with insight requests.
type ProfileService struct {
	repo     repository.ProfileRepository
	validate *validator.Validate
	logger   *slog.Logger
	now      func() time.Time
}

func NewProfileService(repo repository.ProfileRepository, logger *slog.Logger) *ProfileService {
	return &ProfileService{repo: repo, validate: newValidator(), logger: logger, now: time.Now}
}

// Get returns the user's profile. A user who never saved one gets an empty
// profile, not an error.
func (s *ProfileService) Get(ctx context.Context, userID string) (*model.Profile, error) {
	p, err := s.repo.GetProfile(ctx, userID)
	if errors.Is(err, apperror.ErrNotFound) {
		return &model.Profile{UserID: userID}, nil
	}
	return p, err
}

func (s *ProfileService) SetGoal(ctx context.Context, userID string, req GoalRequest) (*model.Profile, error) {
	req.Goal = strings.TrimSpace(req.Goal)
	if err := s.validate.Struct(req); err != nil {
		return nil, validationError(err)
	}
	at := s.now().UTC()
	if err := s.repo.UpsertGoal(ctx, userID, req.Goal, at); err != nil {
		return nil, err
	}
	s.logger.Info("career goal updated", slog.String("user_id", userID))
	return &model.Profile{UserID: userID, Goal: req.Goal, UpdatedAt: at}, nil
}
